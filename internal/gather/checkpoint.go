package gather

import (
	"context"
	"fmt"
	"sync"
	"time"

	"stockcollector/internal/domain"
	"stockcollector/internal/store"
	"stockcollector/internal/util"
)

// checkpointKeys are loaded on acquisition.
var checkpointKeys = []string{
	domain.KeyLastAddedDate,
	domain.KeyAVRateLimitResetDate,
	domain.KeyNasdaqStartDate,
}

// Checkpoint is an in-memory view of the collection state. Mutations stay
// local until Release writes every changed key in one Put.
type Checkpoint struct {
	mu       sync.Mutex
	store    store.StateStore
	values   map[string]string
	dirty    map[string]struct{}
	released bool
}

// AcquireCheckpoint reads the checkpoint keys from s. Callers must defer
// Release.
func AcquireCheckpoint(ctx context.Context, s store.StateStore) (*Checkpoint, error) {
	c := &Checkpoint{
		store:  s,
		values: make(map[string]string, len(checkpointKeys)),
		dirty:  make(map[string]struct{}),
	}
	for _, key := range checkpointKeys {
		v, ok, err := s.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("acquiring checkpoint: %w", err)
		}
		if ok {
			c.values[key] = v
		}
	}
	return c, nil
}

// Date returns the date stored under key.
func (c *Checkpoint) Date(key string) (time.Time, bool, error) {
	c.mu.Lock()
	v, ok := c.values[key]
	c.mu.Unlock()
	if !ok || v == "" {
		return time.Time{}, false, nil
	}
	d, err := util.ParseDate(v)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("checkpoint %s: %w", key, err)
	}
	return d, true, nil
}

// SetDate stores d under key.
func (c *Checkpoint) SetDate(key string, d time.Time) {
	c.set(key, util.FormatDate(d))
}

// Clear removes key.
func (c *Checkpoint) Clear(key string) {
	c.set(key, "")
}

// AdvanceLastAddedDate moves lastAddedDate to d. It never moves backwards.
func (c *Checkpoint) AdvanceLastAddedDate(d time.Time) error {
	cur, ok, err := c.Date(domain.KeyLastAddedDate)
	if err != nil {
		return err
	}
	if ok && !d.After(cur) {
		return fmt.Errorf("lastAddedDate %s cannot move back to %s", util.FormatDate(cur), util.FormatDate(d))
	}
	c.SetDate(domain.KeyLastAddedDate, d)
	return nil
}

// Values returns a copy of the current values.
func (c *Checkpoint) Values() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// Release persists the changed keys. Only the first call writes; later
// calls return nil. It writes even when ctx is already cancelled.
func (c *Checkpoint) Release(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.released {
		return nil
	}
	c.released = true
	if len(c.dirty) == 0 {
		return nil
	}

	changes := make(map[string]string, len(c.dirty))
	for key := range c.dirty {
		changes[key] = c.values[key]
	}
	if err := c.store.Put(context.WithoutCancel(ctx), changes); err != nil {
		return fmt.Errorf("releasing checkpoint: %w", err)
	}
	c.dirty = make(map[string]struct{})
	return nil
}

func (c *Checkpoint) set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.values[key] == value {
		return
	}
	if value == "" {
		delete(c.values, key)
	} else {
		c.values[key] = value
	}
	c.dirty[key] = struct{}{}
}
