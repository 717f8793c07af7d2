package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// Handoff is the forwarding channel used on final submission. It is separate
// from the session store so values survive the store's teardown and reach
// the next page.
type Handoff struct {
	mu      sync.Mutex
	records map[string]json.RawMessage
}

// NewHandoff constructs an empty handoff channel.
func NewHandoff() *Handoff {
	return &Handoff{records: make(map[string]json.RawMessage)}
}

// Forward copies the raw records for keys out of src. Missing keys are
// forwarded as JSON null so the receiver can tell "absent" from "never sent".
func (h *Handoff) Forward(ctx context.Context, src *Store, keys ...string) error {
	for _, key := range keys {
		raw, ok, err := src.Raw(ctx, key)
		if err != nil {
			return fmt.Errorf("store: forward %s: %w", key, err)
		}
		if !ok {
			raw = json.RawMessage("null")
		}
		h.mu.Lock()
		h.records[key] = append(json.RawMessage(nil), raw...)
		h.mu.Unlock()
	}
	return nil
}

// Take decodes a forwarded record into dst. It reports false when the key was
// never forwarded or was forwarded as null.
func (h *Handoff) Take(key string, dst any) (bool, error) {
	h.mu.Lock()
	raw, ok := h.records[key]
	h.mu.Unlock()
	if !ok || isNull(raw) {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("store: decode forwarded %s: %w", key, err)
	}
	return true, nil
}

// Keys lists the forwarded keys.
func (h *Handoff) Keys() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	keys := make([]string, 0, len(h.records))
	for key := range h.records {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
