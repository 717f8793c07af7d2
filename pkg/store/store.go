package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/goliatone/go-formwizard/pkg/events"
)

var (
	// ErrNotOwner is returned when a writer touches a key it never claimed.
	ErrNotOwner = errors.New("store: key not owned by writer")
	// ErrClaimed is returned when a key pattern is already claimed by a
	// different owner.
	ErrClaimed = errors.New("store: key already claimed")
	// ErrDecode is returned when a stored record does not decode into the
	// requested type.
	ErrDecode = errors.New("store: record does not decode")
)

// Option configures a Store.
type Option func(*Store)

// WithBackend swaps the persistence backend (memory by default).
func WithBackend(backend Backend) Option {
	return func(s *Store) {
		if backend != nil {
			s.backend = backend
		}
	}
}

// WithPublisher routes record notifications to the supplied publisher.
func WithPublisher(pub events.Publisher) Option {
	return func(s *Store) {
		if pub != nil {
			s.events = pub
		}
	}
}

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

type claim struct {
	pattern string
	owner   string
}

func (c claim) matches(key string) bool {
	if prefix, ok := strings.CutSuffix(c.pattern, "*"); ok {
		return strings.HasPrefix(key, prefix)
	}
	return c.pattern == key
}

// Store is the session-scoped key/value store shared by every wizard
// component. Any component may read any key; writes go through a Writer that
// owns a set of key patterns, so each key has exactly one writer.
type Store struct {
	backend Backend
	events  events.Publisher
	logger  *slog.Logger

	mu         sync.Mutex
	claims     []claim
	forwarding bool
}

// New constructs a Store. Without options it uses an in-memory backend and
// discards notifications and logs.
func New(options ...Option) *Store {
	s := &Store{
		backend: NewMemoryBackend(),
		events:  events.Discard,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s
}

// Claim registers owner as the single writer for the supplied patterns. A
// pattern is an exact key or a prefix terminated by "*". Claiming again with
// the same owner is allowed and extends the writer's patterns.
func (s *Store) Claim(owner string, patterns ...string) (*Writer, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return nil, errors.New("store: owner is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			return nil, errors.New("store: empty key pattern")
		}
		for _, existing := range s.claims {
			if existing.owner == owner {
				continue
			}
			if overlaps(existing.pattern, pattern) {
				return nil, fmt.Errorf("%w: %q owned by %q", ErrClaimed, pattern, existing.owner)
			}
		}
	}
	for _, pattern := range patterns {
		s.claims = append(s.claims, claim{pattern: strings.TrimSpace(pattern), owner: owner})
	}
	return &Writer{store: s, owner: owner}, nil
}

func overlaps(a, b string) bool {
	ap, aWild := strings.CutSuffix(a, "*")
	bp, bWild := strings.CutSuffix(b, "*")
	switch {
	case aWild && bWild:
		return strings.HasPrefix(ap, bp) || strings.HasPrefix(bp, ap)
	case aWild:
		return strings.HasPrefix(b, ap)
	case bWild:
		return strings.HasPrefix(a, bp)
	default:
		return a == b
	}
}

// Owner reports the claimed owner for key.
func (s *Store) Owner(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.claims {
		if c.matches(key) {
			return c.owner, true
		}
	}
	return "", false
}

func (s *Store) owns(owner, key string) bool {
	got, ok := s.Owner(key)
	return ok && got == owner
}

// Load decodes the record stored under key into dst. A missing record is not
// an error: it reports false and leaves dst untouched.
func (s *Store) Load(ctx context.Context, key string, dst any) (bool, error) {
	raw, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("store: load %s: %w", key, err)
	}
	if !ok || isNull(raw) {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrDecode, key, err)
	}
	return true, nil
}

// Raw returns the undecoded payload stored under key.
func (s *Store) Raw(ctx context.Context, key string) (json.RawMessage, bool, error) {
	raw, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("store: load %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}
	return json.RawMessage(raw), true, nil
}

// Has reports whether a non-null record exists for key.
func (s *Store) Has(ctx context.Context, key string) bool {
	raw, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		s.logger.Warn("store read failed", "key", key, "error", err)
		return false
	}
	return ok && !isNull(raw)
}

// Keys lists the stored keys in lexical order.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	keys, err := s.backend.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: keys: %w", err)
	}
	return keys, nil
}

// SetForwarding toggles the "navigating forward" flag that suppresses the
// next teardown.
func (s *Store) SetForwarding(forward bool) {
	s.mu.Lock()
	s.forwarding = forward
	s.mu.Unlock()
}

// Forwarding reports the current forwarding flag.
func (s *Store) Forwarding() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.forwarding
}

// Teardown models the end of the page session: every record is removed
// unless the forwarding flag is set. The flag is reset either way. It
// reports whether records were cleared.
func (s *Store) Teardown(ctx context.Context) (bool, error) {
	s.mu.Lock()
	suppressed := s.forwarding
	s.forwarding = false
	s.mu.Unlock()

	keys, err := s.backend.Keys(ctx)
	if err != nil {
		return false, fmt.Errorf("store: teardown: %w", err)
	}
	if suppressed {
		s.logger.Debug("store teardown suppressed by forwarding flag", "keys", len(keys))
		s.events.Publish(events.StoreTeardown{Keys: keys, Suppressed: true})
		return false, nil
	}
	if err := s.backend.Clear(ctx); err != nil {
		return false, fmt.Errorf("store: teardown: %w", err)
	}
	s.logger.Debug("store torn down", "keys", len(keys))
	s.events.Publish(events.StoreTeardown{Keys: keys})
	return true, nil
}

func (s *Store) save(ctx context.Context, owner, key string, value any) error {
	if !s.owns(owner, key) {
		return fmt.Errorf("%w: %s (writer %s)", ErrNotOwner, key, owner)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", key, err)
	}
	if err := s.backend.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("store: save %s: %w", key, err)
	}
	s.events.Publish(events.RecordSaved{Key: key, Owner: owner})
	return nil
}

func (s *Store) clear(ctx context.Context, owner, key string) error {
	if !s.owns(owner, key) {
		return fmt.Errorf("%w: %s (writer %s)", ErrNotOwner, key, owner)
	}
	if err := s.backend.Delete(ctx, key); err != nil {
		return fmt.Errorf("store: clear %s: %w", key, err)
	}
	s.events.Publish(events.RecordCleared{Key: key, Owner: owner})
	return nil
}

func isNull(raw []byte) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed == "" || trimmed == "null"
}

// Writer is the write capability handed to the component owning a set of
// keys.
type Writer struct {
	store *Store
	owner string
}

// Owner returns the writer's owner name.
func (w *Writer) Owner() string {
	if w == nil {
		return ""
	}
	return w.owner
}

// Store exposes the underlying store for reads.
func (w *Writer) Store() *Store {
	if w == nil {
		return nil
	}
	return w.store
}

// Save JSON-encodes value under key.
func (w *Writer) Save(ctx context.Context, key string, value any) error {
	if w == nil || w.store == nil {
		return errors.New("store: writer is nil")
	}
	return w.store.save(ctx, w.owner, key, value)
}

// Clear removes key.
func (w *Writer) Clear(ctx context.Context, key string) error {
	if w == nil || w.store == nil {
		return errors.New("store: writer is nil")
	}
	return w.store.clear(ctx, w.owner, key)
}
