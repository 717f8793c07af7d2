package entity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/goliatone/go-formwizard/pkg/events"
	"github.com/goliatone/go-formwizard/pkg/store"
)

// Option configures collections and the managers built on them.
type Option func(*settings)

type settings struct {
	events events.Publisher
	logger *slog.Logger
}

// WithPublisher routes EntityChanged events to pub.
func WithPublisher(pub events.Publisher) Option {
	return func(s *settings) {
		if pub != nil {
			s.events = pub
		}
	}
}

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func newSettings(options []Option) settings {
	s := settings{
		events: events.Discard,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range options {
		if opt != nil {
			opt(&s)
		}
	}
	return s
}

// Collection is an ordered sequence persisted under a single key. Indices are
// always contiguous: removing an entity shifts later ones down.
type Collection[T any] struct {
	name   string
	key    store.Key[[]T]
	writer *store.Writer
	settings
}

// NewCollection binds a sequence to key. name labels EntityChanged events.
func NewCollection[T any](name string, key store.Key[[]T], writer *store.Writer, options ...Option) *Collection[T] {
	return &Collection[T]{name: name, key: key, writer: writer, settings: newSettings(options)}
}

// Name returns the collection name used in events.
func (c *Collection[T]) Name() string { return c.name }

// Key returns the backing store key.
func (c *Collection[T]) Key() store.Key[[]T] { return c.key }

// All returns the persisted sequence.
func (c *Collection[T]) All(ctx context.Context) ([]T, error) {
	items, _, err := c.key.Load(ctx, c.writer.Store())
	if err != nil {
		return nil, fmt.Errorf("entity: %s: %w", c.name, err)
	}
	return items, nil
}

// Len returns the number of entities.
func (c *Collection[T]) Len(ctx context.Context) (int, error) {
	items, err := c.All(ctx)
	return len(items), err
}

// Get returns the entity at i.
func (c *Collection[T]) Get(ctx context.Context, i int) (T, error) {
	var zero T
	items, err := c.All(ctx)
	if err != nil {
		return zero, err
	}
	if i < 0 || i >= len(items) {
		return zero, fmt.Errorf("%w: %s[%d] (len %d)", ErrOutOfRange, c.name, i, len(items))
	}
	return items[i], nil
}

// Add appends item at the next index and returns it. A backing record that
// does not decode as a sequence is treated as placeholder state and cleared
// first.
func (c *Collection[T]) Add(ctx context.Context, item T) (int, error) {
	items, err := c.All(ctx)
	if err != nil {
		if !errors.Is(err, store.ErrDecode) {
			return 0, err
		}
		c.logger.Warn("clearing placeholder collection state", "collection", c.name, "key", c.key.Name, "error", err)
		if clearErr := c.key.Clear(ctx, c.writer); clearErr != nil {
			return 0, fmt.Errorf("entity: %s: %w", c.name, clearErr)
		}
		items = nil
	}
	items = append(items, item)
	if err := c.save(ctx, items); err != nil {
		return 0, err
	}
	idx := len(items) - 1
	c.publish(events.EntityAdded, At(idx), len(items))
	return idx, nil
}

// Update replaces the entity at i.
func (c *Collection[T]) Update(ctx context.Context, i int, item T) error {
	items, err := c.All(ctx)
	if err != nil {
		return err
	}
	if i < 0 || i >= len(items) {
		return fmt.Errorf("%w: %s[%d] (len %d)", ErrOutOfRange, c.name, i, len(items))
	}
	items[i] = item
	if err := c.save(ctx, items); err != nil {
		return err
	}
	c.publish(events.EntityUpdated, At(i), len(items))
	return nil
}

// Remove deletes the entity at i and reindexes the rest.
func (c *Collection[T]) Remove(ctx context.Context, i int) error {
	items, err := c.All(ctx)
	if err != nil {
		return err
	}
	if i < 0 || i >= len(items) {
		return fmt.Errorf("%w: %s[%d] (len %d)", ErrOutOfRange, c.name, i, len(items))
	}
	items = append(items[:i:i], items[i+1:]...)
	if err := c.save(ctx, items); err != nil {
		return err
	}
	c.publish(events.EntityRemoved, At(i), len(items))
	return nil
}

// Replace overwrites the whole sequence.
func (c *Collection[T]) Replace(ctx context.Context, items []T) error {
	return c.save(ctx, items)
}

func (c *Collection[T]) save(ctx context.Context, items []T) error {
	if items == nil {
		items = []T{}
	}
	if err := c.key.Save(ctx, c.writer, items); err != nil {
		return fmt.Errorf("entity: %s: %w", c.name, err)
	}
	return nil
}

func (c *Collection[T]) publish(op events.EntityOp, ref Ref, count int) {
	c.events.Publish(events.EntityChanged{Collection: c.name, Op: op, Ref: ref.String(), Count: count})
}

// Single is an optional entity persisted under its own key.
type Single[T any] struct {
	name   string
	key    store.Key[T]
	writer *store.Writer
	settings
}

// NewSingle binds a singleton entity to key.
func NewSingle[T any](name string, key store.Key[T], writer *store.Writer, options ...Option) *Single[T] {
	return &Single[T]{name: name, key: key, writer: writer, settings: newSettings(options)}
}

// Get loads the entity; false when unset.
func (s *Single[T]) Get(ctx context.Context) (T, bool, error) {
	v, ok, err := s.key.Load(ctx, s.writer.Store())
	if err != nil {
		return v, false, fmt.Errorf("entity: %s: %w", s.name, err)
	}
	return v, ok, nil
}

// Set stores the entity, publishing an add or an update.
func (s *Single[T]) Set(ctx context.Context, v T) error {
	existed := s.writer.Store().Has(ctx, s.key.Name)
	if err := s.key.Save(ctx, s.writer, v); err != nil {
		return fmt.Errorf("entity: %s: %w", s.name, err)
	}
	op := events.EntityAdded
	if existed {
		op = events.EntityUpdated
	}
	s.events.Publish(events.EntityChanged{Collection: s.name, Op: op, Ref: SingletonName, Count: 1})
	return nil
}

// Clear removes the entity.
func (s *Single[T]) Clear(ctx context.Context) error {
	if err := s.key.Clear(ctx, s.writer); err != nil {
		return fmt.Errorf("entity: %s: %w", s.name, err)
	}
	s.events.Publish(events.EntityChanged{Collection: s.name, Op: events.EntityRemoved, Ref: SingletonName})
	return nil
}
