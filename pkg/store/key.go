package store

import "context"

// Key binds a record name to the Go type stored under it so every reader and
// the owning writer agree on the record's shape.
type Key[T any] struct {
	Name string
}

// NewKey returns a typed key.
func NewKey[T any](name string) Key[T] {
	return Key[T]{Name: name}
}

// Load decodes the record. The zero value and false are returned when the
// record does not exist.
func (k Key[T]) Load(ctx context.Context, s *Store) (T, bool, error) {
	var out T
	ok, err := s.Load(ctx, k.Name, &out)
	if err != nil || !ok {
		var zero T
		return zero, false, err
	}
	return out, true, nil
}

// Save writes value through w.
func (k Key[T]) Save(ctx context.Context, w *Writer, value T) error {
	return w.Save(ctx, k.Name, value)
}

// Clear removes the record through w.
func (k Key[T]) Clear(ctx context.Context, w *Writer) error {
	return w.Clear(ctx, k.Name)
}

// String returns the key name.
func (k Key[T]) String() string {
	return k.Name
}
