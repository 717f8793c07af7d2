// Package redisstore backs the wizard store with Redis so a session survives
// process restarts and can be shared by several front ends. Each session's
// records live under "<prefix>:<session>:<key>".
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/goliatone/go-formwizard/pkg/store"
)

const defaultPrefix = "formwizard"

// Option configures the backend.
type Option func(*Backend)

// WithPrefix overrides the key namespace prefix.
func WithPrefix(prefix string) Option {
	return func(b *Backend) {
		if trimmed := strings.Trim(strings.TrimSpace(prefix), ":"); trimmed != "" {
			b.prefix = trimmed
		}
	}
}

// WithTTL expires session records after ttl of inactivity. Zero keeps records
// until they are cleared.
func WithTTL(ttl time.Duration) Option {
	return func(b *Backend) {
		if ttl >= 0 {
			b.ttl = ttl
		}
	}
}

// Backend implements store.Backend on top of a go-redis client.
type Backend struct {
	client  redis.UniversalClient
	session string
	prefix  string
	ttl     time.Duration
}

var _ store.Backend = (*Backend)(nil)

// New binds a client to a session id.
func New(client redis.UniversalClient, sessionID string, options ...Option) (*Backend, error) {
	if client == nil {
		return nil, errors.New("redisstore: client is required")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, errors.New("redisstore: session id is required")
	}
	b := &Backend{
		client:  client,
		session: sessionID,
		prefix:  defaultPrefix,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(b)
	}
	return b, nil
}

// Dial parses a redis:// URL, pings the server and returns a client.
func Dial(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redisstore: parse url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redisstore: ping: %w", err)
	}
	return client, nil
}

func (b *Backend) namespace() string {
	return b.prefix + ":" + b.session + ":"
}

func (b *Backend) key(name string) string {
	return b.namespace() + name
}

func (b *Backend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := b.client.Get(ctx, b.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redisstore: get %s: %w", key, err)
	}
	return value, true, nil
}

func (b *Backend) Set(ctx context.Context, key string, value []byte) error {
	if err := b.client.Set(ctx, b.key(key), value, b.ttl).Err(); err != nil {
		return fmt.Errorf("redisstore: set %s: %w", key, err)
	}
	return nil
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	if err := b.client.Del(ctx, b.key(key)).Err(); err != nil {
		return fmt.Errorf("redisstore: delete %s: %w", key, err)
	}
	return nil
}

func (b *Backend) Keys(ctx context.Context) ([]string, error) {
	full, err := b.scan(ctx)
	if err != nil {
		return nil, err
	}
	ns := b.namespace()
	keys := make([]string, 0, len(full))
	for _, k := range full {
		keys = append(keys, strings.TrimPrefix(k, ns))
	}
	sort.Strings(keys)
	return keys, nil
}

func (b *Backend) Clear(ctx context.Context) error {
	full, err := b.scan(ctx)
	if err != nil {
		return err
	}
	if len(full) == 0 {
		return nil
	}
	if err := b.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("redisstore: clear: %w", err)
	}
	return nil
}

func (b *Backend) scan(ctx context.Context) ([]string, error) {
	var (
		out    []string
		cursor uint64
	)
	for {
		batch, next, err := b.client.Scan(ctx, cursor, b.namespace()+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("redisstore: scan: %w", err)
		}
		out = append(out, batch...)
		cursor = next
		if cursor == 0 {
			return out, nil
		}
	}
}
