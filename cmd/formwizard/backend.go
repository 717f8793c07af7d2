package main

import (
	"context"
	"log/slog"

	"github.com/goliatone/go-formwizard/pkg/config"
	"github.com/goliatone/go-formwizard/pkg/store"
	"github.com/goliatone/go-formwizard/pkg/store/redisstore"
	"github.com/goliatone/go-formwizard/pkg/store/sqlitestore"
)

// openBackend builds the record backend named by rt.Store. Shared stores
// namespace records by session, generated when rt.Session is empty.
func openBackend(ctx context.Context, rt config.Runtime, logger *slog.Logger) (store.Backend, string, func(), error) {
	session := rt.Session
	if session == "" {
		session = store.NewSessionID()
	}
	noop := func() {}

	switch rt.Store {
	case config.StoreRedis:
		client, err := redisstore.Dial(ctx, rt.RedisURL)
		if err != nil {
			return nil, "", noop, err
		}
		backend, err := redisstore.New(client, session)
		if err != nil {
			_ = client.Close()
			return nil, "", noop, err
		}
		logger.Debug("using redis store", "session", session)
		return backend, session, func() { _ = client.Close() }, nil
	case config.StoreSQLite:
		db, err := sqlitestore.Open(rt.SQLitePath)
		if err != nil {
			return nil, "", noop, err
		}
		backend, err := sqlitestore.New(ctx, db, session)
		if err != nil {
			_ = db.Close()
			return nil, "", noop, err
		}
		logger.Debug("using sqlite store", "path", rt.SQLitePath, "session", session)
		return backend, session, func() { _ = db.Close() }, nil
	default:
		return store.NewMemoryBackend(), session, noop, nil
	}
}
