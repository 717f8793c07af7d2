// Package store implements the session-scoped key/value store shared by the
// wizard components. Records are JSON encoded and kept in a pluggable Backend
// (in-memory by default, see the redisstore and sqlitestore subpackages for
// shared backends). Every key has a single owning Writer obtained through
// Claim; reads are unrestricted. Writes and clears are published on the
// events bus so dependent views can refresh.
package store
