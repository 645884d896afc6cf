// Package sqlstore provides the relational backend for dimension
// repositories, on PostgreSQL (pgx) or SQLite (modernc.org/sqlite).
//
// Each dimension is a table with an engine-generated identity key, one
// named UNIQUE constraint per natural key and one named FOREIGN KEY per
// reference, all created by [Migrate]. Writes are single statements, so
// the engine alone guarantees atomicity and integrity.
//
// Integrity failures are recognised by driver error code, never by
// message text. PostgreSQL reports the violated constraint's name, which is
// the declared name. SQLite does not, so the store probes each declared
// constraint to find the one that is now taken or the parent that is
// missing. A violation that can no longer be attributed, because the
// conflicting row vanished in between, is reported as transient.
package sqlstore
