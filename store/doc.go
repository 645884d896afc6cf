// Package store provides the DynamoDB backend for dimension repositories.
//
// Every dimension lives in its own table keyed by a numeric "id". Keys come
// from an atomic counter table, one item per sequence name. Integrity that a
// relational engine would enforce is kept with write transactions:
//
//   - Natural keys: each unique constraint claims an item in a shared
//     constraint table, written with attribute_not_exists(pk)
//   - References: the parent's "refs" attribute is incremented in the same
//     transaction, conditioned on the parent existing
//   - Orphan protection: a record is deleted only while its refs is zero
//   - Optimistic locking: updates and deletes are guarded by "version"
//
// When a transaction is cancelled, the failing item's index identifies the
// constraint or reference involved, which is then reported through
// [dimension.Translator]. No error text is inspected.
//
// # Tables
//
// [EnsureTables] creates the counter table, the constraint table and one
// table per schema. [Config.TablePrefix] is prepended to every name:
//
//	cfg := store.DefaultConfig()
//	cfg.TablePrefix = "staging_"
//	err := store.EnsureTables(ctx, client, cfg, catalog.All()...)
//
// # Errors
//
// Failures surface as [dimension.NotFoundError], [dimension.ConflictError]
// or [dimension.TransientError]. Throttling, server faults, cancelled
// contexts and exhausted optimistic retries are transient. Other client
// faults, such as a missing table, are returned unclassified.
package store
