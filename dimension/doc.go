// Package dimension defines the storage-neutral surface shared by every
// dimension backend.
//
// A dimension is a low-cardinality reference entity (city, employer, job
// role, ...) identified by an integer surrogate key and constrained by one or
// more natural keys. Backends store [Record] values described by a [Schema];
// a typed [Repository] turns records into domain entities through a [Mapper].
//
// # Keys
//
// Surrogate keys are always greater than zero. A record with ID 0 has not
// been stored yet; Add is the only operation that accepts it. Backends either
// draw a key from an [Allocator] before writing (document stores) or let the
// engine assign an identity and read it back (relational stores).
//
// # Errors
//
// Every backend classifies its native failures into exactly three kinds:
//
//   - [NotFoundError] - the key is absent on Get, Update or Delete, or a
//     referenced parent does not exist
//   - [ConflictError] - a declared uniqueness constraint would be violated,
//     or a still-referenced record is being deleted
//   - [TransientError] - the engine was unreachable or timed out; retrying
//     the whole operation is safe
//
// Use errors.Is with [ErrNotFound], [ErrConflict] and [ErrTransient], or
// errors.As to read the structured fields.
package dimension
