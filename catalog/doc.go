// Package catalog declares the labor-market dimensions: their stored
// schemas, their domain types and the explicit mappers between the two.
//
// Every entity has a pair of pure functions, XToDomain and XFromDomain,
// bundled as XMapper for use with dimension.NewRepository. Schemas list their
// natural keys under the constraint names used by both backends, so a
// ConflictError names the same constraint whichever engine raised it.
package catalog
