// Package repository provides a generic repository over a record store with
// an identity cache, predicate queries, pagination and bulk updates.
package repository
