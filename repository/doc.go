// Package repository provides a generic repository abstraction built on Bun
// whose operations report outcomes as Result values: querying, pagination,
// staged writes with save/rollback, bulk writes, upsert, streaming,
// transactions, and change notification.
package repository
