/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package repository

import (
	"context"

	"github.com/tomoncle/railway/result"
	"github.com/tomoncle/railway/types"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// QueryRepository defines read operations for a generic entity type. Every
// operation reports its outcome as a Result; storage errors never escape as
// raw error values.
type QueryRepository[T any] interface {
	// Get loads the entity with the given primary key. A missing row is a
	// Failure carrying a not-found diagnostic, not a nil success.
	Get(ctx context.Context, id any) result.Result[*T]

	// First returns the first entity matching the filter. A nil filter
	// matches any row.
	First(ctx context.Context, filter *types.QueryFilter) result.Result[*T]

	// All loads every entity of the type.
	All(ctx context.Context) result.Result[[]*T]

	// Find loads the entities matching the filter. A nil filter matches
	// all rows. No match is a successful empty slice.
	Find(ctx context.Context, filter *types.QueryFilter) result.Result[[]*T]

	// Count returns the number of rows matching the filter.
	Count(ctx context.Context, filter *types.QueryFilter) result.Result[int]

	// Exists reports whether any row matches the filter.
	Exists(ctx context.Context, filter *types.QueryFilter) result.Result[bool]

	// Page returns one page of entities with pagination metadata. An
	// invalid page request is a failed page, an empty result set is an
	// empty page.
	Page(ctx context.Context, page *types.PageRequest) result.Paged[*T]
}

// StagingRepository collects entity changes in memory until Save flushes
// them or Rollback discards them. Staging never touches storage, so the
// staging operations take no context.
type StagingRepository[T any] interface {
	Add(entity *T) result.Result[result.Unit]
	AddAll(entities ...*T) result.Result[result.Unit]
	Update(entity *T) result.Result[result.Unit]
	UpdateAll(entities ...*T) result.Result[result.Unit]
	Remove(entity *T) result.Result[result.Unit]
	RemoveAll(entities ...*T) result.Result[result.Unit]

	// Pending reports how many staged changes await Save.
	Pending() int

	// Save flushes all staged changes in staging order inside a single
	// transaction and returns the total number of rows affected. On
	// failure the staged changes are restored for retry or Rollback.
	Save(ctx context.Context) result.Result[int]

	// Rollback discards every staged change without touching storage.
	Rollback() result.Result[result.Unit]
}

// BulkRepository defines set-oriented writes that bypass staging and take
// effect immediately.
type BulkRepository[T any] interface {
	// BulkUpdate sets the given columns on every row matching the filter
	// and returns the number of rows affected. A nil filter matches all.
	BulkUpdate(ctx context.Context, filter *types.QueryFilter, columns map[string]interface{}) result.Result[int]

	// BulkDelete removes every row matching the filter and returns the
	// number of rows affected. A nil filter matches all.
	BulkDelete(ctx context.Context, filter *types.QueryFilter) result.Result[int]

	// Upsert inserts the entities, updating the given fields on conflict
	// with conflictColumns (defaulting to the primary key). The statement
	// form follows the dialect: ON CONFLICT for postgres/sqlite, ON
	// DUPLICATE KEY for mysql, insert-then-update otherwise.
	Upsert(ctx context.Context, fields []string, conflictColumns []string, entities ...*T) result.Result[int]
}

// StreamRepository streams every entity in batches over a channel.
type StreamRepository[T any] interface {
	// Stream emits each row as an individually wrapped Result, reading
	// the table in primary-key order with batchSize rows per query. Read
	// errors arrive as a single in-band Failure item before the channel
	// closes. Cancel ctx to abandon the stream; the producer goroutine
	// always exits.
	Stream(ctx context.Context, batchSize int) <-chan result.Result[*T]
}

// TxRepository runs a function against a transaction-bound repository.
type TxRepository[T any] interface {
	// Transaction begins a transaction and calls fn with a repository
	// whose operations all run inside it. A successful fn flushes any
	// changes still staged on that repository and commits; a failed fn,
	// a panic, or cancellation rolls back and reports Failure with the
	// underlying message.
	Transaction(ctx context.Context, fn func(ctx context.Context, repo Repository[T]) result.Result[result.Unit]) result.Result[result.Unit]
}

// ObservableRepository publishes change notifications. Handlers run
// synchronously at staging time, in staging order.
type ObservableRepository interface {
	OnChange(handler types.ChangeHandler)
}

// Repository combines querying, staging, bulk writes, streaming,
// transactions, and change notification, and exposes Bun query builders
// for advanced use cases.
type Repository[T any] interface {
	QueryRepository[T]
	StagingRepository[T]
	BulkRepository[T]
	StreamRepository[T]
	TxRepository[T]
	ObservableRepository
	DB() bun.IDB
	Dialect() schema.Dialect
	NewSelect() *bun.SelectQuery
	NewInsert() *bun.InsertQuery
	NewUpdate() *bun.UpdateQuery
	NewDelete() *bun.DeleteQuery
}
