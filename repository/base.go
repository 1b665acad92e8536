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
	"database/sql"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/tomoncle/railway/database"
	"github.com/tomoncle/railway/result"
	"github.com/tomoncle/railway/types"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/feature"
	"github.com/uptrace/bun/schema"
)

// stagedChange is one pending write in the in-memory change set.
type stagedChange[T any] struct {
	kind   types.ChangeKind
	entity *T
}

type bunRepository[T any] struct {
	db   *bun.DB
	conn bun.IDB

	mu       sync.Mutex
	staged   []stagedChange[T]
	handlers []types.ChangeHandler
}

// NewRepository returns a generic repository backed by the provided Bun DB.
// T must be a Bun model struct. A nil db is a setup error and panics.
func NewRepository[T any](db *bun.DB) Repository[T] {
	if db == nil {
		panic("repository: nil *bun.DB passed to NewRepository")
	}
	return &bunRepository[T]{db: db, conn: db}
}

func (r *bunRepository[T]) DB() bun.IDB { return r.conn }

func (r *bunRepository[T]) Dialect() schema.Dialect { return r.db.Dialect() }

func (r *bunRepository[T]) NewSelect() *bun.SelectQuery { return r.conn.NewSelect() }

func (r *bunRepository[T]) NewInsert() *bun.InsertQuery { return r.conn.NewInsert() }

func (r *bunRepository[T]) NewUpdate() *bun.UpdateQuery { return r.conn.NewUpdate() }

func (r *bunRepository[T]) NewDelete() *bun.DeleteQuery { return r.conn.NewDelete() }

// tableName resolves the model's table name for change-event sourcing.
func (r *bunRepository[T]) tableName() string {
	return r.db.Table(reflect.TypeFor[T]()).Name
}

// storageFailure renders a storage error as a diagnostic failure message,
// prefixed with the classified error category when one applies.
func storageFailure(op string, err error) string {
	if is, sqlErr := database.IsSqlError(err); is {
		return fmt.Sprintf("%s: %s: %v", op, sqlErr, err)
	}
	return fmt.Sprintf("%s: %v", op, err)
}

func (r *bunRepository[T]) Get(ctx context.Context, id any) result.Result[*T] {
	if id == nil {
		return result.Failure[*T]("get: id cannot be nil")
	}
	var entity T
	err := r.conn.NewSelect().Model(&entity).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if database.IsNotFound(err) {
			return result.Failuref[*T]("get: %s: id=%v", database.NoRowsErr, id)
		}
		return result.Failure[*T](storageFailure("get", err))
	}
	return result.Success(&entity)
}

func (r *bunRepository[T]) First(ctx context.Context, filter *types.QueryFilter) result.Result[*T] {
	var entity T
	query := r.conn.NewSelect().Model(&entity)
	if filter != nil {
		query = query.Where(filter.Schema, filter.Args...)
	}
	err := query.Limit(1).Scan(ctx)
	if err != nil {
		if database.IsNotFound(err) {
			return result.Failuref[*T]("first: %s", database.NoRowsErr)
		}
		return result.Failure[*T](storageFailure("first", err))
	}
	return result.Success(&entity)
}

func (r *bunRepository[T]) All(ctx context.Context) result.Result[[]*T] {
	return r.Find(ctx, nil)
}

func (r *bunRepository[T]) Find(ctx context.Context, filter *types.QueryFilter) result.Result[[]*T] {
	entities := make([]*T, 0)
	query := r.conn.NewSelect().Model(&entities)
	if filter != nil {
		query = query.Where(filter.Schema, filter.Args...)
	}
	if err := query.Scan(ctx); err != nil {
		return result.Failure[[]*T](storageFailure("find", err))
	}
	return result.Success(entities)
}

func (r *bunRepository[T]) Count(ctx context.Context, filter *types.QueryFilter) result.Result[int] {
	query := r.conn.NewSelect().Model((*T)(nil))
	if filter != nil {
		query = query.Where(filter.Schema, filter.Args...)
	}
	total, err := query.Count(ctx)
	if err != nil {
		return result.Failure[int](storageFailure("count", err))
	}
	return result.Success(total)
}

func (r *bunRepository[T]) Exists(ctx context.Context, filter *types.QueryFilter) result.Result[bool] {
	query := r.conn.NewSelect().Model((*T)(nil))
	if filter != nil {
		query = query.Where(filter.Schema, filter.Args...)
	}
	exists, err := query.Exists(ctx)
	if err != nil {
		return result.Failure[bool](storageFailure("exists", err))
	}
	return result.Success(exists)
}

func (r *bunRepository[T]) Page(ctx context.Context, pageRequest *types.PageRequest) result.Paged[*T] {
	if pageRequest == nil {
		return result.PagedFailure[*T]("page: request cannot be nil")
	}
	if err := pageRequest.Validate(); err != nil {
		return result.PagedFailure[*T]("page: " + err.Error())
	}

	var entities []*T
	query := r.conn.NewSelect().Model(&entities)
	if filter := pageRequest.GetFilter(); filter != nil {
		query = query.Where(filter.Schema, filter.Args...)
	}
	total, err := query.Count(ctx)
	if err != nil {
		return result.PagedFailure[*T](storageFailure("page", err))
	}
	if total == 0 || pageRequest.GetOffset() >= total {
		return result.EmptyPage[*T](pageRequest.GetPage(), pageRequest.GetPageSize())
	}
	err = query.
		Offset(pageRequest.GetOffset()).
		Limit(pageRequest.GetPageSize()).
		Order(pageRequest.GetOrders()...).
		Scan(ctx)
	if err != nil {
		return result.PagedFailure[*T](storageFailure("page", err))
	}
	return result.PagedSuccess(entities, pageRequest.GetPage(), pageRequest.GetPageSize(), total)
}

func (r *bunRepository[T]) Add(entity *T) result.Result[result.Unit] {
	return r.stage("add", types.ChangeAdded, entity)
}

func (r *bunRepository[T]) AddAll(entities ...*T) result.Result[result.Unit] {
	return r.stage("add all", types.ChangeAdded, entities...)
}

func (r *bunRepository[T]) Update(entity *T) result.Result[result.Unit] {
	return r.stage("update", types.ChangeModified, entity)
}

func (r *bunRepository[T]) UpdateAll(entities ...*T) result.Result[result.Unit] {
	return r.stage("update all", types.ChangeModified, entities...)
}

func (r *bunRepository[T]) Remove(entity *T) result.Result[result.Unit] {
	return r.stage("remove", types.ChangeDeleted, entity)
}

func (r *bunRepository[T]) RemoveAll(entities ...*T) result.Result[result.Unit] {
	return r.stage("remove all", types.ChangeDeleted, entities...)
}

// stage validates and records changes, then notifies handlers in staging
// order. Validation happens up front so a bad batch never half-stages.
func (r *bunRepository[T]) stage(op string, kind types.ChangeKind, entities ...*T) result.Result[result.Unit] {
	if len(entities) == 0 {
		return result.Done()
	}
	for _, entity := range entities {
		if entity == nil {
			return result.Failf("%s: entity cannot be nil", op)
		}
	}

	r.mu.Lock()
	for _, entity := range entities {
		r.staged = append(r.staged, stagedChange[T]{kind: kind, entity: entity})
	}
	handlers := make([]types.ChangeHandler, len(r.handlers))
	copy(handlers, r.handlers)
	r.mu.Unlock()

	if len(handlers) > 0 {
		source := r.tableName()
		for _, entity := range entities {
			event := types.NewChangeEvent(source, entity, kind)
			for _, handler := range handlers {
				handler(event)
			}
		}
	}
	return result.Done()
}

func (r *bunRepository[T]) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.staged)
}

func (r *bunRepository[T]) Rollback() result.Result[result.Unit] {
	r.mu.Lock()
	r.staged = nil
	r.mu.Unlock()
	return result.Done()
}

func (r *bunRepository[T]) Save(ctx context.Context) result.Result[int] {
	r.mu.Lock()
	staged := r.staged
	r.staged = nil
	r.mu.Unlock()

	if len(staged) == 0 {
		return result.Success(0)
	}

	affected := 0
	flush := func(ctx context.Context, tx bun.IDB) error {
		n, err := r.flushChanges(ctx, tx, staged)
		affected = n
		return err
	}

	var err error
	if tx, ok := r.conn.(bun.Tx); ok {
		// Already transaction-bound, flush in place
		err = flush(ctx, tx)
	} else {
		err = r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			return flush(ctx, tx)
		})
	}
	if err != nil {
		// Restore the staged changes ahead of anything staged meanwhile
		r.mu.Lock()
		r.staged = append(staged, r.staged...)
		r.mu.Unlock()
		return result.Failure[int](storageFailure("save", err))
	}
	return result.Success(affected)
}

func (r *bunRepository[T]) flushChanges(ctx context.Context, tx bun.IDB, staged []stagedChange[T]) (int, error) {
	total := 0
	for _, change := range staged {
		var (
			res sql.Result
			err error
		)
		switch change.kind {
		case types.ChangeAdded:
			res, err = tx.NewInsert().Model(change.entity).Exec(ctx)
		case types.ChangeModified:
			res, err = tx.NewUpdate().Model(change.entity).WherePK().Exec(ctx)
		case types.ChangeDeleted:
			res, err = tx.NewDelete().Model(change.entity).WherePK().Exec(ctx)
		default:
			return total, fmt.Errorf("unsupported change kind: %v", change.kind)
		}
		if err != nil {
			return total, err
		}
		if n, err := res.RowsAffected(); err == nil {
			total += int(n)
		}
	}
	return total, nil
}

func (r *bunRepository[T]) BulkUpdate(ctx context.Context, filter *types.QueryFilter, columns map[string]interface{}) result.Result[int] {
	if len(columns) == 0 {
		return result.Failure[int]("bulk update: no columns given")
	}
	query := r.conn.NewUpdate().Model((*T)(nil))
	for _, column := range sortedColumnNames(columns) {
		query = query.Set("? = ?", bun.Ident(column), columns[column])
	}
	if filter != nil {
		query = query.Where(filter.Schema, filter.Args...)
	} else {
		query = query.Where("1 = 1")
	}
	res, err := query.Exec(ctx)
	if err != nil {
		return result.Failure[int](storageFailure("bulk update", err))
	}
	return result.Success(rowsAffected(res))
}

func (r *bunRepository[T]) BulkDelete(ctx context.Context, filter *types.QueryFilter) result.Result[int] {
	query := r.conn.NewDelete().Model((*T)(nil))
	if filter != nil {
		query = query.Where(filter.Schema, filter.Args...)
	} else {
		query = query.Where("1 = 1")
	}
	res, err := query.Exec(ctx)
	if err != nil {
		return result.Failure[int](storageFailure("bulk delete", err))
	}
	return result.Success(rowsAffected(res))
}

func (r *bunRepository[T]) Upsert(ctx context.Context, fields []string, conflictColumns []string, entities ...*T) result.Result[int] {
	if len(fields) == 0 {
		return result.Failure[int]("upsert: fields cannot be empty")
	}
	if len(entities) == 0 {
		return result.Failure[int]("upsert: no entities given")
	}
	for _, entity := range entities {
		if entity == nil {
			return result.Failure[int]("upsert: entity cannot be nil")
		}
	}

	batch := make([]*T, len(entities))
	copy(batch, entities)

	var (
		res sql.Result
		err error
	)
	switch {
	case r.db.HasFeature(feature.InsertOnConflict):
		res, err = r.upsertOnConflict(ctx, fields, conflictColumns, batch)
	case r.db.HasFeature(feature.InsertOnDuplicateKey):
		res, err = r.upsertOnDuplicateKey(ctx, fields, batch)
	default:
		return r.upsertFallback(ctx, batch)
	}
	if err != nil {
		return result.Failure[int](storageFailure("upsert", err))
	}
	return result.Success(rowsAffected(res))
}

func (r *bunRepository[T]) upsertOnConflict(ctx context.Context, fields []string, conflictColumns []string, entities []*T) (sql.Result, error) {
	if len(conflictColumns) == 0 {
		conflictColumns = []string{"id"}
	}
	var assignments []string
	for _, field := range fields {
		assignments = append(assignments, fmt.Sprintf("%s = EXCLUDED.%s", bun.Ident(field), bun.Ident(field)))
	}
	return r.conn.NewInsert().
		Model(&entities).
		On("CONFLICT (" + strings.Join(conflictColumns, ",") + ") DO UPDATE").
		Set(strings.Join(assignments, ", ")).
		Exec(ctx)
}

func (r *bunRepository[T]) upsertOnDuplicateKey(ctx context.Context, fields []string, entities []*T) (sql.Result, error) {
	var assignments []string
	for _, field := range fields {
		assignments = append(assignments, fmt.Sprintf("%s = VALUES(%s)", bun.Ident(field), bun.Ident(field)))
	}
	return r.conn.NewInsert().
		Model(&entities).
		On("DUPLICATE KEY UPDATE " + strings.Join(assignments, ", ")).
		Exec(ctx)
}

func (r *bunRepository[T]) upsertFallback(ctx context.Context, entities []*T) result.Result[int] {
	total := 0
	for _, entity := range entities {
		res, err := r.conn.NewInsert().Model(entity).Exec(ctx)
		if err != nil {
			res, err = r.conn.NewUpdate().Model(entity).WherePK().Exec(ctx)
			if err != nil {
				return result.Failure[int](storageFailure("upsert", err))
			}
		}
		total += rowsAffected(res)
	}
	return result.Success(total)
}

func (r *bunRepository[T]) Transaction(ctx context.Context, fn func(ctx context.Context, repo Repository[T]) result.Result[result.Unit]) result.Result[result.Unit] {
	if fn == nil {
		return result.Fail("transaction: fn cannot be nil")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return result.Fail(storageFailure("transaction", err))
	}

	r.mu.Lock()
	handlers := make([]types.ChangeHandler, len(r.handlers))
	copy(handlers, r.handlers)
	r.mu.Unlock()
	txRepo := &bunRepository[T]{db: r.db, conn: tx, handlers: handlers}

	var outcome result.Result[result.Unit]
	panicked := true
	func() {
		defer func() {
			if p := recover(); p != nil {
				outcome = result.Failf("transaction panicked: %v", p)
			}
		}()
		outcome = fn(ctx, txRepo)
		panicked = false
	}()

	if panicked || outcome.IsFailure() {
		_ = tx.Rollback()
		return outcome
	}

	// Flush whatever fn staged but did not save itself
	if flushed := txRepo.Save(ctx); flushed.IsFailure() {
		_ = tx.Rollback()
		return result.Fail(flushed.ErrorMessage())
	}
	if err := tx.Commit(); err != nil {
		_ = tx.Rollback()
		return result.Fail(storageFailure("transaction commit", err))
	}
	return result.Done()
}

func (r *bunRepository[T]) OnChange(handler types.ChangeHandler) {
	if handler == nil {
		return
	}
	r.mu.Lock()
	r.handlers = append(r.handlers, handler)
	r.mu.Unlock()
}

func rowsAffected(res sql.Result) int {
	if res == nil {
		return 0
	}
	if n, err := res.RowsAffected(); err == nil {
		return int(n)
	}
	return 0
}

func sortedColumnNames(columns map[string]interface{}) []string {
	names := make([]string, 0, len(columns))
	for name := range columns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
