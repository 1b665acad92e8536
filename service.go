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

package railway

import (
	"context"
	"sync"

	"github.com/tomoncle/railway/database"
	"github.com/tomoncle/railway/repository"
	"github.com/tomoncle/railway/result"
	"github.com/tomoncle/railway/types"

	"github.com/uptrace/bun"
)

// Service is a thin generic facade over the repository, reporting every
// outcome as a Result value.
type Service[T any] interface {
	// Get returns a single entity by its identifier.
	Get(ctx context.Context, id any) result.Result[*T]

	// First returns the first entity matching the filter.
	First(ctx context.Context, filter *types.QueryFilter) result.Result[*T]

	// All returns all entities.
	All(ctx context.Context) result.Result[[]*T]

	// Find returns entities that match the provided filter.
	Find(ctx context.Context, filter *types.QueryFilter) result.Result[[]*T]

	// Count returns the number of entities matching the filter.
	Count(ctx context.Context, filter *types.QueryFilter) result.Result[int]

	// Exists reports whether any entity matches the filter.
	Exists(ctx context.Context, filter *types.QueryFilter) result.Result[bool]

	// Page returns a paginated list of entities.
	Page(ctx context.Context, page *types.PageRequest) result.Paged[*T]

	// Stream emits every entity over a channel in id order.
	Stream(ctx context.Context, batchSize int) <-chan result.Result[*T]

	// Add stages a new entity for insertion on Commit.
	Add(model *T) result.Result[result.Unit]

	// AddAll stages several new entities for insertion on Commit.
	AddAll(model ...*T) result.Result[result.Unit]

	// Update stages an entity modification for Commit.
	Update(model *T) result.Result[result.Unit]

	// UpdateAll stages several entity modifications for Commit.
	UpdateAll(model ...*T) result.Result[result.Unit]

	// Remove stages an entity removal for Commit.
	Remove(model *T) result.Result[result.Unit]

	// RemoveAll stages several entity removals for Commit.
	RemoveAll(model ...*T) result.Result[result.Unit]

	// Pending reports how many staged changes await Commit.
	Pending() int

	// Commit flushes all staged changes and returns rows affected.
	Commit(ctx context.Context) result.Result[int]

	// Discard drops all staged changes.
	Discard() result.Result[result.Unit]

	// BulkUpdate immediately sets columns on every entity matching the filter.
	BulkUpdate(ctx context.Context, filter *types.QueryFilter, columns map[string]interface{}) result.Result[int]

	// BulkDelete immediately removes every entity matching the filter.
	BulkDelete(ctx context.Context, filter *types.QueryFilter) result.Result[int]

	// Upsert inserts entities, updating fields on conflict.
	Upsert(ctx context.Context, fields []string, conflictColumns []string, model ...*T) result.Result[int]

	// Transaction runs fn against a transaction-bound repository.
	Transaction(ctx context.Context, fn func(ctx context.Context, repo repository.Repository[T]) result.Result[result.Unit]) result.Result[result.Unit]

	// OnChange registers a handler for staging-time change notifications.
	OnChange(handler types.ChangeHandler)

	// Repo exposes the underlying repository for advanced use cases.
	Repo() repository.Repository[T]

	// SelectBuilder returns a Bun select query builder for the entity.
	SelectBuilder() *bun.SelectQuery

	// InsertBuilder returns a Bun insert query builder for the entity.
	InsertBuilder() *bun.InsertQuery

	// UpdateBuilder returns a Bun update query builder for the entity.
	UpdateBuilder() *bun.UpdateQuery

	// DeleteBuilder returns a Bun delete query builder for the entity.
	DeleteBuilder() *bun.DeleteQuery
}

type baseServiceImpl[T any] struct {
	repo repository.Repository[T]
	once sync.Once
}

// NewService returns a Service backed by the global database connection.
// The repository is created lazily, so the service can be declared before
// InitDB runs.
func NewService[T any]() Service[T] {
	return &baseServiceImpl[T]{}
}

// NewServiceWithDB returns a Service bound to the given Bun DB.
func NewServiceWithDB[T any](db *bun.DB) Service[T] {
	return &baseServiceImpl[T]{repo: repository.NewRepository[T](db)}
}

func (s *baseServiceImpl[T]) baseRepo() repository.Repository[T] {
	s.once.Do(func() {
		if s.repo == nil {
			s.repo = repository.NewRepository[T](database.MustDB())
		}
	})
	return s.repo
}

func (s *baseServiceImpl[T]) Get(ctx context.Context, id any) result.Result[*T] {
	return s.baseRepo().Get(ctx, id)
}

func (s *baseServiceImpl[T]) First(ctx context.Context, filter *types.QueryFilter) result.Result[*T] {
	return s.baseRepo().First(ctx, filter)
}

func (s *baseServiceImpl[T]) All(ctx context.Context) result.Result[[]*T] {
	return s.baseRepo().All(ctx)
}

func (s *baseServiceImpl[T]) Find(ctx context.Context, filter *types.QueryFilter) result.Result[[]*T] {
	return s.baseRepo().Find(ctx, filter)
}

func (s *baseServiceImpl[T]) Count(ctx context.Context, filter *types.QueryFilter) result.Result[int] {
	return s.baseRepo().Count(ctx, filter)
}

func (s *baseServiceImpl[T]) Exists(ctx context.Context, filter *types.QueryFilter) result.Result[bool] {
	return s.baseRepo().Exists(ctx, filter)
}

func (s *baseServiceImpl[T]) Page(ctx context.Context, page *types.PageRequest) result.Paged[*T] {
	return s.baseRepo().Page(ctx, page)
}

func (s *baseServiceImpl[T]) Stream(ctx context.Context, batchSize int) <-chan result.Result[*T] {
	return s.baseRepo().Stream(ctx, batchSize)
}

func (s *baseServiceImpl[T]) Add(model *T) result.Result[result.Unit] {
	return s.baseRepo().Add(model)
}

func (s *baseServiceImpl[T]) AddAll(model ...*T) result.Result[result.Unit] {
	return s.baseRepo().AddAll(model...)
}

func (s *baseServiceImpl[T]) Update(model *T) result.Result[result.Unit] {
	return s.baseRepo().Update(model)
}

func (s *baseServiceImpl[T]) UpdateAll(model ...*T) result.Result[result.Unit] {
	return s.baseRepo().UpdateAll(model...)
}

func (s *baseServiceImpl[T]) Remove(model *T) result.Result[result.Unit] {
	return s.baseRepo().Remove(model)
}

func (s *baseServiceImpl[T]) RemoveAll(model ...*T) result.Result[result.Unit] {
	return s.baseRepo().RemoveAll(model...)
}

func (s *baseServiceImpl[T]) Pending() int {
	return s.baseRepo().Pending()
}

func (s *baseServiceImpl[T]) Commit(ctx context.Context) result.Result[int] {
	return s.baseRepo().Save(ctx)
}

func (s *baseServiceImpl[T]) Discard() result.Result[result.Unit] {
	return s.baseRepo().Rollback()
}

func (s *baseServiceImpl[T]) BulkUpdate(ctx context.Context, filter *types.QueryFilter, columns map[string]interface{}) result.Result[int] {
	return s.baseRepo().BulkUpdate(ctx, filter, columns)
}

func (s *baseServiceImpl[T]) BulkDelete(ctx context.Context, filter *types.QueryFilter) result.Result[int] {
	return s.baseRepo().BulkDelete(ctx, filter)
}

func (s *baseServiceImpl[T]) Upsert(ctx context.Context, fields []string, conflictColumns []string, model ...*T) result.Result[int] {
	return s.baseRepo().Upsert(ctx, fields, conflictColumns, model...)
}

func (s *baseServiceImpl[T]) Transaction(ctx context.Context, fn func(ctx context.Context, repo repository.Repository[T]) result.Result[result.Unit]) result.Result[result.Unit] {
	return s.baseRepo().Transaction(ctx, fn)
}

func (s *baseServiceImpl[T]) OnChange(handler types.ChangeHandler) {
	s.baseRepo().OnChange(handler)
}

func (s *baseServiceImpl[T]) Repo() repository.Repository[T] {
	return s.baseRepo()
}

func (s *baseServiceImpl[T]) SelectBuilder() *bun.SelectQuery {
	return s.baseRepo().NewSelect()
}

func (s *baseServiceImpl[T]) InsertBuilder() *bun.InsertQuery {
	return s.baseRepo().NewInsert()
}

func (s *baseServiceImpl[T]) UpdateBuilder() *bun.UpdateQuery {
	return s.baseRepo().NewUpdate()
}

func (s *baseServiceImpl[T]) DeleteBuilder() *bun.DeleteQuery {
	return s.baseRepo().NewDelete()
}
