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
)

// Projection loads the entities matching filter and maps each through
// selector, preserving row order. A nil filter matches all rows. It is a
// package function because Go methods cannot introduce type parameters.
func Projection[T, U any](ctx context.Context, repo QueryRepository[T], filter *types.QueryFilter, selector func(*T) U) result.Result[[]U] {
	if selector == nil {
		return result.Failure[[]U]("projection: selector cannot be nil")
	}
	return result.Bind(repo.Find(ctx, filter), func(entities []*T) result.Result[[]U] {
		projected := make([]U, 0, len(entities))
		for _, entity := range entities {
			projected = append(projected, selector(entity))
		}
		return result.Success(projected)
	})
}
