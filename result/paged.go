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

package result

import (
	"context"
	"fmt"
	"reflect"
)

// Paged is a Result over a page of items, augmented with page metadata.
// Three factories exist:
//
//   - PagedSuccess: a page that holds items (possibly zero) out of a total.
//   - EmptyPage: a valid, in-range, simply empty page. Distinct from both
//     PagedFailure (a real error) and a stale PagedSuccess with zero items.
//   - PagedFailure: a failed page query; metadata is forced to zero and the
//     item sequence is absent.
//
// Like Result, a Paged value is immutable after construction. The zero
// value behaves as a failure with an empty message.
type Paged[T any] struct {
	items      []T
	page       int
	pageSize   int
	totalItems int
	message    string
	ok         bool
}

// PagedSuccess returns a successful page of items with the given metadata.
// A nil items slice is normalized to an empty one: in the success variant
// the sequence is always present.
func PagedSuccess[T any](items []T, page, pageSize, totalItems int) Paged[T] {
	if items == nil {
		items = []T{}
	}
	return Paged[T]{items: items, page: page, pageSize: pageSize, totalItems: totalItems, ok: true}
}

// PagedFailure returns a failed page carrying message. Page metadata is
// zero and Items reports an absent (nil) sequence.
func PagedFailure[T any](message string) Paged[T] {
	return Paged[T]{message: message}
}

// EmptyPage returns the success variant for a valid but empty page:
// zero items, zero totalItems, the requested page and pageSize retained.
func EmptyPage[T any](page, pageSize int) Paged[T] {
	return Paged[T]{items: []T{}, page: page, pageSize: pageSize, ok: true}
}

// IsSuccess reports whether the page is the success variant (including the
// empty page).
func (p Paged[T]) IsSuccess() bool {
	return p.ok
}

// IsFailure reports whether the page is the failure variant.
func (p Paged[T]) IsFailure() bool {
	return !p.ok
}

// IsEmpty reports whether the page is a success holding no items.
func (p Paged[T]) IsEmpty() bool {
	return p.ok && len(p.items) == 0
}

// Items returns the wrapped sequence. It is nil only in the failure
// variant; a success always holds a non-nil (possibly empty) slice.
func (p Paged[T]) Items() []T {
	return p.items
}

// Page returns the page number (zero in the failure variant).
func (p Paged[T]) Page() int {
	return p.page
}

// PageSize returns the page size (zero in the failure variant).
func (p Paged[T]) PageSize() int {
	return p.pageSize
}

// TotalItems returns the total item count across all pages.
func (p Paged[T]) TotalItems() int {
	return p.totalItems
}

// TotalPages returns ceiling(totalItems / pageSize), or 0 when the page
// size or total is zero (which covers the EmptyPage and failure variants).
func (p Paged[T]) TotalPages() int {
	if !p.ok || p.pageSize <= 0 || p.totalItems <= 0 {
		return 0
	}
	return (p.totalItems + p.pageSize - 1) / p.pageSize
}

// ErrorMessage returns the failure message, or "" on success.
func (p Paged[T]) ErrorMessage() string {
	return p.message
}

// Equal reports whether two pages are the same variant with equal items and
// metadata (failures compare by message).
func (p Paged[T]) Equal(other Paged[T]) bool {
	if p.ok != other.ok {
		return false
	}
	if !p.ok {
		return p.message == other.message
	}
	return p.page == other.page &&
		p.pageSize == other.pageSize &&
		p.totalItems == other.totalItems &&
		reflect.DeepEqual(p.items, other.items)
}

// String renders the page for diagnostics; the format is not parsed.
func (p Paged[T]) String() string {
	if !p.ok {
		return fmt.Sprintf("Failure(%s)", p.message)
	}
	return fmt.Sprintf("Success(%d items, page=%d, pageSize=%d, totalItems=%d)",
		len(p.items), p.page, p.pageSize, p.totalItems)
}

// MapItems transforms every item of a successful page through fn, keeping
// the original page metadata. A failure propagates its message unchanged
// and fn is never invoked. A success that ends up with zero items is
// normalized to EmptyPage so its totalItems cannot go stale.
func MapItems[T, U any](p Paged[T], fn func(T) U) Paged[U] {
	if !p.ok {
		return PagedFailure[U](p.message)
	}
	if len(p.items) == 0 {
		return EmptyPage[U](p.page, p.pageSize)
	}
	mapped := make([]U, 0, len(p.items))
	for _, item := range p.items {
		mapped = append(mapped, fn(item))
	}
	return PagedSuccess(mapped, p.page, p.pageSize, p.totalItems)
}

// BindItems chains every item of a successful page through fn, which itself
// returns a Result. The first item whose binder fails makes the whole page
// a failure carrying that item's message; the remaining items are never
// visited. When every binder succeeds the bound values keep the original
// page metadata, normalizing to EmptyPage when there are no items.
func BindItems[T, U any](p Paged[T], fn func(T) Result[U]) Paged[U] {
	if !p.ok {
		return PagedFailure[U](p.message)
	}
	bound := make([]U, 0, len(p.items))
	for _, item := range p.items {
		r := fn(item)
		if !r.ok {
			return PagedFailure[U](r.message)
		}
		bound = append(bound, r.value)
	}
	if len(bound) == 0 {
		return EmptyPage[U](p.page, p.pageSize)
	}
	return PagedSuccess(bound, p.page, p.pageSize, p.totalItems)
}

// MapItemsAsync is MapItems for blocking transformations. Items are visited
// sequentially in input order; a cancelled context fails the page with the
// context's error message before the next item runs.
func MapItemsAsync[T, U any](ctx context.Context, p Paged[T], fn func(context.Context, T) U) Paged[U] {
	if !p.ok {
		return PagedFailure[U](p.message)
	}
	if len(p.items) == 0 {
		return EmptyPage[U](p.page, p.pageSize)
	}
	mapped := make([]U, 0, len(p.items))
	for _, item := range p.items {
		if err := ctx.Err(); err != nil {
			return PagedFailure[U](err.Error())
		}
		mapped = append(mapped, fn(ctx, item))
	}
	return PagedSuccess(mapped, p.page, p.pageSize, p.totalItems)
}

// BindItemsAsync is BindItems for blocking binders, visiting items
// sequentially in input order with the same short-circuit and cancellation
// behavior as MapItemsAsync.
func BindItemsAsync[T, U any](ctx context.Context, p Paged[T], fn func(context.Context, T) Result[U]) Paged[U] {
	if !p.ok {
		return PagedFailure[U](p.message)
	}
	bound := make([]U, 0, len(p.items))
	for _, item := range p.items {
		if err := ctx.Err(); err != nil {
			return PagedFailure[U](err.Error())
		}
		r := fn(ctx, item)
		if !r.ok {
			return PagedFailure[U](r.message)
		}
		bound = append(bound, r.value)
	}
	if len(bound) == 0 {
		return EmptyPage[U](p.page, p.pageSize)
	}
	return PagedSuccess(bound, p.page, p.pageSize, p.totalItems)
}
