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

package types

import "fmt"

// QueryFilter is a WHERE clause fragment plus its bind arguments. Filters
// compose into parenthesized predicates through And, Or, and Not, so callers
// build complex conditions from small named ones instead of concatenating SQL.
type QueryFilter struct {
	Schema string
	Args   []interface{}
}

// NewQueryFilter creates a new query filter with schema and args.
func NewQueryFilter(schema string, args ...interface{}) *QueryFilter {
	return &QueryFilter{schema, args}
}

// And returns a filter matching rows satisfying both f and other. A nil
// receiver or argument degrades to the other side, so partial filters
// compose without nil checks at call sites.
func (f *QueryFilter) And(other *QueryFilter) *QueryFilter {
	if f == nil {
		return other
	}
	if other == nil {
		return f
	}
	return &QueryFilter{
		Schema: fmt.Sprintf("(%s) AND (%s)", f.Schema, other.Schema),
		Args:   mergeArgs(f.Args, other.Args),
	}
}

// Or returns a filter matching rows satisfying either f or other.
func (f *QueryFilter) Or(other *QueryFilter) *QueryFilter {
	if f == nil {
		return other
	}
	if other == nil {
		return f
	}
	return &QueryFilter{
		Schema: fmt.Sprintf("(%s) OR (%s)", f.Schema, other.Schema),
		Args:   mergeArgs(f.Args, other.Args),
	}
}

// Not returns a filter matching rows f does not match.
func (f *QueryFilter) Not() *QueryFilter {
	if f == nil {
		return nil
	}
	return &QueryFilter{
		Schema: fmt.Sprintf("NOT (%s)", f.Schema),
		Args:   mergeArgs(f.Args, nil),
	}
}

func mergeArgs(left, right []interface{}) []interface{} {
	merged := make([]interface{}, 0, len(left)+len(right))
	merged = append(merged, left...)
	return append(merged, right...)
}

// PageRequest describes pagination, optional filter, and ordering. The
// getters return the requested values untouched; Validate reports
// out-of-range values instead of correcting them.
type PageRequest struct {
	page     int
	pageSize int
	filter   *QueryFilter
	orders   []string // "id ASC", "name DESC"
}

// GetPage returns the requested page number as given.
func (p *PageRequest) GetPage() int {
	return p.page
}

// GetPageSize returns the requested page size as given.
func (p *PageRequest) GetPageSize() int {
	return p.pageSize
}

// GetOffset returns the row offset for the requested page.
func (p *PageRequest) GetOffset() int {
	return (p.page - 1) * p.pageSize
}

// GetFilter returns the optional filter, nil meaning "match all rows".
func (p *PageRequest) GetFilter() *QueryFilter {
	return p.filter
}

// GetOrders returns the ordering clauses.
func (p *PageRequest) GetOrders() []string {
	return p.orders
}

// Validate reports the first violated pagination precondition: both page
// and pageSize must be at least 1.
func (p *PageRequest) Validate() error {
	if p.page < 1 {
		return fmt.Errorf("page must be >= 1, got %d", p.page)
	}
	if p.pageSize < 1 {
		return fmt.Errorf("pageSize must be >= 1, got %d", p.pageSize)
	}
	return nil
}

// NewPageRequest constructs a PageRequest with filter and order settings.
func NewPageRequest(page int, pageSize int, filter *QueryFilter, orders []string) *PageRequest {
	return &PageRequest{page, pageSize, filter, orders}
}

// NewPageRequestWithFilter constructs a PageRequest with a filter only.
func NewPageRequestWithFilter(page int, pageSize int, filter *QueryFilter) *PageRequest {
	return NewPageRequest(page, pageSize, filter, make([]string, 0))
}

// NewPageRequestWithOrders constructs a PageRequest with ordering only.
func NewPageRequestWithOrders(page int, pageSize int, orders []string) *PageRequest {
	return NewPageRequest(page, pageSize, nil, orders)
}

// NewDefaultPageRequest constructs a PageRequest with no filter or ordering.
func NewDefaultPageRequest(page int, pageSize int) *PageRequest {
	return NewPageRequest(page, pageSize, nil, make([]string, 0))
}
