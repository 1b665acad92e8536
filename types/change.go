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

import (
	"time"

	"github.com/google/uuid"
)

// Common illegal/default values used by enums.
const (
	IllegalValue = -1
	IllegalName  = "unknown"
	IllegalDesc  = "unknown"
)

// BaseEnum represents a basic enum contract used by domain types.
type BaseEnum interface {
	IsValid() bool
	Number() int
	String() string
	Desc() string
	Name() string
}

// ChangeKind enumerates the mutation kinds a repository stages.
type ChangeKind int

const (
	ChangeAdded ChangeKind = iota
	ChangeModified
	ChangeDeleted
)

var changeKindNames = map[ChangeKind]string{
	ChangeAdded:    "Added",
	ChangeModified: "Modified",
	ChangeDeleted:  "Deleted",
}

var changeKindDescs = map[ChangeKind]string{
	ChangeAdded:    "entity staged for insertion",
	ChangeModified: "entity staged for update",
	ChangeDeleted:  "entity staged for deletion",
}

// IsValid reports whether the kind is one of the declared values.
func (k ChangeKind) IsValid() bool {
	_, ok := changeKindNames[k]
	return ok
}

// Number returns the numeric enum value, or IllegalValue when invalid.
func (k ChangeKind) Number() int {
	if !k.IsValid() {
		return IllegalValue
	}
	return int(k)
}

// Name returns the enum name ("Added", "Modified", "Deleted").
func (k ChangeKind) Name() string {
	if name, ok := changeKindNames[k]; ok {
		return name
	}
	return IllegalName
}

// Desc returns a human-readable description of the kind.
func (k ChangeKind) Desc() string {
	if desc, ok := changeKindDescs[k]; ok {
		return desc
	}
	return IllegalDesc
}

// String implements fmt.Stringer.
func (k ChangeKind) String() string {
	return k.Name()
}

var _ BaseEnum = ChangeAdded

// ChangeEvent describes one staged mutation. Events are published
// synchronously at staging time, before any save or commit, so observers
// see intent rather than only persisted fact.
type ChangeEvent struct {
	ID     uuid.UUID   // unique event identity
	Source string      // table or model name the mutation targets
	Entity interface{} // the staged entity
	Kind   ChangeKind
	At     time.Time
}

// NewChangeEvent stamps a change event with a fresh identity and the
// current time.
func NewChangeEvent(source string, entity interface{}, kind ChangeKind) ChangeEvent {
	return ChangeEvent{
		ID:     uuid.New(),
		Source: source,
		Entity: entity,
		Kind:   kind,
		At:     time.Now(),
	}
}

// ChangeHandler receives change events. Handlers run synchronously on the
// staging goroutine in registration order; a slow handler delays staging.
type ChangeHandler func(event ChangeEvent)
