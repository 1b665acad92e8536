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
	"errors"
	"fmt"
	"reflect"
)

// Result is a two-variant value: either a success carrying a value of type T,
// or a failure carrying a diagnostic message. Instances are immutable and are
// created only through the Success and Failure factories (or their helpers).
// The zero value behaves as a failure with an empty message, so an invalid
// "both populated" or "neither populated" state cannot be observed through
// the public API.
type Result[T any] struct {
	value   T
	message string
	ok      bool
}

// Success returns a successful Result wrapping value.
//
// A nil value is a programmer error and panics: "success with nothing" is
// expressed through Result[Unit], never through Success(nil).
func Success[T any](value T) Result[T] {
	if isNil(value) {
		panic("result: nil value passed to Success")
	}
	return Result[T]{value: value, ok: true}
}

// Failure returns a failed Result carrying message. An empty message is
// accepted but discouraged; prefer a diagnostic that identifies the cause.
func Failure[T any](message string) Result[T] {
	return Result[T]{message: message}
}

// Failuref returns a failed Result with a fmt.Sprintf formatted message.
func Failuref[T any](format string, args ...interface{}) Result[T] {
	return Result[T]{message: fmt.Sprintf(format, args...)}
}

// Wrap converts Go's (value, error) convention into a Result: a non-nil err
// yields Failure with the error's message, otherwise Success(value).
func Wrap[T any](value T, err error) Result[T] {
	if err != nil {
		return Failure[T](err.Error())
	}
	return Success(value)
}

// IsSuccess reports whether the Result is the success variant.
func (r Result[T]) IsSuccess() bool {
	return r.ok
}

// IsFailure reports whether the Result is the failure variant.
func (r Result[T]) IsFailure() bool {
	return !r.ok
}

// Value returns the wrapped value and true on success. On failure it returns
// the zero value and false; it never fabricates a usable value silently.
func (r Result[T]) Value() (T, bool) {
	return r.value, r.ok
}

// ErrorMessage returns the failure message, or "" on success.
func (r Result[T]) ErrorMessage() string {
	return r.message
}

// ValueOr returns the wrapped value on success, or fallback on failure.
func (r Result[T]) ValueOr(fallback T) T {
	if r.ok {
		return r.value
	}
	return fallback
}

// ValueOrZero returns the wrapped value on success, or T's zero value.
func (r Result[T]) ValueOrZero() T {
	var zero T
	return r.ValueOr(zero)
}

// MustValue returns the wrapped value, panicking on failure. This is the
// deliberately unsafe extraction: callers opt out of safe handling and take
// the panic if they were wrong. Use ValueOr or Match everywhere else.
func (r Result[T]) MustValue() T {
	if !r.ok {
		panic(fmt.Sprintf("result: MustValue called on failure: %s", r.message))
	}
	return r.value
}

// Unwrap converts the Result back into Go's (value, error) convention:
// (value, nil) on success, (zero, error built from the message) on failure.
func (r Result[T]) Unwrap() (T, error) {
	if r.ok {
		return r.value, nil
	}
	var zero T
	return zero, errors.New(r.message)
}

// OnSuccess invokes action with the wrapped value when the Result is a
// success and returns the original Result unchanged for chaining. Panics
// raised inside action propagate to the caller: the hook observes, it does
// not handle.
func (r Result[T]) OnSuccess(action func(T)) Result[T] {
	if r.ok {
		action(r.value)
	}
	return r
}

// OnFailure invokes action with the failure message when the Result is a
// failure and returns the original Result unchanged for chaining. Panics
// raised inside action propagate to the caller.
func (r Result[T]) OnFailure(action func(string)) Result[T] {
	if !r.ok {
		action(r.message)
	}
	return r
}

// Equal reports whether two Results are the same variant with equal payload:
// value equality (reflect.DeepEqual) for successes, string equality for
// failures.
func (r Result[T]) Equal(other Result[T]) bool {
	if r.ok != other.ok {
		return false
	}
	if !r.ok {
		return r.message == other.message
	}
	return reflect.DeepEqual(r.value, other.value)
}

// String renders "Success(<value>)" or "Failure(<message>)" for diagnostics
// and tests; the format is not meant to be parsed.
func (r Result[T]) String() string {
	if r.ok {
		return fmt.Sprintf("Success(%v)", r.value)
	}
	return fmt.Sprintf("Failure(%s)", r.message)
}

// Map transforms a success value through fn, producing Success(fn(value)).
// A failure passes through with the identical message and fn is never
// invoked. Map obeys the functor laws: Map(r, identity) equals r, and
// mapping f then g equals mapping their composition.
func Map[T, U any](r Result[T], fn func(T) U) Result[U] {
	if r.ok {
		return Success(fn(r.value))
	}
	return Failure[U](r.message)
}

// Bind chains a success value through fn, which itself returns a Result.
// A failure passes through with the identical message and fn is never
// invoked. Bind obeys the monad laws: Bind(Success(x), f) equals f(x),
// Bind(r, Success) equals r, and Bind is associative.
func Bind[T, U any](r Result[T], fn func(T) Result[U]) Result[U] {
	if r.ok {
		return fn(r.value)
	}
	return Failure[U](r.message)
}

// Match invokes exactly one branch, selected by the variant, and returns
// that branch's result. It is the sanctioned terminal conversion of a
// Result into a plain value.
func Match[T, U any](r Result[T], onSuccess func(T) U, onFailure func(string) U) U {
	if r.ok {
		return onSuccess(r.value)
	}
	return onFailure(r.message)
}

// isNil reports whether v is nil either directly or through a nilable
// dynamic type (pointer, map, slice, chan, func, interface).
func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return rv.IsNil()
	default:
		return false
	}
}
