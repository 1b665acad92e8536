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

import "context"

// MapAsync is Map for transformations that may block: fn receives the
// context and may perform I/O. A failure short-circuits without invoking
// fn, exactly as Map does. A context already cancelled before fn runs
// yields a failure carrying the context's error message.
func MapAsync[T, U any](ctx context.Context, r Result[T], fn func(context.Context, T) U) Result[U] {
	if !r.ok {
		return Failure[U](r.message)
	}
	if err := ctx.Err(); err != nil {
		return Failure[U](err.Error())
	}
	return Success(fn(ctx, r.value))
}

// BindAsync is Bind for blocking transformations; fn receives the context
// and returns a Result itself. Failure and cancellation behave as in
// MapAsync: fn is never invoked on either.
func BindAsync[T, U any](ctx context.Context, r Result[T], fn func(context.Context, T) Result[U]) Result[U] {
	if !r.ok {
		return Failure[U](r.message)
	}
	if err := ctx.Err(); err != nil {
		return Failure[U](err.Error())
	}
	return fn(ctx, r.value)
}

// MatchAsync invokes exactly one branch, selected by the variant, passing
// the context through so the branch can perform blocking work. Cancellation
// handling belongs to the branch: a terminal match always produces a value.
func MatchAsync[T, U any](ctx context.Context, r Result[T], onSuccess func(context.Context, T) U, onFailure func(context.Context, string) U) U {
	if r.ok {
		return onSuccess(ctx, r.value)
	}
	return onFailure(ctx, r.message)
}
