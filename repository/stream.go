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
)

// Stream reads the table in id order, batchSize rows per query, and emits
// each row as its own Result. The channel is unbuffered: every send races
// ctx.Done, so a cancelled consumer never strands the producer goroutine.
// No cursor is held between batches.
func (r *bunRepository[T]) Stream(ctx context.Context, batchSize int) <-chan result.Result[*T] {
	out := make(chan result.Result[*T])

	go func() {
		defer close(out)

		if batchSize < 1 {
			emit(ctx, out, result.Failuref[*T]("stream: batchSize must be >= 1, got %d", batchSize))
			return
		}

		offset := 0
		for {
			if ctx.Err() != nil {
				return
			}

			var batch []*T
			err := r.conn.NewSelect().
				Model(&batch).
				Order("id ASC").
				Limit(batchSize).
				Offset(offset).
				Scan(ctx)
			if err != nil {
				emit(ctx, out, result.Failure[*T](storageFailure("stream", err)))
				return
			}

			for _, entity := range batch {
				if !emit(ctx, out, result.Success(entity)) {
					return
				}
			}

			// A short batch means the table is exhausted
			if len(batch) < batchSize {
				return
			}
			offset += batchSize
		}
	}()

	return out
}

// emit sends one item unless ctx is done first. It reports whether the
// consumer is still listening.
func emit[T any](ctx context.Context, out chan<- result.Result[*T], item result.Result[*T]) bool {
	select {
	case out <- item:
		return true
	case <-ctx.Done():
		return false
	}
}
