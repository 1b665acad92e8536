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

import "fmt"

// Unit is the marker type for "no meaningful value". Result[Unit] is the
// payload-free Result used by operations that succeed or fail without
// producing anything. All Unit values are equal.
type Unit struct{}

// String implements fmt.Stringer.
func (Unit) String() string {
	return "Unit"
}

// Done returns the successful payload-free Result.
func Done() Result[Unit] {
	return Success(Unit{})
}

// Fail returns a failed payload-free Result carrying message.
func Fail(message string) Result[Unit] {
	return Failure[Unit](message)
}

// Failf returns a failed payload-free Result with a formatted message.
func Failf(format string, args ...interface{}) Result[Unit] {
	return Fail(fmt.Sprintf(format, args...))
}
