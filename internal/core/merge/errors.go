// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package merge

import "errors"

// ErrMissingTimings is returned when the authoritative timing table for a
// movie does not exist. The timing table is the scene-count contract for
// the whole run, so there is no sensible degraded mode: the caller must
// produce the timings first.
var ErrMissingTimings = errors.New("scene timing table not found")

// ErrStrictValidation is returned by strict runs when one or more built
// scenes fail schema validation. The offending documents are still written
// so they can be inspected; only the run status reports failure.
var ErrStrictValidation = errors.New("strict schema validation failed")
