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

import (
	"encoding/json"

	"github.com/cinemeta/scenemerge/internal/core/model"
)

// Apply folds an incoming fragment into the target scene record under the
// conservative, accretive policy: existing data is never destroyed, only
// gaps are filled and collections are extended. The per-type rules are:
//
//   - Identity fields (scene_id, movie_id) are never touched.
//   - Lists: an empty target takes the incoming list wholesale; otherwise
//     incoming items absent from the target (by structural equality) are
//     appended in their incoming order.
//   - Objects: an empty target takes the incoming object; otherwise the
//     incoming object is shallow-merged, existing non-null keys winning.
//   - Strings: set only when the target is empty or null.
//   - Numbers and booleans: set only when the target is null.
//   - Anything else: set only when the target has no such key at all.
//
// Apply mutates target in place and never modifies src. Incoming maps and
// slices are copied before they are stored, so a later Apply into the same
// target cannot write through into the fragment that contributed them.
//
// Inputs:
//  1. target - the scene record being accreted into.
//  2. src - the fragment contributing new data.
func Apply(target model.SceneRecord, src model.SceneRecord) {
	for key, value := range src {
		if key == model.KeySceneID || key == model.KeyMovieID {
			continue
		}
		existing, present := target[key]

		switch incoming := value.(type) {
		case []interface{}:
			if isEmpty(existing) {
				target[key] = copyValue(incoming)
				continue
			}
			current, ok := existing.([]interface{})
			if !ok {
				continue
			}
			target[key] = appendMissing(current, incoming)
		case map[string]interface{}:
			if isEmpty(existing) {
				target[key] = copyValue(incoming)
				continue
			}
			current, ok := existing.(map[string]interface{})
			if !ok {
				continue
			}
			for subKey, subValue := range incoming {
				if cur, ok := current[subKey]; !ok || cur == nil {
					current[subKey] = copyValue(subValue)
				}
			}
		case string:
			if existing == nil || existing == "" {
				target[key] = incoming
			}
		case float64, int, int64, bool:
			if existing == nil {
				target[key] = incoming
			}
		default:
			if !present {
				target[key] = value
			}
		}
	}
}

// isEmpty reports whether an existing value offers nothing worth keeping:
// null, an empty string, or an empty collection.
func isEmpty(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []interface{}:
		return len(t) == 0
	case map[string]interface{}:
		return len(t) == 0
	}
	return false
}

// appendMissing extends current with every incoming item it does not
// already contain, comparing items by structural equality so that
// equivalent objects arriving from different fragments do not duplicate.
func appendMissing(current, incoming []interface{}) []interface{} {
	seen := make(map[string]bool, len(current))
	for _, item := range current {
		seen[structuralKey(item)] = true
	}
	out := current
	for _, item := range incoming {
		k := structuralKey(item)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, copyValue(item))
	}
	return out
}

// copyValue returns a value safe to store in a target record. Fragments are
// shared inputs, so maps and slices are copied recursively; scalars are
// returned as-is.
func copyValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for key, item := range t {
			out[key] = copyValue(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = copyValue(item)
		}
		return out
	}
	return v
}

func structuralKey(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "?"
	}
	return string(b)
}
