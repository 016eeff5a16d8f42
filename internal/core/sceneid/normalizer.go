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

// Package sceneid resolves the mismatch between movie-local scene ids
// ("scene_0001") and movie-prefixed ids ("serenity_scene_0001") across
// heterogeneous phase outputs. Some phases emit local ids, some prefix them
// with the movie, and some mix both within one folder; the master merge
// normalizes everything to local ids before building the canonical list.
//
// The prefix heuristics are intentionally approximate: a movie id that
// itself contains underscores followed by scene-like tokens can be
// misclassified. The functions here never fail on such input, they only
// potentially misfile a fragment, which the conservative merge tolerates.
package sceneid

import "strings"

// sceneMarker separates a filename's movie prefix from its scene suffix.
const sceneMarker = "_scene_"

// Qualify returns the movie-prefixed form of a scene id. Ids already
// carrying the movie prefix are returned unchanged.
//
// Inputs:
//   - localID: A scene id, local or already qualified.
//   - movie: The movie identifier to prefix with.
//
// Outputs:
//   - string: The qualified id, e.g. "serenity_scene_0001".
func Qualify(localID string, movie string) string {
	if movie == "" || strings.HasPrefix(localID, movie) {
		return localID
	}
	return movie + "_" + localID
}

// Localize strips the movie prefix from a raw scene id when it is present.
// The prefix is only stripped when the remainder still looks like a scene
// id, meaning it keeps at least two underscore-delimited components (such as
// "scene_0001"); otherwise the raw id is returned unchanged. Movie names
// that contain underscores can defeat this heuristic; the result may then
// be misclassified but never invalid.
//
// Inputs:
//   - rawID: A scene id as found in a fragment, local or qualified.
//   - movie: The movie identifier whose prefix should be removed.
//
// Outputs:
//   - string: The movie-local id.
func Localize(rawID string, movie string) string {
	if movie == "" {
		return rawID
	}
	prefix := movie + "_"
	if !strings.HasPrefix(rawID, prefix) {
		return rawID
	}
	remainder := strings.TrimPrefix(rawID, prefix)
	if strings.Count(remainder, "_") < 1 {
		return rawID
	}
	return remainder
}

// MovieFromFilename infers the producing movie from a fragment filename
// stem, taking the text before the "_scene_" marker. It returns the empty
// string when the stem carries no marker.
//
// Inputs:
//   - stem: The fragment filename without directory or extension.
//
// Outputs:
//   - string: The inferred movie id, or "" when none can be inferred.
func MovieFromFilename(stem string) string {
	idx := strings.Index(stem, sceneMarker)
	if idx <= 0 {
		return ""
	}
	return stem[:idx]
}

// MovieFromFragment infers the producing movie from decoded fragment
// content, in priority order: an explicit movie_id on a single-record
// fragment, then the movie_id of the first entry of a list fragment. It
// returns the empty string when the content carries no signal.
//
// Inputs:
//   - content: The decoded fragment, either a map or a list of maps.
//
// Outputs:
//   - string: The inferred movie id, or "" when none can be inferred.
func MovieFromFragment(content interface{}) string {
	switch v := content.(type) {
	case map[string]interface{}:
		if id, ok := v["movie_id"].(string); ok {
			return id
		}
	case []interface{}:
		if len(v) > 0 {
			if first, ok := v[0].(map[string]interface{}); ok {
				if id, ok := first["movie_id"].(string); ok {
					return id
				}
			}
		}
	}
	return ""
}

// BelongsToMovie decides whether a fragment with the given inferred movie
// affiliation belongs to the requested movie. An empty inference is treated
// permissively as belonging to the requested movie, since single-movie
// fixtures routinely omit movie ids entirely.
//
// Inputs:
//   - inferred: The movie inferred from content or filename, possibly "".
//   - requested: The movie the merge run is building.
//
// Outputs:
//   - bool: True when the fragment should be included in the run.
func BelongsToMovie(inferred string, requested string) bool {
	return inferred == "" || inferred == requested
}
