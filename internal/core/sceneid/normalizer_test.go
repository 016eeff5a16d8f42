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

// Package sceneid_test contains unit tests for the scene id normalizer:
// qualification, localization, and the movie-affiliation heuristics applied
// to fragment filenames and contents.
package sceneid_test

import (
	"testing"

	"github.com/cinemeta/scenemerge/internal/core/sceneid"
	"github.com/stretchr/testify/assert"
)

// TestQualify verifies prefixing of local ids and the idempotence of
// qualifying an already-qualified id.
func TestQualify(t *testing.T) {
	assert.Equal(t, "serenity_scene_0001", sceneid.Qualify("scene_0001", "serenity"))
	// Already qualified: unchanged.
	assert.Equal(t, "serenity_scene_0001", sceneid.Qualify("serenity_scene_0001", "serenity"))
	// No movie: unchanged.
	assert.Equal(t, "scene_0001", sceneid.Qualify("scene_0001", ""))
}

// TestLocalize verifies prefix stripping, including the guard that keeps ids
// whose remainder no longer looks like a scene id.
func TestLocalize(t *testing.T) {
	assert.Equal(t, "scene_0001", sceneid.Localize("serenity_scene_0001", "serenity"))
	// Already local: unchanged.
	assert.Equal(t, "scene_0001", sceneid.Localize("scene_0001", "serenity"))
	// Underscored movie names strip cleanly when the remainder is scene-like.
	assert.Equal(t, "scene_0002", sceneid.Localize("midnight_run_scene_0002", "midnight_run"))
	// Stripping would leave a single token; the raw id is kept.
	assert.Equal(t, "serenity_opening", sceneid.Localize("serenity_opening", "serenity"))
}

// TestMovieFromFilename verifies movie inference from fragment filename stems.
func TestMovieFromFilename(t *testing.T) {
	assert.Equal(t, "serenity", sceneid.MovieFromFilename("serenity_scene_0001"))
	assert.Equal(t, "midnight_run", sceneid.MovieFromFilename("midnight_run_scene_0002"))
	// No marker, nothing to infer.
	assert.Equal(t, "", sceneid.MovieFromFilename("fragment_batch_7"))
	// Marker at position zero carries no prefix.
	assert.Equal(t, "", sceneid.MovieFromFilename("_scene_0001"))
}

// TestMovieFromFragment verifies movie inference from decoded fragment
// content for both single-record and list fragments.
func TestMovieFromFragment(t *testing.T) {
	single := map[string]interface{}{"scene_id": "scene_0001", "movie_id": "serenity"}
	assert.Equal(t, "serenity", sceneid.MovieFromFragment(single))

	list := []interface{}{
		map[string]interface{}{"scene_id": "scene_0001", "movie_id": "heat"},
		map[string]interface{}{"scene_id": "scene_0002"},
	}
	assert.Equal(t, "heat", sceneid.MovieFromFragment(list))

	// No signal anywhere.
	assert.Equal(t, "", sceneid.MovieFromFragment(map[string]interface{}{"scene_id": "scene_0001"}))
	assert.Equal(t, "", sceneid.MovieFromFragment("not a fragment"))
}

// TestBelongsToMovie verifies the permissive affiliation rule: an absent
// inference is treated as belonging to the requested movie.
func TestBelongsToMovie(t *testing.T) {
	assert.True(t, sceneid.BelongsToMovie("serenity", "serenity"))
	assert.True(t, sceneid.BelongsToMovie("", "serenity"))
	assert.False(t, sceneid.BelongsToMovie("heat", "serenity"))
}
