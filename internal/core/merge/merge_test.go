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

// Package merge_test contains unit tests for the conservative accretive
// merge rules and the master canonical-list builder, running against
// workspaces built in temporary directories.
package merge_test

import (
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/cinemeta/scenemerge/internal/core/merge"
	"github.com/cinemeta/scenemerge/internal/core/model"
	test "github.com/cinemeta/scenemerge/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestApplyNeverDestroys verifies the core conservative guarantee across the
// per-type rules: existing scalars survive, lists extend, objects fill gaps,
// and only null or empty targets accept incoming values.
func TestApplyNeverDestroys(t *testing.T) {
	target := model.SceneRecord{
		"scene_id":      "scene_0001",
		"movie_id":      "serenity",
		"location":      "diner",
		"duration":      45.5,
		"objects":       []interface{}{"car"},
		"safety_flags":  map[string]interface{}{"violence": true},
		"scene_summary": "",
		"shot_type":     nil,
	}
	src := model.SceneRecord{
		"scene_id":      "scene_0099",
		"movie_id":      "heat",
		"location":      "warehouse",
		"duration":      90.0,
		"objects":       []interface{}{"car", "truck"},
		"safety_flags":  map[string]interface{}{"violence": false, "nudity": false},
		"scene_summary": "A tense exchange.",
		"shot_type":     "wide",
	}

	merge.Apply(target, src)

	// Identity fields are never touched.
	assert.Equal(t, "scene_0001", target["scene_id"])
	assert.Equal(t, "serenity", target["movie_id"])
	// Existing scalar data survives.
	assert.Equal(t, "diner", target["location"])
	assert.Equal(t, 45.5, target["duration"])
	// Lists extend with missing items only.
	assert.Equal(t, []interface{}{"car", "truck"}, target["objects"])
	// Objects shallow-merge, existing keys winning.
	flags := target["safety_flags"].(map[string]interface{})
	assert.Equal(t, true, flags["violence"])
	assert.Equal(t, false, flags["nudity"])
	// Empty and null targets accept the incoming value.
	assert.Equal(t, "A tense exchange.", target["scene_summary"])
	assert.Equal(t, "wide", target["shot_type"])
}

// TestApplyStructuralListDedup verifies that equivalent objects arriving
// from different fragments do not duplicate, regardless of key order.
func TestApplyStructuralListDedup(t *testing.T) {
	target := model.SceneRecord{
		"dialogue_text": []interface{}{
			map[string]interface{}{"speaker": "Jack", "line": "Get in."},
		},
	}
	src := model.SceneRecord{
		"dialogue_text": []interface{}{
			map[string]interface{}{"line": "Get in.", "speaker": "Jack"},
			map[string]interface{}{"speaker": "Eddie", "line": "Where to?"},
		},
	}

	merge.Apply(target, src)

	list := target["dialogue_text"].([]interface{})
	assert.Equal(t, 2, len(list))
}

// TestBuildCanonicalList runs the master builder over a full fixture
// workspace and verifies scene count, ordering, fragment accretion across
// id conventions, movie isolation, and identity stamping.
func TestBuildCanonicalList(t *testing.T) {
	root := t.TempDir()
	test.WriteTestWorkspace(t, root)
	builder := merge.NewBuilder(test.NewTestLayout(root), test.TestPhases())

	scenes, provenance, err := builder.Build(test.TestMovie, "2026-01-02T03:04:05Z")
	require.NoError(t, err)

	// The timing table fixes count and order.
	require.Equal(t, 3, len(scenes))
	assert.Equal(t, "scene_0001", scenes[0].SceneID())
	assert.Equal(t, "scene_0002", scenes[1].SceneID())
	assert.Equal(t, "scene_0003", scenes[2].SceneID())

	// Fragments landed regardless of their id convention.
	assert.Equal(t, "diner", scenes[0]["location"])
	assert.Equal(t, true, scenes[0]["profanity_present"])
	assert.Equal(t, "low_key", scenes[0]["lighting_style"])
	assert.Equal(t, "natural", scenes[1]["lighting_style"])
	assert.Equal(t, []interface{}{"car", "handcuffs"}, scenes[1]["objects"])

	// The foreign movie's fragment did not leak in.
	assert.NotEqual(t, "bank", scenes[0]["location"])

	// Identity and timestamps stamped on every record.
	for _, scene := range scenes {
		assert.Equal(t, test.TestMovie, scene.MovieID())
		assert.Equal(t, test.TestMovie, scene["title_name"])
		assert.Equal(t, "2026-01-02T03:04:05Z", scene["metadata_generated_at"])
	}

	// Provenance records presence for contributed fields only.
	assert.True(t, provenance["scene_0001"]["location"])
	assert.True(t, provenance["scene_0002"]["objects"])
	assert.False(t, provenance["scene_0003"]["location"])
}

// TestBuildSceneWithoutFragments verifies that a scene present only in the
// timing table still yields a full-shape template record.
func TestBuildSceneWithoutFragments(t *testing.T) {
	root := t.TempDir()
	test.WriteTestTimings(t, root)
	builder := merge.NewBuilder(test.NewTestLayout(root), test.TestPhases())

	scenes, _, err := builder.Build(test.TestMovie, "2026-01-02T03:04:05Z")
	require.NoError(t, err)
	require.Equal(t, 3, len(scenes))

	bare := scenes[2]
	assert.Equal(t, 92.0, bare["start_time"])
	assert.Equal(t, 28.0, bare["duration"])
	assert.Equal(t, "", bare["scene_summary"])
	assert.Equal(t, []interface{}{}, bare["characters"])
	assert.Nil(t, bare["importance_score"])
}

// TestBuildMissingTimings verifies that an absent timing table is fatal and
// identifiable through errors.Is.
func TestBuildMissingTimings(t *testing.T) {
	builder := merge.NewBuilder(test.NewTestLayout(t.TempDir()), test.TestPhases())
	_, _, err := builder.Build("no_such_movie", "2026-01-02T03:04:05Z")
	assert.True(t, errors.Is(err, merge.ErrMissingTimings))
}

// TestBuildIsIdempotent verifies that two runs over unchanged inputs yield
// identical scene lists when given the same run timestamp.
func TestBuildIsIdempotent(t *testing.T) {
	root := t.TempDir()
	test.WriteTestWorkspace(t, root)
	builder := merge.NewBuilder(test.NewTestLayout(root), test.TestPhases())

	first, _, err := builder.Build(test.TestMovie, "2026-01-02T03:04:05Z")
	require.NoError(t, err)
	second, _, err := builder.Build(test.TestMovie, "2026-01-02T03:04:05Z")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

// TestWriterRoundTrip verifies the three persisted artifacts: the canonical
// list, the provenance side-file, and the wrapped complete-schema document,
// all with two-space indentation.
func TestWriterRoundTrip(t *testing.T) {
	root := t.TempDir()
	test.WriteTestWorkspace(t, root)
	layout := test.NewTestLayout(root)
	builder := merge.NewBuilder(layout, test.TestPhases())
	writer := merge.Writer{Layout: layout}

	scenes, provenance, err := builder.Build(test.TestMovie, "2026-01-02T03:04:05Z")
	require.NoError(t, err)

	canonicalPath, err := writer.WriteCanonical(test.TestMovie, scenes)
	require.NoError(t, err)
	provenancePath, err := writer.WriteProvenance(test.TestMovie, provenance)
	require.NoError(t, err)
	documentPath, err := writer.WriteDocument(test.TestMovie, scenes, "2026-01-02T03:04:05Z")
	require.NoError(t, err)

	// The canonical list reads back as the same records.
	raw, err := os.ReadFile(canonicalPath)
	require.NoError(t, err)
	var readBack []model.SceneRecord
	require.NoError(t, json.Unmarshal(raw, &readBack))
	assert.Equal(t, len(scenes), len(readBack))
	assert.Equal(t, "scene_0001", readBack[0].SceneID())
	// Two-space indentation on disk.
	assert.Contains(t, string(raw), "\n  {")

	// The provenance side-file holds one entry per scene.
	raw, err = os.ReadFile(provenancePath)
	require.NoError(t, err)
	var readProv model.ProvenanceMap
	require.NoError(t, json.Unmarshal(raw, &readProv))
	assert.Equal(t, 3, len(readProv))

	// The wrapper document carries the envelope fields.
	raw, err = os.ReadFile(documentPath)
	require.NoError(t, err)
	var doc model.CanonicalDocument
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, test.TestMovie, doc.Movie)
	assert.Equal(t, 3, doc.TotalScenes)
	assert.Equal(t, "2026-01-02T03:04:05Z", doc.GeneratedAt)
	assert.Equal(t, 3, len(doc.Scenes))
}

// TestLoadTimingsRoundTrip verifies that a timing table written in the
// wrapper shape reads back as its scene rows, in order.
func TestLoadTimingsRoundTrip(t *testing.T) {
	root := t.TempDir()
	layout := test.NewTestLayout(root)

	table := model.GetExampleTimingTable()
	test.WriteJSON(t, layout.TimingsPath(table.Movie), table)

	timings, err := layout.LoadTimings(table.Movie)
	require.NoError(t, err)
	require.Equal(t, len(table.Scenes), len(timings))
	assert.Equal(t, "scene_0001", timings[0].SceneID)
	assert.Equal(t, 5.5, timings[0].Duration)
	assert.Equal(t, "scene_0002", timings[1].SceneID)
	assert.Equal(t, 12.0, timings[1].EndTime)
}

// TestApplyLeavesSourcesUntouched verifies that fragments are read-only to
// the merge: values a fragment contributed are copied into the target, so a
// later Apply cannot write through into an earlier fragment's own maps.
func TestApplyLeavesSourcesUntouched(t *testing.T) {
	target := model.SceneRecord{"scene_id": "scene_0001"}
	first := model.SceneRecord{
		"field_confidences": map[string]interface{}{"location": 0.8},
		"objects":           []interface{}{"car"},
	}
	second := model.SceneRecord{
		"field_confidences": map[string]interface{}{"mood": 0.6},
		"objects":           []interface{}{"briefcase"},
	}
	pristineFirst, err := json.Marshal(first)
	require.NoError(t, err)
	pristineSecond, err := json.Marshal(second)
	require.NoError(t, err)

	merge.Apply(target, first)
	merge.Apply(target, second)

	afterFirst, err := json.Marshal(first)
	require.NoError(t, err)
	afterSecond, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(pristineFirst), string(afterFirst))
	assert.Equal(t, string(pristineSecond), string(afterSecond))

	// Both contributions still landed on the target.
	conf, ok := target["field_confidences"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 0.8, conf["location"])
	assert.Equal(t, 0.6, conf["mood"])
	assert.Equal(t, []interface{}{"car", "briefcase"}, target["objects"])
}
