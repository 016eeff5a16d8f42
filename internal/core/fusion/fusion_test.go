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

// Package fusion_test contains unit tests for the confidence-aware fusion
// engine: scalar conflict resolution, list union, the character name
// aggregation rule, and the determinism guarantees of Fuse.
package fusion_test

import (
	"testing"

	"github.com/cinemeta/scenemerge/internal/core/fusion"
	"github.com/cinemeta/scenemerge/internal/core/model"
	"github.com/stretchr/testify/assert"
)

// TestFuseHigherConfidenceWins verifies that when two contributions disagree
// on a scalar field, the one carrying the higher confidence supplies the
// final value, and that both sources appear in the field's provenance.
func TestFuseHigherConfidenceWins(t *testing.T) {
	fused := fusion.Fuse([]model.SourceContribution{
		{
			Source: "visual_analysis",
			Record: model.SceneRecord{
				"scene_id":          "scene_0001",
				"location":          "warehouse",
				"field_confidences": map[string]interface{}{"location": 0.6},
			},
		},
		{
			Source: "context_analysis",
			Record: model.SceneRecord{
				"scene_id":          "scene_0001",
				"location":          "dockyard",
				"field_confidences": map[string]interface{}{"location": 0.9},
			},
		},
	})

	assert.Equal(t, "dockyard", fused["location"])
	assert.Equal(t, 0.9, fused.Confidences()["location"])
	assert.Equal(t, []string{"visual_analysis", "context_analysis"}, fused.ProvenanceFor("location"))
}

// TestFuseFirstWinsWithoutConfidence verifies the deterministic tie-break:
// when no contribution supplies a confidence for a conflicting scalar, the
// first value in contribution order wins.
func TestFuseFirstWinsWithoutConfidence(t *testing.T) {
	fused := fusion.Fuse([]model.SourceContribution{
		{Source: "a", Record: model.SceneRecord{"scene_id": "scene_0001", "time_of_day": "dusk"}},
		{Source: "b", Record: model.SceneRecord{"scene_id": "scene_0001", "time_of_day": "night"}},
	})

	assert.Equal(t, "dusk", fused["time_of_day"])
	// No confidence was supplied, so none is fabricated.
	_, has := fused.ConfidenceFor("time_of_day")
	assert.False(t, has)
}

// TestFuseNullNeverWins verifies that a null value never displaces a real
// one, regardless of the confidence attached to the null.
func TestFuseNullNeverWins(t *testing.T) {
	fused := fusion.Fuse([]model.SourceContribution{
		{
			Source: "a",
			Record: model.SceneRecord{
				"scene_id":          "scene_0001",
				"shot_type":         nil,
				"field_confidences": map[string]interface{}{"shot_type": 0.99},
			},
		},
		{
			Source: "b",
			Record: model.SceneRecord{
				"scene_id":          "scene_0001",
				"shot_type":         "close_up",
				"field_confidences": map[string]interface{}{"shot_type": 0.3},
			},
		},
	})

	assert.Equal(t, "close_up", fused["shot_type"])
	// Only the contributor of a real value enters the provenance.
	assert.Equal(t, []string{"b"}, fused.ProvenanceFor("shot_type"))
}

// TestFuseListUnion verifies that plain list fields take the deduplicated
// union of all contributions in first-seen order, with the maximum supplied
// confidence.
func TestFuseListUnion(t *testing.T) {
	fused := fusion.Fuse([]model.SourceContribution{
		{
			Source: "object_detection",
			Record: model.SceneRecord{
				"scene_id":          "scene_0001",
				"objects":           []interface{}{"car", "person"},
				"field_confidences": map[string]interface{}{"objects": 0.7},
			},
		},
		{
			Source: "context_analysis",
			Record: model.SceneRecord{
				"scene_id":          "scene_0001",
				"objects":           []interface{}{"person", "briefcase"},
				"field_confidences": map[string]interface{}{"objects": 0.5},
			},
		},
	})

	assert.Equal(t, []interface{}{"car", "person", "briefcase"}, fused["objects"])
	assert.Equal(t, 0.7, fused.Confidences()["objects"])
}

// TestFuseCharacterAggregation verifies the named-item rule for the
// characters field: duplicate names collapse to one entry, screen_time sums
// across duplicates, and confidence is tracked per name as the maximum seen.
func TestFuseCharacterAggregation(t *testing.T) {
	fused := fusion.Fuse([]model.SourceContribution{
		{
			Source: "face_tracker",
			Record: model.SceneRecord{
				"scene_id": "scene_0001",
				"characters": []interface{}{
					map[string]interface{}{"name": "Alice", "screen_time": 3.0},
					map[string]interface{}{"name": "Bob", "screen_time": 2.0},
				},
				"field_confidences": map[string]interface{}{"characters": 0.8},
			},
		},
		{
			Source: "dialogue_analysis",
			Record: model.SceneRecord{
				"scene_id": "scene_0001",
				"characters": []interface{}{
					map[string]interface{}{"name": "Alice", "screen_time": 5.0},
				},
				"field_confidences": map[string]interface{}{"characters": 0.6},
			},
		},
	})

	characters, ok := fused["characters"].([]interface{})
	assert.True(t, ok)
	assert.Equal(t, 2, len(characters))

	alice := characters[0].(map[string]interface{})
	bob := characters[1].(map[string]interface{})
	assert.Equal(t, "Alice", alice["name"])
	assert.Equal(t, 8.0, alice["screen_time"])
	assert.Equal(t, "Bob", bob["name"])
	assert.Equal(t, 2.0, bob["screen_time"])

	// Per-name confidence map: maximum contribution-level confidence seen.
	confByName := fused.Confidences()["characters"].(map[string]interface{})
	assert.Equal(t, 0.8, confByName["Alice"])
	assert.Equal(t, 0.8, confByName["Bob"])
}

// TestFuseIdentityFieldsImmutable verifies that scene_id and movie_id take
// the first non-empty value in contribution order and are never replaced,
// even by higher-confidence later contributions.
func TestFuseIdentityFieldsImmutable(t *testing.T) {
	fused := fusion.Fuse([]model.SourceContribution{
		{Source: "a", Record: model.SceneRecord{"scene_id": "scene_0001", "movie_id": ""}},
		{Source: "b", Record: model.SceneRecord{"scene_id": "scene_0099", "movie_id": "serenity"}},
	})

	assert.Equal(t, "scene_0001", fused["scene_id"])
	// The empty movie_id did not count; the first non-empty one did.
	assert.Equal(t, "serenity", fused["movie_id"])
}

// TestFuseIsDeterministic verifies that fusing the same contribution list
// twice yields structurally identical output, and that the inputs are never
// mutated by the fold.
func TestFuseIsDeterministic(t *testing.T) {
	contributions := []model.SourceContribution{
		{Source: "a", Record: model.SceneRecord{"scene_id": "scene_0001", "objects": []interface{}{"car"}}},
		{Source: "b", Record: model.SceneRecord{"scene_id": "scene_0001", "objects": []interface{}{"truck"}, "location": "street"}},
	}

	first := fusion.Fuse(contributions)
	second := fusion.Fuse(contributions)

	assert.Equal(t, first, second)
	// The second contribution still holds exactly its original fields.
	assert.Equal(t, 3, len(contributions[1].Record))
}
