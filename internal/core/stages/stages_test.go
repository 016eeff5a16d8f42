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

// Package stages_test contains unit tests for the deterministic enrichment
// stages: safety and quality flag derivation, the mock summarizer, and the
// face/actor pipeline with its embedding database.
package stages_test

import (
	"path/filepath"
	"testing"

	"github.com/cinemeta/scenemerge/internal/core/model"
	"github.com/cinemeta/scenemerge/internal/core/stages"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAnalyzeSafetySignals verifies that explicit upstream signals drive the
// flags with their documented confidences.
func TestAnalyzeSafetySignals(t *testing.T) {
	fragment := stages.AnalyzeSafety(model.SceneRecord{
		"profanity_present": true,
		"violence_level":    "graphic fight",
		"nudity_present":    false,
		"drug_use_present":  true,
	})

	flags := fragment["safety_flags"].(map[string]interface{})
	assert.Equal(t, true, flags["strong_language"])
	assert.Equal(t, true, flags["violence"])
	assert.Equal(t, false, flags["nudity"])
	assert.Equal(t, true, flags["drug_use"])

	conf := fragment.Confidences()
	assert.Equal(t, 0.9, conf["strong_language"])
	assert.Equal(t, 0.95, conf["violence"])
	assert.Equal(t, 0.85, conf["drug_use"])
	// Explicit false nudity carries no detector signal; fallback applies.
	assert.Equal(t, 0.1, conf["nudity"])
	assert.Equal(t, []string{"mock_scene_safety"}, fragment.ProvenanceFor("nudity"))
}

// TestAnalyzeSafetyDefaults verifies the low-confidence negative defaults on
// a scene carrying no safety signals at all.
func TestAnalyzeSafetyDefaults(t *testing.T) {
	fragment := stages.AnalyzeSafety(model.SceneRecord{"scene_id": "scene_0001"})

	flags := fragment["safety_flags"].(map[string]interface{})
	for _, flag := range []string{"violence", "nudity", "drug_use", "strong_language"} {
		assert.Equal(t, false, flags[flag])
		assert.Equal(t, 0.1, fragment.Confidences()[flag])
	}
}

// TestAnalyzeQualityBitrate verifies the bitrate drop threshold and its
// asymmetric confidences.
func TestAnalyzeQualityBitrate(t *testing.T) {
	low := stages.AnalyzeQuality(model.SceneRecord{"bitrate": 320.0})
	flags := low["quality_flags"].(map[string]interface{})
	assert.Equal(t, true, flags["bitrate_drop_detected"])
	assert.Equal(t, 0.9, low.Confidences()["bitrate_drop_detected"])

	high := stages.AnalyzeQuality(model.SceneRecord{"bitrate": 4500.0})
	flags = high["quality_flags"].(map[string]interface{})
	assert.Equal(t, false, flags["bitrate_drop_detected"])
	assert.Equal(t, 0.8, high.Confidences()["bitrate_drop_detected"])
}

// TestAnalyzeQualityExplicitFlags verifies that upstream frame detections
// pass through with high confidence.
func TestAnalyzeQualityExplicitFlags(t *testing.T) {
	fragment := stages.AnalyzeQuality(model.SceneRecord{
		"black_frames_detected": true,
		"flash_frames_detected": false,
	})

	flags := fragment["quality_flags"].(map[string]interface{})
	assert.Equal(t, true, flags["black_frames_detected"])
	assert.Equal(t, false, flags["flash_frames_detected"])
	assert.Equal(t, 0.95, fragment.Confidences()["black_frames_detected"])
	assert.Equal(t, 0.95, fragment.Confidences()["flash_frames_detected"])
	// No bitrate signal: fallback.
	assert.Equal(t, 0.1, fragment.Confidences()["bitrate_drop_detected"])
}

// TestMockSummarizerComposition verifies the summary composed from dialogue,
// character and object signals, and the deduplicated keyword list.
func TestMockSummarizerComposition(t *testing.T) {
	fragment := stages.MockSummarizer{}.Summarize(model.SceneRecord{
		"dialogue_text": []interface{}{
			map[string]interface{}{"speaker": "Jack", "line": "Get in the car."},
			map[string]interface{}{"speaker": "Eddie", "line": "Where to?"},
		},
		"characters": []interface{}{
			map[string]interface{}{"name": "Jack"},
			map[string]interface{}{"name": "Eddie"},
		},
		"objects": []interface{}{
			map[string]interface{}{"type": "car"},
			map[string]interface{}{"type": "briefcase"},
		},
		"safety_flags": map[string]interface{}{"violence": true},
	})

	summary := fragment["scene_summary"].(string)
	assert.Contains(t, summary, "Dialogue: Get in the car. Where to?")
	assert.Contains(t, summary, "Characters: Jack, Eddie")
	assert.Contains(t, summary, "Objects: car, briefcase")
	assert.Contains(t, summary, "Content note: violent content")

	keywords := fragment["keywords_auto_generated"].([]interface{})
	assert.Equal(t, []interface{}{"Jack", "Eddie", "car", "briefcase", "violence"}, keywords)
	assert.Equal(t, 0.85, fragment.Confidences()["scene_summary.dialogue"])
}

// TestMockSummarizerFallback verifies the fixed fallback sentence for a
// scene with no usable signals.
func TestMockSummarizerFallback(t *testing.T) {
	fragment := stages.MockSummarizer{}.Summarize(model.SceneRecord{"scene_id": "scene_0001"})

	assert.Equal(t, "No salient dialogue or visual cues detected.", fragment["scene_summary"])
	assert.Equal(t, 0.2, fragment.Confidences()["scene_summary.fallback"])
	assert.Equal(t, []string{"vlm_fallback"}, fragment.ProvenanceFor("scene_summary"))
}

// TestFaceTrackerDeterminism verifies that tracking the same video path
// twice yields identical tracks, and that maxFrames caps the sightings.
func TestFaceTrackerDeterminism(t *testing.T) {
	tracker := stages.FaceTracker{}

	first := tracker.Track("gs://bucket/midnight_run.mp4", 30)
	second := tracker.Track("gs://bucket/midnight_run.mp4", 30)
	assert.Equal(t, first, second)
	require.NotEmpty(t, first)
	assert.LessOrEqual(t, len(first), 2)

	capped := tracker.Track("gs://bucket/midnight_run.mp4", 3)
	for _, track := range capped {
		assert.Equal(t, 3, len(track.Frames))
	}
}

// TestActorDBMatching verifies cosine matching against the registered cast,
// the unknown fallback below threshold, and the dimension guard.
func TestActorDBMatching(t *testing.T) {
	db := stages.NewActorDB(3)
	require.NoError(t, db.AddActor("Robert", []float64{1, 0, 0}, nil))
	require.NoError(t, db.AddActor("Charles", []float64{0, 1, 0}, nil))

	match := db.FindBest([]float64{0.9, 0.1, 0}, 0.7)
	assert.True(t, match.Matched)
	assert.Equal(t, "Robert", match.Name)

	// Orthogonal to everything registered: unknown.
	match = db.FindBest([]float64{0, 0, 1}, 0.7)
	assert.False(t, match.Matched)
	assert.Equal(t, "unknown", match.Name)

	// Wrong dimension is rejected at registration.
	assert.Error(t, db.AddActor("Dennis", []float64{1, 0}, nil))
}

// TestActorDBPersistence verifies the save/load round trip.
func TestActorDBPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "actors.json")
	db := stages.NewActorDB(3)
	require.NoError(t, db.AddActor("Robert", []float64{1, 0, 0}, map[string]interface{}{"role": "Jack"}))
	require.NoError(t, db.Save(path))

	loaded, err := stages.LoadActorDB(path)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Dim)

	match := loaded.FindBest([]float64{1, 0, 0}, 0.7)
	assert.True(t, match.Matched)
	assert.Equal(t, "Robert", match.Name)
}

// TestFaceActorPipelineFragment verifies the characters fragment shape:
// per-name aggregation, summed screen time, and per-name confidences.
func TestFaceActorPipelineFragment(t *testing.T) {
	pipeline := stages.NewFaceActorPipeline(3)

	fragment := pipeline.ProcessVideo("gs://bucket/midnight_run.mp4", 30)
	characters, ok := fragment["characters"].([]interface{})
	require.True(t, ok)
	require.NotEmpty(t, characters)

	// With an empty database every track resolves to "unknown", so the
	// aggregation collapses to a single entry.
	assert.Equal(t, 1, len(characters))
	entry := characters[0].(map[string]interface{})
	assert.Equal(t, "unknown", entry["name"])
	assert.Greater(t, entry["screen_time"].(float64), 0.0)

	confByName := fragment.Confidences()["characters"].(map[string]interface{})
	assert.Contains(t, confByName, "unknown")
	assert.Equal(t, []string{"face_tracker"}, fragment.ProvenanceFor("characters"))
}

// TestActorDBTieBreaksByName verifies that two actors with identical
// embeddings resolve to the alphabetically first name, consistently across
// repeated lookups.
func TestActorDBTieBreaksByName(t *testing.T) {
	db := stages.NewActorDB(3)
	require.NoError(t, db.AddActor("Zeke", []float64{1, 0, 0}, nil))
	require.NoError(t, db.AddActor("Anna", []float64{1, 0, 0}, nil))

	for i := 0; i < 20; i++ {
		match := db.FindBest([]float64{1, 0, 0}, 0.7)
		assert.True(t, match.Matched)
		assert.Equal(t, "Anna", match.Name)
	}
}
