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

// Package model defines the data structures for the scene merge pipeline.
// This file provides factory functions for hardcoded example instances.
// They serve two purposes: tests use them as ready-made fixtures, and the
// live VLM summary stage embeds the example record in its prompt as a
// few-shot sample of the expected JSON output shape.
package model

// GetExampleScene returns a small, fully-populated scene record in the shape
// analysis phases are expected to emit, including the embedded confidence
// and provenance maps.
//
// Outputs:
//   - SceneRecord: A hardcoded example record.
func GetExampleScene() SceneRecord {
	return SceneRecord{
		KeySceneID:      "scene_0001",
		KeyMovieID:      "serenity",
		"start_time":    0.0,
		"end_time":      5.5,
		"duration":      5.5,
		"scene_summary": "Mal and River flee through a crowded market while Alliance soldiers close in.",
		"scene_type":    "action",
		"location":      "market",
		"dialogue_text": []interface{}{
			map[string]interface{}{"speaker": "Mal", "line": "I aim to misbehave."},
		},
		"objects": []interface{}{
			map[string]interface{}{"type": "crate"},
			map[string]interface{}{"type": "rifle"},
		},
		"characters": []interface{}{
			map[string]interface{}{"name": "Mal", "screen_time": 4.0},
			map[string]interface{}{"name": "River", "screen_time": 3.5},
		},
		KeyFieldConfidences: map[string]interface{}{
			"scene_summary": 0.82,
			"objects":       0.74,
			"characters": map[string]interface{}{
				"Mal":   0.91,
				"River": 0.88,
			},
		},
		KeyFieldProvenance: map[string]interface{}{
			"scene_summary": []interface{}{"vlm_summary"},
			"objects":       []interface{}{"object_detector"},
			"characters":    []interface{}{"face_actor_pipeline"},
		},
	}
}

// GetExampleTimingTable returns a two-scene timing table for one movie, the
// minimal authoritative input the master merge requires.
//
// Outputs:
//   - *SceneTimingTable: A hardcoded timing table.
func GetExampleTimingTable() *SceneTimingTable {
	return &SceneTimingTable{
		Movie: "serenity",
		Scenes: []SceneTiming{
			{SceneID: "scene_0001", StartTime: 0.0, EndTime: 5.5, Duration: 5.5},
			{SceneID: "scene_0002", StartTime: 5.5, EndTime: 12.0, Duration: 6.5},
		},
	}
}
