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
// This file provides the empty-scene template: the full canonical field set
// with neutral defaults. The master merge builder starts every canonical
// record from this template so that all scenes of a movie share an identical
// shape regardless of which phases produced data for them.
package model

// NewSceneTemplate returns a fresh scene record with every canonical field
// present at its neutral default: empty strings for text, empty lists for
// arrays, nil for numbers and booleans whose absence is meaningful.
//
// Inputs:
//   - sceneID: The movie-local scene id, e.g. "scene_0001".
//   - generatedAt: The run timestamp stamped on the record (RFC 3339). The
//     builder passes one timestamp per run so all records of a run agree.
//
// Outputs:
//   - SceneRecord: The initialized template record.
func NewSceneTemplate(sceneID string, generatedAt string) SceneRecord {
	return SceneRecord{
		KeySceneID:   sceneID,
		KeyMovieID:   nil,
		KeyTitleName: nil,

		"start_time": nil,
		"end_time":   nil,
		"duration":   nil,

		"scene_summary":            "",
		"scene_type":               "",
		"scene_category_secondary": "",

		"importance_score":       nil,
		"scene_priority":         "",
		"scene_priority_score":   nil,
		"viewer_attention_score": nil,
		"key_plot_point":         nil,

		"characters":                  []interface{}{},
		"character_dominance_ranking": []interface{}{},

		"dialogue_text":       []interface{}{},
		"dialogue_speed_wpm":  nil,
		"audio_clarity_score": nil,
		"profanity_present":   nil,

		"location":       "",
		"time_of_day":    "",
		"indoor_outdoor": "",

		"objects":             []interface{}{},
		"actions":             []interface{}{},
		"background_activity": []interface{}{},

		"resolution":             "",
		"aspect_ratio":           nil,
		"motion_intensity_score": nil,
		"camera_movement":        "",
		"lighting_style":         "",
		"color_tone":             "",
		"shot_type":              "",

		"emotion_arousal_score":          nil,
		"emotion_scene_variation_score":  nil,
		"audio_activity_score":           nil,

		"vfx_presence":          nil,
		"cg_characters_present": nil,

		"ai_confidence_score": nil,
		"ai_model_version":    "",
		KeyGeneratedAt:        generatedAt,
		"notes":               "",
	}
}
