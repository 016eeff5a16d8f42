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

// Package stages holds the deterministic, dependency-free enrichment stages
// that annotate canonical scene records between merge runs: safety flags,
// visual quality flags, scene summaries and face/actor linking. Every stage
// returns a fragment shaped for the fusion engine (values plus embedded
// field confidences and provenance) rather than mutating its input, so a
// stage can be re-run or reordered without side effects.
package stages

import "github.com/cinemeta/scenemerge/internal/core/model"

// Safety source identifiers recorded in fragment provenance.
const (
	SourceSceneSafety      = "scene_safety"
	provProfanityDetector  = "dialogue_profanity_detector"
	provViolenceDetector   = "visual_violence_detector"
	provNudityDetector     = "visual_nudity_detector"
	provDrugDetector       = "visual_drug_detector"
	provMockSafetyFallback = "mock_scene_safety"
)

// AnalyzeSafety derives content-safety flags for one scene. It prefers
// explicit upstream signals (profanity_present, violence_level,
// nudity_present, drug_use_present) and falls back to low-confidence
// negatives for anything unspecified, so the fusion engine can always
// distinguish "checked and clear" from "never checked".
//
// Inputs:
//  1. scene - the scene record under analysis; it is never mutated.
//
// Outputs:
//  1. model.SceneRecord - a fragment with safety_flags plus embedded
//     per-flag confidences and provenance.
func AnalyzeSafety(scene model.SceneRecord) model.SceneRecord {
	flags := map[string]interface{}{
		"violence":        false,
		"nudity":          false,
		"drug_use":        false,
		"strong_language": false,
	}
	confidences := map[string]interface{}{}
	provenance := map[string]interface{}{}

	if profane, ok := scene["profanity_present"].(bool); ok {
		flags["strong_language"] = profane
		if profane {
			confidences["strong_language"] = 0.9
		} else {
			confidences["strong_language"] = 0.2
		}
		provenance["strong_language"] = []string{provProfanityDetector}
	}

	if level, ok := scene["violence_level"].(string); ok {
		switch {
		case containsAny(level, "high", "graphic"):
			flags["violence"] = true
			confidences["violence"] = 0.95
			provenance["violence"] = []string{provViolenceDetector}
		case containsAny(level, "low", "minor"):
			flags["violence"] = false
			confidences["violence"] = 0.4
			provenance["violence"] = []string{provViolenceDetector}
		}
	}

	if nudity, ok := scene["nudity_present"].(bool); ok && nudity {
		flags["nudity"] = true
		confidences["nudity"] = 0.9
		provenance["nudity"] = []string{provNudityDetector}
	}

	if drugs, ok := scene["drug_use_present"].(bool); ok && drugs {
		flags["drug_use"] = true
		confidences["drug_use"] = 0.85
		provenance["drug_use"] = []string{provDrugDetector}
	}

	for flag := range flags {
		if _, ok := confidences[flag]; !ok {
			confidences[flag] = 0.1
			provenance[flag] = []string{provMockSafetyFallback}
		}
	}

	return model.SceneRecord{
		"safety_flags":            flags,
		model.KeyFieldConfidences: confidences,
		model.KeyFieldProvenance:  provenance,
	}
}
