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

package stages

import (
	"strings"

	"github.com/cinemeta/scenemerge/internal/core/model"
)

// Visual quality source identifiers and detection thresholds.
const (
	SourceVisualQuality     = "visual_quality"
	provBlackFrameDetector  = "visual_black_frame_detector"
	provFlashDetector       = "visual_flash_detector"
	provBitrateMonitor      = "bitrate_monitor"
	provMockQualityFallback = "mock_visual_quality"

	// Bitrates below this many kbps count as a drop.
	bitrateDropThresholdKbps = 500.0
)

// AnalyzeQuality derives visual-quality flags for one scene: black frames,
// flash frames and bitrate drops. Explicit upstream booleans are honored
// with high confidence; a numeric bitrate (kbps) drives the drop detector;
// everything else receives a low-confidence negative.
func AnalyzeQuality(scene model.SceneRecord) model.SceneRecord {
	flags := map[string]interface{}{
		"black_frames_detected": false,
		"flash_frames_detected": false,
		"bitrate_drop_detected": false,
	}
	confidences := map[string]interface{}{}
	provenance := map[string]interface{}{}

	if black, ok := scene["black_frames_detected"].(bool); ok {
		flags["black_frames_detected"] = black
		confidences["black_frames_detected"] = 0.95
		provenance["black_frames_detected"] = []string{provBlackFrameDetector}
	}

	if flash, ok := scene["flash_frames_detected"].(bool); ok {
		flags["flash_frames_detected"] = flash
		confidences["flash_frames_detected"] = 0.95
		provenance["flash_frames_detected"] = []string{provFlashDetector}
	}

	if bitrate, ok := asNumber(scene["bitrate"]); ok {
		dropped := bitrate < bitrateDropThresholdKbps
		flags["bitrate_drop_detected"] = dropped
		if dropped {
			confidences["bitrate_drop_detected"] = 0.9
		} else {
			confidences["bitrate_drop_detected"] = 0.8
		}
		provenance["bitrate_drop_detected"] = []string{provBitrateMonitor}
	}

	for flag := range flags {
		if _, ok := confidences[flag]; !ok {
			confidences[flag] = 0.1
			provenance[flag] = []string{provMockQualityFallback}
		}
	}

	return model.SceneRecord{
		"quality_flags":           flags,
		model.KeyFieldConfidences: confidences,
		model.KeyFieldProvenance:  provenance,
	}
}

func asNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func containsAny(s string, subs ...string) bool {
	lower := strings.ToLower(s)
	for _, sub := range subs {
		if strings.Contains(lower, sub) {
			return true
		}
	}
	return false
}
