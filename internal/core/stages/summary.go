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
	"fmt"
	"strings"

	"github.com/cinemeta/scenemerge/internal/core/model"
)

// Summarizer produces a scene summary fragment from one scene record. The
// deterministic MockSummarizer below is the default; a generative-model
// backed implementation can be substituted where live inference is wanted.
type Summarizer interface {
	Summarize(scene model.SceneRecord) model.SceneRecord
}

// Summary source identifiers recorded in fragment provenance.
const (
	SourceVLMSummary    = "vlm_summary"
	provDialogueEncoder = "vlm_dialogue_encoder"
	provVisualEncoder   = "vlm_visual_encoder"
	provObjectEncoder   = "vlm_object_encoder"
	provQualityDetector = "visual_quality_detector"
	provSafetyDetector  = "scene_safety"
	provSummaryFallback = "vlm_fallback"
)

// MockSummarizer is the deterministic summarizer: it composes a summary
// from whatever dialogue, character, object, quality and safety signals the
// scene already carries, without any model call.
type MockSummarizer struct{}

// Summarize builds the scene summary fragment.
//
// Outputs:
//  1. model.SceneRecord - a fragment with scene_summary and
//     keywords_auto_generated plus embedded confidences and provenance.
func (MockSummarizer) Summarize(scene model.SceneRecord) model.SceneRecord {
	var parts []string
	var keywords []string
	confidences := map[string]interface{}{}
	summaryProv := []string{}

	if snippet := dialogueSnippet(scene["dialogue_text"]); snippet != "" {
		parts = append(parts, "Dialogue: "+snippet)
		confidences["scene_summary.dialogue"] = 0.85
		summaryProv = append(summaryProv, provDialogueEncoder)
	}

	if names := characterNames(scene["characters"]); len(names) > 0 {
		parts = append(parts, "Characters: "+strings.Join(firstN(names, 3), ", "))
		keywords = append(keywords, firstN(names, 5)...)
		confidences["scene_summary.characters"] = 0.8
		summaryProv = append(summaryProv, provVisualEncoder)
	}

	if types := objectTypes(scene["objects"]); len(types) > 0 {
		parts = append(parts, "Objects: "+strings.Join(types, ", "))
		keywords = append(keywords, types...)
		confidences["scene_summary.objects"] = 0.75
		summaryProv = append(summaryProv, provObjectEncoder)
	}

	if flagSet(scene["quality_flags"], "black_frames_detected") {
		parts = append(parts, "Visual issues: black frames detected")
		keywords = append(keywords, "black_frames")
		confidences["scene_summary.visual_quality"] = 0.7
		summaryProv = append(summaryProv, provQualityDetector)
	}
	if flagSet(scene["safety_flags"], "violence") {
		parts = append(parts, "Content note: violent content")
		keywords = append(keywords, "violence")
		confidences["scene_summary.safety"] = 0.9
		summaryProv = append(summaryProv, provSafetyDetector)
	}

	summary := strings.Join(parts, " | ")
	if summary == "" {
		summary = "No salient dialogue or visual cues detected."
		confidences["scene_summary.fallback"] = 0.2
		summaryProv = append(summaryProv, provSummaryFallback)
	}

	return model.SceneRecord{
		"scene_summary":           summary,
		"keywords_auto_generated": toInterfaceList(dedupe(keywords)),
		model.KeyFieldConfidences: confidences,
		model.KeyFieldProvenance: map[string]interface{}{
			"scene_summary": summaryProv,
		},
	}
}

// dialogueSnippet joins the first few dialogue lines into one string.
func dialogueSnippet(v interface{}) string {
	lines, ok := v.([]interface{})
	if !ok {
		return ""
	}
	var out []string
	for _, item := range lines {
		if len(out) == 3 {
			break
		}
		entry, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		if line, ok := entry["line"].(string); ok && line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, " ")
}

// characterNames extracts names from a characters list that may hold plain
// strings or {"name": ...} objects.
func characterNames(v interface{}) []string {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	var names []string
	for _, item := range items {
		switch c := item.(type) {
		case string:
			names = append(names, c)
		case map[string]interface{}:
			if name, ok := c["name"].(string); ok && name != "" {
				names = append(names, name)
			}
		}
	}
	return names
}

func objectTypes(v interface{}) []string {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	var types []string
	for _, item := range firstNAny(items, 5) {
		if obj, ok := item.(map[string]interface{}); ok {
			if t, ok := obj["type"].(string); ok && t != "" {
				types = append(types, t)
			}
		}
	}
	return types
}

func flagSet(v interface{}, flag string) bool {
	flags, ok := v.(map[string]interface{})
	if !ok {
		return false
	}
	set, _ := flags[flag].(bool)
	return set
}

func firstN(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func firstNAny(items []interface{}, n int) []interface{} {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}

func toInterfaceList(items []string) []interface{} {
	out := make([]interface{}, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}

// SummaryPrompt renders the instruction handed to a generative summarizer
// for one scene. Kept here so mock and live summarizers stay in sync about
// what the model is asked for.
func SummaryPrompt(scene model.SceneRecord) string {
	return fmt.Sprintf(
		"Summarize the following movie scene in two sentences, then list up to "+
			"five keywords. Respond as JSON with keys scene_summary and "+
			"keywords_auto_generated.\nScene: %v", map[string]interface{}(scene))
}
