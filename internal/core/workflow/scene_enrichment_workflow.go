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

// Package workflow defines the high-level business logic orchestrations.
// This file implements the scene enrichment workflow, which runs after a
// master merge: each canonical scene is analyzed by the safety, visual
// quality, summary and face/actor stages, and the resulting fragments are
// combined with the confidence-aware fusion engine.
//
// The input scene is always the first fusion contribution, so existing data
// keeps its first-in-order advantage over stage output at equal confidence.
package workflow

import (
	"fmt"
	"log"

	"github.com/cinemeta/scenemerge/internal/core/cor"
	"github.com/cinemeta/scenemerge/internal/core/fusion"
	"github.com/cinemeta/scenemerge/internal/core/model"
	"github.com/cinemeta/scenemerge/internal/core/stages"
)

// SourceInputScene identifies the pre-enrichment record in fusion provenance.
const SourceInputScene = "input_scene"

// SceneEnrichmentWorkflow enriches canonical scenes with the deterministic
// analysis stages. It is usable both directly (Enrich) and as a chain
// command operating on a scene list (Execute).
type SceneEnrichmentWorkflow struct {
	cor.BaseCommand
	summarizer stages.Summarizer         // Produces the scene summary fragment.
	faceActor  *stages.FaceActorPipeline // Optional; links faces to registered actors when a video path is known.
}

// NewSceneEnrichmentWorkflow is the constructor for the scene enrichment
// workflow.
//
// Inputs:
//   - summarizer: The summary stage to use; pass stages.MockSummarizer{} for
//     deterministic behavior.
//   - faceActor: An optional face/actor pipeline with a registered cast, or
//     nil to skip character detection.
func NewSceneEnrichmentWorkflow(summarizer stages.Summarizer, faceActor *stages.FaceActorPipeline) *SceneEnrichmentWorkflow {
	return &SceneEnrichmentWorkflow{
		BaseCommand: *cor.NewBaseCommand("scene-enrichment-workflow"),
		summarizer:  summarizer,
		faceActor:   faceActor,
	}
}

// Enrich runs every stage against one scene and fuses the results. The
// input scene is never mutated; a freshly fused record is returned.
//
// Inputs:
//  1. scene - the canonical scene record to enrich.
//  2. videoPath - the scene's video clip, used by the face/actor stage;
//     empty to skip it.
//
// Outputs:
//  1. model.SceneRecord - the fused, enriched record.
func (w *SceneEnrichmentWorkflow) Enrich(scene model.SceneRecord, videoPath string) model.SceneRecord {
	contributions := []model.SourceContribution{
		{Record: scene.Clone(), Source: SourceInputScene},
		{Record: stages.AnalyzeSafety(scene), Source: stages.SourceSceneSafety},
		{Record: stages.AnalyzeQuality(scene), Source: stages.SourceVisualQuality},
		{Record: w.summarizer.Summarize(scene), Source: stages.SourceVLMSummary},
	}
	if w.faceActor != nil && videoPath != "" {
		contributions = append(contributions, model.SourceContribution{
			Record: w.faceActor.ProcessVideo(videoPath, 30),
			Source: stages.SourceFaceActor,
		})
	}
	return fusion.Fuse(contributions)
}

// Execute enriches every scene in the input list and outputs the enriched
// list. Video paths are not available in chain mode, so the face/actor
// stage is skipped here.
func (w *SceneEnrichmentWorkflow) Execute(context cor.Context) {
	scenes, ok := context.Get(w.GetInputParam()).([]model.SceneRecord)
	if !ok {
		w.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(w.GetName(), fmt.Errorf("expected a scene list to enrich"))
		return
	}

	enriched := make([]model.SceneRecord, 0, len(scenes))
	for _, scene := range scenes {
		enriched = append(enriched, w.Enrich(scene, ""))
	}

	log.Printf("enriched %d scenes", len(enriched))
	context.Add(w.GetOutputParam(), enriched)
	w.GetSuccessCounter().Add(context.GetContext(), 1)
}
