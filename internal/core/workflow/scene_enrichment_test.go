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

// Package workflow_test contains tests for the high-level orchestrations.
// This file covers the scene enrichment workflow: stage fan-out, fusion
// precedence of the input scene, and the chain-command form.
package workflow_test

import (
	"testing"

	"github.com/cinemeta/scenemerge/internal/core/cor"
	"github.com/cinemeta/scenemerge/internal/core/model"
	"github.com/cinemeta/scenemerge/internal/core/stages"
	"github.com/cinemeta/scenemerge/internal/core/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inputScene() model.SceneRecord {
	return model.SceneRecord{
		"scene_id":          "scene_0001",
		"movie_id":          "midnight_run",
		"profanity_present": true,
		"bitrate":           320.0,
		"dialogue_text": []interface{}{
			map[string]interface{}{"speaker": "Jack", "line": "Get in the car."},
		},
	}
}

// TestEnrichAddsStageFields verifies that one Enrich call attaches safety
// flags, quality flags and a summary to a bare canonical scene.
func TestEnrichAddsStageFields(t *testing.T) {
	w := workflow.NewSceneEnrichmentWorkflow(stages.MockSummarizer{}, nil)

	enriched := w.Enrich(inputScene(), "")

	safety, ok := enriched["safety_flags"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, safety["strong_language"])

	quality, ok := enriched["quality_flags"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, quality["bitrate_drop_detected"])

	summary, ok := enriched["scene_summary"].(string)
	require.True(t, ok)
	assert.Contains(t, summary, "Get in the car.")

	// Identity survives untouched.
	assert.Equal(t, "scene_0001", enriched.SceneID())
	assert.Equal(t, "midnight_run", enriched.MovieID())
}

// TestEnrichDoesNotMutateInput verifies the purity guarantee: the caller's
// record is identical before and after enrichment.
func TestEnrichDoesNotMutateInput(t *testing.T) {
	w := workflow.NewSceneEnrichmentWorkflow(stages.MockSummarizer{}, nil)
	scene := inputScene()

	_ = w.Enrich(scene, "")

	assert.Equal(t, inputScene(), scene)
}

// TestEnrichInputSceneWinsTies verifies that the input scene, fused first,
// keeps its values against unconfident stage output.
func TestEnrichInputSceneWinsTies(t *testing.T) {
	w := workflow.NewSceneEnrichmentWorkflow(stages.MockSummarizer{}, nil)
	scene := inputScene()
	scene["scene_summary"] = "Hand-written summary."

	enriched := w.Enrich(scene, "")

	// The mock summarizer's 0.85 dialogue confidence keys a sub-field, not
	// scene_summary itself, so the input's unconfident value stays first-in-order.
	assert.Equal(t, "Hand-written summary.", enriched["scene_summary"])
}

// TestEnrichWithFaceActor verifies that a configured face/actor pipeline
// contributes a characters list when a video path is supplied.
func TestEnrichWithFaceActor(t *testing.T) {
	pipeline := stages.NewFaceActorPipeline(3)
	w := workflow.NewSceneEnrichmentWorkflow(stages.MockSummarizer{}, pipeline)

	enriched := w.Enrich(inputScene(), "gs://bucket/midnight_run_scene_0001.mp4")

	characters, ok := enriched["characters"].([]interface{})
	require.True(t, ok)
	assert.NotEmpty(t, characters)
}

// TestEnrichmentChainCommand verifies the chain form over a scene list.
func TestEnrichmentChainCommand(t *testing.T) {
	traceCtx, span := tracer.Start(ctx, "scene-enrichment-chain-test")
	defer span.End()

	w := workflow.NewSceneEnrichmentWorkflow(stages.MockSummarizer{}, nil)
	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(traceCtx)
	chainCtx.Add(cor.CtxIn, []model.SceneRecord{inputScene(), inputScene()})

	w.Execute(chainCtx)

	require.False(t, chainCtx.HasErrors())
	logger.Info("enrichment chain completed")
	enriched, ok := chainCtx.Get(cor.CtxOut).([]model.SceneRecord)
	require.True(t, ok)
	assert.Equal(t, 2, len(enriched))
	for _, scene := range enriched {
		_, has := scene["safety_flags"].(map[string]interface{})
		assert.True(t, has)
	}
}

// TestEnrichmentChainRejectsBadInput verifies the error path when the chain
// input is not a scene list.
func TestEnrichmentChainRejectsBadInput(t *testing.T) {
	w := workflow.NewSceneEnrichmentWorkflow(stages.MockSummarizer{}, nil)
	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(ctx)
	chainCtx.Add(cor.CtxIn, "not a scene list")

	w.Execute(chainCtx)

	assert.True(t, chainCtx.HasErrors())
}
