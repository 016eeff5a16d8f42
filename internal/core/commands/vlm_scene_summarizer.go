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

// Package commands provides the concrete implementations of the Chain of
// Responsibility Command interface. This file defines the generative
// summarizer command: for every canonical scene still missing a summary it
// asks a Vertex AI model for one, going through the quota-aware wrapper so
// large movies do not trip the per-minute request quota.
//
// The model's answer is folded into each scene with the conservative merge,
// so a summary produced by an earlier phase is never overwritten.
package commands

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"text/template"

	"go.opentelemetry.io/otel/metric"

	"github.com/cinemeta/scenemerge/internal/cloud"
	"github.com/cinemeta/scenemerge/internal/core/cor"
	"github.com/cinemeta/scenemerge/internal/core/merge"
	"github.com/cinemeta/scenemerge/internal/core/model"
)

// VLMSceneSummarizer is a command that fills missing scene summaries using
// a generative model.
type VLMSceneSummarizer struct {
	cor.BaseCommand
	model              *cloud.QuotaAwareGenerativeAIModel // The rate-limited model wrapper.
	promptTemplate     *template.Template                 // The summary prompt, rendered per scene.
	inputTokenCounter  metric.Int64Counter                // Counts prompt tokens used.
	outputTokenCounter metric.Int64Counter                // Counts response tokens generated.
	retryCounter       metric.Int64Counter                // Counts model call retries.
}

// summaryResponse is the JSON shape the model is instructed to return.
type summaryResponse struct {
	SceneSummary string   `json:"scene_summary"`
	Keywords     []string `json:"keywords_auto_generated"`
}

// NewVLMSceneSummarizer is the constructor for the VLMSceneSummarizer
// command.
//
// Inputs:
//   - name: A string name for this command instance.
//   - agentModel: The quota-aware generative model to summarize with.
//   - promptText: The Go text/template for the per-scene prompt. The
//     template receives the scene record as its data.
func NewVLMSceneSummarizer(name string, agentModel *cloud.QuotaAwareGenerativeAIModel, promptText string) *VLMSceneSummarizer {
	base := cor.NewBaseCommand(name)
	inputTokens, _ := base.GetMeter().Int64Counter(fmt.Sprintf("%s.tokens.input", name))
	outputTokens, _ := base.GetMeter().Int64Counter(fmt.Sprintf("%s.tokens.output", name))
	retries, _ := base.GetMeter().Int64Counter(fmt.Sprintf("%s.retries", name))

	prompt := template.Must(template.New(name).Parse(promptText))
	return &VLMSceneSummarizer{
		BaseCommand:        *base,
		model:              agentModel,
		promptTemplate:     prompt,
		inputTokenCounter:  inputTokens,
		outputTokenCounter: outputTokens,
		retryCounter:       retries,
	}
}

// GenerateParams builds the substitution map for the prompt template.
// Alongside the scene under summarization it includes a complete,
// well-formed example record: few-shot prompting keeps the model's output
// shape reliable.
//
// Inputs:
//   - scene: The scene record to summarize.
//
// Outputs:
//   - map[string]interface{}: Data for the prompt template.
func (s *VLMSceneSummarizer) GenerateParams(scene model.SceneRecord) map[string]interface{} {
	params := make(map[string]interface{})

	exampleScene, _ := json.Marshal(model.GetExampleScene())
	params["EXAMPLE_JSON"] = string(exampleScene)

	sceneJSON, _ := json.Marshal(scene)
	params["SCENE_JSON"] = string(sceneJSON)
	return params
}

// Execute summarizes every scene in the input list that has an empty
// scene_summary. Individual model failures are logged and skipped; the
// remaining scenes still get their summaries.
func (s *VLMSceneSummarizer) Execute(context cor.Context) {
	scenes, ok := context.Get(s.GetInputParam()).([]model.SceneRecord)
	if !ok {
		s.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(s.GetName(), fmt.Errorf("expected a scene list to summarize"))
		return
	}

	summarized := 0
	for _, scene := range scenes {
		if summary, _ := scene["scene_summary"].(string); summary != "" {
			continue
		}

		var promptBuilder strings.Builder
		if err := s.promptTemplate.Execute(&promptBuilder, s.GenerateParams(scene)); err != nil {
			log.Printf("failed to render summary prompt for scene %s: %v", scene.SceneID(), err)
			continue
		}

		response, err := cloud.GenerateMultiModalResponse(
			context.GetContext(),
			s.inputTokenCounter,
			s.outputTokenCounter,
			s.retryCounter,
			0,
			s.model,
			cloud.NewTextPart(promptBuilder.String()))
		if err != nil {
			log.Printf("summary generation failed for scene %s: %v", scene.SceneID(), err)
			continue
		}

		var parsed summaryResponse
		if err := json.Unmarshal([]byte(response), &parsed); err != nil {
			log.Printf("unparseable summary response for scene %s: %v", scene.SceneID(), err)
			continue
		}

		fragment := model.SceneRecord{
			"scene_summary":           parsed.SceneSummary,
			"keywords_auto_generated": toList(parsed.Keywords),
		}
		merge.Apply(scene, fragment)
		summarized++
	}

	log.Printf("generated %d scene summaries", summarized)
	context.Add(s.GetOutputParam(), scenes)
	s.GetSuccessCounter().Add(context.GetContext(), 1)
}

func toList(items []string) []interface{} {
	out := make([]interface{}, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}
