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

// Package workflow defines the high-level business logic orchestrations,
// combining commands into coherent pipelines. This file implements the
// master merge workflow: the full journey of one merge request, from the
// triggering message to the written documents, catalog rows and completion
// event.
package workflow

import (
	"github.com/cinemeta/scenemerge/internal/cloud"
	"github.com/cinemeta/scenemerge/internal/core/commands"
	"github.com/cinemeta/scenemerge/internal/core/cor"
	"github.com/cinemeta/scenemerge/internal/core/merge"
)

// SummarizerModelName is the logical agent-model key the workflow looks up
// in the configuration for generative summaries.
const SummarizerModelName = "summarizer"

// MasterMergeWorkflow orchestrates the merge of one movie's phase fragments
// into its canonical scene document set. It is structured as a Chain of
// Responsibility whose cloud-facing steps (fragment sync, catalog
// persistence, document upload, completion event) are only wired in when
// service clients are available; without them the workflow is a fully
// functional local merge.
//
// This workflow is triggered by a Pub/Sub merge request
// ({"movie": ..., "strict": ...}) or invoked synchronously by the API.
type MasterMergeWorkflow struct {
	cor.BaseCommand
	config  *cloud.Config
	clients *cloud.ServiceClients
	chain   cor.Chain // The underlying chain of commands to be executed.
}

// Execute runs the entire merge workflow by invoking the underlying chain.
//
// Inputs:
//   - context: The chain of responsibility context, holding the raw trigger
//     payload under cor.CtxIn.
func (m *MasterMergeWorkflow) Execute(context cor.Context) {
	m.chain.Execute(context)
}

// initializeChain builds the sequence of commands that make up this
// workflow. This method is called by the constructor.
func (m *MasterMergeWorkflow) initializeChain() {
	layout := LayoutFromConfig(m.config)
	phases := PhasesFromConfig(m.config)

	out := cor.NewBaseChain(m.GetName())

	// Step 1: Parse the merge request and publish the movie and strict flag
	// into the context.
	out.AddCommand(commands.NewMergeRequestReader("merge-request-reader"))

	// Step 2 (cloud only): Mirror the movie's phase fragments from the
	// fragment bucket into the workspace so the merge sees the freshest
	// upstream output.
	if m.clients != nil {
		out.AddCommand(commands.NewFragmentSyncFromGCS(
			"fragment-sync-from-gcs",
			m.clients.StorageClient,
			m.config.Storage.FragmentBucket,
			m.config.Workspace.Root))
	}

	// Step 3: Build the canonical, timeline-ordered scene list from the
	// timing table and the phase fragment folders.
	out.AddCommand(commands.NewCanonicalSceneBuilder("canonical-scene-builder", merge.NewBuilder(layout, phases)))

	// Step 4 (cloud only): Fill any still-missing scene summaries with the
	// generative summarizer, rate-limited through the quota-aware wrapper.
	if m.clients != nil {
		if agentModel, ok := m.clients.AgentModels[SummarizerModelName]; ok {
			out.AddCommand(commands.NewVLMSceneSummarizer(
				"vlm-scene-summarizer",
				agentModel,
				m.config.PromptTemplates.SummaryPrompt))
		}
	}

	// Step 5: Write the canonical list, the provenance side-file and the
	// complete-schema document. The documents are written before validation
	// so a strict failure still leaves them on disk for inspection.
	out.AddCommand(commands.NewMergeDocumentWriter("merge-document-writer", layout))

	// Step 6: Validate every scene against the canonical field table.
	// Lenient runs record issues and continue; strict runs fail the chain
	// here, which leaves the triggering message un-acked for redelivery.
	out.AddCommand(commands.NewSceneSchemaValidator("scene-schema-validator"))

	// Steps 7-9 (cloud only): persist the scenes to the BigQuery catalog,
	// publish the documents to the document bucket, and emit the completion
	// event for downstream enrichment pipelines.
	if m.clients != nil {
		out.AddCommand(commands.NewScenePersistToBigQuery(
			"scene-persist-to-bigquery",
			m.clients.BigQueryClient,
			m.config.BigQueryDataSource.DatasetName,
			m.config.BigQueryDataSource.SceneTable))
		out.AddCommand(commands.NewDocumentUploadToGCS(
			"document-upload-to-gcs",
			m.clients.StorageClient,
			m.config.Storage.DocumentBucket))
		if topic := m.config.Application.CompletionTopic; topic != "" {
			out.AddCommand(commands.NewMergeCompletionPublisher(
				"merge-completion-publisher",
				m.clients.PubsubClient,
				topic))
		}
	}

	m.chain = out
}

// NewMasterMergeWorkflow is the constructor for the MasterMergeWorkflow.
//
// Inputs:
//   - config: The application's overall configuration.
//   - serviceClients: Initialized GCP clients, or nil for a local-only merge.
//
// Returns:
//   - A pointer to a newly created and fully initialized workflow.
func NewMasterMergeWorkflow(config *cloud.Config, serviceClients *cloud.ServiceClients) *MasterMergeWorkflow {
	pipeline := &MasterMergeWorkflow{
		BaseCommand: *cor.NewBaseCommand("master-merge-workflow"),
		config:      config,
		clients:     serviceClients,
	}
	pipeline.initializeChain()
	return pipeline
}

// LayoutFromConfig projects the workspace configuration into the merge
// package's layout value.
func LayoutFromConfig(config *cloud.Config) merge.Layout {
	return merge.Layout{
		Root:           config.Workspace.Root,
		TimingsDir:     config.Workspace.TimingsDir,
		SceneIndexDir:  config.Workspace.SceneIndexDir,
		FinalOutputDir: config.Workspace.FinalOutputDir,
	}
}

// PhasesFromConfig returns the configured phase order, or the conventional
// default order when the configuration declares none.
func PhasesFromConfig(config *cloud.Config) []merge.Phase {
	declared := config.Phases
	if len(declared) == 0 {
		declared = cloud.DefaultPhases()
	}
	phases := make([]merge.Phase, 0, len(declared))
	for _, p := range declared {
		phases = append(phases, merge.Phase{Name: p.Name, Path: p.Path})
	}
	return phases
}
