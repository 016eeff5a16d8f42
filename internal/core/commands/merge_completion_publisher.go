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
// Responsibility Command interface. This file defines the final step of the
// cloud-connected merge workflow: publishing a completion event so that
// downstream enrichment pipelines know a fresh canonical document exists.
package commands

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"cloud.google.com/go/pubsub"

	"github.com/cinemeta/scenemerge/internal/core/cor"
	"github.com/cinemeta/scenemerge/internal/core/model"
)

// MergeCompletionPublisher publishes a MergeRunReport to a Pub/Sub topic
// after a successful merge.
type MergeCompletionPublisher struct {
	cor.BaseCommand
	client *pubsub.Client // The client for interacting with Pub/Sub.
	topic  string         // The completion topic name.
}

// NewMergeCompletionPublisher is the constructor for the
// MergeCompletionPublisher command.
func NewMergeCompletionPublisher(name string, client *pubsub.Client, topic string) *MergeCompletionPublisher {
	return &MergeCompletionPublisher{BaseCommand: *cor.NewBaseCommand(name), client: client, topic: topic}
}

// IsExecutable requires the written document paths to be present.
func (s *MergeCompletionPublisher) IsExecutable(context cor.Context) bool {
	return context != nil && context.Get(CtxPaths) != nil
}

// Execute assembles the run report from the context and publishes it. The
// publish is awaited so a connectivity failure surfaces as a chain error
// and the triggering message is redelivered.
func (s *MergeCompletionPublisher) Execute(context cor.Context) {
	report := AssembleReport(context)

	payload, err := json.Marshal(report)
	if err != nil {
		s.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(s.GetName(), fmt.Errorf("encoding merge report: %w", err))
		return
	}

	result := s.client.Topic(s.topic).Publish(context.GetContext(), &pubsub.Message{Data: payload})
	if _, err := result.Get(context.GetContext()); err != nil {
		s.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(s.GetName(), fmt.Errorf("publishing merge completion: %w", err))
		return
	}

	log.Printf("published merge completion for movie %q (run %s)", report.Movie, report.RunID)
	context.Add(s.GetOutputParam(), report)
	s.GetSuccessCounter().Add(context.GetContext(), 1)
}

// AssembleReport builds the MergeRunReport for the current run from the
// values the earlier commands left in the context. It is shared between the
// completion publisher and the synchronous API path.
func AssembleReport(context cor.Context) *model.MergeRunReport {
	movie, _ := context.Get(CtxMovie).(string)
	runID, _ := context.Get(CtxRunID).(string)
	strict, _ := context.Get(CtxStrict).(bool)
	issues, _ := context.Get(CtxIssues).([]string)

	report := &model.MergeRunReport{
		RunID:             runID,
		Movie:             movie,
		Strict:            strict,
		ValidationIssues:  len(issues),
		ValidationDetails: issues,
		CompletedAt:       time.Now().UTC(),
	}
	if scenes, ok := context.Get(cor.CtxOut).([]model.SceneRecord); ok {
		report.TotalScenes = len(scenes)
	} else if scenes, ok := context.Get(cor.CtxIn).([]model.SceneRecord); ok {
		report.TotalScenes = len(scenes)
	}
	if paths, ok := context.Get(CtxPaths).(*MergePaths); ok {
		report.CanonicalPath = paths.Canonical
		report.ProvenancePath = paths.Provenance
		report.DocumentPath = paths.Document
	}
	return report
}
