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
// Responsibility Command interface. This file defines the command that
// persists the canonical scenes of a merge run to the BigQuery scene
// catalog, making the merged corpus queryable across movies and runs.
//
// Logic Flow:
//  1. Project each canonical scene record into its typed catalog row; the
//     full record travels along as a JSON document column.
//  2. Stream the rows through a BigQuery Inserter, which is far more
//     efficient than individual INSERT statements.
//  3. Update telemetry counters and pass the scene list through unchanged.
package commands

import (
	"fmt"
	"log"

	"cloud.google.com/go/bigquery"
	"github.com/cinemeta/scenemerge/internal/core/cor"
	"github.com/cinemeta/scenemerge/internal/core/model"
)

// ScenePersistToBigQuery is a command that saves a merge run's canonical
// scenes to a BigQuery table.
type ScenePersistToBigQuery struct {
	cor.BaseCommand
	client  *bigquery.Client // The client for interacting with the BigQuery service.
	dataset string           // The name of the BigQuery dataset.
	table   string           // The name of the target table within the dataset.
}

// NewScenePersistToBigQuery is the constructor for the ScenePersistToBigQuery
// command.
//
// Inputs:
//   - name: A string name for this command instance.
//   - client: An initialized *bigquery.Client.
//   - dataset: The name of the BigQuery dataset.
//   - table: The name of the target table.
func NewScenePersistToBigQuery(name string, client *bigquery.Client, dataset string, table string) *ScenePersistToBigQuery {
	return &ScenePersistToBigQuery{BaseCommand: *cor.NewBaseCommand(name), client: client, dataset: dataset, table: table}
}

// Execute streams the canonical scenes into the catalog table.
func (s *ScenePersistToBigQuery) Execute(context cor.Context) {
	scenes, ok := context.Get(s.GetInputParam()).([]model.SceneRecord)
	if !ok {
		s.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(s.GetName(), fmt.Errorf("expected a scene list to persist"))
		return
	}
	movie, _ := context.Get(CtxMovie).(string)
	runID, _ := context.Get(CtxRunID).(string)
	generatedAt, _ := context.Get(CtxGeneratedAt).(string)

	rows := make([]model.SceneCatalogRow, 0, len(scenes))
	for _, scene := range scenes {
		rows = append(rows, model.NewSceneCatalogRow(movie, scene, runID, generatedAt))
	}

	inserter := s.client.Dataset(s.dataset).Table(s.table).Inserter()
	if err := inserter.Put(context.GetContext(), rows); err != nil {
		log.Printf("failed to write scenes to catalog. movie %s error %s\n", movie, err)
		s.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(s.GetName(), fmt.Errorf("bigquery insert failed for movie '%s': %w", movie, err))
		return
	}

	s.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(s.GetOutputParam(), scenes)
	log.Printf("persisted %d catalog rows for movie '%s' (run %s)", len(rows), movie, runID)
}
