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

// Package model defines the core data structures for the scene merge
// pipeline. This file holds the BigQuery projection of a canonical scene.
// The open scene record does not map onto a fixed column set, so the catalog
// stores the frequently-queried fields as typed columns and the full record
// as a JSON document column.
package model

import "encoding/json"

// SceneCatalogRow is one canonical scene as persisted to the BigQuery scene
// catalog table.
type SceneCatalogRow struct {
	MovieID     string  `bigquery:"movie_id"`
	SceneID     string  `bigquery:"scene_id"`
	RunID       string  `bigquery:"run_id"`
	StartTime   float64 `bigquery:"start_time"`
	EndTime     float64 `bigquery:"end_time"`
	Duration    float64 `bigquery:"duration"`
	Summary     string  `bigquery:"scene_summary"`
	Document    string  `bigquery:"document"` // The full scene record as JSON.
	GeneratedAt string  `bigquery:"generated_at"`
}

// NewSceneCatalogRow projects one canonical scene record into its catalog
// row. Missing or mistyped fields fall back to zero values; the full record
// in the Document column remains authoritative.
func NewSceneCatalogRow(movie string, record SceneRecord, runID string, generatedAt string) SceneCatalogRow {
	row := SceneCatalogRow{
		MovieID:     movie,
		SceneID:     record.SceneID(),
		RunID:       runID,
		GeneratedAt: generatedAt,
	}
	if v, ok := record["start_time"].(float64); ok {
		row.StartTime = v
	}
	if v, ok := record["end_time"].(float64); ok {
		row.EndTime = v
	}
	if v, ok := record["duration"].(float64); ok {
		row.Duration = v
	}
	if v, ok := record["scene_summary"].(string); ok {
		row.Summary = v
	}
	if raw, err := json.Marshal(record); err == nil {
		row.Document = string(raw)
	}
	return row
}
