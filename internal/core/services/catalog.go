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

// Package services contains the business logic for interacting with data
// sources. This file defines the CatalogService, which reads canonical
// scenes back out of the BigQuery catalog the merge workflow writes to.
package services

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/cinemeta/scenemerge/internal/core/model"
)

// CatalogService is the data access layer over the BigQuery scene catalog.
type CatalogService struct {
	BigqueryClient *bigquery.Client // Client for interacting with Google BigQuery.
	DatasetName    string           // The name of the BigQuery dataset.
	SceneTable     string           // The table holding canonical scene rows.
}

// MergeRunSummary is one row of the per-movie run history.
type MergeRunSummary struct {
	RunID       string `bigquery:"run_id"`
	TotalScenes int64  `bigquery:"total_scenes"`
	GeneratedAt string `bigquery:"generated_at"`
}

// GetFQN returns the complete, queryable name for the scene table in
// BigQuery, formatted with dots instead of colons.
func (s *CatalogService) GetFQN() string {
	fqn := s.BigqueryClient.Dataset(s.DatasetName).Table(s.SceneTable).FullyQualifiedName()
	return strings.Replace(fqn, ":", ".", -1)
}

// ListScenes returns every catalog row of the movie's most recent merge
// run, in timeline order.
//
// Inputs:
//   - ctx: The context for the request.
//   - movie: The movie identifier.
//
// Outputs:
//   - []model.SceneCatalogRow: The scene rows, empty when the movie has
//     never been merged.
//   - error: An error if the query fails.
func (s *CatalogService) ListScenes(ctx context.Context, movie string) (out []model.SceneCatalogRow, err error) {
	out = make([]model.SceneCatalogRow, 0)

	fqn := s.GetFQN()
	queryText := fmt.Sprintf(QryScenesByMovie, fqn, movie, fqn, movie)
	q := s.BigqueryClient.Query(queryText)
	itr, err := q.Read(ctx)
	if err != nil {
		return out, fmt.Errorf("failed to read from BigQuery: %w", err)
	}

	for {
		var row model.SceneCatalogRow
		err := itr.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return out, fmt.Errorf("failed to iterate results: %w", err)
		}
		out = append(out, row)
	}
	return out, nil
}

// ListRuns returns the merge run history of one movie, newest first.
func (s *CatalogService) ListRuns(ctx context.Context, movie string) (out []MergeRunSummary, err error) {
	out = make([]MergeRunSummary, 0)

	queryText := fmt.Sprintf(QryMovieRunSummary, s.GetFQN(), movie)
	q := s.BigqueryClient.Query(queryText)
	itr, err := q.Read(ctx)
	if err != nil {
		return out, fmt.Errorf("failed to read from BigQuery: %w", err)
	}

	for {
		var row MergeRunSummary
		err := itr.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return out, fmt.Errorf("failed to iterate results: %w", err)
		}
		out = append(out, row)
	}
	return out, nil
}
