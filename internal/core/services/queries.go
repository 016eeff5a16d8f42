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
// sources. This file holds the BigQuery SQL templates used by the catalog
// service. Keeping the SQL in one place makes the query surface of the
// application easy to audit.
package services

const (
	// QryScenesByMovie returns every catalog row of one movie's most recent
	// merge run, in timeline order. Placeholders: table FQN, movie id.
	QryScenesByMovie = "SELECT * FROM `%s` WHERE movie_id = '%s' AND run_id = (" +
		"SELECT run_id FROM `%s` WHERE movie_id = '%s' ORDER BY generated_at DESC LIMIT 1" +
		") ORDER BY start_time"

	// QryMovieRunSummary returns the run ids and scene counts recorded for
	// one movie, newest first. Placeholders: table FQN, movie id.
	QryMovieRunSummary = "SELECT run_id, COUNT(*) AS total_scenes, MAX(generated_at) AS generated_at " +
		"FROM `%s` WHERE movie_id = '%s' GROUP BY run_id ORDER BY generated_at DESC"
)
