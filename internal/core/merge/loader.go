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

package merge

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/cinemeta/scenemerge/internal/core/model"
	"github.com/cinemeta/scenemerge/internal/core/sceneid"
)

// LoadTimings reads the authoritative timing table for a movie. The table
// fixes both the scene count and the timeline order of the canonical list.
// A missing table is fatal and wraps ErrMissingTimings; a present but
// unreadable table is also fatal because guessing at scene boundaries
// would corrupt every downstream consumer.
func (l Layout) LoadTimings(movie string) ([]model.SceneTiming, error) {
	path := l.TimingsPath(movie)
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: movie %q (expected %s)", ErrMissingTimings, movie, path)
		}
		return nil, fmt.Errorf("reading timing table for %q: %w", movie, err)
	}
	var table model.SceneTimingTable
	if err := json.Unmarshal(raw, &table); err != nil {
		return nil, fmt.Errorf("parsing timing table for %q: %w", movie, err)
	}
	return table.Scenes, nil
}

// LoadPhaseFolder collects the fragments one phase produced for one movie,
// keyed by movie-local scene id. Fragment discovery is tolerant:
// a missing folder, a malformed file, a fragment without a scene id, or a
// fragment that clearly belongs to a different movie are each skipped with
// a warning, never fatal. Partial phase output must not block the merge.
//
// Files are looked for first in a per-movie subfolder, then in the phase
// folder itself. A fragment's movie is inferred from its filename and
// overridden by an explicit movie_id in its content.
func (l Layout) LoadPhaseFolder(phase Phase, movie string) map[string]model.SceneRecord {
	fragments := make(map[string]model.SceneRecord)
	dir := l.PhaseDir(phase)
	if sub := filepath.Join(dir, movie); dirExists(sub) {
		dir = sub
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("phase folder unreadable", "phase", phase.Name, "dir", dir, "error", err)
		}
		return fragments
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("skipping unreadable fragment", "phase", phase.Name, "file", path, "error", err)
			continue
		}
		var content interface{}
		if err := json.Unmarshal(raw, &content); err != nil {
			slog.Warn("skipping malformed fragment", "phase", phase.Name, "file", path, "error", err)
			continue
		}

		stem := strings.TrimSuffix(entry.Name(), ".json")
		fileMovie := sceneid.MovieFromFilename(stem)
		if m := sceneid.MovieFromFragment(content); m != "" {
			fileMovie = m
		}
		if !sceneid.BelongsToMovie(fileMovie, movie) {
			continue
		}

		for _, record := range recordsIn(content) {
			rawID := record.SceneID()
			if rawID == "" {
				slog.Warn("skipping fragment without scene id", "phase", phase.Name, "file", path)
				continue
			}
			prefix := fileMovie
			if prefix == "" {
				prefix = movie
			}
			fragments[sceneid.Localize(rawID, prefix)] = record
		}
	}
	return fragments
}

// recordsIn flattens a decoded fragment file into scene records. A file may
// hold a single record, a list of records, or a wrapper object with a
// "scenes" list; anything else contributes nothing.
func recordsIn(content interface{}) []model.SceneRecord {
	switch c := content.(type) {
	case map[string]interface{}:
		if scenes, ok := c["scenes"].([]interface{}); ok {
			var out []model.SceneRecord
			for _, item := range scenes {
				if rec, ok := item.(map[string]interface{}); ok {
					out = append(out, model.SceneRecord(rec))
				}
			}
			return out
		}
		return []model.SceneRecord{model.SceneRecord(c)}
	case []interface{}:
		var out []model.SceneRecord
		for _, item := range c {
			if rec, ok := item.(map[string]interface{}); ok {
				out = append(out, model.SceneRecord(rec))
			}
		}
		return out
	}
	return nil
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
