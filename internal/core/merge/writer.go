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
	"os"
	"path/filepath"

	"github.com/cinemeta/scenemerge/internal/core/model"
)

// Writer persists the three per-movie merge documents: the canonical scene
// list, the provenance side-file and the wrapped complete-schema document.
// Writes are full overwrites; re-running a merge replaces all three files
// rather than patching them, which is what makes the merge idempotent.
type Writer struct {
	Layout Layout
}

// WriteCanonical writes the movie's canonical scene list and returns its path.
func (w Writer) WriteCanonical(movie string, scenes []model.SceneRecord) (string, error) {
	path := w.Layout.CanonicalPath(movie)
	return path, writeJSON(path, scenes)
}

// WriteProvenance writes the movie's provenance side-file and returns its path.
func (w Writer) WriteProvenance(movie string, provenance model.ProvenanceMap) (string, error) {
	path := w.Layout.ProvenancePath(movie)
	return path, writeJSON(path, provenance)
}

// WriteDocument wraps the scene list into the complete-schema document
// consumed by downstream enrichment stages, writes it, and returns its path.
func (w Writer) WriteDocument(movie string, scenes []model.SceneRecord, generatedAt string) (string, error) {
	doc := model.CanonicalDocument{
		Movie:       movie,
		TotalScenes: len(scenes),
		Scenes:      scenes,
		GeneratedAt: generatedAt,
	}
	path := w.Layout.DocumentPath(movie)
	return path, writeJSON(path, doc)
}

// writeJSON marshals v with two-space indentation and sorted object keys
// (the encoding/json default for maps), giving byte-stable output for
// structurally equal values.
func writeJSON(path string, v interface{}) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output folder for %s: %w", path, err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
