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

// Package merge builds the canonical, timeline-ordered scene list for one
// movie by conservatively merging every discovered phase fragment. This
// file defines the workspace layout: where the timing tables, phase
// fragment folders and output documents live on disk. All paths are
// movie-parameterized; two movies never share an output path, which is what
// makes concurrent runs for different movies safe.
package merge

import "path/filepath"

// Phase names one upstream analysis phase and the folder its fragments are
// written to. The order of phases handed to the builder is significant:
// earlier phases win conflicting scalars under the conservative merge rule.
type Phase struct {
	Name string // Logical phase name, e.g. "segments", "dialogue".
	Path string // Fragment folder, relative to the workspace root.
}

// Layout locates the merge inputs and outputs inside one workspace root.
type Layout struct {
	Root           string // Workspace root directory.
	TimingsDir     string // Folder of per-movie timing tables, relative to Root.
	SceneIndexDir  string // Folder receiving canonical lists and provenance files.
	FinalOutputDir string // Folder receiving the complete-schema documents.
}

// TimingsPath returns the authoritative timing table path for a movie.
func (l Layout) TimingsPath(movie string) string {
	return filepath.Join(l.Root, l.TimingsDir, movie+"_scenes.json")
}

// PhaseDir returns the absolute fragment folder for one phase.
func (l Layout) PhaseDir(phase Phase) string {
	return filepath.Join(l.Root, phase.Path)
}

// CanonicalPath returns the canonical scene list path for a movie.
func (l Layout) CanonicalPath(movie string) string {
	return filepath.Join(l.Root, l.SceneIndexDir, movie+"_FINAL.json")
}

// ProvenancePath returns the provenance side-file path for a movie.
func (l Layout) ProvenancePath(movie string) string {
	return filepath.Join(l.Root, l.SceneIndexDir, movie+"_FINAL.provenance.json")
}

// DocumentPath returns the complete-schema document path for a movie. This
// is the hand-off point consumed by every downstream enrichment stage.
func (l Layout) DocumentPath(movie string) string {
	return filepath.Join(l.Root, l.FinalOutputDir, movie+"_complete_schema.json")
}
