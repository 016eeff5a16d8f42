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
// pipeline. This file holds the open scene record type and the transient
// shapes that flow between the merge and fusion components: per-phase
// fragments, fusion contributions, scene timings and the persisted
// canonical documents.
//
// A scene record is deliberately an open map rather than a closed struct:
// upstream analysis phases emit over a hundred loosely-typed fields, several
// of which appear and disappear across pipeline versions. The identity
// fields and the two metadata maps (field confidences and field provenance)
// are the only keys with reserved meaning.
package model

import (
	"encoding/json"
	"time"
)

// Reserved scene record keys.
const (
	// KeySceneID is the scene's identifier, unique within one movie and
	// immutable once assigned.
	KeySceneID = "scene_id"
	// KeyMovieID is the identifier of the movie the scene belongs to.
	KeyMovieID = "movie_id"
	// KeyTitleName is the display title stamped on every canonical record.
	KeyTitleName = "title_name"
	// KeyFieldConfidences maps a field name to either a single confidence in
	// [0,1] or, for named-item list fields like "characters", a map of item
	// name to confidence.
	KeyFieldConfidences = "field_confidences"
	// KeyFieldProvenance maps a field name to the ordered, de-duplicated
	// list of source identifiers that contributed to its final value.
	KeyFieldProvenance = "field_provenance"
	// KeyGeneratedAt is the per-record generation timestamp. It is the only
	// record field excluded from the idempotence guarantee.
	KeyGeneratedAt = "metadata_generated_at"
)

// SceneRecord is one scene of one movie: a mapping from field name to value.
// Values are JSON-shaped: scalars, []interface{} lists, or nested
// map[string]interface{} objects.
type SceneRecord map[string]interface{}

// SceneID returns the record's scene id, or the empty string when unset.
func (s SceneRecord) SceneID() string {
	id, _ := s[KeySceneID].(string)
	return id
}

// MovieID returns the record's movie id, or the empty string when unset.
func (s SceneRecord) MovieID() string {
	id, _ := s[KeyMovieID].(string)
	return id
}

// Confidences returns the record's embedded field confidence map, or nil
// when the record carries none. Both native map[string]interface{} values
// and freshly-unmarshalled JSON objects share that shape, so no conversion
// is required.
func (s SceneRecord) Confidences() map[string]interface{} {
	m, _ := s[KeyFieldConfidences].(map[string]interface{})
	return m
}

// ConfidenceFor returns the record's embedded confidence for one field. The
// second return is false when the record carries no scalar confidence for
// the field (per-name confidence maps are not scalars and are intentionally
// excluded here; the fusion engine handles those separately).
func (s SceneRecord) ConfidenceFor(field string) (float64, bool) {
	m := s.Confidences()
	if m == nil {
		return 0, false
	}
	switch v := m[field].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

// Provenance returns the record's embedded field provenance map, or nil when
// the record carries none.
func (s SceneRecord) Provenance() map[string]interface{} {
	m, _ := s[KeyFieldProvenance].(map[string]interface{})
	return m
}

// ProvenanceFor returns the record's embedded provenance list for one field.
// It tolerates both []string values built in-process and []interface{}
// values produced by JSON decoding.
func (s SceneRecord) ProvenanceFor(field string) []string {
	m := s.Provenance()
	if m == nil {
		return nil
	}
	switch v := m[field].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, p := range v {
			if str, ok := p.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}

// Clone returns a deep copy of the record produced through a JSON round
// trip. Merge operations clone their inputs so no caller-owned fragment is
// ever mutated.
func (s SceneRecord) Clone() SceneRecord {
	raw, err := json.Marshal(s)
	if err != nil {
		// Records are JSON-shaped by construction; an unmarshallable record
		// indicates a programming error upstream, so fall back to a shallow
		// copy rather than losing data.
		out := make(SceneRecord, len(s))
		for k, v := range s {
			out[k] = v
		}
		return out
	}
	out := make(SceneRecord, len(s))
	_ = json.Unmarshal(raw, &out)
	return out
}

// SourceContribution is one fragment submitted to the fusion engine: a
// partial scene record tagged with the identifier of the stage that produced
// it. Contributions are ephemeral, constructed per fusion call.
type SourceContribution struct {
	Record SceneRecord // The partial scene record, possibly with embedded confidence/provenance maps.
	Source string      // Identifier of the producing stage, e.g. "scene_safety".
}

// SceneTiming is one row of the authoritative scene timing table produced by
// segmentation. The table defines both the canonical scene id set and the
// canonical order for one movie.
type SceneTiming struct {
	SceneID   string  `json:"scene_id"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	Duration  float64 `json:"duration"`
}

// SceneTimingTable is the decoded shape of a movie's timing file.
type SceneTimingTable struct {
	Movie  string        `json:"movie,omitempty"`
	Scenes []SceneTiming `json:"scenes"`
}

// CanonicalDocument is the wrapped "complete schema" document written after
// a master merge. Every downstream enrichment stage loads this document,
// adds fields to each scene, and overwrites it in place.
type CanonicalDocument struct {
	Movie       string        `json:"movie"`
	TotalScenes int           `json:"total_scenes"`
	Scenes      []SceneRecord `json:"scenes"`
	GeneratedAt string        `json:"generated_at"`
}

// ProvenanceMap is the per-movie provenance side-file: scene id to the set
// of fields that ended up non-empty after the merge. It records presence
// only, not full source attribution.
type ProvenanceMap map[string]map[string]bool

// MergeRunReport summarizes one master merge run for a single movie.
type MergeRunReport struct {
	RunID             string    `json:"run_id"`
	Movie             string    `json:"movie"`
	TotalScenes       int       `json:"total_scenes"`
	CanonicalPath     string    `json:"canonical_path"`
	ProvenancePath    string    `json:"provenance_path"`
	DocumentPath      string    `json:"document_path"`
	ValidationIssues  int       `json:"validation_issues"`
	Strict            bool      `json:"strict"`
	CompletedAt       time.Time `json:"completed_at"`
	ValidationDetails []string  `json:"validation_details,omitempty"`
}
