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
	"log/slog"

	"github.com/cinemeta/scenemerge/internal/core/model"
)

// Builder assembles the canonical scene list for one movie.
//
// Logic Flow:
//  1. Load the authoritative timing table; it fixes the scene ids, the
//     scene count and the timeline order. Missing table -> fatal.
//  2. Load the fragment folder of every configured phase, in order.
//  3. For each timing row, start from the empty scene template, stamp the
//     timings, then conservatively apply each phase's fragment for that
//     scene in phase order.
//  4. Stamp the movie identity on every record and build the provenance
//     presence map.
//
// A Builder is stateless between calls and safe for concurrent use across
// distinct movies.
type Builder struct {
	Layout Layout
	Phases []Phase
}

// NewBuilder returns a builder over the given workspace layout and ordered
// phase list.
func NewBuilder(layout Layout, phases []Phase) *Builder {
	return &Builder{Layout: layout, Phases: phases}
}

// Build produces the canonical scene list and provenance map for one movie.
// Every record carries the single generatedAt timestamp passed in, so that
// two runs differ only in that timestamp when the inputs are unchanged.
//
// Inputs:
//  1. movie - the movie identifier; only this movie's fragments are read.
//  2. generatedAt - the run timestamp (RFC 3339) stamped on every record.
//
// Outputs:
//  1. []model.SceneRecord - the canonical, timeline-ordered scene list.
//  2. model.ProvenanceMap - scene id to the set of non-empty fields.
//  3. error - ErrMissingTimings when the timing table is absent.
func (b *Builder) Build(movie string, generatedAt string) ([]model.SceneRecord, model.ProvenanceMap, error) {
	timings, err := b.Layout.LoadTimings(movie)
	if err != nil {
		return nil, nil, err
	}

	phaseFragments := make([]map[string]model.SceneRecord, len(b.Phases))
	for i, phase := range b.Phases {
		phaseFragments[i] = b.Layout.LoadPhaseFolder(phase, movie)
		slog.Debug("phase fragments loaded",
			"movie", movie, "phase", phase.Name, "count", len(phaseFragments[i]))
	}

	scenes := make([]model.SceneRecord, 0, len(timings))
	provenance := make(model.ProvenanceMap, len(timings))

	for _, timing := range timings {
		record := model.NewSceneTemplate(timing.SceneID, generatedAt)
		record["start_time"] = timing.StartTime
		record["end_time"] = timing.EndTime
		record["duration"] = timing.Duration

		for i := range b.Phases {
			if fragment, ok := phaseFragments[i][timing.SceneID]; ok {
				Apply(record, fragment)
			}
		}

		record[model.KeyMovieID] = movie
		record[model.KeyTitleName] = movie
		record[model.KeyGeneratedAt] = generatedAt

		provenance[timing.SceneID] = presentFields(record)
		scenes = append(scenes, record)
	}
	return scenes, provenance, nil
}

// presentFields reports which fields of a built record hold data, excluding
// the identity fields that are always stamped.
func presentFields(record model.SceneRecord) map[string]bool {
	present := make(map[string]bool)
	for key, value := range record {
		switch key {
		case model.KeySceneID, model.KeyMovieID, model.KeyTitleName, model.KeyGeneratedAt:
			continue
		}
		if !isEmpty(value) {
			present[key] = true
		}
	}
	return present
}
