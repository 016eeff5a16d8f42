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
// Responsibility Command interface. This file defines the heart of the
// master merge workflow: the command that assembles the canonical,
// timeline-ordered scene list for one movie from the timing table and every
// phase fragment folder.
//
// Logic Flow:
//  1. Read the movie identifier from the context.
//  2. Mint a run id and a single run timestamp; every record of this run
//     carries the same timestamp so reruns differ only in that field.
//  3. Delegate to the merge.Builder, which loads the timing table (fatal if
//     missing) and the phase folders (tolerant), then conservatively merges
//     each scene's fragments in phase order.
//  4. Publish the scene list, the provenance map, the run id and the
//     timestamp into the context for the writer and validator commands.
package commands

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/cinemeta/scenemerge/internal/core/cor"
	"github.com/cinemeta/scenemerge/internal/core/merge"
)

// CanonicalSceneBuilder is the command that builds the canonical scene list.
type CanonicalSceneBuilder struct {
	cor.BaseCommand
	builder *merge.Builder
}

// NewCanonicalSceneBuilder is the constructor for the CanonicalSceneBuilder
// command.
//
// Inputs:
//   - name: A string name for this command instance.
//   - builder: The merge.Builder configured with the workspace layout and
//     the ordered phase list.
func NewCanonicalSceneBuilder(name string, builder *merge.Builder) *CanonicalSceneBuilder {
	return &CanonicalSceneBuilder{BaseCommand: *cor.NewBaseCommand(name), builder: builder}
}

// IsExecutable requires the movie identifier to be present.
func (s *CanonicalSceneBuilder) IsExecutable(context cor.Context) bool {
	return context != nil && context.Get(CtxMovie) != nil
}

// Execute runs the build and publishes its outputs.
func (s *CanonicalSceneBuilder) Execute(context cor.Context) {
	movie := context.Get(CtxMovie).(string)

	runID := uuid.NewString()
	generatedAt := time.Now().UTC().Format(time.RFC3339)

	scenes, provenance, err := s.builder.Build(movie, generatedAt)
	if err != nil {
		s.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(s.GetName(), fmt.Errorf("building canonical scenes for %q: %w", movie, err))
		return
	}

	log.Printf("built %d canonical scenes for movie %q (run %s)", len(scenes), movie, runID)
	context.Add(CtxRunID, runID)
	context.Add(CtxGeneratedAt, generatedAt)
	context.Add(CtxProvenance, provenance)
	context.Add(s.GetOutputParam(), scenes)
	s.GetSuccessCounter().Add(context.GetContext(), 1)
}
