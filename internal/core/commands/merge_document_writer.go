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
// Responsibility Command interface. This file defines the persistence step
// of the master merge workflow: writing the canonical scene list, the
// provenance side-file and the wrapped complete-schema document. All three
// writes are full overwrites, which is what makes a rerun idempotent.
package commands

import (
	"fmt"
	"log"

	"github.com/cinemeta/scenemerge/internal/core/cor"
	"github.com/cinemeta/scenemerge/internal/core/merge"
	"github.com/cinemeta/scenemerge/internal/core/model"
)

// MergeDocumentWriter writes the three per-movie merge documents.
type MergeDocumentWriter struct {
	cor.BaseCommand
	writer merge.Writer
}

// NewMergeDocumentWriter is the constructor for the MergeDocumentWriter
// command.
func NewMergeDocumentWriter(name string, layout merge.Layout) *MergeDocumentWriter {
	return &MergeDocumentWriter{
		BaseCommand: *cor.NewBaseCommand(name),
		writer:      merge.Writer{Layout: layout},
	}
}

// Execute persists the scene list from its input parameter together with
// the provenance map built earlier in the chain, then records the written
// paths for the completion report.
func (s *MergeDocumentWriter) Execute(context cor.Context) {
	scenes, ok := context.Get(s.GetInputParam()).([]model.SceneRecord)
	if !ok {
		s.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(s.GetName(), fmt.Errorf("expected a scene list to persist"))
		return
	}
	movie, _ := context.Get(CtxMovie).(string)
	provenance, _ := context.Get(CtxProvenance).(model.ProvenanceMap)
	generatedAt, _ := context.Get(CtxGeneratedAt).(string)

	canonicalPath, err := s.writer.WriteCanonical(movie, scenes)
	if err != nil {
		s.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(s.GetName(), err)
		return
	}
	provenancePath, err := s.writer.WriteProvenance(movie, provenance)
	if err != nil {
		s.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(s.GetName(), err)
		return
	}
	documentPath, err := s.writer.WriteDocument(movie, scenes, generatedAt)
	if err != nil {
		s.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(s.GetName(), err)
		return
	}

	log.Printf("wrote merge documents for movie %q: %s", movie, documentPath)
	context.Add(CtxPaths, &MergePaths{
		Canonical:  canonicalPath,
		Provenance: provenancePath,
		Document:   documentPath,
	})
	context.Add(s.GetOutputParam(), scenes)
	s.GetSuccessCounter().Add(context.GetContext(), 1)
}
