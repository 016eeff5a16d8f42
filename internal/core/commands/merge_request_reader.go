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
// Responsibility Command interface. This file defines the command that turns
// an inbound merge-request message (a Pub/Sub payload or an API body) into
// the typed parameters the rest of the workflow reads.
package commands

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/cinemeta/scenemerge/internal/core/cor"
)

// MergeRequest is the wire shape of a merge trigger.
type MergeRequest struct {
	Movie  string `json:"movie"`
	Strict bool   `json:"strict"`
}

// MergeRequestReader parses a JSON merge request from its input parameter
// and publishes the movie and strict flag into the context.
type MergeRequestReader struct {
	cor.BaseCommand
}

// NewMergeRequestReader is the constructor for the MergeRequestReader command.
func NewMergeRequestReader(name string) *MergeRequestReader {
	return &MergeRequestReader{BaseCommand: *cor.NewBaseCommand(name)}
}

// Execute decodes the request payload. A payload without a movie is an
// error: every downstream step is movie-scoped.
//
// Inputs:
//   - context: The shared cor.Context; the raw JSON string is read from the
//     command's input parameter.
func (s *MergeRequestReader) Execute(context cor.Context) {
	raw, ok := context.Get(s.GetInputParam()).(string)
	if !ok {
		s.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(s.GetName(), fmt.Errorf("merge request payload is not a string"))
		return
	}

	var request MergeRequest
	if err := json.Unmarshal([]byte(raw), &request); err != nil {
		s.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(s.GetName(), fmt.Errorf("failed to parse merge request: %w", err))
		return
	}
	if request.Movie == "" {
		s.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(s.GetName(), fmt.Errorf("merge request is missing the movie field"))
		return
	}

	log.Printf("merge requested for movie %q (strict=%v)", request.Movie, request.Strict)
	context.Add(CtxMovie, request.Movie)
	context.Add(CtxStrict, request.Strict)
	context.Add(s.GetOutputParam(), request.Movie)
	s.GetSuccessCounter().Add(context.GetContext(), 1)
}
