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
// Responsibility Command interface that the merge workflows are assembled
// from. This file defines the shared context parameter keys the commands use
// to hand data to each other outside of the default chain piping.
package commands

// Context parameter keys shared across the merge workflow commands.
const (
	CtxMovie       = "__MOVIE__"        // The movie identifier for the current run.
	CtxStrict      = "__STRICT__"       // Whether strict schema validation is requested.
	CtxRunID       = "__RUN_ID__"       // The unique id of the current merge run.
	CtxGeneratedAt = "__GENERATED_AT__" // The single RFC 3339 timestamp stamped on every record of the run.
	CtxProvenance  = "__PROVENANCE__"   // The model.ProvenanceMap built alongside the canonical list.
	CtxIssues      = "__ISSUES__"       // Validation issue strings collected by the schema validator.
	CtxPaths       = "__PATHS__"        // The *MergePaths of the documents written by the writer command.
)

// MergePaths carries the on-disk locations of the three documents one merge
// run produces.
type MergePaths struct {
	Canonical  string
	Provenance string
	Document   string
}
