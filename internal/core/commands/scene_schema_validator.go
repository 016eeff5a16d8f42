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
// Responsibility Command interface. This file defines the validation step
// of the master merge workflow. Validation is diagnostic by default: issues
// are collected and reported but never abort a lenient run. Only when the
// run was requested as strict does a non-empty issue list fail the chain,
// and even then the documents have already been written so they can be
// inspected.
package commands

import (
	"fmt"
	"log"

	"github.com/cinemeta/scenemerge/internal/core/cor"
	"github.com/cinemeta/scenemerge/internal/core/model"
	"github.com/cinemeta/scenemerge/internal/core/schema"
)

// SceneSchemaValidator validates every built scene against the canonical
// field table.
type SceneSchemaValidator struct {
	cor.BaseCommand
	validator *schema.Validator
}

// NewSceneSchemaValidator is the constructor for the SceneSchemaValidator
// command.
func NewSceneSchemaValidator(name string) *SceneSchemaValidator {
	return &SceneSchemaValidator{
		BaseCommand: *cor.NewBaseCommand(name),
		validator:   schema.NewValidator(schema.SceneFieldTable()),
	}
}

// Execute validates the scene list found in the input parameter and passes
// it through unchanged.
func (s *SceneSchemaValidator) Execute(context cor.Context) {
	scenes, ok := context.Get(s.GetInputParam()).([]model.SceneRecord)
	if !ok {
		s.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(s.GetName(), fmt.Errorf("expected a scene list to validate"))
		return
	}
	strict, _ := context.Get(CtxStrict).(bool)

	var issues []string
	for _, scene := range scenes {
		if ok, sceneIssues := s.validator.Validate(scene); !ok {
			for _, issue := range sceneIssues {
				issues = append(issues, fmt.Sprintf("%s: %s", scene.SceneID(), issue))
			}
		}
	}

	if len(issues) > 0 {
		log.Printf("schema validation found %d issues", len(issues))
	}
	context.Add(CtxIssues, issues)
	context.Add(s.GetOutputParam(), scenes)

	if strict && len(issues) > 0 {
		s.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(s.GetName(), fmt.Errorf("strict validation failed with %d issues", len(issues)))
		return
	}
	s.GetSuccessCounter().Add(context.GetContext(), 1)
}
