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

// Package schema_test contains unit tests for the scene schema validator:
// identity checks, type and range checks with path-labelled messages, the
// nullable-by-default rule, and the strict/lenient escalation split.
package schema_test

import (
	"testing"

	"github.com/cinemeta/scenemerge/internal/core/model"
	"github.com/cinemeta/scenemerge/internal/core/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validScene() model.SceneRecord {
	return model.SceneRecord{
		"scene_id":         "scene_0001",
		"movie_id":         "serenity",
		"start_time":       0.0,
		"end_time":         45.5,
		"duration":         45.5,
		"importance_score": 0.8,
		"characters": []interface{}{
			map[string]interface{}{"name": "Mal", "screen_time": 12.5},
		},
	}
}

// TestValidateConformingRecord verifies that a well-formed record passes with
// no messages.
func TestValidateConformingRecord(t *testing.T) {
	v := schema.NewValidator(schema.SceneFieldTable())
	valid, msgs := v.Validate(validScene())
	assert.True(t, valid)
	assert.Empty(t, msgs)
}

// TestValidateMissingIdentity verifies that records without the identity
// fields are reported.
func TestValidateMissingIdentity(t *testing.T) {
	v := schema.NewValidator(schema.SceneFieldTable())
	valid, msgs := v.Validate(model.SceneRecord{"duration": 10.0})
	assert.False(t, valid)
	assert.Contains(t, msgs, "missing scene_id")
	assert.Contains(t, msgs, "missing movie_id")
}

// TestValidateNullIsAccepted verifies the nullable-by-default rule: explicit
// nulls pass for every declared field.
func TestValidateNullIsAccepted(t *testing.T) {
	v := schema.NewValidator(schema.SceneFieldTable())
	scene := validScene()
	scene["importance_score"] = nil
	scene["profanity_present"] = nil
	valid, msgs := v.Validate(scene)
	assert.True(t, valid)
	assert.Empty(t, msgs)
}

// TestValidateRangeViolation verifies that out-of-range confidence scores
// produce a message naming the field and the bound.
func TestValidateRangeViolation(t *testing.T) {
	v := schema.NewValidator(schema.SceneFieldTable())
	scene := validScene()
	scene["importance_score"] = 1.5
	valid, msgs := v.Validate(scene)
	assert.False(t, valid)
	assert.Equal(t, 1, len(msgs))
	assert.Contains(t, msgs[0], "importance_score")
	assert.Contains(t, msgs[0], "above maximum")
}

// TestValidateNestedPath verifies that violations inside list items are
// reported with an indexed path.
func TestValidateNestedPath(t *testing.T) {
	v := schema.NewValidator(schema.SceneFieldTable())
	scene := validScene()
	scene["characters"] = []interface{}{
		map[string]interface{}{"name": "Mal", "screen_time": -2.0},
	}
	valid, msgs := v.Validate(scene)
	assert.False(t, valid)
	assert.Equal(t, 1, len(msgs))
	assert.Contains(t, msgs[0], "characters[0].screen_time")
}

// TestValidateNeverRaises verifies that arbitrarily malformed shapes yield
// (false, messages) rather than a panic: a nil record, a wrong-typed scalar,
// and a list where an object is declared.
func TestValidateNeverRaises(t *testing.T) {
	v := schema.NewValidator(schema.SceneFieldTable())

	valid, msgs := v.Validate(nil)
	assert.False(t, valid)
	assert.Equal(t, []string{"scene is not a record"}, msgs)

	scene := validScene()
	scene["location"] = 42.0
	scene["safety_flags"] = []interface{}{"violence"}
	valid, msgs = v.Validate(scene)
	assert.False(t, valid)
	assert.Equal(t, 2, len(msgs))
}

// TestValidateConfidenceShapes verifies the OneOf rule for field_confidences:
// plain scores and per-name maps both pass, anything else is reported.
func TestValidateConfidenceShapes(t *testing.T) {
	v := schema.NewValidator(schema.SceneFieldTable())
	scene := validScene()
	scene["field_confidences"] = map[string]interface{}{
		"location":   0.9,
		"characters": map[string]interface{}{"Mal": 0.8},
	}
	valid, msgs := v.Validate(scene)
	assert.True(t, valid)
	assert.Empty(t, msgs)

	scene["field_confidences"] = map[string]interface{}{"location": "high"}
	valid, _ = v.Validate(scene)
	assert.False(t, valid)
}

// TestEnforce verifies the escalation split: lenient mode returns messages
// with a nil error, strict mode converts them into an error.
func TestEnforce(t *testing.T) {
	v := schema.NewValidator(schema.SceneFieldTable())
	scene := validScene()
	scene["duration"] = "forty-five"

	msgs, err := v.Enforce(scene, false)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(msgs))

	msgs, err = v.Enforce(scene, true)
	assert.Error(t, err)
	assert.Equal(t, 1, len(msgs))
	assert.Contains(t, err.Error(), "scene_0001")
}

// TestValidateMessageOrderIsStable verifies that messages for multiple
// violations come out in sorted field order, identically on every run, so
// strict-mode error text and run reports are reproducible.
func TestValidateMessageOrderIsStable(t *testing.T) {
	record := validScene()
	record["duration"] = "forty-five"
	record["importance_score"] = 1.5
	record["location"] = 42.0

	v := schema.NewValidator(schema.SceneFieldTable())
	valid, msgs := v.Validate(record)
	assert.False(t, valid)
	require.Equal(t, 3, len(msgs))
	assert.Contains(t, msgs[0], "duration")
	assert.Contains(t, msgs[1], "importance_score")
	assert.Contains(t, msgs[2], "location")

	_, again := v.Validate(record)
	assert.Equal(t, msgs, again)
}
