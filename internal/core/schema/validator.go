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

// Package schema declares the canonical scene field-type table and the
// validator applied to merged records. This file holds the checker itself.
// The validator is non-mutating and never raises: malformed input of any
// shape yields (false, messages). Escalating "not valid" into a returned
// error is a caller policy expressed through Enforce, not a validator
// decision.
package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cinemeta/scenemerge/internal/core/model"
)

// Validator checks scene records against a declared field table.
type Validator struct {
	table FieldTable
}

// NewValidator returns a validator over the given field table. Pass
// SceneFieldTable() for the canonical scene shape.
//
// Inputs:
//   - table: The declared field shapes.
//
// Outputs:
//   - *Validator: The configured validator.
func NewValidator(table FieldTable) *Validator {
	return &Validator{table: table}
}

// Validate checks one scene record and returns whether it conforms along
// with one message per issue found. It checks identity presence, then every
// record field that the table declares. Null values are always accepted.
//
// Inputs:
//   - record: The scene record to check. A nil map is reported, not panicked on.
//
// Outputs:
//   - bool: True when no issues were found.
//   - []string: Human-readable issue descriptions, empty when valid.
func (v *Validator) Validate(record model.SceneRecord) (bool, []string) {
	var msgs []string

	if record == nil {
		return false, []string{"scene is not a record"}
	}
	if _, ok := record[model.KeySceneID]; !ok {
		msgs = append(msgs, "missing scene_id")
	}
	if _, ok := record[model.KeyMovieID]; !ok {
		msgs = append(msgs, "missing movie_id")
	}

	// Fields are checked in sorted order so validation messages, and the
	// strict-mode errors and run reports built from them, are reproducible
	// across runs.
	fields := make([]string, 0, len(v.table))
	for field := range v.table {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		spec := v.table[field]
		value, present := record[field]
		if !present || value == nil || spec == nil {
			continue
		}
		msgs = append(msgs, checkValue(field, value, spec)...)
	}

	return len(msgs) == 0, msgs
}

// Enforce validates the record and converts failure into an error when
// strict is set. In lenient mode the messages are returned for logging and
// the error stays nil.
//
// Inputs:
//   - record: The scene record to check.
//   - strict: When true, a non-conforming record yields an error.
//
// Outputs:
//   - []string: The validation messages, empty when valid.
//   - error: Non-nil only in strict mode with a non-conforming record.
func (v *Validator) Enforce(record model.SceneRecord, strict bool) ([]string, error) {
	valid, msgs := v.Validate(record)
	if !valid && strict {
		return msgs, fmt.Errorf("scene validation failed for %q: %s", record.SceneID(), strings.Join(msgs, "; "))
	}
	return msgs, nil
}

// matchesType reports whether a runtime value conforms to one declared type.
// Null is accepted for every type.
func matchesType(value interface{}, t Type) bool {
	if value == nil {
		return true
	}
	switch t {
	case TypeString:
		_, ok := value.(string)
		return ok
	case TypeNumber:
		_, ok := numericValue(value)
		return ok
	case TypeBoolean:
		_, ok := value.(bool)
		return ok
	case TypeArray:
		_, ok := value.([]interface{})
		return ok
	case TypeObject:
		_, ok := value.(map[string]interface{})
		return ok
	}
	return true
}

// matchesAnyType reports whether a value conforms to any of the declared
// types; an empty declaration accepts every value.
func matchesAnyType(value interface{}, types []Type) bool {
	if len(types) == 0 {
		return true
	}
	for _, t := range types {
		if matchesType(value, t) {
			return true
		}
	}
	return false
}

// numericValue extracts a float64 from JSON-shaped numbers. Booleans are
// never numbers.
func numericValue(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// typeNames renders a declared type union for messages.
func typeNames(types []Type) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = string(t)
	}
	return strings.Join(parts, "|")
}

// checkValue validates one value against its spec, returning one message
// per issue. The path names the location, e.g. "characters[0].screen_time".
func checkValue(path string, value interface{}, spec *ValueSpec) []string {
	if value == nil {
		return nil
	}

	// OneOf: the value passes when any alternative matches; the collected
	// sub-messages are diagnostic only and surface when none do.
	if len(spec.OneOf) > 0 {
		var optionMsgs []string
		for _, opt := range spec.OneOf {
			sub := checkValue(path, value, opt)
			if len(sub) == 0 {
				return nil
			}
			optionMsgs = append(optionMsgs, sub...)
		}
		detail := "does not match allowed shapes"
		if len(optionMsgs) > 0 {
			detail = strings.Join(optionMsgs, "; ")
		}
		return []string{fmt.Sprintf("field %s has invalid value (%s)", path, detail)}
	}

	if !matchesAnyType(value, spec.Types) {
		return []string{fmt.Sprintf("field %s has invalid type (expected %s, got %T)", path, typeNames(spec.Types), value)}
	}

	var msgs []string

	if n, ok := numericValue(value); ok {
		if spec.Minimum != nil && n < *spec.Minimum {
			msgs = append(msgs, fmt.Sprintf("field %s below minimum %v", path, *spec.Minimum))
		}
		if spec.Maximum != nil && n > *spec.Maximum {
			msgs = append(msgs, fmt.Sprintf("field %s above maximum %v", path, *spec.Maximum))
		}
	}

	if list, ok := value.([]interface{}); ok && spec.Items != nil {
		for i, item := range list {
			itemPath := fmt.Sprintf("%s[%d]", path, i)
			if obj, isObj := item.(map[string]interface{}); isObj && len(spec.Items.Properties) > 0 {
				for subName, subSpec := range spec.Items.Properties {
					if subVal, has := obj[subName]; has && subSpec != nil {
						msgs = append(msgs, checkValue(itemPath+"."+subName, subVal, subSpec)...)
					}
				}
				continue
			}
			msgs = append(msgs, checkValue(itemPath, item, spec.Items)...)
		}
	}

	if obj, ok := value.(map[string]interface{}); ok {
		if len(spec.Properties) > 0 {
			for subName, subSpec := range spec.Properties {
				if subVal, has := obj[subName]; has && subSpec != nil {
					msgs = append(msgs, checkValue(path+"."+subName, subVal, subSpec)...)
				}
			}
		}
		if spec.Additional != nil {
			for key, subVal := range obj {
				msgs = append(msgs, checkValue(path+"."+key, subVal, spec.Additional)...)
			}
		}
	}

	return msgs
}
