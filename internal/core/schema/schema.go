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
// lightweight validator that checks merged records against it. The schema
// is an explicit Go data structure consumed by one generic checker; types
// are never re-derived from runtime values.
package schema

// Type names a JSON runtime type a field value may take.
type Type string

// The acceptable runtime types.
const (
	TypeString  Type = "string"
	TypeNumber  Type = "number"
	TypeBoolean Type = "boolean"
	TypeArray   Type = "array"
	TypeObject  Type = "object"
)

// ValueSpec describes the acceptable shape of one value. It is recursive:
// array fields describe their items, object fields describe named
// sub-fields or a catch-all additional-properties shape, and OneOf lists
// alternative shapes of which a value need match only one.
type ValueSpec struct {
	Types      []Type                // Union of acceptable types; empty means any type.
	Minimum    *float64              // Lower bound for numeric values, inclusive.
	Maximum    *float64              // Upper bound for numeric values, inclusive.
	Items      *ValueSpec            // Shape of each element for array values.
	Properties map[string]*ValueSpec // Named sub-field shapes for object items.
	Additional *ValueSpec            // Shape of every value for map-like objects.
	OneOf      []*ValueSpec          // Alternative shapes; a value passes when any matches.
}

// FieldTable maps a scene field name to its declared shape. Record fields
// absent from the table are accepted without checks; fields present in the
// table are checked whenever the record carries them. Null is accepted for
// every declared field (nullable-by-default).
type FieldTable map[string]*ValueSpec

// f is a small helper for building float bounds inline.
func f(v float64) *float64 { return &v }

// unitInterval is the shared [0,1] confidence score shape.
var unitInterval = &ValueSpec{Types: []Type{TypeNumber}, Minimum: f(0), Maximum: f(1)}

// SceneFieldTable returns the declared shape of the canonical scene record.
// It covers the identity fields, the timing block, the enriched content
// fields, and the two metadata maps. "field_confidences" values are either
// a plain confidence or, for named-item list fields, a map of item name to
// confidence, which is expressed as a OneOf.
func SceneFieldTable() FieldTable {
	return FieldTable{
		"scene_id":   {Types: []Type{TypeString}},
		"movie_id":   {Types: []Type{TypeString}},
		"title_name": {Types: []Type{TypeString}},

		"start_time": {Types: []Type{TypeNumber}},
		"end_time":   {Types: []Type{TypeNumber}},
		"duration":   {Types: []Type{TypeNumber}},

		"scene_summary":            {Types: []Type{TypeString}},
		"scene_type":               {Types: []Type{TypeString}},
		"scene_category_secondary": {Types: []Type{TypeString}},

		"importance_score":       unitInterval,
		"scene_priority":         {Types: []Type{TypeString}},
		"scene_priority_score":   unitInterval,
		"viewer_attention_score": unitInterval,
		"key_plot_point":         {Types: []Type{TypeBoolean}},

		"characters": {
			Types: []Type{TypeArray},
			Items: &ValueSpec{
				Types: []Type{TypeObject},
				Properties: map[string]*ValueSpec{
					"name":        {Types: []Type{TypeString}},
					"screen_time": {Types: []Type{TypeNumber}, Minimum: f(0)},
					"confidence":  unitInterval,
				},
			},
		},
		"character_dominance_ranking": {Types: []Type{TypeArray}},

		"dialogue_text": {
			Types: []Type{TypeArray},
			Items: &ValueSpec{
				Types: []Type{TypeObject},
				Properties: map[string]*ValueSpec{
					"speaker": {Types: []Type{TypeString}},
					"line":    {Types: []Type{TypeString}},
				},
			},
		},
		"dialogue_speed_wpm":  {Types: []Type{TypeNumber}, Minimum: f(0)},
		"audio_clarity_score": unitInterval,
		"profanity_present":   {Types: []Type{TypeBoolean}},

		"location":       {Types: []Type{TypeString}},
		"time_of_day":    {Types: []Type{TypeString}},
		"indoor_outdoor": {Types: []Type{TypeString}},

		"objects":             {Types: []Type{TypeArray}},
		"actions":             {Types: []Type{TypeArray}},
		"background_activity": {Types: []Type{TypeArray}},

		"resolution":             {Types: []Type{TypeString}},
		"aspect_ratio":           {Types: []Type{TypeNumber, TypeString}},
		"motion_intensity_score": unitInterval,
		"camera_movement":        {Types: []Type{TypeString}},
		"lighting_style":         {Types: []Type{TypeString}},
		"color_tone":             {Types: []Type{TypeString}},
		"shot_type":              {Types: []Type{TypeString}},

		"emotion_arousal_score":         unitInterval,
		"emotion_scene_variation_score": unitInterval,
		"audio_activity_score":          unitInterval,

		"vfx_presence":          {Types: []Type{TypeBoolean}},
		"cg_characters_present": {Types: []Type{TypeBoolean}},

		"safety_flags":  {Types: []Type{TypeObject}, Additional: &ValueSpec{Types: []Type{TypeBoolean}}},
		"quality_flags": {Types: []Type{TypeObject}, Additional: &ValueSpec{Types: []Type{TypeBoolean}}},

		"keywords_auto_generated": {Types: []Type{TypeArray}, Items: &ValueSpec{Types: []Type{TypeString}}},

		"ai_confidence_score":   unitInterval,
		"ai_model_version":      {Types: []Type{TypeString}},
		"metadata_generated_at": {Types: []Type{TypeString}},
		"notes":                 {Types: []Type{TypeString}},

		"field_confidences": {
			Types: []Type{TypeObject},
			Additional: &ValueSpec{
				OneOf: []*ValueSpec{
					unitInterval,
					{Types: []Type{TypeObject}, Additional: unitInterval},
				},
			},
		},
		"field_provenance": {
			Types: []Type{TypeObject},
			Additional: &ValueSpec{
				Types: []Type{TypeArray},
				Items: &ValueSpec{Types: []Type{TypeString}},
			},
		},
	}
}
