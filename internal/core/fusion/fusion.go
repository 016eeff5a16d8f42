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

// Package fusion merges the outputs of independently-run analysis stages
// describing the same scene into one record, with per-field confidence and
// provenance aggregation. It is deterministic-first and conservative: when
// no confidence is supplied for a conflicting scalar, the first non-null
// value in contribution order wins, which makes the caller-supplied order of
// contributions part of the contract.
//
// Fusion is one of three merge policies in this repository and must not be
// conflated with the others: the conservative accretive merge used by the
// master builder lives in the merge package, and plain latest-write-wins
// never appears in the core at all.
package fusion

import (
	"encoding/json"
	"sort"

	"github.com/cinemeta/scenemerge/internal/core/model"
)

// charactersField is the named-item list field that receives aggregate-by-name
// treatment instead of plain list union.
const charactersField = "characters"

// screenTimeField is the numeric character sub-field summed across duplicate
// names during aggregation.
const screenTimeField = "screen_time"

// candidate is one contribution's claim on a single field.
type candidate struct {
	value   interface{}
	conf    float64
	hasConf bool
	prov    []string
}

// structuralKey returns a canonical serialization of a value used for
// duplicate detection. json.Marshal emits map keys in sorted order, so two
// structurally equal objects produce identical keys regardless of their
// original key order.
func structuralKey(v interface{}) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(raw)
}

// uniqueList returns the deduplicated union of items, preserving first-seen
// order. Dict items compare by structural equality, scalars by value.
func uniqueList(items []interface{}) []interface{} {
	seen := make(map[string]bool, len(items))
	out := make([]interface{}, 0, len(items))
	for _, it := range items {
		key := structuralKey(it)
		if !seen[key] {
			seen[key] = true
			out = append(out, it)
		}
	}
	return out
}

// appendUnique appends src entries missing from dst, preserving order.
func appendUnique(dst []string, src []string) []string {
	for _, s := range src {
		found := false
		for _, d := range dst {
			if d == s {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, s)
		}
	}
	return dst
}

// pickBestScalar selects the scalar or object candidate with the highest
// confidence. Null-valued candidates are excluded entirely, so a later real
// value always beats an earlier null regardless of confidence. Ties and the
// all-absent-confidence case resolve to the first candidate in input order.
// The returned provenance is the union across every non-null candidate.
func pickBestScalar(candidates []candidate) (interface{}, float64, bool, []string) {
	filtered := make([]candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.value != nil {
			filtered = append(filtered, c)
		}
	}
	if len(filtered) == 0 {
		return nil, 0, false, nil
	}

	best := filtered[0]
	bestConf := confOrSentinel(best)
	for _, c := range filtered[1:] {
		// Strictly greater keeps the selection stable on ties.
		if confOrSentinel(c) > bestConf {
			best = c
			bestConf = confOrSentinel(c)
		}
	}

	prov := make([]string, 0, len(filtered))
	for _, c := range filtered {
		prov = appendUnique(prov, c.prov)
	}
	return best.value, best.conf, best.hasConf, prov
}

// confOrSentinel maps an absent confidence below any real one.
func confOrSentinel(c candidate) float64 {
	if !c.hasConf {
		return -1.0
	}
	return c.conf
}

// Fuse combines a list of contributions, all describing the same scene, into
// one scene record with attached field_confidences and field_provenance
// maps. The operation is a pure fold over its inputs: no contribution is
// mutated, and fusing the same contribution list twice yields identical
// output.
//
// Field rules, in order of specificity:
//   - scene_id and movie_id take the first non-empty value in input order
//     and are never revisited.
//   - "characters" aggregates by item name: duplicate names merge into one
//     entry, screen_time sums across duplicates, confidence is tracked per
//     name as the maximum seen, and provenance is a flat union.
//   - Other list fields take the deduplicated union of all candidate lists
//     in first-seen order; confidence is the maximum supplied.
//   - Scalar and object fields take the highest-confidence non-null
//     candidate, first-in-order on ties.
//
// A field appears in the output confidence/provenance maps only when at
// least one contribution supplied a value for it.
//
// Inputs:
//   - contributions: The tagged partial records, in caller-significant order.
//
// Outputs:
//   - model.SceneRecord: The fused record.
func Fuse(contributions []model.SourceContribution) model.SceneRecord {
	merged := make(model.SceneRecord)
	fieldConfidences := make(map[string]interface{})
	fieldProvenance := make(map[string]interface{})

	// Gather every field key appearing in any contribution. The embedded
	// metadata maps are consumed through the candidates, never merged as
	// ordinary fields themselves.
	keySet := make(map[string]bool)
	for _, c := range contributions {
		for k := range c.Record {
			keySet[k] = true
		}
	}
	delete(keySet, model.KeySceneID)
	delete(keySet, model.KeyMovieID)
	delete(keySet, model.KeyFieldConfidences)
	delete(keySet, model.KeyFieldProvenance)

	// Identity fields: first non-empty value in input order, never replaced.
	for _, idKey := range []string{model.KeySceneID, model.KeyMovieID} {
		for _, c := range contributions {
			if v, ok := c.Record[idKey]; ok && v != nil && v != "" {
				merged[idKey] = v
				break
			}
		}
	}

	// Sort the field keys so output construction order is deterministic.
	fields := make([]string, 0, len(keySet))
	for k := range keySet {
		fields = append(fields, k)
	}
	sort.Strings(fields)

	for _, field := range fields {
		candidates := make([]candidate, 0, len(contributions))
		for _, c := range contributions {
			v, ok := c.Record[field]
			if !ok {
				continue
			}
			conf, hasConf := c.Record.ConfidenceFor(field)
			prov := appendUnique(nil, c.Record.ProvenanceFor(field))
			// The contributing source always joins the provenance, even when
			// the contribution supplied its own list.
			prov = appendUnique(prov, []string{c.Source})
			candidates = append(candidates, candidate{value: v, conf: conf, hasConf: hasConf, prov: prov})
		}
		if len(candidates) == 0 {
			continue
		}

		if firstList, ok := candidates[0].value.([]interface{}); ok {
			if field == charactersField && len(firstList) > 0 {
				if _, isObj := firstList[0].(map[string]interface{}); isObj {
					fuseCharacters(candidates, merged, fieldConfidences, fieldProvenance)
					continue
				}
			}
			fuseList(field, candidates, merged, fieldConfidences, fieldProvenance)
			continue
		}

		value, conf, hasConf, prov := pickBestScalar(candidates)
		merged[field] = value
		if hasConf {
			fieldConfidences[field] = conf
		}
		if len(prov) > 0 {
			fieldProvenance[field] = prov
		}
	}

	if len(fieldConfidences) > 0 {
		merged[model.KeyFieldConfidences] = fieldConfidences
	}
	if len(fieldProvenance) > 0 {
		merged[model.KeyFieldProvenance] = fieldProvenance
	}
	return merged
}

// fuseList applies the generic list rule: deduplicated union in first-seen
// order, maximum confidence, flat provenance union.
func fuseList(field string, candidates []candidate, merged model.SceneRecord, confidences map[string]interface{}, provenance map[string]interface{}) {
	items := make([]interface{}, 0)
	var maxConf float64
	haveConf := false
	prov := make([]string, 0)

	for _, c := range candidates {
		if list, ok := c.value.([]interface{}); ok {
			items = append(items, list...)
		}
		if c.hasConf {
			if !haveConf || c.conf > maxConf {
				maxConf = c.conf
			}
			haveConf = true
		}
		prov = appendUnique(prov, c.prov)
	}

	merged[field] = uniqueList(items)
	if haveConf {
		confidences[field] = maxConf
	}
	if len(prov) > 0 {
		provenance[field] = prov
	}
}

// fuseCharacters aggregates character lists by name. Items sharing a name
// merge into one entry whose screen_time is the sum across duplicates.
// Confidence is tracked per name, as a map, holding the maximum
// contribution-level confidence seen for that name. Provenance stays a flat
// union for the field as a whole.
func fuseCharacters(candidates []candidate, merged model.SceneRecord, confidences map[string]interface{}, provenance map[string]interface{}) {
	order := make([]string, 0)
	byName := make(map[string]map[string]interface{})
	confByName := make(map[string]interface{})
	prov := make([]string, 0)

	for _, c := range candidates {
		if list, ok := c.value.([]interface{}); ok {
			for _, raw := range list {
				item, ok := raw.(map[string]interface{})
				if !ok {
					continue
				}
				name, _ := item["name"].(string)
				if name == "" {
					continue
				}
				existing, seen := byName[name]
				if !seen {
					copied := make(map[string]interface{}, len(item))
					for k, v := range item {
						copied[k] = v
					}
					if _, ok := copied[screenTimeField]; !ok {
						copied[screenTimeField] = 0.0
					}
					byName[name] = copied
					order = append(order, name)
				} else {
					if add, ok := numeric(item[screenTimeField]); ok {
						current, _ := numeric(existing[screenTimeField])
						existing[screenTimeField] = current + add
					}
				}
				if c.hasConf {
					if prior, ok := confByName[name].(float64); !ok || c.conf > prior {
						confByName[name] = c.conf
					}
				}
			}
		}
		prov = appendUnique(prov, c.prov)
	}

	out := make([]interface{}, 0, len(order))
	for _, name := range order {
		out = append(out, byName[name])
	}
	merged[charactersField] = out
	if len(confByName) > 0 {
		confidences[charactersField] = confByName
	}
	if len(prov) > 0 {
		provenance[charactersField] = prov
	}
}

// numeric extracts a float64 from JSON-shaped numbers.
func numeric(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}
