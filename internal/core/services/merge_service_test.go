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

// Package services_test contains tests for the merge service running the
// master merge workflow end to end against local workspaces, without any
// cloud clients configured.
package services_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cinemeta/scenemerge/internal/core/merge"
	"github.com/cinemeta/scenemerge/internal/core/services"
	test "github.com/cinemeta/scenemerge/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRunMergeLocal runs a full merge for the fixture movie and verifies the
// report and every artifact it points at.
func TestRunMergeLocal(t *testing.T) {
	root := t.TempDir()
	test.WriteTestWorkspace(t, root)
	svc := services.NewMergeService(test.NewLocalConfig(root), nil)

	report, err := svc.RunMerge(context.Background(), test.TestMovie, false)
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.Equal(t, test.TestMovie, report.Movie)
	assert.Equal(t, 3, report.TotalScenes)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 0, report.ValidationIssues)
	assert.False(t, report.Strict)

	// All three documents exist where the report says they are.
	for _, path := range []string{report.CanonicalPath, report.ProvenancePath, report.DocumentPath} {
		_, statErr := os.Stat(path)
		assert.NoError(t, statErr, path)
	}
}

// TestRunMergeMissingTimings verifies that the timing table is authoritative:
// without it the merge fails identifiably and produces no report.
func TestRunMergeMissingTimings(t *testing.T) {
	svc := services.NewMergeService(test.NewLocalConfig(t.TempDir()), nil)

	report, err := svc.RunMerge(context.Background(), "no_such_movie", false)
	assert.Nil(t, report)
	assert.True(t, errors.Is(err, merge.ErrMissingTimings))
}

// TestRunMergeStrictValidation verifies the strict escalation: an
// out-of-range fragment value fails the run, but only after the documents
// were written.
func TestRunMergeStrictValidation(t *testing.T) {
	root := t.TempDir()
	test.WriteTestWorkspace(t, root)
	// An importance score above 1 violates the declared [0,1] range.
	test.WriteJSON(t, filepath.Join(root, "outputs", "context", "scene_0001.json"), map[string]interface{}{
		"scene_id":         "scene_0001",
		"importance_score": 1.5,
	})
	svc := services.NewMergeService(test.NewLocalConfig(root), nil)

	report, err := svc.RunMerge(context.Background(), test.TestMovie, true)
	require.NotNil(t, report)
	assert.True(t, errors.Is(err, merge.ErrStrictValidation))
	assert.Equal(t, 1, report.ValidationIssues)
	assert.True(t, report.Strict)

	// The documents were written before validation failed the run.
	_, statErr := os.Stat(report.DocumentPath)
	assert.NoError(t, statErr)
}

// TestRunMergeLenientValidation verifies that the same issue only surfaces
// in the report when strict is off.
func TestRunMergeLenientValidation(t *testing.T) {
	root := t.TempDir()
	test.WriteTestWorkspace(t, root)
	test.WriteJSON(t, filepath.Join(root, "outputs", "context", "scene_0001.json"), map[string]interface{}{
		"scene_id":         "scene_0001",
		"importance_score": 1.5,
	})
	svc := services.NewMergeService(test.NewLocalConfig(root), nil)

	report, err := svc.RunMerge(context.Background(), test.TestMovie, false)
	require.NoError(t, err)
	assert.Equal(t, 1, report.ValidationIssues)
	require.Equal(t, 1, len(report.ValidationDetails))
	assert.Contains(t, report.ValidationDetails[0], "importance_score")
}

// TestRunBatchIsolation verifies that movies in a batch succeed and fail
// independently.
func TestRunBatchIsolation(t *testing.T) {
	root := t.TempDir()
	test.WriteTestWorkspace(t, root)
	svc := services.NewMergeService(test.NewLocalConfig(root), nil)

	reports, failures := svc.RunBatch(context.Background(), []string{test.TestMovie, "no_such_movie"}, false)

	require.Contains(t, reports, test.TestMovie)
	assert.Equal(t, 3, reports[test.TestMovie].TotalScenes)
	require.Contains(t, failures, "no_such_movie")
	assert.True(t, errors.Is(failures["no_such_movie"], merge.ErrMissingTimings))
	assert.NotContains(t, reports, "no_such_movie")
}
