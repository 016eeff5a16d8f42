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

// Package services_test contains the test suite for the services package.
// This file specifically tests the functionality of the DocumentService.
package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/cinemeta/scenemerge/internal/core/services"
	test "github.com/cinemeta/scenemerge/internal/testutil"
	"github.com/zeebo/assert"
)

// TestDocumentService runs a merge against a fixture workspace and then reads
// the published artifacts back through the DocumentService, validating that
// the document and provenance side-file round-trip through the service layer.
func TestDocumentService(t *testing.T) {
	root := t.TempDir()
	test.WriteTestWorkspace(t, root)
	mergeService := services.NewMergeService(test.NewLocalConfig(root), nil)

	report, err := mergeService.RunMerge(context.Background(), test.TestMovie, false)
	test.HandleErr(err, t)
	assert.NotNil(t, report)

	documentService := &services.DocumentService{Layout: test.NewTestLayout(root)}

	doc, err := documentService.GetDocument(test.TestMovie)
	assert.NoError(t, err)
	assert.Equal(t, test.TestMovie, doc.Movie)
	assert.Equal(t, 3, doc.TotalScenes)
	assert.Equal(t, 3, len(doc.Scenes))
	assert.True(t, doc.GeneratedAt != "")

	provenance, err := documentService.GetProvenance(test.TestMovie)
	assert.NoError(t, err)
	assert.Equal(t, 3, len(provenance))
	// The dialogue fragment filled location on the first scene, so provenance
	// must record it as present.
	assert.True(t, provenance["scene_0001"]["location"])
}

// TestDocumentServiceMissingMovie verifies that reads for a movie that has
// never been merged fail rather than fabricating an empty document.
func TestDocumentServiceMissingMovie(t *testing.T) {
	root := t.TempDir()
	documentService := &services.DocumentService{Layout: test.NewTestLayout(root)}

	_, err := documentService.GetDocument("never_merged")
	assert.Error(t, err)

	_, err = documentService.GetProvenance("never_merged")
	assert.Error(t, err)
}

// TestDocumentServiceSignedURLRequiresCloud verifies the local-mode guard:
// without a storage client there is nothing to sign against.
func TestDocumentServiceSignedURLRequiresCloud(t *testing.T) {
	documentService := &services.DocumentService{Layout: test.NewTestLayout(t.TempDir())}

	_, err := documentService.GenerateSignedURL(context.Background(), test.TestMovie, 15*time.Minute)
	assert.Error(t, err)
}
