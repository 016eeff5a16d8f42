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

// Package services contains the business logic for interacting with data
// sources. This file defines the DocumentService, which serves the per-movie
// merge documents: the canonical document and provenance map from the local
// workspace, and time-limited signed URLs for the copies published to the
// document bucket.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/storage"

	"github.com/cinemeta/scenemerge/internal/core/merge"
	"github.com/cinemeta/scenemerge/internal/core/model"
)

// DocumentService reads merge documents and signs URLs for their published
// copies.
type DocumentService struct {
	Layout         merge.Layout                      // The workspace layout the documents were written under.
	StorageClient  *storage.Client                   // Client for Google Cloud Storage; nil when running locally.
	IAMClient      *credentials.IamCredentialsClient // Client for IAM, used when signing URLs.
	SignerEmail    string                            // The service account email used to sign URLs.
	DocumentBucket string                            // The bucket the merge workflow publishes documents to.
}

// GetDocument reads a movie's complete-schema document from the workspace.
//
// Outputs:
//   - *model.CanonicalDocument: The decoded document.
//   - error: An os.ErrNotExist-wrapping error when the movie has never been
//     merged.
func (s *DocumentService) GetDocument(movie string) (*model.CanonicalDocument, error) {
	raw, err := os.ReadFile(s.Layout.DocumentPath(movie))
	if err != nil {
		return nil, fmt.Errorf("reading document for %q: %w", movie, err)
	}
	doc := &model.CanonicalDocument{}
	if err := json.Unmarshal(raw, doc); err != nil {
		return nil, fmt.Errorf("parsing document for %q: %w", movie, err)
	}
	return doc, nil
}

// GetProvenance reads a movie's provenance side-file from the workspace.
func (s *DocumentService) GetProvenance(movie string) (model.ProvenanceMap, error) {
	raw, err := os.ReadFile(s.Layout.ProvenancePath(movie))
	if err != nil {
		return nil, fmt.Errorf("reading provenance for %q: %w", movie, err)
	}
	provenance := model.ProvenanceMap{}
	if err := json.Unmarshal(raw, &provenance); err != nil {
		return nil, fmt.Errorf("parsing provenance for %q: %w", movie, err)
	}
	return provenance, nil
}

// GenerateSignedURL creates a time-limited, secure URL for a movie's
// published complete-schema document, so consumers can fetch it straight
// from GCS without their own credentials.
//
// Inputs:
//   - ctx: The context for the request.
//   - movie: The movie identifier.
//   - expires: The duration for which the URL will be valid.
//
// Outputs:
//   - string: The generated signed URL.
//   - error: An error when cloud connectivity is unavailable or signing fails.
func (s *DocumentService) GenerateSignedURL(ctx context.Context, movie string, expires time.Duration) (string, error) {
	if s.StorageClient == nil {
		return "", fmt.Errorf("signed URLs require cloud connectivity")
	}
	objectName := filepath.Base(s.Layout.DocumentPath(movie))

	opts := &storage.SignedURLOptions{
		Scheme:         storage.SigningSchemeV4,
		Method:         "GET",
		Expires:        time.Now().Add(expires),
		GoogleAccessID: s.SignerEmail,
	}

	u, err := s.StorageClient.Bucket(s.DocumentBucket).SignedURL(objectName, opts)
	if err != nil {
		return "", fmt.Errorf("Bucket(%q).Object(%q).SignedURL: %w", s.DocumentBucket, objectName, err)
	}
	return u, nil
}
