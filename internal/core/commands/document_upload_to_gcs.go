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
// Responsibility Command interface. This file defines the command that
// publishes the three freshly written merge documents to the document
// bucket, where downstream consumers (and the signed-URL API) read them.
package commands

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"cloud.google.com/go/storage"

	"github.com/cinemeta/scenemerge/internal/core/cor"
)

// DocumentUploadToGCS is a command that uploads the written merge documents
// to the document bucket.
type DocumentUploadToGCS struct {
	cor.BaseCommand
	client *storage.Client // The client for interacting with GCS.
	bucket string          // The document bucket name.
}

// NewDocumentUploadToGCS is the constructor for the DocumentUploadToGCS
// command.
func NewDocumentUploadToGCS(name string, client *storage.Client, bucket string) *DocumentUploadToGCS {
	return &DocumentUploadToGCS{BaseCommand: *cor.NewBaseCommand(name), client: client, bucket: bucket}
}

// IsExecutable requires the writer command to have recorded the paths.
func (s *DocumentUploadToGCS) IsExecutable(context cor.Context) bool {
	return context != nil && context.Get(CtxPaths) != nil
}

// Execute uploads each of the three documents under its base name. Objects
// are keyed by movie, so re-running a merge overwrites the previous upload.
func (s *DocumentUploadToGCS) Execute(context cor.Context) {
	paths := context.Get(CtxPaths).(*MergePaths)
	movie, _ := context.Get(CtxMovie).(string)

	for _, path := range []string{paths.Canonical, paths.Provenance, paths.Document} {
		if err := s.upload(context, path); err != nil {
			s.GetErrorCounter().Add(context.GetContext(), 1)
			context.AddError(s.GetName(), fmt.Errorf("uploading %s: %w", path, err))
			return
		}
	}

	log.Printf("uploaded merge documents for movie %q to gs://%s", movie, s.bucket)
	context.Add(s.GetOutputParam(), context.Get(s.GetInputParam()))
	s.GetSuccessCounter().Add(context.GetContext(), 1)
}

func (s *DocumentUploadToGCS) upload(context cor.Context, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	writer := s.client.Bucket(s.bucket).Object(filepath.Base(path)).NewWriter(context.GetContext())
	writer.ContentType = "application/json"
	if _, err := io.Copy(writer, file); err != nil {
		_ = writer.Close()
		return err
	}
	return writer.Close()
}
