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
// mirrors phase fragments from the fragment bucket into the local merge
// workspace before a merge runs. Upstream analysis phases upload their
// fragments to GCS under the same relative paths the workspace uses, so
// the sync is a straight prefix copy.
//
// Sync failures on individual objects are tolerated the same way malformed
// local fragments are: logged and skipped, never fatal. Partial phase output
// must not block the merge.
package commands

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/cinemeta/scenemerge/internal/core/cor"
)

// FragmentSyncFromGCS is a command that downloads a movie's phase fragments
// from the fragment bucket into the workspace.
type FragmentSyncFromGCS struct {
	cor.BaseCommand
	client        *storage.Client // The client for interacting with GCS.
	bucket        string          // The fragment bucket name.
	workspaceRoot string          // The local workspace root the objects land under.
}

// NewFragmentSyncFromGCS is the constructor for the FragmentSyncFromGCS
// command.
func NewFragmentSyncFromGCS(name string, client *storage.Client, bucket string, workspaceRoot string) *FragmentSyncFromGCS {
	return &FragmentSyncFromGCS{
		BaseCommand:   *cor.NewBaseCommand(name),
		client:        client,
		bucket:        bucket,
		workspaceRoot: workspaceRoot,
	}
}

// IsExecutable requires the movie identifier to be present.
func (s *FragmentSyncFromGCS) IsExecutable(context cor.Context) bool {
	return context != nil && context.Get(CtxMovie) != nil
}

// Execute lists every JSON object whose name mentions the movie and copies
// it to the same relative path under the workspace root.
func (s *FragmentSyncFromGCS) Execute(context cor.Context) {
	movie := context.Get(CtxMovie).(string)
	ctx := context.GetContext()

	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: "outputs/"})
	synced := 0
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			s.GetErrorCounter().Add(ctx, 1)
			context.AddError(s.GetName(), fmt.Errorf("listing fragment bucket %q: %w", s.bucket, err))
			return
		}
		if !strings.HasSuffix(attrs.Name, ".json") || !strings.Contains(attrs.Name, movie) {
			continue
		}

		localPath := filepath.Join(s.workspaceRoot, filepath.FromSlash(attrs.Name))
		if err := s.download(context, attrs.Name, localPath); err != nil {
			log.Printf("skipping fragment %s: %v", attrs.Name, err)
			continue
		}
		synced++
	}

	log.Printf("synced %d fragment objects for movie %q", synced, movie)
	context.Add(s.GetOutputParam(), movie)
	s.GetSuccessCounter().Add(ctx, 1)
}

func (s *FragmentSyncFromGCS) download(context cor.Context, object string, localPath string) error {
	reader, err := s.client.Bucket(s.bucket).Object(object).NewReader(context.GetContext())
	if err != nil {
		return err
	}
	defer func() { _ = reader.Close() }()

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return err
	}
	file, err := os.Create(localPath)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	_, err = io.Copy(file, reader)
	return err
}
