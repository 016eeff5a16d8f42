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
// sources. This file defines the MergeService, the synchronous entry point
// to the master merge workflow used by the API layer. The Pub/Sub listener
// and this service execute the exact same chain, so a merge behaves
// identically however it was triggered.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/cinemeta/scenemerge/internal/cloud"
	"github.com/cinemeta/scenemerge/internal/core/commands"
	"github.com/cinemeta/scenemerge/internal/core/cor"
	"github.com/cinemeta/scenemerge/internal/core/merge"
	"github.com/cinemeta/scenemerge/internal/core/model"
	"github.com/cinemeta/scenemerge/internal/core/workflow"
)

// MergeService runs master merges on demand, one movie per call. Movies are
// fully isolated: all inputs and outputs are movie-parameterized, so merges
// for distinct movies can run concurrently.
type MergeService struct {
	Config   *cloud.Config
	Clients  *cloud.ServiceClients
	workflow *workflow.MasterMergeWorkflow
}

// NewMergeService is the constructor for the MergeService.
//
// Inputs:
//   - config: The application's overall configuration.
//   - clients: Initialized GCP clients, or nil for local-only merges.
func NewMergeService(config *cloud.Config, clients *cloud.ServiceClients) *MergeService {
	return &MergeService{
		Config:   config,
		Clients:  clients,
		workflow: workflow.NewMasterMergeWorkflow(config, clients),
	}
}

// RunMerge executes one master merge for one movie and returns its report.
//
// Inputs:
//   - ctx: The context for the run, carrying cancellation and tracing.
//   - movie: The movie identifier.
//   - strict: When true, schema validation issues fail the run (the
//     documents are still written first).
//
// Outputs:
//   - *model.MergeRunReport: The run report; non-nil whenever the run got
//     far enough to build scenes, even on strict validation failure.
//   - error: merge.ErrMissingTimings when the timing table is absent,
//     merge.ErrStrictValidation on a strict failure, or the first workflow
//     error otherwise.
func (s *MergeService) RunMerge(ctx context.Context, movie string, strict bool) (*model.MergeRunReport, error) {
	payload, err := json.Marshal(commands.MergeRequest{Movie: movie, Strict: strict})
	if err != nil {
		return nil, fmt.Errorf("encoding merge request: %w", err)
	}

	chainCtx := cor.NewBaseContext()
	defer chainCtx.Close()
	chainCtx.SetContext(ctx)
	chainCtx.Add(cor.CtxIn, string(payload))

	s.workflow.Execute(chainCtx)

	report := commands.AssembleReport(chainCtx)

	if chainCtx.HasErrors() {
		var runErr error
		for _, e := range chainCtx.GetErrors() {
			if errors.Is(e, merge.ErrMissingTimings) {
				return nil, e
			}
			runErr = errors.Join(runErr, e)
		}
		if strict && report.ValidationIssues > 0 {
			return report, fmt.Errorf("%w: movie %q had %d issues", merge.ErrStrictValidation, movie, report.ValidationIssues)
		}
		return report, runErr
	}
	return report, nil
}

// RunBatch merges several movies concurrently using a worker pool sized by
// the configured thread pool. Each movie succeeds or fails independently.
//
// Outputs:
//   - map[string]*model.MergeRunReport: Reports keyed by movie, for every
//     movie that produced one.
//   - map[string]error: Errors keyed by movie, for every movie that failed.
func (s *MergeService) RunBatch(ctx context.Context, movies []string, strict bool) (map[string]*model.MergeRunReport, map[string]error) {
	workers := s.Config.Application.ThreadPoolSize
	if workers < 1 {
		workers = 1
	}

	var mu sync.Mutex
	reports := make(map[string]*model.MergeRunReport, len(movies))
	failures := make(map[string]error)

	jobs := make(chan string)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for movie := range jobs {
				report, err := s.RunMerge(ctx, movie, strict)
				mu.Lock()
				if report != nil {
					reports[movie] = report
				}
				if err != nil {
					failures[movie] = err
				}
				mu.Unlock()
			}
		}()
	}
	for _, movie := range movies {
		jobs <- movie
	}
	close(jobs)
	wg.Wait()

	return reports, failures
}
