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

// Package workflow_test contains tests for the high-level orchestrations.
// This file, `base_test.go`, provides the shared setup for the suite via
// TestMain: a root context plus the tracer and logger the tests emit
// telemetry through. The suite runs entirely against local workspaces, so
// no cloud clients are initialized here.
package workflow_test

import (
	"context"
	"os"
	"testing"

	"github.com/cinemeta/scenemerge/internal/cloud"
	test "github.com/cinemeta/scenemerge/internal/testutil"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
)

const tName = "github.com/cinemeta/scenemerge/tests/workflow"

var (
	ctx    context.Context
	config *cloud.Config
	tracer = otel.Tracer(tName)
	logger = otelslog.NewLogger(tName)
)

// TestMain is the entry point for the workflow test suite. It creates the
// root context and configuration shared by the tests and tears them down
// once the suite finishes.
func TestMain(m *testing.M) {
	var cancel context.CancelFunc
	ctx, cancel = context.WithCancel(context.Background())

	config = test.GetConfig()

	logger.Info("completed test setup", "application", config.Application.Name)

	exitCode := m.Run()

	cancel()
	os.Exit(exitCode)
}
