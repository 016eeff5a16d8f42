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

// Package commands_test contains unit tests for the workflow commands. This
// file covers the merge request reader, the first command of the master
// merge chain.
package commands_test

import (
	"context"
	"testing"

	"github.com/cinemeta/scenemerge/internal/core/commands"
	"github.com/cinemeta/scenemerge/internal/core/cor"
	test "github.com/cinemeta/scenemerge/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newChainContext() cor.Context {
	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(context.Background())
	return chainCtx
}

// TestMergeRequestReaderParsesPayload verifies that a valid request payload
// yields the movie and strict flag in the chain context.
func TestMergeRequestReaderParsesPayload(t *testing.T) {
	reader := commands.NewMergeRequestReader("merge-request-reader")
	chainCtx := newChainContext()
	chainCtx.Add(cor.CtxIn, test.GetTestMergeRequestText())

	require.True(t, reader.IsExecutable(chainCtx))
	reader.Execute(chainCtx)

	require.False(t, chainCtx.HasErrors())
	assert.Equal(t, test.TestMovie, chainCtx.Get(commands.CtxMovie))
	assert.Equal(t, false, chainCtx.Get(commands.CtxStrict))
	assert.Equal(t, test.TestMovie, chainCtx.Get(cor.CtxOut))
}

// TestMergeRequestReaderRejectsBadPayloads verifies the error paths: a
// non-string input, invalid JSON, and a request without a movie.
func TestMergeRequestReaderRejectsBadPayloads(t *testing.T) {
	for _, payload := range []interface{}{
		42,
		"{not json",
		`{"strict": true}`,
	} {
		reader := commands.NewMergeRequestReader("merge-request-reader")
		chainCtx := newChainContext()
		chainCtx.Add(cor.CtxIn, payload)

		reader.Execute(chainCtx)
		assert.True(t, chainCtx.HasErrors(), "payload %v", payload)
	}
}
