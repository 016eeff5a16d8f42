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

// This file tests the listener's per-message dispatch in isolation, without
// a live subscription. It lives in the cloud package itself because dispatch
// is an internal seam between Receive and the attached command.
package cloud

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/cinemeta/scenemerge/internal/core/cor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scratchFileCommand simulates a workflow command that stages its payload in
// a temporary file and registers it with the chain context for cleanup.
type scratchFileCommand struct {
	cor.BaseCommand
	fail     bool
	lastFile string
}

func (c *scratchFileCommand) Execute(ctx cor.Context) {
	f, err := os.CreateTemp("", "merge-request-*.json")
	if err != nil {
		ctx.AddError(c.GetName(), err)
		return
	}
	_ = f.Close()
	c.lastFile = f.Name()
	ctx.AddTempFile(f.Name())
	if c.fail {
		ctx.AddError(c.GetName(), errors.New("merge failed"))
	}
}

// TestDispatchAcksAndClosesContext verifies that a successful dispatch
// reports the message as acknowledgeable and closes the chain context, so
// temporary files are reclaimed per message.
func TestDispatchAcksAndClosesContext(t *testing.T) {
	cmd := &scratchFileCommand{BaseCommand: *cor.NewBaseCommand("scratch-file")}
	listener := &PubSubListener{command: cmd}

	ack := listener.dispatch(context.Background(), `{"movie": "midnight_run", "strict": false}`)

	assert.True(t, ack)
	require.NotEmpty(t, cmd.lastFile)
	_, err := os.Stat(cmd.lastFile)
	assert.True(t, os.IsNotExist(err))
}

// TestDispatchFailureStillCleansUp verifies that a failed dispatch withholds
// the acknowledgement for redelivery but still reclaims temporary files.
func TestDispatchFailureStillCleansUp(t *testing.T) {
	cmd := &scratchFileCommand{BaseCommand: *cor.NewBaseCommand("scratch-file"), fail: true}
	listener := &PubSubListener{command: cmd}

	ack := listener.dispatch(context.Background(), `{"movie": "midnight_run", "strict": false}`)

	assert.False(t, ack)
	require.NotEmpty(t, cmd.lastFile)
	_, err := os.Stat(cmd.lastFile)
	assert.True(t, os.IsNotExist(err))
}
