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

// Package main contains the logic for setting up and starting the Pub/Sub message listeners.
// These listeners are responsible for initiating backend processing workflows in response to
// events, such as merge requests published by upstream analysis phases.
//
// Functions:
//   - SetupListeners: Initializes and starts the listener for the merge-request
//     topic, attaching the master merge workflow.
package main

import (
	"context"

	"github.com/cinemeta/scenemerge/internal/cloud"
	"github.com/cinemeta/scenemerge/internal/core/workflow"
)

// MergeRequestListener is the logical name of the subscription that carries
// merge-request messages. It must match a key in the topic_subscriptions
// table of the configuration file.
const MergeRequestListener = "MergeRequests"

// SetupListeners configures and starts the background Pub/Sub listeners.
// It creates the master merge workflow and attaches it to the merge-request
// topic listener.
//
// Inputs:
//   - config: The application's configuration, containing settings for storage, topics, etc.
//   - cloudClients: A struct containing all the initialized Google Cloud service clients.
//   - ctx: The application's root context, used to manage the lifecycle of the listeners.
//
// Outputs:
//   - This function does not return any value. It starts the listeners as background goroutines.
func SetupListeners(config *cloud.Config, cloudClients *cloud.ServiceClients, ctx context.Context) {
	listener, ok := cloudClients.PubSubListeners[MergeRequestListener]
	if !ok {
		// No merge-request subscription configured; merges are API-driven only.
		return
	}

	// Create the master merge workflow. The message payload is the JSON merge
	// request, which the first command in the chain parses.
	masterMerge := workflow.NewMasterMergeWorkflow(config, cloudClients)
	// Assign the merge workflow as the command to be executed by the listener.
	listener.SetCommand(masterMerge)
	// Start the listener in a background goroutine. It will now begin receiving
	// and processing messages from its subscription.
	listener.Listen(ctx)
}
