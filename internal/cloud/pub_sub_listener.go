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

// Package cloud provides components for interacting with Google Cloud services.
// This file defines a generic, reusable Pub/Sub message listener. Receiving
// messages from a subscription is abstracted away from message processing,
// which is delegated to a "Command" from the chain-of-responsibility package.
// The merge pipeline uses one listener per subscription: merge requests
// arriving as {"movie": ..., "strict": ...} payloads are dispatched to the
// master merge workflow.
//
// Logic Flow:
//  1. A PubSubListener is created with a client and a subscription ID.
//  2. A Command is attached to the listener.
//  3. Listen starts a background goroutine that waits for messages.
//  4. Each message is handed to the Command inside a fresh chain context.
//  5. The message is Ack'd only if the Command completes without errors, so
//     failed merges are redelivered under the subscription's retry policy.
//
// Structs:
//   - PubSubListener: Connects one subscription to one processing command.
//
// Functions:
//   - NewPubSubListener: Constructor for creating a new PubSubListener.
//   - SetCommand: Attaches a processing command to the listener.
//   - Listen: Starts the background process to receive and handle messages.
package cloud

import (
	"context"
	"log"

	"cloud.google.com/go/pubsub"
	"github.com/cinemeta/scenemerge/internal/core/cor"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// PubSubListener encapsulates the components needed to listen to one Google
// Cloud Pub/Sub subscription. Listeners have a life-cycle independent of
// individual API requests, so they live here rather than with the API layer.
type PubSubListener struct {
	client       *pubsub.Client       // The client for interacting with the Pub/Sub service.
	subscription *pubsub.Subscription // The subscription this listener pulls messages from.
	command      cor.Command          // The command to execute for each message received.
}

// NewPubSubListener is the constructor for creating a PubSubListener.
//
// Inputs:
//   - pubsubClient: An authenticated *pubsub.Client.
//   - subscriptionID: The string ID of the subscription.
//   - command: A cor.Command with the business logic to run per message. May
//     be nil at construction time and attached later via SetCommand.
//
// Outputs:
//   - *PubSubListener: A pointer to the configured listener.
//   - error: Reserved for future construction failures.
func NewPubSubListener(
	pubsubClient *pubsub.Client,
	subscriptionID string,
	command cor.Command,
) (cmd *PubSubListener, err error) {
	sub := pubsubClient.Subscription(subscriptionID)

	cmd = &PubSubListener{
		client:       pubsubClient,
		subscription: sub,
		command:      command,
	}
	return cmd, nil
}

// SetCommand attaches a command to the listener. Listeners are created
// before the workflows they dispatch to are assembled, so the command
// arrives late; an already-attached command is never overwritten.
func (m *PubSubListener) SetCommand(command cor.Command) {
	if m.command == nil {
		m.command = command
	}
}

// Listen starts the asynchronous message receiving process in a background
// goroutine so the server can keep handling API requests.
//
// Inputs:
//   - ctx: Controls the lifecycle of the listener; cancel it to stop
//     receiving during graceful shutdown.
func (m *PubSubListener) Listen(ctx context.Context) {
	log.Printf("listening: %s", m.subscription)

	go func() {
		err := m.subscription.Receive(ctx, func(_ context.Context, msg *pubsub.Message) {
			log.Println("received message")
			if m.dispatch(ctx, string(msg.Data)) {
				msg.Ack()
			}
			// No Ack or Nack on failure: the message is redelivered after
			// its acknowledgement deadline expires.
		})

		if err != nil {
			log.Printf("error receiving data: %v", err)
		}
	}()
}

// dispatch runs one message payload through the attached command inside a
// fresh chain context and reports whether the message should be
// acknowledged. The chain context is always closed, so temporary files
// commands register are reclaimed per message rather than at process exit.
func (m *PubSubListener) dispatch(ctx context.Context, data string) bool {
	tracer := otel.Tracer("message-listener")
	spanCtx, span := tracer.Start(ctx, "receive-message")
	defer span.End()
	span.SetAttributes(attribute.String("msg", data))

	chainCtx := cor.NewBaseContext()
	defer chainCtx.Close()
	chainCtx.SetContext(spanCtx)
	chainCtx.Add(cor.CtxIn, data)

	m.command.Execute(chainCtx)

	if chainCtx.HasErrors() {
		span.SetStatus(codes.Error, "failed")
		for _, e := range chainCtx.GetErrors() {
			log.Printf("error executing chain: %v", e)
		}
		return false
	}
	span.SetStatus(codes.Ok, "success")
	return true
}
