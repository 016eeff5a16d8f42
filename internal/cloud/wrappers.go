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
// This file implements a decorator around the Generative AI client that adds
// rate limiting and a retry mechanism. Vertex AI enforces per-minute quotas,
// and the summarizer can submit large batches of scenes in a tight loop, so
// every model handle in the application goes through this wrapper.
//
// Structs:
//   - QuotaAwareGenerativeAIModel: Wraps a model handle with a rate limiter.
//
// Functions:
//   - NewQuotaAwareModel: A constructor for the wrapped model.
//   - GenerateContent: An overridden method that enforces rate limiting and
//     retries before delegating to the underlying model.
package cloud

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

type retryCountKey struct{}

// QuotaAwareGenerativeAIModel is a decorator struct that wraps a generative
// model handle and its request configuration with rate-limiting.
type QuotaAwareGenerativeAIModel struct {
	GenerativeContentConfig *genai.GenerateContentConfig // The request configuration applied to every call.
	ModelName               string                       // The Vertex AI model name.
	ModelHandle             *genai.Models                // The underlying model handle.
	RateLimit               rate.Limiter                 // Controls request frequency.
}

// NewQuotaAwareModel is a constructor function that creates a new
// QuotaAwareGenerativeAIModel from a model handle and a rate limit in
// requests per second.
func NewQuotaAwareModel(wrapped *genai.GenerateContentConfig, name string, modelHandle *genai.Models, requestsPerSecond int) *QuotaAwareGenerativeAIModel {
	return &QuotaAwareGenerativeAIModel{
		GenerativeContentConfig: wrapped,
		ModelName:               name,
		ModelHandle:             modelHandle,
		// Allows a burst of requestsPerSecond events, replenished at one
		// token per second.
		RateLimit: *rate.NewLimiter(rate.Every(time.Second/1), requestsPerSecond),
	}
}

// GenerateContent enforces the rate limit and retry policy around the
// underlying model call.
//
// Logic Flow:
//  1. Check the rate limiter.
//  2. If a request is allowed, call the underlying model; on failure, retry
//     up to three times with a cool-down between attempts.
//  3. If the rate limiter denies the request, wait briefly and re-queue.
//
// Outputs:
//   - *genai.GenerateContentResponse: The model response on success.
//   - error: An error once all retries are exhausted.
func (q *QuotaAwareGenerativeAIModel) GenerateContent(ctx context.Context, content []*genai.Content) (resp *genai.GenerateContentResponse, err error) {
	if q.RateLimit.Allow() {
		resp, err = q.ModelHandle.GenerateContent(ctx, q.ModelName, content, q.GenerativeContentConfig)
		if err != nil {
			retryCount, ok := ctx.Value(retryCountKey{}).(int)
			if !ok {
				retryCount = 0
			}
			if retryCount > 3 {
				return nil, errors.New("failed generation on max retries")
			}
			errCtx := context.WithValue(ctx, retryCountKey{}, retryCount+1)
			// Give the service time to recover before retrying.
			time.Sleep(time.Minute * 1)
			return q.GenerateContent(errCtx, content)
		}
		return resp, err
	}
	// Rate limited: pause this request, then try for a token again.
	time.Sleep(time.Second * 5)
	return q.GenerateContent(ctx, content)
}
