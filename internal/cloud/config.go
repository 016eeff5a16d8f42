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

// Package cloud defines the data structures for application configuration,
// loaded from TOML files, plus the clients for the Google Cloud services the
// merge pipeline talks to: Cloud Storage for fragment and document sync,
// Pub/Sub for merge triggers and completion events, BigQuery for the scene
// catalog and Vertex AI for the generative summarizer.
//
// Structs:
//   - WorkspaceConfig: On-disk layout of the merge workspace.
//   - PhaseConfig: One ordered analysis phase and its fragment folder.
//   - BigQueryDataSource: Configuration for the BigQuery scene catalog.
//   - VertexAiLLMModel: Configuration for a Vertex AI Large Language Model.
//   - TopicSubscription: Configuration for a single Pub/Sub subscription.
//   - Storage: Configuration for Google Cloud Storage buckets.
//   - Config: The top-level struct aggregating everything above.
//
// Functions:
//   - NewConfig: A constructor that initializes a new Config object.
package cloud

import "google.golang.org/genai"

// DefaultSafetySettings defines the default content safety thresholds for GenAI
// models. Scene summaries frequently describe violence or strong language that
// is legitimate analysis output, so all categories pass through unblocked.
var DefaultSafetySettings = []*genai.SafetySetting{
	{
		Category:  genai.HarmCategoryDangerousContent,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHarassment,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHateSpeech,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategorySexuallyExplicit,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
}

// WorkspaceConfig describes the on-disk layout of the merge workspace. All
// folders are relative to Root.
type WorkspaceConfig struct {
	Root           string `toml:"root"`             // The workspace root directory.
	TimingsDir     string `toml:"timings_dir"`      // Folder of per-movie scene timing tables.
	SceneIndexDir  string `toml:"scene_index_dir"`  // Folder receiving canonical lists and provenance files.
	FinalOutputDir string `toml:"final_output_dir"` // Folder receiving complete-schema documents.
}

// PhaseConfig is one upstream analysis phase. Phases are declared as ordered
// TOML tables; their declaration order is the merge precedence order.
type PhaseConfig struct {
	Name string `toml:"name"` // Logical phase name, e.g. "dialogue".
	Path string `toml:"path"` // Fragment folder relative to the workspace root.
}

// BigQueryDataSource represents the configuration for the scene catalog.
type BigQueryDataSource struct {
	DatasetName string `toml:"dataset"`     // The name of the BigQuery dataset.
	SceneTable  string `toml:"scene_table"` // The table holding canonical scene rows.
}

// PromptTemplates holds the templates for prompts sent to GenAI models.
type PromptTemplates struct {
	SummaryPrompt string `toml:"summary"` // The template for generating scene summaries.
}

// VertexAiLLMModel represents the configuration for a Vertex AI large
// language model (LLM).
type VertexAiLLMModel struct {
	Model              string  `toml:"model"`               // The name of the Vertex AI LLM.
	SystemInstructions string  `toml:"system_instructions"` // The system instructions for the LLM.
	Temperature        float32 `toml:"temperature"`         // The temperature parameter for the LLM.
	TopP               float32 `toml:"top_p"`               // The top_p parameter for the LLM.
	TopK               float32 `toml:"top_k"`               // The top_k parameter for the LLM.
	MaxTokens          int32   `toml:"max_tokens"`          // The maximum number of tokens for the LLM output.
	OutputFormat       string  `toml:"output_format"`       // The desired output format for the LLM.
	RateLimit          int     `toml:"rate_limit"`          // The rate limit for the LLM in requests per second.
}

// TopicSubscription represents the configuration for a Pub/Sub subscription.
type TopicSubscription struct {
	Name             string `toml:"name"`               // The name of the Pub/Sub subscription.
	DeadLetterTopic  string `toml:"dead_letter_topic"`  // The name of the dead-letter topic for the subscription.
	TimeoutInSeconds int    `toml:"timeout_in_seconds"` // The timeout for the subscription in seconds.
}

// Storage represents the configuration for storage buckets.
type Storage struct {
	FragmentBucket string `toml:"fragment_bucket"` // Bucket upstream phases upload fragments to.
	DocumentBucket string `toml:"document_bucket"` // Bucket canonical documents are published to.
}

// Config represents the overall configuration for the application, loaded
// from TOML files. It acts as the root container for all other configuration
// structs.
type Config struct {
	// Application holds general application settings.
	Application struct {
		Name                      string `toml:"name"`                         // The name of the application.
		GoogleProjectId           string `toml:"google_project_id"`            // The Google Cloud project ID.
		GoogleLocation            string `toml:"location"`                     // The Google Cloud location.
		ThreadPoolSize            int    `toml:"thread_pool_size"`             // The size of the worker pool for batch merges.
		SignerServiceAccountEmail string `toml:"signer_service_account_email"` // The service account email used for signing GCS URLs.
		CompletionTopic           string `toml:"completion_topic"`             // The Pub/Sub topic merge completion events are published to.
	} `toml:"application"`
	Workspace          WorkspaceConfig              `toml:"workspace"`             // Merge workspace layout.
	Phases             []PhaseConfig                `toml:"phases"`                // Ordered analysis phases; order is merge precedence.
	Storage            Storage                      `toml:"storage"`               // Storage configuration.
	BigQueryDataSource BigQueryDataSource           `toml:"big_query_data_source"` // BigQuery scene catalog configuration.
	PromptTemplates    PromptTemplates              `toml:"prompt_templates"`      // Prompt templates configuration.
	TopicSubscriptions map[string]TopicSubscription `toml:"topic_subscriptions"`   // Pub/Sub subscriptions, keyed by logical name (e.g. "MergeRequests").
	AgentModels        map[string]VertexAiLLMModel  `toml:"agent_models"`          // Vertex AI LLM models, keyed by logical name (e.g. "summarizer").
}

// DefaultPhases is the phase order used when the configuration declares
// none. It matches the order upstream analysis normally completes in.
func DefaultPhases() []PhaseConfig {
	return []PhaseConfig{
		{Name: "segments", Path: "outputs/scenes"},
		{Name: "actors", Path: "outputs/actors"},
		{Name: "visuals", Path: "outputs/visuals"},
		{Name: "objects", Path: "outputs/objects"},
		{Name: "context", Path: "outputs/context"},
		{Name: "dialogue", Path: "outputs/dialogue"},
		{Name: "emotion", Path: "outputs/emotion"},
		{Name: "speakers", Path: "outputs/speakers"},
	}
}

// NewConfig is a constructor function that creates a new, initialized Config
// instance. The maps must be initialized before the loader populates them to
// avoid nil map writes, and the workspace folders carry the conventional
// defaults so a minimal config file works out of the box.
//
// Outputs:
//   - *Config: A pointer to a new Config struct with defaults applied.
func NewConfig() *Config {
	c := &Config{
		TopicSubscriptions: make(map[string]TopicSubscription),
		AgentModels:        make(map[string]VertexAiLLMModel),
	}
	c.Workspace = WorkspaceConfig{
		Root:           ".",
		TimingsDir:     "outputs/scenes",
		SceneIndexDir:  "outputs/scene_index",
		FinalOutputDir: "output_json",
	}
	return c
}
