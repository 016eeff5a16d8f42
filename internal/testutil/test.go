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

// Package test provides utility functions and mock data to support the
// application's test suite. It helps in setting up a consistent test
// environment, loading test-specific configurations, and building on-disk
// merge workspaces with sample timing tables and phase fragments.
package test

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/cinemeta/scenemerge/internal/cloud"
	"github.com/cinemeta/scenemerge/internal/core/merge"
)

// Fixture movie identifiers used across the test suite. TestMovie is the
// movie every workspace fixture is built for; ForeignMovie appears only in
// fragments that a merge for TestMovie must exclude.
const (
	TestMovie    = "midnight_run"
	ForeignMovie = "heat"
)

// StateManager acts as a simple in-memory cache for the application
// configuration during test runs. This prevents the need to reload
// configuration files for every test, speeding up the test suite.
type StateManager struct {
	config *cloud.Config
}

// state is a package-level variable that holds the singleton instance of
// StateManager, ensuring that the configuration is loaded only once per run.
var state = &StateManager{}

// HandleErr is a simple test helper function that checks if an error is not nil.
// If an error exists, it fails the test immediately by calling t.Errorf.
// This is a convenience function to reduce boilerplate error-checking code in tests.
//
// Inputs:
//   - err: The error to check.
//   - t: The *testing.T object from the current test.
func HandleErr(err error, t *testing.T) {
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

// SetupOS configures the necessary environment variables that the
// configuration loader (`cloud.LoadConfig`) depends on. By setting these
// variables, we can direct the loader to use the test-specific configuration
// files (e.g., `configs/.env.test.toml`) instead of production ones.
//
// Returns:
//   - An error if setting any environment variable fails.
func SetupOS() (err error) {
	// Set the directory where the configuration files are located.
	err = os.Setenv(cloud.EnvConfigFilePrefix, "configs")
	if err != nil {
		return err
	}
	// Set the runtime environment identifier to "test". This causes the loader
	// to look for a file named ".env.test.toml" for overrides.
	err = os.Setenv(cloud.EnvConfigRuntime, "test")
	return err
}

// GetConfig is a singleton accessor for the test configuration.
// It ensures that the configuration is loaded from TOML files only once and
// is cached in the package-level `state` variable for subsequent calls.
//
// Returns:
//   - A pointer to the loaded and cached cloud.Config struct.
func GetConfig() *cloud.Config {
	// Check if the config is already cached.
	if state.config == nil {
		// If not cached, set up the OS environment for the test configuration.
		err := SetupOS()
		if err != nil {
			log.Fatalf("failed to setup environment for test: %v\n", err)
		}
		// Create a new, empty config struct.
		config := cloud.NewConfig()
		// Load the configuration from the TOML files into the struct.
		cloud.LoadConfig(&config)
		// Cache the loaded config in our state manager.
		state.config = config
	}
	// Return the cached configuration.
	return state.config
}

// NewLocalConfig builds a configuration for hermetic tests: a workspace
// rooted at the given directory, the default phase order, and no cloud
// resources configured. Tests use this instead of the TOML loader so they
// never depend on the process working directory.
//
// Inputs:
//   - root: The workspace root, typically t.TempDir().
//
// Outputs:
//   - *cloud.Config: A configuration suitable for offline merge runs.
func NewLocalConfig(root string) *cloud.Config {
	config := cloud.NewConfig()
	config.Application.Name = "scene-merge-test"
	config.Application.ThreadPoolSize = 2
	config.Workspace.Root = root
	config.Phases = cloud.DefaultPhases()
	return config
}

// NewTestLayout returns the workspace layout matching NewLocalConfig.
func NewTestLayout(root string) merge.Layout {
	return merge.Layout{
		Root:           root,
		TimingsDir:     "outputs/scenes",
		SceneIndexDir:  "outputs/scene_index",
		FinalOutputDir: "output_json",
	}
}

// TestPhases returns the default phase precedence as merge phases.
func TestPhases() []merge.Phase {
	phases := cloud.DefaultPhases()
	out := make([]merge.Phase, 0, len(phases))
	for _, p := range phases {
		out = append(out, merge.Phase{Name: p.Name, Path: p.Path})
	}
	return out
}

// GetTestMergeRequestText returns the JSON payload of a merge request as it
// would arrive on the merge-request Pub/Sub subscription or the merge API.
//
// Returns:
//   - A string containing the JSON payload of a merge request.
func GetTestMergeRequestText() string {
	return `{"movie": "midnight_run", "strict": false}`
}

// WriteJSON marshals v with two-space indentation and writes it to path,
// creating parent directories as needed. Any failure fails the test.
//
// Inputs:
//   - t: The current test.
//   - path: The destination file path.
//   - v: The value to marshal.
func WriteJSON(t *testing.T, path string, v interface{}) {
	t.Helper()
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		t.Fatalf("failed to marshal fixture %s: %v", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create fixture dir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("failed to write fixture %s: %v", path, err)
	}
}

// WriteTestTimings writes the timing table for TestMovie: three scenes in
// canonical order.
//
// Inputs:
//   - t: The current test.
//   - root: The workspace root directory.
func WriteTestTimings(t *testing.T, root string) {
	t.Helper()
	WriteJSON(t, filepath.Join(root, "outputs", "scenes", TestMovie+"_scenes.json"), map[string]interface{}{
		"movie": TestMovie,
		"scenes": []map[string]interface{}{
			{"scene_id": "scene_0001", "start_time": 0.0, "end_time": 45.5, "duration": 45.5},
			{"scene_id": "scene_0002", "start_time": 45.5, "end_time": 92.0, "duration": 46.5},
			{"scene_id": "scene_0003", "start_time": 92.0, "end_time": 120.0, "duration": 28.0},
		},
	})
}

// WriteTestWorkspace builds a complete merge workspace for TestMovie under
// root: the timing table plus fragments across several phases, deliberately
// mixing the id conventions real phase outputs use. It also plants a fragment
// for ForeignMovie and one malformed file, both of which a merge run for
// TestMovie must tolerate.
//
// Inputs:
//   - t: The current test.
//   - root: The workspace root directory, typically t.TempDir().
func WriteTestWorkspace(t *testing.T, root string) {
	t.Helper()
	WriteTestTimings(t, root)

	// Qualified id, per-movie subfolder.
	WriteJSON(t, filepath.Join(root, "outputs", "dialogue", TestMovie, TestMovie+"_scene_0001.json"), map[string]interface{}{
		"scene_id": TestMovie + "_scene_0001",
		"movie_id": TestMovie,
		"dialogue_text": []map[string]interface{}{
			{"speaker": "Jack", "line": "Come on, get in the car."},
		},
		"profanity_present": true,
		"location":          "diner",
	})

	// Local ids, one file carrying a list of fragments.
	WriteJSON(t, filepath.Join(root, "outputs", "visuals", TestMovie+"_scene_visuals.json"), []map[string]interface{}{
		{"scene_id": "scene_0001", "lighting_style": "low_key", "color_tone": "cool"},
		{"scene_id": "scene_0002", "lighting_style": "natural"},
	})

	// Local id, flat folder.
	WriteJSON(t, filepath.Join(root, "outputs", "objects", "scene_0002.json"), map[string]interface{}{
		"scene_id": "scene_0002",
		"objects":  []string{"car", "handcuffs"},
	})

	// Fragment for a different movie; it must not leak into TestMovie's merge.
	WriteJSON(t, filepath.Join(root, "outputs", "context", ForeignMovie+"_scene_0001.json"), map[string]interface{}{
		"scene_id": ForeignMovie + "_scene_0001",
		"movie_id": ForeignMovie,
		"location": "bank",
	})

	// Malformed file; the loader logs and skips it.
	badPath := filepath.Join(root, "outputs", "emotion", "broken.json")
	if err := os.MkdirAll(filepath.Dir(badPath), 0o755); err != nil {
		t.Fatalf("failed to create fixture dir: %v", err)
	}
	if err := os.WriteFile(badPath, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
}
