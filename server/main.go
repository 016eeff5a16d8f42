// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
// *****************************************************************************************************//
// Package main is the entry point for the scene merge backend server.
//
// This application sets up and runs a web server using the Gin framework. It provides a REST API
// for running master merges, retrieving canonical scene documents, and uploading phase fragments.
// The server is instrumented with OpenTelemetry for logging, tracing, and metrics, providing
// observability into the application's performance.
//
// The main function initializes the application's configuration, sets up logging and telemetry,
// and initializes the application state, including clients for Google Cloud services. It defines
// API routes for triggering merges, fetching canonical and provenance documents, generating
// signed download URLs, and uploading phase fragment files.
//
// The server also sets up and manages a background listener on the merge-request Pub/Sub topic,
// so merges can be triggered by upstream analysis phases as well as by the API.
//
// Functions:
//   - main: The main entry point of the application. It sets up the server, configures routes,
//     initializes services, and handles graceful shutdown.
//   - MergeRouter: Sets up the API routes that trigger single and batch master merges.
//   - MovieRouter: Sets up the API routes that serve merged documents, provenance maps,
//     signed download URLs, and the BigQuery-backed scene catalog.
//   - FragmentUpload: Configures the API endpoint for uploading phase fragment files into
//     the workspace (and the fragment bucket, when one is configured).
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/h2non/filetype"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/cinemeta/scenemerge/internal/core/merge"
	"github.com/cinemeta/scenemerge/internal/core/workflow"
	"github.com/cinemeta/scenemerge/internal/telemetry"
)

// main is the primary entry point for the application.
// It orchestrates the setup of logging, telemetry, configuration, cloud services,
// the web server, API routes, and background listeners. It also handles graceful
// shutdown of the server upon receiving an interrupt signal.
func main() {
	// Initialize structured logging for the application.
	telemetry.SetupLogging()
	slog.Info("Logging initialized")

	// Create a new context that can be cancelled. This is the root context for the application.
	ctx, cancel := context.WithCancel(context.Background())
	// Defer the cancel function to be called when main exits, ensuring all child contexts are cancelled.
	defer cancel()

	// Load application configuration from TOML files.
	config := GetConfig()

	// Initialize OpenTelemetry for distributed tracing and metrics.
	_, err := telemetry.SetupOpenTelemetry(ctx, config)
	if err != nil {
		slog.Error("Failed to setup OpenTelemetry", "error", err)
		log.Fatal(err)
	}
	slog.Info("Tracing initialized")

	// Initialize the application's state, including all necessary service clients.
	InitState(ctx)
	slog.Info("Initialized State")

	// Set up the Gin web server with default middleware.
	r := gin.Default()

	// Add OpenTelemetry middleware to the Gin router to trace incoming requests.
	// This will automatically create spans for each request.
	r.Use(otelgin.Middleware("scene-merge-server"))

	// Configure Cross-Origin Resource Sharing (CORS) middleware.
	// Using cors.Default() provides a permissive configuration suitable for development,
	// allowing requests from any origin.
	r.Use(cors.Default())

	// Group routes under the "/api/v1" prefix.
	apiV1 := r.Group("/api/v1")
	{
		// Register the routes for merges, movie documents, and fragment uploads.
		MergeRouter(apiV1)
		MovieRouter(apiV1)
		FragmentUpload(apiV1)
	}

	// Configure the HTTP server with the address and handler.
	srv := &http.Server{
		Addr:         ":8080",
		Handler:      r,
		ReadTimeout:  20 * time.Second,
		WriteTimeout: 20 * time.Second,
	}

	// Start the HTTP server in a separate goroutine so it doesn't block the main thread.
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to listen: ", "error", err)
		}
	}()
	slog.Info("Server Ready on port 8080")

	// Set up a channel to listen for OS interrupt signals (e.g., Ctrl+C).
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	// Block until a signal is received on the quit channel.
	<-quit
	slog.Info("Shutdown Server ...")

	// Create a context with a timeout for the graceful shutdown.
	// This gives active requests 5 seconds to complete.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	// Attempt to gracefully shut down the server.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server Shutdown Failed:", "error", err)
	}

	log.Println("Server exiting")
}

// MergeRouter sets up the API routes that trigger master merges.
//
// Inputs:
//   - r: A *gin.RouterGroup to which the merge routes will be added. This allows
//     nesting routes under a common path prefix (e.g., "/api/v1").
//
// Outputs:
//   - This function does not return any values. It modifies the provided *gin.RouterGroup
//     by adding new route handlers.
//
// This function defines the following endpoints:
//   - POST /merge/:movie: Runs the master merge for one movie and returns the run report.
//     The "strict" query parameter turns schema validation issues into a failure.
//   - POST /merge: Runs merges for a batch of movies, each independently.
func MergeRouter(r *gin.RouterGroup) {
	// Group all merge-related routes under the "/merge" path.
	mergeGroup := r.Group("/merge")
	{
		// Handler for POST /merge/:movie?strict=true
		mergeGroup.POST("/:movie", func(c *gin.Context) {
			movie := c.Param("movie")
			// Parse the 'strict' flag, defaulting to false when absent or invalid.
			strict, err := strconv.ParseBool(c.DefaultQuery("strict", "false"))
			if err != nil {
				strict = false
			}

			// Run the merge synchronously and map the outcome onto HTTP status codes.
			report, err := state.mergeService.RunMerge(c, movie, strict)
			switch {
			case errors.Is(err, merge.ErrMissingTimings):
				// The timing table is the authoritative input; without it there is
				// nothing to merge.
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			case errors.Is(err, merge.ErrStrictValidation):
				// The documents were still written; return the report alongside the
				// failure so the caller can inspect the issues.
				c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "report": report})
			case err != nil:
				log.Printf("Error merging %s: %v\n", movie, err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			default:
				c.JSON(http.StatusOK, report)
			}
		})

		// Handler for POST /merge with a JSON body listing the movies to process.
		mergeGroup.POST("", func(c *gin.Context) {
			var req struct {
				Movies []string `json:"movies"`
				Strict bool     `json:"strict"`
			}
			if err := c.ShouldBindJSON(&req); err != nil || len(req.Movies) == 0 {
				c.Status(http.StatusBadRequest)
				return
			}

			// Each movie merges independently; a failed movie does not abort the rest.
			reports, failures := state.mergeService.RunBatch(c, req.Movies, req.Strict)
			errOut := make(map[string]string, len(failures))
			for movie, err := range failures {
				errOut[movie] = err.Error()
			}
			c.JSON(http.StatusOK, gin.H{"reports": reports, "errors": errOut})
		})
	}
}

// MovieRouter sets up the API routes that serve merged movie artifacts.
//
// Inputs:
//   - r: A *gin.RouterGroup to which the movie routes will be added.
//
// Outputs:
//   - This function does not return any values. It registers route handlers on the
//     provided router group.
//
// This function defines the following endpoints:
//   - GET /movies/:movie/document: Returns the complete-schema wrapper document.
//   - GET /movies/:movie/provenance: Returns the per-scene provenance map.
//   - GET /movies/:movie/document/url: Generates a time-limited, signed URL for
//     downloading the uploaded document from Cloud Storage.
//   - GET /movies/:movie/scenes: Lists the canonical scenes of the latest run from BigQuery.
//   - GET /movies/:movie/runs: Lists historical merge runs for the movie from BigQuery.
func MovieRouter(r *gin.RouterGroup) {
	// Group all movie-related routes under the "/movies" path.
	movies := r.Group("/movies")
	{
		// Handler for GET /movies/:movie/document
		movies.GET("/:movie/document", func(c *gin.Context) {
			movie := c.Param("movie")
			// Read the wrapper document from the workspace.
			out, err := state.documentService.GetDocument(movie)
			if err != nil {
				// If not found, return a 404 status.
				c.Status(http.StatusNotFound)
				return
			}
			// Return the document as JSON.
			c.JSON(http.StatusOK, out)
		})

		// Handler for GET /movies/:movie/provenance
		movies.GET("/:movie/provenance", func(c *gin.Context) {
			movie := c.Param("movie")
			out, err := state.documentService.GetProvenance(movie)
			if err != nil {
				c.Status(http.StatusNotFound)
				return
			}
			c.JSON(http.StatusOK, out)
		})

		// Handler for GET /movies/:movie/document/url
		// This endpoint provides a secure, time-limited URL for clients to download
		// the published document without holding GCP credentials.
		movies.GET("/:movie/document/url", func(c *gin.Context) {
			movie := c.Param("movie")
			// Generate a signed URL valid for 15 minutes for the document object.
			signedURL, err := state.documentService.GenerateSignedURL(c, movie, 15*time.Minute)
			if err != nil {
				log.Printf("Error generating signed URL: %v", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not generate download URL"})
				return
			}
			// Return the signed URL in the JSON response.
			c.JSON(http.StatusOK, gin.H{"url": signedURL})
		})

		// Handler for GET /movies/:movie/scenes
		movies.GET("/:movie/scenes", func(c *gin.Context) {
			movie := c.Param("movie")
			out, err := state.catalogService.ListScenes(c, movie)
			if err != nil {
				log.Printf("Error listing scenes for %s: %v\n", movie, err)
				c.Status(http.StatusInternalServerError)
				return
			}
			c.JSON(http.StatusOK, out)
		})

		// Handler for GET /movies/:movie/runs
		movies.GET("/:movie/runs", func(c *gin.Context) {
			movie := c.Param("movie")
			out, err := state.catalogService.ListRuns(c, movie)
			if err != nil {
				log.Printf("Error listing runs for %s: %v\n", movie, err)
				c.Status(http.StatusInternalServerError)
				return
			}
			c.JSON(http.StatusOK, out)
		})
	}
}

// FragmentUpload sets up the route for uploading phase fragment files.
//
// Inputs:
//   - r: A *gin.RouterGroup to which the fragment upload route will be added.
//
// Outputs:
//   - This function does not return any values. It registers a POST route on the
//     provided router group.
//
// This function configures a POST endpoint at "/fragments/:phase" that accepts
// multipart/form-data. It processes one or more files sent under the "files" form
// field, rejects anything that sniffs as binary media (fragments must be JSON),
// writes each file into the phase's fragment folder in the workspace, and mirrors
// it to the configured fragment bucket when a storage client is available.
func FragmentUpload(r *gin.RouterGroup) {
	// Group the upload route under "/fragments".
	fragments := r.Group("/fragments")
	{
		// Handler for POST /fragments/:phase
		fragments.POST("/:phase", func(c *gin.Context) {
			phaseName := c.Param("phase")
			// Resolve the named phase against the configured merge precedence order.
			layout := workflow.LayoutFromConfig(state.config)
			var phaseDir string
			for _, p := range workflow.PhasesFromConfig(state.config) {
				if p.Name == phaseName {
					phaseDir = layout.PhaseDir(p)
					break
				}
			}
			if phaseDir == "" {
				c.String(http.StatusNotFound, "unknown phase: %s", phaseName)
				return
			}

			// Parse the multipart form from the request.
			form, err := c.MultipartForm()
			if err != nil {
				c.String(http.StatusBadRequest, "get form err: %s", err.Error())
				return
			}
			// Get all files associated with the "files" field.
			files := form.File["files"]

			// Loop through all the uploaded files.
			for _, file := range files {
				// Define a temporary local path to save the file.
				localPath := filepath.Join(os.TempDir(), filepath.Base(file.Filename))
				// Save the uploaded file to the local temporary path.
				if err := c.SaveUploadedFile(file, localPath); err != nil {
					c.String(http.StatusBadRequest, "upload file err: %s", err.Error())
					return
				}

				// Read the file content from the local path.
				content, err := os.ReadFile(localPath)
				if err != nil {
					log.Println(err)
					c.Status(http.StatusInternalServerError)
					return
				}

				// Sniff the content. Fragment files are JSON; a recognized binary
				// signature (video, image, archive) means the wrong artifact was
				// posted to this endpoint.
				if kind, _ := filetype.Match(content); kind != filetype.Unknown {
					c.String(http.StatusUnsupportedMediaType,
						"%s is %s, fragments must be JSON", file.Filename, kind.MIME.Value)
					return
				}

				// Write the fragment into the phase folder in the workspace.
				destPath := filepath.Join(phaseDir, filepath.Base(file.Filename))
				if err := os.MkdirAll(phaseDir, 0o755); err != nil {
					c.String(http.StatusInternalServerError, "create phase dir err: %s", err.Error())
					return
				}
				if err := os.WriteFile(destPath, content, 0o644); err != nil {
					c.String(http.StatusInternalServerError, "write fragment err: %s", err.Error())
					return
				}

				// Mirror the fragment to the bucket upstream phases share, so a
				// merge on another host can sync it back down.
				if state.cloud != nil && state.cloud.StorageClient != nil && state.config.Storage.FragmentBucket != "" {
					bucket := state.cloud.StorageClient.Bucket(state.config.Storage.FragmentBucket)
					objectName := filepath.ToSlash(filepath.Join(phaseName, filepath.Base(file.Filename)))
					wc := bucket.Object(objectName).NewWriter(c)
					wc.ContentType = "application/json"
					if _, err = wc.Write(content); err != nil {
						c.String(http.StatusInternalServerError, "write file to bucket err: %s", err.Error())
						return
					}
					if err := wc.Close(); err != nil {
						log.Printf("failed to close bucket handle: %v\n", err)
					}
				}

				// Remove the temporary local file after a successful write.
				if err := os.Remove(localPath); err != nil {
					log.Printf("failed to remove file from server: %v\n", err)
				}
			}
			// Respond with a success message.
			c.String(http.StatusOK, "Uploaded successfully %d files.", len(files))
		})
	}
}
