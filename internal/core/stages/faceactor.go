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

package stages

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/cinemeta/scenemerge/internal/core/model"
)

// Face/actor source identifier and matching threshold.
const (
	SourceFaceActor     = "face_actor"
	provFaceTracker     = "face_tracker"
	actorMatchThreshold = 0.7
	mockSecondsPerFrame = 0.5
	mockFramesPerTrack  = 8
)

// FaceTrack is one tracked face across consecutive frames, with a
// representative embedding for actor matching.
type FaceTrack struct {
	TrackID   int         `json:"track_id"`
	Frames    []TrackSpot `json:"frames"`
	Embedding []float64   `json:"embedding"`
}

// TrackSpot is one sighting of a track: a timestamp and a bounding box.
type TrackSpot struct {
	Timestamp float64   `json:"ts"`
	BBox      []float64 `json:"bbox"`
}

// FaceTracker produces face tracks for a video. The deterministic mock
// derives its output from a hash of the video path so tests and local runs
// are reproducible without any vision dependencies.
type FaceTracker struct{}

// Track returns the face tracks found in the video, at most maxFrames
// sightings per track.
func (FaceTracker) Track(videoPath string, maxFrames int) []FaceTrack {
	digest := sha256.Sum256([]byte(videoPath))
	seed := binary.BigEndian.Uint32(digest[:4])

	trackCount := 1 + int(seed%2)
	frameCount := mockFramesPerTrack
	if maxFrames < frameCount {
		frameCount = maxFrames
	}

	tracks := make([]FaceTrack, 0, trackCount)
	for t := 0; t < trackCount; t++ {
		frames := make([]TrackSpot, 0, frameCount)
		for i := 0; i < frameCount; i++ {
			x1 := float64(10 + (seed>>(uint(t+i)%24))%50)
			y1 := float64(20 + (seed>>(uint(t+i+3)%24))%40)
			frames = append(frames, TrackSpot{
				Timestamp: float64(i) * mockSecondsPerFrame,
				BBox:      []float64{x1, y1, x1 + 60, y1 + 80},
			})
		}
		embedding := make([]float64, 3)
		for i := range embedding {
			embedding[i] = float64((seed>>(uint(t+i)%24))&3) / 3.0
		}
		tracks = append(tracks, FaceTrack{TrackID: t + 1, Frames: frames, Embedding: embedding})
	}
	return tracks
}

// ActorDB stores canonical actor embeddings with optional metadata and
// supports JSON persistence so a registered cast survives restarts.
type ActorDB struct {
	Dim    int                    `json:"dim"`
	Actors map[string]actorRecord `json:"actors"`
}

type actorRecord struct {
	Embedding []float64              `json:"embedding"`
	Metadata  map[string]interface{} `json:"metadata"`
}

// NewActorDB returns an empty database for embeddings of the given dimension.
func NewActorDB(dim int) *ActorDB {
	return &ActorDB{Dim: dim, Actors: make(map[string]actorRecord)}
}

// AddActor registers an actor. The embedding must match the database
// dimension.
func (db *ActorDB) AddActor(name string, embedding []float64, metadata map[string]interface{}) error {
	if len(embedding) != db.Dim {
		return fmt.Errorf("embedding dimension mismatch: got %d, want %d", len(embedding), db.Dim)
	}
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	db.Actors[name] = actorRecord{Embedding: embedding, Metadata: metadata}
	return nil
}

// ActorMatch is the outcome of matching one embedding against the database.
type ActorMatch struct {
	Matched    bool
	Name       string
	Confidence float64
}

// FindBest returns the closest registered actor by cosine similarity, or an
// unmatched result when nothing clears the threshold.
func (db *ActorDB) FindBest(embedding []float64, threshold float64) ActorMatch {
	// Candidates are scanned in sorted name order so ties on similarity
	// resolve to the same actor on every run.
	names := make([]string, 0, len(db.Actors))
	for name := range db.Actors {
		names = append(names, name)
	}
	sort.Strings(names)

	bestName := ""
	bestScore := -1.0
	for _, name := range names {
		if s := cosine(embedding, db.Actors[name].Embedding); s > bestScore {
			bestScore = s
			bestName = name
		}
	}
	if bestName == "" || bestScore < threshold {
		if bestScore < 0 {
			bestScore = 0
		}
		return ActorMatch{Matched: false, Name: "unknown", Confidence: bestScore}
	}
	return ActorMatch{Matched: true, Name: bestName, Confidence: bestScore}
}

// Save writes the database to a JSON file.
func (db *ActorDB) Save(path string) error {
	raw, err := json.MarshalIndent(db, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}

// LoadActorDB reads a database previously written by Save.
func LoadActorDB(path string) (*ActorDB, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	db := &ActorDB{}
	if err := json.Unmarshal(raw, db); err != nil {
		return nil, err
	}
	if db.Actors == nil {
		db.Actors = make(map[string]actorRecord)
	}
	return db, nil
}

// FaceActorPipeline links tracked faces to registered actors and aggregates
// them into a characters fragment for the fusion engine.
type FaceActorPipeline struct {
	Tracker FaceTracker
	DB      *ActorDB
}

// NewFaceActorPipeline returns a pipeline over an empty actor database of
// the given embedding dimension.
func NewFaceActorPipeline(dim int) *FaceActorPipeline {
	return &FaceActorPipeline{DB: NewActorDB(dim)}
}

// RegisterActor adds an actor to the pipeline's database.
func (p *FaceActorPipeline) RegisterActor(name string, embedding []float64, metadata map[string]interface{}) error {
	return p.DB.AddActor(name, embedding, metadata)
}

// ProcessVideo tracks faces in one video and aggregates the matches into a
// characters list: one entry per actor name, screen time summed across that
// actor's tracks, confidence kept at its maximum.
//
// Outputs:
//  1. model.SceneRecord - a fragment with a characters list plus embedded
//     per-name confidences and provenance.
func (p *FaceActorPipeline) ProcessVideo(videoPath string, maxFrames int) model.SceneRecord {
	tracks := p.Tracker.Track(videoPath, maxFrames)

	var order []string
	byName := make(map[string]map[string]interface{})
	confByName := map[string]interface{}{}

	for _, track := range tracks {
		screenTime := float64(len(track.Frames)) * mockSecondsPerFrame
		match := p.DB.FindBest(track.Embedding, actorMatchThreshold)
		name := match.Name

		existing, ok := byName[name]
		if !ok {
			existing = map[string]interface{}{
				"name":        name,
				"screen_time": screenTime,
			}
			byName[name] = existing
			order = append(order, name)
			confByName[name] = match.Confidence
		} else {
			existing["screen_time"] = existing["screen_time"].(float64) + screenTime
			if prev, _ := confByName[name].(float64); match.Confidence > prev {
				confByName[name] = match.Confidence
			}
		}
	}

	characters := make([]interface{}, 0, len(order))
	for _, name := range order {
		characters = append(characters, byName[name])
	}

	return model.SceneRecord{
		"characters": characters,
		model.KeyFieldConfidences: map[string]interface{}{
			"characters": confByName,
		},
		model.KeyFieldProvenance: map[string]interface{}{
			"characters": []string{provFaceTracker},
		},
	}
}

func cosine(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
