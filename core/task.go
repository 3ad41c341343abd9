// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package core

import "time"

// Status is the lifecycle state of a processing task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// IsTerminal reports whether no further transitions are allowed from s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Stage is one phase of the processing state machine.
// Stages advance strictly in the order of Stages.
type Stage string

const (
	StageInitialized         Stage = "initialized"
	StageContentExtraction   Stage = "content_extraction"
	StageTextProcessing      Stage = "text_processing"
	StageAIAnalysis          Stage = "ai_analysis"
	StageEmbeddingGeneration Stage = "embedding_generation"
	StageDatabaseStorage     Stage = "database_storage"
	StageCompleted           Stage = "completed"
)

// Stages lists every stage in transition order.
var Stages = []Stage{
	StageInitialized,
	StageContentExtraction,
	StageTextProcessing,
	StageAIAnalysis,
	StageEmbeddingGeneration,
	StageDatabaseStorage,
	StageCompleted,
}

var stageProgress = map[Stage]float64{
	StageInitialized:         0.0,
	StageContentExtraction:   0.1,
	StageTextProcessing:      0.3,
	StageAIAnalysis:          0.6,
	StageEmbeddingGeneration: 0.8,
	StageDatabaseStorage:     0.95,
	StageCompleted:           1.0,
}

// Ordinal returns the position of the stage in the linear order, or -1 if unknown.
func (s Stage) Ordinal() int {
	for i, st := range Stages {
		if st == s {
			return i
		}
	}
	return -1
}

// Next returns the stage following s. The completed stage is its own successor.
func (s Stage) Next() Stage {
	i := s.Ordinal()
	if i < 0 || i == len(Stages)-1 {
		return s
	}
	return Stages[i+1]
}

// Progress returns the fixed progress checkpoint recorded when a task enters s.
func (s Stage) Progress() float64 {
	return stageProgress[s]
}

// ProcessingTask is one invocation of the pipeline for one source.
type ProcessingTask struct {
	ID         string      `json:"task_id"`
	Source     Source      `json:"source"`
	Owner      string      `json:"owner"`
	Status     Status      `json:"status"`
	Stage      Stage       `json:"stage"`
	Progress   float64     `json:"progress"`
	RetryCount int         `json:"retry_count"`
	Error      string      `json:"error,omitempty"`
	Result     *TaskResult `json:"result,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
	StartedAt  *time.Time  `json:"started_at,omitempty"`
	EndedAt    *time.Time  `json:"ended_at,omitempty"`
}

// NewProcessingTask creates a pending task at the initialized stage.
func NewProcessingTask(id string, source Source, owner string, now time.Time) *ProcessingTask {
	return &ProcessingTask{
		ID:        id,
		Source:    source,
		Owner:     owner,
		Status:    StatusPending,
		Stage:     StageInitialized,
		Progress:  StageInitialized.Progress(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TaskUpdate carries a partial update of a ProcessingTask.
// Nil fields are left unchanged.
type TaskUpdate struct {
	Status     *Status
	Stage      *Stage
	Progress   *float64
	RetryCount *int
	Error      *string
	Result     *TaskResult
	StartedAt  *time.Time
	EndedAt    *time.Time
}

// Apply copies every non-nil field of u onto task.
func (u TaskUpdate) Apply(task *ProcessingTask) {
	if u.Status != nil {
		task.Status = *u.Status
	}
	if u.Stage != nil {
		task.Stage = *u.Stage
	}
	if u.Progress != nil {
		task.Progress = *u.Progress
	}
	if u.RetryCount != nil {
		task.RetryCount = *u.RetryCount
	}
	if u.Error != nil {
		task.Error = *u.Error
	}
	if u.Result != nil {
		result := *u.Result
		task.Result = &result
	}
	if u.StartedAt != nil {
		started := *u.StartedAt
		task.StartedAt = &started
	}
	if u.EndedAt != nil {
		ended := *u.EndedAt
		task.EndedAt = &ended
	}
}

// TaskResult summarises a completed task.
type TaskResult struct {
	DocumentID       string `json:"document_id"`
	ChunkCount       int    `json:"chunk_count"`
	EmbeddingCount   int    `json:"embedding_count"`
	ContentLength    int    `json:"content_length"`
	Strategy         string `json:"strategy"`
	ExtractionMethod string `json:"extraction_method"`
}

// Metrics aggregates outcomes of terminal tasks.
type Metrics struct {
	TotalProcessed        int           `json:"total_processed"`
	Successful            int           `json:"successful"`
	Failed                int           `json:"failed"`
	Cancelled             int           `json:"cancelled"`
	AverageProcessingTime time.Duration `json:"average_processing_time"`
	SuccessRate           float64       `json:"success_rate"`
}

// Ptr returns a pointer to v. It keeps TaskUpdate literals short.
func Ptr[T any](v T) *T {
	return &v
}
