package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/gleaner/core"
)

func TestTaskRoundTrip_OptionalFields(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	task := core.NewProcessingTask("t-1", core.URLSource("https://example.com/a"), "alice", now)

	data, err := MarshalTask(task)
	require.NoError(t, err)
	decoded, err := UnmarshalTask(data)
	require.NoError(t, err)
	assert.Nil(t, decoded.StartedAt)
	assert.Nil(t, decoded.Result)
	assert.Equal(t, task, decoded)

	core.TaskUpdate{
		Status:    core.Ptr(core.StatusCompleted),
		StartedAt: core.Ptr(now),
		EndedAt:   core.Ptr(now.Add(time.Minute)),
		Result:    &core.TaskResult{DocumentID: "doc", ChunkCount: 2, EmbeddingCount: 2},
	}.Apply(task)

	data, err = MarshalTask(task)
	require.NoError(t, err)
	decoded, err = UnmarshalTask(data)
	require.NoError(t, err)
	require.NotNil(t, decoded.Result)
	assert.Equal(t, 2, decoded.Result.EmbeddingCount)
	assert.True(t, decoded.EndedAt.Equal(now.Add(time.Minute)))
}

func TestChunkRoundTrip_KeepsVector(t *testing.T) {
	chunk := &core.Chunk{Index: 3, Text: "abc", DocumentID: "d", Vector: []float32{0.25, -1, 3.5}}

	data, err := MarshalChunk(chunk)
	require.NoError(t, err)
	decoded, err := UnmarshalChunk(data)
	require.NoError(t, err)
	assert.Equal(t, chunk, decoded)
}

func TestUnmarshal_Invalid(t *testing.T) {
	_, err := UnmarshalDocument([]byte("{not json"))
	assert.ErrorIs(t, err, ErrSerializationFailed)

	_, err = UnmarshalCheckpoint(nil)
	assert.ErrorIs(t, err, ErrSerializationFailed)
}
