package pipeline_test

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/linkclean/internal/logger"
	"github.com/jonesrussell/linkclean/internal/pipeline"
)

func TestChunkReaderSplitsIntoChunks(t *testing.T) {
	input := strings.Join([]string{
		`{"id":1}`,
		`{"id":2}`,
		`{"id":3}`,
		`{"id":4}`,
		`{"id":5}`,
	}, "\n")

	r := pipeline.NewChunkReader(strings.NewReader(input), 2, logger.NewNoOp())

	chunk, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, 0, chunk.Index)
	assert.Len(t, chunk.Records, 2)

	chunk, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, 1, chunk.Index)
	assert.Len(t, chunk.Records, 2)

	// The final chunk is short.
	chunk, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, 2, chunk.Index)
	assert.Len(t, chunk.Records, 1)

	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestChunkReaderSkipsMalformedAndBlankLines(t *testing.T) {
	input := strings.Join([]string{
		`{"id":1}`,
		``,
		`not json`,
		`[1,2]`,
		`{"id":2}`,
	}, "\n")

	r := pipeline.NewChunkReader(strings.NewReader(input), 10, logger.NewNoOp())

	chunk, err := r.Next()
	require.NoError(t, err)
	assert.Len(t, chunk.Records, 2)
	assert.Equal(t, 2, r.Skipped())

	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestChunkReaderEmptyInput(t *testing.T) {
	r := pipeline.NewChunkReader(strings.NewReader(""), 10, logger.NewNoOp())
	_, err := r.Next()
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, 0, r.Skipped())
}

func TestChunkReaderDefaultsChunkSize(t *testing.T) {
	r := pipeline.NewChunkReader(strings.NewReader(`{"id":1}`), 0, logger.NewNoOp())
	chunk, err := r.Next()
	require.NoError(t, err)
	assert.Len(t, chunk.Records, 1)
}

func TestChunkReaderHandlesLongLines(t *testing.T) {
	// A record larger than the initial scanner buffer must still parse.
	long := `{"blob":"` + strings.Repeat("x", 200*1024) + `"}`
	r := pipeline.NewChunkReader(strings.NewReader(long), 10, logger.NewNoOp())

	chunk, err := r.Next()
	require.NoError(t, err)
	require.Len(t, chunk.Records, 1)
}
