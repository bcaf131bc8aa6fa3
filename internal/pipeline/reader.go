// Package pipeline reads JSON-Lines input into bounded chunks and dispatches
// them to concurrent workers with deterministic, index-ordered reassembly.
package pipeline

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/jonesrussell/linkclean/internal/domain"
	"github.com/jonesrussell/linkclean/internal/logger"
)

// Scanner buffer sizes; input lines can be far larger than bufio's default.
const (
	scanBufSize  = 64 * 1024
	scanMaxBytes = 16 * 1024 * 1024
)

// defaultChunkSize is the number of records per chunk when unconfigured.
const defaultChunkSize = 1000

// Chunk is a bounded batch of input records. The index is assigned at read
// time, increases monotonically, and is the sole ordering key for output
// reassembly.
type Chunk struct {
	Index   int
	Records []*domain.Record
}

// ChunkReader reads a JSON-Lines stream into chunks of at most chunkSize
// records. Malformed lines are skipped with a diagnostic; they are not fatal.
type ChunkReader struct {
	scanner   *bufio.Scanner
	chunkSize int
	log       logger.Interface

	nextIndex int
	line      int
	skipped   int
}

// NewChunkReader creates a reader over r.
func NewChunkReader(r io.Reader, chunkSize int, log logger.Interface) *ChunkReader {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, scanBufSize), scanMaxBytes)

	return &ChunkReader{
		scanner:   scanner,
		chunkSize: chunkSize,
		log:       log,
	}
}

// Next returns the next chunk, or io.EOF when the input is exhausted. Any
// other error is a read failure and fatal to the run.
func (cr *ChunkReader) Next() (*Chunk, error) {
	records := make([]*domain.Record, 0, cr.chunkSize)

	for cr.scanner.Scan() {
		cr.line++

		line := bytes.TrimSpace(cr.scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		rec, err := domain.ParseRecord(line)
		if err != nil {
			cr.skipped++
			cr.log.Warn("skipping malformed input line", "line", cr.line, "error", err.Error())
			continue
		}

		records = append(records, rec)
		if len(records) >= cr.chunkSize {
			return cr.emit(records), nil
		}
	}

	if err := cr.scanner.Err(); err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	if len(records) > 0 {
		return cr.emit(records), nil
	}
	return nil, io.EOF
}

// emit wraps records in a chunk with the next index.
func (cr *ChunkReader) emit(records []*domain.Record) *Chunk {
	chunk := &Chunk{Index: cr.nextIndex, Records: records}
	cr.nextIndex++
	return chunk
}

// Skipped returns the number of malformed lines skipped so far.
func (cr *ChunkReader) Skipped() int {
	return cr.skipped
}

// LinesRead returns the number of input lines consumed so far.
func (cr *ChunkReader) LinesRead() int {
	return cr.line
}
