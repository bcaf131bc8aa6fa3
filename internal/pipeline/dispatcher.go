package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/jonesrussell/linkclean/internal/domain"
	"github.com/jonesrussell/linkclean/internal/logger"
)

// ChunkState tracks a chunk through the dispatcher.
type ChunkState int32

const (
	// ChunkPending means the chunk has been read but not yet admitted.
	ChunkPending ChunkState = iota

	// ChunkInFlight means a worker is processing the chunk.
	ChunkInFlight

	// ChunkCompleted is terminal: the chunk's artifact is ready.
	ChunkCompleted

	// ChunkFailed is terminal: processing failed, but an empty artifact is
	// still emitted to keep output indices contiguous.
	ChunkFailed
)

// String returns the string representation of a chunk state.
func (s ChunkState) String() string {
	switch s {
	case ChunkPending:
		return "pending"
	case ChunkInFlight:
		return "in_flight"
	case ChunkCompleted:
		return "completed"
	case ChunkFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// RecordProcessor mutates one record in place. Each chunk worker gets its own
// instance so HTTP clients are never shared across chunks.
type RecordProcessor interface {
	Process(ctx context.Context, rec *domain.Record) error
}

// ProcessorFactory builds a fresh RecordProcessor for one chunk worker.
type ProcessorFactory func() RecordProcessor

// defaultParallelism is the number of chunks processed concurrently when
// unconfigured.
const defaultParallelism = 1

// artifact is the materialized result of one chunk: its records encoded as
// JSON Lines, keyed by chunk index until the final ordered merge.
type artifact struct {
	index   int
	state   ChunkState
	data    []byte
	records int
	err     error
}

// Dispatcher runs chunk workers in batches of at most parallelism and merges
// their artifacts back into a single stream in ascending chunk-index order,
// regardless of completion order.
//
// Scheduling is a simple batch barrier, not work stealing: a full batch is
// admitted, the dispatcher waits for every chunk in it to reach a terminal
// state, then admits the next. A failed chunk aborts the run only after its
// batch drains, so everything processed up to that point is still written
// deterministically.
type Dispatcher struct {
	reader       *ChunkReader
	newProcessor ProcessorFactory
	parallelism  int
	reporter     Reporter
	log          logger.Interface

	// Monotonic progress counters.
	batchesDone int
	chunksDone  int
	recordsDone int
}

// NewDispatcher creates a dispatcher. The reporter may be nil.
func NewDispatcher(
	reader *ChunkReader,
	newProcessor ProcessorFactory,
	parallelism int,
	reporter Reporter,
	log logger.Interface,
) *Dispatcher {
	if parallelism <= 0 {
		parallelism = defaultParallelism
	}
	return &Dispatcher{
		reader:       reader,
		newProcessor: newProcessor,
		parallelism:  parallelism,
		reporter:     reporter,
		log:          log,
	}
}

// Run processes the whole input and writes the cleaned records to out in
// input order. On a chunk failure the current batch is drained, everything
// completed so far is merged and written, and the chunk's error is returned.
func (d *Dispatcher) Run(ctx context.Context, out io.Writer) error {
	var (
		artifacts []artifact
		runErr    error
	)

	for runErr == nil {
		batch, readErr := d.readBatch()
		if readErr != nil {
			runErr = readErr
			break
		}
		if len(batch) == 0 {
			break
		}

		results := d.processBatch(ctx, batch)
		artifacts = append(artifacts, results...)

		d.batchesDone++
		for _, res := range results {
			d.chunksDone++
			if res.err != nil && runErr == nil {
				runErr = fmt.Errorf("chunk %d failed: %w", res.index, res.err)
			}
		}

		d.log.Info("batch processed",
			"batch", d.batchesDone,
			"chunks", d.chunksDone,
			"records", d.recordsDone,
		)
	}

	if mergeErr := d.merge(artifacts, out); mergeErr != nil && runErr == nil {
		runErr = mergeErr
	}
	return runErr
}

// readBatch reads up to parallelism chunks from the reader.
func (d *Dispatcher) readBatch() ([]*Chunk, error) {
	batch := make([]*Chunk, 0, d.parallelism)

	for len(batch) < d.parallelism {
		chunk, err := d.reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		batch = append(batch, chunk)
	}
	return batch, nil
}

// processBatch runs one worker per chunk and waits for the whole batch to
// reach a terminal state.
func (d *Dispatcher) processBatch(ctx context.Context, batch []*Chunk) []artifact {
	results := make([]artifact, len(batch))

	var wg sync.WaitGroup
	for i, chunk := range batch {
		wg.Add(1)

		go func(slot int, c *Chunk) {
			defer wg.Done()
			results[slot] = d.processChunk(ctx, c)
		}(i, chunk)
	}
	wg.Wait()

	for _, res := range results {
		d.recordsDone += res.records
	}
	return results
}

// processChunk runs one chunk through a fresh processor and materializes its
// records into an encoded artifact. A failure yields an empty artifact so the
// index sequence stays gap-free.
func (d *Dispatcher) processChunk(ctx context.Context, chunk *Chunk) artifact {
	proc := d.newProcessor()

	var (
		buf  []byte
		done int
	)
	for _, rec := range chunk.Records {
		if err := proc.Process(ctx, rec); err != nil {
			d.log.Error("chunk processing failed",
				"chunk", chunk.Index,
				"error", err.Error(),
			)
			return artifact{index: chunk.Index, state: ChunkFailed, err: err}
		}

		encoded, encErr := json.Marshal(rec)
		if encErr != nil {
			return artifact{
				index: chunk.Index,
				state: ChunkFailed,
				err:   fmt.Errorf("encode record: %w", encErr),
			}
		}
		buf = append(buf, encoded...)
		buf = append(buf, '\n')
		done++

		if d.reporter != nil {
			d.reporter.Add(1)
		}
	}

	return artifact{index: chunk.Index, state: ChunkCompleted, data: buf, records: done}
}

// merge writes the artifacts to out strictly in ascending chunk-index order.
// Indices are contiguous because failed chunks still produce placeholders.
func (d *Dispatcher) merge(artifacts []artifact, out io.Writer) error {
	ordered := make(map[int][]byte, len(artifacts))
	for _, res := range artifacts {
		ordered[res.index] = res.data
	}

	for i := 0; i < len(artifacts); i++ {
		data, ok := ordered[i]
		if !ok {
			return fmt.Errorf("missing artifact for chunk %d", i)
		}
		if len(data) == 0 {
			continue
		}
		if _, err := out.Write(data); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}
	return nil
}

// RecordsProcessed returns the monotonic count of records materialized so
// far.
func (d *Dispatcher) RecordsProcessed() int {
	return d.recordsDone
}
