// Package clean implements the clean command: it streams a JSON-Lines file
// through the chunked URL-checking pipeline and writes the cleaned records,
// the timeout list, and the redirect map.
package clean

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jonesrussell/linkclean/internal/config"
	"github.com/jonesrussell/linkclean/internal/logger"
	"github.com/jonesrussell/linkclean/internal/output"
	"github.com/jonesrussell/linkclean/internal/pipeline"
	"github.com/jonesrussell/linkclean/internal/processor"
	"github.com/jonesrussell/linkclean/internal/stats"
	"github.com/jonesrussell/linkclean/internal/urlcheck"
)

// Options holds the per-invocation settings of the clean command.
type Options struct {
	InputPath     string
	Fields        []string
	OutputPath    string
	TimeoutFile   string
	RedirectsFile string
	Policy        processor.Policy
	ShowProgress  bool
}

// Cleaner orchestrates one cleaning run.
type Cleaner struct {
	cfg  *config.Config
	log  logger.Interface
	opts Options
}

// NewCleaner creates a cleaner instance.
func NewCleaner(cfg *config.Config, log logger.Interface, opts Options) *Cleaner {
	return &Cleaner{cfg: cfg, log: log, opts: opts}
}

// Run executes the cleaning pipeline end to end. Statistics are rendered
// even when the run aborts partway through.
func (c *Cleaner) Run(ctx context.Context) error {
	start := time.Now()

	in, err := os.Open(c.opts.InputPath)
	if err != nil {
		return fmt.Errorf("open input file %s: %w", c.opts.InputPath, err)
	}
	defer in.Close()

	var total int64
	if c.opts.ShowProgress {
		if total, err = countLines(c.opts.InputPath); err != nil {
			return fmt.Errorf("count input lines: %w", err)
		}
	}

	st := stats.New()
	timeouts := stats.NewTimeoutSet()
	limiter := urlcheck.NewLimiter(c.cfg.Checker.RateLimit)

	// Each chunk worker gets its own checker, so HTTP connections are never
	// shared across chunks. Statistics and the timeout set are the only
	// shared mutable state.
	factory := func() pipeline.RecordProcessor {
		checker := urlcheck.New(c.cfg.Checker, limiter, c.log)
		return processor.New(checker, c.opts.Fields, c.opts.Policy, st, timeouts, c.log)
	}

	outFile, outWriter, err := output.CreateRecordsFile(c.opts.OutputPath)
	if err != nil {
		return err
	}
	defer outFile.Close()

	var reporter pipeline.Reporter
	if c.opts.ShowProgress {
		tracker := pipeline.NewTrackerReporter(os.Stdout, total)
		defer tracker.Finish()
		reporter = tracker
	}

	reader := pipeline.NewChunkReader(in, c.cfg.Pipeline.ChunkSize, c.log)
	dispatcher := pipeline.NewDispatcher(reader, factory, c.cfg.Pipeline.Parallelism, reporter, c.log)

	runErr := dispatcher.Run(ctx, outWriter)

	if flushErr := outWriter.Flush(); flushErr != nil && runErr == nil {
		runErr = fmt.Errorf("flush output: %w", flushErr)
	}

	// Sidecars and the summary are flushed even on an aborted run, so partial
	// results stay inspectable.
	c.writeSidecars(st, timeouts)
	c.logCompletion(reader, dispatcher, start, runErr)

	stats.NewSummaryRenderer(st).Render(os.Stdout, Verbose(c.cfg))

	return runErr
}

// writeSidecars persists the timeout list and redirect map when configured.
func (c *Cleaner) writeSidecars(st *stats.Statistics, timeouts *stats.TimeoutSet) {
	if c.opts.TimeoutFile != "" {
		if err := output.WriteTimeoutList(c.opts.TimeoutFile, timeouts); err != nil {
			c.log.Error("failed to write timeout list", "path", c.opts.TimeoutFile, "error", err.Error())
		} else if timeouts.Len() > 0 {
			c.log.Info("timeout URLs written", "path", c.opts.TimeoutFile, "count", timeouts.Len())
		}
	}

	if c.opts.RedirectsFile != "" {
		pairs := st.AllRedirectPairs()
		if err := output.WriteRedirectMap(c.opts.RedirectsFile, pairs); err != nil {
			c.log.Error("failed to write redirect map", "path", c.opts.RedirectsFile, "error", err.Error())
		} else if len(pairs) > 0 {
			c.log.Info("redirects written", "path", c.opts.RedirectsFile, "count", len(pairs))
		}
	}
}

// logCompletion reports the run outcome.
func (c *Cleaner) logCompletion(
	reader *pipeline.ChunkReader,
	dispatcher *pipeline.Dispatcher,
	start time.Time,
	runErr error,
) {
	log := c.log.WithDuration(time.Since(start))
	if skipped := reader.Skipped(); skipped > 0 {
		log = log.With("skipped_lines", skipped)
	}

	if runErr != nil {
		log.Error("run aborted",
			"records", dispatcher.RecordsProcessed(),
			"error", runErr.Error(),
		)
		return
	}
	log.Info("run completed",
		"records", dispatcher.RecordsProcessed(),
		"output", c.opts.OutputPath,
	)
}

// Verbose reports whether verbose output (debug logging, domain tables) is
// enabled.
func Verbose(cfg *config.Config) bool {
	return cfg.App.Debug || cfg.Logger.Level == logger.DebugLevel
}

// countLines counts the lines of the file at path, for progress totals.
func countLines(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var count int64
	buf := make([]byte, 64*1024)
	for {
		n, readErr := f.Read(buf)
		for _, b := range buf[:n] {
			if b == '\n' {
				count++
			}
		}
		if readErr == io.EOF {
			return count, nil
		}
		if readErr != nil {
			return 0, readErr
		}
	}
}

// Command returns the clean command for use in the root command.
func Command() *cobra.Command {
	var (
		suffix          string
		outputPath      string
		chunkSize       int
		timeout         time.Duration
		maxRetries      int
		parallelism     int
		rateLimit       float64
		timeoutFile     string
		redirectsFile   string
		deleteTimeouts  bool
		followRedirects bool
		showProgress    bool
	)

	cmd := &cobra.Command{
		Use:   "clean [input] [fields...]",
		Short: "Check and clean URLs in a JSON-Lines file",
		Long: `This command reads a JSON-Lines file, checks the URLs held in the given
fields, removes unreachable ones, optionally rewrites redirects, and writes
the cleaned records next to the input file.

URLs that time out are kept by default; pass --delete-timeouts to remove
them. Output record order always matches input order.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if err = cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			log, err := logger.New(&cfg.Logger)
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			log = log.WithRunID(uuid.New().String())

			inputPath := args[0]
			if _, statErr := os.Stat(inputPath); statErr != nil {
				return fmt.Errorf("input file %s: %w", inputPath, statErr)
			}

			opts := Options{
				InputPath:     inputPath,
				Fields:        args[1:],
				OutputPath:    outputPath,
				TimeoutFile:   timeoutFile,
				RedirectsFile: redirectsFile,
				Policy: processor.Policy{
					DeleteTimeouts:  deleteTimeouts,
					FollowRedirects: followRedirects,
				},
				ShowProgress: showProgress,
			}
			if opts.OutputPath == "" {
				opts.OutputPath = output.DerivePath(inputPath, cfg.Output.Suffix)
			}

			log.Info("starting clean run",
				"input", opts.InputPath,
				"output", opts.OutputPath,
				"fields", opts.Fields,
				"chunk_size", cfg.Pipeline.ChunkSize,
				"parallelism", cfg.Pipeline.Parallelism,
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return NewCleaner(cfg, log, opts).Run(ctx)
		},
	}

	cmd.Flags().StringVar(&suffix, "suffix", config.DefaultSuffix, "suffix for the output file name")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file path (overrides --suffix)")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", config.DefaultChunkSize, "records per chunk")
	cmd.Flags().DurationVar(&timeout, "timeout", config.DefaultTimeout, "timeout per URL check attempt")
	cmd.Flags().IntVar(&maxRetries, "max-retries", config.DefaultMaxRetries, "attempts per URL before giving up")
	cmd.Flags().IntVar(&parallelism, "parallelism", config.DefaultParallelism, "number of chunks processed concurrently")
	cmd.Flags().Float64Var(&rateLimit, "rate-limit", 0, "maximum URL checks per second (0 = unlimited)")
	cmd.Flags().StringVar(&timeoutFile, "timeout-file", "", "file to collect URLs that timed out")
	cmd.Flags().StringVar(&redirectsFile, "redirects-file", "", "file to collect redirects as 'source;target' lines")
	cmd.Flags().BoolVar(&deleteTimeouts, "delete-timeouts", false, "delete URLs that time out instead of keeping them")
	cmd.Flags().BoolVar(&followRedirects, "follow-redirects", false, "replace redirecting URLs with their target")
	cmd.Flags().BoolVar(&showProgress, "progress", false, "show a progress bar")

	bindFlags(cmd)

	return cmd
}

// bindFlags maps command-line flags onto viper config keys so flags override
// config-file and environment values.
func bindFlags(cmd *cobra.Command) {
	bindings := map[string]string{
		"pipeline.chunk_size":  "chunk-size",
		"pipeline.parallelism": "parallelism",
		"checker.timeout":      "timeout",
		"checker.max_retries":  "max-retries",
		"checker.rate_limit":   "rate-limit",
		"output.suffix":        "suffix",
	}
	for key, flag := range bindings {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", flag, err))
		}
	}
}
