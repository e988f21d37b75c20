package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hivelab/hive/internal/breakdown"
	"github.com/hivelab/hive/internal/cache"
	"github.com/hivelab/hive/internal/config"
	"github.com/hivelab/hive/internal/coordinator"
	"github.com/hivelab/hive/internal/event"
	"github.com/hivelab/hive/internal/ledger"
	"github.com/hivelab/hive/internal/logging"
	"github.com/hivelab/hive/internal/processor"
	"github.com/hivelab/hive/internal/queue"
	"github.com/hivelab/hive/internal/worker"
)

var (
	runLedgerPath   string
	runSimulate     bool
	runCapabilities []string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the engine loop",
	Long: `Start the orchestration loop: scan the ledger for pending items,
admit batches through the queue, decompose them into microtasks, and
execute them on the worker pool until interrupted.

Execution is simulated: each estimated minute of work costs a fixed
slice of wall time. Pass --simulate to compress time for dry runs.
Real execution backends embed the engine packages directly.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runLedgerPath, "ledger", "", "path to the ledger file (overrides config)")
	runCmd.Flags().BoolVar(&runSimulate, "simulate", false, "compress simulated execution time")
	runCmd.Flags().StringSliceVar(&runCapabilities, "capability", []string{"*"}, "capability patterns granted to every worker")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}
	dataDir := cfg.Paths.ResolveDataDir(cwd)

	logger := logging.NopLogger()
	if cfg.Logging.Enabled {
		logger, err = logging.NewLogger(dataDir, cfg.Logging.Level)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		defer func() { _ = logger.Close() }()
	}

	ledgerPath := runLedgerPath
	if ledgerPath == "" {
		ledgerPath = cfg.Ledger.Path
	}
	if !filepath.IsAbs(ledgerPath) {
		ledgerPath = filepath.Join(cwd, ledgerPath)
	}

	adapter := ledger.NewFileAdapter(ledgerPath, ledger.WithAdapterLogger(logger))
	bus := event.NewBus()

	breakdownCache := cache.New(
		cache.WithTTL(cfg.Cache.TTL()),
		cache.WithMaxEntries(cfg.Cache.MaxEntries),
	)
	engine := breakdown.NewEngine(breakdownCache,
		breakdown.WithClassifier(breakdown.NewClassifier(
			breakdown.WithMediumThreshold(cfg.Breakdown.MediumThreshold()),
			breakdown.WithHighThreshold(cfg.Breakdown.HighThreshold()),
			breakdown.WithCriticalThreshold(cfg.Breakdown.CriticalThreshold()),
		)),
		breakdown.WithChunkMinutes(cfg.Breakdown.ChunkMinutes),
		breakdown.WithMediumChunkMinutes(cfg.Breakdown.MediumChunkMinutes),
		breakdown.WithBus(bus),
		breakdown.WithLogger(logger),
	)

	queueOpts := []queue.Option{
		queue.WithMinThreshold(cfg.Queue.MinThreshold),
		queue.WithMaxThreshold(cfg.Queue.MaxThreshold),
		queue.WithBatchCap(cfg.Queue.BatchCap),
		queue.WithWaitTimeout(cfg.Queue.WaitTimeout()),
	}
	q, err := queue.LoadState(dataDir, queueOpts...)
	if err != nil {
		// No usable checkpoint; start fresh.
		q = queue.NewManager(queueOpts...)
	} else {
		logger.Info("resumed queue state", "active", q.ActiveCount())
	}

	coord := coordinator.New(
		coordinator.WithMaxConsecutiveErrors(cfg.Workers.MaxConsecutiveErrors),
		coordinator.WithHeartbeatTimeout(cfg.Workers.HeartbeatTimeout()),
		coordinator.WithRebalanceCooldown(cfg.Processor.RebalanceInterval()),
		coordinator.WithBus(bus),
		coordinator.WithLogger(logger),
	)

	workerIDs := make([]string, 0, cfg.Workers.PoolSize)
	for i := 1; i <= cfg.Workers.PoolSize; i++ {
		id := fmt.Sprintf("worker-%d", i)
		coord.RegisterWorker(id, runCapabilities, cfg.Workers.DefaultCapacity)
		workerIDs = append(workerIDs, id)
	}

	perMinute := time.Second
	if runSimulate {
		perMinute = 10 * time.Millisecond
	}
	executor := worker.NewSimulatedExecutor(worker.WithPerMinute(perMinute))
	pool := worker.NewPool(executor,
		worker.WithSize(cfg.Workers.PoolSize),
		worker.WithPoolLogger(logger),
	)

	procOpts := []processor.Option{
		processor.WithScanInterval(cfg.Processor.ScanInterval()),
		processor.WithTaskTimeout(cfg.Processor.TaskTimeout()),
		processor.WithAdapterRetries(cfg.Processor.AdapterRetries),
		processor.WithDataDir(dataDir),
		processor.WithBus(bus),
		processor.WithLogger(logger),
	}

	if cfg.Ledger.Watch {
		watcher, werr := ledger.NewWatcher(ledgerPath, logger)
		if werr != nil {
			logger.Warn("ledger watching disabled", "error", werr)
		} else {
			watcher.Start()
			defer watcher.Stop()
			procOpts = append(procOpts, processor.WithWake(watcher.Changes()))
		}
	}

	proc := processor.New(q, engine, coord, adapter, pool, procOpts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// In-process workers heartbeat on a timer so the sweep never fires
	// for them under normal operation.
	go heartbeatLoop(ctx, coord, workerIDs, cfg.Workers.HeartbeatTimeout()/3)

	fmt.Printf("hive engine running (ledger: %s, workers: %d)\n", ledgerPath, cfg.Workers.PoolSize)

	if err := proc.Run(ctx); err != nil {
		return fmt.Errorf("engine halted: %w", err)
	}

	status := proc.GetStatus()
	fmt.Printf("engine stopped: %d completed, %d failed\n", status.Completed, status.Failed)
	return nil
}

func heartbeatLoop(ctx context.Context, coord *coordinator.Coordinator, workerIDs []string, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, id := range workerIDs {
				_ = coord.Heartbeat(id)
			}
		}
	}
}
