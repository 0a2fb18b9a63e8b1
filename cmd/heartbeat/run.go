//go:build linux

package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ja7ad/heartbeat/internal/config"
	"github.com/ja7ad/heartbeat/pkg/energy"
	"github.com/ja7ad/heartbeat/pkg/exporter"
	"github.com/ja7ad/heartbeat/pkg/heartbeat"
)

type runOpts struct {
	window   int64
	depth    int64
	logPath  string
	perf     [2]float64
	accuracy [2]float64
	power    [2]float64

	source      string
	publisher   string
	dir         string
	natsURL     string
	redisAddr   string
	metricsAddr string

	publishEvery int64

	beats   int
	workers int
	work    time.Duration
	jitter  float64
	report  time.Duration
}

func newRunCmd(g *globals) *cobra.Command {
	var o runOpts

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Drive the engine with a synthetic workload",
		Long: `Run starts an engine and a set of workers that each perform simulated work
and record a heartbeat after every unit. Accuracy is drawn around 1 - jitter.
Window metrics are printed every --report interval and a summary at the end.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			cfg, logger, err := g.load(func(c *config.Config) {
				if flags.Changed("window") {
					c.Engine.WindowSize = o.window
				}
				if flags.Changed("depth") {
					c.Engine.BufferDepth = o.depth
				}
				if flags.Changed("log") {
					c.Engine.LogPath = o.logPath
				}
				if flags.Changed("perf-min") || flags.Changed("perf-max") {
					c.Engine.Perf = heartbeat.Bounds{Min: o.perf[0], Max: o.perf[1]}
				}
				if flags.Changed("acc-min") || flags.Changed("acc-max") {
					c.Engine.Accuracy = heartbeat.Bounds{Min: o.accuracy[0], Max: o.accuracy[1]}
				}
				if flags.Changed("pow-min") || flags.Changed("pow-max") {
					c.Engine.Power = heartbeat.Bounds{Min: o.power[0], Max: o.power[1]}
				}
				if flags.Changed("source") {
					c.Energy.Source = o.source
				}
				if flags.Changed("publisher") {
					c.Publish.Kind = o.publisher
				}
				if flags.Changed("dir") {
					c.Publish.Dir = o.dir
				}
				if flags.Changed("nats-url") {
					c.Publish.NATSURL = o.natsURL
				}
				if flags.Changed("redis-addr") {
					c.Publish.RedisAddr = o.redisAddr
				}
				if flags.Changed("metrics-addr") {
					c.MetricsAddr = o.metricsAddr
				}
			})
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, logger, o)
		},
	}

	f := cmd.Flags()
	f.Int64VarP(&o.window, "window", "w", 20, "sliding window size in beats")
	f.Int64VarP(&o.depth, "depth", "d", 64, "log ring depth; the log is flushed every depth beats")
	f.StringVar(&o.logPath, "log", "", "write the heartbeat log to this file")
	f.Float64Var(&o.perf[0], "perf-min", 0, "advisory minimum rate (beats/s)")
	f.Float64Var(&o.perf[1], "perf-max", 0, "advisory maximum rate (beats/s)")
	f.Float64Var(&o.accuracy[0], "acc-min", 0, "advisory minimum accuracy")
	f.Float64Var(&o.accuracy[1], "acc-max", 0, "advisory maximum accuracy")
	f.Float64Var(&o.power[0], "pow-min", 0, "advisory minimum power (W)")
	f.Float64Var(&o.power[1], "pow-max", 0, "advisory maximum power (W)")

	f.StringVarP(&o.source, "source", "s", "", fmt.Sprintf("energy source %v", energy.Names()))
	f.StringVarP(&o.publisher, "publisher", "p", "", "state publisher: file, nats, redis")
	f.StringVar(&o.dir, "dir", "", "state directory for the file publisher")
	f.StringVar(&o.natsURL, "nats-url", "", "NATS server URL for the nats publisher")
	f.StringVar(&o.redisAddr, "redis-addr", "", "Redis address for the redis publisher")
	f.StringVar(&o.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	f.Int64Var(&o.publishEvery, "publish-every", 1, "publish state every n beats besides each flush (0 = on flush only)")

	f.IntVarP(&o.beats, "beats", "n", 200, "beats per worker (0 = run until Ctrl-C)")
	f.IntVar(&o.workers, "workers", 1, "concurrent workers sharing the engine")
	f.DurationVar(&o.work, "work", 10*time.Millisecond, "mean simulated work per beat")
	f.Float64Var(&o.jitter, "jitter", 0.1, "relative jitter of work time and accuracy [0..1]")
	f.DurationVarP(&o.report, "report", "r", time.Second, "progress report interval (0 = off)")

	return cmd
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, o runOpts) error {
	if o.workers < 1 {
		return fmt.Errorf("workers must be >= 1")
	}
	if o.jitter < 0 || o.jitter > 1 {
		return fmt.Errorf("jitter must be in [0,1]")
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := energy.Open(cfg.Energy.Source, cfg.Energy.Options(logger))
	if err != nil {
		return err
	}
	pub, err := openPublisher(ctx, cfg.Publish, os.Getpid())
	if err != nil {
		return fmt.Errorf("publisher: %w", err)
	}

	eng, err := heartbeat.New(cfg.Engine,
		heartbeat.WithBackend(backend),
		heartbeat.WithPublisher(pub),
		heartbeat.WithLogger(logger),
		heartbeat.WithPublishEvery(o.publishEvery),
	)
	if err != nil {
		// New has already closed pub.
		return err
	}

	st := eng.Stats()
	printBanner(st)

	g, gctx := errgroup.WithContext(ctx)
	workCtx, cancelWork := context.WithCancel(gctx)

	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			exporter.NewCollector(eng, ""),
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		srv := exporter.NewServer(cfg.MetricsAddr, reg, logger)
		g.Go(func() error { return srv.Run(workCtx) })
	}

	if o.report > 0 {
		g.Go(func() error {
			report(workCtx, eng, o.report)
			return nil
		})
	}

	workers, wctx := errgroup.WithContext(workCtx)
	for w := 0; w < o.workers; w++ {
		tag := w
		workers.Go(func() error {
			return work(wctx, eng, tag, o)
		})
	}
	g.Go(func() error {
		defer cancelWork()
		return workers.Wait()
	})

	runErr := g.Wait()
	cancelWork()

	final := eng.Stats()
	iv := eng.Intervals()
	finErr := eng.Finish()
	printSummary(final, iv)

	if runErr != nil && ctx.Err() == nil {
		return runErr
	}
	return finErr
}

// work simulates o.beats units of work, recording a beat after each.
func work(ctx context.Context, eng *heartbeat.Engine, tag int, o runOpts) error {
	rng := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), uint64(tag)))
	for i := 0; o.beats == 0 || i < o.beats; i++ {
		d := time.Duration(float64(o.work) * (1 + o.jitter*(2*rng.Float64()-1)))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(d):
		}
		eng.Record(tag, 1-o.jitter*rng.Float64())
	}
	return nil
}

func report(ctx context.Context, eng *heartbeat.Engine, every time.Duration) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	printProgressHeader(tw)

	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			printProgressRow(tw, eng.Stats())
		}
	}
}
