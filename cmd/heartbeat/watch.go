//go:build linux

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/ja7ad/heartbeat/internal/config"
	"github.com/ja7ad/heartbeat/pkg/publish"
	"github.com/ja7ad/heartbeat/pkg/state"
)

type watchOpts struct {
	publisher string
	dir       string
	natsURL   string
	redisAddr string
	pids      []int
	interval  time.Duration
	once      bool
}

// reader returns the states currently published.
type reader func(ctx context.Context) ([]state.State, error)

func newWatchCmd(g *globals) *cobra.Command {
	var o watchOpts

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Show published heartbeat state",
		Long: `Watch reads the state published by running engines and prints one row per
process. Values outside the advisory bounds are highlighted. Redis has no
listing, so --pid selects the processes to read.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			cfg, logger, err := g.load(func(c *config.Config) {
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
			})
			if err != nil {
				return err
			}
			return watch(cmd.Context(), cfg.Publish, logger, o)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&o.publisher, "publisher", "p", "", "state publisher: file, nats, redis")
	f.StringVar(&o.dir, "dir", "", "state directory of the file publisher")
	f.StringVar(&o.natsURL, "nats-url", "", "NATS server URL")
	f.StringVar(&o.redisAddr, "redis-addr", "", "Redis address")
	f.IntSliceVar(&o.pids, "pid", nil, "process ids to read (redis only)")
	f.DurationVarP(&o.interval, "interval", "i", time.Second, "refresh interval")
	f.BoolVar(&o.once, "once", false, "print once and exit")

	return cmd
}

func watch(ctx context.Context, c config.Publish, logger *slog.Logger, o watchOpts) error {
	if o.interval <= 0 {
		return fmt.Errorf("interval must be > 0")
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	read, closeFn, err := openReader(ctx, c, o.pids)
	if err != nil {
		return err
	}
	defer closeFn()

	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	for {
		states, err := read(ctx)
		if err != nil {
			logger.Warn("read state", "err", err)
		}
		printStates(os.Stdout, states)
		if o.once {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func openReader(ctx context.Context, c config.Publish, pids []int) (reader, func(), error) {
	switch c.Kind {
	case "file":
		return func(context.Context) ([]state.State, error) {
			return publish.ReadDir(c.Dir)
		}, func() {}, nil

	case "nats":
		nc, err := nats.Connect(c.NATSURL, nats.Timeout(2*time.Second))
		if err != nil {
			return nil, nil, fmt.Errorf("nats connect: %w", err)
		}
		js, err := jetstream.New(nc)
		if err != nil {
			nc.Close()
			return nil, nil, err
		}
		kv, err := publish.EnsureBucket(ctx, js, c.Bucket, 3)
		if err != nil {
			nc.Close()
			return nil, nil, err
		}
		return func(ctx context.Context) ([]state.State, error) {
			return publish.ReadKV(ctx, kv, c.Prefix)
		}, nc.Close, nil

	case "redis":
		if len(pids) == 0 {
			return nil, nil, fmt.Errorf("redis watch needs --pid")
		}
		client := redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		return func(ctx context.Context) ([]state.State, error) {
			var (
				out  []state.State
				errs *multierror.Error
			)
			for _, pid := range pids {
				s, err := publish.ReadRedis(ctx, client, c.Prefix, pid)
				if err != nil {
					if !errors.Is(err, publish.ErrNotFound) {
						errs = multierror.Append(errs, err)
					}
					continue
				}
				out = append(out, s)
			}
			return out, errs.ErrorOrNil()
		}, func() { _ = client.Close() }, nil
	}
	return nil, nil, fmt.Errorf("%w: unknown publisher %q", publish.ErrNoTarget, c.Kind)
}

func printStates(w io.Writer, states []state.State) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PID\tSOURCE\tBEATS\tRATE win (b/s)\tACC win\tPOWER win (W)\tSTEADY\tUPDATED")
	fmt.Fprintln(tw, "---\t------\t-----\t--------------\t-------\t-------------\t------\t-------")
	for _, s := range states {
		var r state.Record
		if s.Last != nil {
			r = *s.Last
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\t%s\t%t\t%s\n",
			s.PID, s.Source, s.Counter,
			colored("%.3f", r.WindowRate, s.Perf),
			colored("%.4f", r.WindowAccuracy, s.Accuracy),
			colored("%.3f", r.WindowPower, s.Power),
			s.SteadyState,
			s.UpdatedAt.Local().Format("15:04:05"),
		)
	}
	tw.Flush()
}
