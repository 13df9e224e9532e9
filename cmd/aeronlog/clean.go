/*
 *
 * Copyright 2026 Aeron authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 */

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
	"golang.org/x/time/rate"

	"github.com/paulexy/Aeron/cleaner"
	"github.com/paulexy/Aeron/internal/config"
	"github.com/paulexy/Aeron/shm"
)

func newCleanCmd() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "clean <name>...",
		Short: "Zero retired partitions, once or as a daemon",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, unix.SIGTERM)
			defer stop()

			opts := cleaner.Options{ChunkLength: cfg.Cleaner.ChunkLength}
			if cfg.Cleaner.MaxRate > 0 {
				// One limiter for all logs caps the total zeroing
				// bandwidth, not per-log bandwidth.
				opts.Limiter = rate.NewLimiter(rate.Limit(cfg.Cleaner.MaxRate), cfg.Cleaner.ChunkLength)
			}

			if !watch {
				for _, name := range args {
					if err := scanOnce(ctx, cfg, opts, name); err != nil {
						return err
					}
				}
				return nil
			}
			return runWatch(ctx, cfg, opts, args)
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "keep scanning until interrupted")
	return cmd
}

// scanOnce cleans whatever is queued on one log and returns. Unlike the
// watch mode it does not wait for a missing log to appear.
func scanOnce(ctx context.Context, cfg *config.Config, opts cleaner.Options, name string) error {
	l, err := shm.OpenLog(cfg.Dir, name, shm.RoleCleaner)
	if err != nil {
		return err
	}
	defer l.Close()

	cleaned, err := cleaner.New(l.Buffer, opts).Scan(ctx)
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"log":        name,
		"partitions": cleaned,
	}).Info("scan complete")
	return nil
}

// runWatch services the named logs until interrupted, one agent per
// log, with a Prometheus endpoint when the config enables one.
func runWatch(ctx context.Context, cfg *config.Config, opts cleaner.Options, names []string) error {
	g, ctx := errgroup.WithContext(ctx)

	var registry *prometheus.Registry
	if cfg.Metrics.Enabled {
		registry = prometheus.NewRegistry()

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		server := &http.Server{Addr: cfg.Metrics.Listen, Handler: mux}

		g.Go(func() error {
			logrus.WithField("listen", cfg.Metrics.Listen).Info("serving metrics")
			if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	logs := make([]cleaner.GroupLog, 0, len(names))
	for _, name := range names {
		o := opts
		if registry != nil {
			// All logs share the metric names; the log label tells the
			// series apart.
			reg := prometheus.WrapRegistererWith(prometheus.Labels{"log": name}, registry)
			o.Metrics = cleaner.NewMetrics(reg)
		}
		logs = append(logs, cleaner.GroupLog{Name: name, Options: o})
	}
	g.Go(func() error {
		err := cleaner.RunGroup(ctx, cfg.Dir, logs, cleaner.AgentOptions{
			Interval: time.Duration(cfg.Cleaner.Interval),
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	return g.Wait()
}
