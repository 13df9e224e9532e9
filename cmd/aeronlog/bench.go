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
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/paulexy/Aeron/cleaner"
	"github.com/paulexy/Aeron/logbuffer"
	"github.com/paulexy/Aeron/shm"
)

func newBenchCmd() *cobra.Command {
	var (
		duration time.Duration
		claim    int32
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure append and rotation throughput on a scratch log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			name := fmt.Sprintf("bench-%d", os.Getpid())
			l, err := shm.CreateLog(cfg.Dir, name, int32(cfg.TermLength))
			if err != nil {
				return err
			}
			defer func() {
				l.Close()
				shm.RemoveLog(cfg.Dir, name)
			}()
			buf := l.Buffer

			ctx, cancel := context.WithTimeout(cmd.Context(), duration)
			defer cancel()
			g, ctx := errgroup.WithContext(ctx)

			start := time.Now()
			var claims, rotations int64
			g.Go(func() error {
				for ctx.Err() == nil {
					_, err := buf.Append(claim)
					if err == nil {
						claims++
						continue
					}
					if !errors.Is(err, logbuffer.ErrTermFull) {
						return err
					}
					for {
						err := buf.Rotate()
						if err == nil {
							rotations++
							break
						}
						if !errors.Is(err, logbuffer.ErrRotationBlocked) {
							return err
						}
						if ctx.Err() != nil {
							return nil
						}
						runtime.Gosched()
					}
				}
				return nil
			})

			g.Go(func() error {
				c := cleaner.New(buf, cleaner.Options{ChunkLength: cfg.Cleaner.ChunkLength})
				for ctx.Err() == nil {
					cleaned, err := c.Scan(ctx)
					if err != nil {
						if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
							return nil
						}
						return err
					}
					if cleaned == 0 {
						runtime.Gosched()
					}
				}
				return nil
			})

			if err := g.Wait(); err != nil {
				return err
			}
			elapsed := time.Since(start)
			if elapsed <= 0 {
				elapsed = duration
			}

			out := cmd.OutOrStdout()
			secs := elapsed.Seconds()
			fmt.Fprintf(out, "ran:        %v\n", elapsed.Round(time.Millisecond))
			fmt.Fprintf(out, "claims:     %d (%.0f/s)\n", claims, float64(claims)/secs)
			fmt.Fprintf(out, "rotations:  %d\n", rotations)
			fmt.Fprintf(out, "throughput: %.1f MiB/s claimed\n",
				float64(claims)*float64(claim)/secs/(1<<20))
			return nil
		},
	}
	cmd.Flags().DurationVar(&duration, "duration", 3*time.Second, "how long to run")
	cmd.Flags().Int32Var(&claim, "claim", 256, "claim length in bytes")
	return cmd
}
