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

package cleaner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/paulexy/Aeron/shm"
)

const (
	// DefaultInterval is how long an idle agent sleeps between scans.
	DefaultInterval = time.Millisecond

	attachRetryInterval = 100 * time.Millisecond
)

// Attach opens a log in the cleaner role, retrying until the log exists
// and no other cleaner holds it, or until ctx is done. A log whose
// layout is invalid fails immediately.
func Attach(ctx context.Context, dir, name string) (*shm.Log, error) {
	var l *shm.Log
	op := func() error {
		var err error
		l, err = shm.OpenLog(dir, name, shm.RoleCleaner)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, fs.ErrNotExist), errors.Is(err, shm.ErrCleanerActive):
			return err
		default:
			// Anything else, a bad layout above all, will not heal by
			// waiting.
			return backoff.Permanent(err)
		}
	}
	policy := backoff.WithContext(backoff.NewConstantBackOff(attachRetryInterval), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}
	return l, nil
}

// AgentOptions configures an Agent.
type AgentOptions struct {
	// Interval is the idle delay between scans. Zero means
	// DefaultInterval.
	Interval time.Duration

	// Logger receives progress entries. Nil means the logrus standard
	// logger.
	Logger logrus.FieldLogger
}

// Agent runs a Cleaner in a loop. It scans, sleeps while there is
// nothing to do, and reports progress through its logger.
type Agent struct {
	cleaner  *Cleaner
	interval time.Duration
	log      logrus.FieldLogger
}

// NewAgent returns an Agent driving c.
func NewAgent(c *Cleaner, opts AgentOptions) *Agent {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Agent{
		cleaner:  c,
		interval: interval,
		log:      logger,
	}
}

// Run scans until ctx is done and returns ctx's error. Scan failures
// other than cancellation are logged and retried on the next tick; the
// partition protocol makes an interrupted clean safe to redo.
func (a *Agent) Run(ctx context.Context) error {
	timer := time.NewTimer(a.interval)
	defer timer.Stop()

	for {
		start := time.Now()
		cleaned, err := a.cleaner.Scan(ctx)
		switch {
		case err == nil:
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return ctx.Err()
		default:
			a.log.WithError(err).Warn("cleaner scan failed")
		}
		if cleaned > 0 {
			a.log.WithFields(logrus.Fields{
				"partitions": cleaned,
				"elapsed":    time.Since(start),
			}).Debug("cleaned partitions")
			// More work may already be queued; scan again at once.
			continue
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(a.interval)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// GroupLog names one log for RunGroup and carries the cleaner options
// to service it with.
type GroupLog struct {
	Name    string
	Options Options
}

// RunGroup services several logs at once, one agent per log, until ctx
// is done or any agent fails. Logs that do not exist yet are awaited,
// so a group may be started before its producers.
func RunGroup(ctx context.Context, dir string, logs []GroupLog, opts AgentOptions) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, gl := range logs {
		gl := gl
		g.Go(func() error {
			l, err := Attach(ctx, dir, gl.Name)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return fmt.Errorf("cleaner: attach %s: %w", gl.Name, err)
			}
			defer l.Close()

			agentOpts := opts
			if agentOpts.Logger == nil {
				agentOpts.Logger = logrus.StandardLogger()
			}
			agentOpts.Logger = agentOpts.Logger.WithField("log", gl.Name)
			agentOpts.Logger.WithField("path", l.Path()).Info("cleaning")
			return NewAgent(New(l.Buffer, gl.Options), agentOpts).Run(ctx)
		})
	}
	return g.Wait()
}
