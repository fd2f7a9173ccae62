// SPDX-FileCopyrightText: 2026 Mikołaj Kuranowski
// SPDX-License-Identifier: MIT

// Package backoff paces a periodic job, spacing out retries after failures.
package backoff

import (
	"context"
	"time"
)

const (
	Success = true
	Failure = false
)

const DefaultMaxBackoffExponent = 6

// Backoff schedules the next run Period after the last one on success, and
// Period * 2^(failures-1) after it on failure. The exponent is capped at
// MaxBackoffExponent, or DefaultMaxBackoffExponent when that is zero.
type Backoff struct {
	Period             time.Duration
	Failures           uint
	MaxBackoffExponent uint

	lastRun time.Time
	nextRun time.Time
	now     func() time.Time
}

func (b *Backoff) clock() time.Time {
	if b.now != nil {
		return b.now()
	}
	return time.Now()
}

func (b *Backoff) StartRun() {
	b.lastRun = b.clock()
}

func (b *Backoff) EndRun(success bool) time.Time {
	if success {
		b.Failures = 0
		b.nextRun = b.lastRun.Add(b.Period)
		return b.nextRun
	}

	b.Failures++
	exp := b.Failures - 1
	maxExp := b.MaxBackoffExponent
	if maxExp == 0 {
		maxExp = DefaultMaxBackoffExponent
	}
	exp = min(exp, maxExp)
	b.nextRun = b.lastRun.Add(b.Period << exp)
	return b.nextRun
}

// NextRun returns when the next run is due. Zero before the first run.
func (b *Backoff) NextRun() time.Time {
	return b.nextRun
}

// Wait sleeps until the next run is due or ctx is done.
func (b *Backoff) Wait(ctx context.Context) error {
	d := b.nextRun.Sub(b.clock())
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
