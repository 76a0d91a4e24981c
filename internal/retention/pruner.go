// Package retention keeps the sms log from growing without bound by
// periodically deleting records older than a configured age.
package retention

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mesmaili/alias-sms/internal/store"
)

type Pruner struct {
	interval time.Duration
	maxAge   time.Duration
	logs     store.LogStore

	running atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewPruner(logs store.LogStore, interval, maxAge time.Duration) (*Pruner, error) {
	if logs == nil {
		return nil, errors.New("log store must not be nil")
	}
	if interval <= 0 {
		return nil, errors.New("interval must be > 0")
	}
	if maxAge <= 0 {
		return nil, errors.New("max age must be > 0")
	}
	return &Pruner{
		interval: interval,
		maxAge:   maxAge,
		logs:     logs,
		done:     make(chan struct{}),
	}, nil
}

func (p *Pruner) Start() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running.Load() {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running.Store(true)

	go func() {
		defer close(p.done)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		slog.Info("retention pruner started", "interval", p.interval.String(), "max_age", p.maxAge.String())

		p.safeTick(ctx)

		for {
			select {
			case <-ctx.Done():
				slog.Info("retention pruner stopping")
				return
			case <-ticker.C:
				p.safeTick(ctx)
			}
		}
	}()

	return true
}

func (p *Pruner) Stop() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running.Load() {
		return false
	}

	p.cancel()
	<-p.done
	p.running.Store(false)

	slog.Info("retention pruner stopped")
	return true
}

func (p *Pruner) IsRunning() bool {
	return p.running.Load()
}

func (p *Pruner) safeTick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("retention tick panic recovered", "panic", r)
		}
	}()

	cutoff := time.Now().UTC().Add(-p.maxAge)
	deleted, err := p.logs.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		slog.Error("retention prune failed", "err", err)
		return
	}
	if deleted > 0 {
		slog.Info("pruned old sms logs", "deleted", deleted, "cutoff", cutoff)
	}
}
