// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package scheduler implements the long-running supervisor loop: it
// selects eligible projects, drains the manual-trigger queue, dispatches
// SyncEngine runs without blocking its own selection loop, and honors
// cooperative shutdown.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kraklabs/reposync/pkg/clock"
	"github.com/kraklabs/reposync/pkg/discovery"
	"github.com/kraklabs/reposync/pkg/syncengine"
	"github.com/kraklabs/reposync/pkg/syncmeta"
)

// Config holds the scheduler's tunable policy.
type Config struct {
	SyncEnabled         bool
	CheckInterval       time.Duration
	MaxRetries          int
	RetryBaseDelay      time.Duration
	AutoRegister        bool
	DefaultSyncInterval time.Duration
}

// inflightExec tracks one in-progress execution so concurrent callers for
// the same key observe exactly one run and share its result, rather than
// dispatching a second execution against an in_progress key.
type inflightExec struct {
	done   chan struct{}
	result syncengine.SyncResult
}

type triggerRequest struct {
	ctx      context.Context
	key      syncmeta.Key
	resultCh chan syncengine.SyncResult
}

// Scheduler is the background supervisor that periodically sweeps
// registered projects, dispatching a sync for anything due. It owns the
// store (via the engine) and the engine; it holds only read-only
// references to its other collaborators.
type Scheduler struct {
	store     *syncmeta.Store
	engine    *syncengine.Engine
	discovery discovery.Source
	clk       clock.Clock
	config    Config
	metrics   *Metrics

	triggerCh chan triggerRequest
	wg        sync.WaitGroup

	mu       sync.Mutex
	inflight map[string]*inflightExec

	startOnce sync.Once
	doneCh    chan struct{}
}

// New constructs a Scheduler. discoverySource may be nil when
// config.AutoRegister is false.
func New(store *syncmeta.Store, engine *syncengine.Engine, discoverySource discovery.Source, clk clock.Clock, config Config, metrics *Metrics) *Scheduler {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Scheduler{
		store:     store,
		engine:    engine,
		discovery: discoverySource,
		clk:       clk,
		config:    config,
		metrics:   metrics,
		triggerCh: make(chan triggerRequest, 64),
		inflight:  make(map[string]*inflightExec),
		doneCh:    make(chan struct{}),
	}
}

// Start is idempotent. If sync is disabled it is a no-op. Otherwise it
// auto-registers discovered projects (if configured), recovers any crash
// residue left in status=in_progress, and begins the control loop. Start
// returns once the loop goroutine has been launched; it does not block
// until shutdown.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.config.SyncEnabled {
		return nil
	}
	var startErr error
	s.startOnce.Do(func() {
		if s.config.AutoRegister && s.discovery != nil {
			if err := s.autoRegister(); err != nil {
				slog.Warn("scheduler: auto-register failed", "error", err)
			}
		}
		s.recoverCrashResidue()
		go s.loop(ctx)
	})
	return startErr
}

// Wait blocks until the control loop has exited (after ctx cancellation
// and drain of in-flight executions).
func (s *Scheduler) Wait() {
	<-s.doneCh
}

func (s *Scheduler) autoRegister() error {
	candidates, err := s.discovery.List()
	if err != nil {
		return err
	}
	for _, c := range candidates {
		key := syncmeta.Key{RepoType: c.RepoType, Owner: c.Owner, Repo: c.Repo}
		if s.store.Get(key) != nil {
			continue
		}
		interval := s.config.DefaultSyncInterval
		if interval <= 0 {
			interval = 60 * time.Minute
		}
		rec := &syncmeta.ProjectRecord{
			RepoURL:      c.RepoURL,
			Owner:        c.Owner,
			Repo:         c.Repo,
			RepoType:     c.RepoType,
			SyncInterval: interval,
			Enabled:      true,
			Status:       syncmeta.StatusPending,
			History:      []syncmeta.HistoryEntry{},
		}
		if err := s.store.Save(rec); err != nil {
			slog.Warn("scheduler: failed to auto-register project", "key", key.String(), "error", err)
		}
	}
	return nil
}

// recoverCrashResidue handles startup recovery: any record found
// in_progress is the residue of a process that died mid-run.
func (s *Scheduler) recoverCrashResidue() {
	for _, rec := range s.store.GetAll() {
		if rec.Status != syncmeta.StatusInProgress {
			continue
		}
		rec.Status = syncmeta.StatusPending
		rec.ErrorMessage = ""
		if err := s.store.Save(rec); err != nil {
			slog.Warn("scheduler: failed to recover crash residue", "key", rec.Key().String(), "error", err)
		}
	}
}

func (s *Scheduler) loop(ctx context.Context) {
	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			close(s.doneCh)
			return
		case req := <-s.triggerCh:
			s.dispatchTrigger(req)
		case <-ticker.C:
			s.dispatchDue(ctx)
		}
	}
}

func (s *Scheduler) dispatchTrigger(req triggerRequest) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		result := s.runKeyed(req.ctx, req.key, true, syncmeta.TriggeredByManual)
		s.recordMetrics(result)
		req.resultCh <- result
	}()
}

func (s *Scheduler) dispatchDue(ctx context.Context) {
	now := s.clk.Now()
	due := s.store.SelectDue(now, func(rec *syncmeta.ProjectRecord) bool {
		return s.isDue(rec, now)
	})
	for _, rec := range due {
		key := rec.Key()
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			result := s.runKeyed(ctx, key, false, syncmeta.TriggeredByScheduler)
			s.recordMetrics(result)
		}()
	}
}

// isDue reports whether rec is enabled and its next sync time has passed.
func (s *Scheduler) isDue(rec *syncmeta.ProjectRecord, now time.Time) bool {
	if !rec.Enabled {
		return false
	}
	if rec.Status == syncmeta.StatusInProgress {
		return false
	}
	if rec.Status == syncmeta.StatusFailed && rec.RetryCount > 0 {
		if rec.RetryCount >= s.config.MaxRetries {
			return false
		}
		if rec.LastRetry == nil {
			return false
		}
		backoff := s.config.RetryBaseDelay * time.Duration(1<<uint(rec.RetryCount))
		if rec.LastRetry.Add(backoff).After(now) {
			return false
		}
	}
	if rec.NextSync != nil && rec.NextSync.After(now) {
		return false
	}
	return true
}

// runKeyed enforces per-key in-flight exclusivity: a concurrent call for a
// key already executing waits for that execution and shares its result
// instead of starting a second one.
func (s *Scheduler) runKeyed(ctx context.Context, key syncmeta.Key, force bool, triggeredBy syncmeta.TriggeredBy) syncengine.SyncResult {
	s.mu.Lock()
	if exec, ok := s.inflight[key.String()]; ok {
		s.mu.Unlock()
		<-exec.done
		return exec.result
	}
	exec := &inflightExec{done: make(chan struct{})}
	s.inflight[key.String()] = exec
	s.mu.Unlock()

	result := s.engine.Run(ctx, key, force, triggeredBy)

	s.mu.Lock()
	delete(s.inflight, key.String())
	s.mu.Unlock()

	exec.result = result
	close(exec.done)
	return result
}

// Trigger implements registry.TriggerDispatcher: it enqueues a manual run
// for key and blocks until that run (or a run it was coalesced with)
// completes.
func (s *Scheduler) Trigger(ctx context.Context, key syncmeta.Key) syncengine.SyncResult {
	resultCh := make(chan syncengine.SyncResult, 1)
	req := triggerRequest{ctx: ctx, key: key, resultCh: resultCh}

	select {
	case s.triggerCh <- req:
	case <-ctx.Done():
		return syncengine.SyncResult{Kind: syncengine.KindFailed, Failed: &syncengine.FailedDetail{Reason: "unexpected: context canceled before dispatch"}}
	}

	select {
	case result := <-resultCh:
		return result
	case <-ctx.Done():
		return syncengine.SyncResult{Kind: syncengine.KindFailed, Failed: &syncengine.FailedDetail{Reason: "unexpected: context canceled awaiting result"}}
	}
}

func (s *Scheduler) recordMetrics(result syncengine.SyncResult) {
	if s.metrics == nil {
		return
	}
	s.metrics.Observe(result)
}
