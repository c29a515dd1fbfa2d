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

package scheduler

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/reposync/pkg/clock"
	"github.com/kraklabs/reposync/pkg/indexpipeline"
	"github.com/kraklabs/reposync/pkg/syncengine"
	"github.com/kraklabs/reposync/pkg/syncmeta"
)

type fakeGit struct {
	remoteHead string
	localHead  string
}

func (f *fakeGit) Clone(ctx context.Context, repoURL, path string, repoType syncmeta.RepoType, token string) error {
	return nil
}
func (f *fakeGit) FetchAndRemoteHead(ctx context.Context, path, token string) (string, error) {
	return f.remoteHead, nil
}
func (f *fakeGit) LocalHead(ctx context.Context, path string) (string, error) { return f.localHead, nil }
func (f *fakeGit) Pull(ctx context.Context, path, token string) error        { return nil }
func (f *fakeGit) ChangedFiles(ctx context.Context, path, oldRev, newRev string) ([]string, error) {
	return nil, nil
}

func newTestScheduler(t *testing.T, fc *clock.Fake) (*Scheduler, *syncmeta.Store) {
	t.Helper()
	store, err := syncmeta.NewStore(t.TempDir(), 50)
	require.NoError(t, err)
	engine := &syncengine.Engine{
		Store:        store,
		Git:          &fakeGit{remoteHead: "abc", localHead: ""},
		Pipeline:     indexpipeline.NewMock(1, 1),
		Clock:        fc,
		Config:       syncengine.Config{MaxRetries: 3, RetryBaseDelay: 30 * time.Second},
		CheckoutRoot: filepath.Join(t.TempDir(), "checkouts"),
	}
	sched := New(store, engine, nil, fc, Config{
		SyncEnabled:         true,
		CheckInterval:       10 * time.Millisecond,
		MaxRetries:          3,
		RetryBaseDelay:      30 * time.Second,
		DefaultSyncInterval: 60 * time.Minute,
	}, nil)
	return sched, store
}

func TestSchedulerSelectsNeverSyncedOnNextTick(t *testing.T) {
	fc := clock.NewFake(time.Now())
	sched, store := newTestScheduler(t, fc)
	key := syncmeta.Key{RepoType: syncmeta.RepoTypeGitHub, Owner: "alice", Repo: "repo"}
	require.NoError(t, store.Save(&syncmeta.ProjectRecord{
		RepoURL: "https://github.com/alice/repo.git", Owner: "alice", Repo: "repo",
		RepoType: syncmeta.RepoTypeGitHub, SyncInterval: time.Hour, Enabled: true,
		Status: syncmeta.StatusPending, History: []syncmeta.HistoryEntry{},
	}))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, sched.Start(ctx))
	defer cancel()

	require.Eventually(t, func() bool {
		rec := store.Get(key)
		return rec != nil && rec.Status == syncmeta.StatusCompleted
	}, time.Second, 5*time.Millisecond)
}

func TestSchedulerDisabledNeverSelected(t *testing.T) {
	fc := clock.NewFake(time.Now())
	sched, store := newTestScheduler(t, fc)
	key := syncmeta.Key{RepoType: syncmeta.RepoTypeGitHub, Owner: "alice", Repo: "repo"}
	require.NoError(t, store.Save(&syncmeta.ProjectRecord{
		RepoURL: "https://github.com/alice/repo.git", Owner: "alice", Repo: "repo",
		RepoType: syncmeta.RepoTypeGitHub, SyncInterval: time.Hour, Enabled: false,
		Status: syncmeta.StatusPending, History: []syncmeta.HistoryEntry{},
	}))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, sched.Start(ctx))
	defer cancel()

	time.Sleep(100 * time.Millisecond)
	rec := store.Get(key)
	assert.Equal(t, syncmeta.StatusPending, rec.Status)
}

func TestSchedulerCrashResidueRecoveredOnStart(t *testing.T) {
	fc := clock.NewFake(time.Now())
	sched, store := newTestScheduler(t, fc)
	key := syncmeta.Key{RepoType: syncmeta.RepoTypeGitHub, Owner: "alice", Repo: "repo"}
	require.NoError(t, store.Save(&syncmeta.ProjectRecord{
		RepoURL: "https://github.com/alice/repo.git", Owner: "alice", Repo: "repo",
		RepoType: syncmeta.RepoTypeGitHub, SyncInterval: time.Hour, Enabled: false,
		Status: syncmeta.StatusInProgress, History: []syncmeta.HistoryEntry{},
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, sched.Start(ctx))

	rec := store.Get(key)
	assert.Equal(t, syncmeta.StatusPending, rec.Status)
}

func TestSchedulerInFlightExclusivity(t *testing.T) {
	fc := clock.NewFake(time.Now())
	store, err := syncmeta.NewStore(t.TempDir(), 50)
	require.NoError(t, err)

	var mu sync.Mutex
	concurrent := 0
	maxConcurrent := 0
	blockingPipeline := &indexpipeline.Mock{Result: indexpipeline.Result{DocumentCount: 1, EmbeddingCount: 1}}
	blockingPipeline.BeforeRun = func() {
		mu.Lock()
		concurrent++
		if concurrent > maxConcurrent {
			maxConcurrent = concurrent
		}
		mu.Unlock()
		time.Sleep(30 * time.Millisecond)
		mu.Lock()
		concurrent--
		mu.Unlock()
	}

	engine := &syncengine.Engine{
		Store:        store,
		Git:          &fakeGit{remoteHead: "abc"},
		Pipeline:     blockingPipeline,
		Clock:        fc,
		Config:       syncengine.Config{MaxRetries: 3, RetryBaseDelay: 30 * time.Second},
		CheckoutRoot: filepath.Join(t.TempDir(), "checkouts"),
	}
	sched := New(store, engine, nil, fc, Config{
		SyncEnabled: true, CheckInterval: time.Hour, MaxRetries: 3,
		RetryBaseDelay: 30 * time.Second, DefaultSyncInterval: time.Hour,
	}, nil)

	key := syncmeta.Key{RepoType: syncmeta.RepoTypeGitHub, Owner: "alice", Repo: "repo"}
	require.NoError(t, store.Save(&syncmeta.ProjectRecord{
		RepoURL: "https://github.com/alice/repo.git", Owner: "alice", Repo: "repo",
		RepoType: syncmeta.RepoTypeGitHub, SyncInterval: time.Hour, Enabled: true,
		Status: syncmeta.StatusPending, History: []syncmeta.HistoryEntry{},
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, sched.Start(ctx))

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sched.Trigger(context.Background(), key)
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, maxConcurrent, "no two executions against the same key may run concurrently")
}
