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

package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/reposync/pkg/clock"
	"github.com/kraklabs/reposync/pkg/syncengine"
	"github.com/kraklabs/reposync/pkg/syncmeta"
)

type fakeDispatcher struct {
	result syncengine.SyncResult
}

func (f *fakeDispatcher) Trigger(ctx context.Context, key syncmeta.Key) syncengine.SyncResult {
	return f.result
}

func newTestRegistry(t *testing.T) (*Registry, *syncmeta.Store) {
	t.Helper()
	store, err := syncmeta.NewStore(t.TempDir(), 50)
	require.NoError(t, err)
	return &Registry{
		Store:               store,
		Clock:               clock.NewFake(time.Now()),
		DefaultSyncInterval: 60 * time.Minute,
	}, store
}

func TestRegistryAddIsUpsert(t *testing.T) {
	reg, store := newTestRegistry(t)
	rec, err := reg.Add("https://github.com/alice/repo.git", "alice", "repo", syncmeta.RepoTypeGitHub, 0, "", true)
	require.NoError(t, err)
	assert.Equal(t, syncmeta.StatusPending, rec.Status)

	rec.TotalSyncs = 5
	require.NoError(t, store.Save(rec))

	updated, err := reg.Add("https://github.com/alice/repo.git", "alice", "repo", syncmeta.RepoTypeGitHub, 30*time.Minute, "tok", false)
	require.NoError(t, err)
	assert.Equal(t, 5, updated.TotalSyncs, "upsert must not reset counters")
	assert.Equal(t, 30*time.Minute, updated.SyncInterval)
	assert.False(t, updated.Enabled)
}

func TestRegistryOutwardViewsOmitToken(t *testing.T) {
	reg, _ := newTestRegistry(t)
	_, err := reg.Add("https://github.com/alice/repo.git", "alice", "repo", syncmeta.RepoTypeGitHub, 0, "TKN123", true)
	require.NoError(t, err)

	for _, outward := range reg.List() {
		assert.NotContains(t, fieldsOf(outward), "TKN123")
	}
}

func fieldsOf(o syncmeta.OutwardRecord) string {
	return o.RepoURL + o.Owner + o.Repo + string(o.RepoType) + o.ErrorMessage
}

func TestRegistryResetRetries(t *testing.T) {
	reg, store := newTestRegistry(t)
	key := syncmeta.Key{RepoType: syncmeta.RepoTypeGitHub, Owner: "alice", Repo: "repo"}
	rec, err := reg.Add("https://github.com/alice/repo.git", "alice", "repo", syncmeta.RepoTypeGitHub, 0, "", true)
	require.NoError(t, err)
	rec.Status = syncmeta.StatusFailed
	rec.RetryCount = 3
	now := time.Now()
	rec.LastRetry = &now
	require.NoError(t, store.Save(rec))

	outward, err := reg.ResetRetries(key)
	require.NoError(t, err)
	assert.Equal(t, 0, outward.RetryCount)
	assert.Equal(t, syncmeta.StatusPending, outward.Status)
	require.NotNil(t, outward.NextSync)
}

func TestRegistryUpdateReEnableRecomputesNextSync(t *testing.T) {
	reg, store := newTestRegistry(t)
	key := syncmeta.Key{RepoType: syncmeta.RepoTypeGitHub, Owner: "alice", Repo: "repo"}
	rec, err := reg.Add("https://github.com/alice/repo.git", "alice", "repo", syncmeta.RepoTypeGitHub, time.Hour, "", true)
	require.NoError(t, err)
	rec.Enabled = false
	lastSynced := time.Now().Add(-30 * time.Minute)
	rec.LastSynced = &lastSynced
	rec.RetryCount = 2
	require.NoError(t, store.Save(rec))

	enabled := true
	outward, err := reg.Update(key, nil, &enabled)
	require.NoError(t, err)
	assert.Equal(t, 0, outward.RetryCount)
	require.NotNil(t, outward.NextSync)
	assert.WithinDuration(t, lastSynced.Add(time.Hour), *outward.NextSync, time.Second)
}

func TestRegistryTriggerDelegatesToDispatcher(t *testing.T) {
	reg, _ := newTestRegistry(t)
	key := syncmeta.Key{RepoType: syncmeta.RepoTypeGitHub, Owner: "alice", Repo: "repo"}
	_, err := reg.Add("https://github.com/alice/repo.git", "alice", "repo", syncmeta.RepoTypeGitHub, 0, "", true)
	require.NoError(t, err)

	reg.Dispatcher = &fakeDispatcher{result: syncengine.SyncResult{
		Kind:    syncengine.KindSuccess,
		Success: &syncengine.SuccessDetail{DocumentCount: 3},
	}}

	flat, err := reg.Trigger(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, flat.Success)
	assert.Equal(t, 3, flat.DocumentCount)
}

func TestRegistryTriggerUnknownKey(t *testing.T) {
	reg, _ := newTestRegistry(t)
	key := syncmeta.Key{RepoType: syncmeta.RepoTypeGitHub, Owner: "nobody", Repo: "repo"}
	_, err := reg.Trigger(context.Background(), key)
	assert.ErrorIs(t, err, ErrNotFound)
}
