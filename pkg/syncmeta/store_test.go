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

package syncmeta

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRecord(key Key) *ProjectRecord {
	return &ProjectRecord{
		RepoURL:      "https://example.com/" + key.Owner + "/" + key.Repo,
		Owner:        key.Owner,
		Repo:         key.Repo,
		RepoType:     key.RepoType,
		SyncInterval: 60 * time.Minute,
		Enabled:      true,
		Status:       StatusPending,
		History:      []HistoryEntry{},
	}
}

func TestStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, 50)
	require.NoError(t, err)

	key := Key{RepoType: RepoTypeGitHub, Owner: "alice", Repo: "repo"}
	rec := newTestRecord(key)
	require.NoError(t, store.Save(rec))

	reloaded, err := NewStore(dir, 50)
	require.NoError(t, err)

	got := reloaded.Get(key)
	require.NotNil(t, got)
	assert.Equal(t, rec.RepoURL, got.RepoURL)
	assert.Equal(t, rec.Status, got.Status)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestStoreSaveUpdatesTimestampsNotCreatedAt(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, 50)
	require.NoError(t, err)

	key := Key{RepoType: RepoTypeGitHub, Owner: "alice", Repo: "repo"}
	rec := newTestRecord(key)
	require.NoError(t, store.Save(rec))
	first := store.Get(key).CreatedAt

	rec.Status = StatusCompleted
	require.NoError(t, store.Save(rec))
	second := store.Get(key)

	assert.Equal(t, first, second.CreatedAt)
	assert.Equal(t, StatusCompleted, second.Status)
}

func TestStoreKeyUniqueness(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, 50)
	require.NoError(t, err)

	key := Key{RepoType: RepoTypeGitHub, Owner: "alice", Repo: "repo"}
	require.NoError(t, store.Save(newTestRecord(key)))
	require.NoError(t, store.Save(newTestRecord(key)))

	assert.Len(t, store.GetAll(), 1)
}

func TestStoreHistoryBound(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, 3)
	require.NoError(t, err)

	key := Key{RepoType: RepoTypeGitHub, Owner: "alice", Repo: "repo"}
	rec := newTestRecord(key)
	for i := 0; i < 5; i++ {
		rec.History = append([]HistoryEntry{{
			Timestamp: time.Now(),
			Status:    StatusCompleted,
		}}, rec.History...)
	}
	require.NoError(t, store.Save(rec))

	got := store.Get(key)
	assert.LessOrEqual(t, len(got.History), 3)
}

func TestStoreDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, 50)
	require.NoError(t, err)

	key := Key{RepoType: RepoTypeGitHub, Owner: "alice", Repo: "repo"}
	require.NoError(t, store.Save(newTestRecord(key)))

	existed, err := store.Delete(key)
	require.NoError(t, err)
	assert.True(t, existed)
	assert.Nil(t, store.Get(key))

	existed, err = store.Delete(key)
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestStoreSkipsMalformedFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{not json"), 0o600))

	store, err := NewStore(dir, 50)
	require.NoError(t, err)
	assert.Empty(t, store.GetAll())
}

func TestOutwardRecordOmitsToken(t *testing.T) {
	key := Key{RepoType: RepoTypeGitHub, Owner: "alice", Repo: "repo"}
	rec := newTestRecord(key)
	rec.AccessToken = "TKN123"

	outward := rec.Outward()
	assert.True(t, outward.HasToken)

	data, err := json.Marshal(outward)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "TKN123")
}
