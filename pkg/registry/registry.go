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

// Package registry implements the add/update/remove/list/trigger/inspect
// surface that mutates the metadata store and interleaves safely with the
// scheduler's autonomous loop. Every outward-facing value it returns is an
// OutwardRecord: access_token never crosses this boundary.
package registry

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/kraklabs/reposync/pkg/clock"
	"github.com/kraklabs/reposync/pkg/gitprovider"
	"github.com/kraklabs/reposync/pkg/syncengine"
	"github.com/kraklabs/reposync/pkg/syncmeta"
)

// ErrNotFound is returned as-is (unwrapped, so callers may compare with ==)
// when an operation names an unknown key.
var ErrNotFound = fmt.Errorf("not_found")

// ErrInvalidArgument is returned as-is when an argument fails validation,
// e.g. a non-positive sync interval.
var ErrInvalidArgument = fmt.Errorf("invalid_argument")

// TriggerDispatcher is the capability the scheduler provides: enqueue a
// manual run for key and block for its result. Kept as an interface so
// Registry never depends on the scheduler's concrete type.
type TriggerDispatcher interface {
	Trigger(ctx context.Context, key syncmeta.Key) syncengine.SyncResult
}

// UpdateCheck is the read-only preview returned by CheckUpdates.
type UpdateCheck struct {
	HasUpdates bool
	RemoteHead string
	LocalHead  string
	Reason     string
}

// Stats summarizes the fleet of registered projects.
type Stats struct {
	Running         int            `json:"running"`
	TotalProjects   int            `json:"total_projects"`
	StatusCounts    map[string]int `json:"status_counts"`
	SuccessRate     float64        `json:"success_rate"`
	TotalSyncs      int            `json:"total_syncs"`
	SuccessfulSyncs int            `json:"successful_syncs"`
	FailedSyncs     int            `json:"failed_syncs"`
}

// Registry is the Registry API. It owns no execution loop; Trigger
// delegates to whatever TriggerDispatcher the caller wires in (normally a
// *scheduler.Scheduler).
type Registry struct {
	Store                 *syncmeta.Store
	Git                    gitprovider.Provider
	Clock                  clock.Clock
	CheckoutRoot           string
	DefaultSyncInterval    time.Duration
	Dispatcher             TriggerDispatcher
}

func (r *Registry) clk() clock.Clock {
	if r.Clock != nil {
		return r.Clock
	}
	return clock.Real{}
}

// Add registers repo_url/owner/repo/repo_type, or updates the mutable
// fields of an existing record with the same key without resetting its
// status, timings, or counters.
func (r *Registry) Add(repoURL, owner, repo string, repoType syncmeta.RepoType, syncInterval time.Duration, accessToken string, enabled bool) (*syncmeta.ProjectRecord, error) {
	if syncInterval <= 0 {
		if r.DefaultSyncInterval > 0 {
			syncInterval = r.DefaultSyncInterval
		} else {
			syncInterval = 60 * time.Minute
		}
	}

	key := syncmeta.Key{RepoType: repoType, Owner: owner, Repo: repo}
	existing := r.Store.Get(key)
	if existing != nil {
		existing.RepoURL = repoURL
		existing.SyncInterval = syncInterval
		existing.Enabled = enabled
		existing.AccessToken = accessToken
		if err := r.Store.Save(existing); err != nil {
			return nil, fmt.Errorf("internal: %w", err)
		}
		return existing, nil
	}

	rec := &syncmeta.ProjectRecord{
		RepoURL:      repoURL,
		Owner:        owner,
		Repo:         repo,
		RepoType:     repoType,
		SyncInterval: syncInterval,
		Enabled:      enabled,
		AccessToken:  accessToken,
		Status:       syncmeta.StatusPending,
		History:      []syncmeta.HistoryEntry{},
	}
	if err := r.Store.Save(rec); err != nil {
		return nil, fmt.Errorf("internal: %w", err)
	}
	return rec, nil
}

// Remove deletes the record for key.
func (r *Registry) Remove(key syncmeta.Key) (bool, error) {
	existed, err := r.Store.Delete(key)
	if err != nil {
		return existed, fmt.Errorf("internal: %w", err)
	}
	return existed, nil
}

// Get returns the outward view of the record for key, or nil.
func (r *Registry) Get(key syncmeta.Key) *syncmeta.OutwardRecord {
	rec := r.Store.Get(key)
	if rec == nil {
		return nil
	}
	outward := rec.Outward()
	return &outward
}

// List returns the outward view of every registered record.
func (r *Registry) List() []syncmeta.OutwardRecord {
	all := r.Store.GetAll()
	out := make([]syncmeta.OutwardRecord, 0, len(all))
	for _, rec := range all {
		out = append(out, rec.Outward())
	}
	return out
}

// Update changes sync_interval and/or enabled for key. Re-enabling a
// disabled record resets retry_count and recomputes next_sync from
// last_synced + sync_interval (or clears it if never synced).
func (r *Registry) Update(key syncmeta.Key, syncInterval *time.Duration, enabled *bool) (*syncmeta.OutwardRecord, error) {
	rec := r.Store.Get(key)
	if rec == nil {
		return nil, ErrNotFound
	}

	wasDisabled := !rec.Enabled
	if syncInterval != nil {
		if *syncInterval <= 0 {
			return nil, ErrInvalidArgument
		}
		rec.SyncInterval = *syncInterval
	}
	if enabled != nil {
		rec.Enabled = *enabled
	}

	if wasDisabled && rec.Enabled {
		rec.RetryCount = 0
		if rec.LastSynced != nil {
			next := rec.LastSynced.Add(rec.SyncInterval)
			rec.NextSync = &next
		} else {
			rec.NextSync = nil
		}
	}

	if err := r.Store.Save(rec); err != nil {
		return nil, fmt.Errorf("internal: %w", err)
	}
	outward := rec.Outward()
	return &outward, nil
}

// ResetRetries clears retry_count and last_retry; if the record is
// currently failed, it transitions to pending and becomes immediately due.
func (r *Registry) ResetRetries(key syncmeta.Key) (*syncmeta.OutwardRecord, error) {
	rec := r.Store.Get(key)
	if rec == nil {
		return nil, ErrNotFound
	}
	rec.RetryCount = 0
	rec.LastRetry = nil
	if rec.Status == syncmeta.StatusFailed {
		rec.Status = syncmeta.StatusPending
		now := r.clk().Now()
		rec.NextSync = &now
	}
	if err := r.Store.Save(rec); err != nil {
		return nil, fmt.Errorf("internal: %w", err)
	}
	outward := rec.Outward()
	return &outward, nil
}

// CheckUpdates previews whether key has upstream changes without writing
// any state.
func (r *Registry) CheckUpdates(ctx context.Context, key syncmeta.Key) (*UpdateCheck, error) {
	rec := r.Store.Get(key)
	if rec == nil {
		return nil, ErrNotFound
	}
	localPath := r.checkoutPath(key)
	if _, err := os.Stat(localPath); os.IsNotExist(err) {
		return &UpdateCheck{HasUpdates: true, Reason: "not cloned"}, nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, gitprovider.FetchTimeout)
	defer cancel()
	remoteHead, err := r.Git.FetchAndRemoteHead(fetchCtx, localPath, rec.AccessToken)
	if err != nil {
		return &UpdateCheck{HasUpdates: false, Reason: "remote unreachable"}, nil
	}
	localHead, err := r.Git.LocalHead(ctx, localPath)
	if err != nil {
		localHead = ""
	}
	hasUpdates := remoteHead != localHead || remoteHead != rec.LastCommitHash
	return &UpdateCheck{HasUpdates: hasUpdates, RemoteHead: remoteHead, LocalHead: localHead}, nil
}

func (r *Registry) checkoutPath(key syncmeta.Key) string {
	return r.CheckoutRoot + string(os.PathSeparator) + gitprovider.DirectoryName(key)
}

// History returns up to limit history entries for key, most-recent-first.
// limit<=0 means unbounded.
func (r *Registry) History(key syncmeta.Key, limit int) ([]syncmeta.HistoryEntry, error) {
	rec := r.Store.Get(key)
	if rec == nil {
		return nil, ErrNotFound
	}
	if limit > 0 && limit < len(rec.History) {
		return rec.History[:limit], nil
	}
	return rec.History, nil
}

// Trigger enqueues a manual run for key via the registry's dispatcher and
// returns its interchange result synchronously.
func (r *Registry) Trigger(ctx context.Context, key syncmeta.Key) (syncengine.FlatSyncResult, error) {
	if r.Store.Get(key) == nil {
		return syncengine.FlatSyncResult{}, ErrNotFound
	}
	if r.Dispatcher == nil {
		return syncengine.FlatSyncResult{}, fmt.Errorf("internal: no trigger dispatcher configured")
	}
	result := r.Dispatcher.Trigger(ctx, key)
	return result.Flatten(), nil
}

// ComputeStats summarizes every registered record.
func (r *Registry) ComputeStats() Stats {
	all := r.Store.GetAll()
	stats := Stats{StatusCounts: make(map[string]int)}
	stats.TotalProjects = len(all)
	for _, rec := range all {
		stats.StatusCounts[string(rec.Status)]++
		if rec.Status == syncmeta.StatusInProgress {
			stats.Running++
		}
		stats.TotalSyncs += rec.TotalSyncs
		stats.SuccessfulSyncs += rec.SuccessfulSyncs
		stats.FailedSyncs += rec.FailedSyncs
	}
	if stats.TotalSyncs > 0 {
		stats.SuccessRate = float64(stats.SuccessfulSyncs) / float64(stats.TotalSyncs)
	}
	return stats
}
