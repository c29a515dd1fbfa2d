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

package syncengine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kraklabs/reposync/pkg/clock"
	"github.com/kraklabs/reposync/pkg/gitprovider"
	"github.com/kraklabs/reposync/pkg/indexpipeline"
	"github.com/kraklabs/reposync/pkg/syncmeta"
)

// Config holds the policy parameters the engine needs to compute next_sync
// and retry eligibility. These mirror the scheduler's configuration; the
// regular cadence comes from each record's own SyncInterval.
type Config struct {
	MaxRetries     int
	RetryBaseDelay time.Duration
}

// Engine executes syncs for one project at a time against a shared store,
// git provider, and index pipeline. It holds no mutable state of its own;
// all bookkeeping lives in the ProjectRecord written through Store.
type Engine struct {
	Store        *syncmeta.Store
	Git          gitprovider.Provider
	Pipeline     indexpipeline.Pipeline
	Clock        clock.Clock
	Config       Config
	CheckoutRoot string
}

func (e *Engine) clk() clock.Clock {
	if e.Clock != nil {
		return e.Clock
	}
	return clock.Real{}
}

func (e *Engine) localPath(key syncmeta.Key) string {
	return filepath.Join(e.CheckoutRoot, gitprovider.DirectoryName(key))
}

// Run executes one synchronization against key. force=true bypasses the
// short-circuit (used for manual triggers). It never panics or returns an
// error to the caller — every outcome, including "no such project", is
// carried in the returned SyncResult as a Failed variant.
func (e *Engine) Run(ctx context.Context, key syncmeta.Key, force bool, triggeredBy syncmeta.TriggeredBy) SyncResult {
	start := e.clk().Now()

	record := e.Store.Get(key)
	if record == nil {
		return SyncResult{
			Kind:            KindFailed,
			DurationSeconds: 0,
			Failed:          &FailedDetail{Reason: "unexpected: no such project"},
		}
	}

	// Entry: publish in_progress before doing anything else.
	record.Status = syncmeta.StatusInProgress
	record.ErrorMessage = ""
	if err := e.Store.Save(record); err != nil {
		return SyncResult{Kind: KindFailed, Failed: &FailedDetail{Reason: "store_io: " + err.Error()}}
	}

	localPath := e.localPath(key)
	hasUpdates, remoteHead, updateReason := e.checkForUpdates(ctx, record, localPath)

	if !force && !hasUpdates {
		return e.finishSkipped(record, start, updateReason)
	}

	if err := e.fetchOrClone(ctx, record, localPath); err != nil {
		return e.finishFailed(record, start, err.Error(), triggeredBy)
	}

	pipelineCtx := ctx
	result, err := e.Pipeline.Run(pipelineCtx, localPath)
	if err != nil {
		return e.finishFailed(record, start, fmt.Sprintf("index_pipeline_failed: %v", err), triggeredBy)
	}
	if result.DocumentCount == 0 {
		return e.finishFailed(record, start, "no_documents: pipeline produced no documents", triggeredBy)
	}

	commitHash := remoteHead
	if commitHash == "" {
		if head, err := e.Git.LocalHead(ctx, localPath); err == nil {
			commitHash = head
		}
	}

	return e.finishSuccess(record, start, result, commitHash, triggeredBy)
}

// checkForUpdates implements step 2 of the state machine.
func (e *Engine) checkForUpdates(ctx context.Context, record *syncmeta.ProjectRecord, localPath string) (hasUpdates bool, remoteHead, reason string) {
	if _, err := os.Stat(localPath); os.IsNotExist(err) {
		return true, "", "not cloned"
	}

	fetchCtx, cancel := context.WithTimeout(ctx, gitprovider.FetchTimeout)
	defer cancel()
	remoteHead, err := e.Git.FetchAndRemoteHead(fetchCtx, localPath, record.AccessToken)
	if err != nil {
		return false, "", "remote unreachable"
	}

	localHead, err := e.Git.LocalHead(ctx, localPath)
	if err != nil {
		localHead = ""
	}

	hasUpdates = remoteHead != localHead || remoteHead != record.LastCommitHash
	return hasUpdates, remoteHead, ""
}

func (e *Engine) fetchOrClone(ctx context.Context, record *syncmeta.ProjectRecord, localPath string) error {
	if _, err := os.Stat(localPath); os.IsNotExist(err) {
		cloneCtx, cancel := context.WithTimeout(ctx, gitprovider.CloneTimeout)
		defer cancel()
		if err := e.Git.Clone(cloneCtx, record.RepoURL, localPath, record.RepoType, record.AccessToken); err != nil {
			return fmt.Errorf("git_clone_failed: %w", err)
		}
		return nil
	}
	pullCtx, cancel := context.WithTimeout(ctx, gitprovider.PullTimeout)
	defer cancel()
	if err := e.Git.Pull(pullCtx, localPath, record.AccessToken); err != nil {
		return fmt.Errorf("git_pull_failed: %w", err)
	}
	return nil
}

func (e *Engine) finishSkipped(record *syncmeta.ProjectRecord, start time.Time, reason string) SyncResult {
	now := e.clk().Now()
	record.Status = syncmeta.StatusCompleted
	record.RetryCount = 0
	next := now.Add(record.SyncInterval)
	record.NextSync = &next
	if err := e.Store.Save(record); err != nil {
		return SyncResult{Kind: KindFailed, Failed: &FailedDetail{Reason: "store_io: " + err.Error()}}
	}
	return SyncResult{
		Kind:            KindSkipped,
		DurationSeconds: now.Sub(start).Seconds(),
		Skipped:         &SkippedDetail{Reason: reason},
	}
}

func (e *Engine) finishSuccess(record *syncmeta.ProjectRecord, start time.Time, result indexpipeline.Result, commitHash string, triggeredBy syncmeta.TriggeredBy) SyncResult {
	now := e.clk().Now()
	record.Status = syncmeta.StatusCompleted
	record.LastSynced = &now
	record.LastCommitHash = commitHash
	record.DocumentCount = result.DocumentCount
	record.EmbeddingCount = result.EmbeddingCount
	record.RetryCount = 0
	record.ErrorMessage = ""
	next := now.Add(record.SyncInterval)
	record.NextSync = &next
	record.TotalSyncs++
	record.SuccessfulSyncs++

	duration := now.Sub(start).Seconds()
	record.History = prependHistory(record.History, syncmeta.HistoryEntry{
		Timestamp:       now,
		Status:          syncmeta.StatusCompleted,
		CommitHash:      commitHash,
		DocumentCount:   result.DocumentCount,
		EmbeddingCount:  result.EmbeddingCount,
		DurationSeconds: duration,
		TriggeredBy:     triggeredBy,
	})

	if err := e.Store.Save(record); err != nil {
		return SyncResult{Kind: KindFailed, Failed: &FailedDetail{Reason: "store_io: " + err.Error()}}
	}
	return SyncResult{
		Kind:            KindSuccess,
		DurationSeconds: duration,
		Success: &SuccessDetail{
			DocumentCount:  result.DocumentCount,
			EmbeddingCount: result.EmbeddingCount,
			CommitHash:     commitHash,
		},
	}
}

func (e *Engine) finishFailed(record *syncmeta.ProjectRecord, start time.Time, reason string, triggeredBy syncmeta.TriggeredBy) SyncResult {
	now := e.clk().Now()
	reason = gitprovider.Redact(reason, record.AccessToken)

	record.Status = syncmeta.StatusFailed
	record.ErrorMessage = reason
	record.RetryCount++
	record.LastRetry = &now
	record.TotalSyncs++
	record.FailedSyncs++

	duration := now.Sub(start).Seconds()
	record.History = prependHistory(record.History, syncmeta.HistoryEntry{
		Timestamp:       now,
		Status:          syncmeta.StatusFailed,
		DurationSeconds: duration,
		ErrorMessage:    reason,
		TriggeredBy:     triggeredBy,
	})

	maxRetries := e.Config.MaxRetries
	if record.RetryCount < maxRetries {
		backoff := e.Config.RetryBaseDelay * time.Duration(1<<uint(record.RetryCount))
		next := now.Add(backoff)
		record.NextSync = &next
	} else {
		next := now.Add(record.SyncInterval)
		record.NextSync = &next
	}

	if err := e.Store.Save(record); err != nil {
		return SyncResult{Kind: KindFailed, Failed: &FailedDetail{Reason: "store_io: " + err.Error()}}
	}
	return SyncResult{
		Kind:            KindFailed,
		DurationSeconds: duration,
		Failed: &FailedDetail{
			Reason:     reason,
			RetryCount: record.RetryCount,
			MaxRetries: maxRetries,
		},
	}
}

func prependHistory(history []syncmeta.HistoryEntry, entry syncmeta.HistoryEntry) []syncmeta.HistoryEntry {
	return append([]syncmeta.HistoryEntry{entry}, history...)
}
