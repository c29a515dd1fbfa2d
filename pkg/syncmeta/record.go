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

// Package syncmeta implements the durable, crash-safe store of per-project
// sync metadata: one JSON file per registered repository, atomic writes,
// and an in-memory index guarded by a mutex.
package syncmeta

import (
	"strings"
	"time"
)

// RepoType is the closed set of upstream hosting providers a project key
// may name. The token-embedding URL rewrite and the on-disk directory name
// are both dispatched on it.
type RepoType string

const (
	RepoTypeGitHub    RepoType = "github"
	RepoTypeGitLab    RepoType = "gitlab"
	RepoTypeBitbucket RepoType = "bitbucket"
)

// Status is the record's position in the sync state machine.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusDisabled   Status = "disabled"
)

// TriggeredBy names what caused a sync run or history entry.
type TriggeredBy string

const (
	TriggeredByScheduler TriggeredBy = "scheduler"
	TriggeredByManual    TriggeredBy = "manual"
	TriggeredByWebhook   TriggeredBy = "webhook"
)

// Key is the project key: the triple (repo_type, owner, repo) that
// uniquely identifies a registered repository.
type Key struct {
	RepoType RepoType
	Owner    string
	Repo     string
}

// String renders the key as it appears in filenames and logs:
// {repo_type}_{owner}_{repo}, with '/' and ':' replaced by '_'.
func (k Key) String() string {
	sanitize := func(s string) string {
		s = strings.ReplaceAll(s, "/", "_")
		s = strings.ReplaceAll(s, ":", "_")
		return s
	}
	return sanitize(string(k.RepoType)) + "_" + sanitize(k.Owner) + "_" + sanitize(k.Repo)
}

// HistoryEntry records the outcome of one work-producing sync run.
type HistoryEntry struct {
	Timestamp       time.Time   `json:"timestamp"`
	Status          Status      `json:"status"`
	CommitHash      string      `json:"commit_hash,omitempty"`
	DocumentCount   int         `json:"document_count,omitempty"`
	EmbeddingCount  int         `json:"embedding_count,omitempty"`
	DurationSeconds float64     `json:"duration_seconds"`
	ErrorMessage    string      `json:"error_message,omitempty"`
	TriggeredBy     TriggeredBy `json:"triggered_by"`
}

// ProjectRecord is the durable state of one registered repository.
type ProjectRecord struct {
	RepoURL  string `json:"repo_url"`
	Owner    string `json:"owner"`
	Repo     string `json:"repo"`
	RepoType RepoType `json:"repo_type"`

	SyncInterval time.Duration `json:"sync_interval"`
	Enabled      bool          `json:"enabled"`
	AccessToken  string        `json:"access_token,omitempty"`

	Status         Status     `json:"status"`
	LastSynced     *time.Time `json:"last_synced,omitempty"`
	LastCommitHash string     `json:"last_commit_hash,omitempty"`
	NextSync       *time.Time `json:"next_sync,omitempty"`

	DocumentCount  int `json:"document_count"`
	EmbeddingCount int `json:"embedding_count"`

	RetryCount   int        `json:"retry_count"`
	LastRetry    *time.Time `json:"last_retry,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	TotalSyncs      int `json:"total_syncs"`
	SuccessfulSyncs int `json:"successful_syncs"`
	FailedSyncs     int `json:"failed_syncs"`

	History []HistoryEntry `json:"history"`
}

// Key returns the record's project key.
func (r *ProjectRecord) Key() Key {
	return Key{RepoType: r.RepoType, Owner: r.Owner, Repo: r.Repo}
}

// Clone returns a deep-enough copy safe to hand outward without aliasing
// the store's internal slices/pointers.
func (r *ProjectRecord) Clone() *ProjectRecord {
	cp := *r
	if r.LastSynced != nil {
		t := *r.LastSynced
		cp.LastSynced = &t
	}
	if r.NextSync != nil {
		t := *r.NextSync
		cp.NextSync = &t
	}
	if r.LastRetry != nil {
		t := *r.LastRetry
		cp.LastRetry = &t
	}
	cp.History = make([]HistoryEntry, len(r.History))
	copy(cp.History, r.History)
	return &cp
}

// OutwardRecord is a ProjectRecord with AccessToken removed, per the token
// isolation invariant: no outward-facing view may carry the secret.
type OutwardRecord struct {
	RepoURL  string   `json:"repo_url"`
	Owner    string   `json:"owner"`
	Repo     string   `json:"repo"`
	RepoType RepoType `json:"repo_type"`

	SyncInterval time.Duration `json:"sync_interval"`
	Enabled      bool          `json:"enabled"`
	HasToken     bool          `json:"has_token"`

	Status         Status     `json:"status"`
	LastSynced     *time.Time `json:"last_synced,omitempty"`
	LastCommitHash string     `json:"last_commit_hash,omitempty"`
	NextSync       *time.Time `json:"next_sync,omitempty"`

	DocumentCount  int `json:"document_count"`
	EmbeddingCount int `json:"embedding_count"`

	RetryCount   int        `json:"retry_count"`
	LastRetry    *time.Time `json:"last_retry,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	TotalSyncs      int `json:"total_syncs"`
	SuccessfulSyncs int `json:"successful_syncs"`
	FailedSyncs     int `json:"failed_syncs"`
}

// Outward builds the redacted view of r. It never copies AccessToken onto
// the result, so there is no field for a caller to accidentally re-marshal.
func (r *ProjectRecord) Outward() OutwardRecord {
	return OutwardRecord{
		RepoURL:        r.RepoURL,
		Owner:          r.Owner,
		Repo:           r.Repo,
		RepoType:       r.RepoType,
		SyncInterval:   r.SyncInterval,
		Enabled:        r.Enabled,
		HasToken:       r.AccessToken != "",
		Status:         r.Status,
		LastSynced:     r.LastSynced,
		LastCommitHash: r.LastCommitHash,
		NextSync:       r.NextSync,
		DocumentCount:  r.DocumentCount,
		EmbeddingCount: r.EmbeddingCount,
		RetryCount:     r.RetryCount,
		LastRetry:      r.LastRetry,
		ErrorMessage:   r.ErrorMessage,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
		TotalSyncs:     r.TotalSyncs,
		SuccessfulSyncs: r.SuccessfulSyncs,
		FailedSyncs:    r.FailedSyncs,
	}
}
