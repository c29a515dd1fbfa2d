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

// Package syncengine executes one synchronization against one project
// record: update check, fetch-or-clone, index pipeline invocation, and the
// state machine transitions and retry bookkeeping that follow.
package syncengine

// Kind tags which variant of SyncResult is populated.
type Kind string

const (
	KindSkipped Kind = "skipped"
	KindSuccess Kind = "success"
	KindFailed  Kind = "failed"
)

// SkippedDetail is populated when a run concludes without invoking the
// index pipeline because no upstream changes were detected.
type SkippedDetail struct {
	Reason string
}

// SuccessDetail is populated when the pipeline ran and produced a new
// indexed commit.
type SuccessDetail struct {
	DocumentCount  int
	EmbeddingCount int
	CommitHash     string
}

// FailedDetail is populated when the run terminated in failure.
type FailedDetail struct {
	Reason     string
	RetryCount int
	MaxRetries int
}

// SyncResult is the tagged variant the engine returns for every run — it
// never raises outward. Exactly one of Skipped/Success/Failed is non-nil,
// matching Kind.
type SyncResult struct {
	Kind            Kind
	DurationSeconds float64
	Skipped         *SkippedDetail
	Success         *SuccessDetail
	Failed          *FailedDetail
}

// FlatSyncResult is the interchange shape used for JSON serialization at
// the Registry API / HTTP boundary — a flat struct with optional fields,
// not the engine's internal representation.
type FlatSyncResult struct {
	Success         bool    `json:"success"`
	Skipped         bool    `json:"skipped,omitempty"`
	Reason          string  `json:"reason,omitempty"`
	DocumentCount   int     `json:"document_count,omitempty"`
	EmbeddingCount  int     `json:"embedding_count,omitempty"`
	CommitHash      string  `json:"commit_hash,omitempty"`
	DurationSeconds float64 `json:"duration_seconds"`
	Error           string  `json:"error,omitempty"`
	RetryCount      int     `json:"retry_count,omitempty"`
	MaxRetries      int     `json:"max_retries,omitempty"`
}

// Flatten converts the tagged result into its interchange shape.
func (r SyncResult) Flatten() FlatSyncResult {
	flat := FlatSyncResult{DurationSeconds: r.DurationSeconds}
	switch r.Kind {
	case KindSkipped:
		flat.Success = true
		flat.Skipped = true
		if r.Skipped != nil {
			flat.Reason = r.Skipped.Reason
		}
	case KindSuccess:
		flat.Success = true
		if r.Success != nil {
			flat.DocumentCount = r.Success.DocumentCount
			flat.EmbeddingCount = r.Success.EmbeddingCount
			flat.CommitHash = r.Success.CommitHash
		}
	case KindFailed:
		flat.Success = false
		if r.Failed != nil {
			flat.Error = r.Failed.Reason
			flat.RetryCount = r.Failed.RetryCount
			flat.MaxRetries = r.Failed.MaxRetries
		}
	}
	return flat
}
