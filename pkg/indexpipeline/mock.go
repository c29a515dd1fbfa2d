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

package indexpipeline

import (
	"context"
	"sync"
)

// Mock is a deterministic, in-memory Pipeline. It backs SyncEngine and
// Scheduler tests, and is also the production default: the real
// document/embedding store behind the Pipeline boundary is out of scope,
// so every sync reports a configured, fixed yield back to the registry.
type Mock struct {
	mu       sync.Mutex
	Result   Result
	Err      error
	Calls    []string
	BeforeRun func()
}

// NewMock returns a Mock that reports docCount documents and embCount
// embeddings on every run.
func NewMock(docCount, embCount int) *Mock {
	return &Mock{Result: Result{DocumentCount: docCount, EmbeddingCount: embCount}}
}

// Run records the call and returns the configured Result/Err.
func (m *Mock) Run(ctx context.Context, localPath string) (Result, error) {
	if m.BeforeRun != nil {
		m.BeforeRun()
	}
	m.mu.Lock()
	m.Calls = append(m.Calls, localPath)
	result, err := m.Result, m.Err
	m.mu.Unlock()

	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	default:
	}
	return result, err
}

// CallCount returns how many times Run has been invoked.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
