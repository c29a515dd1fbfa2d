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

// Package indexpipeline defines the contract SyncEngine depends on for
// turning a local checkout into indexed, embedded documents. The pipeline
// itself — parsing, embedding, storage — is treated as an opaque external
// collaborator; this package only names the boundary and supplies the
// implementation the rest of this module runs against, Mock, since the
// document/embedding store behind that boundary is out of scope here.
package indexpipeline

import "context"

// Result is the document/embedding yield of one pipeline run.
type Result struct {
	DocumentCount  int
	EmbeddingCount int
}

// Pipeline is idempotent with respect to the filesystem contents at
// localPath: running it twice against an unchanged checkout must produce
// the same counts.
type Pipeline interface {
	Run(ctx context.Context, localPath string) (Result, error)
}
