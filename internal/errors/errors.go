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

// Package errors defines the user-facing error taxonomy for reposyncd's
// CLI surface: a title, a detail, an actionable suggestion, and the
// underlying cause. It is distinct from the scheduler's internal failure
// taxonomy (pkg/syncengine), which always flows through a SyncResult value
// and never reaches this package.
package errors

import (
	"encoding/json"
	"fmt"
	"os"
)

// Kind classifies a UserError for exit-code and log-routing purposes.
type Kind string

const (
	KindConfig     Kind = "config"
	KindInternal   Kind = "internal"
	KindPermission Kind = "permission"
	KindDatabase   Kind = "database"
	KindNetwork    Kind = "network"
	KindInput      Kind = "input"
)

// UserError is a CLI-facing error with enough context for a human to act on.
type UserError struct {
	Kind       Kind
	Title      string
	Detail     string
	Suggestion string
	Cause      error
}

func (e *UserError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Title, e.Detail, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Title, e.Detail)
}

func (e *UserError) Unwrap() error { return e.Cause }

func newError(kind Kind, title, detail, suggestion string, cause error) *UserError {
	return &UserError{Kind: kind, Title: title, Detail: detail, Suggestion: suggestion, Cause: cause}
}

func NewConfigError(title, detail, suggestion string, cause error) *UserError {
	return newError(KindConfig, title, detail, suggestion, cause)
}

func NewInternalError(title, detail, suggestion string, cause error) *UserError {
	return newError(KindInternal, title, detail, suggestion, cause)
}

func NewPermissionError(title, detail, suggestion string, cause error) *UserError {
	return newError(KindPermission, title, detail, suggestion, cause)
}

func NewDatabaseError(title, detail, suggestion string, cause error) *UserError {
	return newError(KindDatabase, title, detail, suggestion, cause)
}

func NewNetworkError(title, detail, suggestion string, cause error) *UserError {
	return newError(KindNetwork, title, detail, suggestion, cause)
}

func NewInputError(title, detail, suggestion string, cause error) *UserError {
	return newError(KindInput, title, detail, suggestion, cause)
}

// FatalError renders err to stderr (as JSON when jsonMode is set) and exits
// the process with a non-zero status. It is used only on the CLI-invocation
// path, never from inside the scheduler loop.
func FatalError(err error, jsonMode bool) {
	if err == nil {
		os.Exit(1)
	}

	ue, ok := err.(*UserError)
	if !ok {
		ue = NewInternalError("Unexpected error", err.Error(), "Re-run with --verbose for more detail", err)
	}

	if jsonMode {
		payload := struct {
			Error      string `json:"error"`
			Kind       Kind   `json:"kind"`
			Detail     string `json:"detail"`
			Suggestion string `json:"suggestion,omitempty"`
		}{
			Error:      ue.Title,
			Kind:       ue.Kind,
			Detail:     ue.Detail,
			Suggestion: ue.Suggestion,
		}
		enc := json.NewEncoder(os.Stderr)
		enc.SetIndent("", "  ")
		_ = enc.Encode(payload)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "Error: %s\n", ue.Title)
	if ue.Detail != "" {
		fmt.Fprintf(os.Stderr, "  %s\n", ue.Detail)
	}
	if ue.Suggestion != "" {
		fmt.Fprintf(os.Stderr, "  Suggestion: %s\n", ue.Suggestion)
	}
	if ue.Cause != nil {
		fmt.Fprintf(os.Stderr, "  Cause: %v\n", ue.Cause)
	}
	os.Exit(1)
}
