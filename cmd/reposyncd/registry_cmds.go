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

package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/reposync/internal/errors"
	"github.com/kraklabs/reposync/internal/ui"
	"github.com/kraklabs/reposync/pkg/syncmeta"
)

// runAdd executes the 'add' CLI command: register a project for syncing,
// or update it in place if the key already exists.
//
// Examples:
//
//	reposyncd add https://github.com/acme/widgets --type=github
//	reposyncd add https://gitlab.com/acme/widgets --type=gitlab --token=$TOK --interval=30m
func runAdd(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	repoType := fs.String("type", "github", "Repository type: github, gitlab, or bitbucket")
	owner := fs.String("owner", "", "Owner/namespace (inferred from the URL if omitted)")
	repo := fs.String("repo", "", "Repository name (inferred from the URL if omitted)")
	token := fs.String("token", "", "Access token for cloning and fetching")
	interval := fs.Duration("interval", 0, "Sync interval, e.g. 30m, 1h (default: config's default_sync_interval_minutes)")
	enabled := fs.Bool("enabled", true, "Whether the project is eligible for scheduled syncs")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: reposyncd add <repo_url> [options]

Description:
  Register a repository for syncing. Re-running add for the same
  (type, owner, repo) updates the mutable fields without resetting
  status, counters, or history.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	positional := fs.Args()
	if len(positional) != 1 {
		exitUsage("Usage: reposyncd add <repo_url> [options]")
	}
	repoURL := positional[0]

	rt, ok := isKnownRepoType(*repoType)
	if !ok {
		errors.FatalError(errors.NewInputError(
			"Unknown repository type",
			fmt.Sprintf("%q is not one of github, gitlab, bitbucket", *repoType),
			"Pass --type=github, --type=gitlab, or --type=bitbucket",
			nil,
		), globals.JSON)
	}

	o, r := *owner, *repo
	if o == "" || r == "" {
		inferredOwner, inferredRepo, err := ownerRepoFromURL(repoURL)
		if err != nil {
			errors.FatalError(errors.NewInputError(
				"Cannot infer owner/repo",
				err.Error(),
				"Pass --owner and --repo explicitly",
				err,
			), globals.JSON)
		}
		if o == "" {
			o = inferredOwner
		}
		if r == "" {
			r = inferredRepo
		}
	}

	a := openApp(configPath, globals)
	rec, err := a.reg.Add(repoURL, o, r, rt, *interval, *token, *enabled)
	if err != nil {
		errors.FatalError(errors.NewInternalError("Cannot register project", err.Error(), "", err), globals.JSON)
	}

	outward := rec.Outward()
	printRecord(outward, globals)
}

// runUpdate executes the 'update' CLI command: change sync_interval
// and/or enabled for a registered project.
func runUpdate(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("update", flag.ExitOnError)
	interval := fs.Duration("interval", 0, "New sync interval (0 leaves it unchanged)")
	enable := fs.Bool("enable", false, "Enable the project")
	disable := fs.Bool("disable", false, "Disable the project")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: reposyncd update <repo_type>/<owner>/<repo> [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	positional := fs.Args()
	if len(positional) != 1 {
		exitUsage("Usage: reposyncd update <repo_type>/<owner>/<repo> [options]")
	}
	key, err := parseKeyArg(positional[0])
	if err != nil {
		errors.FatalError(errors.NewInputError("Invalid project key", err.Error(), "", err), globals.JSON)
	}
	if *enable && *disable {
		errors.FatalError(errors.NewInputError("Conflicting flags", "--enable and --disable cannot both be set", "", nil), globals.JSON)
	}

	a := openApp(configPath, globals)
	var intervalArg *time.Duration
	if *interval > 0 {
		intervalArg = interval
	}
	var enabledArg *bool
	if *enable {
		v := true
		enabledArg = &v
	} else if *disable {
		v := false
		enabledArg = &v
	}

	outward, err := a.reg.Update(key, intervalArg, enabledArg)
	if err != nil {
		errors.FatalError(toFatal(err, key), globals.JSON)
	}
	printRecord(*outward, globals)
}

// runRemove executes the 'remove' CLI command: unregister a project.
func runRemove(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("remove", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: reposyncd remove <repo_type>/<owner>/<repo>\n")
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	positional := fs.Args()
	if len(positional) != 1 {
		exitUsage("Usage: reposyncd remove <repo_type>/<owner>/<repo>")
	}
	key, err := parseKeyArg(positional[0])
	if err != nil {
		errors.FatalError(errors.NewInputError("Invalid project key", err.Error(), "", err), globals.JSON)
	}

	a := openApp(configPath, globals)
	existed, err := a.reg.Remove(key)
	if err != nil {
		errors.FatalError(errors.NewInternalError("Cannot remove project", err.Error(), "", err), globals.JSON)
	}
	if !existed {
		errors.FatalError(errors.NewInputError("Project not found", key.String(), "", nil), globals.JSON)
	}
	if globals.JSON {
		fmt.Printf(`{"removed":true,"key":%q}`+"\n", key.String())
		return
	}
	ui.Success(fmt.Sprintf("Removed %s", key.String()))
}

// runList executes the 'list' CLI command: show every registered project.
func runList(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	a := openApp(configPath, globals)
	all := a.reg.List()

	if globals.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(all)
		return
	}

	if len(all) == 0 {
		ui.Info("No projects registered.")
		return
	}
	ui.Header("Registered Projects")
	for _, rec := range all {
		fmt.Printf("  %-10s %s/%s  %s  next=%s\n",
			rec.RepoType, rec.Owner, rec.Repo, statusLabel(rec.Status), nextSyncLabel(rec.NextSync))
	}
}

// runGet executes the 'get' CLI command: show one project's record.
func runGet(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	positional := fs.Args()
	if len(positional) != 1 {
		exitUsage("Usage: reposyncd get <repo_type>/<owner>/<repo>")
	}
	key, err := parseKeyArg(positional[0])
	if err != nil {
		errors.FatalError(errors.NewInputError("Invalid project key", err.Error(), "", err), globals.JSON)
	}

	a := openApp(configPath, globals)
	outward := a.reg.Get(key)
	if outward == nil {
		errors.FatalError(errors.NewInputError("Project not found", key.String(), "", nil), globals.JSON)
	}
	printRecord(*outward, globals)
}

func printRecord(rec syncmeta.OutwardRecord, globals GlobalFlags) {
	if globals.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(rec)
		return
	}
	ui.Header(fmt.Sprintf("%s/%s/%s", rec.RepoType, rec.Owner, rec.Repo))
	fmt.Printf("%s %s\n", ui.Label("Status:"), statusLabel(rec.Status))
	fmt.Printf("%s %s\n", ui.Label("URL:"), rec.RepoURL)
	fmt.Printf("%s %v\n", ui.Label("Enabled:"), rec.Enabled)
	fmt.Printf("%s %s\n", ui.Label("Sync interval:"), rec.SyncInterval)
	fmt.Printf("%s %s\n", ui.Label("Next sync:"), nextSyncLabel(rec.NextSync))
	fmt.Printf("%s %d documents, %d embeddings\n", ui.Label("Last indexed:"), rec.DocumentCount, rec.EmbeddingCount)
	if rec.ErrorMessage != "" {
		fmt.Println()
		ui.Warning(rec.ErrorMessage)
	}
}

func statusLabel(s syncmeta.Status) string {
	switch s {
	case syncmeta.StatusCompleted:
		return ui.Green(string(s))
	case syncmeta.StatusFailed:
		return ui.Red(string(s))
	case syncmeta.StatusInProgress:
		return ui.Yellow(string(s))
	default:
		return ui.Dim(string(s))
	}
}

func nextSyncLabel(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.RFC3339)
}

func toFatal(err error, key syncmeta.Key) error {
	return errors.NewInputError("Project not found", key.String(), "Check 'reposyncd list' for registered keys", err)
}

// ownerRepoFromURL extracts owner/repo from a git remote URL of the form
// https://host/owner/repo(.git) or git@host:owner/repo(.git).
func ownerRepoFromURL(repoURL string) (string, string, error) {
	trimmed := strings.TrimSuffix(repoURL, ".git")

	if u, err := url.Parse(trimmed); err == nil && u.Host != "" {
		return splitOwnerRepo(strings.TrimPrefix(u.Path, "/"))
	}

	if idx := strings.Index(trimmed, ":"); idx != -1 && strings.Contains(trimmed, "@") {
		return splitOwnerRepo(trimmed[idx+1:])
	}

	return "", "", fmt.Errorf("cannot parse owner/repo from %q", repoURL)
}

func splitOwnerRepo(p string) (string, string, error) {
	p = strings.Trim(p, "/")
	owner := path.Dir(p)
	repo := path.Base(p)
	if owner == "." || owner == "" || repo == "" || repo == "." {
		return "", "", fmt.Errorf("cannot parse owner/repo from path %q", p)
	}
	return owner, repo, nil
}
