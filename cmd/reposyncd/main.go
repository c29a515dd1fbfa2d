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

// Package main implements the reposyncd CLI: a registry and scheduler
// for keeping a fleet of git repositories indexed on independent
// cadences.
//
// Usage:
//
//	reposyncd init                        Create .reposync/config.yaml
//	reposyncd add <url> [--type=github]   Register a project
//	reposyncd [--json] list               List registered projects
//	reposyncd trigger <type>/<owner>/<repo>  Force an immediate sync
//	reposyncd serve                       Run the scheduler and admin API
package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/reposync/internal/ui"
)

// Version information (set via ldflags during build)
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// GlobalFlags holds the global CLI flags that apply to all commands.
type GlobalFlags struct {
	JSON    bool
	NoColor bool
	Verbose int
	Quiet   bool
}

func logInfo(globals GlobalFlags, format string, args ...interface{}) { //nolint:unused // Reserved for future use
	if !globals.Quiet && globals.Verbose >= 1 {
		fmt.Fprintf(os.Stderr, "[INFO] "+format+"\n", args...)
	}
}

func logDebug(globals GlobalFlags, format string, args ...interface{}) { //nolint:unused // Reserved for future use
	if globals.Verbose >= 2 {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

func logError(globals GlobalFlags, format string, args ...interface{}) { //nolint:unused // Reserved for future use
	if !globals.Quiet {
		fmt.Fprintf(os.Stderr, "[ERROR] "+format+"\n", args...)
	}
}

// main is the entry point for the reposyncd CLI.
//
// Global flags:
//   - --version: Display version information and exit
//   - --config: Path to .reposync/config.yaml
//
// Commands:
//   - init: Create .reposync/config.yaml
//   - add, update, remove, list, get: Registry management
//   - trigger, history, reset-retries, check-updates: Per-project operations
//   - stats: Fleet-wide status summary
//   - serve: Run the scheduler and admin HTTP API
func main() {
	var (
		showVersion = flag.BoolP("version", "V", false, "Show version and exit")
		configPath  = flag.StringP("config", "c", "", "Path to .reposync/config.yaml (default: ./.reposync/config.yaml)")
		jsonOutput  = flag.Bool("json", false, "Output in JSON format (for applicable commands)")
		noColor     = flag.Bool("no-color", false, "Disable color output")
		verbose     = flag.CountP("verbose", "v", "Increase verbosity (-v for info, -vv for debug)")
		quiet       = flag.BoolP("quiet", "q", false, "Suppress non-essential output (progress, info messages)")
	)

	// Stop parsing at the first non-flag argument (the command name), so
	// subcommand-specific flags like "add --enabled=false" pass through
	// to subcommand handlers instead of being rejected here.
	flag.SetInterspersed(false)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `reposyncd - git repository sync registry and scheduler

reposyncd keeps a fleet of git repositories mirrored locally and
re-indexed on independent schedules, retrying failures with backoff
and exposing fleet-wide status through a CLI and admin HTTP API.

Usage:
  reposyncd <command> [options]

Commands:
  init            Create .reposync/config.yaml
  add             Register a project for syncing
  update          Change a project's sync_interval or enabled flag
  remove          Unregister a project
  list            List registered projects
  get             Show one project's record
  trigger         Force an immediate sync, bypassing the schedule
  history         Show a project's recent sync history
  reset-retries   Clear a failed project's retry count
  check-updates   Check for upstream changes without syncing
  stats           Show fleet-wide status summary
  serve           Run the scheduler and admin HTTP API

Global Options:
  --json            Output in JSON format (for applicable commands)
  --no-color        Disable color output (respects NO_COLOR env var)
  -v, --verbose     Increase verbosity (-v for info, -vv for debug)
  -q, --quiet       Suppress non-essential output (progress, info messages)
  -c, --config      Path to .reposync/config.yaml
  -V, --version     Show version and exit

Examples:
  reposyncd init
  reposyncd add https://github.com/acme/widgets --type=github --token=$GH_TOKEN
  reposyncd --json list
  reposyncd trigger github/acme/widgets
  reposyncd serve

Data Storage:
  Metadata is stored in the configured data directory
  (default: ~/.reposync/data/); checkouts default to
  ~/.reposync/checkouts/.

Environment Variables:
  REPOSYNC_DATA_DIR, REPOSYNC_CHECKOUT_DIR, REPOSYNC_CONFIG_PATH
  REPOSYNC_SYNC_ENABLED, REPOSYNC_CHECK_INTERVAL_SECONDS
  REPOSYNC_DEFAULT_SYNC_INTERVAL_MINUTES, REPOSYNC_MAX_RETRIES
  REPOSYNC_RETRY_BASE_DELAY_SECONDS, REPOSYNC_AUTO_REGISTER
  REPOSYNC_HISTORY_CAPACITY

For detailed command help: reposyncd <command> --help

`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("reposyncd version %s\n", version)
		fmt.Printf("commit: %s\n", commit)
		fmt.Printf("built: %s\n", date)
		os.Exit(0)
	}

	if os.Getenv("NO_COLOR") != "" {
		*noColor = true
	}

	if *quiet && *verbose > 0 {
		fmt.Fprintf(os.Stderr, "Error: cannot use --quiet and --verbose together\n")
		os.Exit(1)
	}

	// JSON mode auto-enables quiet to prevent progress output corrupting
	// JSON output.
	if *jsonOutput {
		*quiet = true
	}

	globals := GlobalFlags{
		JSON:    *jsonOutput,
		NoColor: *noColor,
		Verbose: *verbose,
		Quiet:   *quiet,
	}

	ui.InitColors(globals.NoColor)

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "init":
		runInit(cmdArgs, *configPath, globals)
	case "add":
		runAdd(cmdArgs, *configPath, globals)
	case "update":
		runUpdate(cmdArgs, *configPath, globals)
	case "remove":
		runRemove(cmdArgs, *configPath, globals)
	case "list":
		runList(cmdArgs, *configPath, globals)
	case "get":
		runGet(cmdArgs, *configPath, globals)
	case "trigger":
		runTrigger(cmdArgs, *configPath, globals)
	case "history":
		runHistory(cmdArgs, *configPath, globals)
	case "reset-retries":
		runResetRetries(cmdArgs, *configPath, globals)
	case "check-updates":
		runCheckUpdates(cmdArgs, *configPath, globals)
	case "stats":
		runStats(cmdArgs, *configPath, globals)
	case "serve":
		os.Exit(runServe(cmdArgs, *configPath, globals))
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}
