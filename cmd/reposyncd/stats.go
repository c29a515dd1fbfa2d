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
	"os"
	"sort"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/reposync/internal/ui"
)

// runStats executes the 'stats' CLI command: a fleet-wide summary of
// registered projects, grouped by status, with an overall success rate.
//
// Examples:
//
//	reposyncd stats
//	reposyncd --json stats
func runStats(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	a := openApp(configPath, globals)
	s := a.reg.ComputeStats()

	if globals.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(s)
		return
	}

	ui.Header("Fleet Status")
	fmt.Printf("%s %s\n", ui.Label("Projects:"), ui.CountText(s.TotalProjects))
	fmt.Printf("%s %s\n", ui.Label("Running:"), ui.CountText(s.Running))
	fmt.Printf("%s %.1f%%  (%d/%d syncs)\n", ui.Label("Success rate:"), s.SuccessRate*100, s.SuccessfulSyncs, s.TotalSyncs)
	fmt.Println()

	ui.SubHeader("By status:")
	statuses := make([]string, 0, len(s.StatusCounts))
	for status := range s.StatusCounts {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)
	for _, status := range statuses {
		fmt.Printf("  %-12s %d\n", status, s.StatusCounts[status])
	}
}
