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
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/reposync/internal/errors"
	"github.com/kraklabs/reposync/internal/ui"
)

// runInit executes the 'init' CLI command, writing a fresh
// .reposync/config.yaml in the current directory.
//
// Examples:
//
//	reposyncd init
//	reposyncd init --force
func runInit(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	force := fs.Bool("force", false, "Overwrite an existing configuration file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: reposyncd init [options]

Description:
  Create .reposync/config.yaml with default scheduler settings.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	target := configPath
	if target == "" {
		target = ".reposync/config.yaml"
	}

	if !*force {
		if _, err := os.Stat(target); err == nil {
			errors.FatalError(errors.NewConfigError(
				"Configuration already exists",
				fmt.Sprintf("%s already exists", target),
				"Use --force to overwrite it",
				nil,
			), globals.JSON)
		}
	}

	cfg := DefaultConfig()
	if err := SaveConfig(cfg, target); err != nil {
		errors.FatalError(errors.NewConfigError(
			"Cannot write configuration",
			fmt.Sprintf("Failed to write %s", target),
			"Check directory permissions",
			err,
		), globals.JSON)
	}

	if globals.JSON {
		fmt.Printf(`{"config_path":%q}`+"\n", target)
		return
	}
	ui.Success(fmt.Sprintf("Created %s", target))
}
