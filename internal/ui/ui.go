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

// Package ui provides colored terminal output helpers for the reposyncd CLI.
package ui

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed)
	dim    = color.New(color.Faint)
	bold   = color.New(color.Bold)
)

// InitColors enables or disables ANSI color output. noColor forces plain
// text regardless of terminal detection; otherwise color is enabled only
// when stdout is an actual terminal.
func InitColors(noColor bool) {
	if noColor || !isatty.IsTerminal(os.Stdout.Fd()) {
		color.NoColor = true
	}
}

func Header(text string) {
	fmt.Println(bold.Sprint(text))
}

func SubHeader(text string) {
	fmt.Println(bold.Sprint(text))
}

func Label(text string) string {
	return bold.Sprint(text)
}

func DimText(text string) string {
	return dim.Sprint(text)
}

func CountText(n int) string {
	return bold.Sprint(n)
}

func Warning(text string) {
	fmt.Fprintln(os.Stderr, yellow.Sprint("Warning: ")+text)
}

func Warningf(format string, args ...any) {
	Warning(fmt.Sprintf(format, args...))
}

func Info(text string) {
	fmt.Println(text)
}

func Success(text string) {
	fmt.Println(green.Sprint(text))
}

func Green(text string) string {
	return green.Sprint(text)
}

func Yellow(text string) string {
	return yellow.Sprint(text)
}

func Red(text string) string {
	return red.Sprint(text)
}

func Dim(text string) string {
	return dim.Sprint(text)
}
