// OtakuMatch - Anime Taste Profiling and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/otakumatch

// Command otakumatch is the OtakuMatch server and CLI.
package main

import "github.com/tomtom215/otakumatch/internal/cli"

func main() {
	cli.Execute()
}
