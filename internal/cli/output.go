// OtakuMatch - Anime Taste Profiling and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/otakumatch

package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-json"

	"github.com/tomtom215/otakumatch/internal/models"
	"github.com/tomtom215/otakumatch/internal/recommend"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeScoredTable(w io.Writer, items []recommend.ScoredItem) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tMATCH\tLENGTH\tEPISODES\tGENRES")
	for _, it := range items {
		episodes := "?"
		if it.Episodes > 0 {
			episodes = strconv.Itoa(it.Episodes)
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\t%s\n",
			it.ID, it.Title, it.MatchScore, it.LengthCategory, episodes, strings.Join(it.Genres, ", "))
	}
	return tw.Flush()
}

func writeProfile(w io.Writer, view models.ProfileView) error {
	fmt.Fprintf(w, "Watched: %d titles\n", len(view.WatchedIDs))
	fmt.Fprintf(w, "Want to watch: %d titles\n", len(view.WantIDs))
	fmt.Fprintf(w, "Length preference: short %d, medium %d, long %d\n",
		view.LengthWeights.Short, view.LengthWeights.Medium, view.LengthWeights.Long)

	if len(view.TopGenres) == 0 {
		fmt.Fprintln(w, "No genre preferences yet.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "GENRE\tWEIGHT")
	for _, g := range view.TopGenres {
		fmt.Fprintf(tw, "%s\t%d\n", g.Genre, g.Weight)
	}
	return tw.Flush()
}
