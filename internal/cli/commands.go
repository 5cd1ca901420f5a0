// OtakuMatch - Anime Taste Profiling and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/otakumatch

package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tomtom215/otakumatch/internal/models"
	"github.com/tomtom215/otakumatch/internal/recommend"
)

type actionKind int

const (
	actionWatched actionKind = iota
	actionWant
)

func newRecommendCommand(opts *rootOptions) *cobra.Command {
	var (
		query string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Rank catalog titles against your taste profile",
		Long: `Fetch the top titles (or search results for --query), score them against
the taste profile and print the best matches you have not recorded yet.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), opts.cfg, false)
			if err != nil {
				return err
			}
			defer a.Close()

			resp := a.recommender.Recommend(cmd.Context(), recommend.Request{Query: query, Limit: limit})
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), models.RecommendationsResponse{
					Items:      resp.Items,
					Source:     resp.Source,
					Query:      resp.Query,
					Candidates: resp.Candidates,
					Excluded:   resp.Excluded,
				})
			}
			if len(resp.Items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No recommendations. Is the catalog reachable?")
				return nil
			}
			return writeScoredTable(cmd.OutOrStdout(), resp.Items)
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "search the catalog instead of using the top titles")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "number of results (default from config)")
	return cmd
}

func newSearchCommand(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the catalog, annotated with match scores",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.TrimSpace(strings.Join(args, " "))
			if query == "" {
				return fmt.Errorf("query must not be blank")
			}

			a, err := newApp(cmd.Context(), opts.cfg, false)
			if err != nil {
				return err
			}
			defer a.Close()

			items := a.recommender.Search(cmd.Context(), query, limit)
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), models.SearchResponse{Items: items, Query: query})
			}
			if len(items) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No results for %q.\n", query)
				return nil
			}
			return writeScoredTable(cmd.OutOrStdout(), items)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "number of results (default from config)")
	return cmd
}

func newActionCommand(opts *rootOptions, kind actionKind) *cobra.Command {
	use, short, verb := "watched <id>", "Mark a title as watched", "watched"
	if kind == actionWant {
		use, short, verb = "want <id>", "Add a title to your want-to-watch list", "want-to-watch"
	}

	return &cobra.Command{
		Use:   use,
		Short: short,
		Long:  short + ". The title is looked up in the catalog by its MyAnimeList id.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil || id <= 0 {
				return fmt.Errorf("id must be a positive integer, got %q", args[0])
			}

			a, err := newApp(cmd.Context(), opts.cfg, false)
			if err != nil {
				return err
			}
			defer a.Close()

			item, err := a.resolve(cmd.Context(), id)
			if err != nil {
				return err
			}

			var applied bool
			if kind == actionWant {
				applied, err = a.store.RecordWantToWatch(cmd.Context(), item)
			} else {
				applied, err = a.store.RecordWatched(cmd.Context(), item)
			}
			if err != nil {
				return err
			}

			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), models.ActionResponse{
					Applied: applied,
					Item:    item,
					Profile: models.NewProfileView(a.store.Snapshot()),
				})
			}
			if applied {
				fmt.Fprintf(cmd.OutOrStdout(), "Added %q (%d) to %s.\n", item.Title, item.ID, verb)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%q (%d) is already on %s.\n", item.Title, item.ID, verb)
			}
			return nil
		},
	}
}

func newProfileCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Show the taste profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), opts.cfg, false)
			if err != nil {
				return err
			}
			defer a.Close()

			view := models.NewProfileView(a.store.Snapshot())
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), view)
			}
			return writeProfile(cmd.OutOrStdout(), view)
		},
	}
}

func newResetCommand(opts *rootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Forget every recorded title and all preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return fmt.Errorf("refusing to reset without --yes")
			}
			a, err := newApp(cmd.Context(), opts.cfg, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.store.Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Taste profile reset.")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm the reset")
	return cmd
}
