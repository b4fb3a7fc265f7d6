package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/go-trip-planner/config"
	"github.com/FACorreiaa/go-trip-planner/internal/api/auth"
	"github.com/FACorreiaa/go-trip-planner/internal/categories"
	"github.com/FACorreiaa/go-trip-planner/internal/itinerary"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "plannerctl",
		Short: "Itinerary planning helpers",
		Long: `plannerctl runs the trip planner's scheduling helpers offline: find a free
slot on a day, diff two itinerary snapshots, map trip preferences to place
categories and validate a generated itinerary. Inputs are JSON files; "-" or
no file reads stdin. The token command signs an access token with the
server's configured JWT secret.`,
		SilenceUsage: true,
	}
	root.AddCommand(newSlotCmd(), newDiffCmd(), newCategoriesCmd(), newParseCmd(), newTokenCmd())
	return root
}

func newSlotCmd() *cobra.Command {
	var day int
	cmd := &cobra.Command{
		Use:   "slot [items.json]",
		Short: "Earliest free 30 minute slot on a day",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if day < 1 {
				return fmt.Errorf("--day must be at least 1")
			}
			var items []itinerary.ItineraryPOI
			if err := readJSON(cmd, arg(args, 0), &items); err != nil {
				return err
			}
			slot, err := itinerary.FindFreeSlot(day, items)
			if err != nil {
				return err
			}
			return writeJSON(cmd, slot)
		},
	}
	cmd.Flags().IntVar(&day, "day", 1, "trip day to search")
	return cmd
}

func newDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff local.json remote.json",
		Short: "Changeset that turns the remote snapshot into the local one",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var local, remote itinerary.Snapshot
			if err := readJSON(cmd, args[0], &local); err != nil {
				return err
			}
			if err := readJSON(cmd, args[1], &remote); err != nil {
				return err
			}
			return writeJSON(cmd, itinerary.Diff(local, remote))
		},
	}
}

func newCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories [trip.json]",
		Short: "Place categories for a trip's interests and food preferences",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var trip types.TripData
			if err := readJSON(cmd, arg(args, 0), &trip); err != nil {
				return err
			}
			mapper, err := categories.NewMapper()
			if err != nil {
				return err
			}
			return writeJSON(cmd, mapper.GetCategoryMappings(trip))
		},
	}
}

func newParseCmd() *cobra.Command {
	var (
		days        int
		foodFile    string
		attractFile string
	)
	cmd := &cobra.Command{
		Use:   "parse [itinerary.json]",
		Short: "Validate a generated itinerary against the selected places",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var food, attractions []types.POI
			if foodFile != "" {
				if err := readJSON(cmd, foodFile, &food); err != nil {
					return err
				}
			}
			if attractFile != "" {
				if err := readJSON(cmd, attractFile, &attractions); err != nil {
					return err
				}
			}
			raw, err := readAll(cmd, arg(args, 0))
			if err != nil {
				return err
			}

			res := itinerary.Parser{Days: days}.Parse(string(raw), food, attractions)
			if m, ok := res.(itinerary.MalformedItinerary); ok {
				fmt.Fprintf(cmd.ErrOrStderr(), "itinerary rejected: %v\n", m.Err)
			}
			placed, unused := itinerary.Lists(res)
			return writeJSON(cmd, itinerary.Snapshot{ItineraryPOIs: placed, UnusedPOIs: unused})
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "trip length; items on later days become unused (0 = no limit)")
	cmd.Flags().StringVar(&foodFile, "food", "", "JSON file with the selected restaurants")
	cmd.Flags().StringVar(&attractFile, "attractions", "", "JSON file with the selected attractions")
	return cmd
}

func newTokenCmd() *cobra.Command {
	var (
		userID string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign an access token for a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if userID == "" {
				return fmt.Errorf("--user is required")
			}
			cfg, err := config.InitConfig()
			if err != nil {
				return err
			}
			if cfg.JWT.SecretKey == "" {
				return fmt.Errorf("jwt secret is not configured")
			}
			token, err := auth.IssueAccessToken(cfg.JWT, userID, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id placed in the token")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}

func arg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return "-"
}

func readAll(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return b, nil
}

func readJSON(cmd *cobra.Command, path string, dst any) error {
	b, err := readAll(cmd, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
