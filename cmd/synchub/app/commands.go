package app

import (
	"fmt"

	"github.com/spf13/cobra"

	synchub "github.com/artificialadnaan/trocksynchubv3-sub001"
)

// NewSyncCommand creates the sync command.
func (a *App) NewSyncCommand() *cobra.Command {
	var (
		modeFlag      string
		createMissing bool
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one full sync pass",
		Long: `Run one full pass: extract both systems, match counterparts, resolve
field conflicts, and commit according to the mode.

Modes nest strictly: dry-run writes nothing anywhere, read-only persists
mappings and history locally but skips remote writes, write commits
everything.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mode, err := synchub.ParseMode(modeFlag)
			if err != nil {
				return err
			}
			a.config.CreateMissing = createMissing

			hub, err := a.Hub(cmd.Context())
			if err != nil {
				return err
			}
			summary, err := hub.RunSync(cmd.Context(), mode)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, summary.String())
			for _, d := range summary.Details {
				switch d.Status {
				case synchub.PairMatched:
					fmt.Fprintf(out, "  %-10s %s -> %s (%s)\n", d.Status, d.SourceID, d.TargetID, d.MatchType)
				case synchub.PairCreated:
					fmt.Fprintf(out, "  %-10s %s -> %s\n", d.Status, d.SourceID, d.TargetID)
				default:
					fmt.Fprintf(out, "  %-10s %s\n", d.Status, d.SourceID)
				}
			}
			for _, werr := range summary.WriteErrors {
				fmt.Fprintf(out, "  write error: %v\n", werr)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&modeFlag, "mode", "m", string(synchub.ModeDryRun), "run mode: dry-run, read-only, write")
	cmd.Flags().BoolVar(&createMissing, "create-missing", false, "create target counterparts for unmatched source entities")
	return cmd
}

// NewStatusCommand creates the status command.
func (a *App) NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show point-in-time stats over the local sync state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			hub, err := a.Hub(cmd.Context())
			if err != nil {
				return err
			}
			o, err := hub.Overview(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Pair:             %s\n", a.config.Pair)
			fmt.Fprintf(out, "Source entities:  %d\n", o.SourceEntities)
			fmt.Fprintf(out, "Target entities:  %d\n", o.TargetEntities)
			fmt.Fprintf(out, "Mappings:         %d\n", o.Mappings)
			for matchType, n := range o.ByMatchType {
				fmt.Fprintf(out, "  %-15s %d\n", matchType, n)
			}
			fmt.Fprintf(out, "Conflicted:       %d\n", o.Conflicted)
			fmt.Fprintf(out, "Unmatched source: %d\n", o.UnmatchedSource)
			fmt.Fprintf(out, "Unmatched target: %d\n", o.UnmatchedTarget)
			fmt.Fprintf(out, "History records:  %d\n", o.HistoryRecords)
			return nil
		},
	}
}

// NewUnmatchedCommand creates the unmatched command.
func (a *App) NewUnmatchedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unmatched",
		Short: "List entities on either side with no counterpart",
		RunE: func(cmd *cobra.Command, _ []string) error {
			hub, err := a.Hub(cmd.Context())
			if err != nil {
				return err
			}
			report, err := hub.Unmatched(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Unmatched source (%d):\n", len(report.UnmatchedSource))
			for _, id := range report.UnmatchedSource {
				fmt.Fprintf(out, "  %s\n", id)
			}
			fmt.Fprintf(out, "Unmatched target (%d):\n", len(report.UnmatchedTarget))
			for _, id := range report.UnmatchedTarget {
				fmt.Fprintf(out, "  %s\n", id)
			}
			return nil
		},
	}
}

// NewLinkCommand creates the link command.
func (a *App) NewLinkCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "link SOURCE_ID TARGET_ID",
		Short: "Manually link a source entity to a target entity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			hub, err := a.Hub(cmd.Context())
			if err != nil {
				return err
			}
			m, err := hub.CreateManualMapping(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Linked %s -> %s (mapping %s)\n", m.SourceID, m.TargetID, m.ID)
			return nil
		},
	}
}

// NewUnlinkCommand creates the unlink command.
func (a *App) NewUnlinkCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unlink MAPPING_ID",
		Short: "Remove a mapping by its ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hub, err := a.Hub(cmd.Context())
			if err != nil {
				return err
			}
			if err := hub.DeleteMapping(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Unlinked mapping %s\n", args[0])
			return nil
		},
	}
}

// NewHistoryCommand creates the history command.
func (a *App) NewHistoryCommand() *cobra.Command {
	var (
		limit int
		purge bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show or purge the change history",
		RunE: func(cmd *cobra.Command, _ []string) error {
			hub, err := a.Hub(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if purge {
				removed, err := hub.PurgeHistory(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Purged %d records older than %s\n", removed, a.config.Retention)
				return nil
			}

			store, err := a.Store(cmd.Context())
			if err != nil {
				return err
			}
			records, err := store.History.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			for _, r := range records {
				switch {
				case r.Field != "":
					fmt.Fprintf(out, "%s  %-12s %s/%s  %s: %q -> %q\n",
						r.SyncedAt.Format("2006-01-02 15:04:05"), r.ChangeType, r.EntityType, r.EntityID,
						r.Field, r.OldValue, r.NewValue)
				default:
					fmt.Fprintf(out, "%s  %-12s %s/%s\n",
						r.SyncedAt.Format("2006-01-02 15:04:05"), r.ChangeType, r.EntityType, r.EntityID)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum records to show (0 for all)")
	cmd.Flags().BoolVar(&purge, "purge", false, "remove records older than the retention window")
	return cmd
}
