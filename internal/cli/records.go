package cli

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"jobmate/autoapply-service/internal/kanban"
	"jobmate/autoapply-service/internal/model"
)

// NewArchiveCommand creates the archive command.
func NewArchiveCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "archive",
		Short: "Drop discovered postings that were applied to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.App(cmd.Context())
			if err != nil {
				return err
			}
			n, err := app.Store.Archive(cmd.Context())
			if err != nil {
				return WrapExitError(ExitFailure, "archive failed", err)
			}
			return opts.output(cmd).Success(map[string]int{"archived": n}, func(w io.Writer) {
				fmt.Fprintf(w, "Archived %d applied posting(s)\n", n)
			})
		},
	}
}

// NewParkCommand creates the park command.
func NewParkCommand(opts *RootOptions) *cobra.Command {
	var link, platform string
	cmd := &cobra.Command{
		Use:   "park <title> <company>",
		Short: "Defer a posting so discovery stops returning it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.App(cmd.Context())
			if err != nil {
				return err
			}
			job := model.JobRecord{Title: args[0], Company: args[1], Link: link, Platform: platform}
			added, err := app.Store.Park(cmd.Context(), job.Title, job.Company, job)
			if err != nil {
				return WrapExitError(ExitFailure, "park failed", err)
			}
			return opts.output(cmd).Success(map[string]any{"jobId": job.ID(), "parked": added}, func(w io.Writer) {
				if added {
					fmt.Fprintf(w, "Parked %s\n", job.ID())
				} else {
					fmt.Fprintf(w, "%s was already parked\n", job.ID())
				}
			})
		},
	}
	cmd.Flags().StringVar(&link, "link", "", "posting link")
	cmd.Flags().StringVar(&platform, "platform", "", "posting platform")
	return cmd
}

// NewUnparkCommand creates the unpark command.
func NewUnparkCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "unpark <job-id>",
		Short: "Let a parked posting be discovered again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.App(cmd.Context())
			if err != nil {
				return err
			}
			removed, err := app.Store.Unpark(cmd.Context(), args[0])
			if err != nil {
				return WrapExitError(ExitFailure, "unpark failed", err)
			}
			if !removed {
				return NewExitError(ExitFailure, fmt.Sprintf("%s is not parked", args[0]))
			}
			return opts.output(cmd).Success(map[string]string{"unparked": args[0]}, func(w io.Writer) {
				fmt.Fprintf(w, "Unparked %s\n", args[0])
			})
		},
	}
}

// NewBlacklistCommand creates the blacklist command.
func NewBlacklistCommand(opts *RootOptions) *cobra.Command {
	var companies, titles, safe []string
	var remove bool

	cmd := &cobra.Command{
		Use:   "blacklist",
		Short: "Show or edit the company and title blacklist",
		Long: `Without flags, print the blacklist. With --company, --title or --safe,
add those entries (or remove them with --remove). A safe phrase rescues a
title that a blacklisted title fragment would otherwise reject.

Example:
  autoapply blacklist --company "Body Shop Consulting" --title Sales --safe "Sales Engineer"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.App(cmd.Context())
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			bl := app.Store.Blacklist(ctx)
			if len(companies)+len(titles)+len(safe) > 0 {
				edit := appendAll
				if remove {
					edit = removeAll
				}
				bl.Companies = edit(bl.Companies, companies)
				bl.Titles = edit(bl.Titles, titles)
				bl.SafePhrases = edit(bl.SafePhrases, safe)
				if err := app.Store.SaveBlacklist(ctx, bl); err != nil {
					return WrapExitError(ExitFailure, "save blacklist failed", err)
				}
				bl = app.Store.Blacklist(ctx)
			}
			return opts.output(cmd).Success(bl, func(w io.Writer) {
				fmt.Fprintf(w, "Companies:    %s\n", joinOrDash(bl.Companies))
				fmt.Fprintf(w, "Titles:       %s\n", joinOrDash(bl.Titles))
				fmt.Fprintf(w, "Safe phrases: %s\n", joinOrDash(bl.SafePhrases))
			})
		},
	}
	cmd.Flags().StringSliceVar(&companies, "company", nil, "company name fragment")
	cmd.Flags().StringSliceVar(&titles, "title", nil, "title fragment")
	cmd.Flags().StringSliceVar(&safe, "safe", nil, "safe phrase overriding title fragments")
	cmd.Flags().BoolVar(&remove, "remove", false, "remove the given entries instead of adding them")
	return cmd
}

func appendAll(list, add []string) []string { return append(list, add...) }

func removeAll(list, drop []string) []string {
	out := list[:0]
	for _, s := range list {
		keep := true
		for _, d := range drop {
			if strings.EqualFold(strings.TrimSpace(d), s) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, s)
		}
	}
	return out
}

func joinOrDash(list []string) string {
	if len(list) == 0 {
		return "-"
	}
	return strings.Join(list, ", ")
}

// NewAppliedCommand creates the applied command.
func NewAppliedCommand(opts *RootOptions) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "applied",
		Short: "List applied postings, most recently updated first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var want kanban.Status
			if status != "" {
				st, err := kanban.ParseStatus(strings.ToUpper(status))
				if err != nil {
					return WrapExitError(ExitCommandError, "invalid --status", err)
				}
				want = st
			}
			app, err := opts.App(cmd.Context())
			if err != nil {
				return err
			}
			recs := make([]model.AppliedRecord, 0)
			for _, r := range app.Store.AppliedList(cmd.Context()) {
				if want == "" || r.Status == string(want) {
					recs = append(recs, r)
				}
			}
			return opts.output(cmd).Success(recs, func(w io.Writer) {
				for _, r := range recs {
					fmt.Fprintf(w, "%-10s %s  %s\n", r.Status, r.UpdatedAt.Format("2006-01-02"), r.JobID)
				}
				fmt.Fprintf(w, "%d application(s)\n", len(recs))
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "only records with this status")
	return cmd
}

// NewStatusCommand creates the status command.
func NewStatusCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status <job-id> <STATUS>",
		Short: "Move an applied posting to a new status",
		Long: `Move an applied posting along TO_APPLY, APPLIED, SCREENING, INTERVIEW,
OFFER, ACCEPTED, or to REJECTED, WITHDRAWN or GHOSTED.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.App(cmd.Context())
			if err != nil {
				return err
			}
			rec, err := app.Kanban.MoveCard(cmd.Context(), args[0], strings.ToUpper(args[1]))
			var verr *kanban.ValidationError
			switch {
			case errors.Is(err, kanban.ErrNotFound):
				return NewExitError(ExitFailure, fmt.Sprintf("no applied record %q", args[0]))
			case errors.As(err, &verr):
				return WrapExitError(ExitCommandError, "status not changed", err)
			case err != nil:
				return WrapExitError(ExitFailure, "status not changed", err)
			}
			return opts.output(cmd).Success(rec, func(w io.Writer) {
				fmt.Fprintf(w, "%s is now %s\n", rec.JobID, rec.Status)
			})
		},
	}
}

// NewKeywordsCommand creates the keywords command.
func NewKeywordsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "keywords [resume [keyword...]]",
		Short: "Show or store a resume's target keywords",
		Long: `With no arguments, print every resume's keywords. With a resume name
only, print its keywords. With keywords, replace the stored list.

Example:
  autoapply keywords cv-2026.pdf golang "platform engineer" kubernetes`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.App(cmd.Context())
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if len(args) > 1 {
				if err := app.Store.SaveResumeKeywords(ctx, args[0], args[1:]); err != nil {
					return WrapExitError(ExitFailure, "save keywords failed", err)
				}
			}
			all := app.Store.ResumeKeywords(ctx)
			if len(args) > 0 {
				kws, ok := all[args[0]]
				if !ok {
					return NewExitError(ExitFailure, fmt.Sprintf("no keywords stored for resume %q", args[0]))
				}
				all = map[string][]string{args[0]: kws}
			}
			return opts.output(cmd).Success(all, func(w io.Writer) {
				names := make([]string, 0, len(all))
				for n := range all {
					names = append(names, n)
				}
				sort.Strings(names)
				for _, n := range names {
					fmt.Fprintf(w, "%s: %s\n", n, joinOrDash(all[n]))
				}
			})
		},
	}
}
