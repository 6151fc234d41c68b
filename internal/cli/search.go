package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"jobmate/autoapply-service/internal/orchestrator"
	"jobmate/autoapply-service/internal/scraper"
)

// SearchOptions holds flags for the search command.
type SearchOptions struct {
	*RootOptions
	Location  string
	Platforms []string
	Limit     int
	EasyApply bool
	Details   bool
}

// NewSearchCommand creates the search command.
func NewSearchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SearchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "search <keyword...>",
		Short: "Discover postings on one or more platforms",
		Long: `Search each platform in turn and merge the results into the
discovered set. A failing platform is reported and the others still run;
the command then exits with status 1.

Example:
  autoapply search "golang developer" --location Paris --platforms LinkedIn,Indeed
  autoapply search sre --platforms All --limit 50 --details`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, opts, strings.Join(args, " "))
		},
	}

	cmd.Flags().StringVarP(&opts.Location, "location", "l", "", "location to search in")
	cmd.Flags().StringSliceVarP(&opts.Platforms, "platforms", "p", []string{scraper.AllPlatforms}, "platforms to search, or All")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 25, "maximum postings per platform")
	cmd.Flags().BoolVar(&opts.EasyApply, "easy-apply", false, "only easy-apply postings")
	cmd.Flags().BoolVar(&opts.Details, "details", false, "fetch each posting's description")

	return cmd
}

func runSearch(cmd *cobra.Command, opts *SearchOptions, keyword string) error {
	if opts.Limit < 1 {
		return NewExitError(ExitCommandError, "--limit must be positive")
	}
	app, err := opts.App(cmd.Context())
	if err != nil {
		return err
	}

	rep, err := app.Orchestrator.Discover(cmd.Context(), orchestrator.DiscoverRequest{
		Keyword:       keyword,
		Location:      opts.Location,
		Platforms:     opts.Platforms,
		Limit:         opts.Limit,
		EasyApplyOnly: opts.EasyApply,
		Details:       opts.Details,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "search failed", err)
	}

	if err := opts.output(cmd).Success(rep, func(w io.Writer) { printDiscovery(w, rep) }); err != nil {
		return err
	}

	failed := 0
	for _, p := range rep.Platforms {
		if p.Err != "" {
			failed++
		}
	}
	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d platform(s) failed", failed, len(rep.Platforms)))
	}
	return nil
}

func printDiscovery(w io.Writer, rep orchestrator.DiscoveryReport) {
	fmt.Fprintf(w, "Search %q", rep.Keyword)
	if rep.Location != "" {
		fmt.Fprintf(w, " in %s", rep.Location)
	}
	fmt.Fprintln(w)
	for _, p := range rep.Platforms {
		if p.Err != "" {
			fmt.Fprintf(w, "  %-10s FAILED: %s\n", p.Platform, p.Err)
			if p.Found == 0 {
				continue
			}
		}
		fmt.Fprintf(w, "  %-10s found %d, added %d, merged %d, filtered %d\n",
			p.Platform, p.Found, p.Saved.Added, p.Saved.Merged, p.Saved.Blacklisted+p.Saved.Excluded)
	}
}
