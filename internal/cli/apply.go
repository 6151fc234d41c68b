package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"jobmate/autoapply-service/internal/orchestrator"
	"jobmate/autoapply-service/internal/scraper"
)

// ApplyOptions holds flags for the apply command.
type ApplyOptions struct {
	*RootOptions
	Keywords  []string
	Resume    string
	Location  string
	Platforms []string
	Target    int
	MaxPages  int
	PageSize  int
}

// NewApplyCommand creates the apply command.
func NewApplyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ApplyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply to easy-apply postings",
		Long: `Search every keyword on every selected platform with the easy-apply
filter and apply to each posting that is not applied, parked or blacklisted.
Keywords come from --keywords, or from the keywords stored for --resume.

Example:
  autoapply apply --keywords golang,"platform engineer" --location Lyon --target 10
  autoapply apply --resume cv-2026.pdf --platforms LinkedIn`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(cmd, opts)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.Keywords, "keywords", "k", nil, "search keywords")
	cmd.Flags().StringVar(&opts.Resume, "resume", "", "use the keywords stored for this resume")
	cmd.Flags().StringVarP(&opts.Location, "location", "l", "", "location to search in")
	cmd.Flags().StringSliceVarP(&opts.Platforms, "platforms", "p", []string{scraper.AllPlatforms}, "platforms to apply on, or All")
	cmd.Flags().IntVar(&opts.Target, "target", 0, "stop after this many applications (0 = no target)")
	cmd.Flags().IntVar(&opts.MaxPages, "max-pages", 5, "search pages per keyword and platform")
	cmd.Flags().IntVar(&opts.PageSize, "page-size", 25, "postings per search page")

	return cmd
}

func runApply(cmd *cobra.Command, opts *ApplyOptions) error {
	if opts.Target < 0 || opts.MaxPages < 1 || opts.PageSize < 1 {
		return NewExitError(ExitCommandError, "--target must be >= 0, --max-pages and --page-size positive")
	}
	app, err := opts.App(cmd.Context())
	if err != nil {
		return err
	}

	keywords := opts.Keywords
	if len(keywords) == 0 && opts.Resume != "" {
		stored, ok := app.Store.ResumeKeywords(cmd.Context())[opts.Resume]
		if !ok {
			return NewExitError(ExitCommandError, fmt.Sprintf("no keywords stored for resume %q", opts.Resume))
		}
		keywords = stored
	}
	if len(keywords) == 0 {
		return NewExitError(ExitCommandError, "no keywords: pass --keywords or --resume")
	}

	adapters, err := app.Registry.Resolve(opts.Platforms)
	if err != nil {
		return WrapExitError(ExitCommandError, "apply failed", err)
	}

	var targets []orchestrator.Target
	for _, kw := range keywords {
		for _, a := range adapters {
			targets = append(targets, orchestrator.Target{
				Role:     opts.Resume,
				Keyword:  kw,
				Location: opts.Location,
				Platform: a.Platform(),
			})
		}
	}

	res := app.Orchestrator.LiveApply(cmd.Context(), targets, orchestrator.Options{
		TargetCount: opts.Target,
		MaxPages:    opts.MaxPages,
		PageSize:    opts.PageSize,
	})
	return opts.output(cmd).Success(res, func(w io.Writer) { printRun(w, res) })
}

func printRun(w io.Writer, res orchestrator.Result) {
	fmt.Fprintf(w, "Run %s: applied %d, skipped %d, errors %d, checked %d (%s)\n",
		res.RunID, len(res.Applied), len(res.Skipped), len(res.Errors), res.Checked, res.StopReason)
	for _, e := range res.Applied {
		fmt.Fprintf(w, "  applied  %s @ %s [%s]\n", e.Title, e.Company, e.Platform)
	}

	reasons := map[string]int{}
	for _, e := range res.Skipped {
		reasons[e.Reason]++
	}
	keys := make([]string, 0, len(reasons))
	for k := range reasons {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  skipped  %d × %s\n", reasons[k], k)
	}

	for _, e := range res.Errors {
		if e.Title == "" {
			fmt.Fprintf(w, "  error    [%s] %s\n", e.Platform, e.Reason)
			continue
		}
		fmt.Fprintf(w, "  error    %s @ %s [%s]: %s\n", e.Title, e.Company, e.Platform, e.Reason)
	}
	if len(res.Unknown) > 0 {
		fmt.Fprintf(w, "Unknown questions (%d):\n", len(res.Unknown))
		for _, u := range res.Unknown {
			fmt.Fprintf(w, "  - %s\n", u.Question)
		}
	}
}
