package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"
)

// NewAnswersCommand creates the answers command and its subcommands.
func NewAnswersCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "answers",
		Short: "Manage the answer book used to fill application forms",
	}
	cmd.AddCommand(newAnswersListCommand(opts))
	cmd.AddCommand(newAnswersSetCommand(opts))
	cmd.AddCommand(newAnswersUnknownCommand(opts))
	cmd.AddCommand(newAnswersClearUnknownCommand(opts))
	return cmd
}

func newAnswersListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print stored answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.App(cmd.Context())
			if err != nil {
				return err
			}
			book := app.Answers.Book()
			return opts.output(cmd).Success(book.Answers, func(w io.Writer) {
				keys := make([]string, 0, len(book.Answers))
				for k := range book.Answers {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				for _, k := range keys {
					fmt.Fprintf(w, "%s = %s\n", k, book.Answers[k])
				}
			})
		},
	}
}

func newAnswersSetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <question> <answer>",
		Short: "Store the answer to a question",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.App(cmd.Context())
			if err != nil {
				return err
			}
			if err := app.Answers.Learn(cmd.Context(), args[0], args[1]); err != nil {
				return WrapExitError(ExitFailure, "save answer failed", err)
			}
			return opts.output(cmd).Success(map[string]string{"question": args[0], "answer": args[1]}, func(w io.Writer) {
				fmt.Fprintf(w, "Stored answer for %q\n", args[0])
			})
		},
	}
}

func newAnswersUnknownCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "unknown",
		Short: "List questions that could not be answered",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.App(cmd.Context())
			if err != nil {
				return err
			}
			book, err := app.Store.LoadAnswers(cmd.Context())
			if err != nil {
				return WrapExitError(ExitFailure, "load answers failed", err)
			}
			return opts.output(cmd).Success(book.Unknown, func(w io.Writer) {
				for _, u := range book.Unknown {
					fmt.Fprintf(w, "%s  %s (%s @ %s)\n", u.At.Format("2006-01-02"), u.Question, u.JobTitle, u.Company)
				}
				fmt.Fprintf(w, "%d unknown question(s)\n", len(book.Unknown))
			})
		},
	}
}

func newAnswersClearUnknownCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-unknown",
		Short: "Empty the unknown-question log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.App(cmd.Context())
			if err != nil {
				return err
			}
			n, err := app.Store.ClearUnknown(cmd.Context())
			if err != nil {
				return WrapExitError(ExitFailure, "clear failed", err)
			}
			return opts.output(cmd).Success(map[string]int{"cleared": n}, func(w io.Writer) {
				fmt.Fprintf(w, "Cleared %d unknown question(s)\n", n)
			})
		},
	}
}
