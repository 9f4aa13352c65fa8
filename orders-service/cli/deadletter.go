package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/draftea/order-saga/orders-service/application"
	"github.com/draftea/order-saga/orders-service/config"
	"github.com/draftea/order-saga/orders-service/handlers"
	"github.com/spf13/cobra"
)

type deadLetterFilter struct {
	statuses []string
	orderID  string
	limit    int
}

func (f *deadLetterFilter) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.statuses, "status", nil, "filter by status (pending,retrying,permanently_failed,resolved,replayed)")
	cmd.Flags().StringVar(&f.orderID, "order", "", "filter by order ID")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "maximum number of entries")
}

// NewDeadLetterCommand groups the dead-letter queue commands
func NewDeadLetterCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "deadletter",
		Aliases: []string{"dl"},
		Short:   "Inspect and replay dead letters",
	}

	cmd.AddCommand(newDeadLetterListCommand(opts))
	cmd.AddCommand(newDeadLetterReplayCommand(opts))
	return cmd
}

func newDeadLetterListCommand(opts *RootOptions) *cobra.Command {
	var filter deadLetterFilter

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List dead letters, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withDependencies(cmd.Context(), func(deps *config.Dependencies) error {
				entries, err := deps.UseCases.ListDeadLetters.Execute(cmd.Context(), &application.ListDeadLettersQuery{
					Statuses: filter.statuses,
					OrderID:  filter.orderID,
					Limit:    filter.limit,
				})
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to list dead letters", err)
				}
				views := handlers.NewDeadLetterViews(entries)
				return render(cmd.OutOrStdout(), opts.Format, views, func(w io.Writer) {
					if len(views) == 0 {
						fmt.Fprintln(w, "no dead letters")
						return
					}
					tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
					fmt.Fprintln(tw, "ID\tORDER\tEVENT\tOPERATION\tSTATUS\tRETRIES\tERROR")
					for _, v := range views {
						fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d/%d\t%s\n",
							v.ID, v.OrderID, v.EventType, v.Operation, v.Status, v.RetryCount, v.MaxRetries, v.ErrorMessage)
					}
					tw.Flush()
				})
			})
		},
	}

	filter.register(cmd)
	return cmd
}

func newDeadLetterReplayCommand(opts *RootOptions) *cobra.Command {
	var filter deadLetterFilter

	cmd := &cobra.Command{
		Use:   "replay [entry-id]",
		Short: "Replay one dead letter, or every entry matching the filters",
		Long: `Replay one dead letter, or every entry matching the filters.

Without an entry ID every open entry matching --status, --order and --limit is
replayed. Exits 1 when any replay is still failing.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withDependencies(cmd.Context(), func(deps *config.Dependencies) error {
				var results []*application.ReplayResult
				if len(args) == 1 {
					res, err := deps.UseCases.ReplayDeadLetter.Execute(cmd.Context(), &application.ReplayDeadLetterCommand{EntryID: args[0]})
					if err != nil {
						return WrapExitError(ExitCommandError, "failed to replay dead letter", err)
					}
					results = append(results, res)
				} else {
					var err error
					results, err = deps.UseCases.ReplayDeadLetter.ExecuteBatch(cmd.Context(), &application.ReplayDeadLettersCommand{
						Statuses: filter.statuses,
						OrderID:  filter.orderID,
						Limit:    filter.limit,
					})
					if err != nil {
						return WrapExitError(ExitCommandError, "failed to replay dead letters", err)
					}
				}

				if err := render(cmd.OutOrStdout(), opts.Format, results, func(w io.Writer) {
					if len(results) == 0 {
						fmt.Fprintln(w, "nothing to replay")
						return
					}
					tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
					fmt.Fprintln(tw, "ENTRY\tORDER\tOUTCOME\tSTATUS")
					for _, r := range results {
						fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.EntryID, r.OrderID, r.Outcome, r.Status)
					}
					tw.Flush()
				}); err != nil {
					return err
				}

				for _, r := range results {
					if r.Outcome == application.ReplayOutcomeStillFailing {
						return NewExitError(ExitFailure, "one or more dead letters are still failing")
					}
				}
				return nil
			})
		},
	}

	filter.register(cmd)
	return cmd
}
