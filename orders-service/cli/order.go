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

// NewOrderCommand groups the per-order operator commands
func NewOrderCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Inspect and repair a single order",
	}

	cmd.AddCommand(newOrderGetCommand(opts))
	cmd.AddCommand(newOrderRetryCommand(opts))
	cmd.AddCommand(newOrderDiagnoseCommand(opts))
	cmd.AddCommand(newOrderRebuildCommand(opts))
	return cmd
}

func newOrderGetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <order-id>",
		Short: "Show an order and its event history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withDependencies(cmd.Context(), func(deps *config.Dependencies) error {
				res, err := deps.UseCases.GetOrder.Execute(cmd.Context(), &application.GetOrderQuery{OrderID: args[0]})
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to get order", err)
				}
				view := handlers.NewOrderView(res.Order, res.Events)
				return render(cmd.OutOrStdout(), opts.Format, view, func(w io.Writer) {
					printOrder(w, view)
				})
			})
		},
	}
}

func newOrderRetryCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <order-id>",
		Short: "Resume a failed order at the stage that failed",
		Long: `Resume a failed order at the stage that failed.

The retry runs with a fresh correlation ID. The command waits for the saga run to
finish before exiting. Exits 1 when the order is not in a retryable state.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withDependencies(cmd.Context(), func(deps *config.Dependencies) error {
				res, err := deps.UseCases.RetryOrder.Execute(cmd.Context(), &application.RetryOrderCommand{OrderID: args[0]})
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to retry order", err)
				}
				if err := render(cmd.OutOrStdout(), opts.Format, res, func(w io.Writer) {
					if res.Accepted {
						fmt.Fprintf(w, "retry accepted for order %s at stage %s (correlation %s)\n", res.OrderID, res.Stage, res.CorrelationID)
						return
					}
					fmt.Fprintf(w, "retry rejected for order %s: %s\n", res.OrderID, res.Reason)
				}); err != nil {
					return err
				}
				if !res.Accepted {
					return NewExitError(ExitFailure, "retry rejected")
				}
				return nil
			})
		},
	}
}

func newOrderDiagnoseCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "diagnose <order-id>",
		Short: "Explain where an order is and what to do about it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withDependencies(cmd.Context(), func(deps *config.Dependencies) error {
				d, err := deps.UseCases.Diagnose.Execute(cmd.Context(), &application.DiagnoseQuery{OrderID: args[0]})
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to diagnose order", err)
				}
				return render(cmd.OutOrStdout(), opts.Format, d, func(w io.Writer) {
					tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
					fmt.Fprintf(tw, "order\t%s\n", d.OrderID)
					fmt.Fprintf(tw, "status\t%s\n", d.Status)
					fmt.Fprintf(tw, "stage\t%s\n", d.Stage)
					fmt.Fprintf(tw, "stuck\t%t\n", d.IsStuck)
					fmt.Fprintf(tw, "since last event\t%s\n", d.TimeSinceLastEvent)
					fmt.Fprintf(tw, "last event\t%s\n", d.LastEventType)
					fmt.Fprintf(tw, "in flight\t%t\n", d.InFlight)
					fmt.Fprintf(tw, "open dead letters\t%d\n", d.OpenDeadLetters)
					fmt.Fprintf(tw, "projection drift\t%t\n", d.ProjectionDrift)
					fmt.Fprintf(tw, "next step\t%s\n", d.ExpectedNextStep)
					fmt.Fprintf(tw, "recommendation\t%s\n", d.Recommendation)
					if d.Degraded {
						fmt.Fprintf(tw, "degraded\ttrue\n")
					}
					tw.Flush()
				})
			})
		},
	}
}

func newOrderRebuildCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild <order-id>",
		Short: "Rebuild the stored order state from its event log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withDependencies(cmd.Context(), func(deps *config.Dependencies) error {
				res, err := deps.UseCases.RebuildOrder.Execute(cmd.Context(), &application.RebuildOrderCommand{OrderID: args[0]})
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to rebuild order", err)
				}
				return render(cmd.OutOrStdout(), opts.Format, res, func(w io.Writer) {
					if !res.Changed {
						fmt.Fprintf(w, "order %s already matches its events (%s/%s)\n", res.OrderID, res.After.Status, res.After.Stage)
						return
					}
					fmt.Fprintf(w, "order %s rebuilt: %s/%s -> %s/%s\n", res.OrderID,
						res.Before.Status, res.Before.Stage, res.After.Status, res.After.Stage)
				})
			})
		},
	}
}

func printOrder(w io.Writer, view handlers.OrderView) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "order\t%s\n", view.ID)
	fmt.Fprintf(tw, "customer\t%s\n", view.CustomerRef)
	fmt.Fprintf(tw, "total\t%s\n", view.TotalAmount)
	fmt.Fprintf(tw, "status\t%s\n", view.Status)
	fmt.Fprintf(tw, "stage\t%s\n", view.Stage)
	fmt.Fprintf(tw, "updated\t%s\n", view.UpdatedAt.Format("2006-01-02 15:04:05"))
	tw.Flush()

	if len(view.Events) == 0 {
		return
	}
	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tEVENT\tCORRELATION")
	for _, e := range view.Events {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.CreatedAt.Format("15:04:05.000"), e.EventType, e.CorrelationID)
	}
	tw.Flush()
}
