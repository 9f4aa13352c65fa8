package cli

import (
	"fmt"
	"io"

	"github.com/draftea/order-saga/orders-service/config"
	"github.com/spf13/cobra"
)

// NewSweepCommand runs one retry sweep and dedup purge, the same pass the service runs on a timer
func NewSweepCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Retry eligible dead letters once and purge expired dedup keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withDependencies(cmd.Context(), func(deps *config.Dependencies) error {
				res := deps.Sweeper.RunOnce(cmd.Context())
				if res == nil {
					return NewExitError(ExitFailure, "sweep failed, see logs")
				}
				return render(cmd.OutOrStdout(), opts.Format, res, func(w io.Writer) {
					fmt.Fprintf(w, "scanned %d, retried %d, resolved %d, permanently failed %d, errors %d\n",
						res.Scanned, res.Retried, res.Resolved, res.PermanentlyFailed, res.Errors)
				})
			})
		},
	}
}
