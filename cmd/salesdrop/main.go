package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "salesdrop: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:   "salesdrop",
		Short: "SalesDrop operations CLI",
		Long: `SalesDrop CLI runs sales report extraction directly against object storage or
local files, inspects stored reports and queues files for the worker.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}
	cmd.PersistentFlags().BoolVar(&a.memory, "memory", false, "Keep reports in memory instead of Postgres")
	cmd.AddCommand(
		newExtractCmd(a),
		newGetCmd(a),
		newListCmd(a),
		newEnqueueCmd(a),
	)
	return cmd
}
