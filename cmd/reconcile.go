package cmd

import (
	"fmt"

	"film-resolver/app/service"

	"github.com/spf13/cobra"
)

var reconcileJSON bool

var reconcileCmd = &cobra.Command{
	Use:   "reconcile <job.json>",
	Short: "执行一次匹配任务",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		job, err := readJobFile(args[0])
		if err != nil {
			return err
		}

		cfg, log, closeLog := bootstrap()
		defer closeLog()

		svc := service.NewReconcileService(cfg, log.Named("reconcile"))
		defer svc.Close()

		ctx, stop := signalContext()
		defer stop()

		outcome, err := svc.Run(ctx, job)
		if err != nil {
			return err
		}
		if reconcileJSON {
			return printJSON(outcome)
		}
		fmt.Fprint(cmd.OutOrStdout(), renderResult(outcome.Title, outcome.Result))
		return nil
	},
}

func init() {
	reconcileCmd.Flags().BoolVar(&reconcileJSON, "json", false, "以 JSON 输出结果")
	rootCmd.AddCommand(reconcileCmd)
}
