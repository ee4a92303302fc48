package cmd

import (
	"film-resolver/app/filewatcher"
	"film-resolver/app/service"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "监控收件箱目录，自动处理放入的任务文件",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, closeLog := bootstrap()
		defer closeLog()

		svc := service.NewReconcileService(cfg, log.Named("reconcile"))
		defer svc.Close()

		watcher, err := filewatcher.NewJobWatcher(cfg.Watch, svc, log.Named("watch"))
		if err != nil {
			return err
		}
		if err := watcher.Start(); err != nil {
			return err
		}

		ctx, stop := signalContext()
		defer stop()
		<-ctx.Done()
		log.Info("收到关闭信号，正在停止监控...")

		return watcher.Stop()
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
