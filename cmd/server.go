package cmd

import (
	"context"
	"net/http"
	"time"

	"film-resolver/app/metrics"
	"film-resolver/app/server"
	"film-resolver/app/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动 HTTP 接口服务",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, log, closeLog := bootstrap()
		defer closeLog()

		metrics.Register(prometheus.DefaultRegisterer)

		svc := service.NewReconcileService(cfg, log.Named("reconcile"))
		srv := server.New(cfg, svc, log)

		// 在协程中启动服务器
		go func() {
			if err := srv.Start(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("启动服务器失败: %v", err)
			}
		}()

		ctx, stop := signalContext()
		defer stop()
		<-ctx.Done()
		log.Info("收到关闭信号，正在关闭服务器...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorf("服务器关闭失败: %v", err)
		}
		log.Info("服务器已退出")
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
