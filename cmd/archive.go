package cmd

import (
	"fmt"

	"film-resolver/app/service"

	"github.com/spf13/cobra"
)

var (
	archiveJob     string
	archivePrefix  string
	archiveDest    string
	archiveName    string
	archiveCleanup bool
	archiveEpisode int
	archiveJSON    bool
)

var archiveCmd = &cobra.Command{
	Use:   "archive <dir>",
	Short: "为已下载的本地文件评分并归档最佳文件",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		job, err := readJobFile(archiveJob)
		if err != nil {
			return err
		}
		if err := job.Target.Validate(); err != nil {
			return fmt.Errorf("任务条目无效: %w", err)
		}

		cfg, log, closeLog := bootstrap()
		defer closeLog()

		ctx, stop := signalContext()
		defer stop()

		svc := service.NewArchiveService(cfg, log.Named("archive"))
		report, err := svc.Archive(ctx, args[0], job.Target, service.ArchiveOptions{
			Prefix:  archivePrefix,
			Dest:    archiveDest,
			Name:    archiveName,
			Cleanup: archiveCleanup,
			Episode: archiveEpisode,
		})
		if err != nil {
			return err
		}
		if archiveJSON {
			return printJSON(report)
		}
		fmt.Fprint(cmd.OutOrStdout(), renderArchive(report))
		return nil
	},
}

func init() {
	archiveCmd.Flags().StringVar(&archiveJob, "job", "", "描述影视条目的任务文件")
	archiveCmd.Flags().StringVar(&archivePrefix, "prefix", "", "只处理以此开头的文件")
	archiveCmd.Flags().StringVar(&archiveDest, "dest", "", "最佳文件复制到的目录，为空时只评分")
	archiveCmd.Flags().StringVar(&archiveName, "name", "", "归档文件名（不含扩展名），默认使用条目标题")
	archiveCmd.Flags().BoolVar(&archiveCleanup, "cleanup", false, "归档成功后删除参与评分的文件")
	archiveCmd.Flags().IntVar(&archiveEpisode, "episode", 0, "剧集集数，归档为 <dest>/<name>/E01.mp4 形式")
	archiveCmd.Flags().BoolVar(&archiveJSON, "json", false, "以 JSON 输出结果")
	_ = archiveCmd.MarkFlagRequired("job")
	rootCmd.AddCommand(archiveCmd)
}
