package cmd

import (
	"fmt"
	"time"

	"film-resolver/app/auth"
	"film-resolver/app/config"

	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token <client>",
	Short: "为接口调用方签发访问令牌",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		jwtService := auth.NewJWTService(cfg)
		token, err := jwtService.GenerateToken(args[0])
		if err != nil {
			return fmt.Errorf("签发令牌失败: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		fmt.Fprintf(cmd.ErrOrStderr(), "有效期至 %s\n", time.Now().Add(jwtService.ExpireDuration()).Format("2006-01-02 15:04:05"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
}
