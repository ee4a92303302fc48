package cmd

import (
	"fmt"

	"film-resolver/app/config"
	"film-resolver/app/utils/linkhelper"

	"github.com/spf13/cobra"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <url>...",
	Short: "识别链接的传输协议",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		panHosts := config.Load().Collect.PanHosts
		if len(panHosts) == 0 {
			panHosts = linkhelper.DefaultPanHosts
		}
		classifier := linkhelper.Classifier{PanHosts: panHosts}

		rows := make([][]string, 0, len(args))
		for _, raw := range args {
			l := classifier.Classify(raw)
			rows = append(rows, []string{l.Protocol.Title(), l.URL})
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"协议", "地址"}, rows, nil))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(classifyCmd)
}
