package cmd

import (
	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动SampleFinder服务器",
	Long:  `启动SampleFinder的HTTP API服务，提供素材、调色板、授权凭据、相似度检索和云同步接口`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd)
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
