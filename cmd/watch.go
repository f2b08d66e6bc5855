package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"SampleFinder/core/ingest"
	"SampleFinder/model"

	"github.com/spf13/cobra"
)

var (
	watchTags    []string
	watchScan    bool
	watchWorkers int
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "监听目录并自动导入新采样",
	Long:  `Watch a directory and ingest every audio file that lands in it. Runs until interrupted.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if info, err := os.Stat(args[0]); err != nil || !info.IsDir() {
			return fmt.Errorf("%s is not a directory", args[0])
		}
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		w := ingest.NewWatcher(a.Pipeline, args[0], watchWorkers)
		w.Tags = watchTags
		w.ScanExisting = watchScan
		w.OnIngested = func(asset *model.Asset) {
			fmt.Fprintf(out, "+ %s  %s  %s\n", asset.ID, asset.Title, formatDuration(asset.DurationMs))
		}
		return w.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringSliceVarP(&watchTags, "tags", "t", nil, "tags applied to every ingested file")
	watchCmd.Flags().BoolVar(&watchScan, "scan", false, "ingest files already in the directory first")
	watchCmd.Flags().IntVarP(&watchWorkers, "workers", "w", 0, "parallel ingest workers (default: CPU count, max 4)")
}
