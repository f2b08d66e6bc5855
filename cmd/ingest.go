package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"SampleFinder/core/ingest"
	"SampleFinder/logger"

	"github.com/spf13/cobra"
)

var (
	ingestTags  []string
	ingestTitle string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>...",
	Short: "Add audio files to the local library",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if ingestTitle != "" && len(args) > 1 {
			return fmt.Errorf("--title can only be used with a single file")
		}
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		var rows [][]string
		failed := 0
		for _, path := range args {
			data, err := os.ReadFile(path)
			if err != nil {
				logger.Error("failed to read file", logger.String("path", path), logger.ErrorField(err))
				failed++
				continue
			}
			asset, err := a.Pipeline.Ingest(cmd.Context(), ingest.RawFile{
				Filename: filepath.Base(path),
				Title:    ingestTitle,
				Tags:     ingestTags,
				Data:     data,
			})
			if err != nil {
				logger.Error("failed to ingest file", logger.String("path", path), logger.ErrorField(err))
				failed++
				continue
			}
			rows = append(rows, []string{asset.ID, asset.Title, formatDuration(asset.DurationMs), asset.Descriptor})
		}

		printTable(cmd.OutOrStdout(), []string{"ID", "Title", "Duration", "Descriptor"}, rows, alignLeft, alignLeft, alignRight)
		if failed > 0 {
			return fmt.Errorf("%d of %d files failed", failed, len(args))
		}
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the assets in the local library",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		assets, err := a.Library.Assets(cmd.Context())
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(assets))
		for _, asset := range assets {
			rows = append(rows, []string{
				asset.ID,
				asset.Title,
				formatDuration(asset.DurationMs),
				fmt.Sprintf("%.3f", asset.RMS),
				strings.Join(asset.Tags, ", "),
				formatMillis(asset.CreatedAt),
			})
		}
		printTable(cmd.OutOrStdout(), []string{"ID", "Title", "Duration", "RMS", "Tags", "Added"}, rows,
			alignLeft, alignLeft, alignRight, alignRight)
		return nil
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <asset-id>",
	Short: "Delete an asset together with its palette entries, receipts and audio",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Library.DeleteAsset(cmd.Context(), args[0]); err != nil {
			return err
		}
		if err := a.Blobs.Delete(cmd.Context(), args[0]); err != nil {
			logger.Warn("failed to delete audio", logger.String("asset_id", args[0]), logger.ErrorField(err))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd, listCmd, removeCmd)

	ingestCmd.Flags().StringSliceVarP(&ingestTags, "tags", "t", nil, "comma separated tags applied to every file")
	ingestCmd.Flags().StringVar(&ingestTitle, "title", "", "title for a single file (defaults to the filename)")
	ingestCmd.Example = `  samplefinder ingest kick.wav snare.wav -t drums,808
  samplefinder ingest pad.flac --title "Warm Pad"`
}
