package cmd

import (
	"fmt"
	"sort"
	"strings"

	"SampleFinder/storage"

	"github.com/spf13/cobra"
)

var (
	storagePrefix  string
	storageStats   bool
	storageOrphans bool
	storagePrune   bool
)

var storageCmd = &cobra.Command{
	Use:   "storage",
	Short: "音频存储管理",
	Long:  `查看音频存储 (MinIO 或本地目录) 中的文件，支持统计信息、查找和清理没有对应采样的孤立文件。`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		lister, ok := a.Blobs.(storage.Lister)
		if !ok {
			return fmt.Errorf("blob store does not support listing")
		}
		backend := "local: " + a.Config.BlobDir
		if m, ok := a.Blobs.(*storage.MinioBlobStore); ok {
			backend = "minio: " + a.Config.MinioEndpoint + "/" + m.Bucket()
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Backend %s\n", backend)

		ctx := cmd.Context()
		objects, err := lister.List(ctx, storagePrefix)
		if err != nil {
			return err
		}

		if storageOrphans || storagePrune {
			assets, err := a.Library.Assets(ctx)
			if err != nil {
				return err
			}
			known := make(map[string]bool, len(assets))
			for _, asset := range assets {
				known[storage.ObjectKey(asset.ID)] = true
			}
			var orphans []storage.ObjectInfo
			for _, obj := range objects {
				if !known[obj.Key] {
					orphans = append(orphans, obj)
				}
			}
			objects = orphans
		}

		if storageStats {
			printStats(cmd, storage.Summarize(objects))
		} else {
			rows := make([][]string, 0, len(objects))
			for _, obj := range objects {
				rows = append(rows, []string{obj.Key, storage.FormatSize(obj.Size), obj.LastModified.Local().Format("2006-01-02 15:04:05"), obj.ContentType})
			}
			printTable(out, []string{"Key", "Size", "Modified", "Type"}, rows, alignLeft, alignRight)
		}

		if storagePrune {
			removed := 0
			for _, obj := range objects {
				id := strings.TrimPrefix(obj.Key, storage.ObjectKey(""))
				if id == obj.Key || id == "" {
					continue
				}
				if err := a.Blobs.Delete(ctx, id); err != nil {
					return err
				}
				removed++
			}
			fmt.Fprintf(out, "Removed %d orphaned objects\n", removed)
		}
		return nil
	},
}

func printStats(cmd *cobra.Command, stats *storage.BucketStats) {
	rows := [][]string{
		{"Objects", fmt.Sprint(stats.TotalObjects)},
		{"Total size", storage.FormatSize(stats.TotalSize)},
	}
	if !stats.LastModified.IsZero() {
		rows = append(rows, []string{"Last modified", stats.LastModified.Local().Format("2006-01-02 15:04:05")})
	}
	types := make([]string, 0, len(stats.ByType))
	for t := range stats.ByType {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		rows = append(rows, []string{"  " + t, storage.FormatSize(stats.ByType[t])})
	}
	printTable(cmd.OutOrStdout(), []string{"Stat", "Value"}, rows, alignLeft, alignRight)
}

func init() {
	rootCmd.AddCommand(storageCmd)

	storageCmd.Flags().StringVarP(&storagePrefix, "prefix", "p", "", "按前缀过滤文件")
	storageCmd.Flags().BoolVarP(&storageStats, "stats", "s", false, "显示统计信息")
	storageCmd.Flags().BoolVar(&storageOrphans, "orphans", false, "只显示没有对应采样的文件")
	storageCmd.Flags().BoolVar(&storagePrune, "prune", false, "删除没有对应采样的文件")

	storageCmd.Example = `  # 列出所有文件
  samplefinder storage

  # 显示统计信息
  samplefinder storage -s

  # 清理孤立文件
  samplefinder storage --prune`
}
