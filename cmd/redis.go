package cmd

import (
	"fmt"

	"SampleFinder/cache"

	"github.com/spf13/cobra"
)

var redisCmd = &cobra.Command{
	Use:   "redis",
	Short: "Redis连接测试",
	Long:  `测试Redis连接是否成功，进行基本读写操作，并统计已缓存的向量数量。`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if cfg.RedisHost == "" {
			return fmt.Errorf("REDIS_HOST is not set")
		}
		fmt.Fprintf(out, "Redis配置: %s:%s, DB: %d\n", cfg.RedisHost, cfg.RedisPort, cfg.RedisDB)

		ctx := cmd.Context()
		client, err := cache.ConnectRedis(ctx, cfg)
		if err != nil {
			return fmt.Errorf("无法连接到Redis: %w", err)
		}
		defer client.Close()
		fmt.Fprintln(out, "Redis连接成功！")

		if err := cache.CheckRedis(ctx, client); err != nil {
			return fmt.Errorf("Redis操作测试失败: %w", err)
		}
		fmt.Fprintln(out, "Redis基本操作测试成功！")

		n, err := cache.CountKeys(ctx, client, cache.EmbeddingKeyPrefix+"*")
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "已缓存向量: %d\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(redisCmd)
}
