package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	syncsvc "SampleFinder/core/sync"

	"github.com/spf13/cobra"
)

var (
	syncUser  string
	syncEmail string
	exportOut string
	clearYes  bool
	tokenTTL  time.Duration
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "将本地库迁移到云端账户",
	Long: `Copy the local library into the remote store for one account.
Re-running is safe: assets are matched by content hash, palettes by name and
receipts by asset, so nothing is duplicated.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if syncUser == "" {
			return fmt.Errorf("--user is required")
		}
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if a.Migrator == nil {
			return fmt.Errorf("remote store is not configured (set DB_HOST, DB_USER and DB_NAME)")
		}

		ctx := cmd.Context()
		dataset, err := a.Library.ExportDataset(ctx)
		if err != nil {
			return err
		}
		summary, err := a.Migrator.Migrate(ctx, syncsvc.Principal{UserID: syncUser, Email: syncEmail}, dataset)
		if err != nil {
			return err
		}
		if err := a.Library.MarkSyncedToCloud(ctx); err != nil {
			return err
		}

		printTable(cmd.OutOrStdout(), []string{"Assets", "Palettes", "Receipts", "Skipped"}, [][]string{{
			fmt.Sprint(summary.Assets),
			fmt.Sprint(summary.Palettes),
			fmt.Sprint(summary.Receipts),
			fmt.Sprint(summary.Skipped),
		}}, alignRight, alignRight, alignRight, alignRight)
		return nil
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an access token for the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if syncUser == "" {
			return fmt.Errorf("--user is required")
		}
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if a.Tokens == nil {
			return fmt.Errorf("JWT_SECRET is not set")
		}
		tokens := a.Tokens
		if tokenTTL > 0 {
			tokens = a.Tokens.WithTTL(tokenTTL)
		}
		token, err := tokens.GenerateToken(syncUser, syncEmail)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the library as a migration dataset (JSON)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		dataset, err := a.Library.ExportDataset(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if exportOut != "" && exportOut != "-" {
			f, err := os.Create(exportOut)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(dataset); err != nil {
			return fmt.Errorf("failed to write dataset: %w", err)
		}
		if exportOut != "" && exportOut != "-" {
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d assets, %d palettes, %d receipts to %s\n",
				len(dataset.Assets), len(dataset.Palettes), len(dataset.Receipts), exportOut)
		}
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "清空本地库 (assets, palettes, receipts and counters)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !clearYes {
			fmt.Fprint(cmd.OutOrStdout(), "This deletes every local asset, palette and receipt. Continue? [y/N] ")
			answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			answer = strings.ToLower(strings.TrimSpace(answer))
			if answer != "y" && answer != "yes" {
				fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
				return nil
			}
		}
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Library.Clear(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Library cleared")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd, tokenCmd, exportCmd, clearCmd)

	for _, c := range []*cobra.Command{syncCmd, tokenCmd} {
		c.Flags().StringVarP(&syncUser, "user", "u", "", "account user id")
		c.Flags().StringVarP(&syncEmail, "email", "e", "", "account email")
	}
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime (default 24h)")
	exportCmd.Flags().StringVarP(&exportOut, "output", "o", "", "output file (default stdout)")
	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "skip the confirmation prompt")
}
