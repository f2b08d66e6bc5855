package cmd

import (
	"fmt"
	"sort"
	"strings"

	"SampleFinder/model"

	"github.com/spf13/cobra"
)

var (
	receiptURL   string
	receiptNotes string
	receiptFlags []string
)

var receiptCmd = &cobra.Command{
	Use:   "receipt",
	Short: "管理授权凭据 (license receipts)",
}

var receiptListCmd = &cobra.Command{
	Use:   "list",
	Short: "List license receipts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		receipts, err := a.Library.Receipts(cmd.Context())
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(receipts))
		for _, r := range receipts {
			rows = append(rows, []string{r.ID, r.AssetID, r.SourceURL, joinOrDash(enabledFlags(r.LicenseFlags)), r.Notes})
		}
		printTable(cmd.OutOrStdout(), []string{"ID", "Asset", "Source", "License", "Notes"}, rows)
		return nil
	},
}

var receiptAddCmd = &cobra.Command{
	Use:   "add <asset-id>",
	Short: "Attach a license receipt to an asset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		flags := make(map[string]bool, len(receiptFlags))
		for _, f := range receiptFlags {
			if f = strings.TrimSpace(f); f != "" {
				flags[f] = true
			}
		}
		r, err := a.Library.AddReceipt(cmd.Context(), model.Receipt{
			AssetID:      args[0],
			SourceURL:    receiptURL,
			Notes:        receiptNotes,
			LicenseFlags: flags,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added receipt %s for %s\n", r.ID, r.AssetID)
		return nil
	},
}

var receiptDeleteCmd = &cobra.Command{
	Use:   "delete <receipt-id>",
	Short: "Delete a receipt",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Library.DeleteReceipt(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted receipt %s\n", args[0])
		return nil
	},
}

func enabledFlags(flags map[string]bool) []string {
	out := make([]string, 0, len(flags))
	for name, on := range flags {
		if on {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func init() {
	rootCmd.AddCommand(receiptCmd)
	receiptCmd.AddCommand(receiptListCmd, receiptAddCmd, receiptDeleteCmd)

	receiptAddCmd.Flags().StringVar(&receiptURL, "url", "", "where the sample was obtained")
	receiptAddCmd.Flags().StringVar(&receiptNotes, "notes", "", "free-form notes")
	receiptAddCmd.Flags().StringSliceVar(&receiptFlags, "flag", nil,
		fmt.Sprintf("license flag to set, repeatable (%s, %s, %s, %s)",
			model.LicenseRoyaltyFree, model.LicenseCommercialUse, model.LicenseAttributionRequired, model.LicenseExclusive))
}
