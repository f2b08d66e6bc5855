package cmd

import (
	"fmt"
	"strconv"

	"SampleFinder/model"

	"github.com/spf13/cobra"
)

var paletteNotes string

var paletteCmd = &cobra.Command{
	Use:   "palette",
	Short: "管理采样调色板 (ordered sample collections)",
}

var paletteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List palettes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		palettes, err := a.Library.Palettes(cmd.Context())
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(palettes))
		for _, p := range palettes {
			rows = append(rows, []string{p.ID, p.Name, strconv.Itoa(len(p.AssetIDs)), joinOrDash(p.AssetIDs), formatMillis(p.CreatedAt)})
		}
		printTable(cmd.OutOrStdout(), []string{"ID", "Name", "Assets", "Order", "Created"}, rows, alignLeft, alignLeft, alignRight)
		return nil
	},
}

var paletteCreateCmd = &cobra.Command{
	Use:   "create <name> [asset-id]...",
	Short: "Create a palette, optionally seeded with assets",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.Library.AddPalette(cmd.Context(), model.Palette{
			Name:     args[0],
			Notes:    paletteNotes,
			AssetIDs: args[1:],
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created palette %s (%s)\n", p.Name, p.ID)
		return nil
	},
}

var paletteAddCmd = &cobra.Command{
	Use:   "add <palette-id> <asset-id>",
	Short: "Append an asset to a palette",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.Library.AddAssetToPalette(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", p.Name, joinOrDash(p.AssetIDs))
		return nil
	},
}

var paletteRemoveCmd = &cobra.Command{
	Use:   "remove <palette-id> <asset-id>",
	Short: "Remove an asset from a palette",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.Library.RemoveAssetFromPalette(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", p.Name, joinOrDash(p.AssetIDs))
		return nil
	},
}

var paletteMoveCmd = &cobra.Command{
	Use:   "move <palette-id> <asset-id> <index>",
	Short: "Move an asset to a new position (clamped to the palette bounds)",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid index %q", args[2])
		}
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.Library.MovePaletteAsset(cmd.Context(), args[0], args[1], index)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", p.Name, joinOrDash(p.AssetIDs))
		return nil
	},
}

var paletteDeleteCmd = &cobra.Command{
	Use:   "delete <palette-id>",
	Short: "Delete a palette (its assets are kept)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Library.DeletePalette(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted palette %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(paletteCmd)
	paletteCmd.AddCommand(paletteListCmd, paletteCreateCmd, paletteAddCmd, paletteRemoveCmd, paletteMoveCmd, paletteDeleteCmd)
	paletteCreateCmd.Flags().StringVar(&paletteNotes, "notes", "", "free-form notes")
}
