package main

import (
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/forest-guardian/lulc-change/internal/archive"
	"github.com/forest-guardian/lulc-change/internal/properties"
	"github.com/forest-guardian/lulc-change/internal/sentinel"
	"github.com/forest-guardian/lulc-change/internal/utils"
)

var extractBandsCmd = &cobra.Command{
	Use:   "extract-bands <safe-or-folder> <year>",
	Short: "Convert the bands of a Sentinel-2 SAFE product into the data folder",
	Long: `Finds the B02, B03, B04, B08 and B11 images of a SAFE product and writes
them as B2.tif ... B11.tif under data/<year>. The first argument is either the
.SAFE folder or a folder containing one.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		safeDir := args[0]
		if filepath.Ext(safeDir) != ".SAFE" {
			found, err := sentinel.FindSAFE(safeDir)
			if err != nil {
				return err
			}
			safeDir = found
		}
		outDir := filepath.Join(properties.DataPath(), args[1])
		written, err := sentinel.ExtractSAFE(safeDir, outDir)
		if err != nil {
			return err
		}
		for _, name := range utils.GetSortedKeys(written, true) {
			color.Green("  %-4s %s", name, written[name])
		}
		return nil
	},
}

var archiveBackend string

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Store or fetch files in the output archive",
}

var archivePutCmd = &cobra.Command{
	Use:   "put <file> [name]",
	Short: "Upload a file",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := ""
		if len(args) == 2 {
			name = args[1]
		}
		store, closeStore, err := openArchive(cmd.Context(), archiveBackend)
		if err != nil {
			return err
		}
		defer closeStore(cmd.Context())
		if store == nil {
			return fmt.Errorf("archive backend %q stores nothing", archiveBackend)
		}
		if err := archive.PutFile(cmd.Context(), store, args[0], name); err != nil {
			return err
		}
		color.Green("Archived %s", args[0])
		return nil
	},
}

var archiveGetCmd = &cobra.Command{
	Use:   "get <name> <out-file>",
	Short: "Download a file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openArchive(cmd.Context(), archiveBackend)
		if err != nil {
			return err
		}
		defer closeStore(cmd.Context())
		if store == nil {
			return fmt.Errorf("archive backend %q stores nothing", archiveBackend)
		}
		if err := archive.GetFile(cmd.Context(), store, args[0], args[1]); err != nil {
			return err
		}
		color.Green("Fetched %s into %s", args[0], args[1])
		return nil
	},
}

func init() {
	archiveCmd.PersistentFlags().StringVar(&archiveBackend, "backend", "file", "Archive backend: file, gridfs")
	archiveCmd.AddCommand(archivePutCmd, archiveGetCmd)
	rootCmd.AddCommand(extractBandsCmd, archiveCmd)
}
