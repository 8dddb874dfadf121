package main

import (
	"fmt"

	"github.com/soypat/sketch3d/cad"
	"github.com/spf13/cobra"
)

var uploadCmd = &cobra.Command{
	Use:   "upload [name.segments.json]",
	Short: "Upload converted segments to the CAD profile service",
	Long: `Send every segment written by convert as one profile request to the
service configured under cad.base_url in the configuration file.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		segs, err := readSegments(args[0])
		if err != nil {
			return err
		}
		opts, err := cfg.Uploader()
		if err != nil {
			return err
		}
		up, err := cad.NewUploader(opts, logger)
		if err != nil {
			return err
		}
		n, err := up.Upload(cmd.Context(), segs)
		fmt.Fprintf(cmd.OutOrStdout(), "uploaded %d of %d segments to %s\n", n, len(segs), up.Endpoint())
		return err
	},
}

func init() {
	rootCmd.AddCommand(uploadCmd)
}
