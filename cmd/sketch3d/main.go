// Command sketch3d reconstructs 3D frames from recorded 2D sketches.
package main

import (
	"fmt"
	"os"

	"github.com/soypat/sketch3d/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	verbose    bool
	configPath string

	logger = zap.NewNop()
	cfg    = config.Default()
)

var rootCmd = &cobra.Command{
	Use:   "sketch3d",
	Short: "Reconstruct 3D frames from 2D sketches",
	Long: `sketch3d replays a recorded sketch of straight strokes drawn in a
three point perspective, assigns every stroke to one of three axes and
solves the 3D position of every corner. The result is written as segment
JSON, an STL beam model and PNG previews, and can be uploaded to a CAD
profile service.`,
	Version:      "0.1.0",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if verbose {
			logger, err = zap.NewDevelopment()
		} else {
			logger, err = zap.NewProduction()
		}
		if err != nil {
			return fmt.Errorf("building logger: %w", err)
		}
		cfg, err = config.Load(configPath)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "development logging at debug level")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")
}

func main() {
	err := rootCmd.Execute()
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
