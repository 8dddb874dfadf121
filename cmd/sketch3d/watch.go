package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/soypat/sketch3d/internal/watch"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	watchOpts     convertFlags
	watchDebounce time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch [recording.json]",
	Short: "Convert a recording every time it changes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		w, err := watch.New(watchDebounce, logger)
		if err != nil {
			return err
		}
		defer w.Close()
		if err := w.Add(args[0]); err != nil {
			return err
		}
		var mu sync.Mutex
		convert := func(path string) {
			mu.Lock()
			defer mu.Unlock()
			outputs, err := watchOpts.run(ctx, path)
			if err != nil {
				logger.Warn("conversion failed", zap.String("recording", path), zap.Error(err))
			}
			for _, o := range outputs {
				fmt.Fprintln(cmd.OutOrStdout(), o)
			}
		}
		convert(args[0])
		err = w.Run(ctx, convert)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	addConvertFlags(watchCmd, &watchOpts)
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 500*time.Millisecond, "quiet period after a change before converting")
	rootCmd.AddCommand(watchCmd)
}
