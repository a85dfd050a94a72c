package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gridsense/tapctl/app"
	"github.com/gridsense/tapctl/config"
	"github.com/gridsense/tapctl/core/events"
	"github.com/gridsense/tapctl/core/model"
)

var commandCmd = &cobra.Command{
	Use:   "command <device-id> <raise|lower>",
	Short: "Issue a manual tap command to a device",
	Args:  cobra.ExactArgs(2),
	RunE:  runCommand,
}

func init() {
	rootCmd.AddCommand(commandCmd)
}

func runCommand(cmd *cobra.Command, args []string) error {
	deviceID := args[0]
	var dir model.Direction
	switch args[1] {
	case "raise":
		dir = model.Raise
	case "lower":
		dir = model.Lower
	default:
		return fmt.Errorf("direction must be raise or lower, got %q", args[1])
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	res, err := svc.Dispatcher.Dispatch(cmd.Context(), deviceID, dir, events.OriginManual)
	if err != nil {
		return err
	}
	if res.OK {
		fmt.Printf("command confirmed by %s\n", deviceID)
		return nil
	}
	if res.RetryAfter > 0 {
		fmt.Printf("not executed: %s (retry in %ds)\n", res.Reason, int(res.RetryAfter/time.Second))
	} else {
		fmt.Printf("not executed: %s\n", res.Reason)
	}
	return nil
}
