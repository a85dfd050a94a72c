package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/gridsense/tapctl/config"
	"github.com/gridsense/tapctl/core/model"
	infrabus "github.com/gridsense/tapctl/infra/bus"
	"github.com/gridsense/tapctl/infra/logger"
	"github.com/gridsense/tapctl/simulator"
)

var (
	simCount    int
	simPrefix   string
	simDelay    time.Duration
	simDropRate float64
	simLegacy   bool
	simTapMin   int
	simTapMax   int
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run simulated tap-changer devices against the broker",
	Long: `Starts a fleet of simulated devices that listen on the command topics
and acknowledge tap commands, so the dispatch path can be tested without
hardware. Devices hold an internal tap position and refuse to drive past
their end stops.`,
	RunE: runSimulate,
}

func init() {
	simulateCmd.Flags().IntVar(&simCount, "count", 1, "number of simulated devices")
	simulateCmd.Flags().StringVar(&simPrefix, "prefix", "sim", "device id prefix")
	simulateCmd.Flags().DurationVar(&simDelay, "delay", 100*time.Millisecond, "actuation delay before responding")
	simulateCmd.Flags().Float64Var(&simDropRate, "drop-rate", 0, "probability of dropping a response")
	simulateCmd.Flags().BoolVar(&simLegacy, "legacy", false, "respond on the legacy cmdresp channel")
	simulateCmd.Flags().IntVar(&simTapMin, "tap-min", 1, "lowest tap position")
	simulateCmd.Flags().IntVar(&simTapMax, "tap-max", 17, "highest tap position")
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New("simulator")

	mqttCfg := cfg.MQTT
	mqttCfg.ClientID = "" // each run gets a fresh id
	b, err := infrabus.NewPaho(mqttCfg, log)
	if err != nil {
		return fmt.Errorf("connect broker: %w", err)
	}
	defer b.Disconnect()

	var strat simulator.ResponseStrategy = simulator.InstantResponder{Delay: simDelay}
	if simDropRate > 0 {
		strat = simulator.FlakyResponder{Delay: simDelay, DropRate: simDropRate}
	}
	devices := simulator.GenerateFleet(simulator.FleetConfig{
		Size:   simCount,
		Prefix: simPrefix,
		Limits: model.TapLimits{Min: simTapMin, Max: simTapMax},
	}, strat, b, log)
	if simLegacy {
		for _, d := range devices {
			d.ResponseSuffix = "cmdresp"
		}
	}

	fmt.Fprintf(os.Stderr, "simulating %d device(s), ^C to stop\n", len(devices))
	simulator.RunFleet(cmd.Context(), devices, log)
	return nil
}
