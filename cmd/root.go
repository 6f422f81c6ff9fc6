package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/redlantern/routesim/sim"
	"github.com/redlantern/routesim/sim/feeds"
	"github.com/redlantern/routesim/sim/noise"
	"github.com/redlantern/routesim/sim/output"
	"github.com/redlantern/routesim/sim/trace"

	// Register generator variants (bgp, syslog, rpki) with the sim registry.
	_ "github.com/redlantern/routesim/sim/telemetry"
)

var (
	// CLI flags for the simulation run
	seed          int64   // Master seed for all random draws
	logLevel      string  // Log verbosity level
	duration      float64 // Run end for self-rescheduling producers (0 = scenario end)
	noiseEnabled  bool    // Enable background noise channels
	bgpNoiseRate  float64 // Ambient BGP churn, events per second
	cmdbNoiseRate float64 // Ambient change-management churn, events per second

	// CLI flags for output
	outputPath string // Destination file ("" = stdout)
	format     string // Output format: jsonl or syslog
	feedName   string // source.feed stamped on scenario envelopes
	observer   string // source.observer stamped on scenario envelopes
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "routesim",
	Short: "Deterministic routing-incident telemetry simulator",
}

// runCmd executes one scenario using parameters from CLI flags
var runCmd = &cobra.Command{
	Use:   "run <scenario.yaml>",
	Short: "Run a scenario and emit its telemetry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		// Set up logging
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("invalid log level %q", logLevel)
		}
		logrus.SetLevel(level)

		// Environment supplies output defaults; explicit flags win.
		envCfg := loadOutputEnv()
		if !cmd.Flags().Changed("output") && envCfg.Path != "" {
			outputPath = envCfg.Path
		}
		if !cmd.Flags().Changed("format") {
			format = envCfg.Format
		}
		if !cmd.Flags().Changed("feed") {
			feedName = envCfg.Feed
		}
		if !cmd.Flags().Changed("observer") {
			observer = envCfg.Observer
		}

		return runScenario(args[0])
	},
}

func runScenario(path string) error {
	scenario, err := sim.LoadScenario(path)
	if err != nil {
		return err
	}
	logrus.Infof("loaded scenario %s (difficulty=%s, %d timeline entries)",
		scenario.Name, scenario.Difficulty, len(scenario.Timeline))

	var out io.Writer = os.Stdout
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("open output: %w", err)
		}
		defer f.Close()
		out = f
	}

	clock := sim.NewSimulationClock()
	bus := sim.NewEventBus()
	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(seed))

	writer, err := buildWriter(out)
	if err != nil {
		return err
	}
	writer.Attach(bus)

	runTrace := trace.NewRunTrace()
	runTrace.Attach(bus)

	// One change database per run, shared between the cmdb noise channel and
	// the generators' correlation stamps.
	cmdb := feeds.NewCMDB()

	runner := sim.NewScenarioRunner(clock, bus, scenario, sim.RunnerConfig{
		RunEnd: duration,
		RNG:    rng.ForSubsystem(sim.SubsystemScenario),
		CMDB:   cmdb,
	})
	if err := runner.BindConfiguredGenerators(feedName, observer); err != nil {
		return err
	}

	if noiseEnabled {
		runner.AddNoise(noise.NewBGPChurn(
			clock, bus, rng.ForSubsystem(sim.SubsystemNoise("bgp")), bgpNoiseRate, runner.Isolate))
		runner.AddNoise(noise.NewCMDBChurn(
			clock, bus, rng.ForSubsystem(sim.SubsystemNoise("cmdb")), cmdbNoiseRate, cmdb, runner.Isolate))
	}

	if err := runner.Run(); err != nil {
		return err
	}

	summary := trace.Summarize(runTrace)
	logrus.Infof("run complete: %d events across %d types, end t=%.3f, %d lines written",
		summary.TotalEvents, summary.EventTypes, summary.EndTime, writer.Lines())
	for _, rec := range summary.Records {
		logrus.Debugf("  %-20s count=%d first=%.3f last=%.3f", rec.EventType, rec.Count, rec.First, rec.Last)
	}
	return nil
}

// buildWriter wires the adapter set for the selected format.
func buildWriter(out io.Writer) (*output.Writer, error) {
	switch format {
	case "jsonl":
		return output.NewWriter(out, output.JSONLAdapter{}), nil
	case "syslog":
		w := output.NewWriter(out, nil)
		adapter := output.RouterSyslogAdapter{}
		for _, eventType := range []string{"router.syslog", "bgp.announce", "bgp.update", "bgp.withdraw"} {
			w.Register(eventType, adapter)
		}
		return w, nil
	}
	return nil, fmt.Errorf("unknown output format %q (want jsonl or syslog)", format)
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "simulation failed: %v\n", err)
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Seed for all random draws (noise channels, feeds)")
	runCmd.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().Float64Var(&duration, "duration", 0, "Run end in virtual seconds for noise channels (0 = scenario end)")

	// Background noise
	runCmd.Flags().BoolVar(&noiseEnabled, "noise", false, "Merge background noise channels into the run")
	runCmd.Flags().Float64Var(&bgpNoiseRate, "bgp-noise-rate", noise.DefaultBGPChurnRate, "Ambient BGP churn in events/sec")
	runCmd.Flags().Float64Var(&cmdbNoiseRate, "cmdb-noise-rate", noise.DefaultCMDBChurnRate, "Ambient change-management churn in events/sec")

	// Output
	runCmd.Flags().StringVar(&outputPath, "output", "", "Output file (default stdout)")
	runCmd.Flags().StringVar(&format, "format", "jsonl", "Output format: jsonl or syslog")
	runCmd.Flags().StringVar(&feedName, "feed", "mock", "source.feed for scenario envelopes")
	runCmd.Flags().StringVar(&observer, "observer", "simulator", "source.observer for scenario envelopes")

	// Attach `run` as a subcommand to `root`
	rootCmd.AddCommand(runCmd)
}
