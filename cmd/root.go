package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/barqfleet/dispatch-engine/dispatch"
	"github.com/barqfleet/dispatch-engine/dispatch/grid"
)

var (
	// CLI flags
	configPath string // engine config yaml (optional; defaults apply)
	fleetPath  string // fleet snapshot fixture yaml
	ordersPath string // orders fixture yaml
	logLevel   string // log verbosity level
	rebalance  bool   // also run one rebalance cycle
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "dispatch-engine",
	Short: "Driver-order matching and fleet coverage engine",
}

// runCmd assigns a batch of orders against a fleet snapshot fixture and
// optionally runs one rebalance cycle, printing the outcomes.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run assignments (and optionally a rebalance cycle) over yaml fixtures",
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", logLevel, err)
		}
		logrus.SetLevel(level)

		cfg := dispatch.DefaultConfig()
		if configPath != "" {
			cfg, err = dispatch.LoadConfig(configPath)
			if err != nil {
				return err
			}
		}

		snapshot, err := loadFleet(fleetPath)
		if err != nil {
			return err
		}
		orders, err := loadOrders(ordersPath)
		if err != nil {
			return err
		}

		provider := &dispatch.StaticFleetProvider{Snapshot: snapshot}
		engine, err := dispatch.NewEngine(cfg, provider, nil, nil)
		if err != nil {
			return err
		}

		ctx := context.Background()
		logrus.Infof("assigning %d order(s) against %d available / %d busy driver(s)",
			len(orders), len(snapshot.Available), len(snapshot.Busy))

		for _, order := range orders {
			asg, err := engine.Assign(ctx, order, dispatch.Deps{})
			if err != nil {
				logrus.Errorf("order %s: %v", order.ID, err)
				continue
			}
			if asg.Assigned() {
				logrus.Infof("order %s -> driver %s (%s, confidence %.2f)",
					asg.OrderID, asg.AssignedDriver, asg.Type, asg.Confidence)
			} else {
				logrus.Warnf("order %s -> %s: %v", asg.OrderID, asg.Type, asg.Warnings)
			}
		}

		stats := engine.Stats()
		logrus.Infof("done: %d assignment(s), %d queued", stats.Total, stats.Queued)

		if rebalance {
			return runRebalance(ctx, cfg, provider)
		}
		return nil
	},
}

// runRebalance executes one cycle with a dispatcher that accepts every
// request, for fixture inspection.
func runRebalance(ctx context.Context, cfg dispatch.Config, provider dispatch.FleetStatusProvider) error {
	rb, err := grid.NewRebalancer(cfg, provider, acceptAllDispatcher{}, nil)
	if err != nil {
		return err
	}
	result, err := rb.TriggerNow(ctx)
	if err != nil {
		return err
	}
	logrus.Infof("rebalance: strategy=%s coverage=%.2f actions=%d cost=%.1f",
		result.Strategy, result.Analysis.OverallCoverage, len(result.Plan.Actions), result.Plan.Cost)
	for _, outcome := range result.Successful {
		logrus.Infof("  reposition driver %s -> %s (%s, incentive %.0f)",
			outcome.Action.DriverID, outcome.Action.GridID, outcome.Action.Priority, outcome.Action.Incentive)
	}
	return nil
}

// acceptAllDispatcher accepts every reposition request. CLI-only stand-in
// for the driver collaborator.
type acceptAllDispatcher struct{}

func (acceptAllDispatcher) SendRepositionRequest(_ context.Context, _ grid.RepositionAction) (grid.DispatchResult, error) {
	return grid.DispatchResult{Accepted: true}, nil
}

// fleetFile is the yaml fixture shape: a flat driver list partitioned by
// status at load time.
type fleetFile struct {
	Drivers []dispatch.Driver `yaml:"drivers"`
}

func loadFleet(path string) (dispatch.FleetSnapshot, error) {
	if path == "" {
		return dispatch.FleetSnapshot{}, fmt.Errorf("--fleet fixture is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return dispatch.FleetSnapshot{}, fmt.Errorf("read fleet fixture %s: %w", path, err)
	}
	var file fleetFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return dispatch.FleetSnapshot{}, fmt.Errorf("parse fleet fixture %s: %w", path, err)
	}

	snap := dispatch.FleetSnapshot{TakenAt: time.Now()}
	for _, d := range file.Drivers {
		switch d.Status {
		case dispatch.DriverOffline:
			snap.Offline = append(snap.Offline, d)
		case dispatch.DriverBusy:
			snap.Busy = append(snap.Busy, d)
		default:
			snap.Available = append(snap.Available, d)
		}
	}
	return snap, nil
}

type ordersFile struct {
	Orders []dispatch.Order `yaml:"orders"`
}

func loadOrders(path string) ([]dispatch.Order, error) {
	if path == "" {
		return nil, fmt.Errorf("--orders fixture is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read orders fixture %s: %w", path, err)
	}
	var file ordersFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse orders fixture %s: %w", path, err)
	}
	return file.Orders, nil
}

func init() {
	runCmd.Flags().StringVar(&configPath, "config", "", "Engine config yaml (defaults apply when omitted)")
	runCmd.Flags().StringVar(&fleetPath, "fleet", "", "Fleet snapshot fixture yaml")
	runCmd.Flags().StringVar(&ordersPath, "orders", "", "Orders fixture yaml")
	runCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (trace|debug|info|warn|error)")
	runCmd.Flags().BoolVar(&rebalance, "rebalance", false, "Also run one rebalance cycle")
	rootCmd.AddCommand(runCmd)
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Fatal(err)
	}
}
