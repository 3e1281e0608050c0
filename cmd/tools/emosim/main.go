// Command emosim replays a scripted emotion/interaction scenario against an
// assistant session on a simulated clock and prints what the overlay would show.
//
// Usage:
//
//	emosim run scenario.yaml
//	emosim run --live --show-state scenario.yaml
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/emolearn/emolearn/backend/internal/config"
	"github.com/emolearn/emolearn/backend/internal/service/ai"
	"github.com/emolearn/emolearn/backend/internal/service/assistant"
)

var (
	liveProvider bool
	showState    bool
	settle       time.Duration
)

var rootCmd = &cobra.Command{
	Use:           "emosim",
	Short:         "Replay emotion scenarios against the learning assistant",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var runCmd = &cobra.Command{
	Use:   "run <scenario.yaml>",
	Short: "Run a scenario file",
	Long: `Runs each step of a YAML scenario against a fresh assistant session.
Timers run on a simulated clock, so "advance" steps complete instantly.
Replies come from the offline provider unless --live is set.`,
	Args: cobra.ExactArgs(1),
	RunE: runScenario,
}

func init() {
	runCmd.Flags().BoolVar(&liveProvider, "live", false, "use the AI provider configured in the environment")
	runCmd.Flags().BoolVar(&showState, "show-state", false, "print the session state after every step")
	runCmd.Flags().DurationVar(&settle, "settle", 50*time.Millisecond, "how long to wait for asynchronous events after each step")
	rootCmd.AddCommand(runCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "emosim:", err)
		os.Exit(1)
	}
}

func runScenario(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	sc, err := LoadScenario(f)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	if settle <= 0 {
		return fmt.Errorf("--settle must be positive, got %s", settle)
	}

	completer, err := buildCompleter(cmd.Context())
	if err != nil {
		return err
	}

	runner := NewRunner(RunnerOptions{
		Completer: completer,
		Timing:    assistant.DefaultTiming(),
		Out:       cmd.OutOrStdout(),
		Settle:    settle,
		ShowState: showState,
	})
	defer runner.Close()

	return runner.Run(sc)
}

func buildCompleter(ctx context.Context) (assistant.Completer, error) {
	if !liveProvider {
		return ai.NewOfflineCompleter(), nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if err := godotenv.Load(); err != nil {
		logrus.WithError(err).Debug("no .env file, using system environment")
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	return ai.NewCompleter(ctx, cfg.AI, logrus.WithField("tool", "emosim"))
}
