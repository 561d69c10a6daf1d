package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/swarm-hug/swarm-hug/internal/procreg"
	"github.com/swarm-hug/swarm-hug/internal/sprint"
	"github.com/swarm-hug/swarm-hug/internal/tui"
)

func init() {
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run sprints against the active project until no work remains",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadAndValidateConfig(cmd.Flags())
		if err != nil {
			return err
		}

		root, err := repoRoot()
		if err != nil {
			return err
		}

		shutdown := procreg.NewShutdownFlag()
		registry := procreg.New()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			if _, ok := <-sigCh; ok {
				shutdown.Request()
			}
		}()
		defer signal.Stop(sigCh)

		coordinator := sprint.New(root, cfg, shutdown, registry)

		var sink *tui.Sink
		tuiErrCh := make(chan error, 1)
		if !noTui {
			sink = tui.NewSink()
			coordinator.Sink = sink
			go func() { tuiErrCh <- tui.Run(sink, shutdown) }()
		} else if !noTail {
			fmt.Fprintf(os.Stdout, "swarm-hug: running project %q against target %q\n", cfg.Project, cfg.TargetBranch)
			fmt.Fprintln(os.Stdout, sprintStateLegend())
		}

		result, runErr := coordinator.Run()

		if sink != nil {
			sink.Close()
			<-tuiErrCh
		}

		fmt.Printf("sprints run: %d (%s)\n", result.SprintsRun, result.Reason)

		if runErr != nil {
			return runErr
		}
		if shutdown.IsRequested() {
			return &ShutdownError{}
		}
		if result.TimedOut {
			return &TimeoutError{}
		}
		return nil
	},
}

// ShutdownError marks a run that stopped because shutdown was requested,
// translated to exit code 130 by the entrypoint.
type ShutdownError struct{}

func (e *ShutdownError) Error() string { return "shutdown requested" }

// TimeoutError marks a run in which at least one engine invocation hit
// its timeout, translated to exit code 124 by the entrypoint.
type TimeoutError struct{}

func (e *TimeoutError) Error() string { return "at least one engine invocation timed out" }
