package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/containerd/log"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:           "lockfree [COMMAND]",
		Short:         "Drive lock-free work claiming with concurrent workers",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(logLevel)
		},
	}

	cmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info", `Set the logging level ("debug"|"info"|"warn"|"error"|"fatal")`)
	cmd.AddCommand(newRenderCommand(), newStressCommand())

	return cmd
}

func setupLogging(level string) error {
	logrus.SetOutput(os.Stderr)
	if err := log.SetFormat(log.TextFormat); err != nil {
		return err
	}
	return log.SetLevel(level)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	cmd := newRootCommand()
	cmd.SetOut(os.Stdout)
	err := cmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}
