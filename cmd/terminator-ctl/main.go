package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"terminator/internal/ipc"
)

var (
	socketPath string
	timeout    time.Duration
)

var rootCmd = &cobra.Command{
	Use:           "terminator-ctl",
	Short:         "Control a running terminator assistant",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	def := os.Getenv("TERMINATOR_SOCKET")
	if def == "" {
		def = ipc.DefaultSocketPath()
	}
	rootCmd.PersistentFlags().StringVarP(&socketPath, "socket", "s", def, "control socket path")
	rootCmd.PersistentFlags().DurationVarP(&timeout, "timeout", "t", 30*time.Second, "how long to wait for a reply")

	rootCmd.AddCommand(triggerCmd, execCmd, sayCmd, remindersCmd, cancelReminderCmd)
}

var triggerCmd = &cobra.Command{
	Use:   "trigger",
	Short: "Wake the assistant as if the wake word was heard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return send(ipc.CmdTrigger)
	},
}

var execCmd = &cobra.Command{
	Use:   "exec <command...>",
	Short: "Run a typed command through the dispatcher",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return send(ipc.CmdExec, strings.Join(args, " "))
	},
}

var sayCmd = &cobra.Command{
	Use:   "say <text...>",
	Short: "Speak text through the assistant",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return send(ipc.CmdSay, strings.Join(args, " "))
	},
}

var remindersCmd = &cobra.Command{
	Use:   "reminders",
	Short: "List pending reminders",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return send(ipc.CmdReminders)
	},
}

var cancelReminderCmd = &cobra.Command{
	Use:   "cancel-reminder <id>",
	Short: "Cancel a pending reminder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return send(ipc.CmdCancelReminder, args[0])
	},
}

func send(name string, args ...string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	reply, err := ipc.SendCommand(ctx, socketPath, ipc.ControlMessage{Cmd: name, Args: args})
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	for _, line := range reply.Lines {
		fmt.Fprintln(os.Stdout, line)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "terminator-ctl:", err)
		os.Exit(1)
	}
}
