// Command todo keeps a todo list in a YAML state file.
//
//	todo add write the docs
//	todo list --filter active
//	todo done 3f2a
//	todo dump
//
// The state file defaults to $MODI_STATE_FILE or ./todo.yaml.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sghaida/modi/di"
	"github.com/sghaida/modi/examples/todo"
	"github.com/sghaida/modi/examples/todo/config"
	"github.com/sghaida/modi/snapshot"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{inj: di.DefaultInjector()}

	var (
		stateFile string
		logLevel  string
	)

	cmd := &cobra.Command{
		Use:          "todo",
		Short:        "Keep a todo list",
		Long:         "todo - a small todo list built on the modi model container",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFromEnv()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("state") {
				cfg.StateFile = stateFile
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = strings.ToLower(logLevel)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return a.open(cfg)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}
	cmd.PersistentFlags().StringVar(&stateFile, "state", "", "State file (default $MODI_STATE_FILE or todo.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (default $MODI_LOG_LEVEL or info)")

	cmd.AddCommand(
		newCmdAdd(a),
		newCmdDone(a),
		newCmdReopen(a),
		newCmdRemove(a),
		newCmdClear(a),
		newCmdList(a),
		newCmdDump(a),
	)
	return cmd
}

func newCmdAdd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <title>...",
		Short: "Add an item",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			it, err := a.vm.Add(strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s  %s\n", short(it.ID), it.Title)
			return nil
		},
	}
}

func newCmdDone(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "done <id>",
		Short: "Mark an item as done (a unique ID prefix is enough)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			it, err := a.vm.Complete(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "done %s  %s\n", short(it.ID), it.Title)
			return nil
		},
	}
}

func newCmdReopen(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reopen <id>",
		Short: "Mark an item as not done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			it, err := a.vm.Reopen(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reopened %s  %s\n", short(it.ID), it.Title)
			return nil
		},
	}
}

func newCmdRemove(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"remove"},
		Short:   "Remove an item",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			it, err := a.vm.Remove(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s  %s\n", short(it.ID), it.Title)
			return nil
		},
	}
}

func newCmdClear(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every done item",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.vm.ClearDone()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d\n", n)
			return nil
		},
	}
}

func newCmdList(a *app) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("filter") {
				f, err := todo.ParseFilter(filter)
				if err != nil {
					return err
				}
				if err := a.vm.SetFilter(f); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), a.vm.Title)
			for _, line := range a.vm.Lines() {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			fmt.Fprintln(cmd.OutOrStdout(), a.vm.Summary())
			return nil
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "", "Show all, active or done items (remembered)")
	return cmd
}

func newCmdDump(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Print the snapshot of every named model as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.dump()
			if err != nil {
				return err
			}
			out, err := snapshot.MarshalYAML(s)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
