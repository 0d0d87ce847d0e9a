package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/serialagent/gateway/internal/config"
	"github.com/serialagent/gateway/internal/providers"
	"github.com/serialagent/gateway/internal/router"
	"github.com/serialagent/gateway/internal/scheduler"
	"github.com/serialagent/gateway/internal/store"
	"github.com/serialagent/gateway/internal/tools"
	"github.com/serialagent/gateway/internal/turn"
)

func scheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Inspect and control scheduled agent runs",
	}
	cmd.AddCommand(scheduleListCmd())
	cmd.AddCommand(scheduleRunNowCmd())
	cmd.AddCommand(scheduleResetErrorsCmd())
	return cmd
}

func scheduleListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured schedules",
		Run: func(cmd *cobra.Command, args []string) {
			_, stores := mustOpenStores()
			schedules, err := stores.Schedules.List(context.Background())
			if err != nil {
				fmt.Fprintln(os.Stderr, "list schedules:", err)
				os.Exit(1)
			}
			if len(schedules) == 0 {
				fmt.Println("no schedules configured")
				return
			}
			for _, sch := range schedules {
				status := "ok"
				if sch.ConsecutiveErrors > 0 {
					status = fmt.Sprintf("error x%d", sch.ConsecutiveErrors)
				}
				if !sch.Enabled {
					status = "disabled"
				}
				fmt.Printf("%-20s %-24s %-16s next=%s status=%s\n", sch.ID, sch.Name, sch.Cron, sch.NextRun.Format("2006-01-02T15:04:05Z07:00"), status)
			}
		},
	}
}

func scheduleRunNowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run-now [id]",
		Short: "Trigger a schedule immediately, bypassing its cron",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg, stores, runtime := mustBuildRuntimeForCLI()
			sched := scheduler.New(cfg.Scheduler, stores, runtime, nil)
			if err := sched.RunNow(context.Background(), args[0]); err != nil {
				fmt.Fprintln(os.Stderr, "run-now:", err)
				os.Exit(1)
			}
			fmt.Println("schedule run enqueued:", args[0])
		},
	}
}

func scheduleResetErrorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset-errors [id]",
		Short: "Clear a schedule's consecutive-failure count and any cooldown",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg, stores, runtime := mustBuildRuntimeForCLI()
			sched := scheduler.New(cfg.Scheduler, stores, runtime, nil)
			if err := sched.ResetErrors(context.Background(), args[0]); err != nil {
				fmt.Fprintln(os.Stderr, "reset-errors:", err)
				os.Exit(1)
			}
			fmt.Println("schedule errors reset:", args[0])
		},
	}
}

func routerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "router",
		Short: "Inspect the smart router's configuration and recent decisions",
	}
	cmd.AddCommand(routerStatusCmd())
	return cmd
}

func routerStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the router's configuration and registered providers",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				fmt.Fprintln(os.Stderr, "load config:", err)
				os.Exit(1)
			}
			registry := providers.NewRegistry()
			registerProviders(registry, cfg)

			fmt.Printf("router enabled:    %v\n", cfg.Router.Enabled)
			fmt.Printf("default profile:   %s\n", cfg.Router.DefaultProfile)
			fmt.Printf("classifier:        %v\n", cfg.Router.Classifier.Enabled)
			fmt.Println("registered providers:")
			for _, id := range registry.List() {
				fmt.Println("  -", id)
			}
		},
	}
}

// mustOpenStores loads config and opens the flatfile stores for read-only
// CLI commands (spec §4.5/§4.6 — list/inspect operations don't need the
// turn runtime).
func mustOpenStores() (*config.Config, *store.Stores) {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	stores, err := buildStores(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open stores:", err)
		os.Exit(1)
	}
	return cfg, stores
}

// mustBuildRuntimeForCLI constructs the full dependency graph a schedule's
// run-now/reset-errors command needs to actually execute a turn, without
// starting the scheduler's own ticker or the HTTP listener.
func mustBuildRuntimeForCLI() (*config.Config, *store.Stores, *turn.Runtime) {
	cfg, stores := mustOpenStores()

	registry := providers.NewRegistry()
	registerProviders(registry, cfg)
	smartRouter := router.New(registry, cfg.Router, nil)

	toolRegistry := tools.NewRegistry()
	workspace := config.ExpandHome(cfg.Agents.Defaults.Workspace)
	toolRegistry.Register(tools.NewReadFileTool(workspace, cfg.Agents.Defaults.RestrictToWorkspace))
	toolRegistry.Register(tools.NewExecTool(workspace, cfg.Agents.Defaults.RestrictToWorkspace))
	policyEngine := tools.NewPolicyEngine(&cfg.Tools)

	agents := map[string]turn.AgentConfig{"default": turn.ResolveAgentConfig("default", cfg.Agents.Defaults, nil)}
	for id, spec := range cfg.Agents.List {
		spec := spec
		agents[id] = turn.ResolveAgentConfig(id, cfg.Agents.Defaults, &spec)
	}

	runtime := turn.New(registry, smartRouter, toolRegistry, policyEngine, stores, nil, agents, "default")
	return cfg, stores, runtime
}
