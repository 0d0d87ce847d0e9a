package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/serialagent/gateway/internal/config"
)

func initCmd() *cobra.Command {
	var force bool
	c := &cobra.Command{
		Use:   "init",
		Short: "Interactively generate a config.json",
		Run: func(cmd *cobra.Command, args []string) {
			runInit(force)
		},
	}
	c.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return c
}

func runInit(force bool) {
	path := resolveConfigPath()
	if _, err := os.Stat(path); err == nil && !force {
		fmt.Printf("%s already exists; pass --force to overwrite.\n", path)
		return
	}

	cfg := config.Default()

	var provider string
	var apiKey string
	var workspace string
	var host string
	var port string
	var enableTools bool

	workspace = cfg.Agents.Defaults.Workspace
	host = cfg.Gateway.Host
	port = fmt.Sprintf("%d", cfg.Gateway.Port)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Default provider").
				Options(
					huh.NewOption("Anthropic", "anthropic"),
					huh.NewOption("OpenAI", "openai"),
					huh.NewOption("OpenRouter", "openrouter"),
					huh.NewOption("Groq", "groq"),
					huh.NewOption("DeepSeek", "deepseek"),
				).
				Value(&provider),
			huh.NewInput().
				Title("API key for the selected provider").
				EchoMode(huh.EchoModePassword).
				Validate(func(s string) error {
					if s == "" {
						return errors.New("an API key is required to reach a model")
					}
					return nil
				}).
				Value(&apiKey),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Agent workspace directory").
				Value(&workspace),
			huh.NewInput().
				Title("Gateway bind host").
				Value(&host),
			huh.NewInput().
				Title("Gateway bind port").
				Validate(func(s string) error {
					var n int
					if _, err := fmt.Sscanf(s, "%d", &n); err != nil || n <= 0 {
						return errors.New("enter a positive port number")
					}
					return nil
				}).
				Value(&port),
			huh.NewConfirm().
				Title("Enable the full tool profile (files, shell, web)?").
				Value(&enableTools),
		),
	)

	if err := form.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "init cancelled:", err)
		return
	}

	cfg.Agents.Defaults.Workspace = workspace
	cfg.Agents.Defaults.Provider = provider
	cfg.Gateway.Host = host
	fmt.Sscanf(port, "%d", &cfg.Gateway.Port)
	if enableTools {
		cfg.Tools.Profile = "full"
	} else {
		cfg.Tools.Profile = "minimal"
	}
	setProviderAPIKey(cfg, provider, apiKey)

	if err := config.Save(path, cfg); err != nil {
		fmt.Fprintln(os.Stderr, "failed to write config:", err)
		os.Exit(1)
	}

	fmt.Printf("\nWrote %s.\n", path)
	fmt.Println("The API key you entered is stored in that file; treat it like a secret.")
	fmt.Printf("Start the gateway with: serialagent serve --config %s\n", path)
}

func setProviderAPIKey(cfg *config.Config, provider, key string) {
	switch provider {
	case "anthropic":
		cfg.Providers.Anthropic.APIKey = key
	case "openai":
		cfg.Providers.OpenAI.APIKey = key
	case "openrouter":
		cfg.Providers.OpenRouter.APIKey = key
	case "groq":
		cfg.Providers.Groq.APIKey = key
	case "deepseek":
		cfg.Providers.DeepSeek.APIKey = key
	}
}
