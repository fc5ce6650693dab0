package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ShayCichocki/sprintforge/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify SprintForge configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/sprintforge/config.yaml
Project-specific overrides can be placed in .sprintforge.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		switch len(args) {
		case 0:
			displayAllConfig(cfg)
		case 1:
			displayConfigKey(cfg, args[0])
		default:
			setConfigKey(cfg, args[0], args[1])
		}
	},
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	fmt.Printf("server.addr: %s\n", cfg.Server.Addr)
	fmt.Printf("server.shutdown_timeout: %s\n", cfg.Server.ShutdownTimeout)
	fmt.Printf("anthropic.api_key: %s\n", config.MaskAPIKey(cfg.Anthropic.APIKey))
	fmt.Printf("anthropic.model: %s\n", cfg.Anthropic.Model)
	fmt.Printf("anthropic.use_aws_bedrock: %t\n", cfg.Anthropic.UseAWSBedrock)
	fmt.Printf("anthropic.aws_region: %s\n", cfg.Anthropic.AWSRegion)
	fmt.Printf("store.path: %s\n", cfg.Store.Path)
	fmt.Printf("completion.step_timeout: %s\n", cfg.Completion.StepTimeout)
	fmt.Printf("completion.plan_retries: %d\n", cfg.Completion.PlanRetries)
	fmt.Printf("narrative.workers: %d\n", cfg.Narrative.Workers)
	fmt.Printf("narrative.queue_size: %d\n", cfg.Narrative.QueueSize)
	fmt.Printf("narrative.retries: %d\n", cfg.Narrative.Retries)
	fmt.Printf("narrative.section_delay: %s\n", cfg.Narrative.SectionDelay)
	fmt.Printf("tui.server_url: %s\n", cfg.TUI.ServerURL)
}

// displayConfigKey prints a single configuration value.
func displayConfigKey(cfg *config.Config, key string) {
	value, err := getConfigValue(cfg, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(value)
}

// setConfigKey sets a configuration value and saves the config.
func setConfigKey(cfg *config.Config, key, value string) {
	if err := setConfigValue(cfg, key, value); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Set %s = %s\n", key, value)
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch strings.ToLower(key) {
	case "server.addr":
		return cfg.Server.Addr, nil
	case "server.shutdown_timeout":
		return cfg.Server.ShutdownTimeout.String(), nil
	case "anthropic.api_key":
		return config.MaskAPIKey(cfg.Anthropic.APIKey), nil
	case "anthropic.model":
		return cfg.Anthropic.Model, nil
	case "anthropic.use_aws_bedrock":
		return strconv.FormatBool(cfg.Anthropic.UseAWSBedrock), nil
	case "anthropic.aws_region":
		return cfg.Anthropic.AWSRegion, nil
	case "anthropic.aws_profile":
		return cfg.Anthropic.AWSProfile, nil
	case "store.path":
		return cfg.Store.Path, nil
	case "completion.step_timeout":
		return cfg.Completion.StepTimeout.String(), nil
	case "completion.plan_retries":
		return strconv.Itoa(cfg.Completion.PlanRetries), nil
	case "narrative.workers":
		return strconv.Itoa(cfg.Narrative.Workers), nil
	case "narrative.queue_size":
		return strconv.Itoa(cfg.Narrative.QueueSize), nil
	case "narrative.retries":
		return strconv.Itoa(cfg.Narrative.Retries), nil
	case "narrative.section_delay":
		return cfg.Narrative.SectionDelay.String(), nil
	case "tui.server_url":
		return cfg.TUI.ServerURL, nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch strings.ToLower(key) {
	case "server.addr":
		cfg.Server.Addr = value
	case "server.shutdown_timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for shutdown_timeout: %w", err)
		}
		cfg.Server.ShutdownTimeout = d
	case "anthropic.api_key":
		cfg.Anthropic.APIKey = value
	case "anthropic.model":
		cfg.Anthropic.Model = value
	case "anthropic.use_aws_bedrock":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for use_aws_bedrock: %w", err)
		}
		cfg.Anthropic.UseAWSBedrock = b
	case "anthropic.aws_region":
		cfg.Anthropic.AWSRegion = value
	case "anthropic.aws_profile":
		cfg.Anthropic.AWSProfile = value
	case "store.path":
		cfg.Store.Path = value
	case "completion.step_timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for step_timeout: %w", err)
		}
		cfg.Completion.StepTimeout = d
	case "completion.plan_retries":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for plan_retries: %w", err)
		}
		cfg.Completion.PlanRetries = n
	case "narrative.workers":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for workers: %w", err)
		}
		cfg.Narrative.Workers = n
	case "narrative.queue_size":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for queue_size: %w", err)
		}
		cfg.Narrative.QueueSize = n
	case "narrative.retries":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for retries: %w", err)
		}
		cfg.Narrative.Retries = n
	case "narrative.section_delay":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for section_delay: %w", err)
		}
		cfg.Narrative.SectionDelay = d
	case "tui.server_url":
		cfg.TUI.ServerURL = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}
