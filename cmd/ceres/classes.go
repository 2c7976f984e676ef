package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"bulwark-hq/ceres/pkg/cli"
	"bulwark-hq/ceres/pkg/config"
	"bulwark-hq/ceres/pkg/ratelimit"
)

var classesFlags struct {
	format string
}

var classesCmd = &cobra.Command{
	Use:   "classes",
	Short: "List the effective limit classes",
	Long: `List the limit classes the server would enforce with the current
configuration, including the built-in defaults when no classes are
configured.

Examples:
  # Show classes as a table
  ceres classes

  # Machine-readable output
  ceres classes --format json`,
	RunE: listClasses,
}

func init() {
	rootCmd.AddCommand(classesCmd)
	classesCmd.Flags().StringVar(&classesFlags.format, "format", "text", "output format: text, json")
}

// classList is the command result for JSON output.
type classList struct {
	Classes []classEntry `json:"classes"`
}

type classEntry struct {
	Name        string `json:"name"`
	MaxRequests uint64 `json:"maxRequests"`
	Window      string `json:"window"`
}

func listClasses(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	registry, err := buildRegistry(cfg)
	if err != nil {
		return cli.NewCommandError("classes", err)
	}
	classes := registry.Classes()

	if classesFlags.format == "json" {
		result := classList{Classes: make([]classEntry, 0, len(classes))}
		for _, cc := range classes {
			result.Classes = append(result.Classes, classEntry{
				Name:        cc.Name,
				MaxRequests: cc.MaxRequests,
				Window:      cc.Window.String(),
			})
		}
		formatter := cli.NewFormatter(cli.FormatJSON)
		return formatter.FormatTo(os.Stdout, result)
	}

	fmt.Printf("%-12s %12s %10s\n", "CLASS", "MAX REQUESTS", "WINDOW")
	for _, cc := range classes {
		fmt.Printf("%-12s %12d %10s\n", cc.Name, cc.MaxRequests, cc.Window)
	}

	mapper, err := ratelimit.NewClassMapper(cfg.RateLimit.Endpoints, cfg.RateLimit.DefaultClass)
	if err != nil {
		return cli.NewCommandError("classes", err)
	}
	fmt.Println()
	fmt.Printf("Default class: %s\n", mapper.DefaultClass())
	if rules := mapper.Rules(); len(rules) > 0 {
		fmt.Println("Endpoint rules:")
		for _, rule := range rules {
			fmt.Printf("  %-30s -> %s\n", rule.Prefix, rule.Class)
		}
	}

	return nil
}
