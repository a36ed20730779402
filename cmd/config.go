package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/manav03panchal/personalvault/internal/config"
	"github.com/manav03panchal/personalvault/internal/errors"
)

var configInitFlagForce bool

var configCmd = &cobra.Command{
	Use:     "config",
	Aliases: []string{"cfg", "settings"},
	Short:   "Show and create the configuration file",
	Long: `Show the effective configuration, or write a config file with the
defaults to edit. Environment variables (PERSONALVAULT_*) override the file.

Examples:
  personalvault config show
  personalvault config init
  personalvault config path`,
	Annotations: map[string]string{annotationNoRuntime: "true"},
	RunE:        runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(configPath())
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the defaults",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the config file",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

func init() {
	configInitCmd.Flags().BoolVar(&configInitFlagForce, "force", false, "Overwrite an existing file")

	configCmd.AddCommand(configShowCmd, configPathCmd, configInitCmd, configValidateCmd)
	rootCmd.AddCommand(configCmd)
}

func configPath() string {
	if flagConfig != "" {
		return flagConfig
	}
	if config.Global.File != "" {
		return config.Global.File
	}
	return config.DefaultPath()
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	if jsonOutput() {
		return printJSON(config.Global)
	}
	data, err := yaml.Marshal(config.Global)
	if err != nil {
		return err
	}
	fmt.Printf("# %s\n%s", configPath(), data)
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configPath()
	if _, err := os.Stat(path); err == nil && !configInitFlagForce {
		return errors.NewUserErrorWithField("path", path, "config file already exists", "Use --force to overwrite it")
	}
	if err := config.DefaultRuntimeConfig().Save(path); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath())
	if err != nil {
		return err
	}
	if cfg.File == "" {
		fmt.Printf("No config file at %s; using defaults\n", configPath())
		return nil
	}
	fmt.Printf("%s is valid\n", cfg.File)
	return nil
}
