package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/factorial/trendline/pkg/config"
	"github.com/factorial/trendline/pkg/errors"
)

// configCommand creates the config inspection command.
func (c *CLI) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the trendline configuration",
	}

	cmd.AddCommand(c.configPathCommand())
	cmd.AddCommand(c.configShowCommand())
	cmd.AddCommand(c.configInitCommand())

	return cmd
}

// configPathCommand prints the file the configuration is read from.
func (c *CLI) configPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := c.resolvedConfigPath()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

// configShowCommand prints the effective configuration as TOML.
func (c *CLI) configShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.config.Encode(cmd.OutOrStdout())
		},
	}
}

// configInitCommand writes the built-in defaults to the config path.
func (c *CLI) configInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := c.resolvedConfigPath()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				printWarning("Config already exists: %s", path)
				printNextStep("Overwrite it with", "trendline config init --force")
				return nil
			}
			if err := writeDefaultConfig(path); err != nil {
				return err
			}
			printSuccess("Config written")
			printFile(path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}

func (c *CLI) resolvedConfigPath() (string, error) {
	if c.configPath != "" {
		return c.configPath, nil
	}
	if c.configUsed != "" {
		return c.configUsed, nil
	}
	return config.DefaultPath()
}

func writeDefaultConfig(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "create config dir")
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "create %s", path)
	}
	if err := config.Default().Encode(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
