package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/roomwatch/internal/condition"
	"github.com/ppiankov/roomwatch/internal/config"
	"github.com/ppiankov/roomwatch/internal/model"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage roomwatch configuration",
	Long: `Manage roomwatch configuration files and settings.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (ROOMWATCH_*, plus GOOGLE_MAPS_API_KEY, SLACK_TOKEN,
   OPENAI_API_KEY and DATABASE_URL), including those from .env
3. Config file (~/.roomwatch/config.yaml)
4. Defaults`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration with secrets masked.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(viper.GetViper())
		if err != nil {
			return err
		}

		if f := viper.ConfigFileUsed(); f != "" {
			fmt.Fprintf(os.Stderr, "Configuration file: %s\n\n", f)
		} else {
			fmt.Fprintf(os.Stderr, "No configuration file found (using defaults)\n\n")
		}

		return writeYAML(cmd.OutOrStdout(), cfg.Redacted())
	},
}

var configInitForce bool

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Initialize default configuration file",
	Long:  `Create a default configuration file (default ~/.roomwatch/config.yaml) with example boxes, stations and conditions.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := defaultConfigPath()
		if err != nil {
			return err
		}
		if len(args) == 1 {
			path = args[0]
		}

		if err := writeDefaultConfig(path, configInitForce); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "✓ Created default configuration: %s\n", path)
		fmt.Fprintf(out, "\nTo view the configuration:\n")
		fmt.Fprintf(out, "  roomwatch config show\n")
		fmt.Fprintf(out, "\nTo customize, edit the file with your preferred editor:\n")
		fmt.Fprintf(out, "  $EDITOR %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)

	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing file")
}

// exampleConfig is Default plus sample reference data so a fresh file
// shows every section
func exampleConfig() config.Config {
	cfg := config.Default()
	cfg.Boxes = []model.AreaBox{{
		Name: "capitol_hill",
		Min:  model.Coordinate{Lat: 47.6135, Lon: -122.3035},
		Max:  model.Coordinate{Lat: 47.6400, Lon: -122.3260},
	}}
	cfg.Stations = []model.TransitStation{
		{Name: "Capitol Hill Station", Coord: model.Coordinate{Lat: 47.6192, Lon: -122.3202}},
		{Name: "Westlake Station", Coord: model.Coordinate{Lat: 47.6114, Lon: -122.3372}},
	}
	cfg.Neighborhoods = []string{"capitol hill", "fremont", "ballard", "wallingford"}
	cfg.Conditions = []condition.Spec{
		{Type: "located"},
		{Type: "keyword", Words: []string{"sublet"}},
	}
	return cfg
}

func writeDefaultConfig(path string, force bool) (err error) {
	if _, statErr := os.Stat(path); statErr == nil && !force {
		return fmt.Errorf("config file already exists: %s\nUse 'roomwatch config show' to view it, or pass --force to recreate", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("error creating config file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close config file: %w", closeErr)
		}
	}()

	header := `# roomwatch configuration
#
# Configuration hierarchy (highest to lowest priority):
#   1. CLI flags
#   2. Environment variables (ROOMWATCH_*, e.g. ROOMWATCH_SLACK_CHANNEL)
#   3. This config file
#   4. Built-in defaults
#
# Secrets are best kept in the environment or a .env file:
#   GOOGLE_MAPS_API_KEY=...
#   SLACK_TOKEN=xoxb-...
#   OPENAI_API_KEY=sk-...   (only for "prompt" conditions)

`
	if _, err := io.WriteString(f, header); err != nil {
		return fmt.Errorf("error writing config: %w", err)
	}
	return writeYAML(f, exampleConfig())
}

func writeYAML(w io.Writer, cfg config.Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}
	return enc.Close()
}
