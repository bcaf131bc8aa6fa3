// Package cmd implements the command-line interface for linkclean.
// It provides the root command and subcommands for cleaning URL-bearing
// fields in JSON-Lines files.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jonesrussell/linkclean/cmd/clean"
	"github.com/jonesrussell/linkclean/internal/config"
)

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// Debug enables debug mode for all commands
	Debug bool

	// rootCmd represents the root command for the linkclean CLI.
	rootCmd = &cobra.Command{
		Use:   "linkclean",
		Short: "Validate and clean URLs in JSON-Lines files",
		Long: `linkclean checks the URLs held in configured fields of a JSON-Lines
file, removes dead links, optionally rewrites redirects to their targets, and
writes the cleaned records back out in input order.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command
func Execute() error {
	// Load .env file early so environment variables are available
	_ = godotenv.Load()

	// Parse flags early to get the debug flag before creating the logger
	_ = rootCmd.ParseFlags(os.Args[1:])

	if err := initConfig(); err != nil {
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}

	return rootCmd.ExecuteContext(context.Background())
}

// init initializes the root command and its subcommands.
func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"",
		"config file (default is ./config.yaml)",
	)
	rootCmd.PersistentFlags().BoolVar(&Debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("linkclean version %s\n", "1.0.0")
		},
	})

	rootCmd.AddCommand(clean.Command())
}

// initConfig reads in the config file and environment variables if set.
func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	// Environment variables take precedence over config-file values.
	viper.SetEnvPrefix("linkclean")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()

	// Config file is optional: defaults and environment variables cover
	// everything.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && cfgFile != "" {
			return fmt.Errorf("read config file: %w", err)
		}
	}

	if err := viper.BindPFlag("app.debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		return fmt.Errorf("failed to bind debug flag: %w", err)
	}

	setupLoggingLevel()

	return nil
}

// setupLoggingLevel maps the debug flag onto the logger level.
func setupLoggingLevel() {
	debugFlag := Debug || viper.GetBool("app.debug")
	if debugFlag {
		viper.Set("logger.level", "debug")
	}
	if viper.GetString("app.environment") == "development" {
		viper.Set("logger.development", true)
		viper.Set("logger.encoding", "console")
	}
	Debug = debugFlag
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("app", map[string]any{
		"name":        "linkclean",
		"version":     "1.0.0",
		"environment": "production",
		"debug":       false,
	})

	viper.SetDefault("logger", map[string]any{
		"level":       "info",
		"development": false,
		"encoding":    "console",
	})

	viper.SetDefault("checker", map[string]any{
		"timeout":     "10s",
		"max_retries": config.DefaultMaxRetries,
		"user_agent":  "linkclean/1.0",
		"rate_limit":  0,
	})

	viper.SetDefault("pipeline", map[string]any{
		"chunk_size":  config.DefaultChunkSize,
		"parallelism": config.DefaultParallelism,
	})

	viper.SetDefault("output", map[string]any{
		"suffix": config.DefaultSuffix,
	})
}
