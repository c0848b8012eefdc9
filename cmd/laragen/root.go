package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/laragen/laragen/internal/config"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "laragen",
		Short: "laragen - OpenAPI generation and mocking for Laravel applications",
		Long: `laragen statically analyzes a Laravel application (routes, controllers and
FormRequest classes) and synthesizes an OpenAPI 3 document without requiring
annotations. The generated document can be written to disk, exported as a
Postman collection, or served directly as a mock API.`,
	}
)

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ./laragen.yaml)")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(initCmd)
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		cwd, err := os.Getwd()
		if err != nil {
			cwd = "."
		}
		viper.AddConfigPath(cwd)
		viper.SetConfigType("yaml")
		viper.SetConfigName("laragen")
	}

	viper.SetEnvPrefix("LARAGEN")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// setDefaults sets the default configuration values
func setDefaults() {
	viper.SetDefault("source.dir", ".")
	viper.SetDefault("source.workers", 0)

	viper.SetDefault("output.path", "openapi.yaml")
	viper.SetDefault("output.title", "API Documentation")
	viper.SetDefault("output.version", "1.0.0")
	viper.SetDefault("output.description", "")
	viper.SetDefault("output.serverUrl", "http://localhost:8080")

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.watch", false)
	viper.SetDefault("server.seed", 0)
	viper.SetDefault("server.tls.enabled", false)
	viper.SetDefault("server.tls.certFile", "")
	viper.SetDefault("server.tls.keyFile", "")
	viper.SetDefault("server.tls.autoGenerate", true)
	viper.SetDefault("server.tls.storePath", ".laragen/certs")

	viper.SetDefault("auth.tokens", []string{})
	viper.SetDefault("auth.apiKeys", []string{})
	viper.SetDefault("auth.basic", []string{})

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
}

// loadConfig materializes the effective configuration from viper so the
// rest of the program works with typed settings.
func loadConfig() *config.Config {
	cfg := config.Default()
	cfg.Source.Dir = viper.GetString("source.dir")
	if workers := viper.GetInt("source.workers"); workers > 0 {
		cfg.Source.Workers = workers
	}
	cfg.Output.Path = viper.GetString("output.path")
	cfg.Output.Title = viper.GetString("output.title")
	cfg.Output.Version = viper.GetString("output.version")
	cfg.Output.Description = viper.GetString("output.description")
	cfg.Output.ServerURL = viper.GetString("output.serverUrl")
	cfg.Server.Port = viper.GetInt("server.port")
	cfg.Server.Host = viper.GetString("server.host")
	cfg.Server.Watch = viper.GetBool("server.watch")
	cfg.Server.Seed = viper.GetInt64("server.seed")
	cfg.Server.TLS.Enabled = viper.GetBool("server.tls.enabled")
	cfg.Server.TLS.CertFile = viper.GetString("server.tls.certFile")
	cfg.Server.TLS.KeyFile = viper.GetString("server.tls.keyFile")
	cfg.Server.TLS.AutoGenerate = viper.GetBool("server.tls.autoGenerate")
	cfg.Server.TLS.StorePath = viper.GetString("server.tls.storePath")
	cfg.Auth.Tokens = viper.GetStringSlice("auth.tokens")
	cfg.Auth.APIKeys = viper.GetStringSlice("auth.apiKeys")
	cfg.Auth.Basic = viper.GetStringSlice("auth.basic")
	cfg.Logging.Level = viper.GetString("logging.level")
	cfg.Logging.Format = viper.GetString("logging.format")
	return cfg
}
