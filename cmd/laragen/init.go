package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default laragen.yaml configuration file",
	Long: `Creates laragen.yaml with default settings in the target directory.

If laragen.yaml already exists, it will not be overwritten unless --force
is used.`,
	RunE: runInit,
}

var (
	initForce bool
	initPath  string
)

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite existing config file")
	initCmd.Flags().StringVarP(&initPath, "path", "p", ".", "Path where to initialize")
}

func runInit(cmd *cobra.Command, args []string) error {
	absPath, err := filepath.Abs(initPath)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	configFile := filepath.Join(absPath, "laragen.yaml")
	if _, err := os.Stat(configFile); err == nil && !initForce {
		return fmt.Errorf("laragen.yaml already exists. Use --force to overwrite")
	}

	config := map[string]interface{}{
		"source": map[string]interface{}{
			"dir":     ".",
			"workers": 0,
		},
		"output": map[string]interface{}{
			"path":        "openapi.yaml",
			"title":       "API Documentation",
			"version":     "1.0.0",
			"description": "",
			"serverUrl":   "http://localhost:8080",
		},
		"server": map[string]interface{}{
			"port":  8080,
			"host":  "0.0.0.0",
			"watch": false,
			"seed":  0,
			"tls": map[string]interface{}{
				"enabled":      false,
				"certFile":     "",
				"keyFile":      "",
				"autoGenerate": true,
				"storePath":    ".laragen/certs",
			},
		},
		"auth": map[string]interface{}{
			"tokens":  []string{},
			"apiKeys": []string{},
			"basic":   []string{},
		},
		"logging": map[string]interface{}{
			"level":  "info",
			"format": "text",
		},
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to generate config: %w", err)
	}

	header := `# laragen configuration
# source.dir must point at the Laravel application root.

`
	if err := os.WriteFile(configFile, []byte(header+string(data)), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	fmt.Printf("Created config file: %s\n", configFile)

	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println()
	fmt.Println("  laragen generate -s /path/to/app -o openapi.yaml")
	fmt.Println("  laragen serve -s /path/to/app --watch")
	fmt.Println()

	return nil
}
