package main

import (
	"fmt"
	"log"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/laragen/laragen/internal/analyzer"
	"github.com/laragen/laragen/internal/config"
	"github.com/laragen/laragen/internal/diag"
	"github.com/laragen/laragen/internal/document"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Analyze a Laravel application and write an OpenAPI document",
	Long: `Parses the application's route files, controllers and FormRequest classes,
extracts validation rules including conditional branches, and writes the
synthesized OpenAPI document. The output encoding follows the file
extension (.yaml or .json).`,
	RunE: runGenerate,
}

var (
	sourceFlag string
	outputFlag string
	strictFlag bool
)

func init() {
	generateCmd.Flags().StringVarP(&sourceFlag, "source", "s", "", "Laravel application root")
	generateCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Output file path")
	generateCmd.Flags().Int("workers", 0, "Parallel analysis workers (0 = NumCPU)")
	generateCmd.Flags().BoolVar(&strictFlag, "strict", false, "Exit non-zero when analysis records error-grade diagnostics")

	viper.BindPFlag("source.dir", generateCmd.Flags().Lookup("source"))
	viper.BindPFlag("output.path", generateCmd.Flags().Lookup("output"))
	viper.BindPFlag("source.workers", generateCmd.Flags().Lookup("workers"))
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	doc, result, err := analyzeSources(cfg)
	if err != nil {
		return err
	}

	if err := document.Save(doc, cfg.Output.Path); err != nil {
		return fmt.Errorf("write document: %w", err)
	}

	log.Printf("Analyzed %d routes, wrote %s", len(result.Routes), cfg.Output.Path)
	reportDiagnostics(result.Diagnostics)
	if strictFlag && result.Diagnostics.HasErrors() {
		return fmt.Errorf("analysis finished with errors: %s", result.Diagnostics.Summary())
	}
	return nil
}

// analyzeSources runs the full analysis pipeline and builds the OpenAPI
// document.
func analyzeSources(cfg *config.Config) (*openapi3.T, *analyzer.Result, error) {
	files, err := analyzer.LoadDir(cfg.Source.Dir)
	if err != nil {
		return nil, nil, fmt.Errorf("read sources: %w", err)
	}
	if len(files) == 0 {
		return nil, nil, fmt.Errorf("no PHP files found under %s", cfg.Source.Dir)
	}

	result := analyzer.Analyze(files, analyzer.Config{Workers: cfg.Source.Workers})

	doc := document.Build(result, document.Info{
		Title:       cfg.Output.Title,
		Version:     cfg.Output.Version,
		Description: cfg.Output.Description,
		ServerURL:   cfg.Output.ServerURL,
	})
	return doc, result, nil
}

func reportDiagnostics(diags *diag.Collector) {
	for _, f := range diags.Findings() {
		log.Print(f.String())
	}
}
