package main

import (
	"fmt"
	"log"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/laragen/laragen/internal/document"
	"github.com/laragen/laragen/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the API as a Postman collection",
	Long: `Analyzes the application (or loads a previously generated document) and
writes a Postman collection v2.1 JSON file.`,
	RunE: runExport,
}

var (
	exportSpecFlag string
	exportOutFlag  string
)

func init() {
	exportCmd.Flags().StringVar(&exportSpecFlag, "spec", "", "Export an existing OpenAPI document instead of analyzing sources")
	exportCmd.Flags().StringVarP(&exportOutFlag, "output", "o", "postman_collection.json", "Output file path")
	exportCmd.Flags().StringP("source", "s", "", "Laravel application root")

	viper.BindPFlag("source.dir", exportCmd.Flags().Lookup("source"))
}

func runExport(cmd *cobra.Command, args []string) error {
	var doc *openapi3.T
	var err error

	if exportSpecFlag != "" {
		doc, err = document.Load(exportSpecFlag)
		if err != nil {
			return fmt.Errorf("load document: %w", err)
		}
	} else {
		doc, _, err = analyzeSources(loadConfig())
		if err != nil {
			return err
		}
	}

	if err := export.Save(doc, exportOutFlag); err != nil {
		return fmt.Errorf("write collection: %w", err)
	}
	log.Printf("Wrote Postman collection to %s", exportOutFlag)
	return nil
}
