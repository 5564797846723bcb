package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/catalog-tracker/internal/schemas"
	schemadefs "github.com/jonathan/catalog-tracker/schemas"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a JSON file against a JSON Schema",
	Long: `Checks a JSON document against a schema file. Without --schema the document is
checked against the embedded scrape session schema.`,
	RunE: runValidate,
}

var (
	validateSchema string
	validateJSON   string
)

func init() {
	validateCmd.Flags().StringVar(&validateSchema, "schema", "", "Path to JSON Schema file (defaults to the scrape session schema)")
	validateCmd.Flags().StringVar(&validateJSON, "json", "", "Path to JSON file to validate (required)")

	if err := validateCmd.MarkFlagRequired("json"); err != nil {
		panic(fmt.Sprintf("failed to mark json flag as required: %v", err))
	}

	rootCmd.AddCommand(validateCmd)
}

func runValidate(_ *cobra.Command, _ []string) error {
	var err error
	if validateSchema != "" {
		err = schemas.ValidateJSON(validateSchema, validateJSON)
	} else {
		var data []byte
		data, err = os.ReadFile(validateJSON)
		if err != nil {
			return fmt.Errorf("failed to read JSON file: %w", err)
		}
		err = schemas.ValidateJSONBytes(schemadefs.ScrapeSession, data)
	}
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Validation failed")
		return err
	}

	_, _ = fmt.Fprintln(os.Stdout, "Validation passed")
	return nil
}
