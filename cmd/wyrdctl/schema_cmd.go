package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/wyrdstore/wyrd/internal/fact"
	"github.com/wyrdstore/wyrd/internal/scalar"
)

func schemaPath() string {
	return filepath.Join(wyrdDir, "schema.json")
}

// loadSchema reads the persisted cardinality declarations (CLI-only state;
// internal/fact.Schema itself is a pure in-memory map) into a fresh Schema.
func loadSchema() (*fact.Schema, error) {
	schema := fact.NewSchema()

	data, err := os.ReadFile(schemaPath())
	if os.IsNotExist(err) {
		return schema, nil
	}
	if err != nil {
		return nil, err
	}

	var declared map[string]string
	if err := json.Unmarshal(data, &declared); err != nil {
		return nil, fmt.Errorf("parse schema.json: %w", err)
	}
	for attrStr, cardStr := range declared {
		attr, err := parseAttribute(attrStr)
		if err != nil {
			return nil, fmt.Errorf("schema.json: %w", err)
		}
		card := scalar.CardinalityMany
		if cardStr == "one" {
			card = scalar.CardinalityOne
		}
		schema.Declare(attr, card)
	}
	return schema, nil
}

func declareSchema(attrStr, cardStr string) error {
	if _, err := parseAttribute(attrStr); err != nil {
		return err
	}

	declared := map[string]string{}
	if data, err := os.ReadFile(schemaPath()); err == nil {
		_ = json.Unmarshal(data, &declared)
	}
	declared[attrStr] = cardStr

	data, err := json.MarshalIndent(declared, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema.json: %w", err)
	}
	if err := os.MkdirAll(wyrdDir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", wyrdDir, err)
	}
	return os.WriteFile(schemaPath(), data, 0644)
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Declare attribute cardinality",
	Long:  "Cardinality-one attributes auto-retract their prior live value on a new assertion; cardinality-many never auto-retracts.",
}

var schemaOneCmd = &cobra.Command{
	Use:   "one <namespace/name>",
	Short: "Declare an attribute cardinality-one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := declareSchema(args[0], "one"); err != nil {
			return err
		}
		fmt.Printf("%s declared cardinality-one\n", args[0])
		return nil
	},
}

var schemaManyCmd = &cobra.Command{
	Use:   "many <namespace/name>",
	Short: "Declare an attribute cardinality-many (the default)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := declareSchema(args[0], "many"); err != nil {
			return err
		}
		fmt.Printf("%s declared cardinality-many\n", args[0])
		return nil
	},
}
