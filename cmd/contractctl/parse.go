package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/blastheart1/signed-contract-parser-sub003/internal/contract/models"
	"github.com/blastheart1/signed-contract-parser-sub003/internal/contract/parser"
)

func (c *cli) parseCmd() *cobra.Command {
	var (
		fetchAddenda bool
		format       string
	)
	cmd := &cobra.Command{
		Use:   "parse FILE",
		Short: "Parse a signed contract email and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "json" && format != "yaml" {
				return fmt.Errorf("unknown format %q: use json or yaml", format)
			}
			ctx := cmd.Context()
			f, err := openFile(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			contract, err := parser.New(parser.WithLogger(c.logger())).ParseEML(ctx, f)
			if err != nil {
				return err
			}
			if fetchAddenda {
				a, err := c.open(ctx, false)
				if err != nil {
					return err
				}
				defer a.Close()
				if _, err := a.Addenda.FetchAndMerge(ctx, contract); err != nil {
					return err
				}
			}
			return writeContract(cmd.OutOrStdout(), contract, format)
		},
	}
	cmd.Flags().BoolVar(&fetchAddenda, "fetch-addenda", false, "download linked addenda and append their rows")
	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format: json or yaml")
	return cmd
}

// writeContract renders c. YAML goes through the JSON form so both formats
// share field names.
func writeContract(w io.Writer, c *models.Contract, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(c)
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}
