package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/blastheart1/signed-contract-parser-sub003/internal/export"
	id "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/requestcontext"
)

func (c *cli) exportCmd() *cobra.Command {
	var out, template string
	cmd := &cobra.Command{
		Use:   "export ORDER_ID",
		Short: "Write an order to an Excel workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orderID, err := id.ParseOrderID(args[0])
			if err != nil {
				return err
			}
			ctx := requestcontext.WithActor(cmd.Context(), systemActor)
			a, err := c.open(ctx, true)
			if err != nil {
				return err
			}
			defer a.Close()

			detail, err := a.Orders.GetOrder(ctx, orderID)
			if err != nil {
				return err
			}
			if template == "" {
				template = c.cfg.ExcelTemplatePath
			}
			var buf bytes.Buffer
			if err := export.WriteOrderWorkbook(ctx, &buf, detail, export.Options{TemplatePath: template}); err != nil {
				return err
			}
			if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "destination .xlsx file")
	cmd.Flags().StringVar(&template, "template", "", "workbook template (defaults to EXCEL_TEMPLATE_PATH)")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}
