package main

import (
	"fmt"

	"github.com/spf13/cobra"

	omodels "github.com/blastheart1/signed-contract-parser-sub003/internal/orders/models"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/requestcontext"
)

func (c *cli) importCmd() *cobra.Command {
	var overwrite, fetchAddenda bool
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Parse a signed contract email and store it",
		Long: `Parse a signed contract email and store its customer, order and items.

An existing order with the same number is a conflict unless --overwrite is set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := requestcontext.WithActor(cmd.Context(), systemActor)
			a, err := c.open(ctx, true)
			if err != nil {
				return err
			}
			defer a.Close()

			f, err := openFile(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			contract, err := a.Parser.ParseEML(ctx, f)
			if err != nil {
				return err
			}
			merged := 0
			if fetchAddenda {
				if merged, err = a.Addenda.FetchAndMerge(ctx, contract); err != nil {
					return err
				}
			}
			detail, err := a.Orders.ImportContract(ctx, contract, omodels.ImportOptions{Overwrite: overwrite})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported order %s (%s): %d items, %d addendum rows\n",
				detail.Order.OrderNo, detail.Order.ID, len(detail.Items), merged)
			return nil
		},
	}
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace an existing order with the same number")
	cmd.Flags().BoolVar(&fetchAddenda, "fetch-addenda", false, "download linked addenda and append their rows")
	return cmd
}
