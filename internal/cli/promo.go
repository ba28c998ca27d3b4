package cli

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"ticket-storefront/internal/models"
	"ticket-storefront/internal/services"
)

type promoRow struct {
	Code    string `json:"code"`
	Rate    string `json:"rate"`
	Display string `json:"display"`
}

// NewPromoCommand creates the promo command group.
func NewPromoCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "promo",
		Short: "Inspect the promo code table",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every known promo code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver, err := newResolver(rootOpts)
			if err != nil {
				return err
			}

			codes := resolver.Codes()
			names := make([]string, 0, len(codes))
			for code := range codes {
				names = append(names, code)
			}
			sort.Strings(names)

			rows := make([]promoRow, 0, len(names))
			for _, code := range names {
				rows = append(rows, promoRow{Code: code, Rate: codes[code].String(), Display: percentLabel(code, codes[code])})
			}
			return printPromoRows(rootOpts, rows, cmd)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "check <code>",
		Short: "Resolve a code the way the cart page does",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver, err := newResolver(rootOpts)
			if err != nil {
				return err
			}

			rate, err := resolver.Resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			code := services.NormalizePromoCode(args[0])
			return printPromoRows(rootOpts, []promoRow{{Code: code, Rate: rate.String(), Display: percentLabel(code, rate)}}, cmd)
		},
	})

	return cmd
}

func printPromoRows(opts *RootOptions, rows []promoRow, cmd *cobra.Command) error {
	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), rows)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tRATE\tDISCOUNT")
	for _, row := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", row.Code, row.Rate, row.Display)
	}
	return tw.Flush()
}

func percentLabel(code string, rate decimal.Decimal) string {
	promo := models.AppliedPromo{Code: code, Rate: rate}
	return fmt.Sprintf("-%d%%", promo.PercentLabel())
}
