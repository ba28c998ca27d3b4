package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ticket-storefront/internal/models"
	"ticket-storefront/internal/services"
	"ticket-storefront/internal/utils"
)

// QuoteResult is the priced cart.
type QuoteResult struct {
	Summary   models.PriceSummary  `json:"summary"`
	Promo     *models.AppliedPromo `json:"promo,omitempty"`
	Formatted map[string]string    `json:"formatted"`
}

// NewQuoteCommand creates the quote command.
func NewQuoteCommand(rootOpts *RootOptions) *cobra.Command {
	var promoCode string

	cmd := &cobra.Command{
		Use:   "quote <cart.json>",
		Short: "Price a saved cart",
		Long: `Price a cart file holding the JSON array stored under the "cart" key,
optionally with a promo code applied.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuote(cmd.Context(), rootOpts, args[0], promoCode, cmd)
		},
	}

	cmd.Flags().StringVar(&promoCode, "promo", "", "promo code to apply")
	return cmd
}

func runQuote(ctx context.Context, opts *RootOptions, path, promoCode string, cmd *cobra.Command) error {
	items, err := loadCartFile(path)
	if err != nil {
		return err
	}

	var promo *models.AppliedPromo
	if promoCode != "" {
		resolver, err := newResolver(opts)
		if err != nil {
			return err
		}
		rate, err := resolver.Resolve(ctx, promoCode)
		if err != nil {
			return err
		}
		promo = &models.AppliedPromo{Code: services.NormalizePromoCode(promoCode), Rate: rate}
	}

	summary := services.SummaryWithPromo(items, promo)
	result := QuoteResult{
		Summary: summary,
		Promo:   promo,
		Formatted: map[string]string{
			"subtotal": utils.FormatCurrency(summary.Subtotal),
			"tax":      utils.FormatCurrency(summary.Tax),
			"discount": utils.FormatCurrency(summary.Discount),
			"total":    utils.FormatCurrency(summary.Total),
		},
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), result)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Tickets\t%d\n", summary.ItemCount)
	fmt.Fprintf(tw, "Subtotal\t%s\n", result.Formatted["subtotal"])
	fmt.Fprintf(tw, "Tax\t%s\n", result.Formatted["tax"])
	if promo != nil {
		fmt.Fprintf(tw, "Discount (%s)\t%s\n", promo.Code, utils.FormatDiscount(summary.Discount))
	}
	fmt.Fprintf(tw, "Total\t%s\n", result.Formatted["total"])
	fmt.Fprintf(tw, "Points\t%d\n", summary.PointsEarned)
	return tw.Flush()
}

func loadCartFile(path string) ([]models.CartLineItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cart file: %w", err)
	}

	var items []models.CartLineItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to parse cart file: %w", err)
	}
	for idx, item := range items {
		if err := item.Validate(); err != nil {
			return nil, fmt.Errorf("cart line %d: %w", idx, err)
		}
	}
	return items, nil
}

// newResolver builds a local-only resolver from --codes, PROMO_CODES_FILE or the defaults
func newResolver(opts *RootOptions) (*services.PromoResolver, error) {
	path := opts.CodesFile
	if path == "" {
		path = os.Getenv("PROMO_CODES_FILE")
	}
	if path == "" {
		return services.NewPromoResolver(nil, nil, zap.NewNop()), nil
	}

	codes, err := services.LoadPromoCodes(path)
	if err != nil {
		return nil, err
	}
	return services.NewPromoResolver(codes, nil, zap.NewNop()), nil
}
