package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"ticket-storefront/internal/models"
)

// PromoChecker asks an external authority whether a code is valid.
// A rejection must wrap models.ErrPromoRejected; any other error is treated as unavailability.
type PromoChecker interface {
	CheckPromo(ctx context.Context, code string) (decimal.Decimal, error)
}

// DefaultPromoCodes returns the built-in percentage table
func DefaultPromoCodes() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"ROCK2024":  decimal.RequireFromString("0.10"),
		"WELCOME10": decimal.RequireFromString("0.10"),
		"VIP20":     decimal.RequireFromString("0.20"),
	}
}

type promoFile struct {
	Codes map[string]float64 `yaml:"codes"`
}

// LoadPromoCodes reads a YAML table of the form
//
//	codes:
//	  WELCOME10: 0.10
func LoadPromoCodes(path string) (map[string]decimal.Decimal, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read promo codes file: %w", err)
	}
	return ParsePromoCodes(data)
}

// ParsePromoCodes decodes a YAML promo table. Rates must lie in (0, 1].
func ParsePromoCodes(data []byte) (map[string]decimal.Decimal, error) {
	var file promoFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse promo codes: %w", err)
	}
	if len(file.Codes) == 0 {
		return nil, fmt.Errorf("%w: promo codes file defines no codes", models.ErrInvalidInput)
	}

	codes := make(map[string]decimal.Decimal, len(file.Codes))
	for code, rate := range file.Codes {
		normalized := NormalizePromoCode(code)
		if normalized == "" {
			return nil, fmt.Errorf("%w: empty promo code", models.ErrInvalidInput)
		}
		value := decimal.NewFromFloat(rate)
		if !value.IsPositive() || value.GreaterThan(decimal.NewFromInt(1)) {
			return nil, fmt.Errorf("%w: rate for %s must be between 0 and 1", models.ErrInvalidInput, normalized)
		}
		codes[normalized] = value
	}
	return codes, nil
}

// NormalizePromoCode trims whitespace and uppercases code
func NormalizePromoCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// PromoCache holds remotely accepted rates
type PromoCache struct {
	mu    sync.RWMutex
	store map[string]decimal.Decimal
}

// NewPromoCache creates an empty cache
func NewPromoCache() *PromoCache {
	return &PromoCache{store: make(map[string]decimal.Decimal)}
}

func (c *PromoCache) Get(code string) (decimal.Decimal, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rate, ok := c.store[code]
	return rate, ok
}

func (c *PromoCache) Set(code string, rate decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[code] = rate
}

// PromoResolver maps promo codes to discount rates
type PromoResolver struct {
	codes  map[string]decimal.Decimal
	remote PromoChecker
	cache  *PromoCache
	logger *zap.Logger
}

// NewPromoResolver creates a resolver over codes. remote may be nil.
func NewPromoResolver(codes map[string]decimal.Decimal, remote PromoChecker, logger *zap.Logger) *PromoResolver {
	if codes == nil {
		codes = DefaultPromoCodes()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PromoResolver{
		codes:  codes,
		remote: remote,
		cache:  NewPromoCache(),
		logger: logger,
	}
}

// Resolve returns the discount rate for code
func (r *PromoResolver) Resolve(ctx context.Context, code string) (decimal.Decimal, error) {
	normalized := NormalizePromoCode(code)
	if normalized == "" {
		return decimal.Zero, models.ErrPromoEmpty
	}

	if rate, ok := r.cache.Get(normalized); ok {
		return rate, nil
	}

	if r.remote != nil {
		rate, err := r.remote.CheckPromo(ctx, normalized)
		switch {
		case err == nil:
			r.cache.Set(normalized, rate)
			return rate, nil
		case errors.Is(err, models.ErrPromoRejected):
			return decimal.Zero, err
		default:
			r.logger.Warn("remote promo validation unavailable, using local table",
				zap.String("code", normalized),
				zap.Error(err),
			)
		}
	}

	rate, ok := r.codes[normalized]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", models.ErrPromoRejected, normalized)
	}
	return rate, nil
}

// Codes returns a copy of the local table
func (r *PromoResolver) Codes() map[string]decimal.Decimal {
	codes := make(map[string]decimal.Decimal, len(r.codes))
	for code, rate := range r.codes {
		codes[code] = rate
	}
	return codes
}
