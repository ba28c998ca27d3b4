package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ticket-storefront/internal/models"
)

func TestPromoResolver_DefaultTable(t *testing.T) {
	resolver := NewPromoResolver(nil, nil, nil)
	ctx := context.Background()

	tests := []struct {
		name     string
		code     string
		wantRate string
		wantErr  error
	}{
		{name: "rock", code: "ROCK2024", wantRate: "0.10"},
		{name: "welcome lower case", code: "welcome10", wantRate: "0.10"},
		{name: "vip with whitespace", code: "  vip20 ", wantRate: "0.20"},
		{name: "unknown", code: "FREE100", wantErr: models.ErrPromoRejected},
		{name: "empty", code: "", wantErr: models.ErrPromoEmpty},
		{name: "blank", code: "   ", wantErr: models.ErrPromoEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rate, err := resolver.Resolve(ctx, tt.code)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.ErrorIs(t, err, models.ErrPromoRejected)
				return
			}
			require.NoError(t, err)
			assert.True(t, rate.Equal(dec(tt.wantRate)), "rate = %s", rate)
		})
	}
}

func TestPromoResolver_Idempotent(t *testing.T) {
	resolver := NewPromoResolver(nil, nil, nil)

	first, err := resolver.Resolve(context.Background(), "ROCK2024")
	require.NoError(t, err)
	second, err := resolver.Resolve(context.Background(), "rock2024")
	require.NoError(t, err)
	assert.True(t, first.Equal(second))
}

func TestPromoResolver_Remote(t *testing.T) {
	ctx := context.Background()

	t.Run("accepted and cached", func(t *testing.T) {
		remote := &MockPromoChecker{}
		remote.On("CheckPromo", mock.Anything, "SUMMER30").Return(dec("0.30"), nil).Once()
		resolver := NewPromoResolver(nil, remote, nil)

		rate, err := resolver.Resolve(ctx, "summer30")
		require.NoError(t, err)
		assert.True(t, rate.Equal(dec("0.30")))

		rate, err = resolver.Resolve(ctx, "SUMMER30")
		require.NoError(t, err)
		assert.True(t, rate.Equal(dec("0.30")))

		remote.AssertNumberOfCalls(t, "CheckPromo", 1)
	})

	t.Run("rejection is final", func(t *testing.T) {
		remote := &MockPromoChecker{}
		remote.On("CheckPromo", mock.Anything, "ROCK2024").
			Return(decimal.Zero, errors.Join(models.ErrPromoRejected, errors.New("expired")))
		resolver := NewPromoResolver(nil, remote, nil)

		_, err := resolver.Resolve(ctx, "ROCK2024")
		assert.ErrorIs(t, err, models.ErrPromoRejected)
	})

	t.Run("unavailable falls back to local table", func(t *testing.T) {
		remote := &MockPromoChecker{}
		remote.On("CheckPromo", mock.Anything, "VIP20").Return(decimal.Zero, errors.New("connection refused"))
		remote.On("CheckPromo", mock.Anything, "NOPE").Return(decimal.Zero, errors.New("connection refused"))
		resolver := NewPromoResolver(nil, remote, nil)

		rate, err := resolver.Resolve(ctx, "VIP20")
		require.NoError(t, err)
		assert.True(t, rate.Equal(dec("0.20")))

		_, err = resolver.Resolve(ctx, "nope")
		assert.ErrorIs(t, err, models.ErrPromoRejected)
	})

	t.Run("empty code never reaches remote", func(t *testing.T) {
		remote := &MockPromoChecker{}
		resolver := NewPromoResolver(nil, remote, nil)

		_, err := resolver.Resolve(ctx, " ")
		assert.ErrorIs(t, err, models.ErrPromoEmpty)
		remote.AssertNotCalled(t, "CheckPromo", mock.Anything, mock.Anything)
	})
}

func TestParsePromoCodes(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		want    map[string]string
		wantErr bool
	}{
		{
			name: "valid table",
			yaml: "codes:\n  welcome10: 0.10\n  VIP20: 0.2\n",
			want: map[string]string{"WELCOME10": "0.1", "VIP20": "0.2"},
		},
		{name: "no codes", yaml: "codes: {}\n", wantErr: true},
		{name: "rate above one", yaml: "codes:\n  ALL: 1.5\n", wantErr: true},
		{name: "zero rate", yaml: "codes:\n  NONE: 0\n", wantErr: true},
		{name: "not yaml", yaml: "codes: [", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			codes, err := ParsePromoCodes([]byte(tt.yaml))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Len(t, codes, len(tt.want))
			for code, rate := range tt.want {
				assert.True(t, codes[code].Equal(dec(rate)), "%s = %s", code, codes[code])
			}
		})
	}
}

func TestLoadPromoCodes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "promo.yaml")
	require.NoError(t, os.WriteFile(path, []byte("codes:\n  SPRING15: 0.15\n"), 0o600))

	codes, err := LoadPromoCodes(path)
	require.NoError(t, err)

	resolver := NewPromoResolver(codes, nil, nil)
	rate, err := resolver.Resolve(context.Background(), "spring15")
	require.NoError(t, err)
	assert.True(t, rate.Equal(dec("0.15")))

	_, err = resolver.Resolve(context.Background(), "ROCK2024")
	assert.ErrorIs(t, err, models.ErrPromoRejected)

	_, err = LoadPromoCodes(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
