package rates

import (
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/aulaplatform/aulaledger/internal/apperrors"
	"github.com/aulaplatform/aulaledger/internal/models"
	"github.com/aulaplatform/aulaledger/internal/repository/postgres"
	"github.com/aulaplatform/aulaledger/internal/testutil"
)

func TestRatesProvider(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	inTx := func(t *testing.T, fn func(p *Provider)) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			storage := postgres.NewStorage(tx)
			fn(NewProvider(storage.Rate()))
		})
	}

	t.Run("ActiveRate", func(t *testing.T) {
		t.Run("defaults when nothing is configured", func(t *testing.T) {
			inTx(t, func(p *Provider) {
				toCripto, err := p.ActiveRate(t.Context(), models.CurrencyAulaCoins, models.CurrencyCriptoAula)
				require.NoError(t, err, "missing rate should fall back to the default")
				require.True(t, toCripto.Rate.Equal(decimal.RequireFromString("0.1")))

				toAula, err := p.ActiveRate(t.Context(), models.CurrencyCriptoAula, models.CurrencyAulaCoins)
				require.NoError(t, err)
				require.True(t, toAula.Rate.Equal(decimal.NewFromInt(10)))

				product := toCripto.Rate.Mul(toAula.Rate)
				require.True(t, product.Equal(decimal.NewFromInt(1)), "default rates should be exact inverses")
			})
		})

		t.Run("configured rate wins", func(t *testing.T) {
			inTx(t, func(p *Provider) {
				_, err := p.SetRate(t.Context(), models.CurrencyAulaCoins, models.CurrencyCriptoAula, decimal.RequireFromString("0.25"))
				require.NoError(t, err)

				rate, err := p.ActiveRate(t.Context(), models.CurrencyAulaCoins, models.CurrencyCriptoAula)

				require.NoError(t, err)
				require.True(t, rate.Rate.Equal(decimal.RequireFromString("0.25")))

				// The opposite direction still has no configured rate
				reverse, err := p.ActiveRate(t.Context(), models.CurrencyCriptoAula, models.CurrencyAulaCoins)
				require.NoError(t, err)
				require.True(t, reverse.Rate.Equal(decimal.NewFromInt(10)))
			})
		})

		t.Run("newest rate supersedes the previous one", func(t *testing.T) {
			inTx(t, func(p *Provider) {
				_, err := p.SetRate(t.Context(), models.CurrencyAulaCoins, models.CurrencyCriptoAula, decimal.RequireFromString("0.2"))
				require.NoError(t, err)
				_, err = p.SetRate(t.Context(), models.CurrencyAulaCoins, models.CurrencyCriptoAula, decimal.RequireFromString("0.3"))
				require.NoError(t, err)

				rate, err := p.ActiveRate(t.Context(), models.CurrencyAulaCoins, models.CurrencyCriptoAula)

				require.NoError(t, err)
				require.True(t, rate.Rate.Equal(decimal.RequireFromString("0.3")))
			})
		})

		t.Run("same currency pair", func(t *testing.T) {
			inTx(t, func(p *Provider) {
				_, err := p.ActiveRate(t.Context(), models.CurrencyAulaCoins, models.CurrencyAulaCoins)

				require.ErrorIs(t, err, apperrors.ErrSameCurrency)
			})
		})
	})

	t.Run("SetRate", func(t *testing.T) {
		t.Run("rejects nonpositive rate", func(t *testing.T) {
			inTx(t, func(p *Provider) {
				_, err := p.SetRate(t.Context(), models.CurrencyAulaCoins, models.CurrencyCriptoAula, decimal.Zero)

				require.ErrorIs(t, err, apperrors.ErrInvalidAmount)
			})
		})

		t.Run("rejects same currency", func(t *testing.T) {
			inTx(t, func(p *Provider) {
				_, err := p.SetRate(t.Context(), models.CurrencyCriptoAula, models.CurrencyCriptoAula, decimal.NewFromInt(1))

				require.ErrorIs(t, err, apperrors.ErrSameCurrency)
			})
		})
	})
}
