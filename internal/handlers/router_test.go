package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/aulaplatform/aulaledger/internal/logger"
	"github.com/aulaplatform/aulaledger/internal/repository/postgres"
	"github.com/aulaplatform/aulaledger/internal/service/ledger"
	"github.com/aulaplatform/aulaledger/internal/service/progress"
	"github.com/aulaplatform/aulaledger/internal/service/rates"
	"github.com/aulaplatform/aulaledger/internal/service/settlement"
	"github.com/aulaplatform/aulaledger/internal/service/stats"
	"github.com/aulaplatform/aulaledger/internal/testutil"
)

func TestRouter(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	// Progress collaborator that reports 250 AulaCoins for everyone
	progressSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"student_id": "any", "aula_coins": 250}`))
	}))
	t.Cleanup(progressSrv.Close)

	// Run http server over production services; no Redis configured,
	// the wallet cache degrades to a permanent miss
	withTx := func(t *testing.T, fn func(url string)) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			storage := postgres.NewStorage(tx)
			ledgerService := ledger.NewService(storage, rates.NewProvider(storage.Rate()))
			settlementService := settlement.NewService(storage, ledgerService, nil)
			statsService := stats.NewService(storage.Transaction())
			seeder := progress.NewSeeder(progress.NewClient(progressSrv.URL, nil), ledgerService, nil)

			h := NewRouter(ledgerService, settlementService, statsService, seeder, nil, logger.NewNoOpLogger())

			srv := httptest.NewServer(h)
			defer srv.Close()

			fn(srv.URL)
		})
	}

	post := func(t *testing.T, url string, body string) (int, string) {
		t.Helper()

		resp, err := http.Post(url, "application/json", strings.NewReader(body))
		require.NoError(t, err)
		raw, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		return resp.StatusCode, string(raw)
	}

	get := func(t *testing.T, url string) (int, string) {
		t.Helper()

		resp, err := http.Get(url)
		require.NoError(t, err)
		raw, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		return resp.StatusCode, string(raw)
	}

	t.Run("get wallet creates it lazily", func(t *testing.T) {
		withTx(t, func(url string) {
			code, body := get(t, url+"/api/students/student-1/wallet")

			require.Equalf(t, http.StatusOK, code, "not expected code. Body: %s", body)

			var wallet map[string]any
			require.NoError(t, json.Unmarshal([]byte(body), &wallet))
			require.Equal(t, "student-1", wallet["student_id"])
			require.EqualValues(t, 0, wallet["balance_aula_coins"])
			require.Equal(t, "bronze", wallet["wallet_level"])
		})
	})

	t.Run("earn", func(t *testing.T) {
		withTx(t, func(url string) {
			code, body := post(t, url+"/api/students/student-1/earn", `
				{
					"currency": "aula_coins",
					"amount": 100,
					"type": "earn_quiz",
					"description": "quiz reward"
				}`)

			require.Equalf(t, http.StatusOK, code, "not expected code. Body: %s", body)

			var wallet map[string]any
			require.NoError(t, json.Unmarshal([]byte(body), &wallet))
			require.EqualValues(t, 100, wallet["balance_aula_coins"])
			require.EqualValues(t, 100, wallet["total_earned_aula_coins"])
		})
	})

	t.Run("earn with unknown currency", func(t *testing.T) {
		withTx(t, func(url string) {
			code, body := post(t, url+"/api/students/student-1/earn", `
				{
					"currency": "doubloons",
					"amount": 100,
					"type": "earn_quiz"
				}`)

			require.Equal(t, http.StatusUnprocessableEntity, code)
			require.Contains(t, body, "validation_failed")
			require.Contains(t, body, "currency")
		})
	})

	t.Run("earn with malformed body", func(t *testing.T) {
		withTx(t, func(url string) {
			code, body := post(t, url+"/api/students/student-1/earn", `{"currency": `)

			require.Equal(t, http.StatusBadRequest, code)
			require.Contains(t, body, "decoding_failed")
		})
	})

	t.Run("spend", func(t *testing.T) {
		withTx(t, func(url string) {
			code, body := post(t, url+"/api/students/student-1/earn", `
				{"currency": "aula_coins", "amount": 100, "type": "earn_quiz"}`)
			require.Equalf(t, http.StatusOK, code, "not expected code. Body: %s", body)

			t.Run("within balance", func(t *testing.T) {
				code, body := post(t, url+"/api/students/student-1/spend", `
					{"currency": "aula_coins", "amount": 40, "type": "spend_purchase"}`)

				require.Equalf(t, http.StatusOK, code, "not expected code. Body: %s", body)

				var wallet map[string]any
				require.NoError(t, json.Unmarshal([]byte(body), &wallet))
				require.EqualValues(t, 60, wallet["balance_aula_coins"])
			})

			t.Run("over balance", func(t *testing.T) {
				code, body := post(t, url+"/api/students/student-1/spend", `
					{"currency": "aula_coins", "amount": 1000, "type": "spend_purchase"}`)

				require.Equal(t, http.StatusPaymentRequired, code)
				require.Contains(t, body, "Insufficient balance")
			})
		})
	})

	t.Run("convert", func(t *testing.T) {
		withTx(t, func(url string) {
			code, body := post(t, url+"/api/students/student-1/earn", `
				{"currency": "aula_coins", "amount": 100, "type": "earn_quiz"}`)
			require.Equalf(t, http.StatusOK, code, "not expected code. Body: %s", body)

			code, body = post(t, url+"/api/students/student-1/convert", `
				{"from_currency": "aula_coins", "amount": 100}`)

			require.Equalf(t, http.StatusOK, code, "not expected code. Body: %s", body)

			var wallet map[string]any
			require.NoError(t, json.Unmarshal([]byte(body), &wallet))
			require.EqualValues(t, 0, wallet["balance_aula_coins"])
			require.EqualValues(t, 10, wallet["balance_cripto_aula"])
		})
	})

	t.Run("transactions", func(t *testing.T) {
		withTx(t, func(url string) {
			code, body := post(t, url+"/api/students/student-1/earn", `
				{"currency": "aula_coins", "amount": 100, "type": "earn_quiz"}`)
			require.Equalf(t, http.StatusOK, code, "not expected code. Body: %s", body)
			code, body = post(t, url+"/api/students/student-1/spend", `
				{"currency": "aula_coins", "amount": 40, "type": "spend_purchase", "reference_id": "listing-9"}`)
			require.Equalf(t, http.StatusOK, code, "not expected code. Body: %s", body)

			t.Run("full list", func(t *testing.T) {
				code, body := get(t, url+"/api/students/student-1/transactions")

				require.Equal(t, http.StatusOK, code)

				var list []map[string]any
				require.NoError(t, json.Unmarshal([]byte(body), &list))
				require.Len(t, list, 2)
				require.Equal(t, "spend_purchase", list[0]["type"], "most recent entry should come first")
				require.EqualValues(t, -40, list[0]["amount"])
				require.EqualValues(t, 60, list[0]["balance_after"])
				require.Equal(t, "listing-9", list[0]["reference_id"])
			})

			t.Run("filtered by type", func(t *testing.T) {
				code, body := get(t, url+"/api/students/student-1/transactions?type=earn_quiz")

				require.Equal(t, http.StatusOK, code)

				var list []map[string]any
				require.NoError(t, json.Unmarshal([]byte(body), &list))
				require.Len(t, list, 1)
				require.Equal(t, "earn_quiz", list[0]["type"])
			})

			t.Run("bad limit", func(t *testing.T) {
				code, _ := get(t, url+"/api/students/student-1/transactions?limit=nope")

				require.Equal(t, http.StatusBadRequest, code)
			})
		})
	})

	t.Run("statistics", func(t *testing.T) {
		withTx(t, func(url string) {
			code, body := post(t, url+"/api/students/student-1/earn", `
				{"currency": "aula_coins", "amount": 100, "type": "earn_quiz"}`)
			require.Equalf(t, http.StatusOK, code, "not expected code. Body: %s", body)

			code, body = get(t, url+"/api/students/student-1/statistics")

			require.Equal(t, http.StatusOK, code)
			require.JSONEq(t, `
				{
					"total_transactions": 1,
					"earn_count": 1,
					"spend_count": 0,
					"conversion_count": 0,
					"preferred_currency": "aula_coins"
				}`, body)
		})
	})

	t.Run("seed wallet", func(t *testing.T) {
		withTx(t, func(url string) {
			code, body := post(t, url+"/api/students/student-1/wallet/seed", "{}")

			require.Equalf(t, http.StatusOK, code, "not expected code. Body: %s", body)

			var wallet map[string]any
			require.NoError(t, json.Unmarshal([]byte(body), &wallet))
			require.EqualValues(t, 250, wallet["balance_aula_coins"])
		})
	})

	t.Run("settle and refund", func(t *testing.T) {
		withTx(t, func(url string) {
			code, body := post(t, url+"/api/students/buyer-1/earn", `
				{"currency": "aula_coins", "amount": 150, "type": "earn_quiz"}`)
			require.Equalf(t, http.StatusOK, code, "not expected code. Body: %s", body)

			code, body = post(t, url+"/api/payments/settle", `
				{
					"listing_id": "listing-1",
					"buyer_id": "buyer-1",
					"seller_id": "seller-1",
					"amount_aula_coins": 100,
					"fee_amount": 10
				}`)

			require.Equalf(t, http.StatusOK, code, "not expected code. Body: %s", body)

			var payment map[string]any
			require.NoError(t, json.Unmarshal([]byte(body), &payment))
			require.Equal(t, "completed", payment["status"])
			require.Equal(t, "aula_coins", payment["fee_currency"], "fee currency should default to aula_coins")

			code, body = post(t, url+"/api/payments/"+payment["id"].(string)+"/refund", "")

			require.Equalf(t, http.StatusOK, code, "not expected code. Body: %s", body)
			require.NoError(t, json.Unmarshal([]byte(body), &payment))
			require.Equal(t, "refunded", payment["status"])

			code, body = get(t, url+"/api/students/buyer-1/wallet")
			require.Equal(t, http.StatusOK, code)
			var wallet map[string]any
			require.NoError(t, json.Unmarshal([]byte(body), &wallet))
			require.EqualValues(t, 150, wallet["balance_aula_coins"], "refund should make the buyer whole")
		})
	})

	t.Run("settle with insufficient buyer balance", func(t *testing.T) {
		withTx(t, func(url string) {
			code, body := post(t, url+"/api/payments/settle", `
				{
					"listing_id": "listing-1",
					"buyer_id": "buyer-1",
					"seller_id": "seller-1",
					"amount_aula_coins": 100
				}`)

			require.Equal(t, http.StatusPaymentRequired, code)
			require.Contains(t, body, "Insufficient buyer balance")
		})
	})

	t.Run("refund unknown payment", func(t *testing.T) {
		withTx(t, func(url string) {
			code, _ := post(t, url+"/api/payments/1b9cf31e-88b8-4a51-a1f0-5bd2af28b0fe/refund", "")

			require.Equal(t, http.StatusNotFound, code)
		})
	})

	t.Run("refund with malformed payment id", func(t *testing.T) {
		withTx(t, func(url string) {
			code, _ := post(t, url+"/api/payments/not-a-uuid/refund", "")

			require.Equal(t, http.StatusBadRequest, code)
		})
	})
}
