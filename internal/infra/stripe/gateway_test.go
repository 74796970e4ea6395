package stripe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"documind-api/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})         {}
func (nopLogger) Error(string, error, ...interface{}) {}
func (nopLogger) Debug(string, ...interface{})        {}
func (nopLogger) Warn(string, ...interface{})         {}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(2900), toMinorUnits(decimal.RequireFromString("29.00")))
	assert.Equal(t, int64(29000), toMinorUnits(decimal.RequireFromString("290")))
	assert.True(t, fromMinorUnits(900).Equal(decimal.RequireFromString("9.00")))
}

func TestNewGateway_MissingKey(t *testing.T) {
	_, err := NewGateway("", "", nopLogger{})
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
}

func TestGateway_CreateIntent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/payment_intents", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "2900", r.PostForm.Get("amount"))
		assert.Equal(t, "usd", r.PostForm.Get("currency"))
		assert.Equal(t, "true", r.PostForm.Get("automatic_payment_methods[enabled]"))
		assert.Equal(t, "user-1", r.PostForm.Get("metadata[user_id]"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"pi_1","object":"payment_intent","client_secret":"pi_1_secret","amount":2900,"currency":"usd","status":"requires_payment_method","metadata":{"user_id":"user-1"}}`))
	}))
	defer srv.Close()

	g, err := NewGateway("sk_test_123", srv.URL, nopLogger{})
	require.NoError(t, err)

	intent, err := g.CreateIntent(context.Background(), domain.CardIntentRequest{
		Amount:   decimal.RequireFromString("29.00"),
		Currency: "USD",
		Metadata: map[string]string{"user_id": "user-1"},
	})

	require.NoError(t, err)
	assert.Equal(t, "pi_1", intent.ID)
	assert.Equal(t, "pi_1_secret", intent.ClientSecret)
	assert.Equal(t, "USD", intent.Currency)
	assert.True(t, intent.Amount.Equal(decimal.NewFromInt(29)))
}

func TestGateway_GetIntentExpandsCard(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payment_intents/pi_1", r.URL.Path)
		assert.Equal(t, "payment_method", r.URL.Query().Get("expand[0]"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"pi_1","object":"payment_intent","amount":900,"currency":"usd","status":"succeeded",
			"metadata":{"user_id":"user-1"},
			"payment_method":{"id":"pm_1","object":"payment_method","type":"card","card":{"brand":"visa","last4":"4242","exp_month":12,"exp_year":2030}}}`))
	}))
	defer srv.Close()

	g, err := NewGateway("sk_test_123", srv.URL, nopLogger{})
	require.NoError(t, err)

	intent, err := g.GetIntent(context.Background(), "pi_1")

	require.NoError(t, err)
	assert.Equal(t, "succeeded", intent.Status)
	assert.Equal(t, "pm_1", intent.MethodID)
	require.NotNil(t, intent.Card)
	assert.Equal(t, "visa", intent.Card.Brand)
	assert.Equal(t, "4242", intent.Card.Last4)
	assert.Equal(t, 12, intent.Card.ExpMonth)
	assert.Equal(t, 2030, intent.Card.ExpYear)
}
