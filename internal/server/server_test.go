package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"basketScope/internal/model"
)

type fakeVerifier struct {
	result  model.VerifyResult
	lastReq model.VerifyRequest
	calls   int
}

func (f *fakeVerifier) Verify(_ context.Context, req model.VerifyRequest) model.VerifyResult {
	f.calls++
	f.lastReq = req
	return f.result
}

func newTestServer(result model.VerifyResult) (*fakeVerifier, http.Handler) {
	verifier := &fakeVerifier{result: result}
	srv := NewServer(Config{ListenAddr: ":0"}, verifier, nil)
	return verifier, srv.Handler()
}

func post(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/baskets/verify", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

const validBody = `{
  "chain_id": 56,
  "deposit_token": "0x55d398326f99059fF775485246999027B3197955",
  "components": [
    {"token": "0x00000000000000000000000000000000000000a1", "weight": "100"}
  ]
}`

func TestHealthz(t *testing.T) {
	_, handler := newTestServer(model.VerifyResult{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestVerifySuccessEnvelope(t *testing.T) {
	factory := common.HexToAddress("0x2D4e10Ee64CCF407C7F765B363348f7F62D2E06e")
	verifier, handler := newTestServer(model.Success(factory, []model.ComponentVerification{
		{
			TokenSymbol:  "AAA",
			TokenAddress: common.HexToAddress("0x00000000000000000000000000000000000000a1"),
			Decimals:     18,
			PricingMode:  model.ModeV2PlusFeed,
			LiquidityUSD: decimal.NewFromInt(50000),
		},
	}))

	rec := post(t, handler, validBody)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, verifier.calls)
	assert.Equal(t, uint64(56), verifier.lastReq.ChainID)
	assert.Equal(t, common.HexToAddress("0x55d398326f99059fF775485246999027B3197955"), verifier.lastReq.DepositToken)
	require.Len(t, verifier.lastReq.Components, 1)
	assert.True(t, verifier.lastReq.Components[0].Weight.Equal(decimal.NewFromInt(100)))

	var envelope map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.JSONEq(t, `"OK"`, string(envelope["status"]))
	assert.JSONEq(t, `true`, string(envelope["ready_for_creation"]))

	var components []map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(envelope["components"], &components))
	require.Len(t, components, 1)
	assert.JSONEq(t, `"V2_PLUS_FEED"`, string(components[0]["pricing_mode"]))
}

func TestVerifyErrorStatusMapping(t *testing.T) {
	cases := []struct {
		reason model.ReasonCode
		status int
	}{
		{model.ReasonInvalidInput, http.StatusBadRequest},
		{model.ReasonNoPoolFound, http.StatusUnprocessableEntity},
		{model.ReasonInsufficientLiquidity, http.StatusUnprocessableEntity},
		{model.ReasonInternalError, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(string(tc.reason), func(t *testing.T) {
			_, handler := newTestServer(model.Failure(&model.VerifyError{
				Reason:  tc.reason,
				Message: "boom",
			}))

			rec := post(t, handler, validBody)

			require.Equal(t, tc.status, rec.Code)
			var envelope errorEnvelope
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
			assert.Equal(t, "ERROR", envelope.Status)
			require.NotNil(t, envelope.Error)
			assert.Equal(t, tc.reason, envelope.Error.Reason)
		})
	}
}

func TestVerifyRejectsMalformedBody(t *testing.T) {
	verifier, handler := newTestServer(model.VerifyResult{})

	rec := post(t, handler, `{"chain_id": `)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, verifier.calls)
}

func TestVerifyRejectsBadAddresses(t *testing.T) {
	verifier, handler := newTestServer(model.VerifyResult{})

	rec := post(t, handler, `{
	  "chain_id": 56,
	  "deposit_token": "not-an-address",
	  "components": [{"token": "0x00000000000000000000000000000000000000a1", "weight": "100"}]
	}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post(t, handler, `{
	  "chain_id": 56,
	  "deposit_token": "0x55d398326f99059fF775485246999027B3197955",
	  "components": [{"token": "zzz", "weight": "100"}]
	}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, 0, verifier.calls)
}

func TestVerifyInsufficientLiquidityCarriesRequiredUSD(t *testing.T) {
	required := decimal.NewFromInt(10000)
	_, handler := newTestServer(model.Failure(&model.VerifyError{
		Reason:      model.ReasonInsufficientLiquidity,
		TokenSymbol: "AAA",
		Message:     "liquidity for AAA is below the required 10000 USD",
		RequiredUSD: &required,
	}))

	rec := post(t, handler, validBody)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var envelope errorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error.RequiredUSD)
	assert.True(t, envelope.Error.RequiredUSD.Equal(required))
}
