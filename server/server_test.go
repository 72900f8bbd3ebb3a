package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	wipecheck "github.com/wipecheck/wipecheck"
	"github.com/wipecheck/wipecheck/store"
	"github.com/wipecheck/wipecheck/types"
)

func testTerms() types.PaymentTerms {
	return types.PaymentTerms{
		Amount:    decimal.RequireFromString("0.01"),
		Token:     "SOL",
		Network:   string(types.NetworkSolanaDevnet),
		Recipient: "4Nd1mYQJkSmRsCqbNkYjzSzQnYt5DXiUETXggkfvFmMj",
	}
}

func newTestServer(t *testing.T, opts ...wipecheck.Option) http.Handler {
	t.Helper()

	st := store.NewMemoryStore(0)
	svc, err := wipecheck.New(st, testTerms(), opts...)
	require.NoError(t, err)
	t.Cleanup(svc.Close)

	return New(svc, nil).Router()
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func submit(t *testing.T, h http.Handler, sub types.Submission) types.PaymentChallenge {
	t.Helper()

	rec := doJSON(t, h, http.MethodPost, RouteCheck, sub)
	require.Equal(t, http.StatusPaymentRequired, rec.Code)
	require.Equal(t, "true", rec.Header().Get(types.PaymentRequiredHeader))
	return decode[types.PaymentChallenge](t, rec)
}

func pay(t *testing.T, h http.Handler, checkID string) {
	t.Helper()

	rec := doJSON(t, h, http.MethodPost, RoutePay, map[string]string{"checkId": checkID})
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, decode[recordPaymentResponse](t, rec).OK)
}

func TestHealth(t *testing.T) {
	h := newTestServer(t)

	rec := doJSON(t, h, http.MethodGet, RouteHealth, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", decode[map[string]string](t, rec)["status"])
}

func TestSubmitReturnsChallenge(t *testing.T) {
	h := newTestServer(t)

	pc := submit(t, h, types.Submission{Name: "Riya", Handle: "@riya", Platform: "tinder", Bio: "hello"})
	require.Equal(t, "payment_required", pc.Status)
	require.Equal(t, types.Protocol, pc.Protocol)
	require.Equal(t, "0.01", pc.Amount)
	require.Equal(t, "SOL", pc.Token)
	require.Equal(t, "solana-devnet", pc.Network)
	require.Len(t, pc.CheckID, 32)
}

func TestSubmitRejectsIncompleteProfile(t *testing.T) {
	h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, RouteCheck, types.Submission{Handle: "@riya"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, types.ErrBadRequest, decode[ErrorResponse](t, rec).Code)
}

func TestSubmitRejectsMalformedJSON(t *testing.T) {
	h := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, RouteCheck, bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRedeemBeforePaymentReServesTerms(t *testing.T) {
	h := newTestServer(t)

	pc := submit(t, h, types.Submission{Name: "Riya", Platform: "tinder"})

	// Premature redemption re-serves the 402 payload with the terms
	// quoted at issuance, byte for byte.
	rec := doJSON(t, h, http.MethodGet, RouteCheck+"?checkId="+pc.CheckID, nil)
	require.Equal(t, http.StatusPaymentRequired, rec.Code)
	require.Equal(t, "true", rec.Header().Get(types.PaymentRequiredHeader))
	require.Equal(t, pc, decode[types.PaymentChallenge](t, rec))
}

func TestPayThenRedeem(t *testing.T) {
	h := newTestServer(t)

	pc := submit(t, h, types.Submission{Name: "Riya", Platform: "tinder"})
	pay(t, h, pc.CheckID)

	rec := doJSON(t, h, http.MethodGet, RouteCheck+"?checkId="+pc.CheckID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rep := decode[types.Report](t, rec)
	require.Equal(t, 60, rep.Score)
	require.Equal(t, types.RiskMedium, rep.Risk)
	require.Contains(t, rep.Reasons, "No public handle provided.")
	require.Contains(t, rep.Reasons, "Bio is too short or missing.")
	require.Equal(t, "Riya", rep.Profile.Name)
}

func TestForgedCheckID(t *testing.T) {
	h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, RoutePay, map[string]string{"checkId": "forged-id-000"})
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, types.ErrNotFound, decode[ErrorResponse](t, rec).Code)

	rec = doJSON(t, h, http.MethodGet, RouteCheck+"?checkId=forged-id-000", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRedeemMissingCheckID(t *testing.T) {
	h := newTestServer(t)

	rec := doJSON(t, h, http.MethodGet, RouteCheck, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCompleteProfileFlow(t *testing.T) {
	h := newTestServer(t)

	pc := submit(t, h, types.Submission{
		Name:     "Sam",
		Handle:   "@sam",
		Platform: "bumble",
		Bio:      "I like hiking and good coffee.",
	})
	pay(t, h, pc.CheckID)

	rec := doJSON(t, h, http.MethodGet, RouteCheck+"?checkId="+pc.CheckID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rep := decode[types.Report](t, rec)
	require.Equal(t, 80, rep.Score)
	require.Equal(t, types.RiskLow, rep.Risk)
	require.Empty(t, rep.Reasons)
}

func TestTelegramBioFlow(t *testing.T) {
	h := newTestServer(t)

	pc := submit(t, h, types.Submission{
		Name:     "Riya",
		Platform: "tinder",
		Bio:      "contact me on telegram",
	})
	pay(t, h, pc.CheckID)

	rec := doJSON(t, h, http.MethodGet, RouteCheck+"?checkId="+pc.CheckID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rep := decode[types.Report](t, rec)
	require.Equal(t, 55, rep.Score)
	require.Equal(t, types.RiskMedium, rep.Risk)
	require.Contains(t, rep.Reasons, "External contact in bio (Telegram).")
	require.Contains(t, rep.Reasons, "No public handle provided.")
}

func TestDoublePaymentIsIdempotent(t *testing.T) {
	h := newTestServer(t)

	pc := submit(t, h, types.Submission{Name: "Riya", Platform: "tinder"})
	pay(t, h, pc.CheckID)
	pay(t, h, pc.CheckID)

	rec := doJSON(t, h, http.MethodGet, RouteCheck+"?checkId="+pc.CheckID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRedeemRepeatableByDefault(t *testing.T) {
	h := newTestServer(t)

	pc := submit(t, h, types.Submission{Name: "Riya", Platform: "tinder"})
	pay(t, h, pc.CheckID)

	first := doJSON(t, h, http.MethodGet, RouteCheck+"?checkId="+pc.CheckID, nil)
	second := doJSON(t, h, http.MethodGet, RouteCheck+"?checkId="+pc.CheckID, nil)
	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, http.StatusOK, second.Code)
	require.JSONEq(t, first.Body.String(), second.Body.String())
}

func TestSingleUseRedemption(t *testing.T) {
	h := newTestServer(t, wipecheck.WithSingleUse())

	pc := submit(t, h, types.Submission{Name: "Riya", Platform: "tinder"})
	pay(t, h, pc.CheckID)

	rec := doJSON(t, h, http.MethodGet, RouteCheck+"?checkId="+pc.CheckID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, RouteCheck+"?checkId="+pc.CheckID, nil)
	require.Equal(t, http.StatusGone, rec.Code)
	require.Equal(t, types.ErrAlreadyRedeemed, decode[ErrorResponse](t, rec).Code)
}

func TestChallengesAreIsolated(t *testing.T) {
	h := newTestServer(t)

	a := submit(t, h, types.Submission{Name: "Riya", Platform: "tinder"})
	b := submit(t, h, types.Submission{Name: "Sam", Platform: "bumble"})
	require.NotEqual(t, a.CheckID, b.CheckID)

	pay(t, h, a.CheckID)

	// Paying one challenge must not unlock another.
	rec := doJSON(t, h, http.MethodGet, RouteCheck+"?checkId="+b.CheckID, nil)
	require.Equal(t, http.StatusPaymentRequired, rec.Code)
}

func TestForwardUpstreamRejectionIsBadGateway(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]any{"error": "declined"})
	}))
	defer upstream.Close()

	h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, RouteForward, map[string]string{
		"payment_endpoint": upstream.URL,
		"amount":           "0.01",
		"receiver":         "0x1111111111111111111111111111111111111111",
	})
	require.Equal(t, http.StatusBadGateway, rec.Code)

	body := decode[ErrorResponse](t, rec)
	require.Equal(t, types.ErrUpstreamPayment, body.Code)
}

func TestForwardSuccess(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"txid": "0xabc"})
	}))
	defer upstream.Close()

	h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, RouteForward, map[string]string{
		"payment_endpoint": upstream.URL,
		"amount":           "0.01",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	res := decode[types.ForwardResult](t, rec)
	require.True(t, res.OK)
	require.Equal(t, "0xabc", res.Upstream["txid"])
}

func TestErrorBodiesCarryRequestID(t *testing.T) {
	h := newTestServer(t)

	rec := doJSON(t, h, http.MethodGet, RouteCheck+"?checkId=forged", nil)
	body := decode[ErrorResponse](t, rec)
	require.NotEmpty(t, body.RequestID)
	require.Contains(t, body.RequestID, "req_")
}
