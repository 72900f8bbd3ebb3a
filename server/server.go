// Package server adapts the wipecheck service to its HTTP surface.
package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	wipecheck "github.com/wipecheck/wipecheck"
	"github.com/wipecheck/wipecheck/logger"
	"github.com/wipecheck/wipecheck/types"
)

type Server struct {
	svc *wipecheck.Service
	log logger.Logger
}

func New(svc *wipecheck.Service, log logger.Logger) *Server {
	if log == nil {
		log = logger.NoopLogger{}
	}

	return &Server{svc: svc, log: log}
}

// Router wires all routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc(RouteHealth, s.handleHealth).Methods(http.MethodGet)
	r.Handle(RouteMetrics, promhttp.Handler()).Methods(http.MethodGet)

	r.HandleFunc(RouteCheck, s.handleIssue).Methods(http.MethodPost)
	r.HandleFunc(RouteCheck, s.handleRedeem).Methods(http.MethodGet)
	r.HandleFunc(RoutePay, s.handleRecordPayment).Methods(http.MethodPost)
	r.HandleFunc(RouteForward, s.handleForward).Methods(http.MethodPost)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": wipecheck.Version,
	})
}

// POST /api/check: submit a profile, get the 402 payment challenge.
func (s *Server) handleIssue(w http.ResponseWriter, r *http.Request) {
	var sub types.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeError(w, http.StatusBadRequest, types.ErrBadRequest, "invalid JSON payload", nil)
		return
	}

	pc, err := s.svc.Issue(r.Context(), sub)
	if err != nil {
		s.respondError(w, err)
		return
	}

	w.Header().Set(types.PaymentRequiredHeader, "true")
	writeJSON(w, http.StatusPaymentRequired, pc)
}

// GET /api/check?checkId=...: redeem a paid challenge for the report.
func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	checkID := r.URL.Query().Get("checkId")

	rep, err := s.svc.Redeem(r.Context(), checkID)
	if err != nil {
		s.respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rep)
}

type recordPaymentRequest struct {
	CheckID string `json:"checkId"`
	TxRef   string `json:"txRef,omitempty"`
}

type recordPaymentResponse struct {
	OK bool `json:"ok"`
}

// POST /api/pay: record an out-of-band payment for a challenge.
func (s *Server) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	var req recordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, types.ErrBadRequest, "invalid JSON payload", nil)
		return
	}

	if _, err := s.svc.RecordPayment(r.Context(), req.CheckID, req.TxRef); err != nil {
		s.respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, recordPaymentResponse{OK: true})
}

// POST /api/x402-pay: relay a payment initiation to an upstream
// processor.
func (s *Server) handleForward(w http.ResponseWriter, r *http.Request) {
	var req types.ForwardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, types.ErrBadRequest, "invalid JSON payload", nil)
		return
	}

	res, err := s.svc.Forward(r.Context(), &req)
	if err != nil {
		s.respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// respondError translates service errors into HTTP replies. A
// PAYMENT_REQUIRED error re-serves the 402 payload quoted at issuance
// so retrying clients always see identical terms.
func (s *Server) respondError(w http.ResponseWriter, err error) {
	var svcErr *types.Error
	if !errors.As(err, &svcErr) {
		s.log.Error("unexpected handler error", map[string]any{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, types.ErrInternal, "unexpected error", nil)
		return
	}

	if svcErr.Code == types.ErrPaymentRequired {
		if pc, ok := svcErr.Data.(*types.PaymentChallenge); ok {
			w.Header().Set(types.PaymentRequiredHeader, "true")
			writeJSON(w, http.StatusPaymentRequired, pc)
			return
		}
	}

	writeError(w, statusFor(svcErr.Code), svcErr.Code, svcErr.Message, svcErr.Data)
}
