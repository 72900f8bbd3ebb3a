// Package forward relays payment-initiation requests to an upstream
// processor. It never touches challenge state; the caller reports a
// successful result to the recorder separately.
package forward

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/wipecheck/wipecheck/logger"
	"github.com/wipecheck/wipecheck/types"
)

// DefaultTimeout bounds the upstream call.
const DefaultTimeout = 30 * time.Second

// maxUpstreamBody caps how much of an upstream reply is read back.
const maxUpstreamBody = 1 << 20

// Forwarder is a pure relay to an upstream payment endpoint.
type Forwarder struct {
	client  *http.Client
	timeout time.Duration
	log     logger.Logger
}

func New(timeout time.Duration, log logger.Logger) *Forwarder {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	if log == nil {
		log = logger.NoopLogger{}
	}

	return &Forwarder{
		client:  &http.Client{},
		timeout: timeout,
		log:     log,
	}
}

// Forward posts the payment parameters to the upstream endpoint and
// passes its reply through. A definite upstream rejection surfaces as
// UPSTREAM_PAYMENT_FAILED with the upstream body attached; any
// network-level fault (timeout, DNS, reset) surfaces as INTERNAL_ERROR
// because the outcome is unknown.
func (f *Forwarder) Forward(ctx context.Context, req *types.ForwardRequest) (*types.ForwardResult, error) {
	if req == nil || req.PaymentEndpoint == "" {
		return nil, &types.Error{
			Code:    types.ErrBadRequest,
			Message: "payment_endpoint required",
		}
	}

	if req.Canonicalize() {
		f.log.Warn("deprecated pay_to field used, treating as receiver", map[string]any{
			"endpoint": req.PaymentEndpoint,
		})
	}

	body, err := json.Marshal(map[string]string{
		"amount":   req.Amount,
		"receiver": req.Receiver,
		"network":  req.Network,
		"currency": req.Currency,
	})
	if err != nil {
		return nil, &types.Error{
			Code:    types.ErrInternal,
			Message: "failed to encode upstream request",
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, req.PaymentEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &types.Error{
			Code:    types.ErrBadRequest,
			Message: fmt.Sprintf("invalid payment_endpoint: %v", err),
		}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(httpReq)
	if err != nil {
		f.log.Error("upstream payment call failed", map[string]any{
			"endpoint": req.PaymentEndpoint,
			"error":    err.Error(),
		})
		return nil, &types.Error{
			Code:    types.ErrInternal,
			Message: "could not reach upstream payment endpoint",
		}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamBody))
	if err != nil {
		return nil, &types.Error{
			Code:    types.ErrInternal,
			Message: "failed to read upstream response",
		}
	}

	// The status code is the authoritative signal; a non-JSON body
	// degrades to an empty object rather than failing the call.
	upstream := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &upstream); err != nil {
			upstream = map[string]any{}
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		f.log.Warn("upstream payment rejected", map[string]any{
			"endpoint": req.PaymentEndpoint,
			"status":   resp.StatusCode,
		})
		return nil, &types.Error{
			Code:    types.ErrUpstreamPayment,
			Message: fmt.Sprintf("upstream payment failed with status %d", resp.StatusCode),
			Data:    upstream,
		}
	}

	return &types.ForwardResult{OK: true, Upstream: upstream}, nil
}
