package server

const (
	// Health
	RouteHealth  = "/health"
	RouteMetrics = "/metrics"

	// Challenge lifecycle
	RouteCheck   = "/api/check"
	RoutePay     = "/api/pay"
	RouteForward = "/api/x402-pay"
)
