package observability

import (
	"net/http"
	"strconv"
	"time"
)

// InstrumentTransport wraps an http.RoundTripper to record API metrics:
//   - vzero_api_requests_total: per request with method and status class
//     ("2xx", "4xx", ... or "error" when no response was received)
//   - vzero_api_request_duration_seconds: time until response headers
//
// A nil next uses http.DefaultTransport.
func InstrumentTransport(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		start := time.Now()
		resp, err := next.RoundTrip(req)
		APIRequestDuration.WithLabelValues(req.Method).Observe(time.Since(start).Seconds())

		status := "error"
		if err == nil {
			status = strconv.Itoa(resp.StatusCode/100) + "xx"
		}
		APIRequestsTotal.WithLabelValues(req.Method, status).Inc()
		return resp, err
	})
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
