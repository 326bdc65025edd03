package observability

// Metric names and the label keys each one is registered with.
const (
	MObservedCalls           MetricKey = "observed_calls_total"              // name, outcome, error
	MObservedDuration        MetricKey = "observed_duration_seconds"         // name
	MHTTPRequests            MetricKey = "http_requests_total"               // method, route, status
	MHTTPRequestDuration     MetricKey = "http_request_duration_seconds"     // method, route, status
	MExternalRequests        MetricKey = "external_requests_total"           // peer, endpoint, outcome
	MExternalRequestDuration MetricKey = "external_request_duration_seconds" // peer, endpoint
)
