package readiness

import "net/http"

// Prober is the outbound port used to reach downstream targets.
// *httpclient.Client satisfies it.
type Prober interface {
	Do(req *http.Request) (*http.Response, error)
}
