package gosettings

import "expvar"

// clientMetrics records Client activity counters, mirroring the shape of
// a peer's exported metrics map: one counter per notable event, exposed
// together under a single expvar.Map so a host can wire it into its own
// monitoring without reaching into Client internals.
type clientMetrics struct {
	requestsSent     expvar.Int
	requestsTimedOut expvar.Int
	framesDropped    expvar.Int
	watchUpdateFail  expvar.Int

	emap *expvar.Map
}

func newClientMetrics() *clientMetrics {
	m := &clientMetrics{emap: new(expvar.Map)}
	m.emap.Set("requests_sent", &m.requestsSent)
	m.emap.Set("requests_timed_out", &m.requestsTimedOut)
	m.emap.Set("frames_dropped", &m.framesDropped)
	m.emap.Set("watch_update_failed", &m.watchUpdateFail)
	return m
}
