// Package health runs named readiness checks and serves them over HTTP.
//
//	checks := health.Checks{
//		"storage":  storage.Healthcheck(backend),
//		"postgres": db.Healthcheck(pool),
//	}
//	r.Get("/health/live", health.LivenessHandler())
//	r.Get("/health/ready", health.ReadinessHandler(checks, health.WithLogger(log)))
//
// Checks run in parallel under one shared timeout. Handlers answer in plain
// text unless the client asks for JSON with "Accept: application/json" or
// "?format=json".
package health
