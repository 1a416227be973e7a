// Package health provides HTTP handlers for liveness and readiness probes.
//
// LivenessHandler is an always-OK endpoint reporting process liveness.
// ReadinessHandler runs a set of named checks (SQLite ping, Redis ping)
// in parallel under a timeout and reports whether the service can accept
// traffic. Both respond with plain text by default and JSON on request
// (Accept header or ?format=json), which keeps them compatible with
// Docker, Kubernetes and plain curl.
//
//	r.Get("/health/live", health.LivenessHandler())
//	r.Get("/health/ready", health.ReadinessHandler(health.Checks{
//	    "sqlite": db.Healthcheck(conn),
//	}))
package health
