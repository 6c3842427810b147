// Package metrics registers the Prometheus collectors of the auth service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LoginAttempts counts login requests by outcome: success, failure,
	// rate_limited, error.
	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sabia_auth",
		Name:      "login_attempts_total",
		Help:      "Login attempts by outcome.",
	}, []string{"outcome"})

	// SessionsCreated counts sessions issued at login.
	SessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sabia_auth",
		Name:      "sessions_created_total",
		Help:      "Sessions created.",
	})

	// SessionsDestroyed counts sessions removed, by reason: logout,
	// role_change.
	SessionsDestroyed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sabia_auth",
		Name:      "sessions_destroyed_total",
		Help:      "Sessions destroyed by reason.",
	}, []string{"reason"})

	// AuthzDenied counts requests rejected by the role middleware.
	AuthzDenied = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sabia_auth",
		Name:      "authorization_denied_total",
		Help:      "Requests rejected with 403 by the role middleware.",
	})
)
