package http

import (
	"github.com/nft-voting-api/internal/application/auth"
	"github.com/nft-voting-api/internal/application/eligibility"
	"github.com/nft-voting-api/internal/application/user"
	"github.com/nft-voting-api/internal/application/voting"
	jwtinfra "github.com/nft-voting-api/internal/infrastructure/jwt"
	"github.com/nft-voting-api/internal/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// Deps holds the services and infrastructure the router needs.
type Deps struct {
	Auth        auth.Service
	Users       user.Service
	Eligibility eligibility.Service
	Voting      voting.Service
	JWTProvider *jwtinfra.Provider
	Metrics     *metrics.Metrics
	// Gatherer backs /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer
}
