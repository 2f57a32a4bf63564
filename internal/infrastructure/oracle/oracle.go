// Package oracle answers whether an identity holds NFTs under the target
// policy by asking external chain indexers and the NMKR purchase API.
//
// Each checker reports one of three outcomes: a result with NFTCount > 0
// (eligible), a result with NFTCount == 0 (confirmed ineligible), or ErrUnknown
// when the source could not answer.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/big"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/nft-voting-api/internal/domain"
	"github.com/nft-voting-api/internal/pkg/cardano"
	"github.com/nft-voting-api/internal/pkg/metrics"
)

// ErrUnknown means the source could not give an answer: not configured,
// unreachable, non-success status, or an undecodable body.
var ErrUnknown = errors.New("ownership unknown")

// maxBodyBytes caps how much of an upstream response is read.
const maxBodyBytes = 8 << 20

type Checker interface {
	Name() domain.EligibilitySource
	Check(ctx context.Context, id domain.Identity) (*domain.EligibilityResult, error)
}

// HTTPOptions bounds every upstream call.
type HTTPOptions struct {
	Timeout      time.Duration
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
}

// NewHTTPClient returns a client with a per-attempt timeout that retries
// connection errors, 429 and 5xx responses at most opts.RetryMax times.
func NewHTTPClient(opts HTTPOptions) *http.Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = opts.RetryMax
	if opts.RetryWaitMin > 0 {
		rc.RetryWaitMin = opts.RetryWaitMin
	}
	if opts.RetryWaitMax > 0 {
		rc.RetryWaitMax = opts.RetryWaitMax
	}
	rc.HTTPClient.Timeout = opts.Timeout
	rc.Logger = slog.Default()
	return rc.StandardClient()
}

func unknown(source domain.EligibilitySource, format string, args ...any) error {
	return fmt.Errorf("%s: %s: %w", source, fmt.Sprintf(format, args...), ErrUnknown)
}

// drain discards what is left of a body so the connection can be reused.
func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, maxBodyBytes))
	_ = body.Close()
}

// parseQuantity reads a non-negative decimal token quantity.
func parseQuantity(s string) (*big.Int, bool) {
	q, ok := new(big.Int).SetString(s, 10)
	if !ok || q.Sign() < 0 {
		return nil, false
	}
	return q, true
}

// clampCount converts a holding total to int64, saturating at MaxInt64.
func clampCount(n *big.Int) int64 {
	if !n.IsInt64() {
		return math.MaxInt64
	}
	return n.Int64()
}

// resultFromAssets builds a result from matched holdings.
func resultFromAssets(source domain.EligibilitySource, policyID string, count int64, assets []domain.Asset) *domain.EligibilityResult {
	return &domain.EligibilityResult{
		Eligible: count > 0,
		NFTCount: count,
		PolicyID: policyID,
		Source:   source,
		Assets:   assets,
	}
}

// newAsset fills in the decoded name and CIP-14 fingerprint for a unit.
func newAsset(unit, quantity string) domain.Asset {
	policy, nameHex, _ := cardano.SplitUnit(unit)
	return domain.Asset{
		Unit:        unit,
		PolicyID:    policy,
		AssetName:   cardano.AssetName(nameHex),
		Quantity:    quantity,
		Fingerprint: cardano.Fingerprint(policy, nameHex),
	}
}

// Chain asks each checker in order; the first answer other than ErrUnknown
// wins. When every checker is unknown the identity is reported ineligible
// with Source none.
type Chain struct {
	checkers []Checker
	policyID string
	metrics  *metrics.Metrics
}

func NewChain(policyID string, m *metrics.Metrics, checkers ...Checker) *Chain {
	return &Chain{checkers: checkers, policyID: policyID, metrics: m}
}

// Check returns the first definite result and whether any source answered.
func (c *Chain) Check(ctx context.Context, id domain.Identity) (*domain.EligibilityResult, bool) {
	for _, ch := range c.checkers {
		res, err := ch.Check(ctx, id)
		if err != nil {
			slog.Warn("ownership check unavailable", "source", ch.Name(), "err", err)
			c.metrics.OracleCheck(string(ch.Name()), metrics.OutcomeUnknown)
			continue
		}
		outcome := metrics.OutcomeIneligible
		if res.Eligible {
			outcome = metrics.OutcomeEligible
		}
		c.metrics.OracleCheck(string(ch.Name()), outcome)
		return res, true
	}
	return &domain.EligibilityResult{PolicyID: c.policyID, Source: domain.SourceNone}, false
}
