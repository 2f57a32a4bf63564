package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"strings"

	"github.com/nft-voting-api/internal/domain"
	"github.com/nft-voting-api/internal/pkg/cardano"
)

// Koios lists the assets at a wallet address from the Koios API. An API key
// is optional on the free tier.
type Koios struct {
	client   *http.Client
	baseURL  string
	apiKey   string
	policyID string
}

func NewKoios(client *http.Client, baseURL, apiKey, policyID string) *Koios {
	return &Koios{
		client:   client,
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		policyID: policyID,
	}
}

func (k *Koios) Name() domain.EligibilitySource { return domain.SourceKoios }

type koiosAsset struct {
	Address     string `json:"address"`
	PolicyID    string `json:"policy_id"`
	AssetName   string `json:"asset_name"`
	Fingerprint string `json:"fingerprint"`
	Quantity    string `json:"quantity"`
}

func (k *Koios) Check(ctx context.Context, id domain.Identity) (*domain.EligibilityResult, error) {
	if k.baseURL == "" || k.policyID == "" {
		return nil, unknown(k.Name(), "not configured")
	}
	if id.WalletAddress == "" {
		return nil, unknown(k.Name(), "no wallet address")
	}
	addr, err := cardano.ParseAddress(id.WalletAddress)
	if err != nil {
		return nil, unknown(k.Name(), "%v", err)
	}

	body, err := json.Marshal(map[string][]string{"_addresses": {addr}})
	if err != nil {
		return nil, unknown(k.Name(), "%v", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, k.baseURL+"/address_assets", bytes.NewReader(body))
	if err != nil {
		return nil, unknown(k.Name(), "%v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if k.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+k.apiKey)
	}

	resp, err := k.client.Do(req)
	if err != nil {
		return nil, unknown(k.Name(), "%v", err)
	}
	defer drain(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, unknown(k.Name(), "status %d", resp.StatusCode)
	}

	var rows []koiosAsset
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&rows); err != nil {
		return nil, unknown(k.Name(), "decode: %v", err)
	}

	sum := new(big.Int)
	var assets []domain.Asset
	for _, r := range rows {
		if r.PolicyID != k.policyID {
			continue
		}
		q, ok := parseQuantity(r.Quantity)
		if !ok {
			return nil, unknown(k.Name(), "bad quantity %q", r.Quantity)
		}
		sum.Add(sum, q)
		a := newAsset(r.PolicyID+r.AssetName, q.String())
		if r.Fingerprint != "" {
			a.Fingerprint = r.Fingerprint
		}
		assets = append(assets, a)
	}
	return resultFromAssets(k.Name(), k.policyID, clampCount(sum), assets), nil
}
