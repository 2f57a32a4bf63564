package oracle

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/nft-voting-api/internal/domain"
)

// NMKR counts NFTs under the target policy in a customer's purchase history.
type NMKR struct {
	client   *http.Client
	baseURL  string
	apiKey   string
	policyID string
}

func NewNMKR(client *http.Client, baseURL, apiKey, policyID string) *NMKR {
	return &NMKR{
		client:   client,
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		policyID: policyID,
	}
}

func (n *NMKR) Name() domain.EligibilitySource { return domain.SourceNMKR }

type nmkrCustomer struct {
	Email  string `json:"email"`
	Orders []struct {
		NFTs []struct {
			PolicyID  string `json:"policyId"`
			AssetName string `json:"assetName"`
			Quantity  int64  `json:"quantity"`
		} `json:"nfts"`
	} `json:"orders"`
}

func (n *NMKR) Check(ctx context.Context, id domain.Identity) (*domain.EligibilityResult, error) {
	if n.apiKey == "" || n.baseURL == "" || n.policyID == "" {
		return nil, unknown(n.Name(), "not configured")
	}
	if id.Email == "" {
		return nil, unknown(n.Name(), "no email")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/GetCustomerByEmail/"+url.PathEscape(id.Email), nil)
	if err != nil {
		return nil, unknown(n.Name(), "%v", err)
	}
	req.Header.Set("Authorization", "Bearer "+n.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, unknown(n.Name(), "%v", err)
	}
	defer drain(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, unknown(n.Name(), "status %d", resp.StatusCode)
	}

	var c nmkrCustomer
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&c); err != nil {
		return nil, unknown(n.Name(), "decode: %v", err)
	}

	var count int64
	var assets []domain.Asset
	for _, o := range c.Orders {
		for _, nft := range o.NFTs {
			if nft.PolicyID != n.policyID {
				continue
			}
			q := nft.Quantity
			if q <= 0 {
				q = 1
			}
			count += q
			assets = append(assets, domain.Asset{
				PolicyID:  nft.PolicyID,
				AssetName: nft.AssetName,
				Quantity:  strconv.FormatInt(q, 10),
			})
		}
	}
	return resultFromAssets(n.Name(), n.policyID, count, assets), nil
}
