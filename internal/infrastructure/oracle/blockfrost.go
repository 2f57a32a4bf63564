package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"

	"github.com/nft-voting-api/internal/domain"
	"github.com/nft-voting-api/internal/pkg/cardano"
)

const (
	blockfrostPageSize = 100
	blockfrostMaxPages = 50
)

// Blockfrost reads the UTXOs at a wallet address from the Blockfrost API.
type Blockfrost struct {
	client   *http.Client
	baseURL  string
	apiKey   string
	policyID string
}

func NewBlockfrost(client *http.Client, baseURL, apiKey, policyID string) *Blockfrost {
	return &Blockfrost{
		client:   client,
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		policyID: policyID,
	}
}

func (b *Blockfrost) Name() domain.EligibilitySource { return domain.SourceBlockfrost }

type blockfrostUTXO struct {
	Amount []struct {
		Unit     string `json:"unit"`
		Quantity string `json:"quantity"`
	} `json:"amount"`
}

func (b *Blockfrost) Check(ctx context.Context, id domain.Identity) (*domain.EligibilityResult, error) {
	if b.apiKey == "" || b.baseURL == "" || b.policyID == "" {
		return nil, unknown(b.Name(), "not configured")
	}
	if id.WalletAddress == "" {
		return nil, unknown(b.Name(), "no wallet address")
	}
	addr, err := cardano.ParseAddress(id.WalletAddress)
	if err != nil {
		return nil, unknown(b.Name(), "%v", err)
	}

	totals := map[string]*big.Int{}
	var order []string
	for page := 1; page <= blockfrostMaxPages; page++ {
		utxos, found, err := b.fetchPage(ctx, addr, page)
		if err != nil {
			return nil, err
		}
		if !found {
			// Address never seen on chain.
			break
		}
		for _, u := range utxos {
			for _, a := range u.Amount {
				if !strings.HasPrefix(a.Unit, b.policyID) {
					continue
				}
				q, ok := parseQuantity(a.Quantity)
				if !ok {
					return nil, unknown(b.Name(), "bad quantity %q", a.Quantity)
				}
				if totals[a.Unit] == nil {
					totals[a.Unit] = new(big.Int)
					order = append(order, a.Unit)
				}
				totals[a.Unit].Add(totals[a.Unit], q)
			}
		}
		if len(utxos) < blockfrostPageSize {
			break
		}
	}

	sum := new(big.Int)
	assets := make([]domain.Asset, 0, len(order))
	for _, unit := range order {
		sum.Add(sum, totals[unit])
		assets = append(assets, newAsset(unit, totals[unit].String()))
	}
	return resultFromAssets(b.Name(), b.policyID, clampCount(sum), assets), nil
}

// fetchPage returns found=false on 404.
func (b *Blockfrost) fetchPage(ctx context.Context, addr string, page int) ([]blockfrostUTXO, bool, error) {
	u := fmt.Sprintf("%s/addresses/%s/utxos?count=%d&page=%d", b.baseURL, url.PathEscape(addr), blockfrostPageSize, page)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, false, unknown(b.Name(), "%v", err)
	}
	req.Header.Set("project_id", b.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, false, unknown(b.Name(), "%v", err)
	}
	defer drain(resp.Body)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, false, unknown(b.Name(), "status %d", resp.StatusCode)
	}
	var utxos []blockfrostUTXO
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&utxos); err != nil {
		return nil, false, unknown(b.Name(), "decode: %v", err)
	}
	return utxos, true, nil
}
