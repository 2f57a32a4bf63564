package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	lcommon "github.com/blinklabs-io/gouroboros/ledger/common"
	"github.com/nft-voting-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPolicy = strings.Repeat("ab", 28)

func testWallet(t *testing.T) string {
	t.Helper()
	addr, err := lcommon.NewAddressFromParts(0x00, 0x01, bytes.Repeat([]byte{0x01}, 28), bytes.Repeat([]byte{0x02}, 28))
	require.NoError(t, err)
	return addr.String()
}

func testClient() *http.Client {
	return NewHTTPClient(HTTPOptions{
		Timeout:      2 * time.Second,
		RetryMax:     1,
		RetryWaitMin: time.Millisecond,
		RetryWaitMax: 5 * time.Millisecond,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// --- Blockfrost ---

func TestBlockfrost_SumsMatchingUnitsAcrossPages(t *testing.T) {
	wallet := testWallet(t)
	unitA := testPolicy + "4e46545f41" // NFT_A
	unitB := testPolicy + "4e46545f42" // NFT_B
	other := strings.Repeat("cd", 28) + "4f"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key", r.Header.Get("project_id"))
		assert.Equal(t, "/addresses/"+wallet+"/utxos", r.URL.Path)
		type utxo struct {
			Amount []map[string]string `json:"amount"`
		}
		switch r.URL.Query().Get("page") {
		case "1":
			page := make([]utxo, 100)
			for i := range page {
				page[i] = utxo{Amount: []map[string]string{{"unit": "lovelace", "quantity": "1000000"}}}
			}
			page[0].Amount = append(page[0].Amount, map[string]string{"unit": unitA, "quantity": "1"})
			page[1].Amount = append(page[1].Amount, map[string]string{"unit": other, "quantity": "5"})
			writeJSON(w, page)
		case "2":
			writeJSON(w, []utxo{
				{Amount: []map[string]string{{"unit": unitB, "quantity": "2"}, {"unit": unitA, "quantity": "1"}}},
			})
		default:
			t.Errorf("unexpected page %q", r.URL.Query().Get("page"))
		}
	}))
	defer srv.Close()

	b := NewBlockfrost(testClient(), srv.URL, "key", testPolicy)
	res, err := b.Check(context.Background(), domain.Identity{WalletAddress: wallet})
	require.NoError(t, err)
	assert.True(t, res.Eligible)
	assert.Equal(t, int64(4), res.NFTCount)
	assert.Equal(t, domain.SourceBlockfrost, res.Source)
	require.Len(t, res.Assets, 2)
	assert.Equal(t, unitA, res.Assets[0].Unit)
	assert.Equal(t, "2", res.Assets[0].Quantity)
	assert.Equal(t, "NFT_A", res.Assets[0].AssetName)
	assert.True(t, strings.HasPrefix(res.Assets[0].Fingerprint, "asset1"))
}

func TestBlockfrost_404IsConfirmedZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"status_code":404}`, http.StatusNotFound)
	}))
	defer srv.Close()

	res, err := NewBlockfrost(testClient(), srv.URL, "key", testPolicy).
		Check(context.Background(), domain.Identity{WalletAddress: testWallet(t)})
	require.NoError(t, err)
	assert.False(t, res.Eligible)
	assert.Equal(t, int64(0), res.NFTCount)
}

func TestBlockfrost_ServerErrorIsUnknownAfterRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	res, err := NewBlockfrost(testClient(), srv.URL, "key", testPolicy).
		Check(context.Background(), domain.Identity{WalletAddress: testWallet(t)})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrUnknown)
	assert.Equal(t, int32(2), calls.Load())
}

func TestBlockfrost_ForbiddenIsUnknown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := NewBlockfrost(testClient(), srv.URL, "bad", testPolicy).
		Check(context.Background(), domain.Identity{WalletAddress: testWallet(t)})
	assert.ErrorIs(t, err, ErrUnknown)
}

func TestBlockfrost_NotConfiguredOrBadAddressSkipsNetwork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}))
	defer srv.Close()

	_, err := NewBlockfrost(testClient(), srv.URL, "", testPolicy).
		Check(context.Background(), domain.Identity{WalletAddress: testWallet(t)})
	assert.ErrorIs(t, err, ErrUnknown)

	_, err = NewBlockfrost(testClient(), srv.URL, "key", testPolicy).
		Check(context.Background(), domain.Identity{WalletAddress: "addr1notvalid"})
	assert.ErrorIs(t, err, ErrUnknown)
}

func TestBlockfrost_TimeoutIsUnknown(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client := NewHTTPClient(HTTPOptions{Timeout: 50 * time.Millisecond, RetryMax: 0})
	_, err := NewBlockfrost(client, srv.URL, "key", testPolicy).
		Check(context.Background(), domain.Identity{WalletAddress: testWallet(t)})
	assert.ErrorIs(t, err, ErrUnknown)
}

// --- Koios ---

func TestKoios_FiltersByPolicy(t *testing.T) {
	wallet := testWallet(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/address_assets", r.URL.Path)
		assert.Equal(t, "Bearer kk", r.Header.Get("Authorization"))
		var body map[string][]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{wallet}, body["_addresses"])
		writeJSON(w, []map[string]string{
			{"address": wallet, "policy_id": testPolicy, "asset_name": "4e4654", "fingerprint": "asset1xyz", "quantity": "3"},
			{"address": wallet, "policy_id": strings.Repeat("cd", 28), "asset_name": "00", "quantity": "9"},
		})
	}))
	defer srv.Close()

	res, err := NewKoios(testClient(), srv.URL, "kk", testPolicy).Check(context.Background(), domain.Identity{WalletAddress: wallet})
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.NFTCount)
	assert.Equal(t, domain.SourceKoios, res.Source)
	require.Len(t, res.Assets, 1)
	assert.Equal(t, "asset1xyz", res.Assets[0].Fingerprint)
	assert.Equal(t, "NFT", res.Assets[0].AssetName)
}

func TestKoios_EmptyListIsConfirmedZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []any{})
	}))
	defer srv.Close()

	res, err := NewKoios(testClient(), srv.URL, "", testPolicy).Check(context.Background(), domain.Identity{WalletAddress: testWallet(t)})
	require.NoError(t, err)
	assert.False(t, res.Eligible)
}

func TestKoios_BadJSONIsUnknown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	}))
	defer srv.Close()

	_, err := NewKoios(testClient(), srv.URL, "", testPolicy).Check(context.Background(), domain.Identity{WalletAddress: testWallet(t)})
	assert.ErrorIs(t, err, ErrUnknown)
}

func TestKoios_BadQuantityIsUnknown(t *testing.T) {
	wallet := testWallet(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []map[string]string{
			{"address": wallet, "policy_id": testPolicy, "asset_name": "4e4654", "quantity": "lots"},
		})
	}))
	defer srv.Close()

	res, err := NewKoios(testClient(), srv.URL, "", testPolicy).Check(context.Background(), domain.Identity{WalletAddress: wallet})
	assert.ErrorIs(t, err, ErrUnknown)
	assert.Nil(t, res)
}

func TestKoios_HugeTotalSaturates(t *testing.T) {
	wallet := testWallet(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []map[string]string{
			{"address": wallet, "policy_id": testPolicy, "asset_name": "41", "quantity": "9223372036854775807"},
			{"address": wallet, "policy_id": testPolicy, "asset_name": "42", "quantity": "10"},
		})
	}))
	defer srv.Close()

	res, err := NewKoios(testClient(), srv.URL, "", testPolicy).Check(context.Background(), domain.Identity{WalletAddress: wallet})
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), res.NFTCount)
	assert.True(t, res.Eligible)
}

func TestParseQuantity(t *testing.T) {
	q, ok := parseQuantity("12")
	require.True(t, ok)
	assert.Equal(t, "12", q.String())

	for _, bad := range []string{"", "x", "-1", "1.5"} {
		_, ok := parseQuantity(bad)
		assert.False(t, ok, bad)
	}
}

func TestClampCount(t *testing.T) {
	assert.Equal(t, int64(7), clampCount(big.NewInt(7)))
	huge, _ := new(big.Int).SetString("99999999999999999999999", 10)
	assert.Equal(t, int64(math.MaxInt64), clampCount(huge))
}

// --- NMKR ---

func TestNMKR_CountsOrdersForPolicy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/GetCustomerByEmail/a@b.com", r.URL.Path)
		assert.Equal(t, "Bearer nk", r.Header.Get("Authorization"))
		fmt.Fprintf(w, `{"email":"a@b.com","orders":[
			{"nfts":[{"policyId":%q,"assetName":"One"},{"policyId":"other"}]},
			{"nfts":[{"policyId":%q,"assetName":"Two","quantity":2}]},
			{}
		]}`, testPolicy, testPolicy)
	}))
	defer srv.Close()

	res, err := NewNMKR(testClient(), srv.URL, "nk", testPolicy).Check(context.Background(), domain.Identity{Email: "a@b.com"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.NFTCount)
	assert.Equal(t, domain.SourceNMKR, res.Source)
	assert.Len(t, res.Assets, 2)
}

func TestNMKR_NoEmailIsUnknown(t *testing.T) {
	_, err := NewNMKR(testClient(), "http://unused", "nk", testPolicy).Check(context.Background(), domain.Identity{WalletAddress: "addr1"})
	assert.ErrorIs(t, err, ErrUnknown)
}

// --- Chain ---

type stubChecker struct {
	name  domain.EligibilitySource
	res   *domain.EligibilityResult
	err   error
	calls int
}

func (s *stubChecker) Name() domain.EligibilitySource { return s.name }

func (s *stubChecker) Check(context.Context, domain.Identity) (*domain.EligibilityResult, error) {
	s.calls++
	return s.res, s.err
}

func TestChain_FirstDefiniteAnswerWins(t *testing.T) {
	primary := &stubChecker{name: domain.SourceBlockfrost, err: fmt.Errorf("down: %w", ErrUnknown)}
	fallback := &stubChecker{name: domain.SourceKoios, res: &domain.EligibilityResult{Source: domain.SourceKoios}}
	last := &stubChecker{name: domain.SourceNMKR, res: &domain.EligibilityResult{Eligible: true, NFTCount: 1}}

	res, answered := NewChain(testPolicy, nil, primary, fallback, last).Check(context.Background(), domain.Identity{})
	assert.True(t, answered)
	assert.Equal(t, domain.SourceKoios, res.Source)
	assert.False(t, res.Eligible)
	assert.Equal(t, 0, last.calls)
}

func TestChain_AllUnknownIsIneligible(t *testing.T) {
	a := &stubChecker{name: domain.SourceBlockfrost, err: ErrUnknown}
	b := &stubChecker{name: domain.SourceKoios, err: errors.New("boom")}

	res, answered := NewChain(testPolicy, nil, a, b).Check(context.Background(), domain.Identity{})
	assert.False(t, answered)
	assert.False(t, res.Eligible)
	assert.Equal(t, domain.SourceNone, res.Source)
	assert.Equal(t, testPolicy, res.PolicyID)
}
