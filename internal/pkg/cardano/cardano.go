// Package cardano wraps the few ledger primitives the API needs: address
// parsing and CIP-14 asset fingerprints.
package cardano

import (
	"encoding/hex"
	"fmt"
	"strings"

	lcommon "github.com/blinklabs-io/gouroboros/ledger/common"
)

// PolicyIDLength is the hex length of a policy ID (28-byte script hash).
const PolicyIDLength = 56

// ParseAddress validates a bech32 or base58 wallet address and returns its
// canonical string form.
func ParseAddress(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("empty address")
	}
	addr, err := lcommon.NewAddress(s)
	if err != nil {
		return "", fmt.Errorf("invalid address: %w", err)
	}
	return addr.String(), nil
}

// ValidAddress reports whether s parses as a wallet address.
func ValidAddress(s string) bool {
	_, err := ParseAddress(s)
	return err == nil
}

// SplitUnit splits an asset unit (policy ID hex followed by asset name hex)
// into its two parts. ok is false when unit is not long enough to hold a policy ID.
func SplitUnit(unit string) (policyID, assetNameHex string, ok bool) {
	if len(unit) < PolicyIDLength {
		return "", "", false
	}
	return unit[:PolicyIDLength], unit[PolicyIDLength:], true
}

// Fingerprint returns the CIP-14 asset fingerprint for a policy ID and hex
// asset name, or "" when either part is not valid hex.
func Fingerprint(policyID, assetNameHex string) string {
	policy, err := hex.DecodeString(policyID)
	if err != nil || len(policy) != PolicyIDLength/2 {
		return ""
	}
	name, err := hex.DecodeString(assetNameHex)
	if err != nil {
		return ""
	}
	return lcommon.NewAssetFingerprint(policy, name).String()
}

// AssetName decodes a hex asset name into printable text when possible.
func AssetName(assetNameHex string) string {
	b, err := hex.DecodeString(assetNameHex)
	if err != nil {
		return ""
	}
	for _, c := range b {
		if c < 0x20 || c > 0x7e {
			return assetNameHex
		}
	}
	return string(b)
}
