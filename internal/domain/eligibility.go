package domain

// EligibilitySource names the data source that produced an EligibilityResult.
type EligibilitySource string

const (
	SourceBlockfrost EligibilitySource = "blockfrost" // primary chain indexer
	SourceKoios      EligibilitySource = "koios"      // fallback chain indexer
	SourceNMKR       EligibilitySource = "nmkr"       // purchase records
	SourceDemo       EligibilitySource = "demo"
	SourceNone       EligibilitySource = "none"
)

// Identity is what an ownership checker is asked about.
type Identity struct {
	Email         string
	WalletAddress string
}

// Asset is a native-token holding under the target policy.
type Asset struct {
	Unit        string `json:"unit"`
	PolicyID    string `json:"policyId"`
	AssetName   string `json:"assetName,omitempty"`
	Quantity    string `json:"quantity"`
	Fingerprint string `json:"fingerprint,omitempty"`
}

// EligibilityResult is the transient answer to "does this identity hold the NFT".
type EligibilityResult struct {
	Eligible bool              `json:"eligible"`
	NFTCount int64             `json:"nftCount"`
	PolicyID string            `json:"policyId"`
	Source   EligibilitySource `json:"verificationMethod"`
	Assets   []Asset           `json:"assets,omitempty"`
}
