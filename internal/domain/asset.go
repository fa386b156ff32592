package domain

import "regexp"

// SupportedAssets is the allow-list of asset ids the service will look up.
var SupportedAssets = []string{
	"bitcoin",
	"ethereum",
	"tether",
	"binancecoin",
	"solana",
	"ripple",
	"cardano",
	"dogecoin",
	"polkadot",
	"litecoin",
}

var supportedAssetSet = func() map[string]bool {
	m := make(map[string]bool, len(SupportedAssets))
	for _, a := range SupportedAssets {
		m[a] = true
	}
	return m
}()

const MaxAssetIDLen = 50

var assetIDRe = regexp.MustCompile(`^[a-z0-9-]+$`)

func IsSupportedAsset(id string) bool { return supportedAssetSet[id] }

// CacheKey is the key a quote for assetID is cached under.
func CacheKey(assetID string) string { return "price_cache_" + assetID }
