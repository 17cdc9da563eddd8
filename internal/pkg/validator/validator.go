package validator

import (
	"regexp"
	"strings"
)

var (
	urlRegex     = regexp.MustCompile(`^https?:\/\/(www\.)?[-a-zA-Z0-9@:%._\+~#=]{1,256}\.[a-zA-Z0-9()]{1,6}\b([-a-zA-Z0-9()@:%_\+.~#?&//=]*)$`)
	walletRegex  = regexp.MustCompile(`^(0x[0-9a-fA-F]{40}|[13][a-km-zA-HJ-NP-Z1-9]{25,34}|bc1[a-z0-9]{11,71})$`)
	sha256Regex  = regexp.MustCompile(`^[0-9a-f]{64}$`)
	cidRegex     = regexp.MustCompile(`^(Qm[1-9A-HJ-NP-Za-km-z]{44}|b[a-z2-7]{58})$`)
	addressRegex = regexp.MustCompile(`^[a-zA-Z0-9:_\-\.]{4,128}$`)
)

// IsValidURL checks if the URL format is valid
func IsValidURL(url string) bool {
	if strings.TrimSpace(url) == "" {
		return false
	}
	return urlRegex.MatchString(url)
}

// IsValidWallet checks common wallet-address shapes (EVM hex, legacy and
// bech32 bitcoin). Anything the identity layer hands us is opaque; this
// only guards against obvious garbage in report targets.
func IsValidWallet(addr string) bool {
	return walletRegex.MatchString(strings.TrimSpace(addr))
}

// IsValidContentHash accepts hex sha-256 digests and content-addressed ids.
func IsValidContentHash(hash string) bool {
	h := strings.TrimSpace(hash)
	return sha256Regex.MatchString(strings.ToLower(h)) || cidRegex.MatchString(h)
}

// IsValidAccountAddress checks the opaque account identifier supplied by
// the identity provider.
func IsValidAccountAddress(addr string) bool {
	return addressRegex.MatchString(addr)
}
