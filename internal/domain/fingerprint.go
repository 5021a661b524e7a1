package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Fingerprint returns the identity key of an announcement: the SHA-256
// hex digest of its raw source-language text. It deliberately ignores
// translation and extraction output so the same raw announcement maps to
// the same record even when those non-deterministic stages vary.
func Fingerprint(rawText string) string {
	sum := sha256.Sum256([]byte(rawText))
	return hex.EncodeToString(sum[:])
}

// EventKey derives the delivery-idempotence key for one record matching
// one tracked address. Keying on the normalized address (not just the
// record) means a subscriber tracking two affected addresses is told
// about each, while repeat matches of the same pair stay silent.
func EventKey(utility Utility, fingerprint string, addr TrackedAddress) string {
	input := fmt.Sprintf("%s|%s|%s|%s",
		utility, fingerprint, NormalizeAddressPart(addr.Region), NormalizeAddressPart(addr.Street))
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}
