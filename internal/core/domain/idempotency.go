package domain

import (
	"crypto/sha256"
	"encoding/hex"
)

// BuildIdempotencyKey scopes a terminal-supplied key to the card, so two
// cards reusing the same key never share a receipt.
// Format: "<first 8 bytes of sha256(card) hex>:<client key>".
func BuildIdempotencyKey(card Card, clientKey string) string {
	sum := sha256.Sum256([]byte(card.Number()))
	return hex.EncodeToString(sum[:8]) + ":" + clientKey
}
