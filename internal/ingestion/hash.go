package ingestion

import (
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/blake2b"

	pkgerrors "github.com/middlemart/middlemart-backend/pkg/errors"
	"github.com/middlemart/middlemart-backend/pkg/types"
)

const (
	hashKeySize    = 64
	hashDigestSize = 64
)

// Hasher produces the keyed digest that binds a scraped item payload to this
// server. The key is the first 64 bytes of the configured secret.
type Hasher struct {
	key []byte
}

// NewHasher derives the hashing key from the server secret.
func NewHasher(secret string) (*Hasher, error) {
	if secret == "" {
		return nil, fmt.Errorf("hash secret is required")
	}
	key := []byte(secret)
	if len(key) > hashKeySize {
		key = key[:hashKeySize]
	}
	return &Hasher{key: key}, nil
}

// Sum returns the hex encoded keyed blake2b digest of data.
func (h *Hasher) Sum(data []byte) (string, error) {
	mac, err := blake2b.New(hashDigestSize, h.key)
	if err != nil {
		return "", fmt.Errorf("init blake2b: %w", err)
	}
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// SumPayload hashes the canonical JSON encoding of the payload. Map keys are
// sorted by the encoder, so generation and verification always agree.
func (h *Hasher) SumPayload(payload types.JSONMap) (string, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	return h.Sum(encoded)
}

// VerifyPayload checks the item's embedded hash. The hash and amount fields
// are excluded from the hashed content; comparison is constant time.
func (h *Hasher) VerifyPayload(item types.JSONMap) error {
	claimed, ok := item["hash"].(string)
	if !ok || claimed == "" {
		return pkgerrors.New(pkgerrors.CodeIntegrity, "item hash missing")
	}

	stripped := make(types.JSONMap, len(item))
	for key, value := range item {
		if key == "hash" || key == "amount" {
			continue
		}
		stripped[key] = value
	}

	computed, err := h.SumPayload(stripped)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "compute item hash")
	}

	if subtle.ConstantTimeCompare([]byte(claimed), []byte(computed)) != 1 {
		return pkgerrors.New(pkgerrors.CodeIntegrity, "item hash mismatch")
	}
	return nil
}
