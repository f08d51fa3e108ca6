package auth

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/Klingon-tech/assetledger/pkg/crypto"
	"github.com/Klingon-tech/assetledger/pkg/types"
)

// digestTag separates call digests from every other BLAKE3 use.
const digestTag = "assetledger 2024-01-01 call digest v1"

// Envelope carries a signed call. Payload is the JSON text of the method's
// parameters, signed byte for byte.
type Envelope struct {
	Payload   string `json:"payload"`
	Nonce     uint64 `json:"nonce"`
	PubKey    string `json:"pubkey"`
	Signature string `json:"signature"`
}

// Digest returns the 32-byte message a caller signs for method.
func Digest(method string, nonce uint64, payload []byte) types.Hash {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], nonce)
	return crypto.TaggedHash(digestTag, []byte(method), []byte{0}, n[:], payload)
}

// Seal marshals params and signs them for method with the given nonce.
func Seal(signer crypto.Signer, method string, nonce uint64, params any) (Envelope, error) {
	payload, err := json.Marshal(params)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal payload: %w", err)
	}
	digest := Digest(method, nonce, payload)
	sig, err := signer.Sign(digest[:])
	if err != nil {
		return Envelope{}, fmt.Errorf("sign: %w", err)
	}
	return Envelope{
		Payload:   string(payload),
		Nonce:     nonce,
		PubKey:    hex.EncodeToString(signer.PublicKey()),
		Signature: hex.EncodeToString(sig),
	}, nil
}

// Decode unmarshals the payload into v.
func (e Envelope) Decode(v any) error {
	if err := json.Unmarshal([]byte(e.Payload), v); err != nil {
		return fmt.Errorf("%w: payload: %v", ErrBadEnvelope, err)
	}
	return nil
}
