// Package crypto provides the hashing and signing primitives used to
// authenticate ledger requests.
package crypto

import (
	"github.com/Klingon-tech/assetledger/pkg/types"
	"github.com/zeebo/blake3"
)

// Hash computes a BLAKE3-256 hash of the input data.
func Hash(data []byte) types.Hash {
	return blake3.Sum256(data)
}

// TaggedHash hashes the parts under a domain tag, so that digests computed
// for one purpose can never collide with another. Each part is written as
// is; callers are responsible for unambiguous framing.
func TaggedHash(tag string, parts ...[]byte) types.Hash {
	h := blake3.NewDeriveKey(tag)
	for _, p := range parts {
		h.Write(p) //nolint:errcheck // blake3 writes never fail
	}
	var out types.Hash
	copy(out[:], h.Sum(nil))
	return out
}

// AddressFromPubKey derives an address from a compressed public key.
// Address = BLAKE3(compressed_pubkey)[:20].
func AddressFromPubKey(pubKey []byte) types.Address {
	h := Hash(pubKey)
	var addr types.Address
	copy(addr[:], h[:types.AddressSize])
	return addr
}
