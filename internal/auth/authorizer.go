package auth

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/Klingon-tech/assetledger/internal/log"
	"github.com/Klingon-tech/assetledger/internal/storage"
	"github.com/Klingon-tech/assetledger/pkg/crypto"
	"github.com/Klingon-tech/assetledger/pkg/types"
)

var prefixNonce = []byte("n/") // n/<addr(20)> -> last nonce (8 bytes BE)

func nonceKey(addr types.Address) []byte {
	return append(append([]byte{}, prefixNonce...), addr[:]...)
}

// Authorizer turns envelopes into origins. Each account's nonces must
// strictly increase, which makes every signed envelope single use.
type Authorizer struct {
	mu       sync.Mutex
	db       storage.DB
	roots    map[types.Address]bool
	verifier crypto.Verifier
}

// NewAuthorizer creates an authorizer persisting nonces in db. rootKeys are
// compressed public keys; callers signing with them get a root origin.
func NewAuthorizer(db storage.DB, rootKeys [][]byte) *Authorizer {
	roots := make(map[types.Address]bool, len(rootKeys))
	for _, k := range rootKeys {
		roots[crypto.AddressFromPubKey(k)] = true
	}
	return &Authorizer{db: db, roots: roots, verifier: crypto.SchnorrVerifier{}}
}

// IsRootAccount reports whether addr belongs to a root key.
func (a *Authorizer) IsRootAccount(addr types.Address) bool {
	return a.roots[addr]
}

// Authenticate verifies env for method and consumes its nonce.
func (a *Authorizer) Authenticate(method string, env Envelope) (Origin, error) {
	pub, err := crypto.ParsePubKeyHex(env.PubKey)
	if err != nil {
		return None, fmt.Errorf("%w: %v", ErrBadEnvelope, err)
	}
	sig, err := hex.DecodeString(strings.TrimPrefix(env.Signature, "0x"))
	if err != nil {
		return None, fmt.Errorf("%w: signature hex: %v", ErrBadEnvelope, err)
	}
	digest := Digest(method, env.Nonce, []byte(env.Payload))
	if !a.verifier.Verify(digest[:], sig, pub) {
		return None, ErrBadSignature
	}
	addr := crypto.AddressFromPubKey(pub)

	a.mu.Lock()
	defer a.mu.Unlock()

	last, err := a.lastNonce(addr)
	if err != nil {
		return None, err
	}
	if env.Nonce <= last {
		return None, fmt.Errorf("%w: got %d, last %d", ErrStaleNonce, env.Nonce, last)
	}
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], env.Nonce)
	if err := a.db.Put(nonceKey(addr), n[:]); err != nil {
		return None, fmt.Errorf("store nonce: %w", err)
	}

	origin := Signed(addr)
	if a.roots[addr] {
		origin = Root(addr)
	}
	log.Auth.Debug().Str("method", method).Stringer("origin", origin).Uint64("nonce", env.Nonce).Msg("Call authenticated")
	return origin, nil
}

// Nonce returns the last nonce consumed for addr (zero if none).
func (a *Authorizer) Nonce(addr types.Address) (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastNonce(addr)
}

func (a *Authorizer) lastNonce(addr types.Address) (uint64, error) {
	data, ok, err := storage.Lookup(a.db, nonceKey(addr))
	if err != nil {
		return 0, fmt.Errorf("load nonce: %w", err)
	}
	if !ok || len(data) != 8 {
		return 0, nil
	}
	return binary.BigEndian.Uint64(data), nil
}
