// Package auth decides who is calling: it verifies signed call envelopes,
// recognises the root keys and resolves account references.
package auth

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/assetledger/pkg/types"
)

var (
	// ErrUnauthorized is returned when the origin lacks the required authority.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrBadEnvelope is returned for malformed envelopes.
	ErrBadEnvelope = errors.New("malformed envelope")
	// ErrBadSignature is returned when the signature does not verify.
	ErrBadSignature = errors.New("invalid signature")
	// ErrStaleNonce is returned when a nonce is not above the last one used.
	ErrStaleNonce = errors.New("stale nonce")
	// ErrUnresolved is returned when an account reference cannot be resolved.
	ErrUnresolved = errors.New("unresolved account reference")
)

// OriginKind classifies a caller.
type OriginKind uint8

const (
	// OriginNone is an unauthenticated caller.
	OriginNone OriginKind = iota
	// OriginSigned is a caller that proved control of an account.
	OriginSigned
	// OriginRoot is a signed caller holding one of the root keys.
	OriginRoot
)

func (k OriginKind) String() string {
	switch k {
	case OriginSigned:
		return "signed"
	case OriginRoot:
		return "root"
	default:
		return "none"
	}
}

// Origin is the authenticated caller of one request.
type Origin struct {
	Kind    OriginKind
	Account types.Address
}

// None is the unauthenticated origin.
var None = Origin{}

// Root returns a root origin for account.
func Root(account types.Address) Origin { return Origin{Kind: OriginRoot, Account: account} }

// Signed returns a signed origin for account.
func Signed(account types.Address) Origin { return Origin{Kind: OriginSigned, Account: account} }

// IsRoot reports whether the origin is privileged.
func (o Origin) IsRoot() bool { return o.Kind == OriginRoot }

// SignedAccount returns the account behind a signed origin. Root is not a
// signed origin and has no spendable account.
func (o Origin) SignedAccount() (types.Address, bool) {
	if o.Kind != OriginSigned {
		return types.Address{}, false
	}
	return o.Account, true
}

func (o Origin) String() string {
	if o.Kind == OriginNone {
		return "none"
	}
	return fmt.Sprintf("%s(%s)", o.Kind, o.Account)
}

// RequireRoot fails unless o is root.
func RequireRoot(o Origin) error {
	if !o.IsRoot() {
		return fmt.Errorf("%w: root required, caller is %s", ErrUnauthorized, o)
	}
	return nil
}

// RequireSigned returns the caller's account, failing for root and unsigned origins.
func RequireSigned(o Origin) (types.Address, error) {
	acct, ok := o.SignedAccount()
	if !ok {
		return types.Address{}, fmt.Errorf("%w: signed origin required, caller is %s", ErrUnauthorized, o)
	}
	return acct, nil
}
