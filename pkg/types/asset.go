package types

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Symbol and precision limits enforced on every registered token.
const (
	MaxSymbolLen = 32
	MaxPrecision = 16
)

// AssetID identifies a registered token pair.
type AssetID uint32

// AssetIDSize is the binary width of an AssetID in storage keys.
const AssetIDSize = 4

// Well-known assets with ids fixed at genesis.
const (
	AssetDOT AssetID = 0
	AssetKSM AssetID = 1
	AssetEOS AssetID = 2
)

// ReservedAssetCount is the number of ids reserved for well-known symbols.
const ReservedAssetCount = 3

// ReservedAssetID returns the fixed id for a well-known symbol.
func ReservedAssetID(symbol string) (AssetID, bool) {
	switch symbol {
	case "DOT":
		return AssetDOT, true
	case "KSM":
		return AssetKSM, true
	case "EOS":
		return AssetEOS, true
	}
	return 0, false
}

// Bytes returns the 4-byte big-endian encoding used in storage keys.
func (id AssetID) Bytes() []byte {
	var b [AssetIDSize]byte
	binary.BigEndian.PutUint32(b[:], uint32(id))
	return b[:]
}

// AssetIDFromBytes decodes a 4-byte big-endian asset id.
func AssetIDFromBytes(b []byte) (AssetID, error) {
	if len(b) != AssetIDSize {
		return 0, fmt.Errorf("asset id must be %d bytes, got %d", AssetIDSize, len(b))
	}
	return AssetID(binary.BigEndian.Uint32(b)), nil
}

// TokenType selects one variant of an asset.
type TokenType uint8

const (
	// Token is the base variant.
	Token TokenType = 0
	// VToken is the derived variant.
	VToken TokenType = 1
)

// Valid reports whether t is a known variant.
func (t TokenType) Valid() bool {
	return t == Token || t == VToken
}

func (t TokenType) String() string {
	switch t {
	case Token:
		return "token"
	case VToken:
		return "vtoken"
	default:
		return fmt.Sprintf("tokentype(%d)", uint8(t))
	}
}

// ParseTokenType parses "token" or "vtoken" (case-insensitive).
func ParseTokenType(s string) (TokenType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "token", "":
		return Token, nil
	case "vtoken":
		return VToken, nil
	}
	return 0, fmt.Errorf("unknown token type %q (want token or vtoken)", s)
}

// MarshalText encodes the variant name.
func (t TokenType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid token type %d", uint8(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText decodes a variant name.
func (t *TokenType) UnmarshalText(text []byte) error {
	parsed, err := ParseTokenType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// TokenInfo describes one variant of an asset.
type TokenInfo struct {
	Symbol      string `json:"symbol"`
	Precision   uint16 `json:"precision"`
	TotalSupply Amount `json:"total_supply"`
}

// TokenPair holds both variants of one asset. The two variants share the
// asset id but keep independent supplies.
type TokenPair struct {
	Token  TokenInfo `json:"token"`
	VToken TokenInfo `json:"vtoken"`
}

// NewTokenPair returns a pair with both variants set to symbol/precision
// and zero supply.
func NewTokenPair(symbol string, precision uint16) TokenPair {
	t := TokenInfo{Symbol: symbol, Precision: precision}
	return TokenPair{Token: t, VToken: t}
}

// Variant returns the token for t.
func (p TokenPair) Variant(t TokenType) TokenInfo {
	if t == VToken {
		return p.VToken
	}
	return p.Token
}

// SetSupply replaces the total supply of variant t.
func (p *TokenPair) SetSupply(t TokenType, supply Amount) {
	if t == VToken {
		p.VToken.TotalSupply = supply
		return
	}
	p.Token.TotalSupply = supply
}

// IsZero reports whether p is the default (unregistered) pair.
func (p TokenPair) IsZero() bool {
	return p == TokenPair{}
}

// AccountAsset is the ledger record for one (asset, variant, account).
// Cost and Income only ever grow; Balance is the net of credits and debits.
type AccountAsset struct {
	Balance Amount `json:"balance"`
	Cost    Amount `json:"cost"`
	Income  Amount `json:"income"`
}
