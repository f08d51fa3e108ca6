package auth

import (
	"fmt"
	"strings"

	"github.com/Klingon-tech/assetledger/pkg/types"
)

// AliasPrefix marks a reference as a named alias rather than an address.
const AliasPrefix = "@"

// Resolver turns account references into addresses. A reference is a
// bech32 or hex address, or "@name" for a configured alias.
type Resolver struct {
	aliases map[string]types.Address
}

// NewResolver creates a resolver over the given aliases (names without "@").
func NewResolver(aliases map[string]types.Address) *Resolver {
	m := make(map[string]types.Address, len(aliases))
	for name, addr := range aliases {
		m[strings.ToLower(name)] = addr
	}
	return &Resolver{aliases: m}
}

// Resolve returns the address for ref.
func (r *Resolver) Resolve(ref string) (types.Address, error) {
	ref = strings.TrimSpace(ref)
	if name, ok := strings.CutPrefix(ref, AliasPrefix); ok {
		addr, found := r.aliases[strings.ToLower(name)]
		if !found {
			return types.Address{}, fmt.Errorf("%w: unknown alias %q", ErrUnresolved, name)
		}
		return addr, nil
	}
	addr, err := types.ParseAddress(ref)
	if err != nil {
		return types.Address{}, fmt.Errorf("%w: %v", ErrUnresolved, err)
	}
	return addr, nil
}

// Aliases returns a copy of the alias table.
func (r *Resolver) Aliases() map[string]types.Address {
	out := make(map[string]types.Address, len(r.aliases))
	for k, v := range r.aliases {
		out[k] = v
	}
	return out
}
