package node

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Klingon-tech/assetledger/config"
	"github.com/Klingon-tech/assetledger/internal/asset"
	"github.com/Klingon-tech/assetledger/internal/storage"
	"github.com/Klingon-tech/assetledger/pkg/types"
)

var keyGenesisHash = []byte("genesis")

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

// checkGenesis records the genesis hash on first start and refuses to open
// a database initialized from a different genesis.
func checkGenesis(db storage.DB, hash types.Hash) error {
	stored, ok, err := storage.Lookup(db, keyGenesisHash)
	if err != nil {
		return fmt.Errorf("read genesis hash: %w", err)
	}
	if !ok {
		return db.Put(keyGenesisHash, hash.Bytes())
	}
	if !bytes.Equal(stored, hash.Bytes()) {
		return fmt.Errorf("database was initialized with genesis %x, config has %s", stored, hash)
	}
	return nil
}

// genesisAssets converts the genesis reserved assets for the registry.
func genesisAssets(g *config.Genesis) []asset.GenesisAsset {
	out := make([]asset.GenesisAsset, 0, len(g.Assets))
	for _, a := range g.Assets {
		out = append(out, asset.GenesisAsset{
			ID:         a.ID,
			Symbol:     a.Symbol,
			Precision:  a.Precision,
			VSymbol:    a.VTokenSymbol,
			VPrecision: a.VTokenPrecision,
		})
	}
	return out
}
