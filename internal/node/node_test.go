package node

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Klingon-tech/assetledger/config"
	"github.com/Klingon-tech/assetledger/internal/auth"
	"github.com/Klingon-tech/assetledger/internal/dispatch"
	klog "github.com/Klingon-tech/assetledger/internal/log"
	"github.com/Klingon-tech/assetledger/internal/rpc"
	"github.com/Klingon-tech/assetledger/internal/rpcclient"
	"github.com/Klingon-tech/assetledger/internal/storage"
	"github.com/Klingon-tech/assetledger/pkg/crypto"
	"github.com/Klingon-tech/assetledger/pkg/types"
)

func testConfig(t *testing.T, backend string) *config.Config {
	t.Helper()
	klog.Init("error", false, "")
	cfg := config.DefaultTestnet()
	cfg.DataDir = t.TempDir()
	cfg.Storage.Backend = backend
	cfg.RPC.Port = 0
	return cfg
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	tests := []struct {
		input, want string
	}{
		{"~/foo/bar", filepath.Join(home, "foo/bar")},
		{"~/.assetledger/genesis.json", filepath.Join(home, ".assetledger/genesis.json")},
		{"/absolute/path", "/absolute/path"},
		{"relative/path", "relative/path"},
		{"", ""},
	}
	for _, tt := range tests {
		got := expandHome(tt.input)
		if got != tt.want {
			t.Errorf("expandHome(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNew_MemoryTestnet(t *testing.T) {
	cfg := testConfig(t, config.BackendMemory)
	n, err := NewWithGenesis(cfg, config.TestnetGenesis())
	if err != nil {
		t.Fatalf("NewWithGenesis: %v", err)
	}
	if err := n.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer n.Stop()

	for _, id := range []types.AssetID{types.AssetDOT, types.AssetKSM, types.AssetEOS} {
		ok, err := n.Engine().Registry().Exists(id)
		if err != nil || !ok {
			t.Errorf("reserved asset %d: exists = %v, err = %v", id, ok, err)
		}
	}
	if got := n.Prices().PriceOf(types.AssetDOT); got.Uint64() != 100 {
		t.Errorf("DOT price = %s, want 100", got)
	}
	remaining, err := n.Vouchers().Remaining()
	if err != nil {
		t.Fatal(err)
	}
	if remaining.Cmp(n.Genesis().VoucherTotalSupply) != 0 {
		t.Errorf("voucher pool = %s, want %s", remaining, n.Genesis().VoucherTotalSupply)
	}
	if n.Metrics() == nil {
		t.Error("metrics should be enabled by default")
	}

	if n.RPCAddr() == "" || strings.HasSuffix(n.RPCAddr(), ":0") {
		t.Fatalf("RPCAddr = %q, want a bound address", n.RPCAddr())
	}
	client := rpcclient.New("http://" + n.RPCAddr() + "/")
	var info rpc.NodeInfoResult
	if err := client.Call("node_getInfo", nil, &info); err != nil {
		t.Fatalf("node_getInfo: %v", err)
	}
	if info.ChainID != "assetledger-testnet-1" {
		t.Errorf("chain_id = %q, want assetledger-testnet-1", info.ChainID)
	}
	if info.Assets != 3 {
		t.Errorf("assets = %d, want 3", info.Assets)
	}
}

func TestNew_EventsReachMetrics(t *testing.T) {
	cfg := testConfig(t, config.BackendMemory)
	cfg.RPC.Enabled = false
	n, err := NewWithGenesis(cfg, config.TestnetGenesis())
	if err != nil {
		t.Fatalf("NewWithGenesis: %v", err)
	}
	defer n.Stop()

	root := auth.Root(types.Address{0x01})
	if err := n.Dispatcher().Issue(root, dispatch.IssueParams{
		Asset: types.AssetKSM, To: "@root", Amount: types.NewAmount(5),
	}); err != nil {
		t.Fatalf("Issue: %v", err)
	}
	events := n.Events().Recent(0, "")
	if len(events) == 0 {
		t.Fatal("no events recorded")
	}
	if c, err := testutil.GatherAndCount(n.Metrics().Registry(), "assetledger_events_emitted_total"); err != nil || c == 0 {
		t.Errorf("event counter series = %d, err = %v", c, err)
	}
	if n.RPCAddr() != "" {
		t.Errorf("RPCAddr = %q with RPC disabled, want empty", n.RPCAddr())
	}
}

func TestNew_BadgerReopen(t *testing.T) {
	cfg := testConfig(t, config.BackendBadger)
	cfg.RPC.Enabled = false
	gen := config.TestnetGenesis()

	rootAddr, err := types.ParseAddress(config.TestnetRootAddress)
	if err != nil {
		t.Fatal(err)
	}

	n, err := NewWithGenesis(cfg, gen)
	if err != nil {
		t.Fatalf("NewWithGenesis: %v", err)
	}
	if err := n.Dispatcher().Issue(auth.Root(rootAddr), dispatch.IssueParams{
		Asset: types.AssetDOT, To: "@root", Amount: types.NewAmount(42),
	}); err != nil {
		t.Fatalf("Issue: %v", err)
	}
	n.Stop()

	n, err = NewWithGenesis(cfg, config.TestnetGenesis())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	bal, err := n.Engine().Ledger().BalanceU64(types.AssetDOT, types.Token, rootAddr)
	if err != nil {
		t.Fatal(err)
	}
	if bal != 42 {
		t.Errorf("balance after reopen = %d, want 42", bal)
	}
	n.Stop()

	other := config.TestnetGenesis()
	other.ChainID = "assetledger-other"
	if _, err := NewWithGenesis(cfg, other); err == nil {
		t.Fatal("opening with a different genesis should fail")
	}
}

func TestNew_InvalidGenesis(t *testing.T) {
	cfg := testConfig(t, config.BackendMemory)
	gen := config.TestnetGenesis()
	gen.RootKeys = nil
	if _, err := NewWithGenesis(cfg, gen); err == nil {
		t.Fatal("genesis without root keys should be rejected")
	}
}

func TestNew_GenesisFile(t *testing.T) {
	cfg := testConfig(t, config.BackendMemory)
	cfg.RPC.Enabled = false

	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	gen := config.TestnetGenesis()
	gen.ChainID = "assetledger-file"
	gen.RootKeys = []string{hex.EncodeToString(key.PublicKey())}
	path := filepath.Join(t.TempDir(), "genesis.json")
	if err := gen.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	cfg.GenesisFile = path

	n, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer n.Stop()
	if n.Genesis().ChainID != "assetledger-file" {
		t.Errorf("chain_id = %q, want assetledger-file", n.Genesis().ChainID)
	}
}

func TestOpenDB_UnknownBackend(t *testing.T) {
	cfg := testConfig(t, "leveldb")
	if _, err := openDB(cfg); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestCheckGenesis(t *testing.T) {
	db := storage.NewMemory()
	a := crypto.Hash([]byte("a"))
	b := crypto.Hash([]byte("b"))

	if err := checkGenesis(db, a); err != nil {
		t.Fatalf("first check: %v", err)
	}
	if err := checkGenesis(db, a); err != nil {
		t.Fatalf("same hash: %v", err)
	}
	if err := checkGenesis(db, b); err == nil {
		t.Fatal("different hash should fail")
	}
}
