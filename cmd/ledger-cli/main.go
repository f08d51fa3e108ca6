// ledger-cli is a command-line client for interacting with a ledgerd node.
// Signed calls are sealed locally with a key from the keystore.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Klingon-tech/assetledger/config"
	"github.com/Klingon-tech/assetledger/internal/rpcclient"
	"github.com/Klingon-tech/assetledger/internal/wallet"
	"github.com/Klingon-tech/assetledger/pkg/crypto"
	"github.com/Klingon-tech/assetledger/pkg/types"
)

var globalFlags struct {
	RPC          string
	DataDir      string
	Network      string
	Key          string
	PasswordFile string
}

var rootCmd = &cobra.Command{
	Use:           "ledger-cli",
	Short:         "Command-line client for a ledgerd node",
	Version:       config.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch globalFlags.Network {
		case string(config.Mainnet):
			types.SetAddressHRP(types.MainnetHRP)
		case string(config.Testnet):
			types.SetAddressHRP(types.TestnetHRP)
		default:
			return fmt.Errorf("unknown network %q (want mainnet or testnet)", globalFlags.Network)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&globalFlags.RPC, "rpc", "", "RPC endpoint (default: local node of --network)")
	rootCmd.PersistentFlags().StringVar(&globalFlags.DataDir, "datadir", config.DefaultDataDir(), "Data directory holding the keystore")
	rootCmd.PersistentFlags().StringVar(&globalFlags.Network, "network", string(config.Mainnet), "mainnet or testnet")
	rootCmd.PersistentFlags().StringVar(&globalFlags.Key, "key", "", "Keystore key that signs calls")
	rootCmd.PersistentFlags().StringVar(&globalFlags.PasswordFile, "password-file", "", "Read the key password from a file instead of prompting")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// cliConfig builds the node config the global flags describe, for paths
// and the default endpoint.
func cliConfig() *config.Config {
	cfg := config.Default(config.NetworkType(globalFlags.Network))
	cfg.DataDir = globalFlags.DataDir
	return cfg
}

func client() *rpcclient.Client {
	url := globalFlags.RPC
	if url == "" {
		url = cliConfig().RPCEndpoint()
	}
	return rpcclient.New(url)
}

func keystore() (*wallet.Keystore, error) {
	return wallet.NewKeystore(cliConfig().KeystoreDir())
}

// signer unlocks the key named by --key.
func signer() (*crypto.PrivateKey, error) {
	if globalFlags.Key == "" {
		return nil, fmt.Errorf("--key is required for signed calls")
	}
	ks, err := keystore()
	if err != nil {
		return nil, err
	}
	pw, err := password(fmt.Sprintf("Password for %s: ", globalFlags.Key))
	if err != nil {
		return nil, err
	}
	return ks.Signer(globalFlags.Key, pw)
}

// callSigned signs params with the --key key and submits them.
func callSigned(method string, params interface{}) error {
	key, err := signer()
	if err != nil {
		return err
	}
	defer key.Zero()

	c := client()
	var result json.RawMessage
	if err := c.CallSigned(key, method, params, &result); err != nil {
		return fmt.Errorf("%s via %s: %w", method, c.Endpoint(), err)
	}
	return printJSON(result)
}

// query performs an unsigned call and prints the result.
func query(method string, params interface{}) error {
	c := client()
	var result json.RawMessage
	if err := c.Call(method, params, &result); err != nil {
		return fmt.Errorf("%s via %s: %w", method, c.Endpoint(), err)
	}
	return printJSON(result)
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// ── Argument helpers ────────────────────────────────────────────────────

// parseAssetID accepts a numeric id or a reserved symbol (DOT, KSM, EOS).
func parseAssetID(s string) (types.AssetID, error) {
	if id, ok := types.ReservedAssetID(strings.ToUpper(s)); ok {
		return id, nil
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid asset %q: want an id or DOT, KSM, EOS", s)
	}
	return types.AssetID(n), nil
}

// parseVariant maps the --vtoken flag to a token type.
func parseVariant(vtoken bool) types.TokenType {
	if vtoken {
		return types.VToken
	}
	return types.Token
}

func parsePrecision(s string) (uint16, error) {
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid precision %q: %w", s, err)
	}
	return uint16(n), nil
}

// ── Password helper ─────────────────────────────────────────────────────

func password(prompt string) ([]byte, error) {
	if globalFlags.PasswordFile != "" {
		data, err := os.ReadFile(globalFlags.PasswordFile)
		if err != nil {
			return nil, fmt.Errorf("read password file: %w", err)
		}
		return []byte(strings.TrimRight(string(data), "\r\n")), nil
	}
	return readPassword(prompt)
}

func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	pw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr) // newline after hidden input
	if err != nil {
		return nil, err
	}
	return pw, nil
}

// newPassword prompts twice unless a password file is set.
func newPassword() ([]byte, error) {
	if globalFlags.PasswordFile != "" {
		return password("")
	}
	pw, err := readPassword("Enter password: ")
	if err != nil {
		return nil, err
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		return nil, err
	}
	if string(pw) != string(confirm) {
		return nil, fmt.Errorf("passwords do not match")
	}
	return pw, nil
}
