package main

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Klingon-tech/assetledger/internal/rpc"
	"github.com/Klingon-tech/assetledger/internal/wallet"
)

var keyFlags struct {
	Account    uint32
	Index      uint32
	Passphrase string
}

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage signing keys in the local keystore",
}

var keyNewCmd = &cobra.Command{
	Use:   "new <name>",
	Short: "Generate a new mnemonic and derive a signing key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mnemonic, err := wallet.GenerateMnemonic()
		if err != nil {
			return fmt.Errorf("generate mnemonic: %w", err)
		}
		info, err := createFromMnemonic(args[0], mnemonic)
		if err != nil {
			return err
		}
		fmt.Println("Write down this mnemonic and keep it safe:")
		fmt.Println()
		fmt.Println("  " + mnemonic)
		fmt.Println()
		return printJSON(info)
	},
}

var keyImportMnemonicCmd = &cobra.Command{
	Use:   "import-mnemonic <name>",
	Short: "Restore a key from a BIP-39 mnemonic read from stdin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprint(os.Stderr, "Mnemonic: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read mnemonic: %w", err)
		}
		mnemonic := wallet.NormalizeMnemonic(line)
		if !wallet.ValidateMnemonic(mnemonic) {
			return fmt.Errorf("invalid mnemonic")
		}
		info, err := createFromMnemonic(args[0], mnemonic)
		if err != nil {
			return err
		}
		return printJSON(info)
	},
}

var keyImportHexCmd = &cobra.Command{
	Use:   "import-hex <name>",
	Short: "Import a raw hex private key read from the terminal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		secret, err := readPassword("Private key (hex): ")
		if err != nil {
			return err
		}
		priv, err := hex.DecodeString(strings.TrimSpace(string(secret)))
		if err != nil {
			return fmt.Errorf("invalid hex key: %w", err)
		}
		pw, err := newPassword()
		if err != nil {
			return err
		}
		ks, err := keystore()
		if err != nil {
			return err
		}
		info, err := ks.ImportPrivateKey(args[0], priv, pw)
		if err != nil {
			return err
		}
		return printJSON(info)
	},
}

var keyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored keys",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ks, err := keystore()
		if err != nil {
			return err
		}
		keys, err := ks.List()
		if err != nil {
			return err
		}
		if len(keys) == 0 {
			fmt.Println("No keys found.")
			return nil
		}
		for _, k := range keys {
			fmt.Printf("%-16s %-8s %s\n", k.Name, k.Kind, k.Address)
		}
		return nil
	},
}

var keyShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show the public details of a key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ks, err := keystore()
		if err != nil {
			return err
		}
		info, err := ks.Info(args[0])
		if err != nil {
			return err
		}
		return printJSON(info)
	},
}

var keyDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a key from the keystore",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ks, err := keystore()
		if err != nil {
			return err
		}
		if err := ks.Delete(args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted key %s\n", args[0])
		return nil
	},
}

var keyNonceCmd = &cobra.Command{
	Use:   "nonce <name|address>",
	Short: "Show the last used and next nonce of an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		account := args[0]
		if ks, err := keystore(); err == nil {
			if info, err := ks.Info(account); err == nil {
				account = info.Address.String()
			}
		}
		return query("auth_getNonce", rpc.AccountParam{Account: account})
	},
}

func init() {
	keyNewCmd.Flags().Uint32Var(&keyFlags.Account, "account", 0, "BIP-44 account index")
	keyNewCmd.Flags().Uint32Var(&keyFlags.Index, "index", 0, "BIP-44 address index")
	keyNewCmd.Flags().StringVar(&keyFlags.Passphrase, "passphrase", "", "Optional BIP-39 passphrase")
	keyImportMnemonicCmd.Flags().Uint32Var(&keyFlags.Account, "account", 0, "BIP-44 account index")
	keyImportMnemonicCmd.Flags().Uint32Var(&keyFlags.Index, "index", 0, "BIP-44 address index")
	keyImportMnemonicCmd.Flags().StringVar(&keyFlags.Passphrase, "passphrase", "", "Optional BIP-39 passphrase")

	keyCmd.AddCommand(keyNewCmd, keyImportMnemonicCmd, keyImportHexCmd, keyListCmd, keyShowCmd, keyDeleteCmd, keyNonceCmd)
	rootCmd.AddCommand(keyCmd)
}

func createFromMnemonic(name, mnemonic string) (wallet.KeyInfo, error) {
	pw, err := newPassword()
	if err != nil {
		return wallet.KeyInfo{}, err
	}
	ks, err := keystore()
	if err != nil {
		return wallet.KeyInfo{}, err
	}
	return ks.CreateFromMnemonic(name, mnemonic, keyFlags.Passphrase, keyFlags.Account, keyFlags.Index, pw)
}
