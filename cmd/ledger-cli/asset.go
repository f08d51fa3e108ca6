package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Klingon-tech/assetledger/internal/dispatch"
	"github.com/Klingon-tech/assetledger/internal/rpc"
	"github.com/Klingon-tech/assetledger/pkg/types"
)

var assetFlags struct {
	VToken bool
	ToName string
}

var assetCmd = &cobra.Command{
	Use:   "asset",
	Short: "Create, move and inspect assets",
}

var assetCreateCmd = &cobra.Command{
	Use:   "create <symbol> <precision>",
	Short: "Register a new asset (root only)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		precision, err := parsePrecision(args[1])
		if err != nil {
			return err
		}
		return callSigned("asset_create", dispatch.CreateParams{Symbol: args[0], Precision: precision})
	},
}

var assetIssueCmd = &cobra.Command{
	Use:   "issue <asset> <to> <amount>",
	Short: "Mint balance to an account (root only)",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, amount, err := assetAndAmount(args[0], args[2])
		if err != nil {
			return err
		}
		return callSigned("asset_issue", dispatch.IssueParams{
			Asset: id, TokenType: parseVariant(assetFlags.VToken), To: args[1], Amount: amount,
		})
	},
}

var assetTransferCmd = &cobra.Command{
	Use:   "transfer <asset> <to> <amount>",
	Short: "Send balance from the signing key to another account",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, amount, err := assetAndAmount(args[0], args[2])
		if err != nil {
			return err
		}
		return callSigned("asset_transfer", dispatch.TransferParams{
			Asset: id, TokenType: parseVariant(assetFlags.VToken), To: args[1], Amount: amount,
		})
	},
}

var assetDestroyCmd = &cobra.Command{
	Use:   "destroy <asset> <amount>",
	Short: "Burn balance of the signing key",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, amount, err := assetAndAmount(args[0], args[1])
		if err != nil {
			return err
		}
		return callSigned("asset_destroy", dispatch.DestroyParams{
			Asset: id, TokenType: parseVariant(assetFlags.VToken), Amount: amount,
		})
	},
}

var assetRedeemCmd = &cobra.Command{
	Use:   "redeem <asset> <amount>",
	Short: "Burn balance and queue a redemption to an external chain",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, amount, err := assetAndAmount(args[0], args[1])
		if err != nil {
			return err
		}
		return callSigned("asset_redeem", dispatch.RedeemParams{
			Asset: id, TokenType: parseVariant(assetFlags.VToken), Amount: amount, ToName: assetFlags.ToName,
		})
	},
}

var assetGetCmd = &cobra.Command{
	Use:   "get <asset>",
	Short: "Show an asset's token pair",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseAssetID(args[0])
		if err != nil {
			return err
		}
		return query("asset_getToken", rpc.AssetParam{AssetID: id})
	},
}

var assetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered assets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return query("asset_list", nil)
	},
}

var assetBalanceCmd = &cobra.Command{
	Use:   "balance <asset> <account>",
	Short: "Show an account's balance, cost and income for one asset",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseAssetID(args[0])
		if err != nil {
			return err
		}
		return query("asset_getAccountAsset", rpc.AccountAssetParam{
			AssetID: id, TokenType: parseVariant(assetFlags.VToken), Account: args[1],
		})
	},
}

var assetHoldingsCmd = &cobra.Command{
	Use:   "holdings <account>",
	Short: "List every asset an account holds",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return query("asset_getHoldings", rpc.AccountParam{Account: args[0]})
	},
}

var assetFindCmd = &cobra.Command{
	Use:   "find <account> <symbol> <precision>",
	Short: "Find a held asset by symbol and precision",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		precision, err := parsePrecision(args[2])
		if err != nil {
			return err
		}
		return query("asset_findBySymbol", rpc.FindSymbolParam{
			Account: args[0], Symbol: args[1], Precision: precision,
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{assetIssueCmd, assetTransferCmd, assetDestroyCmd, assetRedeemCmd, assetBalanceCmd} {
		c.Flags().BoolVar(&assetFlags.VToken, "vtoken", false, "Operate on the vToken side of the pair")
	}
	assetRedeemCmd.Flags().StringVar(&assetFlags.ToName, "to-name", "", "Receiving account name on the external chain")

	assetCmd.AddCommand(
		assetCreateCmd, assetIssueCmd, assetTransferCmd, assetDestroyCmd, assetRedeemCmd,
		assetGetCmd, assetListCmd, assetBalanceCmd, assetHoldingsCmd, assetFindCmd,
	)
	rootCmd.AddCommand(assetCmd)
}

func assetAndAmount(assetArg, amountArg string) (types.AssetID, types.Amount, error) {
	id, err := parseAssetID(assetArg)
	if err != nil {
		return 0, types.Amount{}, err
	}
	amount, err := types.ParseAmount(amountArg)
	if err != nil {
		return 0, types.Amount{}, fmt.Errorf("invalid amount %q: %w", amountArg, err)
	}
	return id, amount, nil
}
