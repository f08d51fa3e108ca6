package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Klingon-tech/assetledger/internal/dispatch"
	"github.com/Klingon-tech/assetledger/internal/rpc"
	"github.com/Klingon-tech/assetledger/pkg/types"
)

// ── price ───────────────────────────────────────────────────────────────

var priceCmd = &cobra.Command{
	Use:   "price",
	Short: "Read and set oracle prices",
}

var priceGetCmd = &cobra.Command{
	Use:   "get [asset]",
	Short: "Show one price, or every price when no asset is given",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var p rpc.PriceParam
		if len(args) == 1 {
			id, err := parseAssetID(args[0])
			if err != nil {
				return err
			}
			p.AssetID = &id
		}
		return query("price_get", p)
	},
}

var priceSetCmd = &cobra.Command{
	Use:   "set <asset> <price>",
	Short: "Set the price of an asset (root only)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, price, err := assetAndAmount(args[0], args[1])
		if err != nil {
			return err
		}
		return callSigned("price_set", dispatch.PriceParams{Asset: &id, Price: price})
	},
}

// ── voucher ─────────────────────────────────────────────────────────────

var voucherCmd = &cobra.Command{
	Use:   "voucher",
	Short: "Manage the voucher pool",
}

var voucherIssueCmd = &cobra.Command{
	Use:   "issue <account> <amount>",
	Short: "Grant vouchers from the pool (root only)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := voucherParams(args[0], args[1])
		if err != nil {
			return err
		}
		return callSigned("voucher_issue", p)
	},
}

var voucherDestroyCmd = &cobra.Command{
	Use:   "destroy <account> <amount>",
	Short: "Return vouchers to the pool (root only)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := voucherParams(args[0], args[1])
		if err != nil {
			return err
		}
		return callSigned("voucher_destroy", p)
	},
}

var voucherResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Refill the pool and zero every balance (root only)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return callSigned("voucher_reset", struct{}{})
	},
}

var voucherBalanceCmd = &cobra.Command{
	Use:   "balance <account>",
	Short: "Show an account's voucher balance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return query("voucher_getBalance", rpc.AccountParam{Account: args[0]})
	},
}

var voucherInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show pool totals and holders",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return query("voucher_getInfo", nil)
	},
}

// ── redeem ──────────────────────────────────────────────────────────────

var redeemCmd = &cobra.Command{
	Use:   "redeem",
	Short: "Inspect and acknowledge queued redemptions",
}

var redeemPendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List redemptions awaiting the bridge",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return query("redeem_pending", nil)
	},
}

var redeemAckCmd = &cobra.Command{
	Use:   "ack <seq>",
	Short: "Mark a redemption as processed (root only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		seq, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid sequence %q: %w", args[0], err)
		}
		return callSigned("redeem_ack", dispatch.AckParams{Seq: seq})
	},
}

// ── events / status ─────────────────────────────────────────────────────

var eventsFlags struct {
	Kind  string
	Limit int
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show recent ledger events",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return query("events_recent", rpc.EventsParam{Limit: eventsFlags.Limit, Kind: eventsFlags.Kind})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show node and ledger status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := client()
		var info rpc.NodeInfoResult
		if err := c.Call("node_getInfo", nil, &info); err != nil {
			return fmt.Errorf("node_getInfo via %s: %w", c.Endpoint(), err)
		}
		fmt.Printf("Version:           %s\n", info.Version)
		fmt.Printf("Network:           %s\n", info.Network)
		fmt.Printf("Chain:             %s (%s)\n", info.ChainName, info.ChainID)
		fmt.Printf("Genesis:           %s\n", info.GenesisHash)
		fmt.Printf("Assets:            %d (next id %d)\n", info.Assets, info.NextAssetID)
		fmt.Printf("Vouchers:          %s of %s remaining\n", info.VoucherRemaining, info.VoucherTotal)
		fmt.Printf("Last event:        %d\n", info.LastEventSeq)
		for _, acct := range info.RootAccounts {
			fmt.Printf("Root account:      %s\n", acct)
		}
		return nil
	},
}

func init() {
	priceCmd.AddCommand(priceGetCmd, priceSetCmd)
	voucherCmd.AddCommand(voucherIssueCmd, voucherDestroyCmd, voucherResetCmd, voucherBalanceCmd, voucherInfoCmd)
	redeemCmd.AddCommand(redeemPendingCmd, redeemAckCmd)

	eventsCmd.Flags().StringVar(&eventsFlags.Kind, "kind", "", "Only show events of this kind")
	eventsCmd.Flags().IntVar(&eventsFlags.Limit, "limit", 20, "Maximum number of events")

	rootCmd.AddCommand(priceCmd, voucherCmd, redeemCmd, eventsCmd, statusCmd)
}

func voucherParams(account, amountArg string) (dispatch.VoucherParams, error) {
	amount, err := types.ParseAmount(amountArg)
	if err != nil {
		return dispatch.VoucherParams{}, fmt.Errorf("invalid amount %q: %w", amountArg, err)
	}
	return dispatch.VoucherParams{Account: account, Amount: amount}, nil
}
