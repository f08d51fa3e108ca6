// Asset ledger node daemon.
//
// Usage:
//
//	ledgerd [--testnet --rpc-port=...]  Run node
//	ledgerd --help                       Show help
package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/Klingon-tech/assetledger/config"
	klog "github.com/Klingon-tech/assetledger/internal/log"
	"github.com/Klingon-tech/assetledger/internal/node"
)

func main() {
	cfg, flags, err := config.Load(os.Args[1:])
	if config.IsHelp(err) {
		config.PrintUsage()
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if flags.Version {
		fmt.Printf("ledgerd %s\n", config.Version)
		return
	}

	logFile := cfg.Log.File
	if logFile == "" {
		logFile = filepath.Join(cfg.LogsDir(), "ledgerd.log")
	}
	if err := klog.Init(cfg.Log.Level, cfg.Log.JSON, logFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: initializing logger: %v\n", err)
		os.Exit(1)
	}

	n, err := node.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := n.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		n.Stop()
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	n.Stop()
}
