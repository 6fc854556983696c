package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/assafd7/p2p-share/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "p2p-share",
	Short: "Decentralized P2P file sharing node",
	Long:  `A peer-to-peer file sharing node with gossip-based discovery and hash-verified transfers. No central file-storage authority.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.Sugar.Error(err)
		os.Exit(1)
	}
}
