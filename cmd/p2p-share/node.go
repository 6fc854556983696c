package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/c-bata/go-prompt"
	"github.com/spf13/cobra"

	"github.com/assafd7/p2p-share/node"
	"github.com/assafd7/p2p-share/pkg/config"
	"github.com/assafd7/p2p-share/pkg/logger"
	"github.com/assafd7/p2p-share/pkg/monitor"
	"github.com/assafd7/p2p-share/pkg/peers"
)

var (
	configPath      string
	listenAddr      string
	bootstrapAddrs  []string
	downloadsDir    string
	fileToShare     string
	hashToGet       string
	nodeInteractive bool
	enableMDNS      bool
)

var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Start a sharing node",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if listenAddr != "" {
			addr, err := peers.ParseAddr(listenAddr)
			if err != nil {
				return fmt.Errorf("bad --addr: %w", err)
			}
			cfg.Network.Host = addr.Host
			cfg.Network.Port = addr.Port
		}
		if len(bootstrapAddrs) > 0 {
			cfg.Network.Bootstrap = bootstrapAddrs
		}
		if downloadsDir != "" {
			cfg.Storage.DownloadsDir = downloadsDir
		}
		if enableMDNS {
			cfg.MDNS.Enabled = true
		}

		nodeCfg, err := node.ConfigFrom(cfg)
		if err != nil {
			return err
		}

		logger.Sugar.Infof("Starting node on %s:%d", nodeCfg.Host, nodeCfg.Port)
		n, err := node.New(nodeCfg)
		if err != nil {
			return err
		}
		n.Start()
		go monitor.LogPeriodic(1 * time.Minute)

		if fileToShare != "" {
			hash, err := n.ShareFile(fileToShare)
			if err != nil {
				logger.Sugar.Errorf("Failed to share file: %v", err)
			} else {
				fmt.Printf("Shared %s\nHash: %s\n", fileToShare, hash)
			}
		}
		if hashToGet != "" {
			path, err := n.RequestFile(hashToGet, "")
			if err != nil {
				logger.Sugar.Errorf("Failed to download file: %v", err)
			} else {
				fmt.Printf("Downloaded to %s\n", path)
			}
		}

		if nodeInteractive {
			fmt.Println("P2P Share Node Interactive Shell")
			fmt.Println("Type 'help' for commands.")

			prompt.New(
				func(in string) { nodeExecutor(in, n) },
				nodeCompleter,
				prompt.OptionPrefix("p2p> "),
				prompt.OptionTitle("P2P Share Node"),
			).Run()
		} else {
			select {}
		}
		return nil
	},
}

func nodeExecutor(in string, n *node.Node) {
	in = strings.TrimSpace(in)
	blocks := strings.Fields(in)
	if len(blocks) == 0 {
		return
	}

	switch blocks[0] {
	case "exit", "quit":
		fmt.Println("Stopping node...")
		n.Stop()
		os.Exit(0)
	case "status":
		fmt.Println(n.Status())
	case "peers":
		infos := n.Peers()
		if len(infos) == 0 {
			fmt.Println("No known peers.")
			return
		}
		fmt.Println("Known peers:")
		for _, p := range infos {
			fmt.Printf("- %s (last seen %s ago)\n", p.Addr, time.Since(p.LastSeen).Round(time.Second))
		}
	case "files":
		files := n.Files()
		if len(files) == 0 {
			fmt.Println("No known files.")
			return
		}
		fmt.Println("Known files:")
		for _, f := range files {
			marker := ""
			if f.Local {
				marker = " [local]"
			}
			fmt.Printf("- %s  %s  peers=%d%s\n", f.Name, f.Hash, f.PeerCount, marker)
		}
	case "share":
		if len(blocks) < 2 {
			fmt.Println("Usage: share <file_path>")
			return
		}
		hash, err := n.ShareFile(blocks[1])
		if err != nil {
			fmt.Printf("Error sharing file: %v\n", err)
		} else {
			fmt.Printf("File shared. Hash: %s\n", hash)
		}
	case "get":
		if len(blocks) < 2 {
			fmt.Println("Usage: get <file_hash> [save_as]")
			return
		}
		saveAs := ""
		if len(blocks) > 2 {
			saveAs = blocks[2]
		}
		path, err := n.RequestFile(blocks[1], saveAs)
		if err != nil {
			fmt.Printf("Error downloading file: %v\n", err)
		} else {
			fmt.Printf("Downloaded to %s\n", path)
		}
	case "push":
		if len(blocks) < 3 {
			fmt.Println("Usage: push <peer_host:port> <file_hash>")
			return
		}
		addr, err := peers.ParseAddr(blocks[1])
		if err != nil {
			fmt.Printf("Bad peer address: %v\n", err)
			return
		}
		if err := n.PushFile(addr, blocks[2]); err != nil {
			fmt.Printf("Error pushing file: %v\n", err)
		} else {
			fmt.Println("File pushed.")
		}
	case "discover":
		n.DiscoverPeers()
		fmt.Println("Discovery round sent.")
	case "help":
		fmt.Println("Available commands:")
		fmt.Println("  status                  - Show node status")
		fmt.Println("  peers                   - List known peers")
		fmt.Println("  files                   - List known files")
		fmt.Println("  share <path>            - Share a local file")
		fmt.Println("  get <hash> [save_as]    - Download a file by hash")
		fmt.Println("  push <host:port> <hash> - Push a held file to a peer")
		fmt.Println("  discover                - Send a discovery round now")
		fmt.Println("  exit                    - Stop node and exit")
	default:
		fmt.Println("Unknown command: " + blocks[0])
	}
}

func nodeCompleter(d prompt.Document) []prompt.Suggest {
	s := []prompt.Suggest{
		{Text: "status", Description: "Show node status"},
		{Text: "peers", Description: "List known peers"},
		{Text: "files", Description: "List known files"},
		{Text: "share", Description: "Share a local file"},
		{Text: "get", Description: "Download a file by hash"},
		{Text: "push", Description: "Push a held file to a peer"},
		{Text: "discover", Description: "Send a discovery round"},
		{Text: "exit", Description: "Stop the node"},
		{Text: "help", Description: "Show help"},
	}
	return prompt.FilterHasPrefix(s, d.GetWordBeforeCursor(), true)
}

func init() {
	rootCmd.AddCommand(nodeCmd)
	nodeCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to a TOML config file")
	nodeCmd.Flags().StringVarP(&listenAddr, "addr", "a", "", "Discovery address to listen on (host:port); transfer uses port+1")
	nodeCmd.Flags().StringSliceVarP(&bootstrapAddrs, "bootstrap", "b", nil, "Bootstrap node addresses (host:port)")
	nodeCmd.Flags().StringVarP(&downloadsDir, "downloads", "d", "", "Directory for downloaded files")
	nodeCmd.Flags().StringVarP(&fileToShare, "share", "s", "", "Path to a file to share immediately")
	nodeCmd.Flags().StringVarP(&hashToGet, "get", "g", "", "File hash to download immediately")
	nodeCmd.Flags().BoolVarP(&nodeInteractive, "interactive", "i", false, "Start in interactive mode")
	nodeCmd.Flags().BoolVar(&enableMDNS, "mdns", false, "Advertise this node on the LAN via mDNS")
}
