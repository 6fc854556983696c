package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/assafd7/p2p-share/pkg/mdns"
)

var browseTimeout time.Duration

// discoverCmd browses the LAN for advertised nodes. This is operator
// tooling: pick an address from the output and pass it as --bootstrap to
// the node command. mDNS never feeds the protocol's address book directly.
var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Browse the LAN for p2p-share nodes via mDNS",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), browseTimeout)
		defer cancel()

		ch, err := mdns.Browse(ctx)
		if err != nil {
			return err
		}

		fmt.Println("Browsing for nodes...")
		found := 0
		for inst := range ch {
			found++
			fmt.Printf("- %s  %s:%d", inst.Name, inst.IPs[0], inst.Port)
			if v, ok := inst.Meta["version"]; ok {
				fmt.Printf("  (version %s)", v)
			}
			fmt.Println()
		}
		if found == 0 {
			fmt.Println("No nodes found.")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(discoverCmd)
	discoverCmd.Flags().DurationVarP(&browseTimeout, "timeout", "t", 5*time.Second, "How long to browse")
}
