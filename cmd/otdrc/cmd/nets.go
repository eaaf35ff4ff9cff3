package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceDRC/pkg/board"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/connectivity"
)

var netsCmd = &cobra.Command{
	Use:   "nets <board_file> [net_name]",
	Short: "Show board connectivity per net",
	Long: `Displays the connectivity clusters of a board.

Without net_name: lists all nets with pad and cluster counts. A net
with more than one cluster has unconnected copper.
With net_name: shows the clusters and missing connections of that net.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runNets,
}

func init() {
	rootCmd.AddCommand(netsCmd)
}

func runNets(cmd *cobra.Command, args []string) error {
	brd, err := board.ParseFile(args[0])
	if err != nil {
		return fmt.Errorf("error parsing board: %w", err)
	}

	conn := connectivity.Build(brd)
	if len(args) >= 2 {
		return showNetDetails(brd, conn, args[1])
	}
	listAllNets(brd, conn)
	return nil
}

func listAllNets(b *board.Board, conn *connectivity.Connectivity) {
	clustersPerNet := map[int]int{}
	itemsPerNet := map[int]int{}
	for _, c := range conn.Clusters() {
		clustersPerNet[c.NetCode]++
		itemsPerNet[c.NetCode] += len(c.Items)
	}

	fmt.Printf("Board: %d nets\n\n", len(b.Nets))
	fmt.Printf("%-30s %6s %6s %9s\n", "Net Name", "Pads", "Items", "Clusters")
	fmt.Println("------------------------------------------------------------")

	nets := append([]board.Net(nil), b.Nets...)
	sort.Slice(nets, func(i, j int) bool { return nets[i].Name < nets[j].Name })

	for _, n := range nets {
		if n.Code == 0 {
			continue
		}
		fmt.Printf("%-30s %6d %6d %9d\n",
			n.Name, conn.PadCountForNet(n.Code), itemsPerNet[n.Code], clustersPerNet[n.Code])
	}

	if edges := conn.UnconnectedEdges(); len(edges) > 0 {
		fmt.Printf("\n%d missing connection(s)\n", len(edges))
	}
}

func showNetDetails(b *board.Board, conn *connectivity.Connectivity, netName string) error {
	var net *board.Net
	for i := range b.Nets {
		if b.Nets[i].Name == netName {
			net = &b.Nets[i]
			break
		}
	}
	if net == nil {
		return fmt.Errorf("net '%s' not found", netName)
	}

	fmt.Printf("Net: %s (code %d)\n\n", net.Name, net.Code)

	for _, c := range conn.Clusters() {
		if c.NetCode != net.Code {
			continue
		}
		fmt.Printf("Cluster %d (%d items):\n", c.ID, len(c.Items))
		for _, it := range c.Items {
			fmt.Printf("  %s\n", it)
		}
	}

	shown := false
	for _, e := range conn.UnconnectedEdges() {
		if e.NetCode != net.Code {
			continue
		}
		if !shown {
			fmt.Println("\nMissing connections:")
			shown = true
		}
		fmt.Printf("  %s to %s\n", fmtPoint(e.From), fmtPoint(e.To))
	}
	return nil
}
