package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"gossipmesh/cmd/gossipsim/ui"
	"gossipmesh/internal/membership/addrcodec"
	"gossipmesh/internal/membership/config"
	"gossipmesh/internal/membership/eventlog"
	"gossipmesh/internal/membership/netsim"
	"gossipmesh/internal/membership/protocol"
)

type runFlags struct {
	nodes         int
	ticks         int
	tfail         int64
	tremove       int64
	dropRate      float64
	reorderWindow int
	killAt        int
	killNode      int
}

func runCmd() *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Simulate a gossip membership cluster and print its converged state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation(cmd.Context(), f)
		},
	}

	cmd.Flags().IntVar(&f.nodes, "nodes", 5, "Number of simulated nodes, including the introducer")
	cmd.Flags().IntVar(&f.ticks, "ticks", 200, "Number of simulated ticks to run")
	cmd.Flags().Int64Var(&f.tfail, "tfail", 5, "Heartbeat broadcast period, in ticks")
	cmd.Flags().Int64Var(&f.tremove, "tremove", 20, "Eviction threshold, in ticks since last heartbeat")
	cmd.Flags().Float64Var(&f.dropRate, "drop-rate", 0, "Probability in [0,1) that a frame is dropped in flight")
	cmd.Flags().IntVar(&f.reorderWindow, "reorder-window", 0, "Max ticks a frame may be delayed, reordering delivery")
	cmd.Flags().IntVar(&f.killAt, "kill-at", -1, "Tick at which to silently fail a node (-1 disables)")
	cmd.Flags().IntVar(&f.killNode, "kill-node", 2, "Node id to silently fail at --kill-at")

	return cmd
}

func runSimulation(ctx context.Context, f runFlags) error {
	cfg := config.Config{TFail: f.tfail, TRemove: f.tremove, Introducer: addrcodec.Introducer}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("gossipsim: invalid tunables: %w", err)
	}
	if f.nodes < 1 {
		return fmt.Errorf("gossipsim: --nodes must be >= 1")
	}

	tracer := otel.Tracer("gossipmesh/cmd/gossipsim")
	ctx, span := tracer.Start(ctx, "run-simulation")
	defer span.End()

	net := netsim.New(netsim.Options{DropRate: f.dropRate, ReorderWindow: f.reorderWindow})
	log := eventlog.New(nil)

	nodes := make([]*protocol.Node, f.nodes)
	for i := 0; i < f.nodes; i++ {
		addr := addrcodec.New(uint32(i+1), 0)
		n := protocol.New(cfg, addr, net, log)
		net.Register(n)
		nodes[i] = n
	}
	for _, n := range nodes {
		if err := n.Start(addrcodec.Introducer); err != nil {
			return fmt.Errorf("gossipsim: start node %s: %w", n.Address(), err)
		}
	}

	fmt.Println(ui.InfoMsg("run %s: %d nodes, %d ticks, tfail=%d tremove=%d", net.RunID, f.nodes, f.ticks, cfg.TFail, cfg.TRemove))

	_, tickSpan := tracer.Start(ctx, "advance-ticks")
	for tick := 0; tick < f.ticks; tick++ {
		if f.killAt >= 0 && tick == f.killAt {
			if victim := findNode(nodes, uint32(f.killNode)); victim != nil {
				victim.SetFailed(true)
				fmt.Println(ui.InfoMsg("tick %d: node %d silently failed", tick, f.killNode))
			}
		}
		net.Advance()
	}
	tickSpan.End()

	headers := []string{"node", "members", "heartbeat", "in group", "failed"}
	rows := make([][]string, 0, len(nodes))
	for _, n := range nodes {
		rows = append(rows, []string{
			n.Address().String(),
			strconv.Itoa(len(n.Snapshot())),
			strconv.FormatInt(n.Heartbeat(), 10),
			ui.Bool(n.InGroup()),
			ui.Bool(n.Failed()),
		})
	}
	fmt.Println(ui.MembershipTable(headers, rows))

	return nil
}

func findNode(nodes []*protocol.Node, id uint32) *protocol.Node {
	for _, n := range nodes {
		if n.Address().ID() == id {
			return n
		}
	}
	return nil
}
