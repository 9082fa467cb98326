package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Mohsinsiddi/presalectl/internal/chain"
	"github.com/Mohsinsiddi/presalectl/internal/config"
	"github.com/Mohsinsiddi/presalectl/internal/rpc"
	"github.com/Mohsinsiddi/presalectl/internal/ui"
	"github.com/spf13/cobra"
)

var rpcCmd = &cobra.Command{
	Use:   "rpc",
	Short: "Manage RPC endpoints",
	Long: `Manage the RPC endpoints used next to RPC_URLS. Custom endpoints are saved
per network id and take part in selection whenever the deployment runs on
that network.`,
}

var rpcAddCmd = &cobra.Command{
	Use:   "add <network-id> <url>",
	Short: "Add a custom RPC URL for a network",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		network, url := args[0], args[1]
		if err := checkNetworkID(network); err != nil {
			return err
		}
		if err := cfg.AddRPC(network, url); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Added RPC for %s: %s", ui.ChainName(chain.NetworkName(network)), url)))
		return nil
	},
}

var rpcRemoveCmd = &cobra.Command{
	Use:   "remove <network-id> <url>",
	Short: "Remove a custom RPC URL",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		network, url := args[0], args[1]
		if err := cfg.RemoveRPC(network, url); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Removed RPC for %s: %s", chain.NetworkName(network), url)))
		return nil
	},
}

var rpcListCmd = &cobra.Command{
	Use:   "list [network-id]",
	Short: "List the RPCs used for a network",
	Long:  "List RPC_URLS and the saved custom RPCs. The network defaults to NETWORK_ID.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		network, deployURLs, err := rpcTarget(args)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, ui.StyleTitle.Render("RPCs for "+chain.NetworkName(network)))

		if len(deployURLs) > 0 {
			fmt.Fprintln(out, ui.StyleHeader.Render("From RPC_URLS:"))
			for _, u := range deployURLs {
				fmt.Fprintf(out, "  %s\n", u)
			}
		}
		custom := cfg.GetRPCs(network)
		if len(custom) > 0 {
			fmt.Fprintln(out, ui.StyleHeader.Render("Custom:"))
			for _, u := range custom {
				fmt.Fprintf(out, "  %s\n", u)
			}
		}
		if len(deployURLs)+len(custom) == 0 {
			fmt.Fprintln(out, ui.Info("No RPCs configured for this network."))
		}
		fmt.Fprintln(out, ui.Meta("Algorithm: "+cfg.RPCAlgorithm))
		return nil
	},
}

var rpcBenchCmd = &cobra.Command{
	Use:     "bench [network-id]",
	Aliases: []string{"benchmark"},
	Short:   "Probe every RPC for a network and show which one would be used",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		network, urls, err := rpcTarget(args)
		if err != nil {
			return err
		}
		urls = append(urls, cfg.GetRPCs(network)...)
		if len(urls) == 0 {
			return fmt.Errorf("no RPCs configured for %s", chain.NetworkName(network))
		}
		algo, err := rpc.ParseAlgorithm(cfg.RPCAlgorithm)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), config.RPCSelectTimeout)
		defer cancel()

		spin := ui.NewSpinner(cmd.ErrOrStderr(), fmt.Sprintf("Probing %d RPC(s)…", len(urls)))
		spin.Start()
		results := rpc.Probe(ctx, urls)
		spin.Stop()

		winner, _ := rpc.Pick(results, algo)

		t := ui.NewTable([]ui.Column{
			{Title: "RPC URL", Width: 40},
			{Title: "Latency", Width: 10, Align: ui.AlignRight},
			{Title: "Block #", Width: 12, Align: ui.AlignRight},
			{Title: "Status", Width: 10},
			{Title: "", Width: 8},
		})
		for _, r := range results {
			status := ui.Success("healthy")
			latency := fmt.Sprintf("%dms", r.Latency.Milliseconds())
			block := strconv.FormatUint(r.BlockNumber, 10)
			switch {
			case r.Err != nil:
				status, latency, block = ui.Err("down"), "-", "-"
			case r.Stale:
				status = ui.Warn("stale")
			}
			mark := ""
			if winner != nil && winner.URL == r.URL {
				mark = ui.StyleSuccess.Render("← " + string(algo))
			}
			t.AddRow(ui.Row{r.URL, latency, block, status, mark})
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, ui.StyleTitle.Render("RPCs for "+chain.NetworkName(network)))
		fmt.Fprintln(out, t.Render())
		if winner == nil {
			return rpc.ErrNoHealthyRPC
		}
		return nil
	},
}

var rpcAlgorithmCmd = &cobra.Command{
	Use:   "algorithm",
	Short: "Show or set the RPC selection algorithm",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), cfg.RPCAlgorithm)
		return nil
	},
}

var rpcAlgorithmSetCmd = &cobra.Command{
	Use:       "set <fastest|failover>",
	Short:     "Set the RPC selection algorithm",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{string(rpc.AlgorithmFastest), string(rpc.AlgorithmFailover)},
	RunE: func(cmd *cobra.Command, args []string) error {
		algo, err := rpc.ParseAlgorithm(args[0])
		if err != nil {
			return err
		}
		cfg.RPCAlgorithm = string(algo)
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("RPC algorithm set to %q", algo)))
		return nil
	},
}

// rpcTarget resolves the network a command is about. Without an argument it
// is the deployment's network. The deployment's RPC_URLS are only returned
// when they serve that network.
func rpcTarget(args []string) (network string, deployURLs []string, err error) {
	deploy, derr := config.LoadDeployment(envFile)
	if len(args) == 1 {
		network = args[0]
		if err := checkNetworkID(network); err != nil {
			return "", nil, err
		}
	} else {
		if derr != nil {
			return "", nil, fmt.Errorf("no network given and the deployment could not be read: %w", derr)
		}
		network = deploy.NetworkID
	}
	if derr == nil && deploy.NetworkID == network {
		deployURLs = deploy.RPCURLs
	}
	return network, deployURLs, nil
}

func checkNetworkID(id string) error {
	if _, err := strconv.ParseUint(id, 10, 64); err != nil {
		return fmt.Errorf("network id %q is not a number", id)
	}
	return nil
}

func init() {
	rpcAlgorithmCmd.AddCommand(rpcAlgorithmSetCmd)
	rpcCmd.AddCommand(rpcAddCmd, rpcRemoveCmd, rpcListCmd, rpcBenchCmd, rpcAlgorithmCmd)
}
