package cmd

import (
	"fmt"
	"sort"

	"github.com/Mohsinsiddi/presalectl/internal/config"
	"github.com/Mohsinsiddi/presalectl/internal/rpc"
	"github.com/Mohsinsiddi/presalectl/internal/ui"
	"github.com/spf13/cobra"
)

var envOut string

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Create and export the deployment environment",
	Long: `The deployment is described by TOKEN_ADDRESS, FACTORY_ADDRESS,
USDC_ADDRESS, NETWORK_ID and RPC_URLS, read from the process environment
and the --env file.`,
}

var envInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the --env file interactively",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults := ui.WizardResult{RPCAlgorithm: cfg.RPCAlgorithm}
		if d, err := config.LoadDeployment(envFile); err == nil {
			defaults.NetworkID = d.NetworkID
			defaults.TokenAddress = d.TokenAddress
			defaults.FactoryAddress = d.FactoryAddress
			defaults.USDCAddress = d.USDCAddress
			if len(d.RPCURLs) > 0 {
				defaults.RPCURL = d.RPCURLs[0]
			}
		}

		res, err := ui.RunWizard(defaults)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if res == nil {
			fmt.Fprintln(out, ui.Meta("Cancelled."))
			return nil
		}

		algo, err := rpc.ParseAlgorithm(res.RPCAlgorithm)
		if err != nil {
			return err
		}
		deploy := &config.Deployment{
			TokenAddress:   res.TokenAddress,
			FactoryAddress: res.FactoryAddress,
			USDCAddress:    res.USDCAddress,
			NetworkID:      res.NetworkID,
			RPCURLs:        []string{res.RPCURL},
			PollInterval:   config.DefaultPollInterval,
		}
		if err := deploy.Validate(); err != nil {
			return err
		}
		if err := config.WriteEnvFile(envFile, deploy); err != nil {
			return err
		}
		cfg.RPCAlgorithm = string(algo)
		if err := cfg.Save(); err != nil {
			return err
		}

		fmt.Fprintln(out, ui.Success("Wrote "+envFile))
		fmt.Fprintln(out, ui.Hint("Check the deployment with: presalectl info"))
		return nil
	},
}

var envWriteCmd = &cobra.Command{
	Use:   "write",
	Short: "Export the deployment for a web frontend build",
	Long: `Write the current deployment, with the REACT_APP_ copies a frontend build
reads, to --out.

Examples:
  presalectl env write --out frontend/.env`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deploy, err := config.LoadDeployment(envFile)
		if err != nil {
			return err
		}
		if err := config.WriteEnvFile(envOut, deploy); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success("Wrote "+envOut))
		return nil
	},
}

var envShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the deployment environment",
	RunE: func(cmd *cobra.Command, args []string) error {
		deploy, err := config.LoadDeployment(envFile)
		if err != nil {
			return err
		}
		env := deploy.EnvMap()
		keys := make([]string, 0, len(env))
		for k := range env {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", k, env[k])
		}
		return nil
	},
}

func init() {
	envWriteCmd.Flags().StringVarP(&envOut, "out", "o", "frontend/.env", "file to write")
	envCmd.AddCommand(envInitCmd, envWriteCmd, envShowCmd)
}
