package cmd

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"

	"github.com/Mohsinsiddi/presalectl/internal/chain"
	"github.com/Mohsinsiddi/presalectl/internal/config"
	"github.com/Mohsinsiddi/presalectl/internal/contract"
	"github.com/Mohsinsiddi/presalectl/internal/ens"
	"github.com/Mohsinsiddi/presalectl/internal/ui"
	"github.com/Mohsinsiddi/presalectl/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

var tokenYes bool

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Owner operations on the presale token",
	Long: `Run the owner operations of the presale token with the selected signing
wallet. Amounts are in whole tokens and may carry decimals. On mainnet,
accounts may be given as ENS names.

  presalectl token mint <amount>
  presalectl token burn <amount>
  presalectl token transfer <to> <amount>
  presalectl token lock <account>
  presalectl token unlock <account>`,
}

// tokenOp is an open token binding plus what is needed to report on it.
type tokenOp struct {
	token    *contract.Token
	client   *chain.EVMClient
	deploy   *config.Deployment
	decimals uint8
	symbol   string
	from     string
}

func openTokenOp(ctx context.Context, cmd *cobra.Command, gas uint64) (*tokenOp, error) {
	deploy, err := config.LoadDeployment(envFile)
	if err != nil {
		return nil, err
	}
	mgr, err := newWalletManager()
	if err != nil {
		return nil, err
	}
	w, err := loadSigningWallet(mgr)
	if err != nil {
		return nil, err
	}
	url, err := pickRPC(ctx, deploy)
	if err != nil {
		return nil, err
	}

	var approver wallet.Approver = wallet.AutoApprove
	if !tokenYes {
		approver = ui.NewPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())
	}
	client := chain.NewEVMClient(url)
	token := contract.NewToken(deploy.Token(), client,
		contract.WithSigner(wallet.NewSigner(w, mgr.Keys(), approver)),
		contract.WithFallbackGas(gas),
		contract.WithLogger(logger),
	)

	decimals, err := token.Decimals(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading token decimals: %w", err)
	}
	symbol, err := token.Symbol(ctx)
	if err != nil {
		return nil, err
	}
	return &tokenOp{
		token:    token,
		client:   client,
		deploy:   deploy,
		decimals: decimals,
		symbol:   symbol,
		from:     w.Address,
	}, nil
}

// parseAmount converts a whole-token amount into base units.
func (op *tokenOp) parseAmount(s string) (*big.Int, error) {
	v, ok := chain.ParseUnits(s, op.decimals)
	if !ok || v.Sign() == 0 {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return v, nil
}

// resolveAccount accepts a hex address, or an ENS name when the deployment
// is on mainnet.
func (op *tokenOp) resolveAccount(ctx context.Context, s string) (common.Address, error) {
	if common.IsHexAddress(s) {
		return common.HexToAddress(s), nil
	}
	if !ens.IsName(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	if op.deploy.NetworkID != ens.MainnetID {
		return common.Address{}, fmt.Errorf("ENS name %q can only be used on %s", s, chain.NetworkName(ens.MainnetID))
	}
	addr, err := ens.Resolve(ctx, op.client, s)
	if err != nil {
		return common.Address{}, err
	}
	logger.Debug("resolved ENS name", "name", s, "address", addr.Hex())
	return addr, nil
}

// finish waits for tx to be mined and prints a summary.
func (op *tokenOp) finish(ctx context.Context, cmd *cobra.Command, title string, tx *contract.PendingTx, rows [][2]string) error {
	ctx, cancel := context.WithTimeout(ctx, config.TxConfirmTimeout)
	defer cancel()

	spin := ui.NewSpinner(cmd.ErrOrStderr(), "Waiting for "+ui.TruncateAddr(tx.Hash)+" to be mined…")
	spin.Start()
	receipt, err := tx.Wait(ctx)
	spin.Stop()
	if err != nil {
		return fmt.Errorf("%s: %w", title, err)
	}

	rows = append(rows,
		[2]string{"From", ui.Addr(op.from)},
		[2]string{"Hash", ui.Addr(tx.Hash)},
		[2]string{"Block", fmt.Sprintf("%d", receipt.BlockNumber)},
		[2]string{"Gas used", fmt.Sprintf("%d", receipt.GasUsed)},
	)
	if url := chain.TxURL(op.deploy.NetworkID, tx.Hash); url != "" {
		rows = append(rows, [2]string{"Explorer", url})
	}
	fmt.Fprintln(cmd.OutOrStdout(), ui.KeyValueBlock(title+" ✓", rows))
	return nil
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt)
}

var tokenMintCmd = &cobra.Command{
	Use:   "mint <amount>",
	Short: "Mint tokens to the owner",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd)
		defer stop()

		op, err := openTokenOp(ctx, cmd, config.GasLimitERC20Mint)
		if err != nil {
			return err
		}
		raw, err := op.parseAmount(args[0])
		if err != nil {
			return err
		}
		tx, err := op.token.Mint(ctx, raw)
		if err != nil {
			return mapTxError("mint", err)
		}
		return op.finish(ctx, cmd, "Minted", tx, [][2]string{
			{"Amount", args[0] + " " + op.symbol},
		})
	},
}

var tokenBurnCmd = &cobra.Command{
	Use:   "burn <amount>",
	Short: "Burn tokens held by the selected wallet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd)
		defer stop()

		op, err := openTokenOp(ctx, cmd, config.GasLimitERC20Transfer)
		if err != nil {
			return err
		}
		raw, err := op.parseAmount(args[0])
		if err != nil {
			return err
		}
		tx, err := op.token.Burn(ctx, raw)
		if err != nil {
			return mapTxError("burn", err)
		}
		return op.finish(ctx, cmd, "Burned", tx, [][2]string{
			{"Amount", args[0] + " " + op.symbol},
		})
	},
}

var tokenTransferCmd = &cobra.Command{
	Use:   "transfer <to> <amount>",
	Short: "Transfer tokens from the selected wallet",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd)
		defer stop()

		op, err := openTokenOp(ctx, cmd, config.GasLimitERC20Transfer)
		if err != nil {
			return err
		}
		to, err := op.resolveAccount(ctx, args[0])
		if err != nil {
			return err
		}
		raw, err := op.parseAmount(args[1])
		if err != nil {
			return err
		}
		tx, err := op.token.Transfer(ctx, to, raw)
		if err != nil {
			return mapTxError("transfer", err)
		}
		return op.finish(ctx, cmd, "Transferred", tx, [][2]string{
			{"To", ui.Addr(to.Hex())},
			{"Amount", args[1] + " " + op.symbol},
		})
	},
}

func lockCommand(use, short, title string, unlock bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <account>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd)
			defer stop()

			op, err := openTokenOp(ctx, cmd, config.GasLimitERC20Mint)
			if err != nil {
				return err
			}
			account, err := op.resolveAccount(ctx, args[0])
			if err != nil {
				return err
			}
			var tx *contract.PendingTx
			if unlock {
				tx, err = op.token.Unlock(ctx, account)
			} else {
				tx, err = op.token.Lock(ctx, account)
			}
			if err != nil {
				return mapTxError(use, err)
			}
			return op.finish(ctx, cmd, title, tx, [][2]string{
				{"Account", ui.Addr(account.Hex())},
			})
		},
	}
}

// mapTxError words a failed submission the way the purchase flow does.
func mapTxError(op string, err error) error {
	if chain.IsUserRejected(err) {
		return fmt.Errorf("%s rejected in wallet", op)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func init() {
	tokenCmd.PersistentFlags().BoolVarP(&tokenYes, "yes", "y", false, "sign without asking")
	tokenCmd.AddCommand(
		tokenMintCmd,
		tokenBurnCmd,
		tokenTransferCmd,
		lockCommand("lock", "Block transfers out of an account", "Locked", false),
		lockCommand("unlock", "Allow transfers out of an account again", "Unlocked", true),
	)
}
