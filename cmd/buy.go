package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"

	"github.com/Mohsinsiddi/presalectl/internal/chain"
	"github.com/Mohsinsiddi/presalectl/internal/dapp"
	"github.com/Mohsinsiddi/presalectl/internal/ui"
	"github.com/Mohsinsiddi/presalectl/internal/wallet"
	"github.com/spf13/cobra"
)

var (
	buyAmount int64
	buyYes    bool
)

var buyCmd = &cobra.Command{
	Use:   "buy",
	Short: "Approve the payment token and purchase presale tokens",
	Long: `Buy presale tokens without the full screen. presalectl approves the
presale to spend price × (amount / 10) of the payment token, then calls
purchaseToken(amount). Each wallet request is confirmed on the terminal
unless --yes is given.

Examples:
  presalectl buy --amount 20
  presalectl buy --amount 100 --wallet alice --yes`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if buyAmount <= 0 {
			return fmt.Errorf("--amount must be a positive number of tokens")
		}
		out := cmd.OutOrStdout()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		var approver wallet.Approver = wallet.AutoApprove
		if !buyYes {
			approver = ui.NewPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())
		}
		s, err := openSession(ctx, approver, nil, logger)
		if err != nil {
			return err
		}
		defer s.app.Close()

		if err := s.app.Connect(ctx); err != nil {
			return err
		}
		st := s.app.State()
		switch {
		case st.NoWallet:
			return fmt.Errorf("%w; add one with: presalectl wallet add <name> --key <hex>", wallet.ErrNoWallet)
		case st.NetworkError != "":
			return errors.New(st.NetworkError)
		case !st.Connected():
			fmt.Fprintln(out, ui.Meta("Connection rejected."))
			return nil
		}

		total := dapp.TotalPrice(st.Token.UnitPrice, buyAmount)
		fmt.Fprintln(out, ui.KeyValueBlock("Purchase Preview", [][2]string{
			{"Account", ui.Addr(st.Account)},
			{"Network", chain.NetworkName(st.Network)},
			{"Amount", fmt.Sprintf("%d %s", buyAmount, st.Token.Symbol)},
			{"Total price", total.String()},
			{"Presale", ui.Addr(s.deploy.FactoryAddress)},
		}))
		if buyAmount%dapp.TicketSize != 0 {
			fmt.Fprintln(out, ui.Warn(fmt.Sprintf("Price is charged per %d tokens; %d is charged as %d.",
				dapp.TicketSize, buyAmount, buyAmount/dapp.TicketSize*dapp.TicketSize)))
		}

		onState, stopSpinner := confirmationSpinner(cmd.ErrOrStderr())
		unsubscribe := s.app.Subscribe(onState)
		outcome, err := s.app.Purchase(ctx, buyAmount)
		unsubscribe()
		stopSpinner()
		if err != nil {
			return err
		}

		st = s.app.State()
		switch outcome {
		case dapp.OutcomeConfirmed:
			rows := [][2]string{
				{"Hash", ui.Addr(st.LastTx.Hash)},
				{"Amount", fmt.Sprintf("%d %s", buyAmount, st.Token.Symbol)},
				{"Balance", st.WholeBalance().String() + " " + st.Token.Symbol},
			}
			if url := chain.TxURL(st.Network, st.LastTx.Hash); url != "" {
				rows = append(rows, [2]string{"Explorer", url})
			}
			fmt.Fprintln(out, ui.KeyValueBlock("Purchase Confirmed ✓", rows))
		case dapp.OutcomeRejected:
			fmt.Fprintln(out, ui.Meta("Request rejected in wallet."))
		case dapp.OutcomeFailed:
			return errors.New(st.TransactionError)
		default:
			return errors.New("purchase was not started")
		}
		return nil
	},
}

// confirmationSpinner shows a spinner once the purchase transaction is
// submitted. The approval step is left alone so terminal prompts stay
// readable.
func confirmationSpinner(w io.Writer) (onState func(dapp.State), stop func()) {
	var (
		mu   sync.Mutex
		spin *ui.Spinner
	)
	stop = func() {
		mu.Lock()
		defer mu.Unlock()
		if spin != nil {
			spin.Stop()
		}
	}
	onState = func(st dapp.State) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case spin == nil && st.Phase == dapp.PhaseSubmitted && st.PendingTx != nil:
			spin = ui.NewSpinner(w, "Waiting for "+ui.TruncateAddr(st.PendingTx.Hash)+" to be mined…")
			spin.Start()
		case spin != nil && !st.InTransaction:
			spin.Stop()
		}
	}
	return onState, stop
}

func init() {
	buyCmd.Flags().Int64VarP(&buyAmount, "amount", "a", 0, "number of tokens to buy (priced per 10)")
	buyCmd.Flags().BoolVarP(&buyYes, "yes", "y", false, "approve wallet requests without asking")
	buyCmd.MarkFlagRequired("amount") //nolint:errcheck
}
