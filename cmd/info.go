package cmd

import (
	"context"
	"fmt"
	"math/big"

	"github.com/Mohsinsiddi/presalectl/internal/chain"
	"github.com/Mohsinsiddi/presalectl/internal/contract"
	"github.com/Mohsinsiddi/presalectl/internal/dapp"
	"github.com/Mohsinsiddi/presalectl/internal/ui"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the presale token, price and your balances",
	Long: `Show the presale token, the price per ten tokens, and the selected
wallet's token balance, payment-token balance and allowance to the
presale. Read-only: nothing is signed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSession(ctx, nil, nil, logger)
		if err != nil {
			return err
		}
		defer s.app.Close()

		spin := ui.NewSpinner(cmd.ErrOrStderr(), "Reading presale…")
		spin.Start()
		rows, err := presaleInfo(ctx, s)
		spin.Stop()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.KeyValueBlock("Presale · "+chain.NetworkName(s.deploy.NetworkID), rows))
		return nil
	},
}

func presaleInfo(ctx context.Context, s *session) ([][2]string, error) {
	token := contract.NewToken(s.deploy.Token(), s.client)
	presale := contract.NewPresale(s.deploy.Factory(), s.client)
	usdc := contract.NewPaymentToken(s.deploy.USDC(), s.client)

	name, err := token.Name(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading token name: %w", err)
	}
	symbol, err := token.Symbol(ctx)
	if err != nil {
		return nil, err
	}
	decimals, err := token.Decimals(ctx)
	if err != nil {
		return nil, err
	}
	price, err := presale.PresalePrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading presale price: %w", err)
	}
	paySymbol, err := usdc.Symbol(ctx)
	if err != nil {
		return nil, err
	}
	payDecimals, err := usdc.Decimals(ctx)
	if err != nil {
		return nil, err
	}

	rows := [][2]string{
		{"Token", fmt.Sprintf("%s (%s)", name, symbol)},
		{"Token address", ui.Addr(s.deploy.TokenAddress)},
		{"Presale", ui.Addr(s.deploy.FactoryAddress)},
		{"Price / 10 tokens", chain.FormatUnits(price, payDecimals) + " " + paySymbol},
		{"RPC", ui.Meta(s.rpcURL)},
	}

	w := s.manager.Default()
	if name := walletName(); name != "" {
		w, err = s.manager.Get(name)
		if err != nil {
			return nil, err
		}
	}
	if w == nil {
		return append(rows, [2]string{"Wallet", ui.Meta("none")}), nil
	}

	account := common.HexToAddress(w.Address)
	balance, err := token.BalanceOf(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("reading token balance: %w", err)
	}
	payBalance, err := usdc.BalanceOf(ctx, account)
	if err != nil {
		return nil, err
	}
	allowance, err := usdc.Allowance(ctx, account, s.deploy.Factory())
	if err != nil {
		return nil, err
	}

	return append(rows,
		[2]string{"Wallet", w.Name + " " + ui.Addr(w.Address)},
		[2]string{"Balance", chain.WholeUnits(balance, decimals).String() + " " + symbol},
		[2]string{paySymbol + " balance", chain.FormatUnits(payBalance, payDecimals)},
		[2]string{"Allowance", chain.FormatUnits(allowance, payDecimals) + " " + paySymbol},
		[2]string{"Buys up to", maxPurchase(payBalance, price).String() + " " + symbol},
	), nil
}

// maxPurchase is how many tokens balance pays for at price per ticket.
func maxPurchase(balance, price *big.Int) *big.Int {
	if price == nil || price.Sign() == 0 {
		return new(big.Int)
	}
	tickets := new(big.Int).Quo(balance, price)
	return tickets.Mul(tickets, big.NewInt(dapp.TicketSize))
}
