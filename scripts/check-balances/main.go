// check-balances: reads the deployment from .env and prints, for a set of
// accounts, the presale token balance, payment-token balance and allowance
// to the presale. Accounts are queried in parallel.
//
// Run from the module root:
//
//	go run ./scripts/check-balances [address...]
//
// Without arguments the first three Hardhat accounts are used.
package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/Mohsinsiddi/presalectl/internal/chain"
	"github.com/Mohsinsiddi/presalectl/internal/config"
	"github.com/Mohsinsiddi/presalectl/internal/contract"
	"github.com/Mohsinsiddi/presalectl/internal/rpc"
	"github.com/ethereum/go-ethereum/common"
)

var defaultAccounts = []string{
	"0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
	"0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
	"0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC",
}

const rpcTimeout = 12 * time.Second

type result struct {
	account   string
	balance   string
	payment   string
	allowance string
	err       string
}

func main() {
	deploy, err := config.LoadDeployment(config.DefaultEnvFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	accounts := os.Args[1:]
	if len(accounts) == 0 {
		accounts = defaultAccounts
	}

	ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
	defer cancel()

	url, err := rpc.Select(ctx, deploy.RPCURLs, rpc.AlgorithmFastest)
	if err != nil {
		fmt.Fprintln(os.Stderr, "selecting RPC:", err)
		os.Exit(1)
	}
	client := chain.NewEVMClient(url)
	token := contract.NewToken(deploy.Token(), client)
	usdc := contract.NewPaymentToken(deploy.USDC(), client)

	decimals, err := token.Decimals(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "reading token decimals:", err)
		os.Exit(1)
	}
	payDecimals, err := usdc.Decimals(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "reading payment decimals:", err)
		os.Exit(1)
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results []result
	)
	for _, account := range accounts {
		wg.Add(1)
		go func(account string) {
			defer wg.Done()

			r := result{account: account, balance: "-", payment: "-", allowance: "-"}
			defer func() {
				mu.Lock()
				results = append(results, r)
				mu.Unlock()
			}()

			if !common.IsHexAddress(account) {
				r.err = "invalid address"
				return
			}
			addr := common.HexToAddress(account)

			bal, err := token.BalanceOf(ctx, addr)
			if err != nil {
				r.err = shortErr(err)
				return
			}
			pay, err := usdc.BalanceOf(ctx, addr)
			if err != nil {
				r.err = shortErr(err)
				return
			}
			allowance, err := usdc.Allowance(ctx, addr, deploy.Factory())
			if err != nil {
				r.err = shortErr(err)
				return
			}
			r.balance = trimZeros(chain.FormatUnits(bal, decimals))
			r.payment = trimZeros(chain.FormatUnits(pay, payDecimals))
			r.allowance = trimZeros(chain.FormatUnits(allowance, payDecimals))
		}(account)
	}
	wg.Wait()

	fmt.Printf("network %s via %s\n\n", chain.NetworkName(deploy.NetworkID), url)
	printTable(results)
}

func printTable(results []result) {
	sort.Slice(results, func(i, j int) bool { return results[i].account < results[j].account })

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ACCOUNT\tTOKEN\tPAYMENT\tALLOWANCE\tNOTE")
	fmt.Fprintln(w, strings.Repeat("-", 14)+"\t"+
		strings.Repeat("-", 18)+"\t"+
		strings.Repeat("-", 14)+"\t"+
		strings.Repeat("-", 14)+"\t"+
		strings.Repeat("-", 12))
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			shortAddr(r.account), r.balance, r.payment, r.allowance, r.err)
	}
	w.Flush()
}

func shortAddr(addr string) string {
	if len(addr) < 10 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}

func shortErr(err error) string {
	s := err.Error()
	if len(s) > 30 {
		return s[:30] + "…"
	}
	return s
}

// trimZeros removes trailing zeros after decimal: "0.050000000000000000" → "0.05"
func trimZeros(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	if s == "" || s == "-" {
		return "0"
	}
	return s
}
