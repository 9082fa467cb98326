package chain

import (
	"math/big"
	"strings"
)

// Network describes an EVM network the presale may be deployed on.
type Network struct {
	ID          string // net_version value
	DisplayName string
	Explorer    string
}

var knownNetworks = []Network{
	{ID: "1", DisplayName: "Ethereum Mainnet", Explorer: "https://etherscan.io"},
	{ID: "4", DisplayName: "Rinkeby", Explorer: "https://rinkeby.etherscan.io"},
	{ID: "5", DisplayName: "Goerli", Explorer: "https://goerli.etherscan.io"},
	{ID: "11155111", DisplayName: "Sepolia", Explorer: "https://sepolia.etherscan.io"},
	{ID: "56", DisplayName: "BNB Smart Chain", Explorer: "https://bscscan.com"},
	{ID: "137", DisplayName: "Polygon", Explorer: "https://polygonscan.com"},
	{ID: "8453", DisplayName: "Base", Explorer: "https://basescan.org"},
	{ID: "42161", DisplayName: "Arbitrum One", Explorer: "https://arbiscan.io"},
	{ID: "1337", DisplayName: "Localhost:8545"},
	{ID: "31337", DisplayName: "Hardhat"},
}

var networksByID = func() map[string]Network {
	m := make(map[string]Network, len(knownNetworks))
	for _, n := range knownNetworks {
		m[n.ID] = n
	}
	return m
}()

// Networks returns the known networks in display order.
func Networks() []Network {
	return append([]Network(nil), knownNetworks...)
}

// LookupNetwork returns the network for id. ok is false for unknown ids.
func LookupNetwork(id string) (Network, bool) {
	n, ok := networksByID[id]
	return n, ok
}

// NetworkName returns a human label for a network id.
func NetworkName(id string) string {
	if n, ok := networksByID[id]; ok {
		return n.DisplayName
	}
	return "network " + id
}

// TxURL returns the explorer link for hash, or "" when the network has no
// explorer.
func TxURL(networkID, hash string) string {
	n, ok := networksByID[networkID]
	if !ok || n.Explorer == "" || hash == "" {
		return ""
	}
	return n.Explorer + "/tx/" + hash
}

// FormatUnits renders raw base units as a decimal string with the given
// number of decimals.
func FormatUnits(raw *big.Int, decimals uint8) string {
	if raw == nil {
		return "0"
	}
	if decimals == 0 {
		return raw.String()
	}
	div := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	f := new(big.Float).SetInt(raw)
	f.Quo(f, new(big.Float).SetInt(div))
	return f.Text('f', int(decimals))
}

// WholeUnits returns raw / 10^decimals, truncated.
func WholeUnits(raw *big.Int, decimals uint8) *big.Int {
	if raw == nil {
		return new(big.Int)
	}
	div := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	return new(big.Int).Quo(raw, div)
}

// ParseUnits converts a decimal string such as "12.5" into base units.
// Input with more fractional digits than decimals is rejected rather than
// truncated.
func ParseUnits(amount string, decimals uint8) (*big.Int, bool) {
	whole, frac, _ := strings.Cut(strings.TrimSpace(amount), ".")
	if whole == "" && frac == "" {
		return nil, false
	}
	if !isDigits(whole) || !isDigits(frac) || len(frac) > int(decimals) {
		return nil, false
	}
	digits := whole + frac + strings.Repeat("0", int(decimals)-len(frac))
	out, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, false
	}
	return out, true
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
