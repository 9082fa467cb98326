// Package ens resolves ENS names for presales deployed on Ethereum mainnet.
package ens

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// MainnetID is the only network with an ENS registry we resolve against.
const MainnetID = "1"

// ENS registry address.
var registryAddr = common.HexToAddress("0x00000000000C2E074eC69A0dFb2997BA6C7d2e1e")

var (
	selResolver = []byte{0x01, 0x78, 0xb8, 0xbf} // resolver(bytes32)
	selAddr     = []byte{0x3b, 0x3b, 0x57, 0xde} // addr(bytes32)
)

// Errors.
var (
	ErrNoResolver = errors.New("no resolver set")
	ErrNoAddress  = errors.New("no address record")
)

// Caller executes read-only contract calls. *chain.EVMClient satisfies it.
type Caller interface {
	CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error)
}

// IsName reports whether s looks like an ENS name rather than an address.
func IsName(s string) bool {
	return !common.IsHexAddress(s) && strings.Contains(s, ".")
}

// Resolve looks up name in the registry, then asks its resolver for the
// address record.
func Resolve(ctx context.Context, c Caller, name string) (common.Address, error) {
	node := namehash(strings.ToLower(name))

	resolver, err := callAddress(ctx, c, registryAddr, selResolver, node)
	if err != nil {
		return common.Address{}, fmt.Errorf("querying ENS registry: %w", err)
	}
	if resolver == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%w for %q", ErrNoResolver, name)
	}

	addr, err := callAddress(ctx, c, resolver, selAddr, node)
	if err != nil {
		return common.Address{}, fmt.Errorf("querying ENS resolver: %w", err)
	}
	if addr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%w for %q", ErrNoAddress, name)
	}
	return addr, nil
}

// Namehash implements EIP-137 and returns the node as unprefixed hex.
func Namehash(name string) string {
	return common.Bytes2Hex(namehash(name))
}

func namehash(name string) []byte {
	node := make([]byte, 32)
	if name == "" {
		return node
	}
	labels := strings.Split(name, ".")
	for i := len(labels) - 1; i >= 0; i-- {
		node = keccak256(append(node, keccak256([]byte(labels[i]))...))
	}
	return node
}

func keccak256(data []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return h.Sum(nil)
}

// callAddress calls a (bytes32) -> address method and decodes the word.
func callAddress(ctx context.Context, c Caller, to common.Address, selector, node []byte) (common.Address, error) {
	data := append(append([]byte{}, selector...), node...)
	out, err := c.CallContract(ctx, to, data)
	if err != nil {
		return common.Address{}, err
	}
	if len(out) < 32 {
		return common.Address{}, nil
	}
	return common.BytesToAddress(out[12:32]), nil
}
