package contract

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Signature returns the canonical signature, e.g. "purchaseToken(uint256)".
func (e ABIEntry) Signature() string {
	types := make([]string, len(e.Inputs))
	for i, p := range e.Inputs {
		types[i] = p.Type
	}
	return e.Name + "(" + strings.Join(types, ",") + ")"
}

// Selector computes the 4-byte function selector as 0x-prefixed hex.
func (e ABIEntry) Selector() string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(e.Signature()))
	return "0x" + hex.EncodeToString(h.Sum(nil)[:4])
}

// FindFunction returns the function entry called name.
func FindFunction(entries []ABIEntry, name string) (ABIEntry, bool) {
	for _, e := range entries {
		if e.Type == "function" && e.Name == name {
			return e, true
		}
	}
	return ABIEntry{}, false
}
