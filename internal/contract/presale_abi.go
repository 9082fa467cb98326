package contract

// presaletoken is the ERC-20 sold by the presale. On top of EIP-20 the owner
// can mint and burn supply and lock individual holders out of transfers.
//
// presalefactory prices the token and sells it for the payment token. The
// buyer approves the factory for the total price before purchaseToken.
func init() {
	tokenABI := make([]ABIEntry, 0, len(erc20ABI)+5)
	tokenABI = append(tokenABI, erc20ABI...)
	tokenABI = append(tokenABI,
		ABIEntry{
			Name: "mint", Type: "function",
			Inputs:          []ABIParam{{Name: "amount", Type: "uint256"}},
			StateMutability: "nonpayable",
		},
		ABIEntry{
			Name: "burn", Type: "function",
			Inputs:          []ABIParam{{Name: "amount", Type: "uint256"}},
			StateMutability: "nonpayable",
		},
		ABIEntry{
			Name: "lock", Type: "function",
			Inputs:          []ABIParam{{Name: "account", Type: "address"}},
			StateMutability: "nonpayable",
		},
		ABIEntry{
			Name: "unlock", Type: "function",
			Inputs:          []ABIParam{{Name: "account", Type: "address"}},
			StateMutability: "nonpayable",
		},
		ABIEntry{
			Name: "owner", Type: "function",
			Outputs:         []ABIParam{{Type: "address"}},
			StateMutability: "view",
		},
	)

	RegisterBuiltin(BuiltinKind{
		ID:          "presaletoken",
		Name:        "Presale Token (Mintable+Burnable+Lockable ERC-20)",
		Description: "ERC-20 with owner mint(uint256), burn(uint256), lock(address) and unlock(address).",
		ABI:         tokenABI,
	})

	RegisterBuiltin(BuiltinKind{
		ID:          "presalefactory",
		Name:        "Presale Factory",
		Description: "Sells the presale token for the payment token at getPresalePrice() per ticket.",
		ABI: []ABIEntry{
			{
				Name: "getPresalePrice", Type: "function",
				Outputs:         []ABIParam{{Type: "uint256"}},
				StateMutability: "view",
			},
			{
				Name: "purchaseToken", Type: "function",
				Inputs:          []ABIParam{{Name: "amount", Type: "uint256"}},
				StateMutability: "nonpayable",
			},
		},
	})
}
