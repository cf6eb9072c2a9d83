package contract

import "errors"

var (
	// ErrUnknownMethod is returned when a handle is asked for an entry point its ABI does not list
	ErrUnknownMethod = errors.New("unknown contract method")
	// ErrNoSigner is returned when a read-only handle is asked to invoke
	ErrNoSigner = errors.New("contract handle has no signer")
)

// ABI describes the entry points a contract handle may use
type ABI struct {
	Name    string
	Methods []string
}

// Has reports whether the ABI lists method
func (a ABI) Has(method string) bool {
	for _, m := range a.Methods {
		if m == method {
			return true
		}
	}
	return false
}

// ERC20ABI covers both the snake_case and camelCase entry points found on Starknet tokens
var ERC20ABI = ABI{
	Name: "ERC20",
	Methods: []string{
		"name",
		"symbol",
		"decimals",
		"total_supply",
		"totalSupply",
		"balance_of",
		"balanceOf",
		"allowance",
		"transfer",
		"transfer_from",
		"transferFrom",
		"approve",
	},
}
