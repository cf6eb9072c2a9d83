package starknetutil

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/NethermindEth/starknet.go/rpc"
	"github.com/NethermindEth/starknet.go/utils"
	"github.com/holiman/uint256"
)

const (
	// U128BitShift is the width of one u256 limb
	U128BitShift = 128
	// TokenDecimals is the default ERC20 decimals used for display
	TokenDecimals = 18
)

var (
	// ErrEmptyResponse is returned when a call that should yield a value returns no felts
	ErrEmptyResponse = errors.New("empty call response")
	// ErrLimbOverflow is returned when a u256 limb does not fit in 128 bits
	ErrLimbOverflow = errors.New("u256 limb exceeds 128 bits")
)

// u128Mask is 2^128 - 1
var u128Mask = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), U128BitShift), big.NewInt(1))

// ConvertBigIntToU256Felts converts a big.Int to two felts, one for the low 128 bits and one for the high 128 bits
func ConvertBigIntToU256Felts(value *big.Int) (low *felt.Felt, high *felt.Felt) {
	if value == nil {
		value = big.NewInt(0)
	}
	low = utils.BigIntToFelt(new(big.Int).And(value, u128Mask))
	high = utils.BigIntToFelt(new(big.Int).Rsh(value, U128BitShift))
	return low, high
}

// U256FromFelts decodes a call response holding an amount.
// Two or more felts are read as a Cairo u256 (low, high); a single felt is read
// as a plain value (legacy tokens returning a felt). Extra trailing felts are ignored.
func U256FromFelts(resp []*felt.Felt) (*big.Int, error) {
	if len(resp) == 0 {
		return nil, ErrEmptyResponse
	}
	for i := 0; i < len(resp) && i < 2; i++ {
		if resp[i] == nil {
			return nil, fmt.Errorf("nil felt at index %d", i)
		}
	}

	if len(resp) == 1 {
		return utils.FeltToBigInt(resp[0]), nil
	}

	low := utils.FeltToBigInt(resp[0])
	high := utils.FeltToBigInt(resp[1])
	if low.BitLen() > U128BitShift {
		return nil, fmt.Errorf("low: %w", ErrLimbOverflow)
	}
	if high.BitLen() > U128BitShift {
		return nil, fmt.Errorf("high: %w", ErrLimbOverflow)
	}

	// (high << 128) | low
	result := new(big.Int).Lsh(high, U128BitShift)
	return result.Or(result, low), nil
}

// ParseAmount parses a base-10 token amount in the token's smallest unit.
// The amount must be a non-negative integer that fits in a u256.
func ParseAmount(amount string) (*big.Int, error) {
	s := strings.TrimSpace(amount)
	if s == "" {
		return nil, fmt.Errorf("invalid amount %q: empty", amount)
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return nil, fmt.Errorf("invalid amount %q: not a base-10 unsigned integer", amount)
		}
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	return v.ToBig(), nil
}

// FitsU256 reports whether v is non-negative and representable as a u256
func FitsU256(v *big.Int) bool {
	if v == nil || v.Sign() < 0 {
		return false
	}
	_, overflow := uint256.FromBig(v)
	return !overflow
}

// ApproveCalldata builds the calldata of approve(spender: ContractAddress, amount: u256)
func ApproveCalldata(spender *felt.Felt, amount *big.Int) []*felt.Felt {
	low, high := ConvertBigIntToU256Felts(amount)
	return []*felt.Felt{spender, low, high}
}

// ERC20Approve builds an approve invoke call for a token
func ERC20Approve(tokenAddress, spenderAddress string, amount *big.Int) (rpc.InvokeFunctionCall, error) {
	tokenFelt, err := utils.HexToFelt(tokenAddress)
	if err != nil {
		return rpc.InvokeFunctionCall{}, fmt.Errorf("invalid token address: %w", err)
	}
	spenderFelt, err := utils.HexToFelt(spenderAddress)
	if err != nil {
		return rpc.InvokeFunctionCall{}, fmt.Errorf("invalid spender address: %w", err)
	}
	if !FitsU256(amount) {
		return rpc.InvokeFunctionCall{}, fmt.Errorf("amount %v does not fit in u256", amount)
	}

	return rpc.InvokeFunctionCall{
		ContractAddress: tokenFelt,
		FunctionName:    "approve",
		CallData:        ApproveCalldata(spenderFelt, amount),
	}, nil
}

// FormatTokenAmount formats a token amount with proper decimal places
func FormatTokenAmount(amount *big.Int, decimals int) string {
	if amount == nil {
		return "0"
	}

	divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	value := new(big.Float).SetInt(amount)
	value.Quo(value, new(big.Float).SetInt(divisor))

	return fmt.Sprintf("%s tokens", value.Text('f', 2))
}
