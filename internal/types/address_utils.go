package types

import (
	"fmt"
	"strings"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/NethermindEth/starknet.go/utils"
)

// maxAddressHexLen is the longest hex representation of a Starknet address (251 bits)
const maxAddressHexLen = 64

// ToStarknetAddress converts a hex string address to a Starknet felt for contract calls
func ToStarknetAddress(address string) (*felt.Felt, error) {
	clean := strings.TrimSpace(address)
	if !strings.HasPrefix(clean, "0x") && !strings.HasPrefix(clean, "0X") {
		return nil, fmt.Errorf("address %q must be 0x-prefixed hex", address)
	}
	if len(clean) == 2 || len(clean)-2 > maxAddressHexLen {
		return nil, fmt.Errorf("address %q has invalid length", address)
	}

	f, err := utils.HexToFelt(clean)
	if err != nil {
		return nil, fmt.Errorf("failed to convert address to felt: %w", err)
	}
	return f, nil
}

// FormatAddress formats an address as a 0x-prefixed, zero-padded, lowercase 64 hex digit string
func FormatAddress(address *felt.Felt) string {
	if address == nil {
		return ""
	}
	return fmt.Sprintf("0x%064x", utils.FeltToBigInt(address))
}
