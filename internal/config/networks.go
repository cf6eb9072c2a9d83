package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/NethermindEth/starknet-agent/internal/types"
)

// NetworkConfig represents a single Starknet network configuration
type NetworkConfig struct {
	Name    string
	RPCURL  string
	ChainID string // Starknet chain ID as its short-string name, e.g. SN_SEPOLIA
	// Well-known fee tokens
	ETHAddress  string
	STRKAddress string
}

const (
	DefaultNetworkName = "Starknet Sepolia"

	// Fee token addresses are identical on mainnet, Sepolia and devnet
	ethTokenAddress  = "0x049d36570d4e46f48e99674bd3fcc84644ddd6b96f7c741b1562b82f9e004dc7"
	strkTokenAddress = "0x04718f5a0fc34cc1af16a1cdee98ffb20c31f5cd61d6ab07201858f4287c938d"
)

// getEnvWithDefault gets an environment variable with a default fallback
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Networks contains all network configurations. Populated by InitializeNetworks.
var Networks = map[string]NetworkConfig{}

func init() {
	InitializeNetworks()
}

// InitializeNetworks (re)builds Networks from the environment. Call again after loading a .env file.
func InitializeNetworks() {
	Networks = map[string]NetworkConfig{
		"Starknet Mainnet": {
			Name:        "Starknet Mainnet",
			RPCURL:      getEnvWithDefault("STARKNET_MAINNET_RPC_URL", "https://starknet-mainnet.public.blastapi.io/rpc/v0_8"),
			ChainID:     "SN_MAIN",
			ETHAddress:  ethTokenAddress,
			STRKAddress: strkTokenAddress,
		},
		"Starknet Sepolia": {
			Name:        "Starknet Sepolia",
			RPCURL:      getEnvWithDefault("STARKNET_SEPOLIA_RPC_URL", "https://starknet-sepolia.public.blastapi.io/rpc/v0_8"),
			ChainID:     "SN_SEPOLIA",
			ETHAddress:  ethTokenAddress,
			STRKAddress: strkTokenAddress,
		},
		"Starknet Devnet": {
			Name:        "Starknet Devnet",
			RPCURL:      getEnvWithDefault("STARKNET_DEVNET_RPC_URL", "http://localhost:5050"),
			ChainID:     "SN_SEPOLIA", // starknet-devnet reports the Sepolia chain ID by default
			ETHAddress:  ethTokenAddress,
			STRKAddress: strkTokenAddress,
		},
	}
}

// GetNetworkConfig returns the configuration for a given network name
func GetNetworkConfig(networkName string) (NetworkConfig, error) {
	if config, exists := Networks[networkName]; exists {
		return config, nil
	}
	return NetworkConfig{}, fmt.Errorf("network not found: %s (available: %v)", networkName, GetNetworkNames())
}

// GetNetworkNames returns all available network names, sorted
func GetNetworkNames() []string {
	names := make([]string, 0, len(Networks))
	for name := range Networks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveToken maps the ETH and STRK symbols (any case) to this network's fee token
// addresses. Anything else must be a 0x-prefixed Starknet address and is returned as given.
func (n NetworkConfig) ResolveToken(token string) (string, error) {
	switch strings.ToUpper(strings.TrimSpace(token)) {
	case "ETH":
		return n.ETHAddress, nil
	case "STRK":
		return n.STRKAddress, nil
	}
	if _, err := types.ToStarknetAddress(token); err != nil {
		return "", fmt.Errorf("invalid token %q: %w", token, err)
	}
	return token, nil
}
