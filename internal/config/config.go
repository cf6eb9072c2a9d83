package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/NethermindEth/starknet-agent/internal/account"
)

// Config holds the agent's runtime configuration
type Config struct {
	Network             NetworkConfig
	RPCURL              string
	Credentials         account.Credentials
	PollInterval        time.Duration
	ConfirmationTimeout time.Duration
	LogLevel            string
	LogFormat           string
}

const (
	keyNetwork        = "STARKNET_NETWORK"
	keyRPCURL         = "STARKNET_RPC_URL"
	keyAccountAddress = "STARKNET_ACCOUNT_ADDRESS"
	keyPublicKey      = "STARKNET_ACCOUNT_PUBLIC_KEY"
	keyPrivateKey     = "STARKNET_ACCOUNT_PRIVATE_KEY"
	keyPollInterval   = "TX_POLL_INTERVAL_MS"
	keyTimeout        = "TX_TIMEOUT_SECONDS"
	keyLogLevel       = "LOG_LEVEL"
	keyLogFormat      = "LOG_FORMAT"
)

// LoadConfig loads .env files (if present) and reads configuration from the environment.
// Without arguments it loads ./.env and tolerates its absence; named files must exist.
func LoadConfig(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && (len(envFiles) > 0 || !errors.Is(err, fs.ErrNotExist)) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}
	InitializeNetworks()

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault(keyNetwork, DefaultNetworkName)
	v.SetDefault(keyPollInterval, 2000)
	v.SetDefault(keyTimeout, 300)
	v.SetDefault(keyLogLevel, "info")
	v.SetDefault(keyLogFormat, "text")

	network, err := GetNetworkConfig(v.GetString(keyNetwork))
	if err != nil {
		return nil, err
	}

	rpcURL := v.GetString(keyRPCURL)
	if rpcURL == "" {
		rpcURL = network.RPCURL
	}

	pollMS := v.GetInt(keyPollInterval)
	if pollMS <= 0 {
		return nil, fmt.Errorf("%s must be positive, got %d", keyPollInterval, pollMS)
	}
	timeoutS := v.GetInt(keyTimeout)
	if timeoutS < 0 {
		return nil, fmt.Errorf("%s must not be negative, got %d", keyTimeout, timeoutS)
	}

	return &Config{
		Network: network,
		RPCURL:  rpcURL,
		Credentials: account.Credentials{
			Address:    v.GetString(keyAccountAddress),
			PublicKey:  v.GetString(keyPublicKey),
			PrivateKey: v.GetString(keyPrivateKey),
		},
		PollInterval:        time.Duration(pollMS) * time.Millisecond,
		ConfirmationTimeout: time.Duration(timeoutS) * time.Second,
		LogLevel:            strings.ToLower(v.GetString(keyLogLevel)),
		LogFormat:           strings.ToLower(v.GetString(keyLogFormat)),
	}, nil
}
