package agent

// Module: Starknet agent
// - Owns the RPC provider, account credentials, contract interactor and transaction monitor
// - Refuses to start against a node whose chain ID differs from the configured network
// - Builds signing accounts on demand from the configured credentials
// - Satisfies approval.Agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/NethermindEth/starknet.go/rpc"
	"github.com/sirupsen/logrus"

	"github.com/NethermindEth/starknet-agent/internal/account"
	"github.com/NethermindEth/starknet-agent/internal/approval"
	"github.com/NethermindEth/starknet-agent/internal/config"
	"github.com/NethermindEth/starknet-agent/internal/contract"
	"github.com/NethermindEth/starknet-agent/internal/monitor"
)

// ErrChainIDMismatch is returned when the RPC node serves a different chain than configured
var ErrChainIDMismatch = errors.New("chain ID mismatch")

// chainIDSource reports the chain ID of the node behind a provider
type chainIDSource interface {
	ChainID(ctx context.Context) (string, error)
}

var _ chainIDSource = (*rpc.Provider)(nil)

// StarknetAgent wires the Starknet collaborators of the approval service together
type StarknetAgent struct {
	network     config.NetworkConfig
	provider    *rpc.Provider
	credentials account.Credentials
	interactor  *contract.Interactor
	monitor     *monitor.Monitor
	logger      logrus.FieldLogger
}

var _ approval.Agent = (*StarknetAgent)(nil)

// New creates an agent from cfg. It connects to the RPC URL and checks that the
// node's chain ID matches the configured network.
func New(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger) (*StarknetAgent, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("no RPC URL configured for %s", cfg.Network.Name)
	}

	provider, err := rpc.NewProvider(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create Starknet provider: %w", err)
	}
	if err := verifyChainID(ctx, provider, cfg.Network); err != nil {
		return nil, err
	}
	return newAgent(cfg, provider, logger), nil
}

func verifyChainID(ctx context.Context, source chainIDSource, network config.NetworkConfig) error {
	if network.ChainID == "" {
		return nil
	}
	got, err := source.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("failed to read chain ID from %s RPC: %w", network.Name, err)
	}
	if got != network.ChainID {
		return fmt.Errorf("%w: %s expects %s, RPC node reports %s", ErrChainIDMismatch, network.Name, network.ChainID, got)
	}
	return nil
}

func newAgent(cfg *config.Config, provider *rpc.Provider, logger logrus.FieldLogger) *StarknetAgent {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	logger = logger.WithField("network", cfg.Network.Name)
	return &StarknetAgent{
		network:     cfg.Network,
		provider:    provider,
		credentials: cfg.Credentials,
		interactor:  contract.NewInteractor(provider),
		monitor: monitor.New(provider,
			monitor.WithPollInterval(cfg.PollInterval),
			monitor.WithTimeout(cfg.ConfirmationTimeout),
			monitor.WithLogger(logger),
		),
		logger: logger,
	}
}

// Network returns the network the agent is connected to
func (a *StarknetAgent) Network() config.NetworkConfig {
	return a.network
}

// AccountCredentials returns the agent's account credentials
func (a *StarknetAgent) AccountCredentials() account.Credentials {
	return a.credentials
}

func (a *StarknetAgent) ContractInteractor() approval.ContractFactory {
	return a.interactor
}

func (a *StarknetAgent) TransactionMonitor() approval.TransactionMonitor {
	return a.monitor
}

// Signer builds a signing account from the agent's credentials
func (a *StarknetAgent) Signer() (contract.Signer, error) {
	signer, err := account.NewSigner(a.provider, a.credentials)
	if err != nil {
		return nil, err
	}
	a.logger.WithField("account", a.credentials.Address).Debug("Starknet signer ready")
	return signer, nil
}
