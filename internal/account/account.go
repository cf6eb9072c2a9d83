package account

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/NethermindEth/juno/core/felt"
	snaccount "github.com/NethermindEth/starknet.go/account"
	"github.com/NethermindEth/starknet.go/rpc"
	"github.com/NethermindEth/starknet.go/utils"

	"github.com/NethermindEth/starknet-agent/internal/contract"
)

// Credentials hold the key material of the agent's Starknet account
type Credentials struct {
	Address    string
	PublicKey  string
	PrivateKey string
}

// Validate checks that all fields are present and well formed
func (c Credentials) Validate() error {
	if c.Address == "" || c.PublicKey == "" || c.PrivateKey == "" {
		return errors.New("missing STARKNET_ACCOUNT_* credentials")
	}
	if _, err := utils.HexToFelt(c.Address); err != nil {
		return fmt.Errorf("invalid account address: %w", err)
	}
	if _, ok := new(big.Int).SetString(c.PrivateKey, 0); !ok {
		return errors.New("failed to parse account private key")
	}
	return nil
}

// String never prints the private key
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{Address: %s, PublicKey: %s}", c.Address, c.PublicKey)
}

// Signer adapts a starknet.go account to contract.Signer
type Signer struct {
	account *snaccount.Account
	address *felt.Felt
}

var _ contract.Signer = (*Signer)(nil)

// NewSigner builds a Cairo v2 account from credentials against provider
func NewSigner(provider *rpc.Provider, creds Credentials) (*Signer, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	addrF, err := utils.HexToFelt(creds.Address)
	if err != nil {
		return nil, fmt.Errorf("invalid account address: %w", err)
	}

	ks := snaccount.NewMemKeystore()
	privBI, ok := new(big.Int).SetString(creds.PrivateKey, 0)
	if !ok {
		return nil, errors.New("failed to parse account private key")
	}
	ks.Put(creds.PublicKey, privBI)

	acct, err := snaccount.NewAccount(provider, addrF, creds.PublicKey, ks, snaccount.CairoV2)
	if err != nil {
		return nil, fmt.Errorf("failed to create Starknet account: %w", err)
	}

	return &Signer{account: acct, address: addrF}, nil
}

// Address returns the account address
func (s *Signer) Address() *felt.Felt {
	return s.address
}

// Invoke signs and sends calls as one multicall transaction
func (s *Signer) Invoke(ctx context.Context, calls []rpc.InvokeFunctionCall) (contract.InvokeResult, error) {
	tx, err := s.account.BuildAndSendInvokeTxn(ctx, calls, nil)
	if err != nil {
		return contract.InvokeResult{}, err
	}
	return contract.InvokeResult{TransactionHash: tx.Hash}, nil
}
