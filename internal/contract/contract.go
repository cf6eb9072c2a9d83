package contract

// Module: Starknet contract interaction
// - Binds a contract address and ABI descriptor to a handle
// - Read calls go through starknet_call at the latest block
// - Invocations go through the handle's signer

import (
	"context"
	"fmt"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/NethermindEth/starknet.go/rpc"
	"github.com/NethermindEth/starknet.go/utils"

	"github.com/NethermindEth/starknet-agent/internal/types"
)

// Caller performs read-only contract calls. *rpc.Provider satisfies it.
type Caller interface {
	Call(ctx context.Context, call rpc.FunctionCall, blockID rpc.BlockID) ([]*felt.Felt, error)
}

var _ Caller = (*rpc.Provider)(nil)

// InvokeResult is what a submitted invocation reports back.
// TransactionHash is nil when the node did not return one.
type InvokeResult struct {
	TransactionHash *felt.Felt
}

// Signer submits state-changing calls with an account's signing authority
type Signer interface {
	Address() *felt.Felt
	Invoke(ctx context.Context, calls []rpc.InvokeFunctionCall) (InvokeResult, error)
}

// Interactor creates contract handles against a single provider
type Interactor struct {
	caller Caller
}

// NewInteractor creates a new contract interactor
func NewInteractor(caller Caller) *Interactor {
	return &Interactor{caller: caller}
}

// Contract is a handle to a deployed contract, scoped to a signer
type Contract struct {
	abi     ABI
	address *felt.Felt
	caller  Caller
	signer  Signer
}

// NewContract binds a handle to address. signer may be nil for read-only handles.
func (i *Interactor) NewContract(abi ABI, address string, signer Signer) (*Contract, error) {
	addr, err := types.ToStarknetAddress(address)
	if err != nil {
		return nil, fmt.Errorf("invalid contract address: %w", err)
	}
	return &Contract{abi: abi, address: addr, caller: i.caller, signer: signer}, nil
}

// Address returns the contract address
func (c *Contract) Address() *felt.Felt {
	return c.address
}

// Call performs a read-only call of method with the given arguments
func (c *Contract) Call(ctx context.Context, method string, args ...*felt.Felt) ([]*felt.Felt, error) {
	if !c.abi.Has(method) {
		return nil, fmt.Errorf("%w: %s not in %s", ErrUnknownMethod, method, c.abi.Name)
	}

	call := rpc.FunctionCall{
		ContractAddress:    c.address,
		EntryPointSelector: utils.GetSelectorFromNameFelt(method),
		Calldata:           args,
	}

	resp, err := c.caller.Call(ctx, call, rpc.WithBlockTag("latest"))
	if err != nil {
		return nil, fmt.Errorf("starknet %s call failed: %w", method, err)
	}
	return resp, nil
}

// Invoke submits a state-changing call of method with compiled calldata
func (c *Contract) Invoke(ctx context.Context, method string, calldata []*felt.Felt) (InvokeResult, error) {
	if !c.abi.Has(method) {
		return InvokeResult{}, fmt.Errorf("%w: %s not in %s", ErrUnknownMethod, method, c.abi.Name)
	}
	if c.signer == nil {
		return InvokeResult{}, ErrNoSigner
	}

	invoke := rpc.InvokeFunctionCall{
		ContractAddress: c.address,
		FunctionName:    method,
		CallData:        calldata,
	}

	res, err := c.signer.Invoke(ctx, []rpc.InvokeFunctionCall{invoke})
	if err != nil {
		return InvokeResult{}, fmt.Errorf("starknet %s send failed: %w", method, err)
	}
	return res, nil
}
