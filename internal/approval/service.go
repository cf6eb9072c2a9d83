package approval

// Module: ERC20 approval service
// - Reads allowance(owner, spender) fresh on every call
// - Submits approve(spender, amount) only when the allowance is short
// - Waits for finality through the transaction monitor
//
// Interface Contract:
// - CheckAndApproveToken(): at most one approve per call, serialized per (owner, token, spender)
// - Every failure is logged with context and returned as *Error
// - ApproveToken(): builds the signer from agent credentials, then CheckAndApproveToken

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"runtime/debug"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/sirupsen/logrus"

	"github.com/NethermindEth/starknet-agent/internal/contract"
	"github.com/NethermindEth/starknet-agent/internal/monitor"
	"github.com/NethermindEth/starknet-agent/internal/types"
	"github.com/NethermindEth/starknet-agent/pkg/starknetutil"
)

// ContractFactory creates contract handles. *contract.Interactor satisfies it.
type ContractFactory interface {
	NewContract(abi contract.ABI, address string, signer contract.Signer) (*contract.Contract, error)
}

// TransactionMonitor waits for a submitted transaction to be final. *monitor.Monitor satisfies it.
type TransactionMonitor interface {
	WaitForTransaction(ctx context.Context, hash *felt.Felt, onStatus monitor.StatusFunc) error
}

// Agent is what the service needs from the surrounding agent
type Agent interface {
	ContractInteractor() ContractFactory
	TransactionMonitor() TransactionMonitor
	// Signer builds a signing account from the agent's credentials and network provider
	Signer() (contract.Signer, error)
}

// Service checks ERC20 allowances and approves when they are insufficient
type Service struct {
	agent  Agent
	logger logrus.FieldLogger

	allowances *keyedMutex // (owner, token, spender)
	submitters *keyedMutex // owner; keeps one account's invokes from racing on nonces
}

// Option configures a Service
type Option func(*Service)

// WithLogger sets the service logger
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates an approval service backed by agent
func NewService(agent Agent, opts ...Option) *Service {
	s := &Service{
		agent:      agent,
		logger:     logrus.StandardLogger(),
		allowances: newKeyedMutex(),
		submitters: newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CheckAndApproveToken makes sure spender may move at least amount of token on behalf of signer.
// amount is a base-10 integer in the token's smallest unit.
func (s *Service) CheckAndApproveToken(ctx context.Context, signer contract.Signer, tokenAddress, spenderAddress, amount string) error {
	log := s.logger.WithFields(logrus.Fields{
		"token":   tokenAddress,
		"spender": spenderAddress,
		"amount":  amount,
	})

	if err := s.checkAndApprove(ctx, log, signer, tokenAddress, spenderAddress, amount); err != nil {
		var aerr *Error
		if !errors.As(err, &aerr) {
			aerr = newError(KindRead, err)
		}
		log.WithFields(logrus.Fields{
			"error":   aerr.Err,
			"message": aerr.Err.Error(),
			"kind":    aerr.Kind.String(),
			"type":    fmt.Sprintf("%T", aerr.Err),
		}).Error("❌ Approval error details")
		// stack of the approval boundary, where the failure was caught
		log.WithField("log_stack", string(debug.Stack())).Debug("approval failure caught")
		return aerr
	}
	return nil
}

func (s *Service) checkAndApprove(ctx context.Context, log logrus.FieldLogger, signer contract.Signer, tokenAddress, spenderAddress, amount string) error {
	required, err := starknetutil.ParseAmount(amount)
	if err != nil {
		return newError(KindParse, err)
	}
	if signer == nil || signer.Address() == nil {
		return newError(KindRead, errors.New("no signing account"))
	}
	owner := signer.Address()

	spender, err := types.ToStarknetAddress(spenderAddress)
	if err != nil {
		return newError(KindRead, fmt.Errorf("invalid spender address: %w", err))
	}

	token, err := s.agent.ContractInteractor().NewContract(contract.ERC20ABI, tokenAddress, signer)
	if err != nil {
		return newError(KindRead, err)
	}

	unlock, err := s.allowances.Lock(ctx, allowanceKey(owner, token.Address(), spender))
	if err != nil {
		return newError(KindRead, err)
	}
	defer unlock()

	current, err := readAllowance(ctx, token, owner, spender)
	if err != nil {
		return newError(KindRead, err)
	}

	log = log.WithField("owner", owner.String())
	if current.Cmp(required) >= 0 {
		log.WithField("allowance", current.String()).Info("✅ Sufficient allowance already exists")
		return nil
	}
	log.WithField("allowance", current.String()).Info("🔍 Allowance insufficient, approving")

	calldata := starknetutil.ApproveCalldata(spender, required)
	log.WithField("calldata", feltStrings(calldata)).Debug("approve calldata")

	hash, err := s.submit(ctx, token, owner, calldata)
	if err != nil {
		return err
	}
	log = log.WithField("tx_hash", hash.String())
	log.Info("🚀 Approve transaction sent")

	log.Info("⏳ Waiting for approve transaction...")
	err = s.agent.TransactionMonitor().WaitForTransaction(ctx, hash, func(_ *felt.Felt, status monitor.Status) {
		log.WithField("status", status.String()).Info("Approve status")
	})
	if err != nil {
		return newError(KindConfirmation, err)
	}

	log.Info("✅ Approve transaction completed")
	return nil
}

// submit sends approve while holding the owner's submission lock
func (s *Service) submit(ctx context.Context, token *contract.Contract, owner *felt.Felt, calldata []*felt.Felt) (*felt.Felt, error) {
	unlock, err := s.submitters.Lock(ctx, types.FormatAddress(owner))
	if err != nil {
		return nil, newError(KindSubmission, err)
	}
	defer unlock()

	res, err := token.Invoke(ctx, "approve", calldata)
	if err != nil {
		return nil, newError(KindSubmission, err)
	}
	if res.TransactionHash == nil || res.TransactionHash.IsZero() {
		return nil, newError(KindSubmission, ErrMissingTransactionHash)
	}
	return res.TransactionHash, nil
}

// Allowance reads how much of token spender may move on behalf of owner
func (s *Service) Allowance(ctx context.Context, ownerAddress, tokenAddress, spenderAddress string) (*big.Int, error) {
	owner, err := types.ToStarknetAddress(ownerAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid owner address: %w", err)
	}
	spender, err := types.ToStarknetAddress(spenderAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid spender address: %w", err)
	}
	token, err := s.agent.ContractInteractor().NewContract(contract.ERC20ABI, tokenAddress, nil)
	if err != nil {
		return nil, err
	}
	return readAllowance(ctx, token, owner, spender)
}

// ApproveToken approves from the agent's own account
func (s *Service) ApproveToken(ctx context.Context, tokenAddress, spenderAddress, amount string) error {
	signer, err := s.agent.Signer()
	if err != nil {
		return fmt.Errorf("failed to build signer from agent credentials: %w", err)
	}
	return s.CheckAndApproveToken(ctx, signer, tokenAddress, spenderAddress, amount)
}

func readAllowance(ctx context.Context, token *contract.Contract, owner, spender *felt.Felt) (*big.Int, error) {
	resp, err := token.Call(ctx, "allowance", owner, spender)
	if err != nil {
		return nil, err
	}
	current, err := starknetutil.U256FromFelts(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to decode allowance: %w", err)
	}
	return current, nil
}

func allowanceKey(owner, token, spender *felt.Felt) string {
	return types.FormatAddress(owner) + "/" + types.FormatAddress(token) + "/" + types.FormatAddress(spender)
}

func feltStrings(fs []*felt.Felt) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.String()
	}
	return out
}
