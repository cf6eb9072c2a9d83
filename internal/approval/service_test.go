package approval

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/NethermindEth/starknet.go/rpc"
	"github.com/NethermindEth/starknet.go/utils"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NethermindEth/starknet-agent/internal/contract"
	"github.com/NethermindEth/starknet-agent/internal/monitor"
	"github.com/NethermindEth/starknet-agent/pkg/starknetutil"
)

const (
	ownerHex   = "0x0111111111111111111111111111111111111111111111111111111111111111"
	tokenHex   = "0x049d36570d4e46f48e99674bd3fcc84644ddd6b96f7c741b1562b82f9e004dc7"
	token2Hex  = "0x04718f5a0fc34cc1af16a1cdee98ffb20c31f5cd61d6ab07201858f4287c938d"
	spenderHex = "0x0234567890abcdef1234567890abcdef1234567890abcdef1234567890abcdef"
)

// fakeChain answers allowance reads and applies approvals, like a token contract would
type fakeChain struct {
	mu        sync.Mutex
	allowance []*felt.Felt // raw allowance response
	readErr   error
	reads     int
}

func (c *fakeChain) Call(_ context.Context, call rpc.FunctionCall, _ rpc.BlockID) ([]*felt.Felt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reads++
	if c.readErr != nil {
		return nil, c.readErr
	}
	return c.allowance, nil
}

func (c *fakeChain) setAllowance(v *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	low, high := starknetutil.ConvertBigIntToU256Felts(v)
	c.allowance = []*felt.Felt{low, high}
}

type fakeSigner struct {
	chain   *fakeChain
	address *felt.Felt

	mu        sync.Mutex
	invokes   []rpc.InvokeFunctionCall
	hash      *felt.Felt
	invokeErr error
}

func (s *fakeSigner) Address() *felt.Felt { return s.address }

func (s *fakeSigner) Invoke(_ context.Context, calls []rpc.InvokeFunctionCall) (contract.InvokeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invokes = append(s.invokes, calls...)
	if s.invokeErr != nil {
		return contract.InvokeResult{}, s.invokeErr
	}
	for _, call := range calls {
		if call.FunctionName == "approve" && s.chain != nil {
			amount, _ := starknetutil.U256FromFelts(call.CallData[1:])
			s.chain.setAllowance(amount)
		}
	}
	return contract.InvokeResult{TransactionHash: s.hash}, nil
}

func (s *fakeSigner) invokeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.invokes)
}

type fakeMonitor struct {
	mu       sync.Mutex
	waited   []*felt.Felt
	statuses []monitor.Status
	err      error
}

func (m *fakeMonitor) WaitForTransaction(_ context.Context, hash *felt.Felt, onStatus monitor.StatusFunc) error {
	m.mu.Lock()
	m.waited = append(m.waited, hash)
	m.mu.Unlock()
	for _, st := range m.statuses {
		onStatus(hash, st)
	}
	return m.err
}

type fakeAgent struct {
	interactor *contract.Interactor
	monitor    *fakeMonitor
	signer     contract.Signer
	signerErr  error
}

func (a *fakeAgent) ContractInteractor() ContractFactory   { return a.interactor }
func (a *fakeAgent) TransactionMonitor() TransactionMonitor { return a.monitor }
func (a *fakeAgent) Signer() (contract.Signer, error)       { return a.signer, a.signerErr }

type harness struct {
	chain   *fakeChain
	signer  *fakeSigner
	monitor *fakeMonitor
	agent   *fakeAgent
	hook    *logtest.Hook
	service *Service
}

func newHarness(t *testing.T, allowance int64) *harness {
	t.Helper()
	owner, err := utils.HexToFelt(ownerHex)
	require.NoError(t, err)

	chain := &fakeChain{}
	chain.setAllowance(big.NewInt(allowance))
	signer := &fakeSigner{chain: chain, address: owner, hash: utils.Uint64ToFelt(0xabc)}
	mon := &fakeMonitor{statuses: []monitor.Status{
		{Finality: monitor.StatusReceived},
		{Finality: monitor.StatusAcceptedOnL2, Execution: monitor.ExecutionSucceeded},
	}}
	agent := &fakeAgent{interactor: contract.NewInteractor(chain), monitor: mon, signer: signer}

	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	return &harness{
		chain:   chain,
		signer:  signer,
		monitor: mon,
		agent:   agent,
		hook:    hook,
		service: NewService(agent, WithLogger(logger)),
	}
}

func (h *harness) approve(amount string) error {
	return h.service.CheckAndApproveToken(context.Background(), h.signer, tokenHex, spenderHex, amount)
}

func TestCheckAndApproveToken_SufficientAllowance(t *testing.T) {
	h := newHarness(t, 5000)

	require.NoError(t, h.approve("1000"))
	assert.Equal(t, 0, h.signer.invokeCount(), "no approve when allowance covers the amount")
	assert.Empty(t, h.monitor.waited)
	assert.Equal(t, 1, h.chain.reads)

	// equal allowance is sufficient too
	require.NoError(t, h.approve("5000"))
	assert.Equal(t, 0, h.signer.invokeCount())
}

func TestCheckAndApproveToken_InsufficientAllowance(t *testing.T) {
	h := newHarness(t, 0)

	require.NoError(t, h.approve("1000"))
	require.Equal(t, 1, h.signer.invokeCount())

	call := h.signer.invokes[0]
	assert.Equal(t, "approve", call.FunctionName)
	token, _ := utils.HexToFelt(tokenHex)
	spender, _ := utils.HexToFelt(spenderHex)
	assert.True(t, token.Equal(call.ContractAddress))
	require.Len(t, call.CallData, 3)
	assert.True(t, spender.Equal(call.CallData[0]))
	assert.True(t, utils.Uint64ToFelt(1000).Equal(call.CallData[1]))
	assert.True(t, call.CallData[2].IsZero())

	require.Len(t, h.monitor.waited, 1)
	assert.True(t, h.signer.hash.Equal(h.monitor.waited[0]))

	var statuses []string
	for _, e := range h.hook.AllEntries() {
		if e.Message == "Approve status" {
			statuses = append(statuses, e.Data["status"].(string))
		}
	}
	assert.Equal(t, []string{"RECEIVED", "ACCEPTED_ON_L2/SUCCEEDED"}, statuses)
	assert.Equal(t, "✅ Approve transaction completed", h.hook.LastEntry().Message)
}

func TestCheckAndApproveToken_WideAmount(t *testing.T) {
	h := newHarness(t, 0)

	// 2^200 spans both u256 limbs
	wide := new(big.Int).Lsh(big.NewInt(1), 200)
	require.NoError(t, h.approve(wide.String()))
	require.Equal(t, 1, h.signer.invokeCount())

	got, err := starknetutil.U256FromFelts(h.signer.invokes[0].CallData[1:])
	require.NoError(t, err)
	assert.Equal(t, 0, wide.Cmp(got))
	assert.False(t, h.signer.invokes[0].CallData[2].IsZero())
}

func TestCheckAndApproveToken_AllowanceShapes(t *testing.T) {
	tests := []struct {
		name     string
		response []*felt.Felt
	}{
		{"u256 pair", []*felt.Felt{utils.Uint64ToFelt(5000), utils.Uint64ToFelt(0)}},
		{"scalar", []*felt.Felt{utils.Uint64ToFelt(5000)}},
		{"u256 pair with trailing data", []*felt.Felt{utils.Uint64ToFelt(5000), utils.Uint64ToFelt(0), utils.Uint64ToFelt(7)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, 0)
			h.chain.allowance = tt.response

			require.NoError(t, h.approve("5000"))
			assert.Equal(t, 0, h.signer.invokeCount())

			got, err := h.service.Allowance(context.Background(), ownerHex, tokenHex, spenderHex)
			require.NoError(t, err)
			assert.Equal(t, int64(5000), got.Int64())
		})
	}
}

func TestCheckAndApproveToken_Errors(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(h *harness)
		amount   string
		kind     Kind
		sentinel error
		contains string
		invokes  int
		waits    int
	}{
		{
			name:     "malformed amount",
			amount:   "12abc",
			kind:     KindParse,
			sentinel: ErrParseFailure,
			contains: "failed to approve token",
		},
		{
			name:     "negative amount",
			amount:   "-5",
			kind:     KindParse,
			sentinel: ErrParseFailure,
		},
		{
			name:     "amount over u256",
			amount:   new(big.Int).Lsh(big.NewInt(1), 256).String(),
			kind:     KindParse,
			sentinel: ErrParseFailure,
		},
		{
			name:     "allowance read fails",
			setup:    func(h *harness) { h.chain.readErr = errors.New("rpc unavailable") },
			amount:   "1000",
			kind:     KindRead,
			sentinel: ErrReadFailure,
			contains: "rpc unavailable",
		},
		{
			name:     "allowance response empty",
			setup:    func(h *harness) { h.chain.allowance = nil },
			amount:   "1000",
			kind:     KindRead,
			sentinel: ErrReadFailure,
			contains: "failed to decode allowance",
		},
		{
			name:     "submission fails",
			setup:    func(h *harness) { h.signer.invokeErr = errors.New("insufficient fee") },
			amount:   "1000",
			kind:     KindSubmission,
			sentinel: ErrSubmissionFailure,
			contains: "insufficient fee",
			invokes:  1,
		},
		{
			name:     "missing transaction hash",
			setup:    func(h *harness) { h.signer.hash = nil },
			amount:   "1000",
			kind:     KindSubmission,
			sentinel: ErrMissingTransactionHash,
			contains: "no transaction hash",
			invokes:  1,
		},
		{
			name:     "zero transaction hash",
			setup:    func(h *harness) { h.signer.hash = new(felt.Felt) },
			amount:   "1000",
			kind:     KindSubmission,
			sentinel: ErrMissingTransactionHash,
			invokes:  1,
		},
		{
			name: "confirmation times out",
			setup: func(h *harness) {
				h.monitor.err = fmt.Errorf("%w after 5m0s (last status RECEIVED)", monitor.ErrTimeout)
			},
			amount:   "1000",
			kind:     KindConfirmation,
			sentinel: monitor.ErrTimeout,
			contains: "transaction confirmation timed out after 5m0s",
			invokes:  1,
			waits:    1,
		},
		{
			name:     "transaction reverted",
			setup:    func(h *harness) { h.monitor.err = fmt.Errorf("%w: u256_sub Overflow", monitor.ErrReverted) },
			amount:   "1000",
			kind:     KindConfirmation,
			sentinel: ErrConfirmationFailure,
			contains: "u256_sub Overflow",
			invokes:  1,
			waits:    1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, 0)
			if tt.setup != nil {
				tt.setup(h)
			}

			err := h.approve(tt.amount)
			require.Error(t, err)

			var aerr *Error
			require.ErrorAs(t, err, &aerr)
			assert.Equal(t, tt.kind, aerr.Kind)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.Contains(t, err.Error(), "failed to approve token: ")
			if tt.contains != "" {
				assert.Contains(t, err.Error(), tt.contains)
			}
			assert.Equal(t, tt.invokes, h.signer.invokeCount())
			assert.Len(t, h.monitor.waited, tt.waits)

			var logged *logrus.Entry
			for _, e := range h.hook.AllEntries() {
				if e.Level == logrus.ErrorLevel {
					logged = e
				}
			}
			require.NotNil(t, logged, "failure is logged")
			assert.Equal(t, tt.kind.String(), logged.Data["kind"])

			var caught *logrus.Entry
			for _, e := range h.hook.AllEntries() {
				if e.Message == "approval failure caught" {
					caught = e
				}
			}
			require.NotNil(t, caught)
			assert.Contains(t, caught.Data, "log_stack")
			assert.NotContains(t, caught.Data, "stack")
		})
	}
}

func TestCheckAndApproveToken_InvalidInputs(t *testing.T) {
	h := newHarness(t, 0)
	ctx := context.Background()

	err := h.service.CheckAndApproveToken(ctx, h.signer, "not-a-token", spenderHex, "1")
	assert.ErrorIs(t, err, ErrReadFailure)
	assert.Contains(t, err.Error(), "invalid contract address")

	err = h.service.CheckAndApproveToken(ctx, h.signer, tokenHex, "0xzz", "1")
	assert.ErrorIs(t, err, ErrReadFailure)
	assert.Contains(t, err.Error(), "invalid spender address")

	err = h.service.CheckAndApproveToken(ctx, nil, tokenHex, spenderHex, "1")
	assert.ErrorIs(t, err, ErrReadFailure)

	assert.Zero(t, h.chain.reads)
}

func TestCheckAndApproveToken_SerializesSameKey(t *testing.T) {
	h := newHarness(t, 0)

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- h.approve("1000")
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, h.signer.invokeCount(), "later callers see the approved allowance")
}

func TestCheckAndApproveToken_ContextCancelledWhileWaitingForLock(t *testing.T) {
	h := newHarness(t, 0)
	owner := h.signer.Address()
	token, _ := utils.HexToFelt(tokenHex)
	spender, _ := utils.HexToFelt(spenderHex)

	unlock, err := h.service.allowances.Lock(context.Background(), allowanceKey(owner, token, spender))
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err = h.service.CheckAndApproveToken(ctx, h.signer, tokenHex, spenderHex, "1000")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, h.chain.reads)
}

func TestApproveToken(t *testing.T) {
	t.Run("uses the agent signer", func(t *testing.T) {
		h := newHarness(t, 0)
		require.NoError(t, h.service.ApproveToken(context.Background(), tokenHex, spenderHex, "1000"))
		assert.Equal(t, 1, h.signer.invokeCount())
	})

	t.Run("credential failure", func(t *testing.T) {
		h := newHarness(t, 0)
		h.agent.signerErr = errors.New("missing STARKNET_ACCOUNT_* credentials")

		err := h.service.ApproveToken(context.Background(), tokenHex, spenderHex, "1000")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing STARKNET_ACCOUNT_* credentials")
		assert.Zero(t, h.chain.reads)
	})
}

func TestAllowanceInvalidAddresses(t *testing.T) {
	h := newHarness(t, 0)
	ctx := context.Background()

	_, err := h.service.Allowance(ctx, "owner", tokenHex, spenderHex)
	assert.ErrorContains(t, err, "invalid owner address")

	_, err = h.service.Allowance(ctx, ownerHex, tokenHex, "spender")
	assert.ErrorContains(t, err, "invalid spender address")
}
