package monitor

// Module: Starknet transaction monitor
// - Polls starknet_getTransactionStatus until the transaction is final
// - Reports each observed status transition to the caller
// - Owns the confirmation timeout; callers only pass a context

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/NethermindEth/starknet.go/rpc"
	"github.com/sirupsen/logrus"
)

const (
	DefaultPollInterval = 2 * time.Second
	DefaultTimeout      = 5 * time.Minute
)

// Finality and execution statuses reported by starknet_getTransactionStatus
const (
	StatusReceived     = "RECEIVED"
	StatusRejected     = "REJECTED"
	StatusAcceptedOnL2 = "ACCEPTED_ON_L2"
	StatusAcceptedOnL1 = "ACCEPTED_ON_L1"
	ExecutionSucceeded = "SUCCEEDED"
	ExecutionReverted  = "REVERTED"
)

var (
	ErrTimeout  = errors.New("transaction confirmation timed out")
	ErrReverted = errors.New("transaction reverted")
	ErrRejected = errors.New("transaction rejected")
)

// StatusProvider is the subset of the Starknet RPC the monitor needs. *rpc.Provider satisfies it.
type StatusProvider interface {
	TransactionStatus(ctx context.Context, transactionHash *felt.Felt) (*rpc.TxnStatusResult, error)
}

var _ StatusProvider = (*rpc.Provider)(nil)

// Status is one observed state of a transaction
type Status struct {
	Finality      string
	Execution     string
	FailureReason string
}

func (s Status) String() string {
	if s.Execution == "" {
		return s.Finality
	}
	return s.Finality + "/" + s.Execution
}

// StatusFunc is invoked on every status transition the monitor observes
type StatusFunc func(hash *felt.Felt, status Status)

// Monitor waits for Starknet transactions to reach finality
type Monitor struct {
	provider     StatusProvider
	pollInterval time.Duration
	timeout      time.Duration
	logger       logrus.FieldLogger
}

// Option configures a Monitor
type Option func(*Monitor)

// WithPollInterval sets how often the transaction status is polled
func WithPollInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.pollInterval = d
		}
	}
}

// WithTimeout bounds the total wait for one transaction. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(m *Monitor) {
		if d >= 0 {
			m.timeout = d
		}
	}
}

// WithLogger sets the logger used for poll diagnostics
func WithLogger(logger logrus.FieldLogger) Option {
	return func(m *Monitor) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// New creates a transaction monitor
func New(provider StatusProvider, opts ...Option) *Monitor {
	m := &Monitor{
		provider:     provider,
		pollInterval: DefaultPollInterval,
		timeout:      DefaultTimeout,
		logger:       logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// WaitForTransaction blocks until hash is accepted on L2 (or L1), fails, or the timeout elapses.
// RPC errors while polling are retried; the last one is reported if the wait times out.
func (m *Monitor) WaitForTransaction(ctx context.Context, hash *felt.Felt, onStatus StatusFunc) error {
	if hash == nil {
		return errors.New("nil transaction hash")
	}

	var deadline <-chan time.Time
	if m.timeout > 0 {
		timer := time.NewTimer(m.timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	var (
		last    Status
		lastErr error
	)
	for {
		res, err := m.provider.TransactionStatus(ctx, hash)
		switch {
		case err != nil:
			lastErr = err
			m.logger.WithFields(logrus.Fields{"tx_hash": hash.String(), "error": err}).Debug("transaction status poll failed")
		case res != nil:
			lastErr = nil
			status := Status{
				Finality:      string(res.FinalityStatus),
				Execution:     string(res.ExecutionStatus),
				FailureReason: res.FailureReason,
			}
			if status != last {
				last = status
				if onStatus != nil {
					onStatus(hash, status)
				}
			}
			if done, err := settled(hash, status); done {
				return err
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			if lastErr != nil {
				return fmt.Errorf("%w: %s not confirmed within %s (last error: %v)", ErrTimeout, hash.String(), m.timeout, lastErr)
			}
			return fmt.Errorf("%w: %s not confirmed within %s (last status: %s)", ErrTimeout, hash.String(), m.timeout, last)
		case <-ticker.C:
		}
	}
}

// settled reports whether status is terminal, and the outcome if it is
func settled(hash *felt.Felt, status Status) (bool, error) {
	if status.Execution == ExecutionReverted {
		return true, fmt.Errorf("%w: %s: %s", ErrReverted, hash.String(), status.FailureReason)
	}
	switch status.Finality {
	case StatusRejected:
		return true, fmt.Errorf("%w: %s: %s", ErrRejected, hash.String(), status.FailureReason)
	case StatusAcceptedOnL2, StatusAcceptedOnL1:
		return true, nil
	}
	return false, nil
}
