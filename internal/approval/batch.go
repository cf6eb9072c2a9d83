package approval

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/NethermindEth/starknet-agent/internal/contract"
)

// TokenAmount pairs a token address with the allowance required for it
type TokenAmount struct {
	Token  string
	Amount string
}

// EnsureApprovals runs CheckAndApproveToken for every token in parallel and
// returns the first failure. Entries with an empty token are skipped.
func (s *Service) EnsureApprovals(ctx context.Context, signer contract.Signer, spenderAddress string, tokens []TokenAmount) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, t := range tokens {
		if t.Token == "" {
			continue
		}
		g.Go(func() error {
			return s.CheckAndApproveToken(ctx, signer, t.Token, spenderAddress, t.Amount)
		})
	}
	return g.Wait()
}
