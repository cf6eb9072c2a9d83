package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/NethermindEth/starknet-agent/internal/approval"
	"github.com/NethermindEth/starknet-agent/internal/config"
	"github.com/NethermindEth/starknet-agent/internal/types"
	"github.com/NethermindEth/starknet-agent/pkg/starknetutil"
)

// newApproveCmd returns a Cobra command that ensures an allowance
func newApproveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "approve",
		Short: "Approve a spender if its allowance is below the amount",
		Long: `Reads allowance(account, spender) for each token and, where it is below
--amount, submits approve(spender, amount) and waits for it to be accepted.
Amounts are base-10 integers in the token's smallest unit. --token accepts an
address or the ETH / STRK symbol of the configured network.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			tokens, _ := cmd.Flags().GetStringSlice("token")
			spender, _ := cmd.Flags().GetString("spender")
			amount, _ := cmd.Flags().GetString("amount")
			dryRun, _ := cmd.Flags().GetBool("dry-run")

			if dryRun {
				cfg, err := config.LoadConfig(envFiles...)
				if err != nil {
					return err
				}
				return printApproveCalls(cmd, cfg.Network, tokens, spender, amount)
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			rt, err := setupApp(ctx)
			if err != nil {
				return err
			}
			tokens, err = resolveTokens(rt.agent.Network(), tokens)
			if err != nil {
				return err
			}

			if len(tokens) == 1 {
				return rt.service.ApproveToken(ctx, tokens[0], spender, amount)
			}

			signer, err := rt.agent.Signer()
			if err != nil {
				return err
			}
			batch := make([]approval.TokenAmount, 0, len(tokens))
			for _, token := range tokens {
				batch = append(batch, approval.TokenAmount{Token: token, Amount: amount})
			}
			return rt.service.EnsureApprovals(ctx, signer, spender, batch)
		},
	}

	cmd.Flags().StringSlice("token", nil, "ERC20 token address or ETH/STRK (repeatable)")
	cmd.Flags().String("spender", "", "spender contract address")
	cmd.Flags().String("amount", "", "required allowance in the token's smallest unit")
	cmd.Flags().Bool("dry-run", false, "print the approve calls without reading or sending anything")
	_ = cmd.MarkFlagRequired("token")
	_ = cmd.MarkFlagRequired("spender")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

// printApproveCalls validates inputs the same way the online path does and prints each call
func printApproveCalls(cmd *cobra.Command, network config.NetworkConfig, tokens []string, spender, amount string) error {
	required, err := starknetutil.ParseAmount(amount)
	if err != nil {
		return err
	}
	if _, err := types.ToStarknetAddress(spender); err != nil {
		return fmt.Errorf("invalid spender address: %w", err)
	}
	tokens, err = resolveTokens(network, tokens)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, token := range tokens {
		call, err := starknetutil.ERC20Approve(token, spender, required)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s.%s(", call.ContractAddress, call.FunctionName)
		for i, f := range call.CallData {
			if i > 0 {
				fmt.Fprint(out, ", ")
			}
			fmt.Fprint(out, f)
		}
		fmt.Fprintln(out, ")")
	}
	return nil
}
