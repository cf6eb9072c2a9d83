package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/NethermindEth/starknet-agent/pkg/starknetutil"
)

// newAllowanceCmd returns a Cobra command that reads an allowance
func newAllowanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "allowance",
		Short: "Show how much of a token a spender may move",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, _ := cmd.Flags().GetString("token")
			spender, _ := cmd.Flags().GetString("spender")
			owner, _ := cmd.Flags().GetString("owner")
			decimals, _ := cmd.Flags().GetInt("decimals")

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			rt, err := setupApp(ctx)
			if err != nil {
				return err
			}
			token, err = rt.agent.Network().ResolveToken(token)
			if err != nil {
				return err
			}
			if owner == "" {
				owner = rt.agent.AccountCredentials().Address
			}
			if owner == "" {
				return fmt.Errorf("no --owner given and STARKNET_ACCOUNT_ADDRESS is not set")
			}

			value, err := rt.service.Allowance(ctx, owner, token, spender)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", value.String(), starknetutil.FormatTokenAmount(value, decimals))
			return nil
		},
	}

	cmd.Flags().String("token", "", "ERC20 token address or ETH/STRK")
	cmd.Flags().String("spender", "", "spender contract address")
	cmd.Flags().String("owner", "", "owner address (default is STARKNET_ACCOUNT_ADDRESS)")
	cmd.Flags().Int("decimals", starknetutil.TokenDecimals, "token decimals used for display")
	_ = cmd.MarkFlagRequired("token")
	_ = cmd.MarkFlagRequired("spender")

	return cmd
}
