package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/NethermindEth/starknet-agent/internal/agent"
	"github.com/NethermindEth/starknet-agent/internal/approval"
	"github.com/NethermindEth/starknet-agent/internal/config"
	"github.com/NethermindEth/starknet-agent/internal/logging"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "approver",
	Short: "Check and approve ERC20 allowances on Starknet",
	Long: `approver reads the ERC20 allowance a spender holds over the configured
Starknet account and submits an approve transaction only when it is too low.`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

var envFiles []string

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "env file(s) to load (default is ./.env when present)")

	rootCmd.AddCommand(newApproveCmd())
	rootCmd.AddCommand(newAllowanceCmd())
}

// app is what every online subcommand needs
type app struct {
	agent   *agent.StarknetAgent
	service *approval.Service
}

func setupApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadConfig(envFiles...)
	if err != nil {
		return nil, err
	}

	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)
	logger.WithFields(logrus.Fields{
		"network":  cfg.Network.Name,
		"chain_id": cfg.Network.ChainID,
	}).Info("🔗 Starknet approver")

	a, err := agent.New(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	return &app{
		agent:   a,
		service: approval.NewService(a, approval.WithLogger(logger)),
	}, nil
}

// resolveTokens maps ETH/STRK symbols through network and validates every address
func resolveTokens(network config.NetworkConfig, tokens []string) ([]string, error) {
	resolved := make([]string, 0, len(tokens))
	for _, token := range tokens {
		addr, err := network.ResolveToken(token)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, addr)
	}
	return resolved, nil
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
