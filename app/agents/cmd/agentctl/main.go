package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/config/env"
	"github.com/go-kratos/kratos/v2/config/file"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/spf13/cobra"

	"github.com/iWorld-y/fin_agents/app/agents/internal/biz"
	"github.com/iWorld-y/fin_agents/app/agents/internal/conf"
	"github.com/iWorld-y/fin_agents/app/agents/pkg/logger"
)

var (
	flagConf     string
	outputFormat string
	timeout      time.Duration

	app     *agentSet
	cleanup = func() {}
)

// agentSet holds the agents run in-process by the CLI.
type agentSet struct {
	market    *biz.MarketUseCase
	portfolio *biz.PortfolioUseCase
	quantum   *biz.QuantumUseCase
	research  *biz.ResearchUseCase
	risk      *biz.RiskUseCase
	runs      *biz.RunUseCase
}

func newAgentSet(
	market *biz.MarketUseCase,
	portfolio *biz.PortfolioUseCase,
	quantum *biz.QuantumUseCase,
	research *biz.ResearchUseCase,
	risk *biz.RiskUseCase,
	runs *biz.RunUseCase,
) *agentSet {
	return &agentSet{market: market, portfolio: portfolio, quantum: quantum, research: research, risk: risk, runs: runs}
}

var rootCmd = &cobra.Command{
	Use:   "agentctl",
	Short: "Run the finance agents from the command line",
	Long: `agentctl runs the same agents as the HTTP service, in-process.

Available subcommands:
  market    - Market analysis for a ticker
  portfolio - Portfolio optimization
  quantum   - Quantum risk analysis
  research  - Company research report
  risk      - Portfolio risk assessment
  runs      - Recent agent runs`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if outputFormat != "json" && outputFormat != "yaml" {
			return fmt.Errorf("unsupported output format: %s", outputFormat)
		}
		if app != nil {
			return nil
		}
		return setup()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		cleanup()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConf, "conf", "app/agents/configs/config.yaml", "config path, eg: --conf config.yaml")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "json", "Output format: json or yaml")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "Operation timeout")

	rootCmd.AddCommand(marketCmd, portfolioCmd, quantumCmd, researchCmd, riskCmd, runsCmd)
}

func setup() error {
	c := config.New(
		config.WithSource(
			file.NewSource(flagConf),
			env.NewSource("FINAGENT_"),
		),
	)
	defer c.Close()
	if err := c.Load(); err != nil {
		return err
	}
	var bc conf.Bootstrap
	if err := c.Scan(&bc); err != nil {
		return err
	}

	logFile := ""
	if bc.Log != nil {
		logFile = bc.Log.File
	}
	// 结果输出到 stdout, 日志改走 stderr
	logger.Console = os.Stderr
	if err := logger.InitLogger("warn", logFile); err != nil {
		return err
	}

	agents, clean, err := initAgents(bc.LLM, bc.Search, bc.Data, logger.NewKratosLogger(logger.Log))
	if err != nil {
		return err
	}
	app, cleanup = agents, clean
	return nil
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, timeout)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.NewHelper(log.DefaultLogger).Error(err)
		os.Exit(1)
	}
}
