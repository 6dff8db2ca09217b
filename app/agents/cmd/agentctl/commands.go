package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iWorld-y/fin_agents/app/agents/internal/biz"
)

var (
	riskTolerance     string
	timeHorizon       string
	currentAllocation string
	assets            string
	runsAgent         string
	runsLimit         int
)

var marketCmd = &cobra.Command{
	Use:   "market <symbol>",
	Short: "Analyze a stock",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()
		out, err := app.market.Analyze(ctx, args[0])
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), out, outputFormat)
	},
}

var portfolioCmd = &cobra.Command{
	Use:   "portfolio",
	Short: "Optimize a portfolio",
	Long: `Optimize a portfolio for a risk tolerance (1-10) and time horizon in years.

--allocation takes the current allocation as JSON, e.g. '{"stocks":60,"bonds":40}'.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		req := &biz.PortfolioRequest{RiskTolerance: riskTolerance, TimeHorizon: timeHorizon}
		if currentAllocation != "" {
			raw, err := rawJSON(currentAllocation)
			if err != nil {
				return fmt.Errorf("--allocation: %w", err)
			}
			req.CurrentAllocation = raw
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()
		out, err := app.portfolio.Optimize(ctx, req)
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), out, outputFormat)
	},
}

var quantumCmd = &cobra.Command{
	Use:   "quantum <portfolio-value>",
	Short: "Quantum risk analysis of a portfolio",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()
		out, err := app.quantum.Assess(ctx, args[0])
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), out, outputFormat)
	},
}

var researchCmd = &cobra.Command{
	Use:   "research <company>",
	Short: "Research a company",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()
		out, err := app.research.Research(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), out, outputFormat)
	},
}

var riskCmd = &cobra.Command{
	Use:   "risk <portfolio-value>",
	Short: "Assess portfolio risk",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := &biz.RiskRequest{PortfolioValue: args[0]}
		if assets != "" {
			raw, err := rawJSON(assets)
			if err != nil {
				return fmt.Errorf("--assets: %w", err)
			}
			req.Assets = raw
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()
		out, err := app.risk.Assess(ctx, req)
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), out, outputFormat)
	},
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent agent runs",
	Long:  "List recent agent runs from the run history. Only a configured database outlives the process.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		runs, err := app.runs.List(cmd.Context(), runsAgent, runsLimit)
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), map[string]any{"runs": runs}, outputFormat)
	},
}

func init() {
	portfolioCmd.Flags().StringVar(&riskTolerance, "risk", "", "Risk tolerance, 1-10")
	portfolioCmd.Flags().StringVar(&timeHorizon, "horizon", "", "Time horizon in years")
	portfolioCmd.Flags().StringVar(&currentAllocation, "allocation", "", "Current allocation as JSON")

	riskCmd.Flags().StringVar(&assets, "assets", "", "Holdings as JSON")

	runsCmd.Flags().StringVar(&runsAgent, "agent", "", "Only runs of this agent: "+strings.Join(biz.Agents, ", "))
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "Maximum number of runs")
}

func rawJSON(s string) (json.RawMessage, error) {
	if !json.Valid([]byte(s)) {
		return nil, fmt.Errorf("invalid JSON: %s", s)
	}
	return json.RawMessage(s), nil
}
