package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"github.com/hxuan190/portfolio-swap/internal/adapters/persistence"
	"github.com/hxuan190/portfolio-swap/internal/aggregator"
	"github.com/hxuan190/portfolio-swap/internal/config"
	"github.com/hxuan190/portfolio-swap/internal/domain"
)

func writeJSON(c *cli.Context, v any) error {
	out, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, string(out))
	return err
}

func portfoliosCommand() *cli.Command {
	return &cli.Command{
		Name:  "portfolios",
		Usage: "List the portfolios users can swap into",
		Action: func(c *cli.Context) error {
			registry, err := loadRegistry()
			if err != nil {
				return err
			}
			list := registry.List()
			if c.Bool("json") {
				return writeJSON(c, list)
			}
			for _, p := range list {
				parts := make([]string, 0, len(p.Tokens))
				for _, t := range p.Tokens {
					parts = append(parts, fmt.Sprintf("%.1f%% %s", t.Weight*100, t.Symbol))
				}
				fmt.Fprintf(c.App.Writer, "%-20s %-22s %s\n", p.ID, p.Name, strings.Join(parts, ", "))
			}
			return nil
		},
	}
}

func parseBuildRequest(c *cli.Context) (aggregator.PortfolioSwapRequest, error) {
	signer, err := solana.PublicKeyFromBase58(c.String("signer"))
	if err != nil {
		return aggregator.PortfolioSwapRequest{}, fmt.Errorf("%w: %w", domain.ErrInvalidSigner, err)
	}
	input, err := solana.PublicKeyFromBase58(c.String("input"))
	if err != nil {
		return aggregator.PortfolioSwapRequest{}, fmt.Errorf("invalid input mint: %w", err)
	}
	amount, err := decimal.NewFromString(c.String("amount"))
	if err != nil || !amount.IsPositive() {
		return aggregator.PortfolioSwapRequest{}, domain.ErrInvalidAmount
	}
	slippage := c.Uint("slippage")
	if slippage > domain.MaxSlippageBps {
		return aggregator.PortfolioSwapRequest{}, fmt.Errorf("%w: slippage %d bps", domain.ErrInvalidPlan, slippage)
	}
	return aggregator.PortfolioSwapRequest{
		Signer:      signer,
		PortfolioID: c.String("portfolio"),
		InputToken:  input,
		Amount:      amount,
		SlippageBps: uint16(slippage),
	}, nil
}

func buildCommand() *cli.Command {
	return &cli.Command{
		Name:  "build",
		Usage: "Build the unsigned transaction for a portfolio swap",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "signer", Usage: "Wallet that signs and pays", Required: true},
			&cli.StringFlag{Name: "portfolio", Aliases: []string{"p"}, Usage: "Portfolio id", Required: true},
			&cli.StringFlag{Name: "input", Usage: "Mint of the held token to swap from", Required: true},
			&cli.StringFlag{Name: "amount", Usage: "Amount in UI units, e.g. 12.5", Required: true},
			&cli.UintFlag{Name: "slippage", Usage: "Slippage tolerance in bps", Value: aggregator.DefaultSlippageBps},
		},
		Action: func(c *cli.Context) error {
			req, err := parseBuildRequest(c)
			if err != nil {
				return err
			}
			rt, err := newRuntime(c.Context, false)
			if err != nil {
				return err
			}
			defer rt.stop()

			res, err := rt.aggregator.BuildPortfolioSwap(c.Context, req)
			if err != nil {
				return fmt.Errorf("build failed: %w", err)
			}
			if c.Bool("json") {
				return writeJSON(c, res)
			}
			fmt.Fprintln(c.App.Writer, res.Message)
			fmt.Fprintf(c.App.Writer, "legs: %d  compute units: %d  priority fee: %d\n",
				len(res.Legs), res.ComputeBudget.UnitLimit, res.ComputeBudget.MicroLamportsPerUnit)
			fmt.Fprintf(c.App.Writer, "last valid block height: %d\n", res.LastValidBlockHeight)
			fmt.Fprintln(c.App.Writer, res.Transaction)
			if res.Continuation != nil {
				fmt.Fprintf(c.App.Writer, "%d legs did not fit; rerun with --json to get the continuation\n", len(res.Continuation.RemainingLegs))
			}
			return nil
		},
	}
}

func submitCommand() *cli.Command {
	return &cli.Command{
		Name:  "submit",
		Usage: "Send a signed transaction and wait for confirmation",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "tx", Usage: "Signed transaction, base64", Required: true},
		},
		Action: func(c *cli.Context) error {
			rt, err := newRuntime(c.Context, true)
			if err != nil {
				return err
			}
			defer rt.stop()

			res, err := rt.aggregator.Submit(c.Context, c.String("tx"))
			if res != nil {
				if c.Bool("json") {
					if werr := writeJSON(c, res); werr != nil {
						return werr
					}
				} else {
					printAttempts(c, res.Attempts)
				}
			}
			return err
		},
	}
}

func printAttempts(c *cli.Context, attempts []domain.SubmissionAttempt) {
	for _, a := range attempts {
		line := fmt.Sprintf("#%d %-9s %s %s", a.AttemptNumber, a.Status, a.StartedAt.Format("15:04:05.000"), a.Signature)
		if a.Error != "" {
			line += "  " + a.Error
		}
		fmt.Fprintln(c.App.Writer, line)
	}
}

func attemptsCommand() *cli.Command {
	return &cli.Command{
		Name:  "attempts",
		Usage: "Show recorded submission attempts (the server must not hold the database open)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "signature", Aliases: []string{"s"}, Usage: "Transaction signature", Required: true},
		},
		Action: func(c *cli.Context) error {
			sig := c.String("signature")
			if _, err := solana.SignatureFromBase58(sig); err != nil {
				return fmt.Errorf("%w: %w", domain.ErrInvalidSignature, err)
			}

			var subCfg config.SubmitterConfig
			if err := loadConfigs(&subCfg); err != nil {
				return err
			}
			if !subCfg.PersistenceEnabled {
				return errors.New("submission persistence is disabled")
			}
			store, err := persistence.NewSubmissionStore(subCfg.DBPath)
			if err != nil {
				return err
			}
			defer store.Close()

			attempts, err := store.Attempts(sig)
			if err != nil {
				return err
			}
			if c.Bool("json") {
				return writeJSON(c, attempts)
			}
			if len(attempts) == 0 {
				fmt.Fprintln(c.App.Writer, "no attempts recorded")
				return nil
			}
			printAttempts(c, attempts)
			return nil
		},
	}
}
