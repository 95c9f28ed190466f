package cmd

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/spf13/cobra"

	"github.com/tylertayyk/pairs-trading/internal/engine"
	"github.com/tylertayyk/pairs-trading/internal/signal"
	"github.com/tylertayyk/pairs-trading/pkg/formatters"
)

func init() {
	rootCmd.AddCommand(pairsCmd)
}

var pairsCmd = &cobra.Command{
	Use:   "pairs",
	Short: "Show the selected pair universe, in-trade status and live signals",
	RunE:  runPairs,
}

func runPairs(cmd *cobra.Command, args []string) error {
	inTrade, err := fileStore.LoadInTradeSet()
	if err != nil {
		return err
	}
	fmt.Println(formatters.FormatPairsTable(pairs, inTrade))

	mapping, err := fileStore.LoadModels()
	if err != nil {
		return err
	}
	if len(mapping) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, pair := range pairs {
		model, ok := mapping[pair.Key()]
		if !ok {
			continue
		}
		quote1, err := client.GetQuote(ctx, pair.Leg1)
		if err != nil {
			return err
		}
		quote2, err := client.GetQuote(ctx, pair.Leg2)
		if err != nil {
			return err
		}
		trades1, err := client.GetOpenTrades(ctx, pair.Leg1)
		if err != nil {
			return err
		}
		trades2, err := client.GetOpenTrades(ctx, pair.Leg2)
		if err != nil {
			return err
		}
		position, _ := engine.Reconcile(pair, trades1, trades2)

		eval, err := signal.Evaluate(model,
			math.Log(quote1.Mid().InexactFloat64()),
			math.Log(quote2.Mid().InexactFloat64()),
			position,
			signal.Thresholds{Entry: cfg.EntryZScore, Exit: cfg.ExitZScore})
		if err != nil {
			fmt.Printf("%s  %v\n", pair, err)
			continue
		}

		fmt.Printf("%s  z=%s  signal=%s\n", pair,
			formatters.FormatZScore(eval.ZScore, cfg.EntryZScore),
			formatters.FormatSignal(eval.Signal))
	}
	return nil
}
