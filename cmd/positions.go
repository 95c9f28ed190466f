package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tylertayyk/pairs-trading/internal/engine"
	"github.com/tylertayyk/pairs-trading/internal/models"
	"github.com/tylertayyk/pairs-trading/pkg/formatters"
)

func init() {
	positionsCmd.AddCommand(positionsCloseCmd)
	rootCmd.AddCommand(positionsCmd)
}

var positionsCmd = &cobra.Command{
	Use:   "positions",
	Short: "Show open trades and per-pair position state",
	RunE:  runPositions,
}

var positionsCloseCmd = &cobra.Command{
	Use:   "close [LEG1/LEG2]",
	Short: "Close both legs of a pair's spread position",
	Args:  cobra.ExactArgs(1),
	RunE:  runPositionsClose,
}

func runPositions(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var all []models.OpenTrade
	for _, instrument := range trackedInstruments() {
		trades, err := client.GetOpenTrades(ctx, instrument)
		if err != nil {
			return err
		}
		all = append(all, trades...)
	}
	fmt.Println(formatters.FormatOpenTradesTable(all))

	for _, pair := range pairs {
		trades1, err := client.GetOpenTrades(ctx, pair.Leg1)
		if err != nil {
			return err
		}
		trades2, err := client.GetOpenTrades(ctx, pair.Leg2)
		if err != nil {
			return err
		}
		position, _ := engine.Reconcile(pair, trades1, trades2)
		fmt.Printf("%s: %s\n", pair, position)
	}
	return nil
}

func runPositionsClose(cmd *cobra.Command, args []string) error {
	if err := checkLiveMode(); err != nil {
		return err
	}

	pair, err := parsePairArg(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	trades1, err := client.GetOpenTrades(ctx, pair.Leg1)
	if err != nil {
		return err
	}
	trades2, err := client.GetOpenTrades(ctx, pair.Leg2)
	if err != nil {
		return err
	}

	position, reconcileErr := engine.Reconcile(pair, trades1, trades2)
	switch position {
	case models.PositionFlat:
		fmt.Printf("%s is already flat\n", pair)
		return nil
	case models.PositionLongSpread:
		if err := client.ClosePosition(ctx, pair.Leg1, models.SideShort); err != nil {
			return err
		}
		if err := client.ClosePosition(ctx, pair.Leg2, models.SideLong); err != nil {
			return err
		}
	case models.PositionShortSpread:
		if err := client.ClosePosition(ctx, pair.Leg1, models.SideLong); err != nil {
			return err
		}
		if err := client.ClosePosition(ctx, pair.Leg2, models.SideShort); err != nil {
			return err
		}
	default:
		return fmt.Errorf("refusing to close %s automatically: %v", pair, reconcileErr)
	}

	// Clear the pair from the persisted in-trade set
	set, err := fileStore.LoadInTradeSet()
	if err != nil {
		return err
	}
	delete(set, pair.Key())
	if err := fileStore.SaveInTradeSet(set); err != nil {
		return err
	}

	fmt.Printf("Closed %s\n", pair)
	return nil
}

func trackedInstruments() []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range pairs {
		for _, leg := range []string{p.Leg1, p.Leg2} {
			if !seen[leg] {
				seen[leg] = true
				out = append(out, leg)
			}
		}
	}
	return out
}
