package cmd

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/tylertayyk/pairs-trading/internal/cointegration"
	"github.com/tylertayyk/pairs-trading/internal/models"
	"github.com/tylertayyk/pairs-trading/internal/series"
	"github.com/tylertayyk/pairs-trading/pkg/formatters"
)

func init() {
	modelsCmd.AddCommand(modelsListCmd)
	modelsCmd.AddCommand(modelsFitCmd)
	rootCmd.AddCommand(modelsCmd)
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Inspect and refit cointegration models",
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show persisted models",
	RunE:  runModelsList,
}

var modelsFitCmd = &cobra.Command{
	Use:   "fit [LEG1/LEG2]",
	Short: "Fit a model now (one pair, or the whole universe)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runModelsFit,
}

func runModelsList(cmd *cobra.Command, args []string) error {
	mapping, err := fileStore.LoadModels()
	if err != nil {
		return err
	}

	list := make([]*models.CointegrationModel, 0, len(mapping))
	for _, m := range mapping {
		list = append(list, m)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Pair.Key() < list[j].Pair.Key()
	})

	fmt.Println(formatters.FormatModelsTable(list))
	return nil
}

func runModelsFit(cmd *cobra.Command, args []string) error {
	targets := pairs
	if len(args) == 1 {
		pair, err := parsePairArg(args[0])
		if err != nil {
			return err
		}
		targets = []models.Pair{pair}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	mapping, err := fileStore.LoadModels()
	if err != nil {
		return err
	}

	now := time.Now()
	from := now.Add(-cfg.TrainingWindow)
	fitted := make([]*models.CointegrationModel, 0, len(targets))
	for _, pair := range targets {
		series1, err := client.GetCandles(ctx, pair.Leg1, from)
		if err != nil {
			return err
		}
		series2, err := client.GetCandles(ctx, pair.Leg2, from)
		if err != nil {
			return err
		}

		aligned, err := series.Align(pair, series1, series2, cfg.MinAlignedCandles)
		if err != nil {
			return err
		}

		model, err := cointegration.Fit(pair, aligned, now)
		if err != nil {
			return err
		}

		mapping[pair.Key()] = model
		fitted = append(fitted, model)
	}

	if err := fileStore.SaveModels(mapping); err != nil {
		return err
	}

	fmt.Println(formatters.FormatModelsTable(fitted))
	return nil
}

// parsePairArg accepts "LEG1/LEG2" and validates it against the universe
func parsePairArg(arg string) (models.Pair, error) {
	for _, p := range pairs {
		if p.String() == arg {
			return p, nil
		}
	}
	return models.Pair{}, fmt.Errorf("pair %q is not in the selected universe", arg)
}
