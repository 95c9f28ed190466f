package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tylertayyk/pairs-trading/pkg/formatters"
)

func init() {
	rootCmd.AddCommand(quoteCmd)
}

var quoteCmd = &cobra.Command{
	Use:   "quote [instrument...]",
	Short: "Get current pricing for instruments (default: full tracked universe)",
	RunE:  runQuote,
}

func runQuote(cmd *cobra.Command, args []string) error {
	instruments := args
	if len(instruments) == 0 {
		seen := make(map[string]bool)
		for _, p := range pairs {
			for _, leg := range []string{p.Leg1, p.Leg2} {
				if !seen[leg] {
					seen[leg] = true
					instruments = append(instruments, leg)
				}
			}
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, instrument := range instruments {
		instrument = strings.ToUpper(instrument)
		quote, err := client.GetQuote(ctx, instrument)
		if err != nil {
			return err
		}
		fmt.Println(formatters.FormatQuote(quote))
	}
	return nil
}
