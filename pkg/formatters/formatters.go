package formatters

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/shopspring/decimal"

	"github.com/tylertayyk/pairs-trading/internal/models"
)

// Colors for different values
var (
	ColorGreen  = text.FgGreen
	ColorRed    = text.FgRed
	ColorYellow = text.FgYellow
	ColorGray   = text.FgHiBlack
)

// FormatZScore colors the z-score by where it sits relative to the
// entry band
func FormatZScore(z, entry float64) string {
	zStr := fmt.Sprintf("%+.2f", z)
	if z >= entry || z <= -entry {
		return ColorRed.Sprint(zStr)
	}
	if z >= entry*0.75 || z <= -entry*0.75 {
		return ColorYellow.Sprint(zStr)
	}
	return zStr
}

// FormatSignal colors a signal by its action
func FormatSignal(sig models.Signal) string {
	switch sig {
	case models.SignalEnterLong, models.SignalEnterShort:
		return ColorGreen.Sprint(string(sig))
	case models.SignalExitLong, models.SignalExitShort:
		return ColorYellow.Sprint(string(sig))
	default:
		return ColorGray.Sprint(string(sig))
	}
}

// FormatModelsTable creates a pretty table of fitted models
func FormatModelsTable(modelList []*models.CointegrationModel) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{
		"Pair", "Fitted", "Alpha", "Beta", "Spread Mean", "Spread Std", "Cointegrated", "Obs"})

	for _, m := range modelList {
		cointStr := ColorRed.Sprint("no")
		if m.Cointegrated {
			cointStr = ColorGreen.Sprint("yes")
		}

		t.AppendRow(table.Row{
			m.Pair.String(),
			m.FittedAt.Format("15:04:05"),
			fmt.Sprintf("%.6f", m.Alpha),
			fmt.Sprintf("%.6f", m.Beta),
			fmt.Sprintf("%.6f", m.SpreadMean),
			fmt.Sprintf("%.6f", m.SpreadStd),
			cointStr,
			m.Observations,
		})
	}

	if len(modelList) == 0 {
		t.AppendRow(table.Row{"No models fitted", "", "", "", "", "", "", ""})
	}

	return t.Render()
}

// FormatPairsTable creates a pretty table of the traded pair universe
func FormatPairsTable(pairs []models.Pair, inTrade map[string]bool) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{"Pair", "Leg 1 (x)", "Leg 2 (y)", "In Trade"})

	for _, p := range pairs {
		status := ColorGray.Sprint("flat")
		if inTrade[p.Key()] {
			status = ColorGreen.Sprint("open")
		}
		t.AppendRow(table.Row{p.String(), p.Leg1, p.Leg2, status})
	}

	if len(pairs) == 0 {
		t.AppendRow(table.Row{"No pairs selected", "", "", ""})
	}

	return t.Render()
}

// FormatQuote creates a single-line quote display
func FormatQuote(q *models.Quote) string {
	if q == nil {
		return "No data available"
	}

	spread := q.Ask.Sub(q.Bid)
	spreadPercent := decimal.Zero
	if mid := q.Mid(); !mid.IsZero() {
		spreadPercent = spread.Div(mid).Mul(decimal.NewFromInt(100))
	}

	return fmt.Sprintf("%s  Bid: %s | Ask: %s | Spread: %.4f%%  %s",
		text.Bold.Sprint(q.Instrument),
		ColorGreen.Sprint(q.Bid.String()),
		ColorRed.Sprint(q.Ask.String()),
		spreadPercent.InexactFloat64(),
		ColorGray.Sprint(FormatTimestamp(q.Time)))
}

// FormatOpenTradesTable creates a pretty table of broker open trades
func FormatOpenTradesTable(trades []models.OpenTrade) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{"ID", "Instrument", "Units", "Price", "Opened"})

	for _, trade := range trades {
		unitsColor := ColorGreen
		if trade.Units.IsNegative() {
			unitsColor = ColorRed
		}
		t.AppendRow(table.Row{
			trade.ID,
			trade.Instrument,
			unitsColor.Sprint(trade.Units.String()),
			trade.Price.String(),
			trade.OpenTime.Format("01-02 15:04:05"),
		})
	}

	if len(trades) == 0 {
		t.AppendRow(table.Row{"No open trades", "", "", "", ""})
	}

	return t.Render()
}

// FormatTimestamp formats a timestamp for display
func FormatTimestamp(t time.Time) string {
	return t.Format("15:04:05")
}
