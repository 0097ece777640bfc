package supervisor

import (
	"fmt"
	"strings"

	"ratio-jump-trader/internal/store"
)

const progressTradeCount = 10

// ProgressReport renders the last few completed buys as a pipe-delimited,
// column-aligned table, pairing each buy with the prior completed sell
// of the same coin to compute a change column. Grounded on stats.py's
// _get_progress_statement/_get_progress_table.
func ProgressReport(s *store.Store) (string, error) {
	buys, err := s.RecentCompletedBuys(progressTradeCount)
	if err != nil {
		return "", fmt.Errorf("could not load recent buys: %w", err)
	}
	if len(buys) == 0 {
		return "No trades.", nil
	}

	header := []string{"Date", "Coin", "Buy Amount", "Buy Price", "Prior Sell Price", "Change"}
	rows := [][]string{header}

	for _, buy := range buys {
		row := []string{
			buy.CreatedAt.Format("2006-01-02 15:04:05"),
			buy.AltCoinSymbol,
			fmt.Sprintf("%.8f", buy.AltAmount),
			fmt.Sprintf("%.8f", buy.CryptoAmount/nonZero(buy.AltAmount)),
			"-",
			"-",
		}

		prevSell, err := s.PreviousCompletedSell(buy.AltCoinSymbol, buy.CreatedAt)
		if err != nil {
			return "", fmt.Errorf("could not load prior sell for %s: %w", buy.AltCoinSymbol, err)
		}
		if prevSell != nil {
			sellPrice := prevSell.CryptoAmount / nonZero(prevSell.AltAmount)
			buyPrice := buy.CryptoAmount / nonZero(buy.AltAmount)
			row[4] = fmt.Sprintf("%.8f", sellPrice)
			if sellPrice != 0 {
				change := (buyPrice - sellPrice) / sellPrice * 100
				row[5] = fmt.Sprintf("%.2f%%", change)
			}
		}

		rows = append(rows, row)
	}

	return renderTable(rows), nil
}

func nonZero(f float64) float64 {
	if f == 0 {
		return 1
	}
	return f
}

func renderTable(rows [][]string) string {
	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var b strings.Builder
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = fmt.Sprintf("%-*s", widths[i], cell)
		}
		b.WriteString(strings.Join(cells, " | "))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
