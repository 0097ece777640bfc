package supervisor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"ratio-jump-trader/internal/models"
	"ratio-jump-trader/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	assert.NoError(t, err)
	s := store.New(db)
	assert.NoError(t, s.CreateSchema())
	return s
}

func TestProgressReport_NoTrades(t *testing.T) {
	s := newTestStore(t)
	report, err := ProgressReport(s)
	assert.NoError(t, err)
	assert.Equal(t, "No trades.", report)
}

func TestProgressReport_RendersBuyWithPriorSell(t *testing.T) {
	s := newTestStore(t)

	sell := &models.Trade{
		AltCoinSymbol:    "ETH",
		CryptoCoinSymbol: "USDT",
		Selling:          true,
		AltAmount:        1.0,
		CryptoAmount:     3800.0,
		State:            models.TradeStateComplete,
	}
	assert.NoError(t, s.InsertTrade(sell))
	assert.NoError(t, s.AdvanceTradeState(sell, models.TradeStateComplete))

	buy := &models.Trade{
		AltCoinSymbol:    "ETH",
		CryptoCoinSymbol: "USDT",
		Selling:          false,
		AltAmount:        1.0,
		CryptoAmount:     3900.0,
		State:            models.TradeStateComplete,
	}
	assert.NoError(t, s.InsertTrade(buy))
	assert.NoError(t, s.AdvanceTradeState(buy, models.TradeStateComplete))

	report, err := ProgressReport(s)
	assert.NoError(t, err)
	assert.Contains(t, report, "ETH")
	assert.Contains(t, report, "Date")
}
