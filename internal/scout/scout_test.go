package scout

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"ratio-jump-trader/internal/exchange"
	"ratio-jump-trader/internal/models"
	"ratio-jump-trader/internal/store"
)

// MockAdapter is a mock implementation of exchange.Adapter.
type MockAdapter struct {
	mock.Mock
}

func (m *MockAdapter) GetTickerPrice(symbol string) (*float64, error) {
	args := m.Called(symbol)
	p, _ := args.Get(0).(*float64)
	return p, args.Error(1)
}
func (m *MockAdapter) GetSellPrice(symbol string) (*float64, error) {
	args := m.Called(symbol)
	p, _ := args.Get(0).(*float64)
	return p, args.Error(1)
}
func (m *MockAdapter) GetBuyPrice(symbol string) (*float64, error) {
	args := m.Called(symbol)
	p, _ := args.Get(0).(*float64)
	return p, args.Error(1)
}
func (m *MockAdapter) GetCurrencyBalance(symbol string, forceRefresh bool) (float64, error) {
	args := m.Called(symbol, forceRefresh)
	return args.Get(0).(float64), args.Error(1)
}
func (m *MockAdapter) GetMinNotional(alt, quote string) (float64, error) {
	args := m.Called(alt, quote)
	return args.Get(0).(float64), args.Error(1)
}
func (m *MockAdapter) GetFee(coin, bridge string, selling bool) (float64, error) {
	args := m.Called(coin, bridge, selling)
	return args.Get(0).(float64), args.Error(1)
}
func (m *MockAdapter) SellAlt(from, bridge string) (*exchange.OrderResult, error) {
	args := m.Called(from, bridge)
	r, _ := args.Get(0).(*exchange.OrderResult)
	return r, args.Error(1)
}
func (m *MockAdapter) BuyAlt(to, bridge string, limitPrice *float64) (*exchange.OrderResult, error) {
	args := m.Called(to, bridge, limitPrice)
	r, _ := args.Get(0).(*exchange.OrderResult)
	return r, args.Error(1)
}
func (m *MockAdapter) GetHistoricalKlines(symbol, interval string, start, end time.Time, limit int) ([]exchange.Kline, error) {
	args := m.Called(symbol, interval, start, end, limit)
	k, _ := args.Get(0).([]exchange.Kline)
	return k, args.Error(1)
}
func (m *MockAdapter) Now() time.Time {
	args := m.Called()
	return args.Get(0).(time.Time)
}
func (m *MockAdapter) GetAccount() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockAdapter) Close() error {
	args := m.Called()
	return args.Error(0)
}

func floatPtr(f float64) *float64 { return &f }

func setupTest(t *testing.T) (*store.Store, *MockAdapter) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	assert.NoError(t, err)
	s := store.New(db)
	assert.NoError(t, s.CreateSchema())
	return s, new(MockAdapter)
}

func TestEvaluateOutgoing_NoOpportunity(t *testing.T) {
	s, adapter := setupTest(t)
	assert.NoError(t, s.SetSupportedCoins([]string{"BTC", "ETH", "USDT"}))
	pair, err := s.GetPair("BTC", "ETH")
	assert.NoError(t, err)
	assert.NoError(t, s.UpdatePairRatio(&pair, 16.0))

	adapter.On("GetTickerPrice", "ETHUSDT").Return(floatPtr(3800), nil)
	adapter.On("GetFee", "BTC", "USDT", true).Return(0.001, nil)
	adapter.On("GetFee", "ETH", "USDT", false).Return(0.001, nil)

	engine := New(s, adapter, zap.NewNop())
	engine.Bridge = "USDT"
	engine.ScoutMultiplier = 5

	opportunities, err := engine.EvaluateOutgoing("BTC", 60000)
	assert.NoError(t, err)
	assert.Len(t, opportunities, 1)

	best := BestJump(opportunities)
	assert.Nil(t, best, "ratio 60000/3800=15.78 is below remembered 16.0, no jump")
}

func TestEvaluateOutgoing_ProfitableJump(t *testing.T) {
	s, adapter := setupTest(t)
	assert.NoError(t, s.SetSupportedCoins([]string{"BTC", "ETH", "USDT"}))
	pair, err := s.GetPair("BTC", "ETH")
	assert.NoError(t, err)
	assert.NoError(t, s.UpdatePairRatio(&pair, 15.0))

	adapter.On("GetTickerPrice", "ETHUSDT").Return(floatPtr(3900), nil)
	adapter.On("GetFee", "BTC", "USDT", true).Return(0.001, nil)
	adapter.On("GetFee", "ETH", "USDT", false).Return(0.001, nil)

	engine := New(s, adapter, zap.NewNop())
	engine.Bridge = "USDT"
	engine.ScoutMultiplier = 5

	opportunities, err := engine.EvaluateOutgoing("BTC", 60000)
	assert.NoError(t, err)

	best := BestJump(opportunities)
	assert.NotNil(t, best)
	assert.Equal(t, "ETH", best.Pair.ToCoinSymbol)
	assert.Greater(t, best.Score, 0.0)
}

func TestStuckLossFallback_NotYetDue(t *testing.T) {
	s, adapter := setupTest(t)
	engine := New(s, adapter, zap.NewNop())
	engine.LossAfterHours = 6
	engine.MaxLossPercent = 5

	now := time.Now()
	since := now.Add(-1 * time.Hour)
	best := engine.StuckLossFallback(now, since, nil)
	assert.Nil(t, best)
}

func TestStuckLossFallback_QualifiesWithinLossBand(t *testing.T) {
	s, adapter := setupTest(t)
	engine := New(s, adapter, zap.NewNop())
	engine.LossAfterHours = 6
	engine.MaxLossPercent = 5

	now := time.Now()
	since := now.Add(-7 * time.Hour)

	r := 16.0
	candidate := Opportunity{
		Pair:  models.Pair{FromCoinSymbol: "BTC", ToCoinSymbol: "ETH", Ratio: &r},
		Score: -0.5, // small loss, within 5% band: (score+remembered)/remembered >= 0.95
	}
	best := engine.StuckLossFallback(now, since, []Opportunity{candidate})
	assert.NotNil(t, best)
	assert.Equal(t, "ETH", best.Pair.ToCoinSymbol)
}
