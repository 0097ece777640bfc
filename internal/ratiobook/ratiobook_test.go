package ratiobook

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

func setupTest(t *testing.T) (*store.Store, *MockAdapter) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	assert.NoError(t, err)
	s := store.New(db)
	assert.NoError(t, s.CreateSchema())
	return s, new(MockAdapter)
}

func floatPtr(f float64) *float64 { return &f }

func TestInitializeCold_SeedsUninitializedPairs(t *testing.T) {
	s, adapter := setupTest(t)
	assert.NoError(t, s.SetSupportedCoins([]string{"BTC", "ETH", "USDT"}))

	adapter.On("GetTickerPrice", "BTCUSDT").Return(floatPtr(60000), nil)
	adapter.On("GetTickerPrice", "ETHUSDT").Return(floatPtr(4000), nil)
	// SetSupportedCoins also creates USDT-involving pairs; they are
	// skipped because the USDTUSDT lookup returns no price. Only the
	// BTC/ETH leg is asserted here.
	adapter.On("GetTickerPrice", "USDTUSDT").Return((*float64)(nil), nil).Maybe()

	book := New(s, adapter, zap.NewNop(), "USDT")
	assert.NoError(t, book.InitializeCold())

	pair, err := s.GetPair("BTC", "ETH")
	assert.NoError(t, err)
	assert.NotNil(t, pair.Ratio)
	assert.InDelta(t, 15.0, *pair.Ratio, 0.0001)
}

func TestPeriodicReanchorEWMA_BlendsTowardNewSample(t *testing.T) {
	s, adapter := setupTest(t)
	assert.NoError(t, s.SetSupportedCoins([]string{"BTC", "ETH"}))
	pair, err := s.GetPair("BTC", "ETH")
	assert.NoError(t, err)
	assert.NoError(t, s.UpdatePairRatio(&pair, 14.0))

	adapter.On("GetSellPrice", "BTCUSDT").Return(floatPtr(60000), nil)
	adapter.On("GetBuyPrice", "ETHUSDT").Return(floatPtr(4000), nil)

	book := New(s, adapter, zap.NewNop(), "USDT")
	assert.NoError(t, book.PeriodicReanchorEWMA(9))

	updated, err := s.GetPair("BTC", "ETH")
	assert.NoError(t, err)
	// sample 60000/4000 = 15.0; (9*14.0 + 15.0)/10 == 14.1, pulled from
	// the remembered 14.0 toward the sample
	assert.InDelta(t, 14.1, *updated.Ratio, 0.0001)
}

func TestPostJumpResetBaseline_UsesFillPriceForward_LivePriceInverse(t *testing.T) {
	s, adapter := setupTest(t)
	assert.NoError(t, s.SetSupportedCoins([]string{"BTC", "ETH", "BNB"}))

	adapter.On("GetTickerPrice", "BTCUSDT").Return(floatPtr(60000), nil)
	adapter.On("GetTickerPrice", "BNBUSDT").Return(floatPtr(500), nil)

	book := New(s, adapter, zap.NewNop(), "USDT")
	assert.NoError(t, book.PostJumpResetBaseline("BTC", "ETH", 4100))

	inverse, err := s.GetPair("ETH", "BTC")
	assert.NoError(t, err)
	assert.InDelta(t, 4100.0/60000.0, *inverse.Ratio, 0.0001)

	incoming, err := s.GetPair("BNB", "ETH")
	assert.NoError(t, err)
	assert.InDelta(t, 500.0/4100.0, *incoming.Ratio, 0.0001)
}
