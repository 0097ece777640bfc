package trader

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"ratio-jump-trader/internal/config"
	"ratio-jump-trader/internal/exchange"
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

func ptr(f float64) *float64 { return &f }

func setupTest(t *testing.T) (*store.Store, *MockAdapter) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	assert.NoError(t, err)
	s := store.New(db)
	assert.NoError(t, s.CreateSchema())
	return s, new(MockAdapter)
}

func TestNewStrategy_UnknownNameErrors(t *testing.T) {
	_, err := NewStrategy("does-not-exist")
	assert.Error(t, err)
}

func TestNewStrategy_KnownNames(t *testing.T) {
	for _, name := range []string{"default", "ratio_adjust"} {
		strategy, err := NewStrategy(name)
		assert.NoError(t, err)
		assert.Equal(t, name, strategy.Name())
	}
}

func TestDefaultStrategy_Initialize_SeedsCurrentCoinAndRatios(t *testing.T) {
	s, adapter := setupTest(t)
	assert.NoError(t, s.SetSupportedCoins([]string{"BTC", "ETH", "USDT"}))

	adapter.On("GetTickerPrice", "BTCUSDT").Return(ptr(60000.0), nil)
	adapter.On("GetTickerPrice", "ETHUSDT").Return(ptr(4000.0), nil)
	adapter.On("GetTickerPrice", "USDTUSDT").Return((*float64)(nil), nil).Maybe()

	cfg := config.Trading{Bridge: "USDT", SupportedCoinList: []string{"BTC", "ETH", "USDT"}}
	engine := New(s, adapter, zap.NewNop(), cfg, &DefaultStrategy{})

	assert.NoError(t, engine.Initialize())

	cc, err := s.GetCurrentCoin()
	assert.NoError(t, err)
	assert.NotEqual(t, "USDT", cc.Symbol)

	pair, err := s.GetPair("BTC", "ETH")
	assert.NoError(t, err)
	assert.NotNil(t, pair.Ratio)
}

func TestDefaultStrategy_Scout_NoProfitableJump_NoOp(t *testing.T) {
	s, adapter := setupTest(t)
	assert.NoError(t, s.SetSupportedCoins([]string{"BTC", "ETH", "USDT"}))
	assert.NoError(t, s.SetCurrentCoin("BTC", time.Now()))
	pair, err := s.GetPair("BTC", "ETH")
	assert.NoError(t, err)
	assert.NoError(t, s.UpdatePairRatio(&pair, 16.0))

	adapter.On("GetTickerPrice", "BTCUSDT").Return(ptr(60000.0), nil)
	adapter.On("GetTickerPrice", "ETHUSDT").Return(ptr(3800.0), nil)
	adapter.On("GetFee", "BTC", "USDT", true).Return(0.001, nil)
	adapter.On("GetFee", "ETH", "USDT", false).Return(0.001, nil)

	cfg := config.Trading{Bridge: "USDT", ScoutMultiplier: 5}
	engine := New(s, adapter, zap.NewNop(), cfg, &DefaultStrategy{})

	assert.NoError(t, engine.Scout())
	adapter.AssertNotCalled(t, "SellAlt", mock.Anything, mock.Anything)

	cc, err := s.GetCurrentCoin()
	assert.NoError(t, err)
	assert.Equal(t, "BTC", cc.Symbol)
}

func TestDefaultStrategy_Scout_ProfitableJump_Executes(t *testing.T) {
	s, adapter := setupTest(t)
	assert.NoError(t, s.SetSupportedCoins([]string{"BTC", "ETH", "USDT"}))
	assert.NoError(t, s.SetCurrentCoin("BTC", time.Now()))
	pair, err := s.GetPair("BTC", "ETH")
	assert.NoError(t, err)
	assert.NoError(t, s.UpdatePairRatio(&pair, 15.0))
	inverse, err := s.GetPair("ETH", "BTC")
	assert.NoError(t, err)
	assert.NoError(t, s.UpdatePairRatio(&inverse, 1.0/15.0))

	adapter.On("GetTickerPrice", "BTCUSDT").Return(ptr(60000.0), nil)
	adapter.On("GetTickerPrice", "ETHUSDT").Return(ptr(3900.0), nil)
	adapter.On("GetTickerPrice", "USDTUSDT").Return(ptr(1.0), nil).Maybe()
	adapter.On("GetFee", "BTC", "USDT", true).Return(0.001, nil)
	adapter.On("GetFee", "ETH", "USDT", false).Return(0.001, nil)
	adapter.On("GetMinNotional", "BTC", "USDT").Return(10.0, nil)
	adapter.On("GetCurrencyBalance", "BTC", false).Return(1.0, nil)
	adapter.On("SellAlt", "BTC", "USDT").Return(&exchange.OrderResult{
		Symbol: "BTCUSDT", Side: "SELL", Price: 60000, Quantity: 1.0, QuoteQuantity: 60000,
	}, nil)
	adapter.On("BuyAlt", "ETH", "USDT", (*float64)(nil)).Return(&exchange.OrderResult{
		Symbol: "ETHUSDT", Side: "BUY", Price: 3900, Quantity: 15.38, QuoteQuantity: 60000,
	}, nil)
	adapter.On("Now").Return(time.Now())

	cfg := config.Trading{Bridge: "USDT", ScoutMultiplier: 5}
	engine := New(s, adapter, zap.NewNop(), cfg, &DefaultStrategy{})

	assert.NoError(t, engine.Scout())

	cc, err := s.GetCurrentCoin()
	assert.NoError(t, err)
	assert.Equal(t, "ETH", cc.Symbol)
}
