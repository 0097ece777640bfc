// Package exchange is the exchange adapter collaborator: prices,
// balances, fees, min-notional, order placement, order status, and
// historical klines. Everything here is a suspension point — the only
// place the trading loop yields time to network I/O (spec §5).
package exchange

import "time"

// Kline is one candle as returned by GetHistoricalKlines. Open price
// lives at index 1 of the raw Binance array; here it's named.
type Kline struct {
	OpenTime  int64
	OpenPrice float64
}

// Adapter is the full exchange contract (spec §6). Implementations
// must treat a missing symbol as a null price, never an error.
type Adapter interface {
	GetTickerPrice(symbol string) (*float64, error)
	GetSellPrice(symbol string) (*float64, error)
	GetBuyPrice(symbol string) (*float64, error)
	GetCurrencyBalance(symbol string, forceRefresh bool) (float64, error)
	GetMinNotional(alt, quote string) (float64, error)
	GetFee(coin, bridge string, selling bool) (float64, error)
	SellAlt(from, bridge string) (*OrderResult, error)
	BuyAlt(to, bridge string, limitPrice *float64) (*OrderResult, error)
	GetHistoricalKlines(symbol, interval string, start, end time.Time, limit int) ([]Kline, error)
	Now() time.Time
	GetAccount() error
	Close() error
}

// OrderResult is what a completed (or failed) sell/buy leg reports
// back to the transaction protocol: the actual fill price and the
// quantity obtained, as distinct from the pre-trade live ticker.
type OrderResult struct {
	Symbol       string
	Side         string
	Price        float64
	Quantity     float64
	QuoteQuantity float64
	OrderID      int64
}
