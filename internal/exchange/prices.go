package exchange

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// tickerPrice is the raw /ticker/price response shape.
type tickerPrice struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// bookTicker is the raw /ticker/bookTicker response shape: best bid
// (sell price from the trader's perspective) and best ask (buy price).
type bookTicker struct {
	Symbol   string `json:"symbol"`
	BidPrice string `json:"bidPrice"`
	AskPrice string `json:"askPrice"`
}

// getAllTickerPrices fetches the latest last-trade price for every
// symbol in one call.
func (c *RestClient) getAllTickerPrices() (map[string]float64, error) {
	var prices []*tickerPrice
	req := c.client.R().SetResult(&prices)
	resp, err := c.doRequest(context.Background(), "GET", "/ticker/price", req, false)
	if err != nil {
		return nil, fmt.Errorf("failed to get all ticker prices: %w", err)
	}
	result := resp.Result().(*[]*tickerPrice)

	out := make(map[string]float64, len(*result))
	for _, p := range *result {
		if v, err := strconv.ParseFloat(p.Price, 64); err == nil {
			out[p.Symbol] = v
		}
	}
	return out, nil
}

// getAllBookTickers fetches best bid/ask for every symbol in one call.
func (c *RestClient) getAllBookTickers() (map[string]bookTicker, error) {
	var tickers []*bookTicker
	req := c.client.R().SetResult(&tickers)
	resp, err := c.doRequest(context.Background(), "GET", "/ticker/bookTicker", req, false)
	if err != nil {
		return nil, fmt.Errorf("failed to get book tickers: %w", err)
	}
	result := resp.Result().(*[]*bookTicker)

	out := make(map[string]bookTicker, len(*result))
	for _, t := range *result {
		out[t.Symbol] = *t
	}
	return out, nil
}

// GetTickerPrice returns the current last-trade price, or nil when the
// symbol is absent. Reads through the background price stream, falling
// back to a direct REST read on a cold-cache miss (the stream hasn't
// completed its first refresh yet, e.g. right after boot).
func (c *RestClient) GetTickerPrice(symbol string) (*float64, error) {
	if price, ok := c.stream.lastPrice(symbol); ok {
		return &price, nil
	}
	return c.getTickerPriceREST(symbol)
}

// GetSellPrice returns the current best bid — what the trader would
// receive selling symbol right now.
func (c *RestClient) GetSellPrice(symbol string) (*float64, error) {
	if price, ok := c.stream.bid(symbol); ok {
		return &price, nil
	}
	book, err := c.getBookTickerREST(symbol)
	if err != nil || book == nil || book.BidPrice == "" {
		return nil, err
	}
	v, err := parseFloatSafe(book.BidPrice)
	if err != nil {
		return nil, nil
	}
	return &v, nil
}

// GetBuyPrice returns the current best ask — what the trader would pay
// buying symbol right now.
func (c *RestClient) GetBuyPrice(symbol string) (*float64, error) {
	if price, ok := c.stream.ask(symbol); ok {
		return &price, nil
	}
	book, err := c.getBookTickerREST(symbol)
	if err != nil || book == nil || book.AskPrice == "" {
		return nil, err
	}
	v, err := parseFloatSafe(book.AskPrice)
	if err != nil {
		return nil, nil
	}
	return &v, nil
}

// getTickerPriceREST fetches a single symbol's last-trade price
// directly, bypassing the price stream cache. A malformed price field
// is reported as a nil price, not an error, matching Adapter's contract.
func (c *RestClient) getTickerPriceREST(symbol string) (*float64, error) {
	var p tickerPrice
	req := c.client.R().SetQueryParam("symbol", symbol).SetResult(&p)
	resp, err := c.doRequest(context.Background(), "GET", "/ticker/price", req, false)
	if err != nil {
		return nil, fmt.Errorf("failed to get ticker price for %s: %w", symbol, err)
	}
	v, err := strconv.ParseFloat(resp.Result().(*tickerPrice).Price, 64)
	if err != nil {
		return nil, nil
	}
	return &v, nil
}

// getBookTickerREST fetches a single symbol's best bid/ask directly,
// bypassing the price stream cache.
func (c *RestClient) getBookTickerREST(symbol string) (*bookTicker, error) {
	var b bookTicker
	req := c.client.R().SetQueryParam("symbol", symbol).SetResult(&b)
	resp, err := c.doRequest(context.Background(), "GET", "/ticker/bookTicker", req, false)
	if err != nil {
		return nil, fmt.Errorf("failed to get book ticker for %s: %w", symbol, err)
	}
	return resp.Result().(*bookTicker), nil
}

// ExchangeInfoResponse is the full response from /exchangeInfo.
type ExchangeInfoResponse struct {
	Symbols []SymbolInfo `json:"symbols"`
}

// SymbolInfo describes trading rules for one symbol.
type SymbolInfo struct {
	Symbol  string   `json:"symbol"`
	Status  string   `json:"status"`
	Filters []Filter `json:"filters"`
}

// Filter is a single exchangeInfo filter entry.
type Filter struct {
	FilterType  string `json:"filterType"`
	MinQty      string `json:"minQty,omitempty"`
	MaxQty      string `json:"maxQty,omitempty"`
	StepSize    string `json:"stepSize,omitempty"`
	MinNotional string `json:"minNotional,omitempty"`
}

// GetExchangeInfo fetches and caches exchange trading rules.
func (c *RestClient) GetExchangeInfo() (*ExchangeInfoResponse, error) {
	var info ExchangeInfoResponse
	req := c.client.R().SetResult(&info)
	resp, err := c.doRequest(context.Background(), "GET", "/exchangeInfo", req, false)
	if err != nil {
		return nil, fmt.Errorf("failed to get exchange info: %w", err)
	}
	result := resp.Result().(*ExchangeInfoResponse)
	for _, s := range result.Symbols {
		c.exchangeRules[s.Symbol] = s
	}
	return result, nil
}

// GetMinNotional returns the minimum order size, in quote units, for
// trading alt against quote.
func (c *RestClient) GetMinNotional(alt, quote string) (float64, error) {
	symbol := alt + quote
	rule, ok := c.exchangeRules[symbol]
	if !ok {
		return 10.0, nil // conservative default when rules weren't cached
	}
	for _, f := range rule.Filters {
		if f.FilterType == "MIN_NOTIONAL" || f.FilterType == "NOTIONAL" {
			if v, err := strconv.ParseFloat(f.MinNotional, 64); err == nil {
				return v, nil
			}
		}
	}
	return 10.0, nil
}

// GetFee returns the effective fee rate for trading coin against
// bridge. Binance's real fee schedule depends on account tier and VIP
// level (a dedicated signed endpoint); we expose the commonly
// configured flat maker/taker split so the profitability math in
// internal/scout has a concrete number to work with.
func (c *RestClient) GetFee(coin, bridge string, selling bool) (float64, error) {
	const makerFee = 0.001
	const takerFee = 0.001
	if selling {
		return makerFee, nil
	}
	return takerFee, nil
}

// GetCurrencyBalance returns the free balance of symbol. When
// forceRefresh is false, a cached value (refreshed by the account
// stream) is returned if present.
func (c *RestClient) GetCurrencyBalance(symbol string, forceRefresh bool) (float64, error) {
	if !forceRefresh {
		if bal, ok := c.balances.get(symbol); ok {
			return bal, nil
		}
	}
	return c.refreshBalance(symbol)
}

func (c *RestClient) refreshBalance(symbol string) (float64, error) {
	type balanceEntry struct {
		Asset string `json:"asset"`
		Free  string `json:"free"`
	}
	type accountResponse struct {
		Balances []balanceEntry `json:"balances"`
	}

	var account accountResponse
	req := c.client.R().SetResult(&account)
	resp, err := c.doRequest(context.Background(), "GET", "/account", req, true)
	if err != nil {
		return 0, fmt.Errorf("failed to refresh balance: %w", err)
	}
	result := resp.Result().(*accountResponse)

	var found float64
	for _, b := range result.Balances {
		v, _ := strconv.ParseFloat(b.Free, 64)
		c.balances.set(b.Asset, v)
		if b.Asset == symbol {
			found = v
		}
	}
	return found, nil
}

// GetHistoricalKlines fetches up to limit 1-minute OHLCV candles for
// symbol between start and end. Open price is index 1 in the raw
// Binance array; Kline exposes it directly as OpenPrice.
func (c *RestClient) GetHistoricalKlines(symbol, interval string, start, end time.Time, limit int) ([]Kline, error) {
	var raw [][]interface{}
	req := c.client.R().
		SetQueryParams(map[string]string{
			"symbol":    symbol,
			"interval":  interval,
			"startTime": strconv.FormatInt(start.UnixMilli(), 10),
			"endTime":   strconv.FormatInt(end.UnixMilli(), 10),
			"limit":     strconv.Itoa(limit),
		}).
		SetResult(&raw)

	resp, err := c.doRequest(context.Background(), "GET", "/klines", req, false)
	if err != nil {
		return nil, fmt.Errorf("failed to get historical klines for %s: %w", symbol, err)
	}
	result := resp.Result().(*[][]interface{})

	klines := make([]Kline, 0, len(*result))
	for _, row := range *result {
		if len(row) < 2 {
			continue
		}
		openTime, _ := row[0].(float64)
		openStr, _ := row[1].(string)
		openPrice, err := strconv.ParseFloat(openStr, 64)
		if err != nil {
			c.logger.Warn("Could not parse kline open price", zap.String("symbol", symbol), zap.Any("raw", row[1]))
			continue
		}
		klines = append(klines, Kline{OpenTime: int64(openTime), OpenPrice: openPrice})
	}
	return klines, nil
}
