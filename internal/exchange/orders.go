package exchange

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
)

func parseFloatSafe(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

// createOrderResponse is the raw Binance /order response shape.
type createOrderResponse struct {
	Symbol              string `json:"symbol"`
	OrderID             int64  `json:"orderId"`
	TransactTime        int64  `json:"transactTime"`
	Price               string `json:"price"`
	ExecutedQuantity    string `json:"executedQty"`
	CummulativeQuoteQty string `json:"cummulativeQuoteQty"`
	Status              string `json:"status"`
	Side                string `json:"side"`
}

// createOrder places a MARKET order on the exchange.
func (c *RestClient) createOrder(symbol, side string, quantity float64) (*createOrderResponse, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("side", side)
	params.Set("type", OrderTypeMarket)
	params.Set("quantity", fmt.Sprintf("%f", quantity))
	params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	params.Set("recvWindow", recvWindow)

	signature := c.sign(params.Encode())
	params.Set("signature", signature)

	req := c.client.R().
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetBody(params.Encode()).
		SetResult(&createOrderResponse{})

	resp, err := c.doRequest(context.Background(), "POST", "/order", req, true)
	if err != nil {
		c.logger.Error("Failed to create order", zap.Error(err), zap.String("symbol", symbol), zap.String("side", side))
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	result := resp.Result().(*createOrderResponse)
	c.logger.Info("Order created", zap.String("symbol", symbol), zap.String("side", side), zap.Int64("orderId", result.OrderID))
	return result, nil
}

// formatQuantity floors quantity to the symbol's LOT_SIZE stepSize and
// enforces minQty.
func (c *RestClient) formatQuantity(symbol string, quantity float64) (float64, error) {
	rule, ok := c.exchangeRules[symbol]
	if !ok {
		return quantity, nil
	}

	var stepSize, minQtyStr string
	for _, f := range rule.Filters {
		if f.FilterType == "LOT_SIZE" {
			stepSize = f.StepSize
			minQtyStr = f.MinQty
			break
		}
	}
	if stepSize == "" {
		return quantity, nil
	}

	minQty, _ := strconv.ParseFloat(minQtyStr, 64)
	if quantity < minQty {
		return 0, fmt.Errorf("quantity %.8f is less than minQty %.8f for symbol %s", quantity, minQty, symbol)
	}

	precision := precisionFromStep(stepSize)
	multiplier := math.Pow(10, float64(precision))
	floored := math.Floor(quantity*multiplier) / multiplier

	if floored < minQty {
		return 0, fmt.Errorf("formatted quantity %.8f is less than minQty %.8f for symbol %s", floored, minQty, symbol)
	}
	return floored, nil
}

// precisionFromStep derives decimal precision from a LOT_SIZE
// stepSize string such as "0.001000" -> 3.
func precisionFromStep(stepSize string) int {
	dotIndex := -1
	for i, r := range stepSize {
		if r == '.' {
			dotIndex = i
			break
		}
	}
	if dotIndex == -1 {
		return 0
	}

	trimmed := ""
	for i := len(stepSize) - 1; i > dotIndex; i-- {
		if stepSize[i] != '0' {
			trimmed = stepSize[0 : i+1]
			break
		}
	}
	if trimmed == "" {
		return 0
	}
	return len(trimmed) - dotIndex - 1
}

// SellAlt submits a market sell of from-coin for bridge, blocking until
// fill confirmation. Returns nil on failure, per the adapter contract.
func (c *RestClient) SellAlt(from, bridge string) (*OrderResult, error) {
	symbol := from + bridge
	qty, err := c.GetCurrencyBalance(from, false)
	if err != nil {
		return nil, err
	}
	formatted, err := c.formatQuantity(symbol, qty)
	if err != nil {
		return nil, fmt.Errorf("could not format sell quantity: %w", err)
	}

	order, err := c.createOrder(symbol, OrderSideSell, formatted)
	if err != nil {
		return nil, err
	}
	return c.toOrderResult(order)
}

// BuyAlt submits a market buy of to-coin using the available bridge
// balance (or, when limitPrice is given, sizes against that price
// instead of a live read), blocking until fill confirmation.
func (c *RestClient) BuyAlt(to, bridge string, limitPrice *float64) (*OrderResult, error) {
	symbol := to + bridge
	bridgeBalance, err := c.GetCurrencyBalance(bridge, false)
	if err != nil {
		return nil, err
	}

	price := limitPrice
	if price == nil {
		p, err := c.GetBuyPrice(symbol)
		if err != nil || p == nil {
			return nil, fmt.Errorf("could not get buy price for %s", symbol)
		}
		price = p
	}
	if *price <= 0 {
		return nil, fmt.Errorf("invalid buy price for %s", symbol)
	}

	qty := bridgeBalance / *price
	formatted, err := c.formatQuantity(symbol, qty)
	if err != nil {
		return nil, fmt.Errorf("could not format buy quantity: %w", err)
	}

	order, err := c.createOrder(symbol, OrderSideBuy, formatted)
	if err != nil {
		return nil, err
	}
	return c.toOrderResult(order)
}

func (c *RestClient) toOrderResult(order *createOrderResponse) (*OrderResult, error) {
	price, _ := strconv.ParseFloat(order.Price, 64)
	qty, _ := strconv.ParseFloat(order.ExecutedQuantity, 64)
	quoteQty, _ := strconv.ParseFloat(order.CummulativeQuoteQty, 64)

	if price == 0 && qty != 0 {
		price = quoteQty / qty
	}

	return &OrderResult{
		Symbol:        order.Symbol,
		Side:          order.Side,
		Price:         price,
		Quantity:      qty,
		QuoteQuantity: quoteQty,
		OrderID:       order.OrderID,
	}, nil
}
