package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"ratio-jump-trader/internal/config"
)

const (
	baseURL        = "https://api.binance.com/api/v3"
	testnetBaseURL = "https://testnet.binance.vision/api/v3"
	recvWindow     = "5000"

	OrderTypeMarket = "MARKET"
	OrderSideBuy    = "BUY"
	OrderSideSell   = "SELL"
)

// RestClient is a client for the Binance REST API. It implements
// Adapter.
type RestClient struct {
	client    *resty.Client
	apiKey    string
	secretKey string
	logger    *zap.Logger
	limiter   *rate.Limiter
	stream    *priceStream
	metrics   *metrics

	exchangeRules map[string]SymbolInfo
	balances      *balanceCache
}

var _ Adapter = (*RestClient)(nil)

// NewRestClient creates a new Binance REST API client and starts its
// background price stream.
func NewRestClient(cfg *config.Exchange, logger *zap.Logger) *RestClient {
	var url string
	if cfg.Testnet {
		url = testnetBaseURL
		logger.Warn("Using Binance Testnet")
	} else {
		url = baseURL
		logger.Info("Using Binance Production API")
	}

	client := resty.New().SetBaseURL(url)
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)

	rc := &RestClient{
		client:        client,
		apiKey:        cfg.APIKey,
		secretKey:     cfg.SecretKey,
		logger:        logger,
		limiter:       limiter,
		exchangeRules: make(map[string]SymbolInfo),
		balances:      newBalanceCache(),
		metrics:       newMetrics(),
	}
	rc.stream = newPriceStream(rc, logger)
	rc.stream.start()
	return rc
}

func (c *RestClient) sign(data string) string {
	h := hmac.New(sha256.New, []byte(c.secretKey))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

// Now returns the exchange's notion of current time. Binance exposes a
// dedicated /time endpoint for clock-skew checks; we treat wall-clock
// as sufficiently close for scheduling purposes and reserve the REST
// round trip for the explicit connectivity probe in GetAccount.
func (c *RestClient) Now() time.Time {
	return time.Now()
}

// Close shuts down the background price stream (the adapter's
// "stream_manager.close()" equivalent).
func (c *RestClient) Close() error {
	c.stream.stop()
	return nil
}

// GetAccount is the credential probe at startup; failure aborts boot.
func (c *RestClient) GetAccount() error {
	_, err := c.getServerTime()
	if err != nil {
		return fmt.Errorf("could not reach exchange: %w", err)
	}
	req := c.client.R().
		SetHeader("X-MBX-APIKEY", c.apiKey).
		SetResult(&struct{}{})
	_, err = c.doRequest(context.Background(), "GET", "/account", req, true)
	if err != nil {
		return fmt.Errorf("account probe failed: %w", err)
	}
	return nil
}

func (c *RestClient) getServerTime() (int64, error) {
	type serverTimeResponse struct {
		ServerTime int64 `json:"serverTime"`
	}
	req := c.client.R().SetResult(&serverTimeResponse{})
	resp, err := c.doRequest(context.Background(), "GET", "/time", req, false)
	if err != nil {
		return 0, err
	}
	return resp.Result().(*serverTimeResponse).ServerTime, nil
}

// doRequest handles the actual request execution with rate limiting
// and retry/backoff logic, optionally signing the request. A signed
// request without a body gets timestamp, recvWindow and an HMAC
// signature added to its query; a request that carries a body (such as
// createOrder's) is sent with the signature it already has.
func (c *RestClient) doRequest(ctx context.Context, method, url string, req *resty.Request, signed bool) (*resty.Response, error) {
	if signed {
		req.SetHeader("X-MBX-APIKEY", c.apiKey)
		if req.Body == nil && req.QueryParam.Get("signature") == "" {
			req.SetQueryParam("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
			req.SetQueryParam("recvWindow", recvWindow)
			req.SetQueryParam("signature", c.sign(req.QueryParam.Encode()))
		}
	}

	var resp *resty.Response
	var err error
	const maxRetries = 3

	for i := 0; i < maxRetries; i++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		start := time.Now()
		resp, err = req.Execute(method, url)
		c.metrics.observeRequest(method, url, time.Since(start), err == nil && resp != nil && !resp.IsError())

		if err == nil && !resp.IsError() {
			return resp, nil
		}

		shouldRetry := false
		var retryAfter time.Duration

		if resp != nil {
			statusCode := resp.StatusCode()
			if statusCode == http.StatusTooManyRequests || statusCode == 418 {
				shouldRetry = true
				if seconds, convErr := strconv.Atoi(resp.Header().Get("Retry-After")); convErr == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			} else if statusCode >= 500 {
				shouldRetry = true
			}
		} else {
			shouldRetry = true
		}

		if !shouldRetry {
			if resp != nil {
				return nil, fmt.Errorf("request failed with status %s: %s", resp.Status(), resp.String())
			}
			return nil, fmt.Errorf("request failed: %w", err)
		}

		if retryAfter == 0 {
			retryAfter = time.Duration(math.Pow(2, float64(i))) * time.Second
		}

		c.logger.Warn("Request failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, err)
}
