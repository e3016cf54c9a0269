package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/andrv/crypto_score_bot/internal/domain"
)

const (
	UpbitBaseURL = "https://api.upbit.com"
	UpbitWSURL   = "wss://api.upbit.com/websocket/v1"
)

// UpbitAdapter implements domain.Exchange against an Upbit-style API:
// JWT-authenticated REST plus a public websocket ticker stream.
type UpbitAdapter struct {
	accessKey string
	secretKey string
	baseURL   string
	wsURL     string
	client    *http.Client
	logger    *zap.Logger

	mu        sync.Mutex
	wsConn    *websocket.Conn
	wsDone    chan struct{}
	callbacks []func(market string, price float64)
}

func NewUpbitAdapter(accessKey, secretKey, baseURL, wsURL string, logger *zap.Logger) *UpbitAdapter {
	if baseURL == "" {
		baseURL = UpbitBaseURL
	}
	if wsURL == "" {
		wsURL = UpbitWSURL
	}
	return &UpbitAdapter{
		accessKey: accessKey,
		secretKey: secretKey,
		baseURL:   baseURL,
		wsURL:     wsURL,
		client:    &http.Client{Timeout: 10 * time.Second},
		logger:    logger,
		wsDone:    make(chan struct{}),
	}
}

// --- Auth ---

// authToken builds the JWT the API expects: HS256 over a payload of
// access key, nonce, and (for parameterized calls) a SHA512 hash of
// the query string.
func (u *UpbitAdapter) authToken(query string) string {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))

	payload := map[string]string{
		"access_key": u.accessKey,
		"nonce":      uuid.NewString(),
	}
	if query != "" {
		hash := sha512.Sum512([]byte(query))
		payload["query_hash"] = hex.EncodeToString(hash[:])
		payload["query_hash_alg"] = "SHA512"
	}
	payloadJSON, _ := json.Marshal(payload)
	body := base64.RawURLEncoding.EncodeToString(payloadJSON)

	mac := hmac.New(sha256.New, []byte(u.secretKey))
	mac.Write([]byte(header + "." + body))
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))

	return header + "." + body + "." + sig
}

func (u *UpbitAdapter) sendRequest(ctx context.Context, method, path, query string, body io.Reader, authed bool) ([]byte, error) {
	endpoint := u.baseURL + path
	if query != "" {
		endpoint += "?" + query
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		req.Header.Set("Authorization", "Bearer "+u.authToken(query))
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, string(data))
	}
	return data, nil
}

// --- Market data ---

type candlePayload struct {
	Market         string  `json:"market"`
	CandleDateTime string  `json:"candle_date_time_utc"`
	Open           float64 `json:"opening_price"`
	High           float64 `json:"high_price"`
	Low            float64 `json:"low_price"`
	Close          float64 `json:"trade_price"`
	AccTradePrice  float64 `json:"candle_acc_trade_price"`
	AccTradeVolume float64 `json:"candle_acc_trade_volume"`
	Unit           int     `json:"unit"`
}

// GetCandles fetches up to count minute candles and returns them
// oldest-first, the order the rest of the system stores series in.
// The API itself responds most-recent-first.
func (u *UpbitAdapter) GetCandles(ctx context.Context, market string, unit, count int) ([]domain.Candle, error) {
	query := url.Values{
		"market": {market},
		"count":  {strconv.Itoa(count)},
	}.Encode()

	data, err := u.sendRequest(ctx, http.MethodGet, fmt.Sprintf("/v1/candles/minutes/%d", unit), query, nil, false)
	if err != nil {
		return nil, err
	}

	var payload []candlePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode candles: %w", err)
	}

	candles := make([]domain.Candle, len(payload))
	for i, p := range payload {
		ts, err := time.Parse("2006-01-02T15:04:05", p.CandleDateTime)
		if err != nil {
			return nil, fmt.Errorf("decode candle timestamp %q: %w", p.CandleDateTime, err)
		}
		candles[len(payload)-1-i] = domain.Candle{
			Market:         p.Market,
			Open:           p.Open,
			High:           p.High,
			Low:            p.Low,
			Close:          p.Close,
			Timestamp:      ts,
			AccTradeVolume: p.AccTradeVolume,
			AccTradePrice:  p.AccTradePrice,
			Unit:           unit,
		}
	}
	return candles, nil
}

func (u *UpbitAdapter) GetCurrentPrice(ctx context.Context, market string) (float64, error) {
	query := url.Values{"markets": {market}}.Encode()
	data, err := u.sendRequest(ctx, http.MethodGet, "/v1/ticker", query, nil, false)
	if err != nil {
		return 0, err
	}

	var payload []struct {
		TradePrice float64 `json:"trade_price"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return 0, fmt.Errorf("decode ticker: %w", err)
	}
	if len(payload) == 0 {
		return 0, fmt.Errorf("no ticker for %s", market)
	}
	return payload[0].TradePrice, nil
}

// --- Account ---

type accountPayload struct {
	Currency     string `json:"currency"`
	Balance      string `json:"balance"`
	Locked       string `json:"locked"`
	AvgBuyPrice  string `json:"avg_buy_price"`
	UnitCurrency string `json:"unit_currency"`
}

func (u *UpbitAdapter) getAccounts(ctx context.Context) ([]accountPayload, error) {
	data, err := u.sendRequest(ctx, http.MethodGet, "/v1/accounts", "", nil, true)
	if err != nil {
		return nil, err
	}
	var payload []accountPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode accounts: %w", err)
	}
	return payload, nil
}

func (u *UpbitAdapter) GetBalance(ctx context.Context, currency string) (float64, error) {
	accounts, err := u.getAccounts(ctx)
	if err != nil {
		return 0, err
	}
	for _, a := range accounts {
		if a.Currency == currency {
			balance, err := strconv.ParseFloat(a.Balance, 64)
			if err != nil {
				return 0, fmt.Errorf("parse balance %q: %w", a.Balance, err)
			}
			return balance, nil
		}
	}
	return 0, nil
}

// GetPositions maps non-cash account entries onto positions keyed by
// their quote market (e.g. BTC held against KRW becomes KRW-BTC).
func (u *UpbitAdapter) GetPositions(ctx context.Context) ([]*domain.Position, error) {
	accounts, err := u.getAccounts(ctx)
	if err != nil {
		return nil, err
	}

	var positions []*domain.Position
	for _, a := range accounts {
		if a.Currency == a.UnitCurrency || a.UnitCurrency == "" {
			continue
		}
		volume, err := strconv.ParseFloat(a.Balance, 64)
		if err != nil || volume <= 0 {
			continue
		}
		avgPrice, _ := strconv.ParseFloat(a.AvgBuyPrice, 64)
		positions = append(positions, &domain.Position{
			Market:        a.UnitCurrency + "-" + a.Currency,
			Volume:        volume,
			AvgEntryPrice: avgPrice,
		})
	}
	return positions, nil
}

// --- Orders ---

type orderPayload struct {
	UUID           string `json:"uuid"`
	Market         string `json:"market"`
	Side           string `json:"side"`
	OrdType        string `json:"ord_type"`
	Price          string `json:"price"`
	Volume         string `json:"volume"`
	PaidFee        string `json:"paid_fee"`
	ExecutedVolume string `json:"executed_volume"`
	CreatedAt      string `json:"created_at"`
}

func (u *UpbitAdapter) placeOrder(ctx context.Context, params url.Values) (*orderPayload, error) {
	query := params.Encode()
	data, err := u.sendRequest(ctx, http.MethodPost, "/v1/orders", query, nil, true)
	if err != nil {
		return nil, err
	}
	var payload orderPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode order: %w", err)
	}
	return &payload, nil
}

// BuyMarket places a market buy spending amount of the quote currency.
func (u *UpbitAdapter) BuyMarket(ctx context.Context, market string, amount float64) (*domain.Trade, error) {
	payload, err := u.placeOrder(ctx, url.Values{
		"market":   {market},
		"side":     {"bid"},
		"ord_type": {"price"},
		"price":    {strconv.FormatFloat(amount, 'f', -1, 64)},
	})
	if err != nil {
		return nil, err
	}
	return payload.toTrade(domain.SideBuy, amount)
}

// SellMarket places a market sell of volume base units.
func (u *UpbitAdapter) SellMarket(ctx context.Context, market string, volume float64) (*domain.Trade, error) {
	payload, err := u.placeOrder(ctx, url.Values{
		"market":   {market},
		"side":     {"ask"},
		"ord_type": {"market"},
		"volume":   {strconv.FormatFloat(volume, 'f', -1, 64)},
	})
	if err != nil {
		return nil, err
	}
	return payload.toTrade(domain.SideSell, 0)
}

func (p *orderPayload) toTrade(side domain.Side, amount float64) (*domain.Trade, error) {
	price, _ := strconv.ParseFloat(p.Price, 64)
	volume, _ := strconv.ParseFloat(p.ExecutedVolume, 64)
	fee, _ := strconv.ParseFloat(p.PaidFee, 64)
	if amount == 0 {
		amount = price * volume
	}

	ts := time.Now().UTC()
	if parsed, err := time.Parse(time.RFC3339, p.CreatedAt); err == nil {
		ts = parsed
	}

	return &domain.Trade{
		ID:        p.UUID,
		Market:    p.Market,
		Side:      side,
		OrdType:   p.OrdType,
		Price:     price,
		Volume:    volume,
		Amount:    amount,
		Fee:       fee,
		Timestamp: ts,
	}, nil
}

// --- Websocket ticker feed ---

func (u *UpbitAdapter) OnPriceUpdate(callback func(market string, price float64)) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.callbacks = append(u.callbacks, callback)
}

// Subscribe opens the websocket if needed and requests ticker frames
// for the given markets. Reconnects with backoff until Close.
func (u *UpbitAdapter) Subscribe(markets []string) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.wsConn != nil {
		return u.writeSubscription(markets)
	}

	conn, _, err := websocket.DefaultDialer.Dial(u.wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial websocket: %w", err)
	}
	u.wsConn = conn
	if err := u.writeSubscription(markets); err != nil {
		conn.Close()
		u.wsConn = nil
		return err
	}

	go u.readLoop(markets)
	return nil
}

func (u *UpbitAdapter) writeSubscription(markets []string) error {
	sub := []interface{}{
		map[string]string{"ticket": uuid.NewString()},
		map[string]interface{}{"type": "ticker", "codes": markets},
	}
	return u.wsConn.WriteJSON(sub)
}

type tickerFrame struct {
	Type       string  `json:"type"`
	Code       string  `json:"code"`
	TradePrice float64 `json:"trade_price"`
}

func (u *UpbitAdapter) readLoop(markets []string) {
	for {
		select {
		case <-u.wsDone:
			return
		default:
		}

		u.mu.Lock()
		conn := u.wsConn
		u.mu.Unlock()
		if conn == nil {
			return
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			u.logger.Warn("websocket read failed, reconnecting", zap.Error(err))
			if !u.reconnect(markets) {
				return
			}
			continue
		}

		var frame tickerFrame
		if err := json.Unmarshal(message, &frame); err != nil || frame.Type != "ticker" {
			continue
		}
		if !strings.Contains(frame.Code, "-") || frame.TradePrice <= 0 {
			continue
		}

		u.mu.Lock()
		callbacks := make([]func(string, float64), len(u.callbacks))
		copy(callbacks, u.callbacks)
		u.mu.Unlock()
		for _, cb := range callbacks {
			cb(frame.Code, frame.TradePrice)
		}
	}
}

func (u *UpbitAdapter) reconnect(markets []string) bool {
	backoff := time.Second
	for {
		select {
		case <-u.wsDone:
			return false
		case <-time.After(backoff):
		}

		conn, _, err := websocket.DefaultDialer.Dial(u.wsURL, nil)
		if err == nil {
			u.mu.Lock()
			u.wsConn = conn
			err = u.writeSubscription(markets)
			u.mu.Unlock()
			if err == nil {
				u.logger.Info("websocket reconnected")
				return true
			}
			conn.Close()
		}

		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (u *UpbitAdapter) Close() {
	close(u.wsDone)
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.wsConn != nil {
		u.wsConn.Close()
		u.wsConn = nil
	}
}
