package bybit

import (
	"encoding/json"
	"strconv"

	"github.com/shopspring/decimal"
)

// envelope is the common response wrapper of the v2 API.
type envelope struct {
	RetCode int             `json:"ret_code"`
	RetMsg  string          `json:"ret_msg"`
	Result  json.RawMessage `json:"result"`
}

type symbolInfo struct {
	Name          string `json:"name"`
	Alias         string `json:"alias"`
	Status        string `json:"status"`
	BaseCurrency  string `json:"base_currency"`
	QuoteCurrency string `json:"quote_currency"`
}

type orderCreateRequest struct {
	Side        string `json:"side"`
	Symbol      string `json:"symbol"`
	OrderType   string `json:"order_type"`
	Qty         int64  `json:"qty"`
	TimeInForce string `json:"time_in_force"`
	Price       string `json:"price,omitempty"`
	OrderLinkID string `json:"order_link_id,omitempty"`
}

// params returns the request as strings, the form it is signed in.
func (r orderCreateRequest) params() map[string]string {
	p := map[string]string{
		"side":          r.Side,
		"symbol":        r.Symbol,
		"order_type":    r.OrderType,
		"qty":           strconv.FormatInt(r.Qty, 10),
		"time_in_force": r.TimeInForce,
	}
	if r.Price != "" {
		p["price"] = r.Price
	}
	if r.OrderLinkID != "" {
		p["order_link_id"] = r.OrderLinkID
	}
	return p
}

type orderCreateResult struct {
	OrderID   string          `json:"order_id"`
	Symbol    string          `json:"symbol"`
	Side      string          `json:"side"`
	Qty       decimal.Decimal `json:"qty"`
	CreatedAt string          `json:"created_at"`
}
