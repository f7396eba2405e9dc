package ftx

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

type envelope struct {
	Success bool            `json:"success"`
	Error   string          `json:"error"`
	Result  json.RawMessage `json:"result"`
}

type placeOrderRequest struct {
	Market   string      `json:"market"`
	Side     string      `json:"side"`
	Price    *string     `json:"price"`
	Type     string      `json:"type"`
	Size     json.Number `json:"size"`
	ClientID string      `json:"clientId,omitempty"`
}

type orderResult struct {
	ID        json.Number     `json:"id"`
	Market    string          `json:"market"`
	Side      string          `json:"side"`
	Size      decimal.Decimal `json:"size"`
	CreatedAt string          `json:"createdAt"`
}

type marketResult struct {
	Name  string           `json:"name"`
	Price *decimal.Decimal `json:"price"`
	Last  *decimal.Decimal `json:"last"`
}

type tickerMessage struct {
	Channel string `json:"channel"`
	Market  string `json:"market"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
	Msg     string `json:"msg"`
	Data    struct {
		Bid  *decimal.Decimal `json:"bid"`
		Ask  *decimal.Decimal `json:"ask"`
		Last *decimal.Decimal `json:"last"`
		Time float64          `json:"time"`
	} `json:"data"`
}
