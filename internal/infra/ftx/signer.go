package ftx

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Signer produces the FTX-* authentication headers.
type Signer struct {
	apiKey     []byte
	apiSecret  []byte
	subAccount string
	now        func() time.Time
}

func NewSigner(apiKey, apiSecret, subAccount string) *Signer {
	return &Signer{apiKey: []byte(apiKey), apiSecret: []byte(apiSecret), subAccount: subAccount, now: time.Now}
}

// Wipe clears the keys from memory.
func (s *Signer) Wipe() {
	if s == nil {
		return
	}
	for i := range s.apiKey {
		s.apiKey[i] = 0
	}
	for i := range s.apiSecret {
		s.apiSecret[i] = 0
	}
}

// Apply signs ts + method + path + body and sets the headers on req.
// path includes the query string.
func (s *Signer) Apply(req *http.Request, path string, body []byte) {
	ts := strconv.FormatInt(s.now().UnixMilli(), 10)
	payload := ts + req.Method + path + string(body)

	req.Header.Set("FTX-KEY", string(s.apiKey))
	req.Header.Set("FTX-TS", ts)
	req.Header.Set("FTX-SIGN", s.signature(payload))
	if s.subAccount != "" {
		req.Header.Set("FTX-SUBACCOUNT", url.PathEscape(s.subAccount))
	}
}

func (s *Signer) signature(payload string) string {
	mac := hmac.New(sha256.New, s.apiSecret)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
