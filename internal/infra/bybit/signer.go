package bybit

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Signer signs private requests: HMAC-SHA256 over the parameters sorted by
// key and joined as k=v&k=v, hex encoded. Keys are held as []byte so they
// can be wiped.
type Signer struct {
	apiKey    []byte
	apiSecret []byte
	now       func() time.Time
}

func NewSigner(apiKey, apiSecret string) *Signer {
	return &Signer{apiKey: []byte(apiKey), apiSecret: []byte(apiSecret), now: time.Now}
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

// Sign adds api_key, timestamp, recv_window and sign to params.
func (s *Signer) Sign(params map[string]string, recvWindowMS int64) {
	params["api_key"] = string(s.apiKey)
	params["timestamp"] = strconv.FormatInt(s.now().UnixMilli(), 10)
	if recvWindowMS > 0 {
		params["recv_window"] = strconv.FormatInt(recvWindowMS, 10)
	}
	delete(params, "sign")
	params["sign"] = s.signature(canonical(params))
}

func (s *Signer) signature(payload string) string {
	mac := hmac.New(sha256.New, s.apiSecret)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func canonical(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params[k])
	}
	return b.String()
}
