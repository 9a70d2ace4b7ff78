// README: Signed-URL codec for the VNPay-style gateway.
package payment

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"skyeats/internal/config"
	"skyeats/internal/types"
)

// Gateway builds and verifies signed gateway URLs. The signature covers the
// urlencoded parameter string with keys in ascending order and spaces encoded
// as '+', exactly as the gateway computes it on its side.
type Gateway struct {
	cfg config.PaymentConfig
	now func() time.Time
}

func NewGateway(cfg config.PaymentConfig) *Gateway {
	return &Gateway{cfg: cfg, now: time.Now}
}

// BuildPayURL returns the redirect URL for a hosted checkout session. Amounts
// go over the wire multiplied by 100; the session expires after 15 minutes.
func (g *Gateway) BuildPayURL(orderID types.ID, amount int64, clientIP, orderInfo, bankCode string) string {
	created := g.now()
	params := map[string]string{
		"vnp_Version":    "2.1.0",
		"vnp_Command":    "pay",
		"vnp_TmnCode":    g.cfg.TmnCode,
		"vnp_Locale":     "vn",
		"vnp_CurrCode":   "VND",
		"vnp_TxnRef":     string(orderID),
		"vnp_OrderInfo":  orderInfo,
		"vnp_OrderType":  "other",
		"vnp_Amount":     strconv.FormatInt(amount*100, 10),
		"vnp_ReturnUrl":  g.cfg.ReturnURL,
		"vnp_IpAddr":     clientIP,
		"vnp_CreateDate": formatGatewayTime(created),
		"vnp_ExpireDate": formatGatewayTime(created.Add(15 * time.Minute)),
	}
	if bankCode != "" {
		params["vnp_BankCode"] = bankCode
	}

	signed := encodeParams(params)
	signed += "&vnp_SecureHash=" + g.sign(params)
	return g.cfg.PayURL + "?" + signed
}

// VerifySignature checks the vnp_SecureHash of a callback against a signature
// recomputed over the remaining vnp_ parameters.
func (g *Gateway) VerifySignature(params map[string]string) bool {
	got := params["vnp_SecureHash"]
	if got == "" {
		return false
	}
	rest := make(map[string]string, len(params))
	for k, v := range params {
		if k == "vnp_SecureHash" || k == "vnp_SecureHashType" {
			continue
		}
		rest[k] = v
	}
	want := g.sign(rest)
	return hmac.Equal([]byte(strings.ToLower(got)), []byte(want))
}

func (g *Gateway) sign(params map[string]string) string {
	mac := hmac.New(sha512.New, []byte(g.cfg.HashSecret))
	mac.Write([]byte(encodeParams(params)))
	return hex.EncodeToString(mac.Sum(nil))
}

// encodeParams urlencodes params sorted by key. QueryEscape already emits '+'
// for spaces, which matches what the gateway signs.
func encodeParams(params map[string]string) string {
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
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(params[k]))
	}
	return b.String()
}

func formatGatewayTime(t time.Time) string {
	return t.Format("20060102150405")
}

// ResponseCodes maps gateway response codes to operator-readable reasons.
var ResponseCodes = map[string]string{
	"00": "transaction successful",
	"07": "amount deducted, transaction suspected of fraud",
	"09": "card or account not registered for online banking",
	"10": "card or account authentication failed more than 3 times",
	"11": "payment window expired",
	"12": "card or account is locked",
	"13": "wrong one-time password",
	"24": "customer cancelled the transaction",
	"51": "insufficient funds",
	"65": "daily transaction limit exceeded",
	"75": "issuing bank under maintenance",
	"79": "wrong payment password entered too many times",
	"97": "invalid signature",
	"99": "unknown error",
}

// FailureReason renders a non-success response code for storage.
func FailureReason(code string) string {
	if reason, ok := ResponseCodes[code]; ok {
		return reason
	}
	return "transaction failed with code " + code
}
