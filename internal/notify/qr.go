package notify

import (
	"fmt"
	"net/url"

	"github.com/shopspring/decimal"
	qrcode "github.com/skip2/go-qrcode"
)

// PaymentQR encodes a UPI payment intent as a PNG QR code. Scanning it
// opens any UPI app with the amount and order reference prefilled.
func PaymentQR(upiID, payee string, amount decimal.Decimal, orderID string) ([]byte, error) {
	params := url.Values{}
	params.Set("pa", upiID)
	params.Set("pn", payee)
	params.Set("am", amount.StringFixed(2))
	params.Set("cu", "INR")
	params.Set("tn", orderID)

	uri := "upi://pay?" + params.Encode()
	png, err := qrcode.Encode(uri, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("encode payment qr: %w", err)
	}
	return png, nil
}
