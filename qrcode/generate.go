package qrcode

import (
	"encoding/base64"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// PaymentQR renders a tron payment uri for the order's base58 address and
// exact actual amount as a base64 png, embedded in the create response.
func PaymentQR(address string, amountUSDT string) (string, error) {
	uri := fmt.Sprintf("tron:%s?token=USDT&amount=%s", address, amountUSDT)
	png, err := qrcode.Encode(uri, qrcode.Medium, 256)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(png), nil
}
