// Package verify decodes the QR code from a confirmation screenshot as an
// advisory check that the rendered form carries a real registration payload.
package verify

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"

	"visaflow/internal/logging"
)

// Result is the outcome of one verification attempt. Verification is
// advisory: a failed decode downgrades confidence in the capture but never
// fails the submission.
type Result struct {
	Decoded bool   `json:"decoded"`
	Payload string `json:"payload,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// ScreenshotQR scans an on-disk screenshot for a decodable QR code.
func ScreenshotQR(path string) Result {
	logger := logging.New("verify")

	f, err := os.Open(path)
	if err != nil {
		return Result{Detail: fmt.Sprintf("open screenshot: %v", err)}
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return Result{Detail: fmt.Sprintf("decode screenshot: %v", err)}
	}
	res := ImageQR(img)
	if res.Decoded {
		logger.Info("qr verified", "screenshot", path, "payload_len", len(res.Payload))
	} else {
		logger.Warn("qr verification inconclusive", "screenshot", path, "detail", res.Detail)
	}
	return res
}

// ImageQR scans a decoded image for a QR code.
func ImageQR(img image.Image) Result {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return Result{Detail: fmt.Sprintf("binarize image: %v", err)}
	}

	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	}
	decoded, err := qrcode.NewQRCodeReader().Decode(bmp, hints)
	if err != nil {
		return Result{Detail: fmt.Sprintf("no decodable qr code: %v", err)}
	}
	return Result{Decoded: true, Payload: decoded.GetText()}
}
