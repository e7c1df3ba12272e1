package verify

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

func encodeQR(t *testing.T, payload string) image.Image {
	t.Helper()
	matrix, err := qrcode.NewQRCodeWriter().Encode(payload, gozxing.BarcodeFormat_QR_CODE, 256, 256, nil)
	if err != nil {
		t.Fatalf("encode qr: %v", err)
	}
	return matrix
}

func TestImageQR_DecodesKnownPayload(t *testing.T) {
	const payload = "VISA-REG-2026-000451"
	res := ImageQR(encodeQR(t, payload))
	if !res.Decoded {
		t.Fatalf("decode failed: %s", res.Detail)
	}
	if res.Payload != payload {
		t.Errorf("payload = %q, want %q", res.Payload, payload)
	}
}

func TestImageQR_BlankImageIsInconclusive(t *testing.T) {
	blank := image.NewRGBA(image.Rect(0, 0, 200, 200))
	for y := 0; y < 200; y++ {
		for x := 0; x < 200; x++ {
			blank.Set(x, y, color.White)
		}
	}
	res := ImageQR(blank)
	if res.Decoded {
		t.Error("blank image must not decode")
	}
	if res.Detail == "" {
		t.Error("inconclusive result should carry a detail message")
	}
}

func TestScreenshotQR_RoundTripThroughDisk(t *testing.T) {
	const payload = "https://example.invalid/visa/check/99b1"
	path := filepath.Join(t.TempDir(), "confirmation.png")

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, encodeQR(t, payload)); err != nil {
		t.Fatal(err)
	}
	f.Close()

	res := ScreenshotQR(path)
	if !res.Decoded || res.Payload != payload {
		t.Errorf("got %+v, want decoded payload %q", res, payload)
	}
}

func TestScreenshotQR_MissingFile(t *testing.T) {
	res := ScreenshotQR(filepath.Join(t.TempDir(), "nope.png"))
	if res.Decoded {
		t.Error("missing file must not verify")
	}
}
