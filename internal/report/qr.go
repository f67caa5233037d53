package report

import (
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// FingerprintToQR creates a QR code PNG encoding the dive log fingerprint,
// so a printed report can be matched back to the raw dive log.
func FingerprintToQR(fingerprint string, size int) ([]byte, error) {
	normalized := sanitizeFingerprint(fingerprint)
	if normalized == "" {
		return nil, fmt.Errorf("fingerprint is empty")
	}
	if size <= 0 {
		size = 128
	}
	return qrcode.Encode(normalized, qrcode.Medium, size)
}

func sanitizeFingerprint(fingerprint string) string {
	upper := strings.ToUpper(strings.TrimSpace(fingerprint))
	var b strings.Builder
	for _, r := range upper {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'F':
			b.WriteRune(r)
		}
	}
	return b.String()
}
