package utils

import (
	"encoding/base64"
	"strings"
)

// DecodeWebSafeBase64 decodes the URL-safe base64 variant used by the
// provider for body data and attachment payloads: '-' and '_' replace
// '+' and '/', and padding may be absent.
func DecodeWebSafeBase64(data string) ([]byte, error) {
	data = strings.ReplaceAll(data, "-", "+")
	data = strings.ReplaceAll(data, "_", "/")
	if m := len(data) % 4; m != 0 {
		data += strings.Repeat("=", 4-m)
	}
	return base64.StdEncoding.DecodeString(data)
}

// EncodeBase64 is the standard encoding used for stored message bodies.
func EncodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeBase64 reverses EncodeBase64 on the serving path.
func DecodeBase64(data string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(data)
}
