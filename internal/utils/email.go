package utils

import "strings"

// ExtractAddress reduces a header value like "Jane Doe <jane@example.com>"
// to the bare address. A value without angle brackets is returned verbatim.
func ExtractAddress(headerValue string) string {
	headerValue = strings.TrimSpace(headerValue)

	start := strings.LastIndex(headerValue, "<")
	end := strings.LastIndex(headerValue, ">")
	if start >= 0 && end > start {
		return strings.TrimSpace(headerValue[start+1 : end])
	}

	return headerValue
}

// StripContentID removes the angle brackets around a Content-Id header
// value, e.g. "<part1.abc@mail>" -> "part1.abc@mail".
func StripContentID(contentID string) string {
	contentID = strings.TrimSpace(contentID)
	contentID = strings.TrimPrefix(contentID, "<")
	contentID = strings.TrimSuffix(contentID, ">")
	return contentID
}

// SanitizeFilename neutralizes path separators so a provider-supplied
// filename cannot escape the attachment directory.
func SanitizeFilename(filename string) string {
	filename = strings.ReplaceAll(filename, "/", "_")
	filename = strings.ReplaceAll(filename, "\\", "_")
	filename = strings.ReplaceAll(filename, "..", "_")
	return filename
}
