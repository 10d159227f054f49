package utils

// GetOrDefault returns the value if the pointer is not nil, otherwise the default.
func GetOrDefault[T any](ptr *T, defaultVal T) T {
	if ptr == nil {
		return defaultVal
	}
	return *ptr
}

func Ptr[T any](v T) *T {
	return &v
}
