package ai

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAuthentication indicates the provider rejected the configured credentials.
	// It is never worth retrying.
	ErrAuthentication = errors.New("authentication failed")

	// ErrUnknownProvider indicates Config.Provider names no known backend.
	ErrUnknownProvider = errors.New("unknown AI provider")

	// ErrEmbeddingCount indicates the provider returned a different number of
	// vectors than texts, or an empty vector.
	ErrEmbeddingCount = errors.New("embedding response does not match input")
)

var authMarkers = []string{
	"401",
	"403",
	"unauthorized",
	"forbidden",
	"invalid api key",
	"invalid_api_key",
	"incorrect api key",
}

// ClassifyError wraps provider errors that signal rejected credentials with
// ErrAuthentication. Other errors are returned unchanged.
func ClassifyError(err error) error {
	if err == nil || errors.Is(err, ErrAuthentication) {
		return err
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range authMarkers {
		if strings.Contains(msg, marker) {
			return fmt.Errorf("%w: %w", ErrAuthentication, err)
		}
	}
	return err
}

// CheckEmbeddings verifies a provider returned one non-empty vector per text.
// Width is checked later against the configured dimensions.
func CheckEmbeddings(texts int, vectors [][]float32) error {
	if len(vectors) != texts {
		return fmt.Errorf("%w: %d vectors for %d texts", ErrEmbeddingCount, len(vectors), texts)
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return fmt.Errorf("%w: vector %d is empty", ErrEmbeddingCount, i)
		}
	}
	return nil
}
