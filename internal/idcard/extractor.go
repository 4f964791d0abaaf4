// Package idcard turns an identity-card image into pre-filled registration fields.
package idcard

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
)

var ErrEmptyImage = errors.New("empty image")

// Result is what an extractor could read from a card.
type Result struct {
	Nom        string `json:"nom"`
	Prenom     string `json:"prenom"`
	NationalID string `json:"national_id"`
}

// Extractor reads card fields from an image.
type Extractor interface {
	Extract(ctx context.Context, image []byte) (Result, error)
}

// MockExtractor returns a fixed card for any non-empty image. It stands in
// until an OCR backend is wired.
type MockExtractor struct{}

func (MockExtractor) Extract(_ context.Context, image []byte) (Result, error) {
	if len(image) == 0 {
		return Result{}, ErrEmptyImage
	}
	return Result{Nom: "BENCHEIKH", Prenom: "Ahmed", NationalID: "1234567890123456"}, nil
}

// DecodeImage accepts raw base64 or a data URL ("data:image/png;base64,...").
func DecodeImage(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrEmptyImage
	}
	if strings.HasPrefix(s, "data:") {
		i := strings.Index(s, ",")
		if i < 0 {
			return nil, errors.New("malformed data url")
		}
		s = s[i+1:]
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return nil, ErrEmptyImage
	}
	return b, nil
}
