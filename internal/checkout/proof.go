package checkout

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
)

// MaxProofSize is the largest accepted payment-proof image.
const MaxProofSize = 5 << 20

var (
	ErrInvalidImage  = errors.New("payment proof must be an image")
	ErrImageTooLarge = errors.New("payment proof exceeds 5 MB")
)

// ProofImage is the screenshot of a mobile-wallet transfer.
type ProofImage struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Check enforces the image type and size limits. The declared content type
// must agree with the sniffed one.
func (p *ProofImage) Check() error {
	if len(p.Data) > MaxProofSize {
		return ErrImageTooLarge
	}
	if len(p.Data) == 0 {
		return ErrInvalidImage
	}
	sniffed := http.DetectContentType(p.Data)
	if !strings.HasPrefix(sniffed, "image/") {
		return ErrInvalidImage
	}
	if p.ContentType != "" && !strings.HasPrefix(p.ContentType, "image/") {
		return ErrInvalidImage
	}
	if p.ContentType == "" {
		p.ContentType = sniffed
	}
	return nil
}

// Base64 encodes the image for the notification payload.
func (p *ProofImage) Base64() string {
	return base64.StdEncoding.EncodeToString(p.Data)
}

// DecodeProof parses either raw base64 or a data URL ("data:image/png;base64,...").
func DecodeProof(filename, encoded string) (*ProofImage, error) {
	contentType := ""
	if rest, ok := strings.CutPrefix(encoded, "data:"); ok {
		meta, payload, found := strings.Cut(rest, ",")
		if !found {
			return nil, ErrInvalidImage
		}
		contentType = strings.TrimSuffix(meta, ";base64")
		encoded = payload
	}
	// Decoded size is ~3/4 of the encoded length.
	if len(encoded)/4*3 > MaxProofSize+3 {
		return nil, ErrImageTooLarge
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrInvalidImage
	}
	return &ProofImage{Filename: filename, ContentType: contentType, Data: data}, nil
}
