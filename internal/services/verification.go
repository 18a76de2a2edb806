package services

import (
	"bytes"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/disintegration/imaging"
)

const (
	maxVerificationImageBytes = 5 << 20
	maxVerificationImageSide  = 1600
)

var (
	ErrInvalidDataURL   = errors.New("verification document must be a base64 image data URL")
	ErrImageTooLarge    = errors.New("verification document exceeds 5MB")
	ErrUnsupportedImage = errors.New("verification document must be a PNG or JPEG image")
)

// NormalizeVerificationImage re-encodes a sign-up verification document given
// as a data URL: it applies EXIF orientation, shrinks it to fit 1600x1600 and
// returns it as a JPEG data URL.
func NormalizeVerificationImage(dataURL string) (string, error) {
	meta, payload, ok := strings.Cut(strings.TrimSpace(dataURL), ",")
	if !ok || !strings.HasPrefix(meta, "data:") || !strings.HasSuffix(meta, ";base64") {
		return "", ErrInvalidDataURL
	}
	switch strings.ToLower(strings.TrimSuffix(strings.TrimPrefix(meta, "data:"), ";base64")) {
	case "image/png", "image/jpeg", "image/jpg":
	default:
		return "", ErrUnsupportedImage
	}
	if base64.StdEncoding.DecodedLen(len(payload)) > maxVerificationImageBytes+3 {
		return "", ErrImageTooLarge
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", ErrInvalidDataURL
	}
	if len(raw) > maxVerificationImageBytes {
		return "", ErrImageTooLarge
	}

	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return "", ErrUnsupportedImage
	}
	if size := img.Bounds().Size(); size.X > maxVerificationImageSide || size.Y > maxVerificationImageSide {
		img = imaging.Fit(img, maxVerificationImageSide, maxVerificationImageSide, imaging.Lanczos)
	}

	var b bytes.Buffer
	if err := imaging.Encode(&b, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return "", err
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(b.Bytes()), nil
}
