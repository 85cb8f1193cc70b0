// Package pageimage validates and bounds the rendered page images that
// accompany scanned-PDF extraction requests. Clients render pages to JPEG
// data URIs; the server enforces the payload guardrails and re-encodes
// oversized images before giving up on them.
package pageimage

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"

	"quotedraft/internal/domain"
)

const (
	// MaxImages caps the page images forwarded per AI call.
	MaxImages = 3

	// MaxEncodedBytes is the hard per-image guardrail on the encoded URI.
	MaxEncodedBytes = 2_500_000

	// shrinkTargetBytes is what re-encoding aims for, with headroom under
	// the hard guardrail.
	shrinkTargetBytes = 2_400_000

	dataURIPrefix = "data:image/"
)

// Normalize filters page images down to what the AI call may carry: data
// image URIs only, oversized ones re-encoded or dropped, at most MaxImages
// in original order.
func Normalize(uris []string) []string {
	out := make([]string, 0, MaxImages)
	for _, u := range uris {
		s := strings.TrimSpace(u)
		if !strings.HasPrefix(s, dataURIPrefix) {
			continue
		}
		if len(s) > MaxEncodedBytes {
			shrunk, err := Shrink(s)
			if err != nil {
				continue
			}
			s = shrunk
		}
		out = append(out, s)
		if len(out) >= MaxImages {
			break
		}
	}
	return out
}

// Shrink re-encodes an image data URI through a quality/scale ladder until
// it fits under the guardrail. Returns domain.ErrPayloadTooLarge when even
// the smallest rung stays over.
func Shrink(uri string) (string, error) {
	img, err := decodeDataURI(uri)
	if err != nil {
		return "", err
	}

	steps := []struct {
		scale   float64
		quality int
	}{
		{1.0, 72},
		{0.9, 65},
		{0.81, 60},
	}

	for _, st := range steps {
		candidate := img
		if st.scale < 1.0 {
			w := int(float64(img.Bounds().Dx()) * st.scale)
			if w < 1 {
				w = 1
			}
			candidate = imaging.Resize(img, w, 0, imaging.Lanczos)
		}

		var buf bytes.Buffer
		if err := imaging.Encode(&buf, candidate, imaging.JPEG, imaging.JPEGQuality(st.quality)); err != nil {
			return "", err
		}
		encoded := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
		if len(encoded) <= shrinkTargetBytes {
			return encoded, nil
		}
	}
	return "", domain.ErrPayloadTooLarge
}

func decodeDataURI(uri string) (image.Image, error) {
	idx := strings.Index(uri, ";base64,")
	if idx < 0 {
		return nil, fmt.Errorf("pageimage: not a base64 data uri")
	}
	raw, err := base64.StdEncoding.DecodeString(uri[idx+len(";base64,"):])
	if err != nil {
		return nil, err
	}
	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	return img, nil
}
