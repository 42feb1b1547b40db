// internal/media/image.go
//
// Image payload helpers.
//
// Context
// -------
// Images travel as strings: either a full data URL
// (`data:image/png;base64,iVBOR…`) or bare base64 that older rows stored
// without a prefix.  Nothing is written to disk.  The admin UI reads a file
// into a data URL and the API stores the string as-is after Check.
//
// Notes
// -----
// • ImageSrc assumes JPEG for bare base64, matching what the admin UI
//   historically produced.
// • Content types come from mimetype's magic-number tables, which know
//   WebP, AVIF, and HEIC where net/http's sniffer stops at the classics.
// • Check sniffs the decoded bytes, so a PNG mislabelled as JPEG still
//   passes while a PDF renamed to .jpg does not.

package media

import (
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrNotBase64 = errors.New("image is not valid base64")
	ErrNotImage  = errors.New("payload is not an image")
)

// TooLargeError reports an image above the configured limit.
type TooLargeError struct{ Size, Max int }

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("image is %d bytes, limit is %d", e.Size, e.Max)
}

// ImageSrc turns a stored image string into something an <img src> accepts.
// Data URLs and http(s) URLs pass through, bare base64 gets a JPEG prefix,
// and the empty string stays empty.
func ImageSrc(s string) string {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return ""
	case strings.HasPrefix(s, "data:"),
		strings.HasPrefix(s, "http://"),
		strings.HasPrefix(s, "https://"),
		strings.HasPrefix(s, "/"):
		return s
	default:
		return "data:image/jpeg;base64," + s
	}
}

// Decode returns the raw bytes behind a data URL or bare base64 string and
// the sniffed content type.
func Decode(s string) ([]byte, string, error) {
	payload := strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(payload, "data:"); ok {
		_, b64, found := strings.Cut(rest, ";base64,")
		if !found {
			return nil, "", ErrNotBase64
		}
		payload = b64
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// Some encoders drop padding.
		raw, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return nil, "", ErrNotBase64
		}
	}
	return raw, sniff(raw), nil
}

// Check validates an image payload against maxBytes (0 means unlimited).
// Remote and root-relative URLs are accepted untouched.
func Check(s string, maxBytes int) error {
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "/") {
		return nil
	}

	raw, ctype, err := Decode(s)
	if err != nil {
		return err
	}
	if maxBytes > 0 && len(raw) > maxBytes {
		return &TooLargeError{Size: len(raw), Max: maxBytes}
	}
	if !strings.HasPrefix(ctype, "image/") {
		return ErrNotImage
	}
	return nil
}

// DataURL encodes raw bytes as a data URL using the sniffed content type.
func DataURL(raw []byte) string {
	return "data:" + sniff(raw) + ";base64," + base64.StdEncoding.EncodeToString(raw)
}

// sniff returns the bare media type of raw, without parameters.
func sniff(raw []byte) string {
	t := mimetype.Detect(raw).String()
	if mt, _, err := mime.ParseMediaType(t); err == nil {
		return mt
	}
	return t
}
