// Package email extracts RFC 822 messages (.eml) as text.
package email

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/extractors/html"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles email messages.
type Extractor struct{}

// New creates a new email extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extensions returns the file extensions this extractor handles.
func (e *Extractor) Extensions() []string {
	return []string{".eml"}
}

// Extract returns one text unit: the From, To, Date and Subject headers
// followed by the body. Plain text parts are preferred over HTML.
// Attachments are ignored.
func (e *Extractor) Extract(ctx context.Context, path string) ([]domain.TextUnit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}

	msg, err := mail.ReadMessage(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", domain.ErrExtractionFailed, filepath.Base(path), err)
	}

	body, err := extractBody(msg.Header, msg.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s body: %w", domain.ErrExtractionFailed, filepath.Base(path), err)
	}

	var content strings.Builder
	for _, h := range []string{"From", "To", "Date", "Subject"} {
		if v := decodeHeader(msg.Header.Get(h)); v != "" {
			content.WriteString(h + ": " + v + "\n")
		}
	}
	content.WriteString("\n")
	content.WriteString(body)

	text := strings.TrimSpace(content.String())
	if text == "" {
		return nil, nil
	}
	return []domain.TextUnit{{
		Content:  text,
		Metadata: domain.Metadata{Source: filepath.Base(path), Type: domain.UnitTypeText},
	}}, nil
}

// decodeHeader decodes RFC 2047 encoded words, keeping the raw value on error.
func decodeHeader(header string) string {
	if header == "" {
		return ""
	}
	decoded, err := new(mime.WordDecoder).DecodeHeader(header)
	if err != nil {
		return header
	}
	return decoded
}

// header is the subset of mail.Header and textproto.MIMEHeader used here.
type header interface {
	Get(key string) string
}

func extractBody(h header, r io.Reader) (string, error) {
	contentType := h.Get("Content-Type")
	if contentType == "" {
		contentType = "text/plain"
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = "text/plain"
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		return extractMultipart(r, params["boundary"])
	}

	body, err := io.ReadAll(decodeTransfer(h.Get("Content-Transfer-Encoding"), r))
	if err != nil {
		return "", err
	}
	switch mediaType {
	case "text/html":
		return html.Strip(string(body)), nil
	case "text/plain":
		return strings.TrimSpace(strings.ReplaceAll(string(body), "\r\n", "\n")), nil
	default:
		return "", nil
	}
}

func extractMultipart(r io.Reader, boundary string) (string, error) {
	if boundary == "" {
		return "", errors.New("multipart message without boundary")
	}

	mr := multipart.NewReader(r, boundary)
	var textParts, htmlParts []string
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		if isAttachment(part.Header.Get("Content-Disposition")) {
			part.Close()
			continue
		}

		mediaType, _, parseErr := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if parseErr != nil {
			mediaType = "text/plain"
		}
		text, err := extractBody(part.Header, part)
		part.Close()
		if err != nil {
			return "", err
		}
		if text == "" {
			continue
		}

		if mediaType == "text/html" {
			htmlParts = append(htmlParts, text)
		} else {
			textParts = append(textParts, text)
		}
	}

	if len(textParts) > 0 {
		return strings.Join(textParts, "\n\n"), nil
	}
	return strings.Join(htmlParts, "\n\n"), nil
}

// decodeTransfer undoes base64 and quoted-printable encodings. multipart
// readers already decode quoted-printable parts and drop the header.
func decodeTransfer(encoding string, r io.Reader) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, r)
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	default:
		return r
	}
}

func isAttachment(disposition string) bool {
	d, _, err := mime.ParseMediaType(disposition)
	return err == nil && d == "attachment"
}
