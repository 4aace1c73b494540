package email

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

func writeMessage(t *testing.T, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\r\n")), 0o600))
	return path
}

func extract(t *testing.T, path string) string {
	t.Helper()
	units, err := New().Extract(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, domain.Metadata{Source: filepath.Base(path), Type: domain.UnitTypeText}, units[0].Metadata)
	return units[0].Content
}

func TestExtensions(t *testing.T) {
	assert.Equal(t, []string{".eml"}, New().Extensions())
}

func TestExtract_PlainText(t *testing.T) {
	path := writeMessage(t, "leave.eml",
		"From: HR <hr@example.com>",
		"To: staff@example.com",
		"Date: Mon, 6 Jan 2025 09:00:00 +0000",
		"Subject: =?UTF-8?Q?Holiday_requests_=E2=80=93_2025?=",
		"",
		"Please submit holiday requests by March.",
	)

	assert.Equal(t, "From: HR <hr@example.com>\n"+
		"To: staff@example.com\n"+
		"Date: Mon, 6 Jan 2025 09:00:00 +0000\n"+
		"Subject: Holiday requests – 2025\n\n"+
		"Please submit holiday requests by March.", extract(t, path))
}

func TestExtract_MultipartPrefersPlainText(t *testing.T) {
	path := writeMessage(t, "alt.eml",
		"Subject: Rota",
		`Content-Type: multipart/alternative; boundary="b1"`,
		"",
		"--b1",
		"Content-Type: text/html",
		"",
		"<p>HTML rota</p>",
		"--b1",
		"Content-Type: text/plain",
		"",
		"Plain rota",
		"--b1--",
	)

	content := extract(t, path)
	assert.Contains(t, content, "Plain rota")
	assert.NotContains(t, content, "HTML rota")
}

func TestExtract_HTMLOnlyAndAttachments(t *testing.T) {
	path := writeMessage(t, "mixed.eml",
		"Subject: Minutes",
		`Content-Type: multipart/mixed; boundary="outer"`,
		"",
		"--outer",
		"Content-Type: text/html; charset=utf-8",
		"",
		"<h1>Minutes</h1><p>Budget approved &amp; signed.</p>",
		"--outer",
		"Content-Type: text/plain",
		`Content-Disposition: attachment; filename="notes.txt"`,
		"",
		"attachment text",
		"--outer--",
	)

	content := extract(t, path)
	assert.Contains(t, content, "Minutes\nBudget approved & signed.")
	assert.NotContains(t, content, "attachment text")
}

func TestExtract_Base64Body(t *testing.T) {
	path := writeMessage(t, "b64.eml",
		"Subject: Encoded",
		"Content-Type: text/plain",
		"Content-Transfer-Encoding: base64",
		"",
		"T2ZmaWNlIGNsb3NlcyBh",
		"dCA2cG0u",
	)

	assert.Contains(t, extract(t, path), "Office closes at 6pm.")
}

func TestExtract_QuotedPrintableBody(t *testing.T) {
	path := writeMessage(t, "qp.eml",
		"Content-Type: text/plain; charset=utf-8",
		"Content-Transfer-Encoding: quoted-printable",
		"",
		"Caf=C3=A9 opens at 8.",
	)

	assert.Equal(t, "Café opens at 8.", extract(t, path))
}

func TestExtract_Errors(t *testing.T) {
	_, err := New().Extract(context.Background(), filepath.Join(t.TempDir(), "missing.eml"))
	assert.Error(t, err)

	path := writeMessage(t, "bad.eml",
		`Content-Type: multipart/mixed`,
		"",
		"no boundary",
	)
	_, err = New().Extract(context.Background(), path)
	assert.ErrorIs(t, err, domain.ErrExtractionFailed)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = New().Extract(ctx, path)
	assert.ErrorIs(t, err, context.Canceled)
}
