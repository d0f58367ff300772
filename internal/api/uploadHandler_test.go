package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"driftchat/internal/types"
)

// multipartBody builds a form upload without a declared part Content-Type,
// so the handler has to sniff the MIME type from content.
func multipartBody(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	part, err := w.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	return &buf, w.FormDataContentType()
}

func TestUploadStoresFileAndReturnsReference(t *testing.T) {
	dir := t.TempDir()
	handler := UploadHandler(dir)

	// A real PNG header so content sniffing has something to work with.
	content := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)
	body, contentType := multipartBody(t, "cat.png", content)

	req := httptest.NewRequest("POST", "/upload", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp types.UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "cat.png", resp.Filename)
	require.Equal(t, int64(len(content)), resp.SizeBytes)
	require.NotNil(t, resp.MimeType)
	require.Equal(t, "image/png", *resp.MimeType)
	require.True(t, len(resp.URL) > len("/uploads/"))

	stored := filepath.Join(dir, filepath.Base(resp.URL))
	data, err := os.ReadFile(stored)
	require.NoError(t, err)
	require.Equal(t, content, data)
}

func TestUploadRejectsMissingFile(t *testing.T) {
	handler := UploadHandler(t.TempDir())

	req := httptest.NewRequest("POST", "/upload", bytes.NewReader(nil))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
