package api

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"driftchat/internal/types"
)

const maxUploadBytes = 10 * 1024 * 1024

// UploadHandler stores one multipart file under uploadDir with a generated
// name and returns the reference a client can attach to a message. The MIME
// type is sniffed from content when the client does not declare one.
func UploadHandler(uploadDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes+1024)

		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "No file provided", http.StatusBadRequest)
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			http.Error(w, "Failed to read file", http.StatusBadRequest)
			return
		}
		if int64(len(data)) > maxUploadBytes {
			http.Error(w, "File exceeds 10MB limit", http.StatusBadRequest)
			return
		}

		var mimeType *string
		if declared := header.Header.Get("Content-Type"); declared != "" {
			mimeType = &declared
		} else if detected := mimetype.Detect(data); detected != nil {
			s := detected.String()
			mimeType = &s
		}

		ext := filepath.Ext(header.Filename)
		if ext == "" {
			ext = ".bin"
		}
		storedName := fmt.Sprintf("%s%s", uuid.New(), ext)

		if err := os.MkdirAll(uploadDir, 0o755); err != nil {
			log.Printf("[UPLOAD] Failed to create upload directory: %v", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		if err := os.WriteFile(filepath.Join(uploadDir, storedName), data, 0o644); err != nil {
			log.Printf("[UPLOAD] Failed to save file: %v", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, types.UploadResponse{
			URL:       "/uploads/" + storedName,
			Filename:  header.Filename,
			MimeType:  mimeType,
			SizeBytes: int64(len(data)),
		})
	}
}
