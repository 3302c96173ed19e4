package common

import (
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
)

// ReadFormFile returns the content of an uploaded multipart file
func ReadFormFile(file *multipart.FileHeader) ([]byte, error) {
	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file %s: %w", file.Filename, err)
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			slog.Error("failed to close uploaded file reader", "error", cerr, "filename", file.Filename)
		}
	}()

	// Read file content reliably
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded file %s: %w", file.Filename, err)
	}
	return data, nil
}
