package storage

import (
	"fmt"
	"io"
	"mime/multipart"
)

// ReadFormFile loads an uploaded multipart file into memory. Callers check
// header.Size against their own limits before calling.
func ReadFormFile(file *multipart.FileHeader) ([]byte, error) {
	f, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", file.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", file.Filename, err)
	}
	return data, nil
}
