package validation

import (
	"bytes"
	"path/filepath"
	"strings"
)

type FileType string

const (
	FileTypePNG  FileType = "png"
	FileTypeJPEG FileType = "jpeg"
	FileTypeBMP  FileType = "bmp"
)

var magicBytes = map[FileType][]byte{
	FileTypePNG:  {0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A},
	FileTypeJPEG: {0xFF, 0xD8, 0xFF},
	FileTypeBMP:  {0x42, 0x4D},
}

// DetectFileType sniffs the payload header against known image signatures.
func DetectFileType(data []byte) (FileType, error) {
	for fileType, signature := range magicBytes {
		if bytes.HasPrefix(data, signature) {
			return fileType, nil
		}
	}
	return "", ErrInvalidFileType
}

// CheckUpload applies the submission constraints: non-empty, under the size
// ceiling, extension on the allow-list, and a recognizable image header.
func CheckUpload(data []byte, filename string, maxSize int64, allowedExts map[string]bool) error {
	if len(data) == 0 {
		return ErrEmptyFile
	}
	if int64(len(data)) > maxSize {
		return ErrFileTooLarge
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExts[ext] {
		return ErrExtensionNotAllowed
	}

	if _, err := DetectFileType(data); err != nil {
		return err
	}

	return nil
}
