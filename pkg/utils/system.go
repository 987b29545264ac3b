// pkg/utils/system.go

package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/alexmullins/zip"
)

// CompressWithPassword compresses a file into sourcePath.zip with password protection
func CompressWithPassword(sourcePath string, password string) (string, error) {
	if _, err := os.Stat(sourcePath); os.IsNotExist(err) {
		return "", fmt.Errorf("source file not found: %s", sourcePath)
	}

	zipPath := sourcePath + ".zip"

	zipFile, err := os.Create(zipPath)
	if err != nil {
		return "", fmt.Errorf("failed to create zip file: %w", err)
	}

	sourceFile, err := os.Open(sourcePath)
	if err != nil {
		zipFile.Close()
		return "", fmt.Errorf("failed to open source file: %w", err)
	}
	defer sourceFile.Close()

	if err := writeEncrypted(zipFile, filepath.Base(sourcePath), sourceFile, password); err != nil {
		zipFile.Close()
		return "", err
	}
	if err := zipFile.Close(); err != nil {
		return "", fmt.Errorf("failed to close zip file: %w", err)
	}

	return zipPath, nil
}

// writeEncrypted writes src as the single encrypted entry name of a zip archive on w
func writeEncrypted(w io.Writer, name string, src io.Reader, password string) error {
	zipWriter := zip.NewWriter(w)

	writer, err := zipWriter.Encrypt(name, password)
	if err != nil {
		zipWriter.Close()
		return fmt.Errorf("failed to create encrypted entry: %w", err)
	}

	if _, err := io.Copy(writer, src); err != nil {
		zipWriter.Close()
		return fmt.Errorf("failed to write to zip: %w", err)
	}

	// Close writes the central directory
	if err := zipWriter.Close(); err != nil {
		return fmt.Errorf("failed to finish zip: %w", err)
	}
	return nil
}

// ShellQuote wraps s in single quotes for safe use in a remote shell command
func ShellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
