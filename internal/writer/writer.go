package writer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	json "github.com/json-iterator/go"
)

// FileWriter writes run results as JSON
type FileWriter struct {
	outputDir string
}

// New creates a FileWriter for outputDir, creating it if needed
func New(outputDir string) (*FileWriter, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &FileWriter{outputDir: outputDir}, nil
}

// ForPath returns a writer for an --output value and the file name to use.
// A path ending in a separator or naming an existing directory gets a file
// named after jobURL.
func ForPath(path, jobURL string) (*FileWriter, string, error) {
	if info, err := os.Stat(path); (err == nil && info.IsDir()) || strings.HasSuffix(path, string(os.PathSeparator)) || strings.HasSuffix(path, "/") {
		w, err := New(path)
		if err != nil {
			return nil, "", err
		}
		return w, sanitizeFilename(jobURL) + ".json", nil
	}

	w, err := New(filepath.Dir(path))
	if err != nil {
		return nil, "", err
	}
	return w, filepath.Base(path), nil
}

// WriteJSON writes v, indented, to name inside the output directory and
// returns the full path
func (w *FileWriter) WriteJSON(name string, v interface{}) (string, error) {
	path := filepath.Join(w.outputDir, name)

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if err := Encode(file, v); err != nil {
		return "", fmt.Errorf("failed to encode result: %w", err)
	}
	return path, nil
}

// Encode writes v as indented JSON followed by a newline
func Encode(out io.Writer, v interface{}) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// sanitizeFilename creates a safe filename from a URL
func sanitizeFilename(url string) string {
	// Remove scheme and common prefixes
	url = strings.TrimPrefix(url, "http://")
	url = strings.TrimPrefix(url, "https://")
	url = strings.TrimPrefix(url, "www.")
	url = strings.TrimRight(url, "/")

	// Replace unsafe characters
	unsafe := []string{"/", "\\", ":", "*", "?", "\"", "<", ">", "|", " ", "&", "=", "#"}
	for _, char := range unsafe {
		url = strings.ReplaceAll(url, char, "_")
	}

	if len(url) > 200 {
		url = url[:200]
	}
	if url == "" {
		url = "result"
	}
	return url
}
