package extractor

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"github.com/ternarybob/perquire/internal/common"
	"github.com/ternarybob/perquire/internal/models"
)

// readFile extracts text from a local file source. PDFs go through the pdf
// reader; anything else is treated as plain text.
func (s *Service) readFile(location string) (*models.Document, error) {
	var text string
	var err error

	switch strings.ToLower(filepath.Ext(location)) {
	case ".pdf":
		text, err = extractPDFText(location)
	default:
		var data []byte
		data, err = os.ReadFile(location)
		text = string(data)
	}
	if err != nil {
		return nil, err
	}

	return &models.Document{
		ID:        common.NewDocumentID(),
		Source:    location,
		Title:     filepath.Base(location),
		Text:      text,
		FetchedAt: time.Now().UTC(),
	}, nil
}

func extractPDFText(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to read pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("failed to read pdf buffer: %w", err)
	}

	return buf.String(), nil
}
