package extractor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/perquire/internal/common"
	"github.com/ternarybob/perquire/internal/interfaces"
	"github.com/ternarybob/perquire/internal/models"
)

// Service fetches source locations and extracts their usable text content.
// HTTP(S) locations are parsed as HTML and restricted to the regions matched
// by the content selector; filesystem locations are read directly (PDF or
// plain text). One attempt per source, no retries.
type Service struct {
	config common.SourcesConfig
	client *http.Client
	logger arbor.ILogger
}

// NewService creates a content extractor
func NewService(config common.SourcesConfig, logger arbor.ILogger) interfaces.ContentFetcher {
	return &Service{
		config: config,
		client: &http.Client{
			Timeout: config.RequestTimeout,
		},
		logger: logger,
	}
}

// Fetch loads every location and returns one document per source that yielded
// usable content. A failing or empty source is logged and skipped; the batch
// never fails as a whole.
func (s *Service) Fetch(ctx context.Context, locations []string, contentSelector string) ([]*models.Document, error) {
	docs := make([]*models.Document, 0, len(locations))

	for _, location := range locations {
		doc, err := s.fetchOne(ctx, location, contentSelector)
		if err != nil {
			fetchErr := &common.FetchError{Source: location, Err: err}
			s.logger.Warn().Err(fetchErr).Str("source", location).Msg("Skipping source")
			continue
		}

		if strings.TrimSpace(doc.Text) == "" {
			s.logger.Warn().Str("source", location).Msg("Source yielded no usable content, skipping")
			continue
		}

		s.logger.Info().
			Str("source", location).
			Str("title", doc.Title).
			Int("text_length", len(doc.Text)).
			Msg("Source extracted")
		docs = append(docs, doc)
	}

	return docs, nil
}

func (s *Service) fetchOne(ctx context.Context, location, contentSelector string) (*models.Document, error) {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return s.fetchURL(ctx, location, contentSelector)
	}
	return s.readFile(location)
}

func (s *Service) fetchURL(ctx context.Context, location, contentSelector string) (*models.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if s.config.UserAgent != "" {
		req.Header.Set("User-Agent", s.config.UserAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body := io.Reader(resp.Body)
	if s.config.MaxBodySize > 0 {
		body = io.LimitReader(resp.Body, int64(s.config.MaxBodySize))
	}

	page, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	title := strings.TrimSpace(page.Find("title").First().Text())
	text, err := s.extractContent(page, contentSelector, location)
	if err != nil {
		return nil, err
	}

	return &models.Document{
		ID:        common.NewDocumentID(),
		Source:    location,
		Title:     title,
		Text:      text,
		FetchedAt: time.Now().UTC(),
	}, nil
}

// extractContent restricts extraction to the regions matched by the content
// selector and converts them to markdown text, preserving document order.
// No match yields empty text; the caller treats that as no usable content.
func (s *Service) extractContent(page *goquery.Document, contentSelector, baseURL string) (string, error) {
	selector := contentSelector
	if selector == "" {
		selector = "body"
	}

	converter := md.NewConverter(baseURL, true, nil)

	var parts []string
	var convErr error
	page.Find(selector).Each(func(i int, sel *goquery.Selection) {
		html, err := goquery.OuterHtml(sel)
		if err != nil {
			convErr = err
			return
		}
		markdown, err := converter.ConvertString(html)
		if err != nil {
			convErr = err
			return
		}
		if trimmed := strings.TrimSpace(markdown); trimmed != "" {
			parts = append(parts, trimmed)
		}
	})
	if convErr != nil {
		return "", fmt.Errorf("failed to convert content: %w", convErr)
	}

	return strings.Join(parts, "\n\n"), nil
}
