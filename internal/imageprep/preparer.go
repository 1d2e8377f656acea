// Package imageprep downloads an image and embeds it as a data URI so the
// description backend never has to fetch the source itself.
package imageprep

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"tutorial_finder/internal/domain"
)

const dataURIPrefix = "data:image/jpeg;base64,"

var (
	errTooLarge    = errors.New("image exceeds size limit")
	errNoMetaImage = errors.New("html page has no og:image")
)

type Config struct {
	Timeout   time.Duration
	UserAgent string
	MaxBytes  int64
}

type Preparer struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
	logger    *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Preparer {
	return &Preparer{
		client:    &http.Client{Timeout: cfg.Timeout},
		userAgent: cfg.UserAgent,
		maxBytes:  cfg.MaxBytes,
		logger:    logger.With("component", "imageprep"),
	}
}

// Prepare returns the image as a JPEG data URI. On any failure it falls back
// to the original URL and logs a warning; it never returns an error.
func (p *Preparer) Prepare(ctx context.Context, imageURL string) domain.PortableImage {
	body, err := p.download(ctx, imageURL)
	if err != nil {
		p.logger.Warn("failed to encode image, sending raw URL",
			"url", imageURL,
			"error", err,
		)
		return domain.PortableImage{URI: imageURL}
	}

	p.logger.Debug("image embedded", "url", imageURL, "bytes", len(body))

	return domain.PortableImage{
		URI:      dataURIPrefix + base64.StdEncoding.EncodeToString(body),
		Embedded: true,
	}
}

// download fetches imageURL. When the URL serves an HTML page, the page's
// og:image is fetched instead, once.
func (p *Preparer) download(ctx context.Context, imageURL string) ([]byte, error) {
	body, contentType, finalURL, err := p.fetch(ctx, imageURL)
	if err != nil {
		return nil, err
	}
	if !isHTML(contentType) {
		return body, nil
	}

	metaURL, err := metaImage(body, finalURL)
	if err != nil {
		return nil, err
	}

	p.logger.Debug("resolved page image", "page", imageURL, "image", metaURL)

	body, contentType, _, err = p.fetch(ctx, metaURL)
	if err != nil {
		return nil, fmt.Errorf("fetch og:image: %w", err)
	}
	if isHTML(contentType) {
		return nil, fmt.Errorf("og:image %s is not an image", metaURL)
	}
	return body, nil
}

func (p *Preparer) fetch(ctx context.Context, rawURL string) ([]byte, string, *url.URL, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, "", nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, p.maxBytes+1))
	if err != nil {
		return nil, "", nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > p.maxBytes {
		return nil, "", nil, errTooLarge
	}

	return body, resp.Header.Get("Content-Type"), resp.Request.URL, nil
}

func isHTML(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "html")
}

func metaImage(page []byte, base *url.URL) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	selectors := []string{
		"meta[property='og:image:secure_url']",
		"meta[property='og:image']",
		"meta[name='twitter:image']",
		"meta[property='twitter:image']",
	}
	for _, sel := range selectors {
		content, ok := doc.Find(sel).First().Attr("content")
		content = strings.TrimSpace(content)
		if !ok || content == "" {
			continue
		}
		ref, err := url.Parse(content)
		if err != nil {
			continue
		}
		return base.ResolveReference(ref).String(), nil
	}

	return "", errNoMetaImage
}
