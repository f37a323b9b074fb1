package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/koopa0/sage/internal/knowledge"
)

// maxBodySize caps the fetched response body.
const maxBodySize = 8 << 20 // 8 MiB

const defaultFetchTimeout = 30 * time.Second

// Web ingests single web pages.
type Web struct {
	store  Ingestor
	client *http.Client
	logger *slog.Logger

	// allowPrivate disables the private-address check, for tests that
	// fetch from local listeners.
	allowPrivate bool
}

// NewWeb creates a web loader. client may be nil, in which case a default
// client with a 30 second timeout is used.
func NewWeb(store Ingestor, client *http.Client, logger *slog.Logger) (*Web, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if client == nil {
		client = &http.Client{Timeout: defaultFetchTimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Web{store: store, client: client, logger: logger}, nil
}

// AddURL fetches rawURL, extracts the readable article text and ingests it
// as a single document. Returns the document ID. Only http and https URLs
// pointing at public addresses are accepted; loopback and private-range
// hosts are rejected.
func (w *Web) AddURL(ctx context.Context, rawURL string) (string, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if pageURL.Scheme != "http" && pageURL.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q, only http and https are allowed", pageURL.Scheme)
	}
	if !w.allowPrivate {
		if err := rejectPrivateHost(ctx, pageURL.Hostname()); err != nil {
			return "", err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL.String(), nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "sage/1.0")

	resp, err := w.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: unexpected status %d", pageURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	title, text := w.extract(body, pageURL, resp.Header.Get("Content-Type"))
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("no readable text at %s", pageURL)
	}
	if title == "" {
		title = pageURL.String()
	}

	docID := webDocumentID(pageURL.String())
	doc := knowledge.Document{
		ID:         docID,
		Content:    text,
		SourceType: knowledge.SourceTypeWeb,
		Metadata: map[string]string{
			"title": title,
			"url":   pageURL.String(),
		},
		CreatedAt: time.Now(),
	}
	if _, err := w.store.Reingest(ctx, docID, doc); err != nil {
		return "", fmt.Errorf("ingest %s: %w", pageURL, err)
	}

	w.logger.Info("url ingested", "url", pageURL.String(), "title", title, "chars", len(text))
	return docID, nil
}

// extract pulls title and text out of the response body. HTML goes through
// readability first; when it cannot find an article the whole body text is
// used instead. Plain text passes through untouched.
func (w *Web) extract(body []byte, pageURL *url.URL, contentType string) (title, text string) {
	if strings.Contains(contentType, "text/plain") {
		return "", string(body)
	}

	article, err := readability.FromReader(strings.NewReader(string(body)), pageURL)
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		return article.Title, article.TextContent
	}
	if err != nil {
		w.logger.Debug("readability extraction failed, falling back to body text",
			"url", pageURL.String(), "error", err)
	}
	return htmlBodyText(body)
}

// htmlBodyText is the fallback extractor: strip script and style, return
// the whitespace-collapsed body text.
func htmlBodyText(body []byte) (title, text string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return "", ""
	}

	title = strings.TrimSpace(doc.Find("title").First().Text())
	doc.Find("script, style, noscript").Remove()

	raw := doc.Find("body").Text()
	return title, strings.Join(strings.Fields(raw), " ")
}

// rejectPrivateHost blocks fetches that would reach loopback, link-local or
// private address space. host may be a name or a literal IP; names are
// resolved, and any private address among the results rejects the fetch.
func rejectPrivateHost(ctx context.Context, host string) error {
	if host == "" {
		return fmt.Errorf("url has no host")
	}
	if ip := net.ParseIP(host); ip != nil {
		if isPrivateIP(ip) {
			return fmt.Errorf("refusing to fetch private address %s", host)
		}
		return nil
	}
	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", host, err)
	}
	for _, addr := range addrs {
		if isPrivateIP(addr.IP) {
			return fmt.Errorf("refusing to fetch %s: resolves to private address %s", host, addr.IP)
		}
	}
	return nil
}

func isPrivateIP(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified()
}

func webDocumentID(pageURL string) string {
	hash := sha256.Sum256([]byte(pageURL))
	return "web_" + hex.EncodeToString(hash[:16])
}
