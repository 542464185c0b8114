package datasource

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"github.com/seenimoa/stockqa/pkg/models"
	"github.com/seenimoa/stockqa/pkg/utils"
)

// DefaultNewsFeeds are the RSS feed templates used when none are configured.
// {symbol} is replaced by the ticker and {query} by a search phrase.
var DefaultNewsFeeds = []string{
	"https://feeds.finance.yahoo.com/rss/2.0/headline?s={symbol}&region=US&lang=en-US",
	"https://news.google.com/rss/search?q={query}&hl=en-US&gl=US&ceid=US:en",
}

// maxDescriptionRunes bounds article descriptions.
const maxDescriptionRunes = 500

// News fetches company news from RSS/Atom feeds.
type News struct {
	client      *Client
	feeds       []string
	maxArticles int
	now         func() time.Time
	logger      *zap.Logger
}

// NewsOption configures a News provider.
type NewsOption func(*News)

// WithFeeds overrides the feed URL templates.
func WithFeeds(feeds []string) NewsOption {
	return func(n *News) {
		if len(feeds) > 0 {
			n.feeds = feeds
		}
	}
}

// WithMaxArticles caps the number of returned articles.
func WithMaxArticles(max int) NewsOption {
	return func(n *News) {
		if max > 0 {
			n.maxArticles = max
		}
	}
}

// WithNewsClock overrides the clock used for the days-back cutoff.
func WithNewsClock(now func() time.Time) NewsOption {
	return func(n *News) { n.now = now }
}

// NewNews creates a news provider.
func NewNews(client *Client, logger *zap.Logger, opts ...NewsOption) *News {
	if logger == nil {
		logger = zap.NewNop()
	}
	n := &News{
		client:      client,
		feeds:       DefaultNewsFeeds,
		maxArticles: 20,
		now:         time.Now,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Name returns the data source name.
func (n *News) Name() string { return "news" }

// FetchCompanyNews returns articles published within daysBack days, newest
// first, de-duplicated by URL. A feed that fails is skipped; the call fails
// only when every feed fails.
func (n *News) FetchCompanyNews(ctx context.Context, symbol, companyName string, daysBack int) ([]models.NewsFragment, error) {
	symbol = utils.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("news: empty symbol")
	}

	var cutoff time.Time
	if daysBack > 0 {
		cutoff = utils.DaysAgo(n.now(), daysBack)
	}

	var (
		articles []models.NewsFragment
		errs     []error
		seen     = make(map[string]struct{})
	)
	for _, tmpl := range n.feeds {
		feedURL := expandFeedURL(tmpl, symbol, companyName)
		items, err := n.fetchFeed(ctx, feedURL)
		if err != nil {
			n.logger.Warn("news feed failed", zap.String("feed", feedURL), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		for _, a := range items {
			if !cutoff.IsZero() && !a.PublishedDate.IsZero() && a.PublishedDate.Before(cutoff) {
				continue
			}
			key := a.URL
			if key == "" {
				key = "title:" + a.Title
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			articles = append(articles, a)
		}
	}

	if len(errs) > 0 && len(errs) == len(n.feeds) {
		return nil, fmt.Errorf("news: all feeds failed: %w", errors.Join(errs...))
	}

	sortArticlesByDate(articles)
	if len(articles) > n.maxArticles {
		articles = articles[:n.maxArticles]
	}
	return articles, nil
}

// fetchFeed downloads and parses one feed.
func (n *News) fetchFeed(ctx context.Context, feedURL string) ([]models.NewsFragment, error) {
	body, err := n.client.Get(ctx, feedURL, nil)
	if err != nil {
		return nil, err
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", feedURL, err)
	}

	source := strings.TrimSpace(feed.Title)
	if source == "" {
		source = hostOf(feedURL)
	}

	articles := make([]models.NewsFragment, 0, len(feed.Items))
	for _, item := range feed.Items {
		desc := cleanHTML(item.Description)
		content := cleanHTML(item.Content)
		if content == "" {
			content = desc
		}
		a := models.NewsFragment{
			Title:       strings.TrimSpace(item.Title),
			Content:     content,
			Description: utils.Truncate(desc, maxDescriptionRunes),
			Source:      source,
			URL:         strings.TrimSpace(item.Link),
		}
		switch {
		case item.PublishedParsed != nil:
			a.PublishedDate = item.PublishedParsed.UTC()
		case item.UpdatedParsed != nil:
			a.PublishedDate = item.UpdatedParsed.UTC()
		}
		if a.Title == "" && a.Content == "" {
			continue
		}
		articles = append(articles, a)
	}
	return articles, nil
}

// expandFeedURL fills a feed template.
func expandFeedURL(tmpl, symbol, companyName string) string {
	query := symbol + " stock"
	if name := strings.TrimSpace(companyName); name != "" {
		query = fmt.Sprintf("%q OR %s stock", name, symbol)
	}
	r := strings.NewReplacer(
		"{symbol}", url.QueryEscape(symbol),
		"{query}", url.QueryEscape(query),
	)
	return r.Replace(tmpl)
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "RSS"
	}
	return u.Host
}

// cleanHTML strips HTML tags from a string using goquery.
func cleanHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return s
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// sortArticlesByDate sorts articles newest first; undated articles go last.
func sortArticlesByDate(articles []models.NewsFragment) {
	sort.SliceStable(articles, func(i, j int) bool {
		a, b := articles[i].PublishedDate, articles[j].PublishedDate
		if a.IsZero() != b.IsZero() {
			return !a.IsZero()
		}
		return a.After(b)
	})
}
