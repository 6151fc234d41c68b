// Package adzuna is an HTTP adapter over the public Adzuna search API.
// Adzuna postings redirect to the employer's site, so they are never easy
// apply and Apply always hands them to manual review.
package adzuna

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"jobmate/autoapply-service/internal/model"
	"jobmate/autoapply-service/internal/richtext"
	"jobmate/autoapply-service/internal/scraper"
)

const (
	// Platform is the adapter's name in the registry.
	Platform = "Adzuna"

	defaultBaseURL = "https://api.adzuna.com/v1/api/jobs"
	pageSize       = 50
	maxPages       = 3 // max 150 results per search
	httpTimeout    = 15 * time.Second
)

// ErrUnknownPosting is returned by FetchDetails for a link no search returned.
var ErrUnknownPosting = errors.New("adzuna: posting not seen in a search")

// Config holds the API credentials.
type Config struct {
	AppID   string
	AppKey  string
	Country string // "fr", "gb", "us", …
	// BaseURL overrides the API root (for testing).
	BaseURL string
	Client  *http.Client
	Logger  *slog.Logger
}

// Adapter fetches postings from Adzuna. If AppID or AppKey is empty, Search
// returns (nil, nil) and logs a warning.
type Adapter struct {
	cfg Config
	log *slog.Logger

	mu           sync.Mutex
	descriptions map[string]string
}

var _ scraper.Adapter = (*Adapter)(nil)

// New constructs an adapter with a shared HTTP client.
func New(cfg Config) *Adapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Country == "" {
		cfg.Country = "fr"
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: httpTimeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Adapter{
		cfg:          cfg,
		log:          cfg.Logger.With("platform", Platform),
		descriptions: map[string]string{},
	}
}

func (a *Adapter) Platform() string { return Platform }

type apiResponse struct {
	Results []apiResult `json:"results"`
	Count   int         `json:"count"`
}

type apiResult struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Company     apiCompany  `json:"company"`
	Location    apiLocation `json:"location"`
	RedirectURL string      `json:"redirect_url"`
	Created     string      `json:"created"`
}

type apiCompany struct {
	DisplayName string `json:"display_name"`
}

type apiLocation struct {
	DisplayName string `json:"display_name"`
}

// Search pages through the API until the limit is reached, a page comes back
// short or empty, or maxPages pages were read. Pages hold q.Limit results
// when it is below the API maximum, so q.Offset / q.Limit selects the first
// page. Pages fetched before an error are returned with it.
func (a *Adapter) Search(ctx context.Context, q model.SearchQuery) ([]model.JobRecord, error) {
	if a.cfg.AppID == "" || a.cfg.AppKey == "" {
		a.log.Warn("adzuna: ADZUNA_APP_ID / ADZUNA_APP_KEY not set, skipping search")
		return nil, nil
	}

	perPage := pageSize
	if q.Limit > 0 && q.Limit < pageSize {
		perPage = q.Limit
	}

	var out []model.JobRecord
	first := q.Offset/perPage + 1
	for page := first; page < first+maxPages; page++ {
		batch, err := a.fetchPage(ctx, q, page, perPage)
		if err != nil {
			return scraper.DedupeByLink(out), fmt.Errorf("adzuna page %d: %w", page, err)
		}
		if len(batch) == 0 {
			break
		}
		out = append(out, batch...)
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
		if len(batch) < perPage {
			break
		}
	}

	out = scraper.DedupeByLink(out)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	a.log.Info("adzuna: search done", "keyword", q.Keyword, "location", q.Location, "found", len(out))
	return out, nil
}

func (a *Adapter) fetchPage(ctx context.Context, q model.SearchQuery, page, perPage int) ([]model.JobRecord, error) {
	endpoint := fmt.Sprintf("%s/%s/search/%d", strings.TrimRight(a.cfg.BaseURL, "/"), a.cfg.Country, page)

	params := url.Values{}
	params.Set("app_id", a.cfg.AppID)
	params.Set("app_key", a.cfg.AppKey)
	params.Set("results_per_page", strconv.Itoa(perPage))
	params.Set("what", q.Keyword)
	if q.Location != "" {
		params.Set("where", q.Location)
	}
	params.Set("content-type", "application/json")
	params.Set("sort_by", "date")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.cfg.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http GET: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("adzuna returned %d: %s", resp.StatusCode, string(body))
	}

	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}

	records := make([]model.JobRecord, 0, len(apiResp.Results))
	for _, r := range apiResp.Results {
		link := r.RedirectURL
		if link == "" {
			link = "adzuna:" + r.ID
		}
		created, err := time.Parse(time.RFC3339, r.Created)
		if err != nil {
			created = time.Now().UTC()
		}
		rec := model.JobRecord{
			Title:       strings.TrimSpace(r.Title),
			Company:     strings.TrimSpace(r.Company.DisplayName),
			Location:    r.Location.DisplayName,
			Link:        model.NormalizeLink(link),
			Platform:    Platform,
			Description: r.Description,
			Language:    model.LanguageUnknown,
			Keyword:     q.Keyword,
			CreatedAt:   created,
			UpdatedAt:   created,
		}
		a.mu.Lock()
		a.descriptions[rec.Link] = r.Description
		a.mu.Unlock()
		records = append(records, rec)
	}
	return records, nil
}

// FetchDetails returns the description seen during Search. Adzuna has no
// per-posting endpoint, so an unseen link yields ErrUnknownPosting.
func (a *Adapter) FetchDetails(_ context.Context, link string) (model.JobDetails, error) {
	a.mu.Lock()
	desc, ok := a.descriptions[model.NormalizeLink(link)]
	a.mu.Unlock()

	d := model.JobDetails{Language: model.LanguageUnknown}
	if !ok {
		return d, ErrUnknownPosting
	}
	md, err := richtext.FromHTML(desc)
	if err != nil {
		return d, err
	}
	d.RichDescription = md
	d.Language = richtext.DetectLanguage(desc)
	return d, nil
}

// IsEasyApply is always false: postings redirect off-site.
func (a *Adapter) IsEasyApply(context.Context, string) (bool, error) { return false, nil }

// Apply hands the posting to manual review.
func (a *Adapter) Apply(_ context.Context, link string, _ scraper.ApplyOptions) model.ApplyResult {
	return model.ApplyResult{
		Message: "external application, apply manually: " + link,
		Outcome: model.OutcomeManualReview,
	}
}
