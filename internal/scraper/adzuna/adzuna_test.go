package adzuna_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/autoapply-service/internal/model"
	"jobmate/autoapply-service/internal/scraper"
	"jobmate/autoapply-service/internal/scraper/adzuna"
)

func result(i int) map[string]any {
	return map[string]any{
		"id":           fmt.Sprint(i),
		"title":        fmt.Sprintf(" Go Developer %d ", i),
		"description":  "We are looking for an experienced Go developer to join our platform team in Paris and build services.",
		"company":      map[string]any{"display_name": "Acme"},
		"location":     map[string]any{"display_name": "Paris"},
		"redirect_url": fmt.Sprintf("https://www.adzuna.fr/details/%d?utm_medium=api", i),
		"created":      "2026-02-01T10:00:00Z",
	}
}

// server answers page n with sizes[n-1] results.
func server(t *testing.T, sizes []int, calls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		assert.Equal(t, "id", r.URL.Query().Get("app_id"))
		assert.Equal(t, "golang", r.URL.Query().Get("what"))

		var page int
		_, err := fmt.Sscanf(r.URL.Path, "/fr/search/%d", &page)
		assert.NoError(t, err)

		var results []map[string]any
		if page <= len(sizes) {
			for i := 0; i < sizes[page-1]; i++ {
				results = append(results, result(page*1000+i))
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"results": results, "count": len(results)})
	}))
}

func newAdapter(url string) *adzuna.Adapter {
	return adzuna.New(adzuna.Config{AppID: "id", AppKey: "key", Country: "fr", BaseURL: url})
}

func TestSearch_StopsOnShortPage(t *testing.T) {
	var calls int32
	srv := server(t, []int{50, 10, 50}, &calls)
	defer srv.Close()

	got, err := newAdapter(srv.URL).Search(context.Background(), model.SearchQuery{Keyword: "golang"})
	require.NoError(t, err)
	assert.Len(t, got, 60)
	assert.EqualValues(t, 2, calls)

	first := got[0]
	assert.Equal(t, "Go Developer 1000", first.Title)
	assert.Equal(t, "Acme", first.Company)
	assert.Equal(t, "https://www.adzuna.fr/details/1000", first.Link)
	assert.Equal(t, adzuna.Platform, first.Platform)
	assert.False(t, first.EasyApply)
	assert.Equal(t, model.LanguageUnknown, first.Language)
}

func TestSearch_MaxPagesAndLimit(t *testing.T) {
	var calls int32
	srv := server(t, []int{50, 50, 50, 50}, &calls)
	defer srv.Close()

	got, err := newAdapter(srv.URL).Search(context.Background(), model.SearchQuery{Keyword: "golang"})
	require.NoError(t, err)
	assert.Len(t, got, 150)
	assert.EqualValues(t, 3, calls)

	atomic.StoreInt32(&calls, 0)
	got, err = newAdapter(srv.URL).Search(context.Background(), model.SearchQuery{Keyword: "golang", Limit: 20})
	require.NoError(t, err)
	assert.Len(t, got, 20)
	assert.EqualValues(t, 1, calls)
}

func TestSearch_HTTPErrorKeepsEarlierPages(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) > 1 {
			http.Error(w, "quota exceeded", http.StatusTooManyRequests)
			return
		}
		results := make([]map[string]any, 50)
		for i := range results {
			results[i] = result(i)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"results": results})
	}))
	defer srv.Close()

	got, err := newAdapter(srv.URL).Search(context.Background(), model.SearchQuery{Keyword: "golang"})
	assert.ErrorContains(t, err, "429")
	assert.Len(t, got, 50)
}

func TestSearch_NoCredentialsSkips(t *testing.T) {
	got, err := adzuna.New(adzuna.Config{}).Search(context.Background(), model.SearchQuery{Keyword: "go"})
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestFetchDetailsFromSearchCache(t *testing.T) {
	var calls int32
	srv := server(t, []int{1}, &calls)
	defer srv.Close()

	a := newAdapter(srv.URL)
	got, err := a.Search(context.Background(), model.SearchQuery{Keyword: "golang"})
	require.NoError(t, err)
	require.Len(t, got, 1)

	d, err := a.FetchDetails(context.Background(), got[0].Link)
	require.NoError(t, err)
	assert.Contains(t, d.RichDescription, "experienced Go developer")
	assert.Equal(t, "en", d.Language)

	d, err = a.FetchDetails(context.Background(), "https://www.adzuna.fr/details/unknown")
	assert.ErrorIs(t, err, adzuna.ErrUnknownPosting)
	assert.Equal(t, model.LanguageUnknown, d.Language)
}

func TestSearch_OffsetFollowsLimitSizedPages(t *testing.T) {
	var (
		mu    sync.Mutex
		pages []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		per := r.URL.Query().Get("results_per_page")
		mu.Lock()
		pages = append(pages, r.URL.Path+"?per="+per)
		mu.Unlock()

		var page, n int
		_, err := fmt.Sscanf(r.URL.Path, "/fr/search/%d", &page)
		assert.NoError(t, err)
		_, err = fmt.Sscanf(per, "%d", &n)
		assert.NoError(t, err)
		results := make([]map[string]any, n)
		for i := range results {
			results[i] = result(page*1000 + i)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"results": results})
	}))
	defer srv.Close()

	a := newAdapter(srv.URL)
	first, err := a.Search(context.Background(), model.SearchQuery{Keyword: "golang", Limit: 25})
	require.NoError(t, err)
	second, err := a.Search(context.Background(), model.SearchQuery{Keyword: "golang", Limit: 25, Offset: 25})
	require.NoError(t, err)

	mu.Lock()
	assert.Equal(t, []string{"/fr/search/1?per=25", "/fr/search/2?per=25"}, pages)
	mu.Unlock()
	require.Len(t, first, 25)
	require.Len(t, second, 25)
	assert.NotEqual(t, first[0].Link, second[0].Link)
}

func TestApplyIsManualReview(t *testing.T) {
	a := adzuna.New(adzuna.Config{})
	ok, err := a.IsEasyApply(context.Background(), "x")
	assert.NoError(t, err)
	assert.False(t, ok)

	res := a.Apply(context.Background(), "https://www.adzuna.fr/details/1", scraper.ApplyOptions{})
	assert.False(t, res.Success)
	assert.False(t, res.WasEasyApply)
	assert.Equal(t, model.OutcomeManualReview, res.Outcome)
}
