// Package model defines the records shared by the adapters, the apply state
// machine and the reconciliation engine.
package model

import (
	"encoding/json"
	"net/url"
	"strings"
	"time"
)

// LanguageUnknown is the placeholder stored until a description has been
// scraped and its language detected.
const LanguageUnknown = "unknown"

// JobID returns the composite identity key of a posting.
//
// Two postings sharing title and company collide on purpose: the link is not
// part of the identity.
func JobID(title, company string) string {
	return title + "-" + company
}

// identityParams are the query parameters that identify a posting rather
// than track the visitor (Indeed's jk, LinkedIn's currentJobId).
var identityParams = map[string]bool{"jk": true, "vjk": true, "currentjobid": true, "jobid": true}

// NormalizeLink strips tracking query parameters, fragment and trailing slash
// so they do not defeat link-based deduplication. Query parameters that
// identify the posting are kept. Unparseable links are returned trimmed.
func NormalizeLink(link string) string {
	link = strings.TrimSpace(link)
	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return strings.TrimRight(link, "/")
	}
	kept := url.Values{}
	for k, v := range u.Query() {
		if identityParams[strings.ToLower(k)] && len(v) > 0 {
			kept.Set(k, v[0])
		}
	}
	u.RawQuery = kept.Encode()
	u.Fragment = ""
	u.Host = strings.ToLower(u.Host)
	u.Path = strings.TrimRight(u.Path, "/")
	return strings.TrimRight(u.String(), "/")
}

// JobRecord is a normalised posting discovered on one platform.
// Adapters create it during Search and enrich it in place through FetchDetails.
type JobRecord struct {
	Title           string    `json:"title"`
	Company         string    `json:"company"`
	Location        string    `json:"location"`
	Link            string    `json:"link"`
	Platform        string    `json:"platform"`
	EasyApply       bool      `json:"easyApply"`
	Description     string    `json:"description,omitempty"`
	RichDescription string    `json:"richDescription,omitempty"`
	Language        string    `json:"language,omitempty"`
	Keyword         string    `json:"keyword,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// ID returns the record's job_id.
func (j JobRecord) ID() string { return JobID(j.Title, j.Company) }

// DedupKey is the per-run suppression key: title and company, normalised for
// case and surrounding whitespace.
func (j JobRecord) DedupKey() string {
	return strings.ToLower(strings.TrimSpace(j.Title)) + "|" + strings.ToLower(strings.TrimSpace(j.Company))
}

// JobDetails is what FetchDetails extracts from a posting page.
type JobDetails struct {
	RichDescription string `json:"richDescription"`
	Language        string `json:"language"`
	EasyApply       bool   `json:"easyApply"`
}

// QA is one answered form question, kept as the application's conversation log.
type QA struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Source   string `json:"source"` // stored | default | heuristic | captured
}

// AppliedRecord is kept per job_id once an application went through, either
// automatically or by a manual mark.
type AppliedRecord struct {
	JobID        string          `json:"jobId"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
	Job          JobRecord       `json:"job"`
	Analysis     json.RawMessage `json:"analysis,omitempty"`
	Status       string          `json:"status"`
	Conversation []QA            `json:"conversation,omitempty"`
}

// ParkedRecord marks a job the user deferred; it suppresses re-discovery.
type ParkedRecord struct {
	JobID    string    `json:"jobId"`
	Title    string    `json:"title"`
	Company  string    `json:"company"`
	ParkedAt time.Time `json:"parkedAt"`
	Link     string    `json:"link"`
	Platform string    `json:"platform"`
}

// Blacklist holds the global exclusion lists. Order is preserved as entered.
type Blacklist struct {
	Companies   []string `json:"companies"`
	Titles      []string `json:"titles"`
	SafePhrases []string `json:"safePhrases"`
}

// UnknownQuestion is logged whenever a form prompt could not be answered
// with confidence.
type UnknownQuestion struct {
	Question string    `json:"question"`
	JobTitle string    `json:"jobTitle"`
	Company  string    `json:"company"`
	At       time.Time `json:"at"`
}

// AnswerBook is the persisted answer store: normalised question to answer,
// plus the append-only unknown-question log.
type AnswerBook struct {
	Answers map[string]string `json:"answers"`
	Unknown []UnknownQuestion `json:"unknown"`
}

// SearchQuery is the input of Adapter.Search. Offset lets callers page
// through results; adapters that cannot page ignore it.
type SearchQuery struct {
	Keyword       string
	Location      string
	Limit         int
	EasyApplyOnly bool
	Offset        int
}

// Outcome classifies how an apply attempt ended.
type Outcome string

const (
	OutcomeSubmitted      Outcome = "submitted"
	OutcomeAlreadyApplied Outcome = "already_applied"
	OutcomeNotEasyApply   Outcome = "not_easy_apply"
	OutcomeStuck          Outcome = "stuck"
	OutcomeLimitReached   Outcome = "limit_reached"
	OutcomeManualReview   Outcome = "manual_review"
	OutcomeFault          Outcome = "fault"
)

// ApplyResult is the structured answer of every apply attempt. Failures are
// reported here, never as errors.
type ApplyResult struct {
	Success      bool    `json:"success"`
	Message      string  `json:"message"`
	WasEasyApply bool    `json:"wasEasyApply"`
	Outcome      Outcome `json:"outcome"`
	Conversation []QA    `json:"conversation,omitempty"`
}
