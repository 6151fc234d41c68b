package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"jobmate/autoapply-service/internal/model"
)

func TestJobID(t *testing.T) {
	assert.Equal(t, "Engineer-Tech", model.JobID("Engineer", "Tech"))
	j := model.JobRecord{Title: "Engineer", Company: "Tech", Link: "http://a/1"}
	assert.Equal(t, "Engineer-Tech", j.ID())
}

// Identity ignores the link: two postings with the same title and company
// collide.
func TestJobID_IgnoresLink(t *testing.T) {
	a := model.JobRecord{Title: "Engineer", Company: "Tech", Link: "http://a/1"}
	b := model.JobRecord{Title: "Engineer", Company: "Tech", Link: "http://a/2"}
	assert.Equal(t, a.ID(), b.ID())
}

func TestDedupKey_FoldsCaseAndSpace(t *testing.T) {
	a := model.JobRecord{Title: " Backend Engineer", Company: "ACME"}
	b := model.JobRecord{Title: "backend engineer ", Company: "acme"}
	assert.Equal(t, a.DedupKey(), b.DedupKey())
}

func TestNormalizeLink(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"https://WWW.LinkedIn.com/jobs/view/123/?refId=abc&trk=x", "https://www.linkedin.com/jobs/view/123"},
		{"https://example.com/jobs/1#apply", "https://example.com/jobs/1"},
		{"https://www.indeed.com/viewjob/?jk=abc123&from=serp", "https://www.indeed.com/viewjob?jk=abc123"},
		{"  /relative/path/ ", "/relative/path"},
		{"", ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, model.NormalizeLink(c.in), "NormalizeLink(%q)", c.in)
	}
}
