package reconcile

import (
	"strings"

	"jobmate/autoapply-service/internal/model"
)

// Rejects reports whether the blacklist excludes a posting, and which entry
// did. Matching is a case-insensitive substring test.
//
// A blacklisted title fragment is overridden when a safe phrase also appears
// in the title: with titles ["Sales"] and safe phrases ["Sales Engineer"],
// "Senior Sales Engineer" passes while "Sales Representative" does not.
// Company matches are never overridden.
func Rejects(bl model.Blacklist, title, company string) (string, bool) {
	lowerCompany := strings.ToLower(company)
	for _, c := range bl.Companies {
		if c == "" {
			continue
		}
		if strings.Contains(lowerCompany, strings.ToLower(c)) {
			return "company:" + c, true
		}
	}

	lowerTitle := strings.ToLower(title)
	for _, t := range bl.Titles {
		if t == "" {
			continue
		}
		if !strings.Contains(lowerTitle, strings.ToLower(t)) {
			continue
		}
		if containsAnyFold(lowerTitle, bl.SafePhrases) {
			continue
		}
		return "title:" + t, true
	}
	return "", false
}

func containsAnyFold(lower string, phrases []string) bool {
	for _, p := range phrases {
		if p != "" && strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

// cleanList trims entries, drops empties and case-insensitive duplicates,
// keeping first-seen order.
func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		k := strings.ToLower(s)
		if s == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, s)
	}
	return out
}
