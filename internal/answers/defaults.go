package answers

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"jobmate/autoapply-service/internal/textnorm"
)

// safeDefaults answers optional prompts only. Prompts about salary, notice
// period, sponsorship or experience never get a default.
var safeDefaults = []struct {
	phrases []string
	answer  string
}{
	{[]string{"portfolio", "personal website", "website url", "site web", "webseite"}, "N/A"},
	{[]string{"referral", "referred by", "who referred you", "employee referral", "parrainage", "empfehlung"}, "N/A"},
	{[]string{"github", "gitlab", "other profile", "additional links"}, "N/A"},
	{[]string{"middle name", "deuxieme prenom"}, "N/A"},
	{[]string{"additional information", "anything else", "informations complementaires"}, "N/A"},
}

// sourcePhrases ask where the candidate found the posting. The answer is the
// platform the job came from, and there is no default without one.
var sourcePhrases = []string{"how did you hear", "where did you hear", "comment avez vous connu", "wie sind sie auf"}

// SafeDefault returns the allow-listed default for a question, if any.
func SafeDefault(question string, job JobContext) (string, bool) {
	if textnorm.ContainsAny(question, sourcePhrases) {
		p := strings.TrimSpace(job.Platform)
		return p, p != ""
	}
	for _, d := range safeDefaults {
		if textnorm.ContainsAny(question, d.phrases) {
			return d.answer, true
		}
	}
	return "", false
}

var (
	affirmativeTerms = []string{
		"yes", "i agree", "agree", "accept", "i accept", "acknowledge",
		"oui", "j accepte", "ja", "einverstanden", "si", "sim", "akkoord",
	}
	negativeTerms = []string{
		"no", "not", "none", "never", "decline", "disagree", "prefer not",
		"non", "aucun", "jamais", "nein", "kein", "nunca", "nee",
	}
	placeholderTerms = []string{"select an option", "select", "choose", "selectionner", "auswahlen", "seleccionar"}
	numberPattern    = regexp.MustCompile(`\d+`)
)

// IsPlaceholder reports whether an option label is a "Select an option"
// style placeholder.
func IsPlaceholder(option string) bool {
	n := textnorm.Normalize(option)
	if n == "" {
		return true
	}
	for _, p := range placeholderTerms {
		if n == p {
			return true
		}
	}
	return textnorm.ContainsAny(option, []string{"select an option", "please select", "veuillez selectionner", "bitte auswahlen"})
}

// OptionChoice is the option ChooseOption picked and how it got there.
type OptionChoice struct {
	Option string
	Index  int
	Source string // stored | heuristic
}

// ChooseOption picks one of the options of a dropdown, radio group or button
// group. A stored answer is matched against the option labels first. Without
// one it prefers an affirmative option, then the highest numeric bucket,
// then the last option that is not negative; the question is logged as
// unknown in that case. ok is false only when there is nothing to choose.
func (e *Engine) ChooseOption(ctx context.Context, question string, options []string, job JobContext) (OptionChoice, bool) {
	candidates := make([]int, 0, len(options))
	for i, o := range options {
		if !IsPlaceholder(o) {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return OptionChoice{}, false
	}

	if m, ok := e.Lookup(question); ok {
		if i, ok := matchOption(m.Answer, options, candidates); ok {
			return OptionChoice{Option: options[i], Index: i, Source: "stored"}, true
		}
	}

	i := heuristicOption(options, candidates)
	e.RecordUnknown(ctx, question, job)
	return OptionChoice{Option: options[i], Index: i, Source: "heuristic"}, true
}

func matchOption(answer string, options []string, candidates []int) (int, bool) {
	a := textnorm.Normalize(answer)
	if a == "" {
		return 0, false
	}
	for _, i := range candidates {
		if textnorm.Normalize(options[i]) == a {
			return i, true
		}
	}
	for _, i := range candidates {
		o := textnorm.Normalize(options[i])
		if o != "" && (strings.Contains(o, a) || strings.Contains(a, o)) {
			return i, true
		}
	}
	return 0, false
}

func heuristicOption(options []string, candidates []int) int {
	for _, i := range candidates {
		if textnorm.ContainsAny(options[i], affirmativeTerms) && !textnorm.ContainsAny(options[i], negativeTerms) {
			return i
		}
	}

	best, bestN, numeric := -1, -1, 0
	for _, i := range candidates {
		n, ok := highestNumber(options[i])
		if !ok {
			continue
		}
		numeric++
		if n > bestN || (n == bestN && strings.Contains(options[i], "+")) {
			best, bestN = i, n
		}
	}
	if numeric >= 2 {
		return best
	}

	for k := len(candidates) - 1; k >= 0; k-- {
		if !textnorm.ContainsAny(options[candidates[k]], negativeTerms) {
			return candidates[k]
		}
	}
	return candidates[len(candidates)-1]
}

func highestNumber(s string) (int, bool) {
	found := false
	top := 0
	for _, m := range numberPattern.FindAllString(s, -1) {
		n, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		if !found || n > top {
			top = n
			found = true
		}
	}
	return top, found
}
