// Package richtext turns posting HTML into sanitised Markdown and guesses
// its language.
package richtext

import (
	"fmt"
	"strings"
	"unicode/utf8"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/abadojack/whatlanggo"
	"github.com/microcosm-cc/bluemonday"

	"jobmate/autoapply-service/internal/model"
)

var policy = bluemonday.UGCPolicy()

// minDetectRunes is the shortest text a language guess is attempted on.
const minDetectRunes = 40

// FromHTML sanitises html and converts it to Markdown.
func FromHTML(html string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", nil
	}
	clean := policy.Sanitize(html)
	md, err := htmltomarkdown.ConvertString(clean)
	if err != nil {
		return "", fmt.Errorf("richtext: convert: %w", err)
	}
	return strings.TrimSpace(md), nil
}

// DetectLanguage returns the ISO 639-1 code of text, or model.LanguageUnknown
// when the text is too short or the guess is unreliable.
func DetectLanguage(text string) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) < minDetectRunes {
		return model.LanguageUnknown
	}
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return model.LanguageUnknown
	}
	code := info.Lang.Iso6391()
	if code == "" {
		return model.LanguageUnknown
	}
	return code
}
