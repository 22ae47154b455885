// Package intent maps free-text chat input to a schedule category and a slot offset.
package intent

import (
	"encoding/json"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"golang.org/x/text/unicode/norm"

	"splatbot/internal/schedule"
)

// nextKey holds the cue words in a keyword file; every other key is a category name.
const nextKey = "NEXT"

// scanOrder is the order categories are tried after the BANKARA_OPEN check.
var scanOrder = []schedule.Category{
	schedule.Regular,
	schedule.BankaraChallenge,
	schedule.XMatch,
	schedule.Event,
	schedule.SalmonRun,
}

// Rules is an immutable set of keyword tables. Keywords are stored normalized.
type Rules struct {
	keywords map[schedule.Category][]string
	// openOnly are BANKARA_OPEN keywords absent from BANKARA_CHALLENGE;
	// any of them in the text rules out BANKARA_CHALLENGE.
	openOnly []string
	next     *regexp.Regexp
}

// DefaultRules returns the built-in keyword tables.
func DefaultRules() *Rules {
	return newRules(defaultKeywords(), defaultNext())
}

func defaultKeywords() map[schedule.Category][]string {
	return map[schedule.Category][]string{
		schedule.Regular:          {"レギュラー", "ナワバリ", "regular", "バトル"},
		schedule.BankaraChallenge: {"バンカラ"},
		schedule.BankaraOpen:      {"バンカラ", "オープン"},
		schedule.XMatch:           {"x"},
		schedule.Event:            {"イベント", "event"},
		schedule.SalmonRun:        {"しゃけ", "シャケ", "サーモン", "salmon", "サモラン", "バイト", "シフト"},
	}
}

// defaultNext lists the "next" cue words; longer forms come first so "次回" counts once.
func defaultNext() []string {
	return []string{"次回", "つぎ", "次", "ネクスト", "next"}
}

func newRules(keywords map[schedule.Category][]string, next []string) *Rules {
	r := &Rules{keywords: make(map[schedule.Category][]string, len(keywords))}
	for category, words := range keywords {
		r.keywords[category] = normalizeAll(words)
	}

	challenge := make(map[string]bool)
	for _, kw := range r.keywords[schedule.BankaraChallenge] {
		challenge[kw] = true
	}
	for _, kw := range r.keywords[schedule.BankaraOpen] {
		if !challenge[kw] {
			r.openOnly = append(r.openOnly, kw)
		}
	}

	r.next = compileCues(normalizeAll(next))
	return r
}

func normalizeAll(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if n := normalizeText(w); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// compileCues builds an alternation that matches leftmost-first, in list order.
func compileCues(cues []string) *regexp.Regexp {
	if len(cues) == 0 {
		return nil
	}
	quoted := make([]string, len(cues))
	for i, cue := range cues {
		quoted[i] = regexp.QuoteMeta(cue)
	}
	return regexp.MustCompile(strings.Join(quoted, "|"))
}

// Keywords returns a copy of the normalized keywords for category.
func (r *Rules) Keywords(category schedule.Category) []string {
	return append([]string(nil), r.keywords[category]...)
}

// LoadRules reads a keyword file of the form {"REGULAR": [...], ..., "NEXT": [...]}.
// Categories missing from the file keep their built-in keywords.
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load keyword file")
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "failed to parse keyword file")
	}

	keywords := defaultKeywords()
	next := defaultNext()
	for key, value := range raw {
		words := convertToStringSlice(value)
		if strings.EqualFold(key, nextKey) {
			next = words
			continue
		}
		category, ok := schedule.ParseCategory(key)
		if !ok {
			slog.Warn("unknown category in keyword file", "category", key, "path", path)
			continue
		}
		if len(words) == 0 {
			continue
		}
		keywords[category] = words
	}

	return newRules(keywords, next), nil
}

// convertToStringSlice accepts a list, an object of strings, or a single string.
func convertToStringSlice(value interface{}) []string {
	var result []string

	switch v := value.(type) {
	case []interface{}:
		for _, item := range v {
			if str, ok := item.(string); ok {
				result = append(result, str)
			}
		}
	case map[string]interface{}:
		for _, val := range v {
			if str, ok := val.(string); ok {
				result = append(result, str)
			}
		}
	case string:
		result = append(result, v)
	}

	return result
}

// normalizeText applies NFKC (full-width latin and half-width kana fold to
// their usual forms), maps unicode spaces to ASCII spaces and lowercases.
func normalizeText(text string) string {
	text = norm.NFKC.String(text)
	text = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		return r
	}, text)
	return strings.ToLower(strings.TrimSpace(text))
}
