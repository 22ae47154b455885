package intent

import (
	"strings"
	"sync/atomic"

	"splatbot/internal/schedule"
)

// Classifier matches text against the current Rules. Rules can be swapped at
// any time; each call sees one consistent set.
type Classifier struct {
	rules atomic.Pointer[Rules]
}

// NewClassifier uses DefaultRules when rules is nil.
func NewClassifier(rules *Rules) *Classifier {
	if rules == nil {
		rules = DefaultRules()
	}
	c := &Classifier{}
	c.rules.Store(rules)
	return c
}

func (c *Classifier) SetRules(rules *Rules) {
	c.rules.Store(rules)
}

func (c *Classifier) Rules() *Rules {
	return c.rules.Load()
}

// Classify returns the category the text asks about.
//
// BANKARA_OPEN wins when every one of its keywords appears. Otherwise the
// first category in scan order with any keyword present wins, except that
// BANKARA_CHALLENGE is skipped when an open-only keyword is present.
// Matching is plain substring containment on normalized text.
func (c *Classifier) Classify(text string) (schedule.Category, bool) {
	rules := c.rules.Load()
	normalized := normalizeText(text)

	if open := rules.keywords[schedule.BankaraOpen]; len(open) > 0 && containsAll(normalized, open) {
		return schedule.BankaraOpen, true
	}

	for _, category := range scanOrder {
		if category == schedule.BankaraChallenge && containsAny(normalized, rules.openOnly) {
			continue
		}
		if containsAny(normalized, rules.keywords[category]) {
			return category, true
		}
	}
	return 0, false
}

// CountNext counts non-overlapping cue words in text, clamped to [0, maxCount].
// The result is the index of the slot the user asks about: 0 is the current one.
func (c *Classifier) CountNext(text string, maxCount int) int {
	rules := c.rules.Load()
	if rules.next == nil || maxCount <= 0 {
		return 0
	}
	count := len(rules.next.FindAllStringIndex(normalizeText(text), -1))
	return min(count, maxCount)
}

func containsAll(text string, keywords []string) bool {
	for _, kw := range keywords {
		if !strings.Contains(text, kw) {
			return false
		}
	}
	return true
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

var defaultClassifier = NewClassifier(nil)

// Classify runs the built-in rules.
func Classify(text string) (schedule.Category, bool) {
	return defaultClassifier.Classify(text)
}

// CountNext runs the built-in cue words.
func CountNext(text string, maxCount int) int {
	return defaultClassifier.CountNext(text, maxCount)
}
