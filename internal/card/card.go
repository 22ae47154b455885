// Package card turns a resolved schedule into the fixed-shape card shown in chat.
package card

import (
	"fmt"
	"time"

	"splatbot/internal/schedule"
)

const (
	Header = "ステージ情報"

	LabelRule    = "ルール"
	LabelBoss    = "オカシラ"
	LabelStages  = "ステージ"
	LabelWeapons = "支給ブキ"
	LabelEvent   = "イベント"
)

var weekdays = [7]string{"日", "月", "火", "水", "木", "金", "土"}

// Section is a labeled block of lines.
type Section struct {
	Label string   `json:"label"`
	Lines []string `json:"lines"`
}

// Card is the presentation payload. Sections only holds blocks that have content.
type Card struct {
	Header    string    `json:"header"`
	Title     string    `json:"title"`
	TimeRange string    `json:"time_range"`
	Sections  []Section `json:"sections"`
}

// AltText is the one-line summary used where the card cannot be shown.
func (c Card) AltText() string {
	return c.Title + " " + c.TimeRange
}

// Project lays out r as a card, formatting times in loc.
func Project(r *schedule.Resolved, loc *time.Location) Card {
	c := Card{
		Header:    Header,
		Title:     r.Title,
		TimeRange: schedule.NotAvailable,
	}
	if r.HasWindow {
		c.TimeRange = FormatRange(r.Start, r.End, loc)
	}

	if r.EventName != "" {
		c.Sections = append(c.Sections, Section{Label: LabelEvent, Lines: []string{r.EventName}})
	}

	coop := r.Category == schedule.SalmonRun
	ruleLabel := LabelRule
	if coop {
		ruleLabel = LabelBoss
	}
	c.Sections = append(c.Sections, Section{Label: ruleLabel, Lines: []string{r.RuleOrBoss}})

	if len(r.Stages) > 0 {
		c.Sections = append(c.Sections, Section{Label: LabelStages, Lines: append([]string(nil), r.Stages...)})
	}
	if coop && len(r.Weapons) > 0 {
		c.Sections = append(c.Sections, Section{Label: LabelWeapons, Lines: append([]string(nil), r.Weapons...)})
	}
	return c
}

// FormatRange renders "M/D(曜) H:MM – M/D H:MM" in loc.
func FormatRange(start, end time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	s, e := start.In(loc), end.In(loc)
	return fmt.Sprintf("%d/%d(%s) %d:%02d – %d/%d %d:%02d",
		int(s.Month()), s.Day(), weekdays[s.Weekday()], s.Hour(), s.Minute(),
		int(e.Month()), e.Day(), e.Hour(), e.Minute())
}
