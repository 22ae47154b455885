// Package schedule resolves a match category and slot index against the
// splatoon3.ink schedules document.
package schedule

import (
	"fmt"
	"strings"
)

// Category is a schedule type a user query can resolve to.
type Category int

const (
	Regular Category = iota
	BankaraChallenge
	BankaraOpen
	XMatch
	Event
	SalmonRun
)

var categoryNames = map[Category]string{
	Regular:          "REGULAR",
	BankaraChallenge: "BANKARA_CHALLENGE",
	BankaraOpen:      "BANKARA_OPEN",
	XMatch:           "X_MATCH",
	Event:            "EVENT",
	SalmonRun:        "SALMON_RUN",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return "UNKNOWN"
}

func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Category) UnmarshalText(text []byte) error {
	parsed, ok := ParseCategory(string(text))
	if !ok {
		return fmt.Errorf("unknown category %q", text)
	}
	*c = parsed
	return nil
}

// ParseCategory accepts the upper-case names used in keyword files.
func ParseCategory(name string) (Category, bool) {
	name = strings.ToUpper(strings.TrimSpace(name))
	for c, n := range categoryNames {
		if n == name {
			return c, true
		}
	}
	return 0, false
}

// Categories lists every category in declaration order.
func Categories() []Category {
	return []Category{Regular, BankaraChallenge, BankaraOpen, XMatch, Event, SalmonRun}
}

// Variant selects one entry of a two-entry setting list.
type Variant int

const (
	VariantNone      Variant = -1
	VariantChallenge Variant = 0
	VariantOpen      Variant = 1
)

// Kind tells the resolver which setting shape a category carries.
type Kind int

const (
	KindVersus Kind = iota
	KindCoop
)

// Config is the static description of where a category lives in the schedules document.
type Config struct {
	// Path is a dot-path to an object holding a "nodes" array.
	Path string
	// SettingField names the node field carrying rule and stage data.
	SettingField string
	// LeagueField, when set and present on a node, is preferred over SettingField.
	LeagueField string
	Title       string
	Variant     Variant
	Kind        Kind
}

var configs = map[Category]Config{
	Regular: {
		Path:         "regularSchedules",
		SettingField: "regularMatchSetting",
		Title:        "ナワバリマッチ",
		Variant:      VariantNone,
	},
	BankaraChallenge: {
		Path:         "bankaraSchedules",
		SettingField: "bankaraMatchSettings",
		Title:        "バンカラマッチ(チャレンジ)",
		Variant:      VariantChallenge,
	},
	BankaraOpen: {
		Path:         "bankaraSchedules",
		SettingField: "bankaraMatchSettings",
		Title:        "バンカラマッチ(オープン)",
		Variant:      VariantOpen,
	},
	XMatch: {
		Path:         "xSchedules",
		SettingField: "xMatchSetting",
		Title:        "Xマッチ",
		Variant:      VariantNone,
	},
	Event: {
		Path:         "eventSchedules",
		SettingField: "eventMatchSetting",
		LeagueField:  "leagueMatchSetting",
		Title:        "イベントマッチ",
		Variant:      VariantNone,
	},
	SalmonRun: {
		Path:         "coopGroupingSchedule.regularSchedules",
		SettingField: "setting",
		Title:        "サーモンラン",
		Variant:      VariantNone,
		Kind:         KindCoop,
	},
}

// ConfigFor returns the static config of c. The bool is false for unknown categories.
func ConfigFor(c Category) (Config, bool) {
	cfg, ok := configs[c]
	return cfg, ok
}
