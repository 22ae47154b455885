package card

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"splatbot/internal/schedule"
)

func tokyo(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	return loc
}

func TestFormatRange(t *testing.T) {
	loc := tokyo(t)

	tests := []struct {
		name     string
		start    time.Time
		end      time.Time
		expected string
	}{
		{
			name:     "same day",
			start:    time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
			end:      time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
			expected: "1/1(月) 19:00 – 1/1 21:00",
		},
		{
			name:     "crosses midnight",
			start:    time.Date(2024, 11, 30, 14, 0, 0, 0, time.UTC),
			end:      time.Date(2024, 11, 30, 16, 5, 0, 0, time.UTC),
			expected: "11/30(土) 23:00 – 12/1 1:05",
		},
		{
			name:     "sunday morning",
			start:    time.Date(2024, 1, 6, 23, 0, 0, 0, time.UTC),
			end:      time.Date(2024, 1, 7, 15, 0, 0, 0, time.UTC),
			expected: "1/7(日) 8:00 – 1/8 0:00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatRange(tt.start, tt.end, loc))
		})
	}
}

func TestProject_Versus(t *testing.T) {
	r := &schedule.Resolved{
		Category:   schedule.Regular,
		Title:      "ナワバリマッチ",
		Start:      time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		End:        time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		HasWindow:  true,
		RuleOrBoss: "Turf War",
		Stages:     []string{"Scorch Gorge", "Eeltail Alley"},
		Weapons:    []string{},
	}

	c := Project(r, tokyo(t))
	assert.Equal(t, Header, c.Header)
	assert.Equal(t, "ナワバリマッチ", c.Title)
	assert.Equal(t, "1/1(月) 19:00 – 1/1 21:00", c.TimeRange)
	assert.Equal(t, []Section{
		{Label: LabelRule, Lines: []string{"Turf War"}},
		{Label: LabelStages, Lines: []string{"Scorch Gorge", "Eeltail Alley"}},
	}, c.Sections)
	assert.Equal(t, "ナワバリマッチ 1/1(月) 19:00 – 1/1 21:00", c.AltText())
}

func TestProject_CoopWithoutWeapons(t *testing.T) {
	r := &schedule.Resolved{
		Category:   schedule.SalmonRun,
		Title:      "サーモンラン",
		RuleOrBoss: schedule.NotAvailable,
		Stages:     []string{"アラマキ砦"},
		Weapons:    []string{},
	}

	c := Project(r, tokyo(t))
	assert.Equal(t, schedule.NotAvailable, c.TimeRange)
	assert.Equal(t, []Section{
		{Label: LabelBoss, Lines: []string{schedule.NotAvailable}},
		{Label: LabelStages, Lines: []string{"アラマキ砦"}},
	}, c.Sections)
}

func TestProject_CoopWithWeaponsAndEvent(t *testing.T) {
	r := &schedule.Resolved{
		Category:   schedule.SalmonRun,
		Title:      "サーモンラン",
		RuleOrBoss: "ヨコヅナ",
		Stages:     []string{"シェケナダム"},
		Weapons:    []string{"わかばシューター", schedule.NotAvailable},
	}
	c := Project(r, tokyo(t))
	require.Len(t, c.Sections, 3)
	assert.Equal(t, Section{Label: LabelWeapons, Lines: []string{"わかばシューター", schedule.NotAvailable}}, c.Sections[2])

	event := &schedule.Resolved{
		Category:   schedule.Event,
		Title:      "イベントマッチ",
		RuleOrBoss: "ガチアサリ",
		EventName:  "ウルトラショット祭り",
		// Weapons are ignored outside salmon run.
		Weapons: []string{"ignored"},
	}
	c = Project(event, tokyo(t))
	assert.Equal(t, []Section{
		{Label: LabelEvent, Lines: []string{"ウルトラショット祭り"}},
		{Label: LabelRule, Lines: []string{"ガチアサリ"}},
	}, c.Sections)
}

func TestProject_Deterministic(t *testing.T) {
	r := &schedule.Resolved{
		Category:   schedule.XMatch,
		Title:      "Xマッチ",
		Start:      time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		End:        time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		HasWindow:  true,
		RuleOrBoss: "ガチホコバトル",
		Stages:     []string{"a", "b"},
	}

	first := Project(r, tokyo(t))
	first.Sections[1].Lines[0] = "mutated"
	second := Project(r, tokyo(t))
	third := Project(r, tokyo(t))

	assert.Equal(t, second, third)
	assert.Equal(t, []string{"a", "b"}, r.Stages)
}
