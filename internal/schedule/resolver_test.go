package schedule

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFixtures(t *testing.T) (json.RawMessage, *Locale) {
	t.Helper()
	doc, err := os.ReadFile(filepath.Join("testdata", "schedules.json"))
	require.NoError(t, err)
	raw, err := os.ReadFile(filepath.Join("testdata", "locale.json"))
	require.NoError(t, err)
	locale, err := DecodeLocale(raw)
	require.NoError(t, err)
	return doc, locale
}

const scenarioDoc = `{
	"regularSchedules": {
		"nodes": [{
			"startTime": "2024-01-01T10:00:00Z",
			"endTime": "2024-01-01T12:00:00Z",
			"regularMatchSetting": {"vsRule": {"id": "1"}, "vsStages": [{"id": "2"}]}
		}]
	}
}`

func TestResolve_RegularScenario(t *testing.T) {
	locale := &Locale{
		Rules:  map[ID]Named{"1": {Name: "Turf War"}},
		Stages: map[ID]Named{"2": {Name: "Scorch Gorge"}},
	}

	resolved, ok, err := Resolve(Regular, 0, json.RawMessage(scenarioDoc), locale)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, "ナワバリマッチ", resolved.Title)
	assert.Equal(t, "Turf War", resolved.RuleOrBoss)
	assert.Equal(t, []string{"Scorch Gorge"}, resolved.Stages)
	assert.Empty(t, resolved.Weapons)
	assert.True(t, resolved.HasWindow)
	assert.Equal(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), resolved.Start.UTC())
	assert.Equal(t, time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC), resolved.End.UTC())
}

func TestResolve_UnknownRuleIsNA(t *testing.T) {
	locale := &Locale{Stages: map[ID]Named{"2": {Name: "Scorch Gorge"}}}

	resolved, ok, err := Resolve(Regular, 0, json.RawMessage(scenarioDoc), locale)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, NotAvailable, resolved.RuleOrBoss)
	assert.Equal(t, []string{"Scorch Gorge"}, resolved.Stages)
}

func TestResolve_NumericIDs(t *testing.T) {
	doc := `{"xSchedules": {"nodes": [{"xMatchSetting": {"vsRule": {"id": 3}, "vsStages": [{"id": 7}]}}]}}`
	locale := &Locale{
		Rules:  map[ID]Named{"3": {Name: "Rainmaker"}},
		Stages: map[ID]Named{"7": {Name: "Hagglefish Market"}},
	}

	resolved, ok, err := Resolve(XMatch, 0, json.RawMessage(doc), locale)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Rainmaker", resolved.RuleOrBoss)
	assert.Equal(t, []string{"Hagglefish Market"}, resolved.Stages)
	assert.False(t, resolved.HasWindow)
}

func TestResolve_OutOfRangeIsNotFound(t *testing.T) {
	doc, locale := loadFixtures(t)

	for _, index := range []int{-1, 2, 100} {
		resolved, ok, err := Resolve(Regular, index, doc, locale)
		assert.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, resolved)
	}
}

func TestResolve_NullNodeIsNotFound(t *testing.T) {
	doc := `{"xSchedules": {"nodes": [null]}}`
	_, ok, err := Resolve(XMatch, 0, json.RawMessage(doc), nil)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestResolve_MissingCollection(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"missing", `{"regularSchedules": {"nodes": []}}`},
		{"null", `{"xSchedules": null}`},
		{"no nodes", `{"xSchedules": {}}`},
		{"nodes not array", `{"xSchedules": {"nodes": {}}}`},
		{"not an object", `[]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok, err := Resolve(XMatch, 0, json.RawMessage(tt.doc), nil)
			require.Error(t, err)
			assert.False(t, ok)

			var notFound *CategoryNotFoundError
			require.True(t, errors.As(err, &notFound))
			assert.Equal(t, XMatch, notFound.Category)
			assert.Equal(t, "xSchedules", notFound.Path)
		})
	}
}

func TestResolve_Bankara(t *testing.T) {
	doc, locale := loadFixtures(t)

	challenge, ok, err := Resolve(BankaraChallenge, 0, doc, locale)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "バンカラマッチ(チャレンジ)", challenge.Title)
	assert.Equal(t, "ガチエリア", challenge.RuleOrBoss)
	assert.Equal(t, []string{"ヤガラ市場", "マテガイ放水路"}, challenge.Stages)

	open, ok, err := Resolve(BankaraOpen, 0, doc, locale)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "バンカラマッチ(オープン)", open.Title)
	assert.Equal(t, "ガチヤグラ", open.RuleOrBoss)
	assert.Equal(t, []string{"ナメロウ金属", "マサバ海峡大橋"}, open.Stages)
}

func TestResolve_BankaraMissingVariant(t *testing.T) {
	doc := `{"bankaraSchedules": {"nodes": [{"bankaraMatchSettings": [{"vsRule": {"id": "r"}}]}]}}`
	locale := &Locale{Rules: map[ID]Named{"r": {Name: "Splat Zones"}}}

	open, ok, err := Resolve(BankaraOpen, 0, json.RawMessage(doc), locale)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, NotAvailable, open.RuleOrBoss)
	assert.Empty(t, open.Stages)
}

func TestResolve_XMatchUnknownStage(t *testing.T) {
	doc, locale := loadFixtures(t)

	resolved, ok, err := Resolve(XMatch, 0, doc, locale)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ガチホコバトル", resolved.RuleOrBoss)
	assert.Equal(t, []string{"ユノハナ大渓谷", NotAvailable}, resolved.Stages)
}

func TestResolve_FestivalSlotHasNoSetting(t *testing.T) {
	doc, locale := loadFixtures(t)

	resolved, ok, err := Resolve(Regular, 1, doc, locale)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, NotAvailable, resolved.RuleOrBoss)
	assert.Empty(t, resolved.Stages)
	assert.True(t, resolved.HasWindow)
}

func TestResolve_EventPrefersLeagueSettingAndTimePeriods(t *testing.T) {
	doc, locale := loadFixtures(t)

	resolved, ok, err := Resolve(Event, 0, doc, locale)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "イベントマッチ", resolved.Title)
	assert.Equal(t, "ガチアサリ", resolved.RuleOrBoss)
	assert.Equal(t, []string{"ゴンズイ地区"}, resolved.Stages)
	assert.Equal(t, "ウルトラショット祭り", resolved.EventName)
	assert.Equal(t, time.Date(2024, 1, 2, 1, 0, 0, 0, time.UTC), resolved.Start.UTC())
	assert.Equal(t, time.Date(2024, 1, 2, 3, 0, 0, 0, time.UTC), resolved.End.UTC())
}

func TestResolve_EventGenericSetting(t *testing.T) {
	doc := `{"eventSchedules": {"nodes": [{"eventMatchSetting": {"vsRule": {"id": "r"}}, "timePeriods": []}]}}`
	locale := &Locale{Rules: map[ID]Named{"r": {Name: "Tower Control"}}}

	resolved, ok, err := Resolve(Event, 0, json.RawMessage(doc), locale)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Tower Control", resolved.RuleOrBoss)
	assert.False(t, resolved.HasWindow)
	assert.Empty(t, resolved.EventName)
}

func TestResolve_SalmonRun(t *testing.T) {
	doc, locale := loadFixtures(t)

	resolved, ok, err := Resolve(SalmonRun, 0, doc, locale)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "サーモンラン", resolved.Title)
	assert.Equal(t, "ヨコヅナ", resolved.RuleOrBoss)
	assert.Equal(t, []string{"シェケナダム"}, resolved.Stages)
	assert.Equal(t, []string{"わかばシューター", "スプラチャージャー", "ホットブラスター", NotAvailable}, resolved.Weapons)
}

func TestResolve_SalmonRunWithoutBossOrWeapons(t *testing.T) {
	doc, locale := loadFixtures(t)

	resolved, ok, err := Resolve(SalmonRun, 1, doc, locale)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, NotAvailable, resolved.RuleOrBoss)
	assert.Equal(t, []string{"アラマキ砦"}, resolved.Stages)
	assert.NotNil(t, resolved.Weapons)
	assert.Empty(t, resolved.Weapons)
}

func TestResolve_UnwrapsDataEnvelopeOnlyWhenNeeded(t *testing.T) {
	doc := `{"data": {"xSchedules": {"nodes": [{}]}}, "xSchedules": {"nodes": []}}`

	_, ok, err := Resolve(XMatch, 0, json.RawMessage(doc), nil)
	require.NoError(t, err)
	assert.False(t, ok, "top-level collection wins over the data envelope")
}

func TestParseCategory(t *testing.T) {
	for _, c := range Categories() {
		parsed, ok := ParseCategory(c.String())
		assert.True(t, ok)
		assert.Equal(t, c, parsed)
	}

	parsed, ok := ParseCategory(" salmon_run ")
	assert.True(t, ok)
	assert.Equal(t, SalmonRun, parsed)

	_, ok = ParseCategory("TRICOLOR")
	assert.False(t, ok)
	assert.Equal(t, "UNKNOWN", Category(42).String())
}

func TestResolved_JSONRoundTripsCategory(t *testing.T) {
	data, err := json.Marshal(&Resolved{Category: BankaraOpen, Stages: []string{}, Weapons: []string{}})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"category":"BANKARA_OPEN"`)

	var decoded Resolved
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, BankaraOpen, decoded.Category)

	assert.Error(t, json.Unmarshal([]byte(`{"category":"TRICOLOR"}`), &decoded))
}
