package schedule

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

// NotAvailable is shown for any name or time that cannot be resolved.
const NotAvailable = "N/A"

// ID is an upstream identifier. Upstream uses strings, but numeric ids are accepted too.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return errors.Wrap(err, "id must be a string or a number")
	}
	*id = ID(n.String())
	return nil
}

// Ref is a reference to a localized object.
type Ref struct {
	ID ID `json:"id"`
}

// WeaponRef is a supplied weapon in a coop setting.
type WeaponRef struct {
	ID       ID `json:"__splatoon3ink_id"`
	LegacyID ID `json:"__id"`
}

func (w WeaponRef) key() ID {
	if w.ID != "" {
		return w.ID
	}
	return w.LegacyID
}

// Setting is the category-specific part of a schedule node: *VersusSetting or *CoopSetting.
type Setting interface {
	kind() Kind
}

type VersusSetting struct {
	VsRule           *Ref  `json:"vsRule"`
	VsStages         []Ref `json:"vsStages"`
	LeagueMatchEvent *Ref  `json:"leagueMatchEvent"`
}

func (*VersusSetting) kind() Kind { return KindVersus }

type CoopSetting struct {
	Boss      *Ref        `json:"boss"`
	CoopStage *Ref        `json:"coopStage"`
	Weapons   []WeaponRef `json:"weapons"`
}

func (*CoopSetting) kind() Kind { return KindCoop }

// TimeWindow is a start/end pair as RFC 3339 strings.
type TimeWindow struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// Node is one element of a schedule collection.
type Node struct {
	TimeWindow
	TimePeriods []TimeWindow `json:"timePeriods"`

	fields map[string]json.RawMessage
}

func decodeNode(raw json.RawMessage) (*Node, error) {
	var node Node
	if err := json.Unmarshal(raw, &node); err != nil {
		return nil, errors.Wrap(err, "failed to decode schedule node")
	}
	if err := json.Unmarshal(raw, &node.fields); err != nil {
		return nil, errors.Wrap(err, "failed to decode schedule node fields")
	}
	return &node, nil
}

// field returns a node field, treating JSON null as absent.
func (n *Node) field(name string) (json.RawMessage, bool) {
	raw, ok := n.fields[name]
	if !ok || isNull(raw) {
		return nil, false
	}
	return raw, true
}

// Window returns the preferred time window: the first time period, else the
// node's own start and end. The bool is false when neither is present.
func (n *Node) Window() (TimeWindow, bool) {
	if len(n.TimePeriods) > 0 {
		first := n.TimePeriods[0]
		if first.StartTime != "" && first.EndTime != "" {
			return first, true
		}
	}
	if n.StartTime != "" && n.EndTime != "" {
		return n.TimeWindow, true
	}
	return TimeWindow{}, false
}

// Named is a localized entry.
type Named struct {
	Name string `json:"name"`
}

// Locale holds the id to display name tables of one locale document.
type Locale struct {
	Rules   map[ID]Named `json:"rules"`
	Stages  map[ID]Named `json:"stages"`
	Bosses  map[ID]Named `json:"bosses"`
	Weapons map[ID]Named `json:"weapons"`
	Events  map[ID]Named `json:"events"`
}

// DecodeLocale parses a locale document.
func DecodeLocale(raw json.RawMessage) (*Locale, error) {
	var locale Locale
	if err := json.Unmarshal(raw, &locale); err != nil {
		return nil, errors.Wrap(err, "failed to decode locale")
	}
	return &locale, nil
}

func lookup(table map[ID]Named, id ID) string {
	if id == "" {
		return NotAvailable
	}
	named, ok := table[id]
	if !ok || named.Name == "" {
		return NotAvailable
	}
	return named.Name
}

func refName(table map[ID]Named, ref *Ref) string {
	if ref == nil {
		return NotAvailable
	}
	return lookup(table, ref.ID)
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
