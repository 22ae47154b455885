package schedule

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// CategoryNotFoundError means the configured collection is missing from the
// schedules document, which points at a config mistake or an upstream schema change.
type CategoryNotFoundError struct {
	Category Category
	Path     string
}

func (e *CategoryNotFoundError) Error() string {
	return fmt.Sprintf("schedule collection %q for %s not found", e.Path, e.Category)
}

// Resolved is one schedule slot with every id replaced by its display name.
type Resolved struct {
	Category   Category  `json:"category"`
	Title      string    `json:"title"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	HasWindow  bool      `json:"has_window"`
	RuleOrBoss string    `json:"rule_or_boss"`
	Stages     []string  `json:"stages"`
	Weapons    []string  `json:"weapons"`
	EventName  string    `json:"event_name,omitempty"`
}

// Resolve picks node index of category's collection in doc and resolves its
// names through locale. The bool is false, with a nil error, when there is no
// node at index.
func Resolve(category Category, index int, doc json.RawMessage, locale *Locale) (*Resolved, bool, error) {
	cfg, ok := ConfigFor(category)
	if !ok {
		return nil, false, errors.Errorf("unknown category %d", int(category))
	}
	if locale == nil {
		locale = &Locale{}
	}

	nodes, err := collection(doc, cfg.Path)
	if err != nil {
		return nil, false, &CategoryNotFoundError{Category: category, Path: cfg.Path}
	}
	if index < 0 || index >= len(nodes) || isNull(nodes[index]) {
		return nil, false, nil
	}

	node, err := decodeNode(nodes[index])
	if err != nil {
		return nil, false, errors.Wrapf(err, "%s node %d", category, index)
	}

	resolved := &Resolved{
		Category:   category,
		Title:      cfg.Title,
		RuleOrBoss: NotAvailable,
		Stages:     []string{},
		Weapons:    []string{},
	}
	if window, ok := node.Window(); ok {
		start, startErr := time.Parse(time.RFC3339, window.StartTime)
		end, endErr := time.Parse(time.RFC3339, window.EndTime)
		if startErr == nil && endErr == nil {
			resolved.Start, resolved.End, resolved.HasWindow = start, end, true
		}
	}

	setting, err := settingFor(cfg, node)
	if err != nil {
		return nil, false, errors.Wrapf(err, "%s node %d", category, index)
	}

	switch s := setting.(type) {
	case *CoopSetting:
		resolved.RuleOrBoss = refName(locale.Bosses, s.Boss)
		if s.CoopStage != nil {
			resolved.Stages = append(resolved.Stages, lookup(locale.Stages, s.CoopStage.ID))
		}
		for _, w := range s.Weapons {
			resolved.Weapons = append(resolved.Weapons, lookup(locale.Weapons, w.key()))
		}
	case *VersusSetting:
		resolved.RuleOrBoss = refName(locale.Rules, s.VsRule)
		for _, stage := range s.VsStages {
			resolved.Stages = append(resolved.Stages, lookup(locale.Stages, stage.ID))
		}
		if s.LeagueMatchEvent != nil {
			if name := lookup(locale.Events, s.LeagueMatchEvent.ID); name != NotAvailable {
				resolved.EventName = name
			}
		}
	}

	return resolved, true, nil
}

// collection walks path and returns the "nodes" array found there. A top-level
// "data" envelope, as served by splatoon3.ink, is unwrapped when the first
// path segment is not found at the top.
func collection(doc json.RawMessage, path string) ([]json.RawMessage, error) {
	obj, err := object(doc)
	if err != nil {
		return nil, err
	}

	segments := strings.Split(path, ".")
	if _, ok := obj[segments[0]]; !ok {
		if data, ok := obj["data"]; ok {
			if obj, err = object(data); err != nil {
				return nil, err
			}
		}
	}

	for _, segment := range segments {
		raw, ok := obj[segment]
		if !ok {
			return nil, errors.Errorf("missing %q", segment)
		}
		if obj, err = object(raw); err != nil {
			return nil, errors.Wrapf(err, "segment %q", segment)
		}
	}

	raw, ok := obj["nodes"]
	if !ok {
		return nil, errors.New("missing nodes")
	}
	var nodes []json.RawMessage
	if err := json.Unmarshal(raw, &nodes); err != nil || nodes == nil {
		return nil, errors.New("nodes is not an array")
	}
	return nodes, nil
}

func object(raw json.RawMessage) (map[string]json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, errors.Wrap(err, "not an object")
	}
	if obj == nil {
		return nil, errors.New("not an object")
	}
	return obj, nil
}

// settingFor decodes the node's setting into the shape of cfg.Kind. A missing
// setting yields an empty one so every name falls back to N/A.
func settingFor(cfg Config, node *Node) (Setting, error) {
	if cfg.Kind == KindCoop {
		var s CoopSetting
		if raw, ok := node.field(cfg.SettingField); ok {
			if err := json.Unmarshal(raw, &s); err != nil {
				return nil, errors.Wrap(err, "failed to decode coop setting")
			}
		}
		return &s, nil
	}

	raw, ok := node.field(cfg.SettingField)
	if cfg.LeagueField != "" {
		if league, found := node.field(cfg.LeagueField); found {
			raw, ok = league, true
		}
	}
	var s VersusSetting
	if !ok {
		return &s, nil
	}

	raw, ok = pickVariant(raw, cfg.Variant)
	if !ok {
		return &s, nil
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, errors.Wrap(err, "failed to decode versus setting")
	}
	return &s, nil
}

// pickVariant returns the variant's element when raw is an array, and raw
// itself when it is a single object.
func pickVariant(raw json.RawMessage, variant Variant) (json.RawMessage, bool) {
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		return raw, true
	}
	i := int(variant)
	if variant == VariantNone {
		i = 0
	}
	if i >= len(list) || isNull(list[i]) {
		return nil, false
	}
	return list[i], true
}
