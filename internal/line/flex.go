package line

import "splatbot/internal/card"

const (
	colorMuted    = "#888888"
	colorHeader   = "#FFFFFF"
	colorHeaderBg = "#1F1F3D"
)

// FlexFromCard renders c as a single flex bubble.
func FlexFromCard(c card.Card) FlexMessage {
	header := &Box{
		Type:            "box",
		Layout:          "vertical",
		BackgroundColor: colorHeaderBg,
		Contents: []Component{
			&Text{Type: "text", Text: c.Header, Size: "sm", Weight: "bold", Color: colorHeader},
		},
	}

	body := &Box{
		Type:    "box",
		Layout:  "vertical",
		Spacing: "sm",
		Contents: []Component{
			&Text{Type: "text", Text: c.Title, Size: "lg", Weight: "bold", Wrap: true},
			&Text{Type: "text", Text: c.TimeRange, Size: "sm", Color: colorMuted},
		},
	}

	for _, section := range c.Sections {
		body.Contents = append(body.Contents,
			&Separator{Type: "separator", Margin: "md"},
			&Text{Type: "text", Text: section.Label, Size: "xs", Color: colorMuted, Margin: "md"},
		)
		for _, text := range section.Lines {
			body.Contents = append(body.Contents, &Text{Type: "text", Text: text, Size: "md", Wrap: true})
		}
	}

	return FlexMessage{
		Type:    "flex",
		AltText: c.AltText(),
		Contents: Bubble{
			Type:   "bubble",
			Header: header,
			Body:   body,
		},
	}
}
