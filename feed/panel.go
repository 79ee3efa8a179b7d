package feed

import "fmt"

// A Panel is one of the togglable surfaces attached to an activity card.
type Panel int

const (
	PanelNone Panel = iota
	PanelComments
	PanelReactionForm
	PanelReactionList
)

var panelNames = map[Panel]string{
	PanelNone:         "none",
	PanelComments:     "comments",
	PanelReactionForm: "reaction-form",
	PanelReactionList: "reaction-list",
}

func (p Panel) String() string {
	if name, ok := panelNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Panel(%d)", int(p))
}

// ParsePanel parses the name returned by Panel.String.
func ParsePanel(s string) (Panel, error) {
	for p, name := range panelNames {
		if name == s {
			return p, nil
		}
	}
	return PanelNone, fmt.Errorf("unknown panel %q", s)
}

func (p Panel) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Panels tracks which panel of a card is visible. Only one panel can be
// visible at a time. The zero value has nothing visible.
type Panels struct {
	current Panel
}

// Current returns the visible panel, or PanelNone.
func (p *Panels) Current() Panel { return p.current }

// Visible reports whether panel is the visible one.
func (p *Panels) Visible(panel Panel) bool {
	return panel != PanelNone && p.current == panel
}

func (p *Panels) toggle(panel Panel) {
	if p.current == panel {
		p.current = PanelNone
		return
	}
	p.current = panel
}

// ToggleComments shows the comment panel, or hides it if it is showing.
func (p *Panels) ToggleComments() { p.toggle(PanelComments) }

// ToggleReactionForm shows the reaction picker, or hides it if it is showing.
func (p *Panels) ToggleReactionForm() { p.toggle(PanelReactionForm) }

// OpenReactionForm shows the reaction picker. Hovering the reaction button
// opens the picker; it never closes it.
func (p *Panels) OpenReactionForm() { p.current = PanelReactionForm }

// ToggleReactionList shows the list of reactions, or hides it if it is showing.
func (p *Panels) ToggleReactionList() { p.toggle(PanelReactionList) }

// Close hides panel if it is the visible one. Leaving or clicking outside a
// panel only ever closes that panel.
func (p *Panels) Close(panel Panel) {
	if p.current == panel {
		p.current = PanelNone
	}
}
