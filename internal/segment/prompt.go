package segment

// Prompt is either a TextPrompt or a BoxPrompt.
type Prompt interface {
	prompt()
	String() string
}

// TextPrompt is a free-text prompt such as "truck".
type TextPrompt struct {
	Text string
}

// BoxPrompt is a geometric prompt. Label true marks the region for inclusion,
// false for exclusion.
type BoxPrompt struct {
	Box   NormalizedBox
	Label bool
}

func (TextPrompt) prompt() {}
func (BoxPrompt) prompt()  {}

// String implements fmt.Stringer.
func (p TextPrompt) String() string {
	return p.Text
}

// String implements fmt.Stringer.
func (p BoxPrompt) String() string {
	if p.Label {
		return "+" + p.Box.String()
	}
	return "-" + p.Box.String()
}
