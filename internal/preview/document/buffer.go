package document

// Kind classifies a source buffer for document synthesis
type Kind string

const (
	KindMarkup Kind = "markup"
	KindStyle  Kind = "style"
	KindScript Kind = "script"
	KindOther  Kind = "other"
)

// ParseKind maps a kind name to a Kind. Unknown names map to KindOther.
func ParseKind(s string) Kind {
	switch Kind(s) {
	case KindMarkup, KindStyle, KindScript:
		return Kind(s)
	case "html":
		return KindMarkup
	case "css":
		return KindStyle
	case "js", "javascript":
		return KindScript
	default:
		return KindOther
	}
}

// Buffer is one editable source text
type Buffer struct {
	Kind Kind   `json:"kind"`
	Text string `json:"text"`
}

// Buffers is the input to Synthesize: one text per composable kind
type Buffers struct {
	Markup string `json:"markup"`
	Style  string `json:"style"`
	Script string `json:"script"`
}

// FromBuffers projects a list of buffers onto Buffers. The first buffer of
// each composable kind wins; KindOther buffers are ignored.
func FromBuffers(list []Buffer) Buffers {
	var out Buffers
	var seen [3]bool
	for _, b := range list {
		switch b.Kind {
		case KindMarkup:
			if !seen[0] {
				out.Markup, seen[0] = b.Text, true
			}
		case KindStyle:
			if !seen[1] {
				out.Style, seen[1] = b.Text, true
			}
		case KindScript:
			if !seen[2] {
				out.Script, seen[2] = b.Text, true
			}
		}
	}
	return out
}

// Text returns the text of kind, or "" for KindOther
func (b Buffers) Text(kind Kind) string {
	switch kind {
	case KindMarkup:
		return b.Markup
	case KindStyle:
		return b.Style
	case KindScript:
		return b.Script
	}
	return ""
}

// With returns a copy of b with the text of kind replaced.
// KindOther leaves b unchanged.
func (b Buffers) With(kind Kind, text string) Buffers {
	switch kind {
	case KindMarkup:
		b.Markup = text
	case KindStyle:
		b.Style = text
	case KindScript:
		b.Script = text
	}
	return b
}
