package message

import "unicode/utf8"

// Kind is the shape of an outbound payload.
type Kind string

const (
	KindText    Kind = "text"
	KindButtons Kind = "buttons"
	KindList    Kind = "list"
)

// Provider limits for interactive messages.
const (
	MaxButtons        = 3
	MaxListRows       = 10
	MaxButtonTitle    = 20
	MaxRowTitle       = 24
	MaxRowDescription = 72
	MaxHeader         = 60
	MaxFooter         = 60
	MaxInteractive    = 1024
	MaxText           = 4096
)

// Option is one selectable choice. Its ID comes back as the next turn's input.
type Option struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// Payload is a transport-neutral outbound message.
type Payload struct {
	Kind    Kind     `json:"kind"`
	Header  string   `json:"header,omitempty"`
	Body    string   `json:"body"`
	Footer  string   `json:"footer,omitempty"`
	Button  string   `json:"button,omitempty"`
	Options []Option `json:"options,omitempty"`
}

// Outbound addresses a payload to a chat address.
type Outbound struct {
	To      string  `json:"to"`
	Payload Payload `json:"payload"`
}

// OptionIDs returns the ids of the payload's options in display order.
func (p Payload) OptionIDs() []string {
	if len(p.Options) == 0 {
		return nil
	}
	ids := make([]string, len(p.Options))
	for i, o := range p.Options {
		ids[i] = o.ID
	}
	return ids
}

// Interactive reports whether the payload offers choices.
func (p Payload) Interactive() bool {
	return p.Kind == KindButtons || p.Kind == KindList
}

// Text builds a plain text payload.
func Text(body string) Payload {
	return Payload{Kind: KindText, Body: truncate(body, MaxText)}
}

// Buttons builds a reply-button prompt. Extra options beyond MaxButtons are dropped.
func Buttons(body string, options ...Option) Payload {
	if len(options) > MaxButtons {
		options = options[:MaxButtons]
	}
	out := make([]Option, len(options))
	for i, o := range options {
		out[i] = Option{ID: o.ID, Title: truncate(o.Title, MaxButtonTitle)}
	}
	return Payload{Kind: KindButtons, Body: truncate(body, MaxInteractive), Options: out}
}

// List builds a scrollable list prompt. Extra rows beyond MaxListRows are dropped.
func List(header, body, button string, rows ...Option) Payload {
	if len(rows) > MaxListRows {
		rows = rows[:MaxListRows]
	}
	out := make([]Option, len(rows))
	for i, r := range rows {
		out[i] = Option{
			ID:          r.ID,
			Title:       truncate(r.Title, MaxRowTitle),
			Description: truncate(r.Description, MaxRowDescription),
		}
	}
	return Payload{
		Kind:    KindList,
		Header:  truncate(header, MaxHeader),
		Body:    truncate(body, MaxInteractive),
		Button:  truncate(button, MaxButtonTitle),
		Options: out,
	}
}

// WithFooter returns a copy of p carrying a footer line.
func (p Payload) WithFooter(footer string) Payload {
	p.Footer = truncate(footer, MaxFooter)
	return p
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-1]) + "…"
}
