package bridge

// Message types exchanged with the preview page.
const (
	MessageMount      = "mount"
	MessageUpdate     = "update"
	MessageUnmount    = "unmount"
	MessagePatch      = "patch"
	MessageStyle      = "style"
	MessageDiagnostic = "diagnostic"
	MessageRehydrate  = "rehydrate"
	MessageScroll     = "scroll"
)

// Message is the JSON envelope sent over the preview websocket.
type Message struct {
	Type      string  `json:"type"`
	Container string  `json:"container,omitempty"`
	Props     *Props  `json:"props,omitempty"`
	Isolation bool    `json:"isolation,omitempty"`
	Markup    string  `json:"markup,omitempty"`
	CSS       string  `json:"css,omitempty"`
	ScrollTop float64 `json:"scrollTop,omitempty"`
	Error     string  `json:"error,omitempty"`

	// Client-reported geometry on scroll messages.
	ScrollHeight float64 `json:"scrollHeight,omitempty"`
	ClientHeight float64 `json:"clientHeight,omitempty"`
}
