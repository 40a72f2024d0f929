package progress

import "encoding/json"

// Type discriminates progress events.
type Type string

const (
	TypeStart      Type = "start"
	TypeProgress   Type = "progress"
	TypeGenerating Type = "generating"
	TypeComplete   Type = "complete"
	TypeError      Type = "error"
)

// Event is one message on the progress stream. Only the fields relevant to
// Type are populated.
type Event struct {
	Type      Type   `json:"type"`
	Current   int    `json:"current,omitempty"`
	Total     int    `json:"total,omitempty"`
	Item      string `json:"item,omitempty"`
	ElapsedMs int64  `json:"elapsedMs,omitempty"`
	EtaMs     int64  `json:"etaMs,omitempty"`
	Token     string `json:"token,omitempty"`
	Filename  string `json:"filename,omitempty"`
	URL       string `json:"url,omitempty"`
	Message   string `json:"message,omitempty"`
}

// MarshalJSON omits fields that do not belong to the event type. Progress
// events always carry every counter and timing field, zero or not.
func (e Event) MarshalJSON() ([]byte, error) {
	if e.Type == TypeProgress {
		return json.Marshal(struct {
			Type      Type   `json:"type"`
			Current   int    `json:"current"`
			Total     int    `json:"total"`
			Item      string `json:"item"`
			ElapsedMs int64  `json:"elapsedMs"`
			EtaMs     int64  `json:"etaMs"`
		}{e.Type, e.Current, e.Total, e.Item, e.ElapsedMs, e.EtaMs})
	}
	type plain Event
	return json.Marshal(plain(e))
}

// Terminal reports whether the event ends the stream.
func (e Event) Terminal() bool {
	return e.Type == TypeComplete || e.Type == TypeError
}

func Start(total int) Event {
	return Event{Type: TypeStart, Total: total}
}

func Progress(current, total int, item string, elapsedMs, etaMs int64) Event {
	return Event{Type: TypeProgress, Current: current, Total: total, Item: item, ElapsedMs: elapsedMs, EtaMs: etaMs}
}

func Generating() Event {
	return Event{Type: TypeGenerating}
}

func Complete(token, filename, url string) Event {
	return Event{Type: TypeComplete, Token: token, Filename: filename, URL: url}
}

func Failure(message string) Event {
	return Event{Type: TypeError, Message: message}
}

// EstimateRemaining projects the time left from the elapsed time and the
// fraction of items processed: elapsed*(total/max(current,1)) - elapsed.
func EstimateRemaining(elapsedMs int64, current, total int) int64 {
	if current < 1 {
		current = 1
	}
	projected := float64(elapsedMs) * (float64(total) / float64(current))
	eta := int64(projected) - elapsedMs
	if eta < 0 {
		return 0
	}
	return eta
}
