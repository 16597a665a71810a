package transcript

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	UnknownSpeaker = "未知"
	SpeakersField  = "speakers"
	PrettyField    = "pretty"
)

var ErrInvalidJSON = errors.New("transcript: payload is not valid JSON")

// Line is one decoded entry. Passthrough lines wrap a payload that had no
// speaker entries; Text then holds the raw payload.
type Line struct {
	Speaker     string
	Text        string
	Passthrough bool
}

func (l Line) String() string {
	if l.Passthrough {
		return l.Text
	}
	return fmt.Sprintf("%s：%s", l.Speaker, l.Text)
}

// Decode parses one live transcription event.
func Decode(raw []byte) ([]Line, error) {
	return DecodeField(raw, SpeakersField)
}

func DecodeField(raw []byte, field string) ([]Line, error) {
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	entries, ok := speakerEntries(payload, field)
	if !ok {
		return []Line{{Text: string(raw), Passthrough: true}}, nil
	}
	lines := make([]Line, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, Line{
			Speaker: stringOr(e["speaker"], UnknownSpeaker),
			Text:    stringOr(e["text"], ""),
		})
	}
	return lines, nil
}

// speakerEntries reports false unless field is an array whose elements are all objects.
func speakerEntries(payload any, field string) ([]map[string]any, bool) {
	obj, ok := payload.(map[string]any)
	if !ok {
		return nil, false
	}
	arr, ok := obj[field].([]any)
	if !ok {
		return nil, false
	}
	entries := make([]map[string]any, 0, len(arr))
	for _, item := range arr {
		e, ok := item.(map[string]any)
		if !ok {
			return nil, false
		}
		entries = append(entries, e)
	}
	return entries, true
}

func stringOr(v any, fallback string) string {
	s, ok := v.(string)
	if !ok {
		return fallback
	}
	return s
}

type wireEntry struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

type wireEvent struct {
	Speakers []wireEntry `json:"speakers"`
}

// Encode produces the wire shape Decode accepts. Passthrough lines are skipped.
func Encode(lines []Line) ([]byte, error) {
	ev := wireEvent{Speakers: make([]wireEntry, 0, len(lines))}
	for _, l := range lines {
		if l.Passthrough {
			continue
		}
		ev.Speakers = append(ev.Speakers, wireEntry{Speaker: l.Speaker, Text: l.Text})
	}
	return json.Marshal(ev)
}
