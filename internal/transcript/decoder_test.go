package transcript

import (
	"errors"
	"testing"
)

func TestDecode_Speakers(t *testing.T) {
	lines, err := Decode([]byte(`{"speakers":[{"speaker":"A","text":"hi"}]}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lines) != 1 || lines[0] != (Line{Speaker: "A", Text: "hi"}) {
		t.Fatalf("unexpected lines: %+v", lines)
	}
}

func TestDecode_PreservesOrderAndDefaults(t *testing.T) {
	lines, err := Decode([]byte(`{"speakers":[{"speaker":"B","text":"first"},{"text":"second"},{"speaker":"C"},{"speaker":7,"text":false}]}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []Line{
		{Speaker: "B", Text: "first"},
		{Speaker: UnknownSpeaker, Text: "second"},
		{Speaker: "C", Text: ""},
		{Speaker: UnknownSpeaker, Text: ""},
	}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %d", len(want), len(lines))
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("line %d: expected %+v, got %+v", i, want[i], lines[i])
		}
	}
}

func TestDecode_EmptySpeakers(t *testing.T) {
	lines, err := Decode([]byte(`{"speakers":[]}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lines) != 0 {
		t.Fatalf("expected no lines, got %+v", lines)
	}
}

func TestDecode_PassthroughShapes(t *testing.T) {
	for _, raw := range []string{
		`{"foo":"bar"}`,
		`{"speakers":"nope"}`,
		`{"speakers":[{"speaker":"A"},"x"]}`,
		`[1,2,3]`,
		`null`,
	} {
		lines, err := Decode([]byte(raw))
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", raw, err)
		}
		if len(lines) != 1 || !lines[0].Passthrough || lines[0].Text != raw {
			t.Fatalf("%s: expected one passthrough line, got %+v", raw, lines)
		}
	}
}

func TestDecode_InvalidJSON(t *testing.T) {
	if _, err := Decode([]byte("not json")); !errors.Is(err, ErrInvalidJSON) {
		t.Fatalf("expected ErrInvalidJSON, got %v", err)
	}
}

func TestDecodeField_Pretty(t *testing.T) {
	lines, err := DecodeField([]byte(`{"pretty":[{"speaker":"S1","text":"こんにちは"}]}`), PrettyField)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lines) != 1 || lines[0].String() != "S1：こんにちは" {
		t.Fatalf("unexpected lines: %+v", lines)
	}
}

func TestEncode_RoundTripsThroughDecode(t *testing.T) {
	raw, err := Encode([]Line{{Speaker: "A", Text: "x"}, {Text: "{}", Passthrough: true}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines, err := Decode(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lines) != 1 || lines[0] != (Line{Speaker: "A", Text: "x"}) {
		t.Fatalf("unexpected lines: %+v", lines)
	}
}
