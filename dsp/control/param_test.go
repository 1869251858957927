package control

import (
	"errors"
	"testing"

	"github.com/cwbudde/algo-stereodelay/dsp/effects"
)

func TestIDNamesRoundTrip(t *testing.T) {
	ids := IDs()
	if len(ids) != 13 {
		t.Fatalf("len(IDs()) = %d, want 13", len(ids))
	}
	for _, id := range ids {
		got, ok := LookupID(id.String())
		if !ok || got != id {
			t.Fatalf("LookupID(%q) = %v, %v", id.String(), got, ok)
		}
	}
	if _, ok := LookupID("gain"); ok {
		t.Fatal("LookupID accepted an unknown name")
	}
	if got := ID(99).String(); got != "ID(99)" {
		t.Fatalf("String() = %q", got)
	}
}

func TestNamedParam(t *testing.T) {
	p, err := NamedParam("feedback", 0.4)
	if err != nil || p.ID != Feedback || p.Value != 0.4 {
		t.Fatalf("NamedParam = %+v, %v", p, err)
	}

	p, err = NamedParam("distortion_type", float64(effects.DistortionFuzz))
	if err != nil || p.Type != effects.DistortionFuzz {
		t.Fatalf("distortion_type index: %+v, %v", p, err)
	}
	p, _ = NamedParam("distortion_type", 42)
	if p.Type != effects.DistortionNone {
		t.Fatalf("out of range index = %v, want none", p.Type)
	}

	_, err = NamedParam("gain", 0.5)
	var ipe *InvalidParameterError
	if !errors.As(err, &ipe) {
		t.Fatalf("err = %v, want InvalidParameterError", err)
	}
	if ipe.Name != "gain" || ipe.Value != 0.5 || ipe.Min != 0 || ipe.Max != 1 {
		t.Fatalf("error fields = %+v", ipe)
	}
	if !errors.Is(err, ErrInvalidParameter) {
		t.Fatal("error must wrap ErrInvalidParameter")
	}
}

func TestParseParam(t *testing.T) {
	tests := []struct {
		name, text string
		want       Param
		wantErr    bool
	}{
		{"left_delay", "0.25", Param{ID: LeftDelay, Value: 0.25}, false},
		{"bpm", " 128 ", Param{ID: BPM, Value: 128}, false},
		{"ping_pong", "true", Param{ID: PingPong, Value: 1}, false},
		{"ping_pong", "0", Param{ID: PingPong, Value: 0}, false},
		{"distortion_enabled", "0.7", Param{ID: DistortionEnabled, Value: 0.7}, false},
		{"distortion_type", "bit_crush", Param{ID: DistortionType, Type: effects.DistortionBitCrush}, false},
		{"distortion_type", "mystery", Param{ID: DistortionType, Type: effects.DistortionNone}, false},
		{"feedback", "lots", Param{}, true},
		{"gain", "1", Param{}, true},
	}

	for _, tt := range tests {
		got, err := ParseParam(tt.name, tt.text)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseParam(%q, %q) err = %v", tt.name, tt.text, err)
		}
		if got != tt.want {
			t.Fatalf("ParseParam(%q, %q) = %+v, want %+v", tt.name, tt.text, got, tt.want)
		}
	}
}
