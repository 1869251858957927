package control

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cwbudde/algo-stereodelay/dsp/effects"
)

// ID identifies one runtime-settable engine parameter.
type ID int

const (
	LeftDelay ID = iota
	RightDelay
	BPM
	Feedback
	WetMix
	PingPong
	StereoWidth
	CrossFeedback
	DistortionEnabled
	DistortionType
	DistortionDrive
	DistortionMix
	DistortionFeedbackIntensity
	numIDs
)

var idNames = [numIDs]string{
	LeftDelay:                   "left_delay",
	RightDelay:                  "right_delay",
	BPM:                         "bpm",
	Feedback:                    "feedback",
	WetMix:                      "wet_mix",
	PingPong:                    "ping_pong",
	StereoWidth:                 "stereo_width",
	CrossFeedback:               "cross_feedback",
	DistortionEnabled:           "distortion_enabled",
	DistortionType:              "distortion_type",
	DistortionDrive:             "distortion_drive",
	DistortionMix:               "distortion_mix",
	DistortionFeedbackIntensity: "distortion_feedback_intensity",
}

// String returns the wire name of id.
func (id ID) String() string {
	if id < 0 || id >= numIDs {
		return fmt.Sprintf("ID(%d)", int(id))
	}
	return idNames[id]
}

// IDs returns every parameter in wire-table order.
func IDs() []ID {
	ids := make([]ID, numIDs)
	for i := range ids {
		ids[i] = ID(i)
	}
	return ids
}

// LookupID resolves a wire name.
func LookupID(name string) (ID, bool) {
	for i, n := range idNames {
		if n == name {
			return ID(i), true
		}
	}
	return 0, false
}

// Boolean reports whether id is carried as a boolean-as-float.
func (id ID) Boolean() bool {
	return id == PingPong || id == DistortionEnabled
}

// Param is one parameter change. Value carries every numeric and boolean
// parameter; Type is used only by DistortionType.
type Param struct {
	ID    ID
	Value float64
	Type  effects.DistortionType
}

// NamedParam builds a Param from a wire name and numeric value. For
// distortion_type the value is taken as the type index; anything outside the
// table selects no distortion.
func NamedParam(name string, value float64) (Param, error) {
	id, ok := LookupID(name)
	if !ok {
		return Param{}, unknownParameter(name, value)
	}

	p := Param{ID: id, Value: value}
	if id == DistortionType {
		p.Type = effects.DistortionNone
		if value >= 0 && value < float64(len(effects.DistortionTypes())) {
			p.Type = effects.DistortionType(int(value))
		}
	}

	return p, nil
}

// ParseParam builds a Param from a wire name and its text form, as typed
// into a shell or sent by a control surface. distortion_type takes a type
// name, booleans accept strconv.ParseBool forms and numbers.
func ParseParam(name, text string) (Param, error) {
	text = strings.TrimSpace(text)

	id, ok := LookupID(name)
	if !ok {
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			v = math.NaN()
		}
		return Param{}, unknownParameter(name, v)
	}

	if id == DistortionType {
		return Param{ID: id, Type: effects.ParseDistortionType(text)}, nil
	}

	if id.Boolean() {
		if b, err := strconv.ParseBool(text); err == nil {
			return Param{ID: id, Value: boolValue(b)}, nil
		}
	}

	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return Param{}, fmt.Errorf("control: parse %s: %w", name, err)
	}

	return Param{ID: id, Value: v}, nil
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func isTrue(v float64) bool { return v > 0.5 }
