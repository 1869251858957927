package control

import (
	"bytes"
	"errors"
	"log/slog"
	"maps"
	"math"
	"math/rand"
	"strings"
	"sync"
	"testing"

	"github.com/cwbudde/algo-stereodelay/dsp/core"
	"github.com/cwbudde/algo-stereodelay/dsp/effects"
)

func newTestGateway(t testing.TB, mutate func(*Config), opts ...Option) *Gateway {
	t.Helper()

	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	g, err := New(cfg, append([]Option{WithRand(rand.New(rand.NewSource(1)))}, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	return g
}

func cleanConfig(c *Config) {
	c.StereoDelay = StereoDelayConfig{
		LeftDelay:  0.5,
		RightDelay: 0.5,
		WetMix:     1,
	}
	c.Distortion.Enabled = false
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SampleRate = 4000
	if _, err := New(cfg); !errors.Is(err, ErrSampleRateOutOfRange) {
		t.Fatalf("err = %v, want ErrSampleRateOutOfRange", err)
	}

	cfg = DefaultConfig()
	cfg.BufferSize = 32
	if _, err := New(cfg); !errors.Is(err, ErrBufferSizeOutOfRange) {
		t.Fatalf("err = %v, want ErrBufferSizeOutOfRange", err)
	}
}

func TestStatusDefaults(t *testing.T) {
	g := newTestGateway(t, nil)

	status, err := g.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}

	want := map[string]string{
		"left_delay":                    "0.300",
		"right_delay":                   "0.600",
		"feedback":                      "0.300",
		"wet_mix":                       "0.600",
		"ping_pong":                     "true",
		"stereo_width":                  "0.500",
		"cross_feedback":                "0.200",
		"distortion_enabled":            "true",
		"distortion_type":               "soft_clip",
		"distortion_drive":              "0.300",
		"distortion_mix":                "0.700",
		"distortion_feedback_intensity": "0.500",
		"sample_rate":                   "44100",
		"buffer_size":                   "4096",
		"is_running":                    "false",
	}
	if !maps.Equal(status, want) {
		t.Fatalf("status = %v\nwant %v", status, want)
	}
}

func TestSetParameterClampsAndReports(t *testing.T) {
	g := newTestGateway(t, nil)

	steps := []struct {
		name  string
		value float64
		key   string
		want  string
	}{
		{"feedback", 2, "feedback", "0.900"},
		{"wet_mix", -1, "wet_mix", "0.000"},
		{"ping_pong", 0.2, "ping_pong", "false"},
		{"ping_pong", 0.8, "ping_pong", "true"},
		{"stereo_width", 0.25, "stereo_width", "0.250"},
		{"cross_feedback", 0.9, "cross_feedback", "0.500"},
		{"distortion_enabled", 0, "distortion_enabled", "false"},
		{"distortion_drive", 0.75, "distortion_drive", "0.750"},
		{"distortion_mix", 3, "distortion_mix", "1.000"},
		{"distortion_feedback_intensity", 0.1, "distortion_feedback_intensity", "0.100"},
		{"left_delay", 0, "left_delay", "0.001"},
		{"right_delay", 9, "right_delay", "4.000"},
	}

	for _, s := range steps {
		if err := g.SetParameter(s.name, s.value); err != nil {
			t.Fatalf("SetParameter(%s, %v): %v", s.name, s.value, err)
		}
		status, err := g.Status()
		if err != nil {
			t.Fatalf("Status: %v", err)
		}
		if status[s.key] != s.want {
			t.Fatalf("after %s=%v: %s = %q, want %q", s.name, s.value, s.key, status[s.key], s.want)
		}
	}
}

func TestSetParameterTextDistortionType(t *testing.T) {
	g := newTestGateway(t, nil)

	for _, name := range []string{"hard_clip", "tube", "fuzz", "bit_crush", "waveshaper", "none", "soft_clip"} {
		if err := g.SetParameterText("distortion_type", name); err != nil {
			t.Fatalf("SetParameterText(%s): %v", name, err)
		}
		status, _ := g.Status()
		if status["distortion_type"] != name {
			t.Fatalf("distortion_type = %q, want %q", status["distortion_type"], name)
		}
	}

	if err := g.SetParameterText("distortion_type", "overdrive"); err != nil {
		t.Fatalf("unknown type name must not error: %v", err)
	}
	status, _ := g.Status()
	if status["distortion_type"] != "none" {
		t.Fatalf("distortion_type = %q, want none", status["distortion_type"])
	}
}

func TestUnknownParameterLeavesStatusUnchanged(t *testing.T) {
	g := newTestGateway(t, nil)
	if err := g.SetParameter("feedback", 0.5); err != nil {
		t.Fatalf("SetParameter: %v", err)
	}

	before, err := g.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}

	err = g.SetParameter("gain", 0.7)
	var ipe *InvalidParameterError
	if !errors.As(err, &ipe) || ipe.Name != "gain" || ipe.Min != 0 || ipe.Max != 1 {
		t.Fatalf("err = %v, want InvalidParameterError{gain 0 1}", err)
	}
	if err := g.SetParameterText("gain", "0.7"); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("text err = %v, want ErrInvalidParameter", err)
	}
	if err := g.Apply(Param{ID: ID(77), Value: 1}); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("apply err = %v, want ErrInvalidParameter", err)
	}

	after, err := g.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !maps.Equal(before, after) {
		t.Fatalf("status changed:\nbefore %v\nafter  %v", before, after)
	}
}

func TestUnknownDistortionTypeActsAsNone(t *testing.T) {
	g := newTestGateway(t, func(c *Config) {
		cleanConfig(c)
		c.StereoDelay.LeftDelay = 0.001
		c.StereoDelay.RightDelay = 0.001
		c.StereoDelay.Feedback = 0.9
		c.Distortion = DistortionConfig{
			Enabled:           true,
			Type:              "soft_clip",
			Drive:             1,
			Mix:               1,
			FeedbackIntensity: 1,
		}
	})

	if err := g.Apply(Param{ID: DistortionType, Type: effects.DistortionType(42)}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	status, err := g.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status["distortion_type"] != "none" {
		t.Fatalf("distortion_type = %q, want none", status["distortion_type"])
	}

	in := 1.0
	for n := range 20000 {
		l, r, err := g.ProcessSample(in, in)
		if err != nil {
			t.Fatalf("ProcessSample: %v", err)
		}
		if math.Abs(l) > 1 || math.Abs(r) > 1 {
			t.Fatalf("n=%d: output (%g, %g) grew past the input level", n, l, r)
		}
		in = 0
	}
}

func TestBPMSetsBothDelays(t *testing.T) {
	g := newTestGateway(t, nil)

	if err := g.SetParameter("bpm", 120); err != nil {
		t.Fatalf("SetParameter(bpm): %v", err)
	}
	status, _ := g.Status()
	if status["bpm"] != "120" || status["left_delay"] != "0.125" || status["right_delay"] != "0.250" {
		t.Fatalf("status after bpm=120: %v", status)
	}

	if err := g.SetParameter("bpm", 1000); err != nil {
		t.Fatalf("SetParameter(bpm): %v", err)
	}
	status, _ = g.Status()
	if status["bpm"] != "300" || status["left_delay"] != "0.050" || status["right_delay"] != "0.100" {
		t.Fatalf("status after bpm=1000: %v", status)
	}

	if err := g.SetParameter("left_delay", 0.3); err != nil {
		t.Fatalf("SetParameter(left_delay): %v", err)
	}
	status, _ = g.Status()
	if _, ok := status["bpm"]; ok {
		t.Fatalf("bpm must disappear after a manual delay change: %v", status)
	}
}

func TestConfigBPMOverridesDelays(t *testing.T) {
	bpm := 100.0
	g := newTestGateway(t, func(c *Config) { c.StereoDelay.BPM = &bpm })

	cfg, err := g.Config()
	if err != nil {
		t.Fatalf("Config: %v", err)
	}
	if cfg.StereoDelay.BPM == nil || *cfg.StereoDelay.BPM != 100 {
		t.Fatalf("bpm = %v", cfg.StereoDelay.BPM)
	}
	if !core.NearlyEqual(cfg.StereoDelay.LeftDelay, 0.15, 1e-12) || !core.NearlyEqual(cfg.StereoDelay.RightDelay, 0.3, 1e-12) {
		t.Fatalf("delays = %v/%v, want 0.15/0.3", cfg.StereoDelay.LeftDelay, cfg.StereoDelay.RightDelay)
	}
}

func TestConfigSnapshotRoundTrip(t *testing.T) {
	g := newTestGateway(t, func(c *Config) { c.InputDevice = "hw:1"; c.SampleRate = 48000 })
	_ = g.SetParameter("feedback", 0.45)
	_ = g.SetParameterText("distortion_type", "fuzz")

	cfg, err := g.Config()
	if err != nil {
		t.Fatalf("Config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("snapshot invalid: %v", err)
	}
	if cfg.SampleRate != 48000 || cfg.InputDevice != "hw:1" {
		t.Fatalf("system fields = %+v", cfg)
	}
	if cfg.StereoDelay.Feedback != 0.45 || cfg.Distortion.Type != "fuzz" {
		t.Fatalf("snapshot = %+v", cfg)
	}

	clone, err := New(cfg)
	if err != nil {
		t.Fatalf("New(snapshot): %v", err)
	}
	a, _ := g.Status()
	b, _ := clone.Status()
	if !maps.Equal(a, b) {
		t.Fatalf("rebuilt gateway differs:\n%v\n%v", a, b)
	}
}

func TestGatewayImpulse(t *testing.T) {
	g := newTestGateway(t, cleanConfig)

	for n := range 22051 {
		in := 0.0
		if n == 0 {
			in = 1
		}
		l, r, err := g.ProcessSample(in, in)
		if err != nil {
			t.Fatalf("ProcessSample: %v", err)
		}
		want := 0.0
		if n == 22050 {
			want = 1
		}
		if l != want || r != want {
			t.Fatalf("n=%d: got (%g, %g), want %g", n, l, r, want)
		}
	}
}

func TestProcessMonoInPlaceDownmix(t *testing.T) {
	g := newTestGateway(t, func(c *Config) {
		cleanConfig(c)
		c.SampleRate = 8000
		c.BufferSize = 64
		c.StereoDelay.LeftDelay = 0.001  // 8 samples
		c.StereoDelay.RightDelay = 0.002 // 16 samples
	})

	// Larger than BufferSize to exercise scratch growth.
	buf := make([]float64, 100)
	buf[0] = 1
	if err := g.ProcessMonoInPlace(buf); err != nil {
		t.Fatalf("ProcessMonoInPlace: %v", err)
	}

	for n, v := range buf {
		want := 0.0
		if n == 8 || n == 16 {
			want = 0.5
		}
		if math.Abs(v-want) > 1e-12 {
			t.Fatalf("n=%d: got %g want %g", n, v, want)
		}
	}
}

func TestProcessBufferAndStereoInPlace(t *testing.T) {
	g := newTestGateway(t, func(c *Config) {
		cleanConfig(c)
		c.SampleRate = 8000
		c.StereoDelay.LeftDelay = 0.0005
		c.StereoDelay.RightDelay = 0.0005
	})

	frames, err := g.ProcessBuffer(nil, []float64{1, 0, 0, 0, 0})
	if err != nil {
		t.Fatalf("ProcessBuffer: %v", err)
	}
	if frames[4] != (effects.Frame{Left: 1, Right: 1}) {
		t.Fatalf("frames = %+v", frames)
	}

	if err := g.ProcessStereoInPlace(make([]float64, 2), make([]float64, 3)); err == nil {
		t.Fatal("expected length mismatch error")
	}
}

func TestStartStop(t *testing.T) {
	g := newTestGateway(t, func(c *Config) {
		cleanConfig(c)
		c.SampleRate = 8000
		c.StereoDelay.LeftDelay = 0.001
		c.StereoDelay.RightDelay = 0.001
	})

	if err := g.Stop(); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("Stop before Start: err = %v", err)
	}
	if err := g.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := g.Start(); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second Start: err = %v", err)
	}
	if running, err := g.Running(); err != nil || !running {
		t.Fatalf("Running = %v, %v", running, err)
	}
	if status, _ := g.Status(); status["is_running"] != "true" {
		t.Fatalf("is_running = %q", status["is_running"])
	}

	// Leave an impulse in the lines, then stop.
	_, _, _ = g.ProcessSample(1, 1)
	if err := g.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if status, _ := g.Status(); status["is_running"] != "false" {
		t.Fatalf("is_running = %q", status["is_running"])
	}

	for n := range 32 {
		l, r, _ := g.ProcessSample(0, 0)
		if l != 0 || r != 0 {
			t.Fatalf("n=%d: stop must clear the lines, got (%g, %g)", n, l, r)
		}
	}
}

func TestResetMatchesFresh(t *testing.T) {
	mutate := func(c *Config) {
		c.SampleRate = 8000
		c.StereoDelay.LeftDelay = 0.01
		c.StereoDelay.RightDelay = 0.02
		c.Distortion.Type = "tube"
	}
	g := newTestGateway(t, mutate)
	fresh := newTestGateway(t, mutate)

	for n := range 500 {
		_, _, _ = g.ProcessSample(math.Sin(float64(n)*0.1), 0)
	}
	if err := g.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	for n := range 500 {
		in := math.Cos(float64(n) * 0.07)
		al, ar, _ := g.ProcessSample(in, in)
		bl, br, _ := fresh.ProcessSample(in, in)
		if al != bl || ar != br {
			t.Fatalf("n=%d: reset (%g, %g) != fresh (%g, %g)", n, al, ar, bl, br)
		}
	}
}

func TestPanicPoisonsGateway(t *testing.T) {
	g := newTestGateway(t, nil)

	err := g.locked(func(*effects.StereoDelay) { panic("corrupt state") })
	if !errors.Is(err, ErrLockAcquisition) {
		t.Fatalf("err = %v, want ErrLockAcquisition", err)
	}

	if _, err := g.Status(); !errors.Is(err, ErrLockAcquisition) {
		t.Fatalf("Status err = %v", err)
	}
	if _, _, err := g.ProcessSample(0, 0); !errors.Is(err, ErrLockAcquisition) {
		t.Fatalf("ProcessSample err = %v", err)
	}
	if err := g.SetParameter("feedback", 0.1); !errors.Is(err, ErrLockAcquisition) {
		t.Fatalf("SetParameter err = %v", err)
	}
	if err := g.SetParameter("left_delay", 1); !errors.Is(err, ErrLockAcquisition) {
		t.Fatalf("SetParameter(left_delay) err = %v", err)
	}
	if err := g.Start(); !errors.Is(err, ErrLockAcquisition) {
		t.Fatalf("Start err = %v", err)
	}
	if _, err := g.Running(); !errors.Is(err, ErrLockAcquisition) {
		t.Fatalf("Running err = %v", err)
	}
}

func TestParameterChangesAreLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	g := newTestGateway(t, nil, WithLogger(logger))

	_ = g.SetParameter("feedback", 0.5)
	_ = g.SetParameter("gain", 1)
	_ = g.Reset()

	out := buf.String()
	for _, want := range []string{
		"param=feedback old=0.300 new=0.500",
		"level=WARN msg=\"rejected parameter\" param=gain",
		"msg=\"delay buffers reset\"",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("log output missing %q:\n%s", want, out)
		}
	}
}

// Render and control run concurrently; run with -race.
func TestConcurrentRenderAndControl(t *testing.T) {
	g := newTestGateway(t, func(c *Config) { c.BufferSize = 256 })

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		buf := make([]float64, 256)
		for {
			select {
			case <-stop:
				return
			default:
			}
			for i := range buf {
				buf[i] = 0.1
			}
			if err := g.ProcessMonoInPlace(buf); err != nil {
				t.Errorf("ProcessMonoInPlace: %v", err)
				return
			}
			for _, v := range buf {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					t.Errorf("non-finite output %v", v)
					return
				}
			}
		}
	}()

	names := []string{"left_delay", "right_delay", "bpm", "feedback", "cross_feedback", "distortion_drive"}
	values := []float64{0.05, 0.2, 140, 0.6, 0.4, 0.9}

	var ctl sync.WaitGroup
	for w := range 4 {
		ctl.Add(1)
		go func() {
			defer ctl.Done()
			for i := range 200 {
				k := (i + w) % len(names)
				if err := g.SetParameter(names[k], values[k]*float64(1+i%3)/2); err != nil {
					t.Errorf("SetParameter: %v", err)
					return
				}
				if _, err := g.Status(); err != nil {
					t.Errorf("Status: %v", err)
					return
				}
			}
		}()
	}

	ctl.Wait()
	close(stop)
	wg.Wait()
}

func BenchmarkGatewayProcessMonoInPlace(b *testing.B) {
	g := newTestGateway(b, func(c *Config) { c.BufferSize = 512 })
	buf := make([]float64, 512)

	b.ReportAllocs()
	b.SetBytes(int64(len(buf) * 8))
	b.ResetTimer()

	for range b.N {
		_ = g.ProcessMonoInPlace(buf)
	}
}
