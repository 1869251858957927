package control

import (
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"sync"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-stereodelay/dsp/core"
	"github.com/cwbudde/algo-stereodelay/dsp/effects"
	"github.com/cwbudde/algo-stereodelay/dsp/tempo"
)

// Option configures a Gateway.
type Option func(*gatewayOptions)

type gatewayOptions struct {
	logger *slog.Logger
	rng    *rand.Rand
}

// WithLogger sets the structured logger. Parameter changes are logged at
// Debug, lifecycle events at Info and rejected names at Warn.
func WithLogger(logger *slog.Logger) Option {
	return func(o *gatewayOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithRand injects the random source used by the bit-crush distortion.
func WithRand(rng *rand.Rand) Option {
	return func(o *gatewayOptions) {
		o.rng = rng
	}
}

// Gateway serializes the render path and asynchronous control callers onto
// one StereoDelay. Every exported method is safe for concurrent use.
//
// Render methods never allocate while the caller stays within BufferSize
// frames. Delay-time changes allocate new line storage before taking the
// lock, so a render call never waits on an allocation.
type Gateway struct {
	mu       sync.Mutex
	engine   *effects.StereoDelay
	running  bool
	poisoned bool

	sampleRate   int
	bufferSize   int
	inputDevice  string
	outputDevice string

	scratchL []float64
	scratchR []float64

	logger *slog.Logger
}

// New validates cfg and builds the engine it describes.
func New(cfg Config, opts ...Option) (*Gateway, error) {
	o := gatewayOptions{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var distOpts []effects.DistortionOption
	if o.rng != nil {
		distOpts = append(distOpts, effects.WithDistortionRand(o.rng))
	}

	engine, err := effects.NewStereoDelay(float64(cfg.SampleRate), cfg.engineOptions(distOpts...)...)
	if err != nil {
		return nil, fmt.Errorf("control: %w", err)
	}
	if cfg.StereoDelay.BPM != nil {
		engine.SetTempo(*cfg.StereoDelay.BPM)
	}

	g := &Gateway{
		engine:       engine,
		sampleRate:   cfg.SampleRate,
		bufferSize:   cfg.BufferSize,
		inputDevice:  cfg.InputDevice,
		outputDevice: cfg.OutputDevice,
		scratchL:     make([]float64, cfg.BufferSize),
		scratchR:     make([]float64, cfg.BufferSize),
		logger:       o.logger,
	}

	g.logger.Info("stereo delay ready",
		slog.Int("sample_rate", cfg.SampleRate),
		slog.Int("buffer_size", cfg.BufferSize),
		slog.String("info", engine.Info()))

	return g, nil
}

// locked runs fn with the engine lock held. A panic in fn poisons the
// gateway.
func (g *Gateway) locked(fn func(e *effects.StereoDelay)) (err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.poisoned {
		return ErrLockAcquisition
	}

	defer func() {
		if r := recover(); r != nil {
			g.poisoned = true
			err = fmt.Errorf("%w: %v", ErrLockAcquisition, r)
		}
	}()

	fn(g.engine)

	return nil
}

// SetParameter sets a parameter by wire name. Booleans are true above 0.5.
// An unknown name returns an *InvalidParameterError and leaves the engine
// untouched; known values are clamped into range.
func (g *Gateway) SetParameter(name string, value float64) error {
	p, err := NamedParam(name, value)
	if err != nil {
		g.logger.Warn("rejected parameter", slog.String("param", name), slog.Float64("value", value))
		return err
	}
	return g.Apply(p)
}

// SetParameterText is SetParameter for text values.
func (g *Gateway) SetParameterText(name, text string) error {
	p, err := ParseParam(name, text)
	if err != nil {
		g.logger.Warn("rejected parameter", slog.String("param", name), slog.String("value", text))
		return err
	}
	return g.Apply(p)
}

// Apply applies one parameter change atomically.
func (g *Gateway) Apply(p Param) error {
	var (
		leftBuf, rightBuf []float64
		err               error
	)

	switch p.ID {
	case LeftDelay:
		leftBuf, err = g.prepareLine(p.Value, (*effects.StereoDelay).LeftCapacity)
	case RightDelay:
		rightBuf, err = g.prepareLine(p.Value, (*effects.StereoDelay).RightCapacity)
	case BPM:
		left, right := tempo.StereoDelays(core.Clamp(p.Value, tempo.MinBPM, tempo.MaxBPM))
		if leftBuf, err = g.prepareLine(left, (*effects.StereoDelay).LeftCapacity); err == nil {
			rightBuf, err = g.prepareLine(right, (*effects.StereoDelay).RightCapacity)
		}
	case Feedback, WetMix, PingPong, StereoWidth, CrossFeedback, DistortionEnabled,
		DistortionType, DistortionDrive, DistortionMix, DistortionFeedbackIntensity:
	default:
		g.logger.Warn("rejected parameter", slog.String("param", p.ID.String()))
		return unknownParameter(p.ID.String(), p.Value)
	}
	if err != nil {
		return err
	}

	var before, after string
	err = g.locked(func(e *effects.StereoDelay) {
		before = statusValue(e, p.ID)
		apply(e, p, leftBuf, rightBuf)
		after = statusValue(e, p.ID)
	})
	if err != nil {
		return err
	}

	g.logger.Debug("parameter changed",
		slog.String("param", p.ID.String()),
		slog.String("old", before),
		slog.String("new", after))

	return nil
}

// prepareLine allocates storage for a delay of seconds when it needs a
// different capacity than the line currently has. It returns nil when no
// resize is needed.
func (g *Gateway) prepareLine(seconds float64, capacity func(*effects.StereoDelay) int) ([]float64, error) {
	var current int
	if err := g.locked(func(e *effects.StereoDelay) { current = capacity(e) }); err != nil {
		return nil, err
	}

	n := effects.DelayCapacity(seconds, float64(g.sampleRate))
	if n == current {
		return nil, nil
	}
	return make([]float64, n), nil
}

func apply(e *effects.StereoDelay, p Param, leftBuf, rightBuf []float64) {
	switch p.ID {
	case LeftDelay:
		e.SetLeftDelayWith(p.Value, leftBuf)
	case RightDelay:
		e.SetRightDelayWith(p.Value, rightBuf)
	case BPM:
		e.SetTempoWith(p.Value, leftBuf, rightBuf)
	case Feedback:
		e.SetFeedback(p.Value)
	case WetMix:
		e.SetWetMix(p.Value)
	case PingPong:
		e.SetPingPong(isTrue(p.Value))
	case StereoWidth:
		e.SetStereoWidth(p.Value)
	case CrossFeedback:
		e.SetCrossFeedback(p.Value)
	case DistortionEnabled:
		e.SetDistortionEnabled(isTrue(p.Value))
	case DistortionType:
		e.SetDistortionType(p.Type)
	case DistortionDrive:
		e.SetDistortionDrive(p.Value)
	case DistortionMix:
		e.SetDistortionMix(p.Value)
	case DistortionFeedbackIntensity:
		e.SetDistortionFeedbackIntensity(p.Value)
	}
}

func statusValue(e *effects.StereoDelay, id ID) string {
	cf := e.CrossFeedbackProcessor()
	dist := cf.Distortion()

	switch id {
	case LeftDelay:
		return formatFloat(e.LeftDelay())
	case RightDelay:
		return formatFloat(e.RightDelay())
	case BPM:
		if bpm, ok := e.Tempo(); ok {
			return strconv.FormatFloat(bpm, 'f', 0, 64)
		}
		return ""
	case Feedback:
		return formatFloat(e.Feedback())
	case WetMix:
		return formatFloat(e.WetMix())
	case PingPong:
		return strconv.FormatBool(e.PingPong())
	case StereoWidth:
		return formatFloat(e.StereoWidth())
	case CrossFeedback:
		return formatFloat(e.CrossFeedback())
	case DistortionEnabled:
		return strconv.FormatBool(cf.Enabled())
	case DistortionType:
		return dist.Type().String()
	case DistortionDrive:
		return formatFloat(dist.Drive())
	case DistortionMix:
		return formatFloat(dist.Mix())
	case DistortionFeedbackIntensity:
		return formatFloat(cf.Intensity())
	default:
		return ""
	}
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', 3, 64) }

// Status returns a snapshot of every parameter keyed by wire name, plus
// sample_rate, buffer_size and is_running. bpm is present only while the
// delay times follow a tempo.
func (g *Gateway) Status() (map[string]string, error) {
	status := make(map[string]string, int(numIDs)+3)

	err := g.locked(func(e *effects.StereoDelay) {
		for _, id := range IDs() {
			if v := statusValue(e, id); v != "" {
				status[id.String()] = v
			}
		}
		status["sample_rate"] = strconv.Itoa(g.sampleRate)
		status["buffer_size"] = strconv.Itoa(g.bufferSize)
		status["is_running"] = strconv.FormatBool(g.running)
	})
	if err != nil {
		return nil, err
	}

	return status, nil
}

// Config returns the current parameter values as a Config.
func (g *Gateway) Config() (Config, error) {
	var cfg Config

	err := g.locked(func(e *effects.StereoDelay) {
		cf := e.CrossFeedbackProcessor()
		dist := cf.Distortion()

		cfg = Config{
			SampleRate:   g.sampleRate,
			BufferSize:   g.bufferSize,
			InputDevice:  g.inputDevice,
			OutputDevice: g.outputDevice,
			StereoDelay: StereoDelayConfig{
				LeftDelay:     e.LeftDelay(),
				RightDelay:    e.RightDelay(),
				Feedback:      e.Feedback(),
				WetMix:        e.WetMix(),
				PingPong:      e.PingPong(),
				StereoWidth:   e.StereoWidth(),
				CrossFeedback: e.CrossFeedback(),
			},
			Distortion: DistortionConfig{
				Enabled:           cf.Enabled(),
				Type:              dist.Type().String(),
				Drive:             dist.Drive(),
				Mix:               dist.Mix(),
				FeedbackIntensity: cf.Intensity(),
			},
		}
		if bpm, ok := e.Tempo(); ok {
			cfg.StereoDelay.BPM = &bpm
		}
	})

	return cfg, err
}

// ProcessSample processes one stereo sample pair.
func (g *Gateway) ProcessSample(left, right float64) (outL, outR float64, err error) {
	err = g.locked(func(e *effects.StereoDelay) {
		outL, outR = e.ProcessStereo(left, right)
	})
	return outL, outR, err
}

// ProcessBuffer feeds each mono sample to both channels and appends the
// stereo output to dst.
func (g *Gateway) ProcessBuffer(dst []effects.Frame, input []float64) ([]effects.Frame, error) {
	err := g.locked(func(e *effects.StereoDelay) {
		dst = e.ProcessBuffer(dst, input)
	})
	return dst, err
}

// ProcessStereoInPlace processes paired channel buffers in place.
func (g *Gateway) ProcessStereoInPlace(left, right []float64) error {
	var perr error
	if err := g.locked(func(e *effects.StereoDelay) {
		perr = e.ProcessStereoInPlace(left, right)
	}); err != nil {
		return err
	}
	return perr
}

// ProcessMonoInPlace renders buf through both channels and writes the
// (left+right)/2 downmix back into buf.
func (g *Gateway) ProcessMonoInPlace(buf []float64) error {
	return g.locked(func(e *effects.StereoDelay) {
		g.scratchL = core.EnsureLen(g.scratchL, len(buf))
		g.scratchR = core.EnsureLen(g.scratchR, len(buf))
		l, r := g.scratchL, g.scratchR

		for i, x := range buf {
			l[i], r[i] = e.ProcessStereo(x, x)
		}

		vecmath.AddBlockInPlace(l, r)
		vecmath.ScaleBlock(buf, l, 0.5)
	})
}

// Reset clears both delay lines and the distortion state.
func (g *Gateway) Reset() error {
	if err := g.locked((*effects.StereoDelay).Reset); err != nil {
		return err
	}
	g.logger.Info("delay buffers reset")
	return nil
}

// Start marks the gateway as running.
func (g *Gateway) Start() error {
	var already bool
	if err := g.locked(func(*effects.StereoDelay) {
		already = g.running
		g.running = true
	}); err != nil {
		return err
	}
	if already {
		return ErrAlreadyRunning
	}
	g.logger.Info("processing started")
	return nil
}

// Stop marks the gateway as stopped and clears the delay lines so no
// feedback tail survives into the next Start.
func (g *Gateway) Stop() error {
	var wasRunning bool
	if err := g.locked(func(e *effects.StereoDelay) {
		wasRunning = g.running
		if wasRunning {
			g.running = false
			e.Reset()
		}
	}); err != nil {
		return err
	}
	if !wasRunning {
		return ErrNotRunning
	}
	g.logger.Info("processing stopped")
	return nil
}

// Running reports whether Start was called without a matching Stop.
func (g *Gateway) Running() (bool, error) {
	var running bool
	err := g.locked(func(*effects.StereoDelay) { running = g.running })
	return running, err
}

// Info returns the engine summary strings.
func (g *Gateway) Info() (string, error) {
	var info string
	err := g.locked(func(e *effects.StereoDelay) {
		info = e.Info() + "\n" + e.StereoInfo()
	})
	return info, err
}
