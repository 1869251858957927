// Command delayinfo renders the impulse response of a configured stereo
// delay and prints its echo pattern.
//
// Usage:
//
//	delayinfo [flags]
//
// Engine flags mirror the runtime parameter names. Only flags given on the
// command line are applied; the rest keep the engine defaults.
//
// Examples:
//
//	delayinfo
//	delayinfo -bpm 120 -feedback 0.5
//	delayinfo -left-delay 0.25 -right-delay 0.375 -ping-pong=false -dist-type tube
//	delayinfo -list -bpm 96
//	delayinfo -bpm 96 -division "1/8 note"
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/cwbudde/algo-stereodelay/dsp/control"
	"github.com/cwbudde/algo-stereodelay/dsp/effects"
	"github.com/cwbudde/algo-stereodelay/dsp/tempo"
	"github.com/cwbudde/algo-stereodelay/measure/echo"
)

// engineFlags maps command-line flags to parameter wire names.
var engineFlags = map[string]string{
	"left-delay":     "left_delay",
	"right-delay":    "right_delay",
	"bpm":            "bpm",
	"feedback":       "feedback",
	"wet":            "wet_mix",
	"ping-pong":      "ping_pong",
	"width":          "stereo_width",
	"cross":          "cross_feedback",
	"dist":           "distortion_enabled",
	"dist-type":      "distortion_type",
	"drive":          "distortion_drive",
	"dist-mix":       "distortion_mix",
	"dist-intensity": "distortion_feedback_intensity",
}

func main() {
	def := control.DefaultConfig()
	sd, dc := def.StereoDelay, def.Distortion

	rate := flag.Int("rate", def.SampleRate, "sample rate in Hz")
	length := flag.Float64("length", 2, "impulse response length in seconds")
	threshold := flag.Float64("threshold", echo.DefaultThreshold, "tap detection level (linear)")
	fftSize := flag.Int("fft", 0, "FFT size for the comb response summary (power of two, 0 disables)")
	list := flag.Bool("list", false, "list note-division delay times at -bpm and exit")
	verbose := flag.Bool("v", false, "log parameter changes")
	division := flag.String("division", "", "set the left delay to this note division at -bpm (see -list)")

	flag.Float64("left-delay", sd.LeftDelay, "left delay in seconds")
	flag.Float64("right-delay", sd.RightDelay, "right delay in seconds")
	bpm := flag.Float64("bpm", 120, "tempo; when set, left = 1/4 note and right = 1/2 note")
	flag.Float64("feedback", sd.Feedback, "delay feedback [0, 0.9]")
	flag.Float64("wet", sd.WetMix, "wet mix [0, 1]")
	flag.Bool("ping-pong", sd.PingPong, "swap channel routing")
	flag.Float64("width", sd.StereoWidth, "stereo width [0, 1]")
	flag.Float64("cross", sd.CrossFeedback, "cross feedback [0, 0.5]")
	flag.Bool("dist", dc.Enabled, "enable cross-feedback distortion")
	flag.String("dist-type", dc.Type, "distortion type: "+distortionNames())
	flag.Float64("drive", dc.Drive, "distortion drive [0, 1]")
	flag.Float64("dist-mix", dc.Mix, "distortion mix [0, 1]")
	flag.Float64("dist-intensity", dc.FeedbackIntensity, "distorted share of the cross feedback [0, 1]")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: delayinfo [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Prints the echo pattern of a stereo delay configuration.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  delayinfo -bpm 120 -feedback 0.5\n")
		fmt.Fprintf(os.Stderr, "  delayinfo -dist-type bit_crush -drive 0.8\n")
		fmt.Fprintf(os.Stderr, "  delayinfo -list -bpm 96\n")
		fmt.Fprintf(os.Stderr, "  delayinfo -bpm 96 -division \"1/8 note\"\n")
	}
	flag.Parse()

	if *list {
		printDivisions(*bpm)
		return
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg := def
	cfg.SampleRate = *rate

	g, err := control.New(cfg, control.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	var applyErr error
	flag.Visit(func(f *flag.Flag) {
		name, ok := engineFlags[f.Name]
		if !ok || applyErr != nil {
			return
		}
		applyErr = g.SetParameterText(name, f.Value.String())
	})
	if applyErr == nil && *division != "" {
		applyErr = applyDivision(g, *division, *bpm)
	}
	if applyErr != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", applyErr)
		os.Exit(1)
	}

	n := int(math.Round(*length * float64(*rate)))
	proc := &gatewayProcessor{g: g}
	left, right, err := echo.Render(proc, n)
	if err == nil {
		err = proc.err
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if info, err := g.Info(); err == nil {
		fmt.Println(info)
	}
	if cfg, err := g.Config(); err == nil {
		printDelayLabels(cfg, *bpm)
	}
	fmt.Println()

	analyzer := &echo.Analyzer{SampleRate: float64(*rate), Threshold: *threshold}
	if err := printReport(analyzer, *fftSize, []channel{{"L", left}, {"R", right}}); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// gatewayProcessor adapts a Gateway to echo.StereoProcessor and keeps the
// first error.
type gatewayProcessor struct {
	g   *control.Gateway
	err error
}

func (p *gatewayProcessor) ProcessStereo(left, right float64) (float64, float64) {
	l, r, err := p.g.ProcessSample(left, right)
	if err != nil && p.err == nil {
		p.err = err
	}
	return l, r
}

func (p *gatewayProcessor) Reset() {
	if err := p.g.Reset(); err != nil && p.err == nil {
		p.err = err
	}
}

type channel struct {
	name string
	ir   []float64
}

func printReport(a *echo.Analyzer, fftSize int, channels []channel) error {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Ch\tTap\tTime [ms]\tAmplitude\tLevel [dB]\n")
	fmt.Fprintf(tw, "--\t---\t---------\t---------\t----------\n")

	type summary struct {
		taps   int
		decay  string
		energy float64
		levels echo.Levels
		ripple string
	}
	sums := make([]summary, len(channels))

	for ci, ch := range channels {
		taps, err := a.Taps(ch.ir)
		if err != nil {
			return err
		}
		for i, tap := range taps {
			fmt.Fprintf(tw, "%s\t%d\t%.1f\t%+.4f\t%.2f\n", ch.name, i+1, tap.Time*1000, tap.Amplitude, tap.Level)
		}

		s := summary{taps: len(taps), decay: "-", ripple: "-"}
		if d, err := a.DecayPerRepeat(taps); err == nil {
			s.decay = fmt.Sprintf("%.2f", d)
		}
		if s.energy, err = a.Energy(ch.ir); err != nil {
			return err
		}
		if s.levels, err = a.Levels(ch.ir); err != nil {
			return err
		}
		if fftSize > 0 {
			db, err := a.MagnitudeResponseDB(ch.ir, fftSize)
			if err != nil {
				return err
			}
			lo, hi := db[0], db[0]
			for _, v := range db {
				lo, hi = math.Min(lo, v), math.Max(hi, v)
			}
			s.ripple = fmt.Sprintf("%.2f", hi-lo)
		}
		sums[ci] = s
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	fmt.Println()
	tw = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Ch\tTaps\tDecay [dB/repeat]\tEnergy\tPeak [dB]\tRMS [dB]\tComb ripple [dB]\n")
	fmt.Fprintf(tw, "--\t----\t-----------------\t------\t---------\t--------\t----------------\n")
	for ci, ch := range channels {
		s := sums[ci]
		fmt.Fprintf(tw, "%s\t%d\t%s\t%.4f\t%.2f\t%.2f\t%s\n",
			ch.name, s.taps, s.decay, s.energy, s.levels.PeakDB, s.levels.RMSDB, s.ripple)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}

func applyDivision(g *control.Gateway, name string, bpm float64) error {
	d, ok := tempo.Lookup(name)
	if !ok {
		names := make([]string, 0, len(tempo.NoteDivisions()))
		for _, div := range tempo.NoteDivisions() {
			names = append(names, div.Name)
		}
		return fmt.Errorf("unknown division %q (expected one of: %s)", name, strings.Join(names, ", "))
	}
	return g.SetParameter("left_delay", tempo.BPMToDelaySeconds(bpm, d.Fraction))
}

// printDelayLabels names the note division each delay corresponds to, if
// any, within half a sample.
func printDelayLabels(cfg control.Config, bpm float64) {
	if cfg.StereoDelay.BPM != nil {
		bpm = *cfg.StereoDelay.BPM
	}
	eps := 0.5 / float64(cfg.SampleRate)

	for _, ch := range []struct {
		name    string
		seconds float64
	}{
		{"Left", cfg.StereoDelay.LeftDelay},
		{"Right", cfg.StereoDelay.RightDelay},
	} {
		label := "free"
		if d, ok := tempo.Match(bpm, ch.seconds, eps); ok {
			label = fmt.Sprintf("%s at %.0f bpm", d.Name, bpm)
		}
		fmt.Printf("%s delay: %.1f ms (%s)\n", ch.name, ch.seconds*1000, label)
	}
}

func printDivisions(bpm float64) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Division\tFraction\tDelay [ms]\n")
	fmt.Fprintf(tw, "--------\t--------\t----------\n")
	for _, t := range tempo.DelayTimes(bpm) {
		fmt.Fprintf(tw, "%s\t%.4f\t%.1f\n", t.Name, t.Fraction, t.Seconds*1000)
	}
	if err := tw.Flush(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "error: failed to flush output: %v\n", err)
	}
}

func distortionNames() string {
	types := effects.DistortionTypes()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.String()
	}
	return strings.Join(names, ", ")
}
