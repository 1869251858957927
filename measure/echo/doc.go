// Package echo measures the echo pattern of a stereo delay from its impulse
// response.
//
// A unit impulse is rendered through a processor on both channels. The
// resulting responses are reduced to discrete taps (time and level of each
// repeat), a per-repeat decay in dB, total energy and an FFT magnitude
// response that shows the comb structure of the feedback loop.
//
// # Usage
//
//	left, right, err := echo.Render(delay, 48000)
//	analyzer := echo.NewAnalyzer(48000)
//	taps, err := analyzer.Taps(left)
//	decay, err := analyzer.DecayPerRepeat(taps)
package echo
