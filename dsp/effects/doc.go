// Package effects provides the delay effects and their feedback distortion.
//
// Components:
//   - Distortion: six selectable transfer functions (soft clip, hard clip,
//     tube, fuzz, bit crush, waveshaper) with drive and dry/wet mix.
//   - CrossFeedback: blends distorted and clean inter-channel feedback.
//   - StereoDelay: two delay lines with ping-pong routing, mid/side width
//     enhancement and cross-channel feedback.
//   - SimpleDelay: mono feedback delay with delay-time modulation.
//
// All effects are designed for real-time processing with zero-allocation
// hot paths. None of them are safe for concurrent use; wrap them in
// control.Gateway when render and control run on different goroutines.
package effects
