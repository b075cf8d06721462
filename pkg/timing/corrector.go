// Package timing detects and repairs broken tick rates in legacy
// animation clips. Old exporters routinely wrote keyframe times against
// one tick rate while declaring another, producing clips that play
// thousands of times too fast or too slow.
package timing

import (
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/modelworks/x2scene/pkg/scene"
)

const (
	// Plausible playback duration bounds in seconds.
	minReasonableDuration = 0.05
	maxReasonableDuration = 600.0

	// Corrections below this error are considered lossless.
	timingTolerance = 0.1

	// Keyframe rescaling is skipped when the scale factor is this close
	// to identity.
	scaleTolerance = 0.01
)

// commonTickRates are the rates legacy exporters are known to emit,
// ordered DirectX rates first.
var commonTickRates = []float32{
	160,   // alternative DirectX rate
	1000,  // millisecond based
	2400,  // half of default
	4800,  // DirectX default
	9600,  // double default
	30,    // frame based
	60,    // frame based
	24,    // film standard
	25,    // PAL standard
	29.97, // NTSC standard
}

// Analysis is the outcome of tick-rate detection for one clip.
type Analysis struct {
	DetectedTicksPerSecond float32
	Confidence             float32
	Method                 string
	Candidates             []float32
}

// CorrectionResult records what a correction did to one clip.
type CorrectionResult struct {
	ClipName                 string
	OriginalDurationSeconds  float32
	CorrectedDurationSeconds float32
	DetectedTicksPerSecond   float32
	TimingErrorSeconds       float32
	IsValid                  bool
	Reason                   string
}

// Report aggregates a batch correction run.
type Report struct {
	Results          []CorrectionResult
	SuccessCount     int
	FailureCount     int
	MeanErrorSeconds float32
}

// Corrector analyzes and repairs clip tick rates.
type Corrector struct {
	log *zap.Logger
}

// NewCorrector returns a corrector. A nil logger disables logging.
func NewCorrector(log *zap.Logger) *Corrector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Corrector{log: log}
}

// AnalyzeClip determines the most plausible tick rate for a clip without
// modifying it. An explicitly declared rate that yields a plausible
// duration wins outright; otherwise every candidate rate is scored and
// the best one is picked, defaulting to the DirectX rate.
func (c *Corrector) AnalyzeClip(clip *scene.AnimationClip) Analysis {
	if clip.KeyframeCount() == 0 {
		c.log.Warn("clip has no keyframes for timing analysis", zap.String("clip", clip.Name))
		return Analysis{
			DetectedTicksPerSecond: scene.DefaultTicksPerSecond,
			Method:                 "no keyframes, default rate",
		}
	}

	if clip.TicksPerSecond > 0 {
		durationSeconds := clip.Duration / clip.TicksPerSecond
		if reasonableDuration(durationSeconds) {
			c.log.Debug("using explicit tick rate",
				zap.String("clip", clip.Name),
				zap.Float32("ticksPerSecond", clip.TicksPerSecond))
			return Analysis{
				DetectedTicksPerSecond: clip.TicksPerSecond,
				Confidence:             0.9,
				Method:                 "explicit from animation header",
			}
		}
	}

	candidates := c.candidateRates(clip)

	best := float32(scene.DefaultTicksPerSecond)
	bestScore := float32(0)
	for _, rate := range candidates {
		if score := scoreTickRate(rate, clip.Duration); score > bestScore {
			bestScore = score
			best = rate
		}
	}

	c.log.Debug("detected tick rate",
		zap.String("clip", clip.Name),
		zap.Float32("ticksPerSecond", best),
		zap.Float32("confidence", bestScore))

	return Analysis{
		DetectedTicksPerSecond: best,
		Confidence:             bestScore,
		Method:                 detectionMethod(best, clip),
		Candidates:             candidates,
	}
}

// CorrectClip repairs a clip in place: when the detected rate disagrees
// with the declared one, the declared rate is replaced and keyframe times
// and duration are rescaled so real-time playback is preserved.
func (c *Corrector) CorrectClip(clip *scene.AnimationClip) CorrectionResult {
	result := CorrectionResult{ClipName: clip.Name}

	originalRate := clip.TicksPerSecond
	if originalRate > 0 {
		result.OriginalDurationSeconds = clip.Duration / originalRate
	}

	analysis := c.AnalyzeClip(clip)
	result.DetectedTicksPerSecond = analysis.DetectedTicksPerSecond

	if abs(originalRate-analysis.DetectedTicksPerSecond) > timingTolerance {
		c.log.Info("correcting clip tick rate",
			zap.String("clip", clip.Name),
			zap.Float32("from", originalRate),
			zap.Float32("to", analysis.DetectedTicksPerSecond))

		clip.TicksPerSecond = analysis.DetectedTicksPerSecond

		if clip.KeyframeCount() > 0 && originalRate > 0 {
			timeScale := originalRate / analysis.DetectedTicksPerSecond
			if abs(timeScale-1) > scaleTolerance {
				rescaleClip(clip, timeScale)
			}
		}
	}

	if clip.TicksPerSecond > 0 {
		result.CorrectedDurationSeconds = clip.Duration / clip.TicksPerSecond
	}
	result.TimingErrorSeconds = abs(result.OriginalDurationSeconds - result.CorrectedDurationSeconds)

	durationOK := ValidDuration(result.CorrectedDurationSeconds)
	errorOK := result.TimingErrorSeconds <= timingTolerance
	result.IsValid = durationOK && errorOK
	if !result.IsValid {
		if !durationOK {
			result.Reason = fmt.Sprintf("corrected duration %.3fs out of plausible range", result.CorrectedDurationSeconds)
		} else {
			result.Reason = fmt.Sprintf("timing error too large: %.3fs", result.TimingErrorSeconds)
		}
	}

	return result
}

// CorrectAll corrects every clip and aggregates the outcomes.
func (c *Corrector) CorrectAll(clips []*scene.AnimationClip) Report {
	report := Report{Results: make([]CorrectionResult, 0, len(clips))}

	c.log.Info("correcting clip timing", zap.Int("clips", len(clips)))

	var totalError float32
	for _, clip := range clips {
		result := c.CorrectClip(clip)
		report.Results = append(report.Results, result)
		totalError += result.TimingErrorSeconds

		if result.IsValid {
			report.SuccessCount++
		} else {
			report.FailureCount++
			c.log.Error("clip timing correction failed",
				zap.String("clip", clip.Name),
				zap.String("reason", result.Reason))
		}
	}
	if len(report.Results) > 0 {
		report.MeanErrorSeconds = totalError / float32(len(report.Results))
	}
	return report
}

// ValidDuration reports whether a playback duration in seconds is
// plausible for a real animation.
func ValidDuration(durationSeconds float32) bool {
	return durationSeconds >= minReasonableDuration && durationSeconds <= maxReasonableDuration
}

func reasonableDuration(durationSeconds float32) bool {
	return ValidDuration(durationSeconds)
}

// scoreTickRate rates how plausible a tick rate is for a clip of the
// given duration in ticks. The duration term prefers common playback
// lengths; well-known rates get a small bonus. Capped at 1.
func scoreTickRate(rate, durationTicks float32) float32 {
	if durationTicks <= 0 {
		return 0
	}

	durationSeconds := durationTicks / rate
	if !reasonableDuration(durationSeconds) {
		return 0
	}

	var durationScore float32
	switch {
	case durationSeconds >= 0.5 && durationSeconds <= 60:
		durationScore = 1.0
	case durationSeconds >= 0.1 && durationSeconds <= 300:
		durationScore = 0.7
	default:
		durationScore = 0.3
	}

	var bonus float32
	switch {
	case abs(rate-4800) < 0.1:
		bonus = 0.3
	case abs(rate-160) < 0.1:
		bonus = 0.2
	case abs(rate-1000) < 0.1:
		bonus = 0.1
	}

	return min32(1, durationScore+bonus)
}

// candidateRates is the common rate list plus a rate derived from the
// clip's own keyframe spacing, deduplicated.
func (c *Corrector) candidateRates(clip *scene.AnimationClip) []float32 {
	candidates := make([]float32, len(commonTickRates))
	copy(candidates, commonTickRates)

	if clip.KeyframeCount() > 0 {
		derived := rateFromKeyframes(clip)
		seen := false
		for _, rate := range candidates {
			if rate == derived {
				seen = true
				break
			}
		}
		if !seen {
			candidates = append(candidates, derived)
		}
	}
	return candidates
}

// rateFromKeyframes infers a rate from keyframe spacing: if the median
// interval matches a whole-frame step at a standard frame rate against
// the DirectX base, the base rate is the answer.
func rateFromKeyframes(clip *scene.AnimationClip) float32 {
	times := keyframeTimes(clip)
	if len(times) < 2 {
		return scene.DefaultTicksPerSecond
	}

	intervals := make([]float32, 0, len(times)-1)
	for i := 1; i < len(times); i++ {
		intervals = append(intervals, times[i]-times[i-1])
	}

	medianInterval := median(intervals)
	for _, fps := range []float32{24, 25, 30, 60} {
		expected := float32(scene.DefaultTicksPerSecond) / fps
		if abs(medianInterval-expected) < expected*0.1 {
			return scene.DefaultTicksPerSecond
		}
	}
	return scene.DefaultTicksPerSecond
}

// keyframeTimes collects keyframe times in track order: the flat track
// first, then each bone track sorted by bone name.
func keyframeTimes(clip *scene.AnimationClip) []float32 {
	times := make([]float32, 0, clip.KeyframeCount())
	for _, k := range clip.Keyframes {
		times = append(times, k.Time)
	}

	bones := make([]string, 0, len(clip.BoneKeyframes))
	for name := range clip.BoneKeyframes {
		bones = append(bones, name)
	}
	sort.Strings(bones)
	for _, name := range bones {
		for _, k := range clip.BoneKeyframes[name] {
			times = append(times, k.Time)
		}
	}
	return times
}

// rescaleClip multiplies every keyframe time and the duration by scale.
func rescaleClip(clip *scene.AnimationClip, scale float32) {
	for i := range clip.Keyframes {
		clip.Keyframes[i].Time *= scale
	}
	for name, keys := range clip.BoneKeyframes {
		for i := range keys {
			keys[i].Time *= scale
		}
		clip.BoneKeyframes[name] = keys
	}
	clip.Duration *= scale
}

func detectionMethod(rate float32, clip *scene.AnimationClip) string {
	switch {
	case abs(rate-4800) < 0.1:
		return fmt.Sprintf("detected rate %g ticks/sec (DirectX default)", rate)
	case abs(rate-clip.TicksPerSecond) < 0.1:
		return fmt.Sprintf("detected rate %g ticks/sec (from animation header)", rate)
	default:
		return fmt.Sprintf("detected rate %g ticks/sec (from duration analysis)", rate)
	}
}

func median(values []float32) float32 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float32, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func abs(v float32) float32 {
	return float32(math.Abs(float64(v)))
}

func min32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}
