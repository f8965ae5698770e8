package language

import (
	"context"
	"strings"

	"github.com/voicenote/core/internal/recognizer"
)

// Lock is the per-session language-lock value. Empty string means unset.
type Lock string

const (
	LockUnset  Lock = ""
	LockEn     Lock = "en"
	LockTr     Lock = "tr"
	LockAutoEn Lock = "auto_en"
	LockAutoTr Lock = "auto_tr"
)

// Mode is the user-requested recording language mode.
type Mode string

const (
	ModeAuto Mode = "auto"
	ModeEn   Mode = "en"
	ModeTr   Mode = "tr"
)

// detectionThreshold is the minimum detectedProbability required to
// force a re-run with the detected language, per §4.5.
const detectionThreshold = 0.45

// lockThreshold is the minimum detectedProbability required to persist
// a language lock after a successful forced re-run, per §4.5.
const lockThreshold = 0.80

// normalize collapses auto_en/auto_tr to en/tr; anything else passes through.
func normalize(l Lock) string {
	switch l {
	case LockAutoEn:
		return "en"
	case LockAutoTr:
		return "tr"
	default:
		return string(l)
	}
}

// EffectivePartialLanguage implements §4.5's partial policy.
func EffectivePartialLanguage(lock Lock, mode Mode) string {
	switch lock {
	case LockEn, LockTr, LockAutoEn, LockAutoTr:
		return normalize(lock)
	}
	if mode == ModeEn || mode == ModeTr {
		return string(mode)
	}
	return recognizer.AutoLanguage
}

// PartialOutcome is the result of one partial-tick inference, including
// any lock update to apply to the session.
type PartialOutcome struct {
	Text    string
	NewLock Lock // LockUnset if no change
}

// ResolvePartial runs the partial policy's post-inference lock-learning
// step: when an "auto" tick returned empty text but the recognizer
// detected a confident language, re-run forced to that language and
// possibly lock onto it for subsequent ticks.
func ResolvePartial(
	ctx context.Context,
	rec recognizer.Recognizer,
	wavPath string,
	requestedLanguage string,
	first recognizer.Result,
) PartialOutcome {
	if requestedLanguage != recognizer.AutoLanguage || first.Text != "" {
		return PartialOutcome{Text: first.Text}
	}
	if !isSupportedDetected(first.DetectedLanguage) || first.DetectedProbability < detectionThreshold {
		return PartialOutcome{Text: first.Text}
	}

	forced, err := rec.Transcribe(ctx, wavPath, first.DetectedLanguage)
	if err != nil || strings.TrimSpace(forced.Text) == "" {
		return PartialOutcome{Text: first.Text}
	}

	outcome := PartialOutcome{Text: forced.Text}
	if first.DetectedProbability >= lockThreshold {
		if first.DetectedLanguage == "en" {
			outcome.NewLock = LockAutoEn
		} else {
			outcome.NewLock = LockAutoTr
		}
	}
	return outcome
}

// FinalOutcome is the result of the final (stop-time) transcription,
// including the resolved language lock to report in the `final` event.
type FinalOutcome struct {
	Text         string
	ResolvedLock Lock
}

// ModeFromLock maps a stop call's requested languageLock (constrained to
// auto/en/tr at the control-call boundary) to the Mode ResolveFinal
// expects. LockUnset and the auto_* evolved-lock values have no direct
// stop-request equivalent and fall back to auto.
func ModeFromLock(lock Lock) Mode {
	switch lock {
	case LockEn:
		return ModeEn
	case LockTr:
		return ModeTr
	default:
		return ModeAuto
	}
}

// ResolveFinal implements §4.5's final policy given the user-requested
// mode at stop.
func ResolveFinal(ctx context.Context, rec recognizer.Recognizer, wavPath string, mode Mode) (FinalOutcome, error) {
	runLanguage := string(mode)

	first, err := rec.Transcribe(ctx, wavPath, runLanguage)
	if err != nil {
		return FinalOutcome{}, err
	}

	if mode != ModeAuto {
		return FinalOutcome{Text: first.Text, ResolvedLock: Lock(mode)}, nil
	}

	if strings.TrimSpace(first.Text) != "" {
		if isSupportedDetected(first.DetectedLanguage) && first.DetectedProbability >= detectionThreshold {
			return FinalOutcome{Text: first.Text, ResolvedLock: lockFor(first.DetectedLanguage)}, nil
		}
		return FinalOutcome{Text: first.Text, ResolvedLock: LockUnset}, nil
	}

	// Empty under auto: try a confident forced re-run first.
	if isSupportedDetected(first.DetectedLanguage) && first.DetectedProbability >= detectionThreshold {
		forced, err := rec.Transcribe(ctx, wavPath, first.DetectedLanguage)
		if err != nil {
			return FinalOutcome{}, err
		}
		if strings.TrimSpace(forced.Text) != "" {
			return FinalOutcome{Text: forced.Text, ResolvedLock: lockFor(first.DetectedLanguage)}, nil
		}
	}

	// Otherwise run both candidates and pick by quality score; tie -> en.
	enResult, err := rec.Transcribe(ctx, wavPath, "en")
	if err != nil {
		return FinalOutcome{}, err
	}
	trResult, err := rec.Transcribe(ctx, wavPath, "tr")
	if err != nil {
		return FinalOutcome{}, err
	}

	enScore := QualityScore(enResult.Text, "en")
	trScore := QualityScore(trResult.Text, "tr")
	if trScore > enScore {
		return FinalOutcome{Text: trResult.Text, ResolvedLock: LockAutoTr}, nil
	}
	return FinalOutcome{Text: enResult.Text, ResolvedLock: LockAutoEn}, nil
}

func isSupportedDetected(lang string) bool {
	return lang == "en" || lang == "tr"
}

func lockFor(lang string) Lock {
	if lang == "en" {
		return LockAutoEn
	}
	return LockAutoTr
}
