package models

import "errors"

var (
	ErrEmptyText                = errors.New("empty text")
	ErrInvalidDuration          = errors.New("invalid duration")
	ErrInfeasibleAllocation     = errors.New("infeasible allocation")
	ErrTimelineInconsistency    = errors.New("timeline inconsistency")
	ErrTranslationNotFound      = errors.New("translation not found")
	ErrAudioDurationUnavailable = errors.New("audio duration unavailable")
	ErrInvalidReference         = errors.New("invalid reference")
	ErrPrimaryTextUnavailable   = errors.New("primary text unavailable")
	ErrInvalidConfig            = errors.New("invalid config")
)

var errorKinds = []struct {
	err  error
	kind string
}{
	{ErrEmptyText, "EmptyTextError"},
	{ErrInvalidDuration, "InvalidDurationError"},
	{ErrInfeasibleAllocation, "InfeasibleAllocationError"},
	{ErrTimelineInconsistency, "TimelineInconsistencyError"},
	{ErrTranslationNotFound, "TranslationNotFound"},
	{ErrAudioDurationUnavailable, "AudioDurationUnavailable"},
	{ErrInvalidReference, "InvalidReference"},
	{ErrPrimaryTextUnavailable, "PrimaryTextUnavailable"},
	{ErrInvalidConfig, "InvalidConfig"},
}

// ErrorKind returns a stable name for err, suitable for API and CLI output.
// Errors outside the known set report "Internal".
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "Internal"
}
