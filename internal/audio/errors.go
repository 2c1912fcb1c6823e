package audio

import "codeberg.org/mutker/envirotel/internal/errors"

const (
	ErrInvalidConfig  = errors.ErrorCode("audio_invalid_config")
	ErrInvalidTone    = errors.ErrorCode("audio_invalid_tone")
	ErrPlaybackFailed = errors.ErrorCode("audio_playback_failed")
)
