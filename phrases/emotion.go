package phrases

import (
	"errors"
	"strings"
	"unicode/utf8"
)

var (
	// ErrEmptyEmotion is returned for blank emotion input.
	ErrEmptyEmotion = errors.New("please describe how you feel")
	// ErrEmptyPhrase is returned when there is no phrase text to copy or share.
	ErrEmptyPhrase = errors.New("phrases: empty phrase")
)

// Level grades the length of emotion input.
type Level int

const (
	LevelNormal Level = iota
	LevelWarning
	LevelDanger
)

const (
	warningAbove = 350
	dangerAbove  = 450
)

func (l Level) String() string {
	switch l {
	case LevelWarning:
		return "warning"
	case LevelDanger:
		return "danger"
	default:
		return "normal"
	}
}

// CounterLevel grades a character count: up to 350 is normal, up to 450 a
// warning, anything longer dangerous.
func CounterLevel(n int) Level {
	switch {
	case n > dangerAbove:
		return LevelDanger
	case n > warningAbove:
		return LevelWarning
	default:
		return LevelNormal
	}
}

// CountChars counts characters, not bytes.
func CountChars(text string) int {
	return utf8.RuneCountInString(text)
}

// ValidateEmotion rejects text that is empty after trimming.
func ValidateEmotion(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyEmotion
	}
	return nil
}
