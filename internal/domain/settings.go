package domain

import (
	"fmt"
	"strings"
)

// AspectRatio is the output frame shape requested from the provider.
type AspectRatio string

const (
	AspectRatioLandscape AspectRatio = "16:9"
	AspectRatioPortrait  AspectRatio = "9:16"
)

// Settings holds the user-adjustable generation options.
type Settings struct {
	AspectRatio AspectRatio `json:"aspectRatio"`
}

// DefaultSettings returns the settings used when nothing valid is persisted.
func DefaultSettings() Settings {
	return Settings{AspectRatio: AspectRatioLandscape}
}

// ParseAspectRatio accepts only the enumerated ratios.
func ParseAspectRatio(v string) (AspectRatio, error) {
	switch AspectRatio(strings.TrimSpace(v)) {
	case AspectRatioLandscape:
		return AspectRatioLandscape, nil
	case AspectRatioPortrait:
		return AspectRatioPortrait, nil
	default:
		return "", fmt.Errorf("aspect ratio %q: %w", v, ErrInvalidSetting)
	}
}

// CoerceAspectRatio maps anything other than portrait to landscape.
func CoerceAspectRatio(v string) AspectRatio {
	if AspectRatio(strings.TrimSpace(v)) == AspectRatioPortrait {
		return AspectRatioPortrait
	}
	return AspectRatioLandscape
}

// Normalize returns a copy whose fields are guaranteed to be allowed values.
func (s Settings) Normalize() Settings {
	return Settings{AspectRatio: CoerceAspectRatio(string(s.AspectRatio))}
}
