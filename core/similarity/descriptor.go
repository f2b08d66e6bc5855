package similarity

import (
	"regexp"
	"strings"

	"SampleFinder/core/audio"
)

var extensionPattern = regexp.MustCompile(`\.[^.]+$`)

// BuildDescriptor renders the canonical text descriptor of an asset.
// The output depends only on its inputs and is used both as embedding input
// and for lexical similarity, so the part order must not change.
func BuildDescriptor(filename string, tags []string, f audio.Features) string {
	parts := make([]string, 0, 5)

	parts = append(parts, strings.ToLower(extensionPattern.ReplaceAllString(filename, "")))

	if len(tags) > 0 {
		parts = append(parts, strings.Join(tags, " "))
	}

	parts = append(parts, durationBucket(f.DurationMs), loudnessBucket(f.RMS))

	if f.SpectralCentroid != nil {
		parts = append(parts, brightnessBucket(*f.SpectralCentroid))
	}

	return strings.Join(parts, " ")
}

func durationBucket(ms int64) string {
	switch {
	case ms < 500:
		return "very-short one-shot"
	case ms < 2000:
		return "short one-shot"
	case ms < 8000:
		return "medium loop"
	default:
		return "long loop"
	}
}

func loudnessBucket(rms float64) string {
	switch {
	case rms < 0.1:
		return "quiet soft"
	case rms < 0.3:
		return "medium volume"
	default:
		return "loud punchy"
	}
}

func brightnessBucket(hz float64) string {
	switch {
	case hz < 1000:
		return "dark bass low"
	case hz < 3000:
		return "mid-range warm"
	default:
		return "bright crisp high"
	}
}
