package stream

import (
	"strconv"
	"strings"
	"unicode"
)

// DefaultHeight is used when a quality label cannot be parsed.
const DefaultHeight = 720

// DefaultQuality is the label form of DefaultHeight.
const DefaultQuality = "720p"

// Label formats a height as a quality label.
func Label(height int) string {
	return strconv.Itoa(height) + "p"
}

// ParseQuality reads the leading integer of a "{n}p" label.
// Unparseable or non-positive labels yield DefaultHeight.
func ParseQuality(label string) int {
	label = strings.TrimSpace(label)
	end := strings.IndexFunc(label, func(r rune) bool {
		return !unicode.IsDigit(r)
	})
	if end == -1 {
		end = len(label)
	}

	height, err := strconv.Atoi(label[:end])
	if err != nil || height <= 0 {
		return DefaultHeight
	}
	return height
}

// NormalizeQuality rewrites any label into its canonical "{n}p" form.
func NormalizeQuality(label string) string {
	return Label(ParseQuality(label))
}

// Select picks the video rendition closest in height to label and the audio
// rendition with the highest bitrate. Ties keep the first candidate.
// The result is valid only when both locators were found.
func Select(s *Set, label string) Selection {
	sel := Selection{Quality: NormalizeQuality(label)}
	if s == nil {
		return sel
	}

	target := ParseQuality(label)

	var (
		foundVideo bool
		bestDist   int
	)
	for _, v := range s.Video {
		if v.Locator == "" {
			continue
		}
		dist := abs(v.Height - target)
		if !foundVideo || dist < bestDist {
			sel.Video = v
			bestDist = dist
			foundVideo = true
		}
	}

	var foundAudio bool
	for _, a := range s.Audio {
		if a.Locator == "" {
			continue
		}
		if !foundAudio || a.Bitrate > sel.Audio.Bitrate {
			sel.Audio = a
			foundAudio = true
		}
	}

	sel.Valid = foundVideo && foundAudio
	return sel
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
