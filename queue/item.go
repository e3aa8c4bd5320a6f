// Package queue implements the play queue: an ordered list of playable items with a cursor,
// safe for concurrent use and encodable for hand-off between processes.
package queue

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/samber/mo"
)

// StreamType tags how an item is delivered by the platform.
type StreamType string

const (
	StreamTypeVideo StreamType = "video"
	StreamTypeLive  StreamType = "live"
	StreamTypeAudio StreamType = "audio"
	StreamTypeNone  StreamType = "none"
)

// Tier is a coarse thumbnail quality bucket.
type Tier int

const (
	TierUnknown Tier = iota
	TierLow
	TierMedium
	TierHigh
)

// TierForHeight buckets a thumbnail by its pixel height.
func TierForHeight(height int) Tier {
	switch {
	case height <= 0:
		return TierUnknown
	case height < 180:
		return TierLow
	case height < 480:
		return TierMedium
	default:
		return TierHigh
	}
}

// Thumbnail is one candidate preview image.
type Thumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Tier   Tier   `json:"tier"`
}

// Item is one playable unit. It is a value and is never mutated once built.
type Item struct {
	ServiceID   int         `json:"service_id" jsonschema:"description=Identifier of the platform the item belongs to."`
	Title       string      `json:"title"`
	URL         string      `json:"url" jsonschema:"description=Canonical source URL, also the stream cache key."`
	Uploader    string      `json:"uploader,omitempty"`
	UploaderURL string      `json:"uploader_url,omitempty"`
	Duration    int64       `json:"duration" jsonschema:"description=Length in seconds. Zero for live streams."`
	Thumbnails  []Thumbnail `json:"thumbnails,omitempty"`
	StreamType  StreamType  `json:"stream_type"`
}

// NewItem builds an item, copying the thumbnail slice so the caller cannot alias it.
func NewItem(serviceID int, title, url, uploader, uploaderURL string, duration int64, thumbnails []Thumbnail, streamType StreamType) Item {
	if streamType == "" {
		streamType = StreamTypeVideo
	}
	return Item{
		ServiceID:   serviceID,
		Title:       title,
		URL:         url,
		Uploader:    uploader,
		UploaderURL: uploaderURL,
		Duration:    duration,
		Thumbnails:  append([]Thumbnail(nil), thumbnails...),
		StreamType:  streamType,
	}
}

func (i Item) String() string {
	if i.Uploader == "" {
		return i.Title
	}
	return fmt.Sprintf("%s - %s", i.Uploader, i.Title)
}

// SameStream reports whether both items point at the same source on the same service.
func (i Item) SameStream(other Item) bool {
	return i.ServiceID == other.ServiceID && i.URL == other.URL
}

// BestThumbnail picks the highest tier, then the largest area.
func (i Item) BestThumbnail() mo.Option[Thumbnail] {
	if len(i.Thumbnails) == 0 {
		return mo.None[Thumbnail]()
	}

	best := lo.MaxBy(i.Thumbnails, func(a, b Thumbnail) bool {
		if a.Tier != b.Tier {
			return a.Tier > b.Tier
		}
		return a.Width*a.Height > b.Width*b.Height
	})
	return mo.Some(best)
}

func (i Item) clone() Item {
	i.Thumbnails = append([]Thumbnail(nil), i.Thumbnails...)
	return i
}

func cloneItems(items []Item) []Item {
	return lo.Map(items, func(it Item, _ int) Item { return it.clone() })
}
