package extractor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/kkdai/youtube/v2"
	"github.com/opentube/opentube/log"
	"github.com/opentube/opentube/queue"
	"github.com/opentube/opentube/stream"
	"github.com/samber/lo"
)

// ServiceYouTube is the service id stamped on items built by YouTube.
const ServiceYouTube = 0

// YouTube extracts streams with github.com/kkdai/youtube.
type YouTube struct {
	client *youtube.Client
}

// NewYouTube returns an extractor issuing requests through httpClient.
// A nil httpClient uses the library default.
func NewYouTube(httpClient *http.Client) *YouTube {
	return &YouTube{
		client: &youtube.Client{HTTPClient: httpClient},
	}
}

// Extract fetches the video behind source and resolves a locator for every adaptive format.
func (y *YouTube) Extract(ctx context.Context, source string) (*stream.Set, error) {
	video, err := y.client.GetVideoContext(ctx, source)
	if err != nil {
		return nil, wrapError(err, "fetch video")
	}

	return SetFromVideo(source, video, func(format *youtube.Format) (string, error) {
		return y.client.GetStreamURLContext(ctx, video, format)
	})
}

// Items expands source into queue items. Playlist URLs yield every entry.
func (y *YouTube) Items(ctx context.Context, source string) ([]queue.Item, error) {
	if isPlaylist(source) {
		playlist, err := y.client.GetPlaylistContext(ctx, source)
		if err != nil {
			return nil, wrapError(err, "fetch playlist")
		}

		return lo.FilterMap(playlist.Videos, func(entry *youtube.PlaylistEntry, _ int) (queue.Item, bool) {
			if entry == nil || entry.ID == "" {
				return queue.Item{}, false
			}
			return ItemFromEntry(entry), true
		}), nil
	}

	video, err := y.client.GetVideoContext(ctx, source)
	if err != nil {
		return nil, wrapError(err, "fetch video")
	}
	return []queue.Item{ItemFromVideo(source, video)}, nil
}

// Locate resolves a playable URL for one format.
type Locate func(format *youtube.Format) (string, error)

// SetFromVideo splits the adaptive formats of video into video-only and
// audio-only renditions. Muxed formats are skipped. Formats whose locator
// cannot be resolved are dropped with a warning.
func SetFromVideo(source string, video *youtube.Video, locate Locate) (*stream.Set, error) {
	if video == nil {
		return nil, fmt.Errorf("%w: empty video", ErrUnsupportedSource)
	}

	var (
		videos []stream.VideoRendition
		audios []stream.AudioRendition
	)

	for i := range video.Formats {
		format := &video.Formats[i]

		videoOnly := format.Height > 0 && format.AudioChannels == 0
		audioOnly := format.AudioChannels > 0 && format.Height == 0
		if !videoOnly && !audioOnly {
			continue
		}

		locator, err := locate(format)
		if err != nil {
			log.Warnf("skipping itag %d of %s: %s", format.ItagNo, source, err)
			continue
		}

		if videoOnly {
			videos = append(videos, stream.VideoRendition{
				Height:   format.Height,
				Locator:  locator,
				MimeType: format.MimeType,
			})
		} else {
			audios = append(audios, stream.AudioRendition{
				Bitrate:  bitrate(format),
				Locator:  locator,
				MimeType: format.MimeType,
			})
		}
	}

	return stream.NewSet(source, video.Title, video.Duration, video, videos, audios), nil
}

// ItemFromVideo builds a queue item from full video metadata.
func ItemFromVideo(source string, video *youtube.Video) queue.Item {
	streamType := queue.StreamTypeVideo
	if video.HLSManifestURL != "" && video.Duration == 0 {
		streamType = queue.StreamTypeLive
	}

	return queue.NewItem(
		ServiceYouTube,
		video.Title,
		source,
		video.Author,
		channelURL(video.ChannelID),
		int64(video.Duration.Seconds()),
		thumbnails(video.Thumbnails),
		streamType,
	)
}

// ItemFromEntry builds a queue item from a playlist entry.
func ItemFromEntry(entry *youtube.PlaylistEntry) queue.Item {
	return queue.NewItem(
		ServiceYouTube,
		entry.Title,
		"https://www.youtube.com/watch?v="+entry.ID,
		entry.Author,
		"",
		int64(entry.Duration.Seconds()),
		thumbnails(entry.Thumbnails),
		queue.StreamTypeVideo,
	)
}

func thumbnails(list youtube.Thumbnails) []queue.Thumbnail {
	return lo.Map(list, func(t youtube.Thumbnail, _ int) queue.Thumbnail {
		return queue.Thumbnail{
			URL:    t.URL,
			Width:  int(t.Width),
			Height: int(t.Height),
			Tier:   queue.TierForHeight(int(t.Height)),
		}
	})
}

func channelURL(id string) string {
	if id == "" {
		return ""
	}
	return "https://www.youtube.com/channel/" + id
}

func bitrate(format *youtube.Format) int {
	if format.Bitrate > 0 {
		return format.Bitrate
	}
	return format.AverageBitrate
}

func isPlaylist(source string) bool {
	parsed, err := url.Parse(source)
	if err != nil {
		return false
	}
	if strings.HasSuffix(parsed.Path, "/playlist") {
		return true
	}
	query := parsed.Query()
	return query.Get("list") != "" && query.Get("v") == ""
}

func wrapError(err error, action string) error {
	switch {
	case errors.Is(err, youtube.ErrLoginRequired),
		errors.Is(err, youtube.ErrVideoPrivate),
		errors.Is(err, youtube.ErrNotPlayableInEmbed):
		return fmt.Errorf("%s: %w: %w", action, ErrRestricted, err)
	case errors.Is(err, youtube.ErrInvalidPlaylist),
		errors.Is(err, youtube.ErrInvalidCharactersInVideoID),
		errors.Is(err, youtube.ErrVideoIDMinLength):
		return fmt.Errorf("%s: %w: %w", action, ErrUnsupportedSource, err)
	}

	var statusErr *youtube.ErrPlayabiltyStatus
	if errors.As(err, &statusErr) {
		return fmt.Errorf("%s: %w: %w", action, ErrRestricted, err)
	}

	return fmt.Errorf("%s: %w", action, err)
}
