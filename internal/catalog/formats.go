package catalog

import (
	"strconv"
	"strings"

	"github.com/kkdai/youtube/v2"

	"github.com/iconidentify/ytmux/internal/domain"
)

// ContainerOf returns the container named by a MIME type,
// e.g. `video/mp4; codecs="avc1.640028"` -> "mp4".
func ContainerOf(mimeType string) string {
	media, _, _ := strings.Cut(mimeType, ";")
	_, sub, ok := strings.Cut(strings.TrimSpace(media), "/")
	if !ok {
		return ""
	}
	return strings.ToLower(sub)
}

// IsVideoOnly reports whether f carries video and no audio.
func IsVideoOnly(f youtube.Format) bool {
	return strings.HasPrefix(f.MimeType, "video/") && f.AudioChannels == 0
}

// IsAudioOnly reports whether f carries audio and no video.
func IsAudioOnly(f youtube.Format) bool {
	return strings.HasPrefix(f.MimeType, "audio/")
}

// VideoOnlyMP4 returns the video-only MP4 formats as encoding descriptors,
// one per itag, sorted by quality with the largest first.
func VideoOnlyMP4(formats youtube.FormatList) []domain.EncodingDescriptor {
	seen := make(map[int]bool)
	var out []domain.EncodingDescriptor
	for _, f := range formats {
		if !IsVideoOnly(f) || ContainerOf(f.MimeType) != "mp4" || seen[f.ItagNo] {
			continue
		}
		seen[f.ItagNo] = true
		out = append(out, domain.EncodingDescriptor{
			ID:           strconv.Itoa(f.ItagNo),
			QualityLabel: domain.QualityLabelFor(f.QualityLabel, f.Height),
			Container:    "mp4",
			Height:       f.Height,
		})
	}
	domain.SortByQualityDesc(out)
	return out
}

// FindByID returns the format whose itag matches id.
func FindByID(formats youtube.FormatList, id string) (*youtube.Format, bool) {
	itag, err := strconv.Atoi(strings.TrimSpace(id))
	if err != nil {
		return nil, false
	}
	for i := range formats {
		if formats[i].ItagNo == itag {
			return &formats[i], true
		}
	}
	return nil, false
}

// BestAudio returns the audio-only format with the highest bitrate,
// preferring an MP4 container when bitrates tie.
func BestAudio(formats youtube.FormatList) (*youtube.Format, bool) {
	var best *youtube.Format
	for i := range formats {
		f := &formats[i]
		if !IsAudioOnly(*f) {
			continue
		}
		if best == nil || f.Bitrate > best.Bitrate ||
			(f.Bitrate == best.Bitrate && ContainerOf(f.MimeType) == "mp4" && ContainerOf(best.MimeType) != "mp4") {
			best = f
		}
	}
	return best, best != nil
}
