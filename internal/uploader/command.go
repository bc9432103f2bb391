package uploader

import (
	"fmt"
	"strconv"

	"github.com/Roenbaeck/hls-relay/internal/relayerr"
)

// errUnsupportedTarget is returned by buildArgs for any target other than
// "youtube" or "twitch".
type errUnsupportedTarget struct {
	target string
}

func (e *errUnsupportedTarget) Error() string {
	return fmt.Sprintf("unsupported uploader target: %q", e.target)
}

func (e *errUnsupportedTarget) Reason() relayerr.Reason { return relayerr.RUnsupportedTarget }

// buildArgs constructs the ffmpeg argument list that reads the session's
// loopback-served event playlist and relays it to the target platform,
// bit-exact for a given (playlistURL, streamKey, target, startIndex)
// quadruple so restarts are reproducible (spec.md §4.4). startIndex nil
// means "live edge"; a non-nil value replays from that playlist index via
// -live_start_index, used only for the very first start of a session.
func buildArgs(playlistURL, streamKey, target string, startIndex *int) ([]string, error) {
	args := []string{
		"-reconnect", "1",
		"-reconnect_at_eof", "1",
		"-reconnect_streamed", "1",
		"-reconnect_on_network_error", "1",
		"-reconnect_on_http_error", "4xx,5xx",
		"-reconnect_delay_max", "60",
		"-max_reload", "60",
		"-m3u8_hold_counters", "60",
		"-seg_max_retry", "60",
	}
	if startIndex != nil {
		args = append(args, "-live_start_index", strconv.Itoa(*startIndex))
	}
	args = append(args, "-copyts", "-fflags", "+igndts", "-re", "-i", playlistURL)

	switch target {
	case "youtube":
		args = append(args,
			"-c", "copy",
			"-fps_mode", "passthrough",
			"-master_pl_name", "master.m3u8",
			"-http_persistent", "1",
			"-f", "hls",
			"-hls_playlist_type", "event",
			"-hls_allow_cache", "1",
			"-method", "POST",
			fmt.Sprintf("https://a.upload.youtube.com/http_upload_hls?cid=%s&copy=0&file=master.m3u8", streamKey),
		)
	case "twitch":
		args = append(args,
			"-c:v", "libx264",
			"-preset", "veryfast",
			"-b:v", "8M",
			"-pix_fmt", "yuv420p",
			"-bufsize", "16000k",
			"-g", "60",
			"-c:a", "copy",
			"-fps_mode", "passthrough",
			"-f", "flv",
			"-rtmp_buffer", "10000",
			fmt.Sprintf("rtmp://ingest.global-contribute.live-video.net/app/%s", streamKey),
		)
	default:
		return nil, &errUnsupportedTarget{target: target}
	}
	return args, nil
}
