package transcript

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// YouTube caption fetching.
// Plain fetch:    watch page → ytInitialPlayerResponse → captionTracks → timedtext XML
// Extended fetch: ANDROID Innertube /player → captionTracks + videoDetails → timedtext XML

const (
	DefaultYouTubeBaseURL = "https://www.youtube.com"

	playerResponseMarker = "ytInitialPlayerResponse = "
	androidClientVersion = "20.10.38"
	androidUserAgent     = "com.google.android.youtube/" + androidClientVersion + " (Linux; U; Android 11) gzip"
)

type YouTubeConfig struct {
	BaseURL   string
	UserAgent string
}

// YouTubeProvider fetches caption tracks from YouTube, one Document per language.
type YouTubeProvider struct {
	client *resty.Client
	log    logrus.FieldLogger
}

func NewYouTubeProvider(cfg YouTubeConfig, log logrus.FieldLogger) *YouTubeProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultYouTubeBaseURL
	}
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetHeader("Accept-Language", "en-US,en;q=0.9")
	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}
	return &YouTubeProvider{
		client: client,
		log:    log.WithField("component", "youtube"),
	}
}

type playerResponse struct {
	Captions *struct {
		PlayerCaptionsTracklistRenderer struct {
			CaptionTracks []captionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
	PlayabilityStatus *struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
	VideoDetails *videoDetails `json:"videoDetails"`
}

type videoDetails struct {
	VideoID       string `json:"videoId"`
	Title         string `json:"title"`
	Author        string `json:"author"`
	LengthSeconds string `json:"lengthSeconds"`
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"` // "asr" = auto-generated
}

type timedText struct {
	Lines []struct {
		Text string `xml:",chardata"`
	} `xml:"text"`
}

type innertubeRequest struct {
	VideoID        string `json:"videoId"`
	Context        any    `json:"context"`
	RacyCheckOk    bool   `json:"racyCheckOk"`
	ContentCheckOk bool   `json:"contentCheckOk"`
}

// Fetch returns one Document per distinct caption language of the video.
func (p *YouTubeProvider) Fetch(ctx context.Context, videoRef string, opts FetchOptions) ([]Document, error) {
	videoID, ok := VideoID(videoRef)
	if !ok {
		return nil, fmt.Errorf("no YouTube video id in %q", videoRef)
	}

	var (
		player *playerResponse
		err    error
	)
	if opts.VideoInfo {
		player, err = p.playerFromInnertube(ctx, videoID)
	} else {
		player, err = p.playerFromWatchPage(ctx, videoID)
	}
	if err != nil {
		return nil, err
	}

	tracks, err := usableTracks(player)
	if err != nil {
		return nil, err
	}

	var metadata map[string]string
	if opts.VideoInfo && player.VideoDetails != nil {
		metadata = map[string]string{
			"source":         videoID,
			"title":          player.VideoDetails.Title,
			"author":         player.VideoDetails.Author,
			"length_seconds": player.VideoDetails.LengthSeconds,
		}
	}

	docs := make([]Document, 0, len(tracks))
	for _, track := range tracks {
		text, err := p.fetchTimedText(ctx, track.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("captions %s: %w", track.LanguageCode, err)
		}
		p.log.WithFields(logrus.Fields{
			"video_id": videoID,
			"language": track.LanguageCode,
			"kind":     track.Kind,
			"chars":    len(text),
		}).Debug("fetched caption track")
		docs = append(docs, Document{
			Text:     text,
			Language: track.LanguageCode,
			Metadata: cloneMetadata(metadata),
		})
	}
	return docs, nil
}

func (p *YouTubeProvider) playerFromWatchPage(ctx context.Context, videoID string) (*playerResponse, error) {
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParam("v", videoID).
		SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8").
		Get("/watch")
	if err != nil {
		return nil, fmt.Errorf("watch page: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("watch page: HTTP %d", resp.StatusCode())
	}

	body := resp.Body()
	idx := bytes.Index(body, []byte(playerResponseMarker))
	if idx < 0 {
		return nil, errors.New("ytInitialPlayerResponse not found in watch page")
	}

	// The decoder stops after the first JSON value; the trailing script is ignored.
	var player playerResponse
	dec := json.NewDecoder(bytes.NewReader(body[idx+len(playerResponseMarker):]))
	if err := dec.Decode(&player); err != nil {
		return nil, fmt.Errorf("decode ytInitialPlayerResponse: %w", err)
	}
	return &player, nil
}

func (p *YouTubeProvider) playerFromInnertube(ctx context.Context, videoID string) (*playerResponse, error) {
	reqBody := innertubeRequest{
		VideoID: videoID,
		Context: map[string]any{
			"client": map[string]any{
				"clientName":        "ANDROID",
				"clientVersion":     androidClientVersion,
				"androidSdkVersion": 30,
				"hl":                "en",
				"gl":                "US",
			},
		},
		RacyCheckOk:    true,
		ContentCheckOk: true,
	}

	var player playerResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParam("prettyPrint", "false").
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", androidUserAgent).
		SetHeader("X-Youtube-Client-Name", "3").
		SetHeader("X-Youtube-Client-Version", androidClientVersion).
		SetBody(reqBody).
		SetResult(&player).
		Post("/youtubei/v1/player")
	if err != nil {
		return nil, fmt.Errorf("innertube player: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("innertube player: HTTP %d", resp.StatusCode())
	}
	return &player, nil
}

func (p *YouTubeProvider) fetchTimedText(ctx context.Context, trackURL string) (string, error) {
	resp, err := p.client.R().SetContext(ctx).Get(trackURL)
	if err != nil {
		return "", fmt.Errorf("fetch timedtext: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("fetch timedtext: HTTP %d", resp.StatusCode())
	}
	return parseTimedText(resp.Body())
}

// parseTimedText flattens a timedtext XML document into space separated text.
func parseTimedText(body []byte) (string, error) {
	var tt timedText
	if err := xml.Unmarshal(body, &tt); err != nil {
		return "", fmt.Errorf("parse timedtext XML: %w", err)
	}
	var sb strings.Builder
	for _, line := range tt.Lines {
		text := strings.Join(strings.Fields(html.UnescapeString(line.Text)), " ")
		if text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(text)
	}
	return sb.String(), nil
}

// usableTracks keeps one track per language, preferring manual captions over
// auto-generated ones, and drops tracks that need a browser PoToken.
func usableTracks(player *playerResponse) ([]captionTrack, error) {
	if player.Captions == nil {
		if player.PlayabilityStatus != nil && player.PlayabilityStatus.Reason != "" {
			return nil, fmt.Errorf("captions unavailable: %s", player.PlayabilityStatus.Reason)
		}
		return nil, errors.New("no captions in player response")
	}
	all := player.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks
	if len(all) == 0 {
		return nil, errors.New("no caption tracks")
	}

	byLang := make(map[string]int)
	var tracks []captionTrack
	for _, t := range all {
		if strings.Contains(t.BaseURL, "&exp=xpe") {
			continue
		}
		if i, seen := byLang[t.LanguageCode]; seen {
			if tracks[i].Kind == "asr" && t.Kind != "asr" {
				tracks[i] = t
			}
			continue
		}
		byLang[t.LanguageCode] = len(tracks)
		tracks = append(tracks, t)
	}
	if len(tracks) == 0 {
		return nil, errors.New("all caption tracks require PoToken")
	}
	return tracks, nil
}

func cloneMetadata(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
