// Package youtube proxies the uploads of one channel from the YouTube Data API.
package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sachtalks/sachtalks-api/internal/config"
	"github.com/sachtalks/sachtalks-api/pkg/apperrors"
	"github.com/sachtalks/sachtalks-api/pkg/metrics"
)

// MaxResults is the single page fetched from the uploads playlist.
const MaxResults = 50

type Video struct {
	VideoID     string `json:"videoId"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Thumbnail   string `json:"thumbnail"`
	PublishedAt string `json:"publishedAt"`
	ViewCount   string `json:"viewCount,omitempty"`
	Duration    string `json:"duration,omitempty"`
}

// Source yields the channel's videos.
type Source interface {
	Videos(ctx context.Context) ([]Video, error)
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type thumbnail struct {
	URL string `json:"url"`
}

type channelsResponse struct {
	Items []struct {
		ContentDetails struct {
			RelatedPlaylists struct {
				Uploads string `json:"uploads"`
			} `json:"relatedPlaylists"`
		} `json:"contentDetails"`
	} `json:"items"`
	Error *apiError `json:"error"`
}

type playlistItemsResponse struct {
	Items []struct {
		ContentDetails *struct {
			VideoID string `json:"videoId"`
		} `json:"contentDetails"`
		Snippet *struct {
			Title       *string `json:"title"`
			Description string  `json:"description"`
			PublishedAt string  `json:"publishedAt"`
			Thumbnails  struct {
				Maxres *thumbnail `json:"maxres"`
				High   *thumbnail `json:"high"`
				Medium *thumbnail `json:"medium"`
			} `json:"thumbnails"`
		} `json:"snippet"`
	} `json:"items"`
	Error *apiError `json:"error"`
}

type videosResponse struct {
	Items []struct {
		ID         string `json:"id"`
		Statistics struct {
			ViewCount string `json:"viewCount"`
		} `json:"statistics"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
	} `json:"items"`
	Error *apiError `json:"error"`
}

// Client calls channels.list, playlistItems.list and videos.list in sequence. It never retries.
type Client struct {
	cfg  config.YouTubeConfig
	http *http.Client
	now  func() time.Time
}

func NewClient(cfg config.YouTubeConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.googleapis.com/youtube/v3"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, http: &http.Client{Timeout: timeout}, now: time.Now}
}

func (c *Client) Videos(ctx context.Context) ([]Video, error) {
	if c.cfg.APIKey == "" {
		return nil, apperrors.Configuration("YouTube API key is not configured on the server. Please set YOUTUBE_API_KEY.")
	}
	if c.cfg.ChannelID == "" {
		return nil, apperrors.Configuration("YouTube channel ID is not configured on the server. Please set YOUTUBE_CHANNEL_ID.")
	}

	var ch channelsResponse
	if err := c.get(ctx, "channels", url.Values{"part": {"contentDetails"}, "id": {c.cfg.ChannelID}}, &ch, &ch.Error); err != nil {
		return nil, err
	}
	uploads := ""
	if len(ch.Items) > 0 {
		uploads = ch.Items[0].ContentDetails.RelatedPlaylists.Uploads
	}
	if uploads == "" {
		return nil, apperrors.NotFound("Channel uploads playlist not found. Please verify the channel ID and that the channel has uploaded videos.")
	}

	var pl playlistItemsResponse
	params := url.Values{"part": {"snippet,contentDetails"}, "playlistId": {uploads}, "maxResults": {fmt.Sprint(MaxResults)}}
	if err := c.get(ctx, "playlistItems", params, &pl, &pl.Error); err != nil {
		return nil, err
	}
	if len(pl.Items) == 0 {
		return []Video{}, nil
	}

	ids := make([]string, 0, len(pl.Items))
	for _, it := range pl.Items {
		if it.ContentDetails != nil && it.ContentDetails.VideoID != "" {
			ids = append(ids, it.ContentDetails.VideoID)
		}
	}
	var vs videosResponse
	if err := c.get(ctx, "videos", url.Values{"part": {"statistics,contentDetails"}, "id": {strings.Join(ids, ",")}}, &vs, &vs.Error); err != nil {
		return nil, err
	}
	type stats struct{ views, duration string }
	byID := make(map[string]stats, len(vs.Items))
	for _, v := range vs.Items {
		if v.ID != "" {
			byID[v.ID] = stats{v.Statistics.ViewCount, v.ContentDetails.Duration}
		}
	}

	out := make([]Video, 0, len(pl.Items))
	for _, it := range pl.Items {
		if it.ContentDetails == nil || it.ContentDetails.VideoID == "" || it.Snippet == nil {
			continue
		}
		sn := it.Snippet
		v := Video{
			VideoID:     it.ContentDetails.VideoID,
			Title:       "Untitled video",
			Description: sn.Description,
			Thumbnail:   pickThumbnail(sn.Thumbnails.Maxres, sn.Thumbnails.High, sn.Thumbnails.Medium),
			PublishedAt: sn.PublishedAt,
		}
		if sn.Title != nil {
			v.Title = *sn.Title
		}
		if v.PublishedAt == "" {
			v.PublishedAt = c.now().UTC().Format("2006-01-02T15:04:05.000Z07:00")
		}
		if s, ok := byID[v.VideoID]; ok {
			v.ViewCount, v.Duration = s.views, s.duration
		}
		out = append(out, v)
	}
	return out, nil
}

// pickThumbnail returns the first non-empty URL in preference order.
func pickThumbnail(tiers ...*thumbnail) string {
	for _, t := range tiers {
		if t != nil && t.URL != "" {
			return t.URL
		}
	}
	return ""
}

// get fetches endpoint and decodes into out. apiErr must point at out's error field.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out interface{}, apiErr **apiError) error {
	params.Set("key", c.cfg.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/"+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return apperrors.Configuration("invalid YouTube base URL: %v", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.YouTubeRequests.WithLabelValues(endpoint, "error").Inc()
		return apperrors.Upstream(err, "YouTube %s.list request failed", endpoint)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.YouTubeRequests.WithLabelValues(endpoint, "error").Inc()
		return apperrors.Upstream(nil, "YouTube %s.list request failed with status %d", endpoint, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		metrics.YouTubeRequests.WithLabelValues(endpoint, "error").Inc()
		return apperrors.Upstream(err, "YouTube %s.list returned an unreadable body", endpoint)
	}
	if e := *apiErr; e != nil {
		metrics.YouTubeRequests.WithLabelValues(endpoint, "api_error").Inc()
		msg := e.Message
		if msg == "" {
			msg = fmt.Sprintf("Unknown error from YouTube %s.list API.", endpoint)
		}
		return apperrors.Upstream(nil, "%s", msg)
	}
	metrics.YouTubeRequests.WithLabelValues(endpoint, "success").Inc()
	return nil
}
