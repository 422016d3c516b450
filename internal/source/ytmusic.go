package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// ErrCredentialsRejected indicates the saved browser headers were refused by
// the service. The header file has been renamed aside so the next run fails
// fast instead of hammering the endpoint.
var ErrCredentialsRejected = errors.New("source: saved credentials rejected")

const (
	defaultEndpoint  = "https://music.youtube.com/youtubei/v1/browse"
	historyBrowseID  = "FEmusic_history"
	erroredCredsName = "erroredcreds.json"
)

// YTMusic reads the listening history feed using browser headers captured
// from an authenticated session.
type YTMusic struct {
	headersPath string
	endpoint    string
	client      *http.Client
	logger      *slog.Logger
}

// YTMusicOption adjusts the client, mainly for tests.
type YTMusicOption func(*YTMusic)

// WithEndpoint overrides the browse endpoint URL.
func WithEndpoint(url string) YTMusicOption {
	return func(y *YTMusic) { y.endpoint = url }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) YTMusicOption {
	return func(y *YTMusic) { y.client = client }
}

// NewYTMusic builds a feed backed by the headers file at headersPath.
func NewYTMusic(headersPath string, logger *slog.Logger, opts ...YTMusicOption) *YTMusic {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	y := &YTMusic{
		headersPath: headersPath,
		endpoint:    defaultEndpoint,
		client:      &http.Client{Timeout: 30 * time.Second},
		logger:      logger,
	}
	for _, opt := range opts {
		opt(y)
	}
	return y
}

// RecentTracks fetches the listening history, most recent first. The service
// reports coarse time buckets rather than precise timestamps, so PlayedAt is
// left zero; lookback only filters events that do carry a usable hint.
func (y *YTMusic) RecentTracks(ctx context.Context, lookback time.Duration) ([]RawEvent, error) {
	headers, err := y.loadHeaders()
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(map[string]any{
		"browseId": historyBrowseID,
		"context": map[string]any{
			"client": map[string]any{
				"clientName":    "WEB_REMIX",
				"clientVersion": "1.20240101.00.00",
				"hl":            "en",
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encode browse request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, y.endpoint+"?alt=json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build browse request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for name, value := range headers {
		req.Header.Set(name, value)
	}

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch listening history: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		y.markCredentialsErrored()
		return nil, fmt.Errorf("%w (status %d)", ErrCredentialsRejected, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listening history request failed: status %d", resp.StatusCode)
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("read listening history: %w", err)
	}

	events, err := parseHistoryResponse(payload)
	if err != nil {
		return nil, err
	}
	if lookback > 0 {
		cutoff := time.Now().Add(-lookback)
		filtered := events[:0]
		for _, ev := range events {
			if ev.PlayedAt.IsZero() || !ev.PlayedAt.Before(cutoff) {
				filtered = append(filtered, ev)
			}
		}
		events = filtered
	}
	y.logger.Debug("listening history fetched", slog.Int("events", len(events)))
	return events, nil
}

func (y *YTMusic) loadHeaders() (map[string]string, error) {
	raw, err := os.ReadFile(y.headersPath)
	if err != nil {
		return nil, fmt.Errorf("read browser headers: %w", err)
	}
	var headers map[string]string
	if err := json.Unmarshal(raw, &headers); err != nil {
		return nil, fmt.Errorf("parse browser headers %s: %w", y.headersPath, err)
	}
	if len(headers) == 0 {
		return nil, fmt.Errorf("browser headers file %s is empty", y.headersPath)
	}
	return headers, nil
}

// markCredentialsErrored renames the header file next to itself so a later
// run does not retry with known-bad credentials.
func (y *YTMusic) markCredentialsErrored() {
	aside := filepath.Join(filepath.Dir(y.headersPath), erroredCredsName)
	if err := os.Rename(y.headersPath, aside); err != nil {
		y.logger.Warn("could not move rejected credentials aside", slog.Any("error", err))
		return
	}
	y.logger.Warn("credentials rejected, moved header file aside",
		slog.String("from", y.headersPath),
		slog.String("to", aside))
}

// The browse response nests each played track inside a shelf of list items.
// Only the fields we read are modeled.
type browseResponse struct {
	Contents struct {
		SingleColumnBrowseResultsRenderer struct {
			Tabs []struct {
				TabRenderer struct {
					Content struct {
						SectionListRenderer struct {
							Contents []struct {
								MusicShelfRenderer *musicShelf `json:"musicShelfRenderer"`
							} `json:"contents"`
						} `json:"sectionListRenderer"`
					} `json:"content"`
				} `json:"tabRenderer"`
			} `json:"tabs"`
		} `json:"singleColumnBrowseResultsRenderer"`
	} `json:"contents"`
}

type musicShelf struct {
	Contents []struct {
		MusicResponsiveListItemRenderer *listItem `json:"musicResponsiveListItemRenderer"`
	} `json:"contents"`
}

type listItem struct {
	FlexColumns []struct {
		MusicResponsiveListItemFlexColumnRenderer struct {
			Text textRuns `json:"text"`
		} `json:"musicResponsiveListItemFlexColumnRenderer"`
	} `json:"flexColumns"`
	FixedColumns []struct {
		MusicResponsiveListItemFixedColumnRenderer struct {
			Text textRuns `json:"text"`
		} `json:"musicResponsiveListItemFixedColumnRenderer"`
	} `json:"fixedColumns"`
}

type textRuns struct {
	Runs []struct {
		Text string `json:"text"`
	} `json:"runs"`
}

func (t textRuns) first() string {
	if len(t.Runs) == 0 {
		return ""
	}
	return t.Runs[0].Text
}

func parseHistoryResponse(payload []byte) ([]RawEvent, error) {
	var resp browseResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("parse listening history: %w", err)
	}

	var events []RawEvent
	for _, tab := range resp.Contents.SingleColumnBrowseResultsRenderer.Tabs {
		for _, section := range tab.TabRenderer.Content.SectionListRenderer.Contents {
			shelf := section.MusicShelfRenderer
			if shelf == nil {
				continue
			}
			for _, entry := range shelf.Contents {
				item := entry.MusicResponsiveListItemRenderer
				if item == nil {
					continue
				}
				ev := eventFromItem(item)
				if ev.Title == "" {
					continue
				}
				events = append(events, ev)
			}
		}
	}
	return events, nil
}

func eventFromItem(item *listItem) RawEvent {
	var ev RawEvent
	column := func(i int) string {
		if i >= len(item.FlexColumns) {
			return ""
		}
		return item.FlexColumns[i].MusicResponsiveListItemFlexColumnRenderer.Text.first()
	}
	ev.Title = column(0)
	ev.Artist = column(1)
	ev.Album = column(2)

	if len(item.FixedColumns) > 0 {
		clock := item.FixedColumns[0].MusicResponsiveListItemFixedColumnRenderer.Text.first()
		if seconds, err := ParseClockDuration(clock); err == nil {
			ev.DurationSeconds = seconds
		}
	}
	return ev
}
