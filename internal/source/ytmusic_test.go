package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestParseClockDuration(t *testing.T) {
	tests := []struct {
		text    string
		want    int
		wantErr bool
	}{
		{"3:45", 225, false},
		{"0:30", 30, false},
		{"1:02:45", 3765, false},
		{"", 0, false},
		{"225", 0, true},
		{"3:xx", 0, true},
		{"1:2:3:4", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseClockDuration(tt.text)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseClockDuration(%q) err = %v, wantErr %v", tt.text, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseClockDuration(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func writeHeaders(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "browser.json")
	content := `{"Cookie": "SAPISID=abc", "User-Agent": "Mozilla/5.0", "X-Goog-AuthUser": "0"}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write headers: %v", err)
	}
	return path
}

func historyFixture(items string) string {
	return fmt.Sprintf(`{
  "contents": {"singleColumnBrowseResultsRenderer": {"tabs": [{"tabRenderer": {"content": {
    "sectionListRenderer": {"contents": [{"musicShelfRenderer": {"contents": [%s]}}]}
  }}}]}}
}`, items)
}

func historyItem(title, artist, album, clock string) string {
	return fmt.Sprintf(`{"musicResponsiveListItemRenderer": {
    "flexColumns": [
      {"musicResponsiveListItemFlexColumnRenderer": {"text": {"runs": [{"text": %q}]}}},
      {"musicResponsiveListItemFlexColumnRenderer": {"text": {"runs": [{"text": %q}]}}},
      {"musicResponsiveListItemFlexColumnRenderer": {"text": {"runs": [{"text": %q}]}}}
    ],
    "fixedColumns": [
      {"musicResponsiveListItemFixedColumnRenderer": {"text": {"runs": [{"text": %q}]}}}
    ]
  }}`, title, artist, album, clock)
}

func TestRecentTracksParsesHistory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if got := r.Header.Get("Cookie"); got != "SAPISID=abc" {
			t.Errorf("Cookie header = %q", got)
		}
		fmt.Fprint(w, historyFixture(
			historyItem("Song One (Official Video)", "ArtistVEVO", "Album A", "3:45")+","+
				historyItem("Song Two", "Other Artist", "", "4:10")))
	}))
	defer server.Close()

	feed := NewYTMusic(writeHeaders(t, t.TempDir()), nil,
		WithEndpoint(server.URL), WithHTTPClient(server.Client()))

	events, err := feed.RecentTracks(context.Background(), 0)
	if err != nil {
		t.Fatalf("RecentTracks failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	first := events[0]
	if first.Title != "Song One (Official Video)" || first.Artist != "ArtistVEVO" {
		t.Errorf("first event = %+v", first)
	}
	if first.Album != "Album A" {
		t.Errorf("first album = %q", first.Album)
	}
	if first.DurationSeconds != 225 {
		t.Errorf("first duration = %d, want 225", first.DurationSeconds)
	}
	if events[1].DurationSeconds != 250 {
		t.Errorf("second duration = %d, want 250", events[1].DurationSeconds)
	}
}

func TestRecentTracksAuthFailureMovesCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	dir := t.TempDir()
	headersPath := writeHeaders(t, dir)
	feed := NewYTMusic(headersPath, nil,
		WithEndpoint(server.URL), WithHTTPClient(server.Client()))

	_, err := feed.RecentTracks(context.Background(), 0)
	if !errors.Is(err, ErrCredentialsRejected) {
		t.Fatalf("err = %v, want ErrCredentialsRejected", err)
	}

	if _, statErr := os.Stat(headersPath); !os.IsNotExist(statErr) {
		t.Error("header file should have been moved aside")
	}
	if _, statErr := os.Stat(filepath.Join(dir, "erroredcreds.json")); statErr != nil {
		t.Errorf("errored credentials marker missing: %v", statErr)
	}
}

func TestRecentTracksMissingHeaders(t *testing.T) {
	feed := NewYTMusic(filepath.Join(t.TempDir(), "browser.json"), nil)
	if _, err := feed.RecentTracks(context.Background(), 0); err == nil {
		t.Fatal("expected error for missing headers file")
	}
}

func TestRecentTracksServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	dir := t.TempDir()
	headersPath := writeHeaders(t, dir)
	feed := NewYTMusic(headersPath, nil,
		WithEndpoint(server.URL), WithHTTPClient(server.Client()))

	_, err := feed.RecentTracks(context.Background(), 0)
	if err == nil || errors.Is(err, ErrCredentialsRejected) {
		t.Fatalf("err = %v, want plain server error", err)
	}
	if _, statErr := os.Stat(headersPath); statErr != nil {
		t.Error("server errors must not move the header file aside")
	}
}
