package genius

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ryanrahman1/nichegeniusproxy/internal/richtext"
)

const defaultBaseURL = "https://api.genius.com"

// Config controls the upstream HTTP client.
type Config struct {
	BaseURL    string
	UserAgent  string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client talks to the upstream REST API. One outbound GET per call, no
// retries.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
}

// New creates a Client. BaseURL defaults to the public API host and the
// timeout to 15s; HTTPClient overrides the default client for testing.
func New(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:   baseURL,
		userAgent: cfg.UserAgent,
		http:      client,
	}
}

// StatusError reports a non-2xx upstream response.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream request failed: %s", e.Status)
}

type envelope[T any] struct {
	Response T `json:"response"`
}

type songEnvelope struct {
	Song upstreamSong `json:"song"`
}

type artistEnvelope struct {
	Artist upstreamArtist `json:"artist"`
}

type upstreamArtistRef struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	ImageURL string `json:"image_url"`
}

type upstreamAlbum struct {
	ID             int64               `json:"id"`
	Name           string              `json:"name"`
	URL            string              `json:"url"`
	PrimaryArtists []upstreamArtistRef `json:"primary_artists"`
}

type description struct {
	Dom *richtext.Node `json:"dom"`
}

type upstreamSong struct {
	ID              int64             `json:"id"`
	Title           string            `json:"title"`
	URL             string            `json:"url"`
	SongArtImageURL string            `json:"song_art_image_url"`
	ReleaseDate     string            `json:"release_date"`
	Description     description       `json:"description"`
	PrimaryArtist   upstreamArtistRef `json:"primary_artist"`
	Album           *upstreamAlbum    `json:"album"`
}

type upstreamArtist struct {
	ID             int64       `json:"id"`
	Name           string      `json:"name"`
	URL            string      `json:"url"`
	ImageURL       string      `json:"image_url"`
	AlternateNames []string    `json:"alternate_names"`
	Description    description `json:"description"`
}

// Song fetches one song by its numeric id and flattens its description.
func (c *Client) Song(ctx context.Context, id, token string) (SongRecord, error) {
	var out envelope[songEnvelope]
	if err := c.getJSON(ctx, "/songs/"+id, token, &out); err != nil {
		return SongRecord{}, err
	}
	return projectSong(out.Response.Song), nil
}

// Artist fetches one artist by its numeric id and flattens its description.
func (c *Client) Artist(ctx context.Context, id, token string) (ArtistRecord, error) {
	var out envelope[artistEnvelope]
	if err := c.getJSON(ctx, "/artists/"+id, token, &out); err != nil {
		return ArtistRecord{}, err
	}
	return projectArtist(out.Response.Artist), nil
}

func (c *Client) getJSON(ctx context.Context, path, token string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func projectSong(s upstreamSong) SongRecord {
	rec := SongRecord{
		ID:          s.ID,
		Title:       s.Title,
		URL:         s.URL,
		ImageURL:    s.SongArtImageURL,
		ReleaseDate: s.ReleaseDate,
		Artist: ArtistRef{
			ID:       s.PrimaryArtist.ID,
			Name:     s.PrimaryArtist.Name,
			URL:      s.PrimaryArtist.URL,
			ImageURL: s.PrimaryArtist.ImageURL,
		},
		Description: richtext.Flatten(s.Description.Dom),
	}
	if s.Album != nil {
		album := AlbumRef{ID: s.Album.ID, Name: s.Album.Name, URL: s.Album.URL}
		if len(s.Album.PrimaryArtists) > 0 {
			album.Artist = s.Album.PrimaryArtists[0].Name
		}
		rec.Album = &album
	}
	return rec
}

func projectArtist(a upstreamArtist) ArtistRecord {
	return ArtistRecord{
		ID:             a.ID,
		Name:           a.Name,
		URL:            a.URL,
		ImageURL:       a.ImageURL,
		AlternateNames: append([]string{}, a.AlternateNames...),
		Description:    richtext.Flatten(a.Description.Dom),
	}
}
