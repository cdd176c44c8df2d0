// Package genius fetches songs and artists from the lyrics API and projects
// the upstream envelopes into the flat records the proxy serves.
package genius

import (
	"context"

	"github.com/ryanrahman1/nichegeniusproxy/internal/richtext"
)

// Fetcher retrieves normalized records from the upstream API. The token is
// passed per call so a missing credential surfaces on the request that needs
// it rather than at startup.
type Fetcher interface {
	Song(ctx context.Context, id, token string) (SongRecord, error)
	Artist(ctx context.Context, id, token string) (ArtistRecord, error)
}

// ArtistRef is the artist projection embedded in song records.
type ArtistRef struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	ImageURL string `json:"image_url"`
}

// AlbumRef is the four-field album projection embedded in song records. The
// artist name is taken from the first primary artist the upstream lists.
type AlbumRef struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	URL    string `json:"url"`
	Artist string `json:"artist"`
}

// SongRecord is the flat song shape served to clients. Album is null when
// the upstream has no album for the song.
type SongRecord struct {
	ID          int64              `json:"id"`
	Title       string             `json:"title"`
	URL         string             `json:"url"`
	ImageURL    string             `json:"image_url"`
	ReleaseDate string             `json:"release_date"`
	Artist      ArtistRef          `json:"artist"`
	Album       *AlbumRef          `json:"album"`
	Description []richtext.Element `json:"description"`
}

// ArtistRecord is the flat artist shape served to clients.
type ArtistRecord struct {
	ID             int64              `json:"id"`
	Name           string             `json:"name"`
	URL            string             `json:"url"`
	ImageURL       string             `json:"image_url"`
	AlternateNames []string           `json:"alternate_names"`
	Description    []richtext.Element `json:"description"`
}
