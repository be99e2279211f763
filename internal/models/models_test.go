package models

import (
	"testing"
)

func TestCredentials(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		in := Credentials{ID: 7, Username: "dj", Email: "dj@example.com", SpotifyConnected: true}

		raw, err := MarshalCredentials(in)
		if err != nil {
			t.Fatalf("MarshalCredentials() error = %v", err)
		}

		out, err := UnmarshalCredentials(raw)
		if err != nil {
			t.Fatalf("UnmarshalCredentials() error = %v", err)
		}

		if out != in {
			t.Errorf("round trip = %+v, want %+v", out, in)
		}
	})

	t.Run("uses backend field names", func(t *testing.T) {
		raw := `{"id":3,"username":"host","email":"h@example.com","spotify_connected":false}`
		c, err := UnmarshalCredentials(raw)
		if err != nil {
			t.Fatalf("UnmarshalCredentials() error = %v", err)
		}
		if c.ID != 3 || c.Username != "host" {
			t.Errorf("unexpected credentials %+v", c)
		}
	})

	tc := []struct {
		name string
		raw  string
	}{
		{name: "null literal", raw: "null"},
		{name: "not json", raw: "{id: 1"},
		{name: "wrong type", raw: `{"id":"seven","username":"dj"}`},
		{name: "missing id", raw: `{"username":"dj"}`},
		{name: "missing username", raw: `{"id":1}`},
		{name: "empty", raw: ""},
	}

	for _, tt := range tc {
		t.Run("rejects "+tt.name, func(t *testing.T) {
			if _, err := UnmarshalCredentials(tt.raw); err == nil {
				t.Errorf("UnmarshalCredentials(%q) expected error", tt.raw)
			}
		})
	}
}

func TestPlayerEvent(t *testing.T) {
	for _, e := range PlayerEvents {
		if !e.Valid() {
			t.Errorf("%s should be valid", e)
		}
	}

	if PlayerEvent("paused").Valid() {
		t.Error("unknown event should not be valid")
	}
}

func TestSongArtistLine(t *testing.T) {
	s := Song{Artists: []string{"Daft Punk", "Pharrell Williams"}}
	if got := s.ArtistLine(); got != "Daft Punk, Pharrell Williams" {
		t.Errorf("ArtistLine() = %q", got)
	}
}
