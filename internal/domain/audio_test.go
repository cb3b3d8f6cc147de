package domain

import "testing"

func TestIsAudioFile(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{"episode.mp3", true},
		{"Episode.MP3", true},
		{"track.m4a", true},
		{"sound.wav", true},
		{"sound.ogg", true},
		{"sound.aac", true},
		{"sound.flac", true},
		{"cover.jpg", false},
		{"notes.txt", false},
		{"mp3", false},
		{"", false},
	}

	for _, c := range cases {
		if got := IsAudioFile(c.name); got != c.want {
			t.Errorf("IsAudioFile(%q) = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestAudioMIMEType(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"episode.mp3", "audio/mpeg"},
		{"episode.M4A", "audio/mp4"},
		{"episode.wav", "audio/wav"},
		{"episode.ogg", "audio/ogg"},
		{"episode.aac", "audio/aac"},
		{"episode.flac", "audio/flac"},
		{"episode.weird", "audio/mpeg"},
	}

	for _, c := range cases {
		if got := AudioMIMEType(c.name); got != c.want {
			t.Errorf("AudioMIMEType(%q) = %q, want %q", c.name, got, c.want)
		}
	}
}

func TestPostBodyText(t *testing.T) {
	p := &Post{Content: "full content", Substring: "short"}
	if got := p.BodyText(); got != "full content" {
		t.Fatalf("expected full content, got %q", got)
	}

	p = &Post{Substring: "short"}
	if got := p.BodyText(); got != "short" {
		t.Fatalf("expected substring fallback, got %q", got)
	}
}
