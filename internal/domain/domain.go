// Package domain holds the Kemono API data shapes shared across the module.
package domain

// Profile is a creator profile as returned by the Kemono API.
// It is fetched fresh per request and never persisted.
type Profile struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Service  string `json:"service"`
	Indexed  string `json:"indexed"`
	Updated  string `json:"updated"`
	PublicID string `json:"public_id"`
}

// File is a named file reference with a site-relative path.
// Both the primary post file and attachments use this shape.
type File struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Embed is an embedded external reference (video link etc.) on a post.
type Embed struct {
	URL         string `json:"url,omitempty"`
	Subject     string `json:"subject,omitempty"`
	Description string `json:"description,omitempty"`
}

// Post is a single creator post. Identity is (ID, Service, User).
// The posts list endpoint returns Substring instead of the full Content;
// the post detail endpoint returns Content.
type Post struct {
	ID          string `json:"id"`
	User        string `json:"user"`
	Service     string `json:"service"`
	Title       string `json:"title"`
	Content     string `json:"content,omitempty"`
	Substring   string `json:"substring,omitempty"`
	Embed       *Embed `json:"embed,omitempty"`
	SharedFile  bool   `json:"shared_file,omitempty"`
	Added       string `json:"added,omitempty"`
	Published   string `json:"published"`
	Edited      string `json:"edited,omitempty"`
	File        *File  `json:"file,omitempty"`
	Attachments []File `json:"attachments"`
}

// BodyText returns the best available textual body of the post:
// full content when present, otherwise the list-endpoint substring.
func (p *Post) BodyText() string {
	if p.Content != "" {
		return p.Content
	}

	return p.Substring
}

// CreatorRef identifies a creator on the upstream platform.
type CreatorRef struct {
	Service   string
	CreatorID string
}
