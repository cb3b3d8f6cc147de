// Package rss assembles a podcast RSS document from a creator's posts.
package rss

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"kemonocast/internal/domain"
)

// fetchDetailMaxConcurrency bounds the fan-out of per-post detail
// fetches so the upstream rate limit is respected.
const fetchDetailMaxConcurrency = 4

// DetailFetcher fetches the full-content record for a single post.
type DetailFetcher interface {
	FetchPostDetail(ctx context.Context, service, creatorID, postID string) (*domain.Post, error)
}

// Links resolves site-relative references to public URLs.
type Links interface {
	CreatorPageURL(service, creatorID string) string
	PostURL(service, creatorID, postID string) string
	FileURL(path string) string
}

type Builder struct {
	fetcher DetailFetcher
	links   Links
	log     *slog.Logger
}

func NewBuilder(fetcher DetailFetcher, links Links, log *slog.Logger) *Builder {
	return &Builder{
		fetcher: fetcher,
		links:   links,
		log:     log,
	}
}

type audioFile struct {
	url  string
	mime string
	name string
}

// audioFiles collects the post's audio-bearing files: the primary file
// first, then attachments, in declaration order.
func (b *Builder) audioFiles(post *domain.Post) []audioFile {
	var audios []audioFile

	// The primary file can be an empty object, so check the name.
	if post.File != nil && post.File.Name != "" && domain.IsAudioFile(post.File.Name) {
		audios = append(audios, audioFile{
			url:  b.links.FileURL(post.File.Path),
			mime: domain.AudioMIMEType(post.File.Name),
			name: post.File.Name,
		})
	}

	for _, att := range post.Attachments {
		if att.Name != "" && domain.IsAudioFile(att.Name) {
			audios = append(audios, audioFile{
				url:  b.links.FileURL(att.Path),
				mime: domain.AudioMIMEType(att.Name),
				name: att.Name,
			})
		}
	}

	return audios
}

// richDescription combines full content, the embed reference, and
// non-audio file links into one HTML body.
func (b *Builder) richDescription(post *domain.Post) string {
	var parts []string

	if post.Content != "" {
		parts = append(parts, post.Content)
	}

	if post.Embed != nil && post.Embed.URL != "" {
		text := post.Embed.Subject
		if text == "" {
			text = post.Embed.URL
		}

		parts = append(parts, fmt.Sprintf(
			`<p><strong>📺 Video:</strong> <a href="%s">%s</a></p>`,
			post.Embed.URL, text))
	}

	if post.File != nil && post.File.Name != "" && !domain.IsAudioFile(post.File.Name) {
		parts = append(parts, fmt.Sprintf(
			`<p><strong>📎 File:</strong> <a href="%s">%s</a></p>`,
			b.links.FileURL(post.File.Path), post.File.Name))
	}

	var nonAudio []domain.File
	for _, att := range post.Attachments {
		if att.Name != "" && !domain.IsAudioFile(att.Name) {
			nonAudio = append(nonAudio, att)
		}
	}

	if len(nonAudio) > 0 {
		parts = append(parts, "<p><strong>📎 Attachments:</strong></p><ul>")
		for _, att := range nonAudio {
			parts = append(parts, fmt.Sprintf(
				`<li><a href="%s">%s</a></li>`,
				b.links.FileURL(att.Path), att.Name))
		}
		parts = append(parts, "</ul>")
	}

	return strings.Join(parts, "\n")
}

// fetchDescriptions resolves the rich description for every post without
// audio files, fanning out the detail fetches with bounded concurrency.
// A failed fetch degrades that one post to its list-endpoint body and is
// never treated as a build failure.
func (b *Builder) fetchDescriptions(
	ctx context.Context,
	profile *domain.Profile,
	posts []domain.Post,
	audios [][]audioFile,
) []string {
	descriptions := make([]string, len(posts))

	var wg sync.WaitGroup
	semCh := make(chan struct{}, fetchDetailMaxConcurrency)

	for i := range posts {
		if len(audios[i]) > 0 {
			continue
		}

		descriptions[i] = posts[i].BodyText()

		wg.Add(1)
		semCh <- struct{}{}

		go func(i int) {
			defer wg.Done()
			defer func() { <-semCh }()

			fullPost, err := b.fetcher.FetchPostDetail(
				ctx, profile.Service, profile.ID, posts[i].ID)
			if err != nil {
				b.log.WarnContext(ctx, "Failed to fetch post detail, using fallback body",
					"error", err,
					"service", profile.Service,
					"creatorID", profile.ID,
					"postID", posts[i].ID)

				return
			}

			descriptions[i] = b.richDescription(fullPost)
		}(i)
	}

	wg.Wait()

	return descriptions
}

// Build renders the podcast RSS document for the creator's posts.
// A post with audio files becomes one episode item per audio file;
// a post without becomes a single rich-description item.
func (b *Builder) Build(
	ctx context.Context,
	profile *domain.Profile,
	posts []domain.Post,
) (string, error) {
	audios := make([][]audioFile, len(posts))
	for i := range posts {
		audios[i] = b.audioFiles(&posts[i])
	}

	descriptions := b.fetchDescriptions(ctx, profile, posts, audios)

	creatorName := escapeXML(profile.Name)
	channelLink := b.links.CreatorPageURL(profile.Service, profile.ID)

	var doc strings.Builder
	doc.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"
  xmlns:itunes="http://www.itunes.com/dtds/podcast-1.0.dtd"
  xmlns:content="http://purl.org/rss/1.0/modules/content/"
  xmlns:atom="http://www.w3.org/2005/Atom">
  <channel>
`)
	fmt.Fprintf(&doc, "    <title>%s</title>\n", creatorName)
	fmt.Fprintf(&doc, "    <link>%s</link>\n", escapeXML(channelLink))
	fmt.Fprintf(&doc, "    <description>Podcast feed for %s on Kemono</description>\n", creatorName)
	doc.WriteString("    <language>en-us</language>\n")
	fmt.Fprintf(&doc, "    <lastBuildDate>%s</lastBuildDate>\n",
		time.Now().UTC().Format(http.TimeFormat))
	fmt.Fprintf(&doc, "    <itunes:author>%s</itunes:author>\n", creatorName)
	doc.WriteString("    <itunes:owner>\n")
	fmt.Fprintf(&doc, "      <itunes:name>%s</itunes:name>\n", creatorName)
	doc.WriteString("    </itunes:owner>\n")
	doc.WriteString("    <itunes:explicit>false</itunes:explicit>\n")
	doc.WriteString(`    <itunes:category text="Arts"/>` + "\n")

	for i := range posts {
		b.writeItems(&doc, profile, &posts[i], audios[i], descriptions[i], creatorName)
	}

	doc.WriteString("  </channel>\n</rss>\n")

	return doc.String(), nil
}

func (b *Builder) writeItems(
	doc *strings.Builder,
	profile *domain.Profile,
	post *domain.Post,
	audios []audioFile,
	description string,
	creatorName string,
) {
	title := post.Title
	if title == "" {
		title = "Untitled"
	}
	title = escapeXML(title)

	postLink := escapeXML(b.links.PostURL(profile.Service, profile.ID, post.ID))
	pubDate := formatPubDate(post.Published, post.Added)

	if len(audios) == 0 {
		doc.WriteString("    <item>\n")
		fmt.Fprintf(doc, "      <title>%s</title>\n", title)
		fmt.Fprintf(doc, "      <link>%s</link>\n", postLink)
		fmt.Fprintf(doc, "      <description>%s</description>\n", cdata(description))
		fmt.Fprintf(doc, "      <pubDate>%s</pubDate>\n", pubDate)
		fmt.Fprintf(doc, `      <guid isPermaLink="false">%s</guid>`+"\n", escapeXML(post.ID))
		fmt.Fprintf(doc, "      <itunes:author>%s</itunes:author>\n", creatorName)
		doc.WriteString("    </item>\n")

		return
	}

	body := post.BodyText()

	for _, audio := range audios {
		itemTitle := title
		if len(audios) > 1 {
			itemTitle = title + " - " + escapeXML(audio.name)
		}

		guid := escapeXML(post.ID + "-" + url.QueryEscape(audio.name))

		doc.WriteString("    <item>\n")
		fmt.Fprintf(doc, "      <title>%s</title>\n", itemTitle)
		fmt.Fprintf(doc, "      <link>%s</link>\n", postLink)
		fmt.Fprintf(doc, "      <description>%s</description>\n", cdata(body))
		fmt.Fprintf(doc, "      <pubDate>%s</pubDate>\n", pubDate)
		fmt.Fprintf(doc, `      <guid isPermaLink="false">%s</guid>`+"\n", guid)
		fmt.Fprintf(doc, `      <enclosure url="%s" type="%s" length="0"/>`+"\n",
			escapeXML(audio.url), audio.mime)
		fmt.Fprintf(doc, "      <itunes:author>%s</itunes:author>\n", creatorName)
		doc.WriteString("      <itunes:duration>0</itunes:duration>\n")
		doc.WriteString("    </item>\n")
	}
}

// Timestamp layouts the API has been seen returning.
var postTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

// formatPubDate renders the post's publication time as an HTTP date,
// falling back from published to added to the current time.
func formatPubDate(published, added string) string {
	for _, raw := range []string{published, added} {
		if raw == "" {
			continue
		}

		for _, layout := range postTimeLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return t.UTC().Format(http.TimeFormat)
			}
		}
	}

	return time.Now().UTC().Format(http.TimeFormat)
}
