package feed

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mmcdole/gofeed"
)

const (
	namespaceItunes = "http://www.itunes.com/dtds/podcast-1.0.dtd"
	namespaceAtom   = "http://www.w3.org/2005/Atom"
	generator       = "boosty-rss"
)

// ErrInvalidFeed is returned when the rendered document does not parse back
// as the feed it was built from.
var ErrInvalidFeed = errors.New("invalid feed")

type rssXML struct {
	XMLName     xml.Name   `xml:"rss"`
	Version     string     `xml:"version,attr"`
	XMLNSItunes string     `xml:"xmlns:itunes,attr"`
	XMLNSAtom   string     `xml:"xmlns:atom,attr"`
	Channel     channelXML `xml:"channel"`
}

type channelXML struct {
	Title         string          `xml:"title"`
	Link          string          `xml:"link"`
	Description   string          `xml:"description"`
	AtomLink      atomLinkXML     `xml:"atom:link"`
	Generator     string          `xml:"generator"`
	LastBuildDate string          `xml:"lastBuildDate"`
	Image         *imageXML       `xml:"image,omitempty"`
	ItunesAuthor  string          `xml:"itunes:author,omitempty"`
	ItunesImage   *itunesImageXML `xml:"itunes:image,omitempty"`
	Items         []itemXML       `xml:"item"`
}

type atomLinkXML struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
}

type imageXML struct {
	URL   string `xml:"url"`
	Title string `xml:"title"`
	Link  string `xml:"link"`
}

type itunesImageXML struct {
	Href string `xml:"href,attr"`
}

type itemXML struct {
	Title       string          `xml:"title"`
	Link        string          `xml:"link,omitempty"`
	Description string          `xml:"description"`
	GUID        *guidXML        `xml:"guid,omitempty"`
	PubDate     string          `xml:"pubDate"`
	Enclosures  []enclosureXML  `xml:"enclosure"`
	ItunesImage *itunesImageXML `xml:"itunes:image,omitempty"`
}

type guidXML struct {
	IsPermaLink string `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

type enclosureXML struct {
	URL    string `xml:"url,attr"`
	Length int64  `xml:"length,attr"`
	Type   string `xml:"type,attr"`
}

// Render serializes doc as a pretty-printed RSS 2.0 document with iTunes
// podcast extensions.
func Render(doc *Document) ([]byte, error) {
	items := make([]itemXML, 0, len(doc.Entries))
	for _, e := range doc.Entries {
		it := itemXML{
			Title:       e.Title,
			Link:        e.Link,
			Description: e.Description,
			PubDate:     e.Published.Format(time.RFC1123Z),
		}
		if e.GUID != "" {
			it.GUID = &guidXML{IsPermaLink: "false", Value: e.GUID}
		}
		// Readers keep a single enclosure per item, so the cover only
		// becomes one when there is no audio.
		switch {
		case e.Audio != nil:
			it.Enclosures = append(it.Enclosures, toEnclosure(e.Audio))
		case e.Image != nil:
			it.Enclosures = append(it.Enclosures, toEnclosure(e.Image))
		}
		if e.Image != nil {
			it.ItunesImage = &itunesImageXML{Href: e.Image.URL}
		}
		items = append(items, it)
	}

	ch := channelXML{
		Title:         doc.Title,
		Link:          doc.Link,
		Description:   doc.Description,
		AtomLink:      atomLinkXML{Href: doc.SelfLink, Rel: "self"},
		Generator:     generator,
		LastBuildDate: doc.BuildDate.Format(time.RFC1123Z),
		ItunesAuthor:  doc.Author,
		Items:         items,
	}
	if doc.ImageURL != "" {
		ch.Image = &imageXML{URL: doc.ImageURL, Title: doc.Title, Link: doc.Link}
		ch.ItunesImage = &itunesImageXML{Href: doc.ImageURL}
	}

	out := rssXML{
		Version:     "2.0",
		XMLNSItunes: namespaceItunes,
		XMLNSAtom:   namespaceAtom,
		Channel:     ch,
	}
	body, err := xml.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal rss: %w", err)
	}

	var buf bytes.Buffer
	buf.Grow(len(xml.Header) + len(body) + 1)
	buf.WriteString(xml.Header)
	buf.Write(body)
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func toEnclosure(e *Enclosure) enclosureXML {
	return enclosureXML{URL: e.URL, Length: e.Length, Type: e.Type}
}

// Validate parses data back and checks it against doc.
func Validate(data []byte, doc *Document) error {
	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFeed, err)
	}
	if parsed.FeedType != "rss" {
		return fmt.Errorf("%w: parsed as %s", ErrInvalidFeed, parsed.FeedType)
	}
	if len(parsed.Items) != len(doc.Entries) {
		return fmt.Errorf("%w: %d items, want %d", ErrInvalidFeed, len(parsed.Items), len(doc.Entries))
	}
	return nil
}

// Write renders doc into <dir>/<author>.xml, replacing any existing file.
// Nothing is written when rendering or validation fails.
func Write(doc *Document, dir, author string) (string, error) {
	data, err := Render(doc)
	if err != nil {
		return "", err
	}
	if err := Validate(data, doc); err != nil {
		return "", err
	}

	path := filepath.Join(dir, author+".xml")
	tmp, err := os.CreateTemp(dir, "."+author+"-*.xml")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write feed: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}
	// CreateTemp creates files with mode 0600.
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", fmt.Errorf("chmod feed: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("replace %s: %w", path, err)
	}
	return path, nil
}
