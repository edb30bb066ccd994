// Package feed turns a Boosty blog into a podcast RSS document.
package feed

import "time"

// MIME types of entry enclosures.
const (
	MIMEAudio = "audio/mpeg"
	MIMEImage = "image/jpeg"
)

// Document is a podcast feed ready to be rendered.
type Document struct {
	Title       string
	Author      string
	Description string
	ImageURL    string
	Link        string
	SelfLink    string
	BuildDate   time.Time
	Entries     []Entry
}

// Entry is a single podcast episode.
type Entry struct {
	GUID        string
	Link        string
	Title       string
	Description string
	Published   time.Time
	Image       *Enclosure
	Audio       *Enclosure
}

// Enclosure is a media attachment of an entry.
type Enclosure struct {
	URL    string
	Type   string
	Length int64
}
