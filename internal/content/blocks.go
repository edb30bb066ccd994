package content

import (
	"fmt"
	"strings"

	"boosty_rss/internal/model"
)

// LineBreak terminates every text chunk in a description.
const LineBreak = "\r\n"

// IsText reports whether b contributes to a description: a text block
// carrying a modificator other than the end-of-block marker.
func IsText(b model.ContentBlock) bool {
	return b.Type == model.BlockText && b.Modificator != nil && *b.Modificator != model.BlockEnd
}

// Text concatenates the decoded text of all description blocks, each
// followed by LineBreak.
func Text(blocks []model.ContentBlock) (string, error) {
	var sb strings.Builder
	for i, b := range blocks {
		if !IsText(b) {
			continue
		}
		text, err := ParseTextLiteral(b.Content)
		if err != nil {
			return "", fmt.Errorf("block %d: %w", i, err)
		}
		sb.WriteString(text)
		sb.WriteString(LineBreak)
	}
	return sb.String(), nil
}

// AudioURL returns the download link of the first audio block. The signed
// query is appended verbatim since the signature covers its exact bytes.
func AudioURL(blocks []model.ContentBlock, signedQuery string) (string, bool) {
	for _, b := range blocks {
		if b.Type == model.BlockAudioFile && b.URL != "" {
			return b.URL + signedQuery, true
		}
	}
	return "", false
}

// TeaserImage returns the URL of the first teaser that has one.
func TeaserImage(teasers []model.Teaser) (string, bool) {
	for _, t := range teasers {
		if t.URL != "" {
			return t.URL, true
		}
	}
	return "", false
}
