// Package model defines the domain types used across the application.
package model

// Credentials is the persisted authentication state for the Boosty API.
type Credentials struct {
	DeviceID     string `json:"uuid"`
	PhoneNumber  string `json:"phone_number"`
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Expires      int64  `json:"expires,omitempty"`
}

// HasToken reports whether an access token has been obtained.
func (c *Credentials) HasToken() bool {
	return c.AccessToken != ""
}

// Expired reports whether the access token must be refreshed at the given
// unix time. A missing expiry counts as expired.
func (c *Credentials) Expired(now int64) bool {
	return c.Expires == 0 || now >= c.Expires
}

// Block types and modificators used by Boosty content.
const (
	BlockText      = "text"
	BlockAudioFile = "audio_file"
	BlockEnd       = "BLOCK_END"
)

// ContentBlock is one unit of a post's or blog's rich body.
type ContentBlock struct {
	ID   string
	Type string
	// Modificator is nil when the API omitted the field.
	Modificator *string
	Content     string
	URL         string
}

// Teaser is a preview image attached to a post.
type Teaser struct {
	Type string
	URL  string
}

// BlogSummary describes the author whose posts become the feed.
type BlogSummary struct {
	Author      string
	Title       string
	OwnerName   string
	AvatarURL   string
	Description string
}

// Post is a single Boosty post.
type Post struct {
	ID          string
	Title       string
	PublishTime int64
	HasAccess   bool
	SignedQuery string
	Blocks      []ContentBlock
	Teasers     []Teaser
}
