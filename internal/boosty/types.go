package boosty

// Token is the result of a successful phone token exchange or refresh.
type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

type authorizeResponse struct {
	Code string `json:"code"`
}

// Block is a content block as returned by the API.
type Block struct {
	ID          string  `json:"id"`
	Type        string  `json:"type"`
	Modificator *string `json:"modificator"`
	Content     string  `json:"content"`
	URL         string  `json:"url"`
}

// Owner is the blog owner.
type Owner struct {
	Name      string `json:"name"`
	HasAvatar bool   `json:"hasAvatar"`
	AvatarURL string `json:"avatarUrl"`
}

// Blog is the response of GET /v1/blog/{author}.
type Blog struct {
	Title       string  `json:"title"`
	Owner       Owner   `json:"owner"`
	Description []Block `json:"description"`
}

// Teaser is a preview entry attached to a post.
type Teaser struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// Post is a single entry of the post list.
type Post struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	PublishTime int64    `json:"publishTime"`
	HasAccess   bool     `json:"hasAccess"`
	SignedQuery string   `json:"signedQuery"`
	Data        []Block  `json:"data"`
	Teaser      []Teaser `json:"teaser"`
}

type postsResponse struct {
	Data []Post `json:"data"`
}
