package feed

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"

	"boosty_rss/internal/boosty"
	"boosty_rss/internal/content"
	"boosty_rss/internal/model"
)

// Source is the interface for reading blogs and posts.
type Source interface {
	Blog(ctx context.Context, author string) (*boosty.Blog, error)
	Posts(ctx context.Context, author string) ([]boosty.Post, error)
}

// Builder fetches an author's blog and assembles its feed.
type Builder struct {
	src     Source
	siteURL string
	loc     *time.Location
	now     func() time.Time
	log     *slog.Logger
}

// NewBuilder creates a Builder. Publish times are shown in loc, which
// defaults to UTC when nil.
func NewBuilder(src Source, siteURL string, loc *time.Location, log *slog.Logger) *Builder {
	if loc == nil {
		loc = time.UTC
	}
	return &Builder{
		src:     src,
		siteURL: strings.TrimRight(siteURL, "/"),
		loc:     loc,
		now:     time.Now,
		log:     log,
	}
}

// FetchBlogSummary loads the blog metadata of author.
func (b *Builder) FetchBlogSummary(ctx context.Context, author string) (*model.BlogSummary, error) {
	blog, err := b.src.Blog(ctx, author)
	if err != nil {
		return nil, fmt.Errorf("fetch blog %s: %w", author, err)
	}

	desc, err := content.Text(toBlocks(blog.Description))
	if err != nil {
		return nil, fmt.Errorf("blog %s description: %w", author, err)
	}

	summary := &model.BlogSummary{
		Author:      author,
		Title:       blog.Title,
		OwnerName:   blog.Owner.Name,
		Description: desc,
	}
	if blog.Owner.HasAvatar {
		summary.AvatarURL = blog.Owner.AvatarURL
	}
	return summary, nil
}

// FetchPosts loads the first page of author's posts. The returned sequence
// yields them in API order.
func (b *Builder) FetchPosts(ctx context.Context, author string) (iter.Seq[model.Post], error) {
	posts, err := b.src.Posts(ctx, author)
	if err != nil {
		return nil, fmt.Errorf("fetch posts %s: %w", author, err)
	}
	b.log.Debug("fetched posts", "author", author, "count", len(posts))

	return func(yield func(model.Post) bool) {
		for _, p := range posts {
			if !yield(toPost(p)) {
				return
			}
		}
	}, nil
}

// BuildFeed assembles the feed document. Posts the account cannot access
// are left out.
func (b *Builder) BuildFeed(blog *model.BlogSummary, posts iter.Seq[model.Post]) (*Document, error) {
	link := b.siteURL + "/" + blog.Author
	doc := &Document{
		Title:       blog.OwnerName,
		Author:      blog.OwnerName,
		Description: blog.Description,
		ImageURL:    blog.AvatarURL,
		Link:        link,
		SelfLink:    link,
		BuildDate:   b.now().In(b.loc),
	}

	skipped := 0
	for post := range posts {
		if !post.HasAccess {
			skipped++
			b.log.Debug("skipping inaccessible post", "post_id", post.ID, "title", post.Title)
			continue
		}

		entry, err := b.buildEntry(link, post)
		if err != nil {
			return nil, err
		}
		doc.Entries = append(doc.Entries, entry)
	}

	b.log.Info("built feed", "author", blog.Author, "entries", len(doc.Entries), "skipped", skipped)
	return doc, nil
}

func (b *Builder) buildEntry(blogLink string, post model.Post) (Entry, error) {
	desc, err := content.Text(post.Blocks)
	if err != nil {
		return Entry{}, fmt.Errorf("post %s: %w", post.ID, err)
	}

	entry := Entry{
		GUID:        post.ID,
		Title:       post.Title,
		Description: desc,
		Published:   time.Unix(post.PublishTime, 0).In(b.loc),
	}
	if post.ID != "" {
		entry.Link = blogLink + "/posts/" + post.ID
	}
	if url, ok := content.TeaserImage(post.Teasers); ok {
		entry.Image = &Enclosure{URL: url, Type: MIMEImage}
	}
	if url, ok := content.AudioURL(post.Blocks, post.SignedQuery); ok {
		entry.Audio = &Enclosure{URL: url, Type: MIMEAudio}
	} else {
		b.log.Warn("post has no audio", "post_id", post.ID, "title", post.Title)
	}
	return entry, nil
}

func toBlocks(in []boosty.Block) []model.ContentBlock {
	out := make([]model.ContentBlock, 0, len(in))
	for _, b := range in {
		out = append(out, model.ContentBlock{
			ID:          b.ID,
			Type:        b.Type,
			Modificator: b.Modificator,
			Content:     b.Content,
			URL:         b.URL,
		})
	}
	return out
}

func toPost(p boosty.Post) model.Post {
	teasers := make([]model.Teaser, 0, len(p.Teaser))
	for _, t := range p.Teaser {
		teasers = append(teasers, model.Teaser{Type: t.Type, URL: t.URL})
	}
	return model.Post{
		ID:          p.ID,
		Title:       p.Title,
		PublishTime: p.PublishTime,
		HasAccess:   p.HasAccess,
		SignedQuery: p.SignedQuery,
		Blocks:      toBlocks(p.Data),
		Teasers:     teasers,
	}
}
