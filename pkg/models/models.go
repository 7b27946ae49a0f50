package models

import (
	"fmt"
	"time"

	"instagramdl/pkg/errors"
)

// Kind discriminates the three post variants.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
	KindMulti Kind = "multi"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindImage, KindVideo, KindMulti:
		return true
	}
	return false
}

// User is the author of a post. It is embedded by value in Post.
type User struct {
	ID            string `json:"id,omitempty" yaml:"id,omitempty"`
	Username      string `json:"username" yaml:"username"`
	FullName      string `json:"full_name,omitempty" yaml:"full_name,omitempty"`
	AvatarURL     string `json:"avatar_url,omitempty" yaml:"avatar_url,omitempty"`
	ProfileURL    string `json:"profile_url,omitempty" yaml:"profile_url,omitempty"`
	IsVerified    bool   `json:"is_verified" yaml:"is_verified"`
	IsPrivate     bool   `json:"is_private" yaml:"is_private"`
	FollowerCount *int   `json:"follower_count,omitempty" yaml:"follower_count,omitempty"`
	PostCount     *int   `json:"post_count,omitempty" yaml:"post_count,omitempty"`
}

// Image holds the image variant fields. AltURLs are other renditions of
// the same image. ExtraURLs are further media published with the post when
// the upstream shape does not say how they are grouped.
type Image struct {
	URL                  string   `json:"url" yaml:"url"`
	AltURLs              []string `json:"alt_urls,omitempty" yaml:"alt_urls,omitempty"`
	ExtraURLs            []string `json:"extra_urls,omitempty" yaml:"extra_urls,omitempty"`
	AccessibilityCaption string   `json:"accessibility_caption,omitempty" yaml:"accessibility_caption,omitempty"`
}

// Video holds the video variant fields. ExtraURLs has the same meaning as
// on Image.
type Video struct {
	URL          string        `json:"url" yaml:"url"`
	ExtraURLs    []string      `json:"extra_urls,omitempty" yaml:"extra_urls,omitempty"`
	HasAudio     bool          `json:"has_audio" yaml:"has_audio"`
	PlayCount    *int          `json:"play_count,omitempty" yaml:"play_count,omitempty"`
	ViewCount    *int          `json:"view_count,omitempty" yaml:"view_count,omitempty"`
	Duration     time.Duration `json:"duration,omitempty" yaml:"duration,omitempty"`
	ThumbnailURL string        `json:"thumbnail_url,omitempty" yaml:"thumbnail_url,omitempty"`
}

// Item is one child of a multi post. Its Kind is image or video.
type Item struct {
	ID        string `json:"id,omitempty" yaml:"id,omitempty"`
	Shortcode string `json:"shortcode,omitempty" yaml:"shortcode,omitempty"`
	Kind      Kind   `json:"kind" yaml:"kind"`
	Width     int    `json:"width,omitempty" yaml:"width,omitempty"`
	Height    int    `json:"height,omitempty" yaml:"height,omitempty"`
	Image     *Image `json:"image,omitempty" yaml:"image,omitempty"`
	Video     *Video `json:"video,omitempty" yaml:"video,omitempty"`
}

// URL returns the primary media URL of the item.
func (it Item) URL() string {
	switch {
	case it.Video != nil:
		return it.Video.URL
	case it.Image != nil:
		return it.Image.URL
	}
	return ""
}

// Post is a retrieved post independent of the upstream shape it came from.
// Exactly one of Image, Video or Items is set, matching Kind.
type Post struct {
	ID           string    `json:"id,omitempty" yaml:"id,omitempty"`
	Shortcode    string    `json:"shortcode,omitempty" yaml:"shortcode,omitempty"`
	URL          string    `json:"url,omitempty" yaml:"url,omitempty"`
	Kind         Kind      `json:"kind" yaml:"kind"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty" yaml:"thumbnail_url,omitempty"`
	Width        int       `json:"width,omitempty" yaml:"width,omitempty"`
	Height       int       `json:"height,omitempty" yaml:"height,omitempty"`
	Author       User      `json:"author" yaml:"author"`
	Caption      *string   `json:"caption,omitempty" yaml:"caption,omitempty"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
	LikeCount    *int      `json:"like_count,omitempty" yaml:"like_count,omitempty"`
	CommentCount *int      `json:"comment_count,omitempty" yaml:"comment_count,omitempty"`

	Image *Image `json:"image,omitempty" yaml:"image,omitempty"`
	Video *Video `json:"video,omitempty" yaml:"video,omitempty"`
	Items []Item `json:"items,omitempty" yaml:"items,omitempty"`
}

// New validates p and returns a copy of it.
func New(p Post) (*Post, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks the required common fields and that Kind agrees with the
// populated variant.
func (p *Post) Validate() error {
	if p.ID == "" && p.Shortcode == "" {
		return errors.Validation("shortcode", "post has neither id nor shortcode")
	}
	if p.Author.Username == "" {
		return errors.Validation("author.username", "post has no author username")
	}
	if p.CreatedAt.IsZero() {
		return errors.Validation("created_at", "post has no creation timestamp")
	}

	switch p.Kind {
	case KindImage:
		if p.Image == nil || p.Video != nil || len(p.Items) > 0 {
			return errors.Validation("kind", "image post must carry only the image variant")
		}
	case KindVideo:
		if p.Video == nil || p.Image != nil || len(p.Items) > 0 {
			return errors.Validation("kind", "video post must carry only the video variant")
		}
	case KindMulti:
		if len(p.Items) == 0 || p.Image != nil || p.Video != nil {
			return errors.Validation("kind", "multi post must carry only child items")
		}
		for i, it := range p.Items {
			if err := it.validate(); err != nil {
				return errors.Validation(fmt.Sprintf("items[%d]", i), err.Error())
			}
		}
	default:
		return errors.Validation("kind", fmt.Sprintf("unknown kind %q", p.Kind))
	}
	return nil
}

func (it Item) validate() error {
	switch it.Kind {
	case KindImage:
		if it.Image == nil || it.Video != nil {
			return fmt.Errorf("image item must carry only the image variant")
		}
	case KindVideo:
		if it.Video == nil || it.Image != nil {
			return fmt.Errorf("video item must carry only the video variant")
		}
	case KindMulti:
		return fmt.Errorf("multi items cannot nest")
	default:
		return fmt.Errorf("unknown kind %q", it.Kind)
	}
	return nil
}

// MediaURLs returns the downloadable media in discovery order: the image
// or video URL followed by its extra URLs, or each child's primary URL.
// Empty and repeated URLs are skipped.
func (p *Post) MediaURLs() []string {
	var urls []string
	seen := make(map[string]bool)
	add := func(u string) {
		if u != "" && !seen[u] {
			seen[u] = true
			urls = append(urls, u)
		}
	}

	switch p.Kind {
	case KindImage:
		if p.Image != nil {
			add(p.Image.URL)
			for _, u := range p.Image.ExtraURLs {
				add(u)
			}
		}
	case KindVideo:
		if p.Video != nil {
			add(p.Video.URL)
			for _, u := range p.Video.ExtraURLs {
				add(u)
			}
		}
	case KindMulti:
		for _, it := range p.Items {
			add(it.URL())
		}
	}
	return urls
}

// CaptionText returns the caption or "" when absent.
func (p *Post) CaptionText() string {
	if p.Caption == nil {
		return ""
	}
	return *p.Caption
}

// Int returns a pointer to v for optional counters.
func Int(v int) *int { return &v }

// String returns a pointer to s for optional text.
func String(s string) *string { return &s }
