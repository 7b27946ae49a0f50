package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"instagramdl/pkg/errors"
)

func basePost() Post {
	return Post{
		Shortcode: "abc",
		Author:    User{Username: "bob"},
		CreatedAt: time.Unix(1, 0),
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(p *Post)
		wantField string
	}{
		{
			name: "image",
			mutate: func(p *Post) {
				p.Kind = KindImage
				p.Image = &Image{URL: "http://x/a.jpg"}
			},
		},
		{
			name: "video",
			mutate: func(p *Post) {
				p.Kind = KindVideo
				p.Video = &Video{URL: "http://x/a.mp4"}
			},
		},
		{
			name: "multi",
			mutate: func(p *Post) {
				p.Kind = KindMulti
				p.Items = []Item{
					{Kind: KindImage, Image: &Image{URL: "http://x/1.jpg"}},
					{Kind: KindVideo, Video: &Video{URL: "http://x/2.mp4"}},
				}
			},
		},
		{
			name: "id without shortcode",
			mutate: func(p *Post) {
				p.Shortcode = ""
				p.ID = "123"
				p.Kind = KindImage
				p.Image = &Image{URL: "u"}
			},
		},
		{
			name: "missing identity",
			mutate: func(p *Post) {
				p.Shortcode = ""
				p.Kind = KindImage
				p.Image = &Image{}
			},
			wantField: "shortcode",
		},
		{
			name: "missing username",
			mutate: func(p *Post) {
				p.Author.Username = ""
				p.Kind = KindImage
				p.Image = &Image{}
			},
			wantField: "author.username",
		},
		{
			name: "missing timestamp",
			mutate: func(p *Post) {
				p.CreatedAt = time.Time{}
				p.Kind = KindImage
				p.Image = &Image{}
			},
			wantField: "created_at",
		},
		{
			name:      "unknown kind",
			mutate:    func(p *Post) { p.Kind = "reel" },
			wantField: "kind",
		},
		{
			name: "kind disagrees with variant",
			mutate: func(p *Post) {
				p.Kind = KindImage
				p.Video = &Video{URL: "u"}
			},
			wantField: "kind",
		},
		{
			name: "two variants",
			mutate: func(p *Post) {
				p.Kind = KindVideo
				p.Video = &Video{URL: "u"}
				p.Image = &Image{URL: "u"}
			},
			wantField: "kind",
		},
		{
			name: "nested multi",
			mutate: func(p *Post) {
				p.Kind = KindMulti
				p.Items = []Item{{Kind: KindMulti}}
			},
			wantField: "items[0]",
		},
		{
			name: "empty multi",
			mutate: func(p *Post) {
				p.Kind = KindMulti
			},
			wantField: "kind",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := basePost()
			tt.mutate(&p)

			got, err := New(p)
			if tt.wantField == "" {
				require.NoError(t, err)
				assert.Equal(t, p.Kind, got.Kind)
				return
			}

			require.Error(t, err)
			assert.True(t, errors.IsValidation(err))
			var e *errors.Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, tt.wantField, e.Field)
			assert.Nil(t, got)
		})
	}
}

func TestMediaURLs(t *testing.T) {
	multi := basePost()
	multi.Kind = KindMulti
	multi.Items = []Item{
		{Kind: KindVideo, Video: &Video{URL: "http://x/1.mp4"}},
		{Kind: KindImage, Image: &Image{URL: "http://x/2.jpg"}},
		{Kind: KindImage, Image: &Image{}},
	}
	assert.Equal(t, []string{"http://x/1.mp4", "http://x/2.jpg"}, multi.MediaURLs())

	img := basePost()
	img.Kind = KindImage
	img.Image = &Image{
		URL:       "http://x/a.jpg",
		AltURLs:   []string{"http://x/a_small.jpg"},
		ExtraURLs: []string{"http://x/b.jpg", "http://x/a.jpg"},
	}
	assert.Equal(t, []string{"http://x/a.jpg", "http://x/b.jpg"}, img.MediaURLs())

	vid := basePost()
	vid.Kind = KindVideo
	vid.Video = &Video{URL: "http://x/1.mp4", ExtraURLs: []string{"http://x/2.mp4", "http://x/c.jpg"}}
	assert.Equal(t, []string{"http://x/1.mp4", "http://x/2.mp4", "http://x/c.jpg"}, vid.MediaURLs())
}

func TestOptionalHelpers(t *testing.T) {
	p := basePost()
	assert.Equal(t, "", p.CaptionText())
	p.Caption = String("hello")
	assert.Equal(t, "hello", p.CaptionText())
	assert.Equal(t, 0, *Int(0))
	assert.True(t, KindMulti.Valid())
	assert.False(t, Kind("").Valid())
}
