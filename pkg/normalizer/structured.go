package normalizer

import (
	"strings"

	"instagramdl/pkg/errors"
	"instagramdl/pkg/models"
)

// Interaction types as published in the page's JSON-LD. Matching ignores the
// URL scheme since the upstream mixes http and https.
const (
	likeAction    = "http://schema.org/LikeAction"
	commentAction = "https://schema.org/CommentAction"
	watchAction   = "http://schema.org/WatchAction"
)

func schemeless(s string) string {
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	return strings.TrimSuffix(s, "/")
}

// interaction scans the interactionStatistic records for the given type.
func interaction(node map[string]any, action string) *int {
	want := schemeless(action)
	short := want[strings.LastIndex(want, "/")+1:]

	for _, rec := range list(node, "interactionStatistic") {
		stat, ok := rec.(map[string]any)
		if !ok {
			continue
		}
		typ := str(stat, "interactionType")
		if typ == "" {
			typ = str(stat, "interactionType.@type")
		}
		if schemeless(typ) != want && typ != short {
			continue
		}
		if n := count(stat, "userInteractionCount"); n != nil {
			return n
		}
	}
	return nil
}

// mediaEntries returns the entries of a JSON-LD media list as objects. Bare
// string entries are keyed under the first alias.
func mediaEntries(node map[string]any, key string, aliases ...string) []map[string]any {
	var out []map[string]any
	for _, entry := range list(node, key) {
		switch e := entry.(type) {
		case string:
			if e != "" {
				out = append(out, map[string]any{aliases[0]: e})
			}
		case map[string]any:
			if str(e, aliases...) != "" {
				out = append(out, e)
			}
		}
	}
	return out
}

// fromStructuredData extracts a post from page JSON-LD. The shape has no
// kind discriminator: any video makes it a Video post, otherwise an Image
// post. A slideshow reached this way is reported by its first medium, with
// the remaining media kept as extra URLs. Images that are a video's
// thumbnail are not counted as media.
func fromStructuredData(node map[string]any) (*models.Post, error) {
	author := object(node, "author")
	if author == nil {
		return nil, errors.MissingField("author")
	}
	username := strings.TrimPrefix(str(author, "alternateName", "identifier.value", "username"), "@")
	if username == "" {
		return nil, errors.MissingField("author.alternateName")
	}

	postURL := str(node, "mainEntityOfPage.@id", "url")
	shortcode := ShortcodeFromURL(postURL)
	if shortcode == "" {
		shortcode = str(node, "identifier", "identifier.value")
	}
	if shortcode == "" {
		return nil, errors.MissingField("mainEntityOfPage.@id")
	}

	created, ok := timestamp(node, "dateCreated", "uploadDate", "datePublished")
	if !ok {
		return nil, errors.MissingField("dateCreated")
	}

	images := mediaEntries(node, "image", "url", "contentUrl")
	videos := mediaEntries(node, "video", "contentUrl", "url")
	if len(images) == 0 && len(videos) == 0 {
		return nil, errors.MissingField("image")
	}

	post := models.Post{
		Shortcode: shortcode,
		URL:       postURL,
		Author: models.User{
			Username:   username,
			FullName:   str(author, "name"),
			AvatarURL:  str(author, "image", "image.url"),
			ProfileURL: str(author, "url"),
		},
		CreatedAt:    created,
		LikeCount:    interaction(node, likeAction),
		CommentCount: interaction(node, commentAction),
	}
	if post.CommentCount == nil {
		post.CommentCount = count(node, "commentCount")
	}
	if caption := str(node, "articleBody", "caption", "description"); caption != "" {
		post.Caption = models.String(caption)
	}

	if len(videos) > 0 {
		first := videos[0]
		post.Kind = models.KindVideo
		post.Video = &models.Video{
			URL:          str(first, "contentUrl", "url"),
			ViewCount:    interaction(node, watchAction),
			ThumbnailURL: str(first, "thumbnailUrl"),
		}

		thumbs := map[string]bool{str(node, "thumbnailUrl"): true}
		for _, v := range videos {
			thumbs[str(v, "thumbnailUrl")] = true
		}
		for _, v := range videos[1:] {
			post.Video.ExtraURLs = append(post.Video.ExtraURLs, str(v, "contentUrl", "url"))
		}
		for _, img := range images {
			if u := str(img, "url", "contentUrl"); !thumbs[u] {
				post.Video.ExtraURLs = append(post.Video.ExtraURLs, u)
			}
		}

		post.ThumbnailURL = post.Video.ThumbnailURL
		post.Width = integer(first, "width")
		post.Height = integer(first, "height")
	} else {
		first := images[0]
		img := &models.Image{
			URL:                  str(first, "url", "contentUrl"),
			AccessibilityCaption: str(first, "caption", "description"),
		}
		for _, extra := range images[1:] {
			img.ExtraURLs = append(img.ExtraURLs, str(extra, "url", "contentUrl"))
		}
		post.Kind = models.KindImage
		post.Image = img
		post.ThumbnailURL = img.URL
		post.Width = integer(first, "width")
		post.Height = integer(first, "height")
	}
	if thumb := str(node, "thumbnailUrl"); thumb != "" {
		post.ThumbnailURL = thumb
	}

	return models.New(post)
}
