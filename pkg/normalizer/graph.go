package normalizer

import (
	"fmt"

	"instagramdl/pkg/errors"
	"instagramdl/pkg/models"
)

// graphDialect holds what differs between the internal query and the
// public API payloads. Everything else is shared.
type graphDialect struct {
	image   string
	video   string
	sidecar string
	author  []string
}

var (
	internalQuery = graphDialect{
		image:   "GraphImage",
		video:   "GraphVideo",
		sidecar: "GraphSidecar",
		author:  []string{"owner"},
	}
	publicAPI = graphDialect{
		image:   "XDTGraphImage",
		video:   "XDTGraphVideo",
		sidecar: "XDTGraphSidecar",
		author:  []string{"user", "owner"},
	}
)

var (
	likeAliases = []string{
		"edge_media_preview_like.count",
		"edge_liked_by.count",
		"like_count",
	}
	commentAliases = []string{
		"edge_media_to_parent_comment.count",
		"edge_media_to_comment.count",
		"edge_media_preview_comment.count",
		"comment_count",
	}
)

func (d graphDialect) kind(typename string) (models.Kind, error) {
	switch typename {
	case d.image:
		return models.KindImage, nil
	case d.video:
		return models.KindVideo, nil
	case d.sidecar:
		return models.KindMulti, nil
	}
	return "", errors.UnrecognizedSchema(fmt.Sprintf("unknown discriminator %q", typename))
}

func fromGraph(node map[string]any, d graphDialect) (*models.Post, error) {
	typename := str(node, "__typename")
	if typename == "" {
		return nil, errors.MissingField("__typename")
	}
	kind, err := d.kind(typename)
	if err != nil {
		return nil, err
	}

	shortcode := str(node, "shortcode", "code")
	id := str(node, "id", "pk")
	if shortcode == "" && id == "" {
		return nil, errors.MissingField("shortcode")
	}

	author, err := graphAuthor(node, d)
	if err != nil {
		return nil, err
	}

	created, ok := timestamp(node, "taken_at_timestamp", "taken_at")
	if !ok {
		return nil, errors.MissingField("taken_at_timestamp")
	}

	post := models.Post{
		ID:           id,
		Shortcode:    shortcode,
		URL:          PostURL(shortcode),
		Kind:         kind,
		ThumbnailURL: str(node, "thumbnail_src", "display_url"),
		Width:        integer(node, "dimensions.width", "original_width"),
		Height:       integer(node, "dimensions.height", "original_height"),
		Author:       author,
		CreatedAt:    created,
		LikeCount:    count(node, likeAliases...),
		CommentCount: count(node, commentAliases...),
	}

	if captions := edgeNodes(node, "edge_media_to_caption"); len(captions) > 0 {
		post.Caption = models.String(str(captions[0], "text"))
	} else if text := str(node, "caption.text"); text != "" {
		post.Caption = models.String(text)
	}

	switch kind {
	case models.KindImage:
		post.Image = graphImage(node)
	case models.KindVideo:
		post.Video = graphVideo(node)
	case models.KindMulti:
		items, err := graphChildren(node, d)
		if err != nil {
			return nil, err
		}
		post.Items = items
	}

	return models.New(post)
}

func graphAuthor(node map[string]any, d graphDialect) (models.User, error) {
	owner := object(node, d.author...)
	if owner == nil {
		return models.User{}, errors.MissingField(d.author[0] + ".username")
	}

	user := models.User{
		ID:            str(owner, "id", "pk"),
		Username:      str(owner, "username"),
		FullName:      str(owner, "full_name"),
		AvatarURL:     str(owner, "profile_pic_url"),
		IsVerified:    boolean(owner, "is_verified"),
		IsPrivate:     boolean(owner, "is_private"),
		FollowerCount: count(owner, "edge_followed_by.count", "follower_count"),
		PostCount:     count(owner, "edge_owner_to_timeline_media.count", "media_count"),
	}
	if user.Username == "" {
		return models.User{}, errors.MissingField(d.author[0] + ".username")
	}
	user.ProfileURL = "https://www.instagram.com/" + user.Username + "/"
	return user, nil
}

func graphImage(node map[string]any) *models.Image {
	img := &models.Image{
		URL:                  str(node, "display_url", "display_src"),
		AccessibilityCaption: str(node, "accessibility_caption"),
	}
	for _, r := range list(node, "display_resources") {
		if res, ok := r.(map[string]any); ok {
			if src := str(res, "src"); src != "" {
				img.AltURLs = append(img.AltURLs, src)
			}
		}
	}
	return img
}

func graphVideo(node map[string]any) *models.Video {
	v := &models.Video{
		URL:          str(node, "video_url"),
		HasAudio:     boolean(node, "has_audio"),
		PlayCount:    count(node, "video_play_count"),
		ViewCount:    count(node, "video_view_count"),
		ThumbnailURL: str(node, "display_url", "thumbnail_src"),
	}
	if d, ok := number(node, "video_duration"); ok {
		v.Duration = seconds(d)
	}
	return v
}

// graphChildren classifies each sidecar child by its own discriminator.
func graphChildren(node map[string]any, d graphDialect) ([]models.Item, error) {
	children := edgeNodes(node, "edge_sidecar_to_children")
	if len(children) == 0 {
		return nil, errors.MissingField("edge_sidecar_to_children")
	}

	items := make([]models.Item, 0, len(children))
	for i, child := range children {
		typename := str(child, "__typename")
		if typename == "" {
			return nil, errors.MissingField(fmt.Sprintf("edge_sidecar_to_children.edges[%d].node.__typename", i))
		}
		kind, err := d.kind(typename)
		if err != nil {
			return nil, err
		}

		item := models.Item{
			ID:        str(child, "id"),
			Shortcode: str(child, "shortcode"),
			Kind:      kind,
			Width:     integer(child, "dimensions.width"),
			Height:    integer(child, "dimensions.height"),
		}
		switch kind {
		case models.KindImage:
			item.Image = graphImage(child)
		case models.KindVideo:
			item.Video = graphVideo(child)
		default:
			return nil, errors.UnrecognizedSchema(fmt.Sprintf("sidecar child %d is itself a sidecar", i))
		}
		items = append(items, item)
	}
	return items, nil
}
