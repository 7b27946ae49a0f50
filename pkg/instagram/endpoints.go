package instagram

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/url"
	"strings"

	"instagramdl/pkg/normalizer"
)

const (
	// BaseURL is the base URL for Instagram
	BaseURL = "https://www.instagram.com"

	// GraphQLEndpoint serves the public post API
	GraphQLEndpoint = BaseURL + "/api/graphql"

	// QueryEndpoint serves the internal persisted queries
	QueryEndpoint = BaseURL + "/graphql/query/"

	// DefaultDocID is the persisted document the post API expects
	DefaultDocID = "7341532402634560"

	// DefaultQueryHash selects the shortcode media query
	DefaultQueryHash = "b3055c01b4b222b8a47dc12b090e4e64"

	// UnavailableText is what the post page shows for removed or private posts
	UnavailableText = "Sorry, this page isn't available"
)

const randomAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RandomString returns n random alphanumeric characters
func RandomString(n int) string {
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(randomAlphabet[rand.Intn(len(randomAlphabet))])
	}
	return b.String()
}

func shortcodeVariables(shortcode string) string {
	v, _ := json.Marshal(map[string]string{"shortcode": shortcode})
	return string(v)
}

// GraphQLForm builds the form body of a post API request. __hs and lsd are
// throwaway tokens the endpoint only checks for presence.
func GraphQLForm(shortcode, docID string) url.Values {
	if docID == "" {
		docID = DefaultDocID
	}
	form := url.Values{}
	form.Set("__hs", RandomString(10))
	form.Set("lsd", RandomString(11))
	form.Set("variables", shortcodeVariables(shortcode))
	form.Set("doc_id", docID)
	return form
}

// GetQueryURL builds the internal query URL for a shortcode
func GetQueryURL(shortcode, queryHash string) string {
	if queryHash == "" {
		queryHash = DefaultQueryHash
	}
	params := url.Values{}
	params.Set("query_hash", queryHash)
	params.Set("variables", shortcodeVariables(shortcode))
	return QueryEndpoint + "?" + params.Encode()
}

// GetPostURL constructs the URL for a specific post
func GetPostURL(shortcode string) string {
	return normalizer.PostURL(shortcode)
}

// GetUserProfileURL constructs the public profile URL for a user
func GetUserProfileURL(username string) string {
	if username == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s/", BaseURL, username)
}

// ShortcodeFromURL extracts the shortcode of a post URL
func ShortcodeFromURL(postURL string) string {
	return normalizer.ShortcodeFromURL(postURL)
}

// IsPostURL reports whether raw looks like an Instagram post URL
func IsPostURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if host != "instagram.com" && host != "instagr.am" {
		return false
	}
	for _, seg := range strings.Split(u.Path, "/") {
		switch seg {
		case "p", "reel", "reels", "tv":
			return ShortcodeFromURL(raw) != seg
		}
	}
	return false
}
