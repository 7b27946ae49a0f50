package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	errs "instagramdl/pkg/errors"
	"instagramdl/pkg/metadata"
	"instagramdl/pkg/models"
	"instagramdl/pkg/scheduler"
)

const captionWidth = 80

var boxStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("6")).
	Padding(0, 1)

// RenderPost formats the common fields of a post as a bordered block.
func RenderPost(p *models.Post) string {
	rows := [][2]string{
		{"Post", p.Shortcode},
		{"Kind", string(p.Kind)},
		{"Author", "@" + p.Author.Username},
		{"Created", p.CreatedAt.Format("2006-01-02 15:04 MST")},
	}
	if p.LikeCount != nil {
		rows = append(rows, [2]string{"Likes", strconv.Itoa(*p.LikeCount)})
	}
	if p.CommentCount != nil {
		rows = append(rows, [2]string{"Comments", strconv.Itoa(*p.CommentCount)})
	}
	if p.Video != nil && p.Video.ViewCount != nil {
		rows = append(rows, [2]string{"Views", strconv.Itoa(*p.Video.ViewCount)})
	}
	if p.Kind == models.KindMulti {
		rows = append(rows, [2]string{"Items", strconv.Itoa(len(p.Items))})
	}
	rows = append(rows, [2]string{"Aspect", metadata.AspectRatio(p)})
	if caption := metadata.FormattedCaption(p, captionWidth); caption != "" {
		rows = append(rows, [2]string{"Caption", caption})
	}

	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, fmt.Sprintf("%s %s", LabelStyle.Render(fmt.Sprintf("%-9s", r[0])), r[1]))
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}

// PrintResult prints the outcome of one retrieval.
func PrintResult(res *scheduler.Result) {
	if res.Err != nil {
		label := "Failed"
		if errs.IsUnavailable(res.Err) {
			label = "Unavailable"
		}
		PrintError(fmt.Sprintf("%s %s", label, res.URL), res.Err)
		return
	}

	fmt.Fprintln(Output, RenderPost(res.Post))
	for _, p := range res.Paths() {
		fmt.Fprintf(Output, "  %s %s\n", Green("saved"), p)
	}
	for _, err := range res.DownloadErrors() {
		fmt.Fprintf(Output, "  %s %s\n", Red("failed"), Dim(err.Error()))
	}
	if res.MetadataPath != "" {
		fmt.Fprintf(Output, "  %s %s\n", Cyan("metadata"), res.MetadataPath)
	}
}
