package blog

import (
	"strings"

	"github.com/sachtalks/sachtalks-api/pkg/apperrors"
)

// Blog is a post as served to callers. Visible publicly iff Published && !Deleted.
type Blog struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Slug      string  `json:"slug"`
	Excerpt   *string `json:"excerpt,omitempty"`
	Content   string  `json:"content"`
	ImageURL  *string `json:"image_url,omitempty"`
	ImageData *string `json:"image_data,omitempty"`
	ImageMime *string `json:"image_mime,omitempty"`
	Category  *string `json:"category,omitempty"`
	Published bool    `json:"published"`
	Deleted   bool    `json:"deleted"`
	CreatedAt string  `json:"createdAt"`
}

// Visible reports whether public read paths may return the post.
func (b *Blog) Visible() bool { return b.Published && !b.Deleted }

// Image returns the image source to render: the URL when set, else an inline data URI, else "".
func (b *Blog) Image() string {
	if b.ImageURL != nil && *b.ImageURL != "" {
		return *b.ImageURL
	}
	if b.ImageData != nil && *b.ImageData != "" && b.ImageMime != nil && *b.ImageMime != "" {
		return "data:" + *b.ImageMime + ";base64," + *b.ImageData
	}
	return ""
}

// Input is what a caller may supply on create. It has no identifier or timestamp.
type Input struct {
	Title     string  `json:"title"`
	Slug      string  `json:"slug"`
	Excerpt   *string `json:"excerpt,omitempty"`
	Content   string  `json:"content"`
	ImageURL  *string `json:"image_url,omitempty"`
	ImageData *string `json:"image_data,omitempty"`
	ImageMime *string `json:"image_mime,omitempty"`
	Category  *string `json:"category,omitempty"`
	Published bool    `json:"published"`
}

func (in Input) Validate() error {
	fields := map[string]string{}
	if strings.TrimSpace(in.Title) == "" {
		fields["title"] = "title is required"
	}
	if strings.TrimSpace(in.Slug) == "" {
		fields["slug"] = "slug is required"
	} else if strings.ContainsAny(in.Slug, " /?#") {
		fields["slug"] = "slug must not contain spaces, '/', '?' or '#'"
	}
	if strings.TrimSpace(in.Content) == "" {
		fields["content"] = "content is required"
	}
	if len(fields) > 0 {
		return apperrors.Validation(fields)
	}
	return nil
}

// Patchable lists the fields a partial update may set.
var Patchable = map[string]bool{
	"title": true, "slug": true, "excerpt": true, "content": true,
	"image_url": true, "image_data": true, "image_mime": true,
	"category": true, "published": true, "deleted": true,
}
