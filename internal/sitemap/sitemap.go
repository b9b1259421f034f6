// Package sitemap renders sitemap.xml from the static routes and the published blog posts.
package sitemap

import (
	"bytes"
	"context"
	"encoding/xml"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sachtalks/sachtalks-api/internal/blog"
	"github.com/sachtalks/sachtalks-api/pkg/logger"
)

const (
	namespace    = "http://www.sitemaps.org/schemas/sitemap/0.9"
	cacheControl = "public, s-maxage=3600, stale-while-revalidate=86400"
)

// Source lists visible posts. Only Slug and CreatedAt are read.
type Source interface {
	PublishedSlugs(ctx context.Context) ([]blog.Blog, error)
}

type page struct {
	path       string
	priority   string
	changefreq string
}

var staticPages = []page{
	{"/", "1.0", "daily"},
	{"/blog", "0.9", "daily"},
	{"/videos", "0.9", "daily"},
	{"/about", "0.8", "monthly"},
	{"/contact", "0.7", "monthly"},
	{"/privacy-policy", "0.5", "yearly"},
	{"/terms-of-service", "0.5", "yearly"},
	{"/disclaimer", "0.5", "yearly"},
}

type urlset struct {
	XMLName xml.Name `xml:"urlset"`
	Xmlns   string   `xml:"xmlns,attr"`
	URLs    []entry  `xml:"url"`
}

type entry struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod"`
	ChangeFreq string `xml:"changefreq"`
	Priority   string `xml:"priority"`
}

type Generator struct {
	base string
	src  Source
	now  func() time.Time
}

// New builds a generator for the site rooted at base, e.g. https://sachtalks.in.
func New(base string, src Source) *Generator {
	return &Generator{base: strings.TrimRight(base, "/"), src: src, now: time.Now}
}

// Build renders the full sitemap. Any failure fetching posts is returned.
func (g *Generator) Build(ctx context.Context) ([]byte, error) {
	today := g.now().UTC().Format("2006-01-02")
	set := urlset{Xmlns: namespace}
	for _, p := range staticPages {
		set.URLs = append(set.URLs, entry{Loc: g.base + p.path, LastMod: today, ChangeFreq: p.changefreq, Priority: p.priority})
	}
	if g.src != nil {
		posts, err := g.src.PublishedSlugs(ctx)
		if err != nil {
			return nil, err
		}
		for _, b := range posts {
			if b.Slug == "" {
				continue
			}
			set.URLs = append(set.URLs, entry{
				Loc:        g.base + "/blog/" + b.Slug,
				LastMod:    datePart(b.CreatedAt, today),
				ChangeFreq: "weekly",
				Priority:   "0.8",
			})
		}
	}
	return encode(set)
}

// Fallback is the one-entry sitemap served when Build fails.
func (g *Generator) Fallback() []byte {
	out, _ := encode(urlset{Xmlns: namespace, URLs: []entry{{
		Loc:        g.base + "/",
		LastMod:    g.now().UTC().Format("2006-01-02"),
		ChangeFreq: "daily",
		Priority:   "1.0",
	}}})
	return out
}

func datePart(ts, def string) string {
	if i := strings.IndexByte(ts, 'T'); i > 0 {
		return ts[:i]
	}
	if ts != "" {
		return ts
	}
	return def
}

func encode(set urlset) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(set); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// RegisterRoutes mounts GET /sitemap.xml and GET /api/sitemap.xml. The response is always 200.
func RegisterRoutes(r gin.IRouter, g *Generator) {
	serve := func(c *gin.Context) {
		body, err := g.Build(c.Request.Context())
		if err != nil {
			logger.Errorf("sitemap: %v", err)
			body = g.Fallback()
		}
		c.Header("Cache-Control", cacheControl)
		c.Data(http.StatusOK, "application/xml; charset=utf-8", body)
	}
	notAllowed := func(c *gin.Context) {
		c.Header("Allow", http.MethodGet)
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
	}
	for _, p := range []string{"/sitemap.xml", "/api/sitemap.xml"} {
		r.GET(p, serve)
		r.POST(p, notAllowed)
		r.PUT(p, notAllowed)
		r.DELETE(p, notAllowed)
	}
}
