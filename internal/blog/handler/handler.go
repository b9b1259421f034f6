package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sachtalks/sachtalks-api/internal/blog"
	"github.com/sachtalks/sachtalks-api/internal/blog/repository"
	"github.com/sachtalks/sachtalks-api/pkg/apperrors"
	"github.com/sachtalks/sachtalks-api/pkg/logger"
)

const maxImageBytes = 5 << 20

// ImageStore keeps uploaded blog images and returns the URL to reference them by.
type ImageStore interface {
	StoreImage(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error)
}

func fail(c *gin.Context, err error) {
	status, body := apperrors.Body(err)
	if status >= http.StatusInternalServerError {
		logger.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, body)
}

// RegisterPublicRoutes mounts the read paths. Only published, non-deleted posts are returned.
func RegisterPublicRoutes(r gin.IRouter, repo repository.Repository) {
	r.GET("/api/blogs", func(c *gin.Context) {
		limit := 0
		if s := c.Query("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 0 {
				fail(c, apperrors.Client("limit must be a non-negative integer"))
				return
			}
			limit = n
		}
		list, err := repo.ListPublished(c.Request.Context(), limit)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	})

	r.GET("/api/blogs/:slug", func(c *gin.Context) {
		b, err := repo.GetBySlug(c.Request.Context(), c.Param("slug"))
		if err != nil {
			fail(c, err)
			return
		}
		if b == nil {
			fail(c, apperrors.NotFound("blog %q not found", c.Param("slug")))
			return
		}
		c.JSON(http.StatusOK, b)
	})
}

// RegisterAdminRoutes mounts the management paths on rg, which the caller protects.
// images may be nil, in which case uploads answer 503.
func RegisterAdminRoutes(rg gin.IRouter, repo repository.Repository, images ImageStore) {
	g := rg.Group("/blogs")

	g.GET("", func(c *gin.Context) {
		list, err := repo.ListAll(c.Request.Context())
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	})

	g.POST("", func(c *gin.Context) {
		var in blog.Input
		if err := c.ShouldBindJSON(&in); err != nil {
			fail(c, apperrors.Client("invalid body: %v", err))
			return
		}
		if err := in.Validate(); err != nil {
			fail(c, err)
			return
		}
		b, err := repo.Create(c.Request.Context(), in)
		if err != nil {
			fail(c, err)
			return
		}
		logger.Infof("blog created id=%s slug=%s", b.ID, b.Slug)
		c.JSON(http.StatusCreated, b)
	})

	g.PATCH("/:id", func(c *gin.Context) {
		var partial map[string]interface{}
		if err := json.NewDecoder(c.Request.Body).Decode(&partial); err != nil {
			fail(c, apperrors.Client("invalid body: %v", err))
			return
		}
		unknown := map[string]string{}
		for k, v := range partial {
			if !blog.Patchable[k] && k != "_id" && k != "id" {
				unknown[k] = "field cannot be updated"
				continue
			}
			if k == "published" || k == "deleted" {
				if _, ok := v.(bool); !ok {
					unknown[k] = "must be a boolean"
				}
			}
		}
		if len(unknown) > 0 {
			fail(c, apperrors.Validation(unknown))
			return
		}
		if err := repo.Update(c.Request.Context(), c.Param("id"), partial); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": c.Param("id")})
	})

	g.DELETE("/:id", func(c *gin.Context) {
		if err := repo.SoftDelete(c.Request.Context(), c.Param("id")); err != nil {
			fail(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})

	g.DELETE("/:id/purge", func(c *gin.Context) {
		if err := repo.HardDelete(c.Request.Context(), c.Param("id")); err != nil {
			fail(c, err)
			return
		}
		logger.Infof("blog purged id=%s", c.Param("id"))
		c.Status(http.StatusNoContent)
	})

	g.POST("/images", func(c *gin.Context) {
		if images == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "image storage is not configured"})
			return
		}
		fh, err := c.FormFile("image")
		if err != nil {
			fail(c, apperrors.Validation(map[string]string{"image": "image file is required"}))
			return
		}
		if fh.Size > maxImageBytes {
			fail(c, apperrors.Validation(map[string]string{"image": "image must be at most 5 MB"}))
			return
		}
		ct := fh.Header.Get("Content-Type")
		if !strings.HasPrefix(ct, "image/") {
			fail(c, apperrors.Validation(map[string]string{"image": "file must be an image"}))
			return
		}
		f, err := fh.Open()
		if err != nil {
			fail(c, apperrors.Client("unreadable upload: %v", err))
			return
		}
		defer f.Close()
		url, err := images.StoreImage(c.Request.Context(), path.Base(fh.Filename), f, fh.Size, ct)
		if err != nil {
			fail(c, apperrors.Upstream(err, "image upload failed"))
			return
		}
		c.JSON(http.StatusCreated, gin.H{"image_url": url})
	})
}
