package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sachtalks/sachtalks-api/internal/contact"
	"github.com/sachtalks/sachtalks-api/internal/contact/repository"
	"github.com/sachtalks/sachtalks-api/pkg/apperrors"
	"github.com/sachtalks/sachtalks-api/pkg/logger"
)

const received = "Your message has been received. We'll get back to you soon!"

func fail(c *gin.Context, err error) {
	status, body := apperrors.Body(err)
	if status >= http.StatusInternalServerError {
		logger.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, body)
}

// RegisterSubmitRoutes mounts the public contact form endpoint on /contact and /api/contact.
// limits run before the submit handler only.
func RegisterSubmitRoutes(r gin.IRouter, repo repository.Repository, limits ...gin.HandlerFunc) {
	submit := func(c *gin.Context) {
		var in contact.Input
		if err := c.ShouldBindJSON(&in); err != nil {
			fail(c, apperrors.Client("invalid body: %v", err))
			return
		}
		in = in.Normalize()
		if err := in.Validate(); err != nil {
			fail(c, err)
			return
		}
		s, err := repo.Create(c.Request.Context(), in)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": received, "id": s.ID})
	}
	notAllowed := func(c *gin.Context) {
		c.Header("Allow", http.MethodPost)
		c.JSON(http.StatusMethodNotAllowed, gin.H{"success": false, "error": "Method not allowed. Use POST /api/contact"})
	}
	chain := append(append([]gin.HandlerFunc{}, limits...), submit)
	for _, p := range []string{"/contact", "/api/contact"} {
		r.POST(p, chain...)
		r.GET(p, notAllowed)
		r.PUT(p, notAllowed)
		r.DELETE(p, notAllowed)
	}
}

// RegisterAdminRoutes mounts the inbox paths on rg, which the caller protects.
func RegisterAdminRoutes(rg gin.IRouter, repo repository.Repository) {
	g := rg.Group("/contacts")

	g.GET("", func(c *gin.Context) {
		list, err := repo.ListAll(c.Request.Context())
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	})

	g.GET("/unread-count", func(c *gin.Context) {
		n, err := repo.UnreadCount(c.Request.Context())
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": n})
	})

	g.POST("/:id/read", func(c *gin.Context) {
		if err := repo.MarkRead(c.Request.Context(), c.Param("id")); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "read": true})
	})

	g.POST("/:id/unread", func(c *gin.Context) {
		if err := repo.MarkUnread(c.Request.Context(), c.Param("id")); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "read": false})
	})

	g.DELETE("/:id", func(c *gin.Context) {
		if err := repo.Delete(c.Request.Context(), c.Param("id")); err != nil {
			fail(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
}
