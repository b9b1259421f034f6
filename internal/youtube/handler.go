package youtube

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sachtalks/sachtalks-api/pkg/apperrors"
	"github.com/sachtalks/sachtalks-api/pkg/logger"
)

// RegisterRoutes mounts GET /youtube and GET /api/youtube. Other methods get 405.
func RegisterRoutes(r gin.IRouter, src Source) {
	serve := func(c *gin.Context) {
		vids, err := src.Videos(c.Request.Context())
		if err != nil {
			ae, ok := apperrors.As(err)
			if !ok {
				logger.Errorf("youtube proxy: %v", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load YouTube videos. Please try again later or contact support if the issue persists."})
				return
			}
			if ae.HTTPStatus() >= http.StatusInternalServerError {
				logger.Errorf("youtube proxy: %v", err)
			}
			c.JSON(ae.HTTPStatus(), gin.H{"error": ae.Message})
			return
		}
		c.JSON(http.StatusOK, gin.H{"videos": vids})
	}
	notAllowed := func(c *gin.Context) {
		c.Header("Allow", http.MethodGet)
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed. Use GET /api/youtube"})
	}
	for _, p := range []string{"/youtube", "/api/youtube"} {
		r.GET(p, serve)
		r.POST(p, notAllowed)
		r.PUT(p, notAllowed)
		r.PATCH(p, notAllowed)
		r.DELETE(p, notAllowed)
	}
}
