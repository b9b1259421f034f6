package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sachtalks/sachtalks-api/internal/dispatch"
)

const maxBodyBytes = 1 << 20

// Paths the dispatcher is reachable on.
var Paths = []string{"/mongodb-api", "/api/mongodb-api"}

// RegisterDispatchRoutes mounts the dispatcher on POST; every other method gets 405.
func RegisterDispatchRoutes(r gin.IRouter, d *dispatch.Dispatcher) {
	serve := func(c *gin.Context) {
		raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
		if err != nil {
			c.JSON(http.StatusBadRequest, dispatch.Failure{Error: "invalid request body: " + err.Error()})
			return
		}
		status, env := d.Serve(c.Request.Context(), raw)
		c.JSON(status, env)
	}
	notAllowed := func(c *gin.Context) {
		c.Header("Allow", http.MethodPost)
		c.JSON(http.StatusMethodNotAllowed, dispatch.Failure{Error: "Method not allowed"})
	}
	for _, p := range Paths {
		r.POST(p, serve)
		for _, m := range []string{http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodHead} {
			r.Handle(m, p, notAllowed)
		}
	}
}
