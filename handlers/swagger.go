package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the site API.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg gin.IRouter) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(swaggerHTML))
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>sachtalks-api Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "sachtalks-api", "version": "v1.0.0" },
  "components": { "securitySchemes": { "bearer": { "type": "http", "scheme": "bearer", "bearerFormat": "JWT" } } },
  "paths": {
    "/api/mongodb-api": {
      "post": {
        "summary": "Run one document store action",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","required":["action","collection"],"properties":{"action":{"type":"string","enum":["find","findOne","insertOne","updateOne","deleteOne","count"]},"collection":{"type":"string"},"query":{"type":"object"},"data":{"type":"object"},"options":{"type":"object","properties":{"sort":{"type":"object"},"limit":{"type":"integer"},"skip":{"type":"integer"},"projection":{"type":"object"}}}}}}}},
        "responses": { "200": { "description": "{success:true,data}" }, "400": { "description": "invalid request" }, "405": { "description": "method not allowed" }, "500": { "description": "{success:false,error}" } }
      }
    },
    "/api/blogs": { "get": { "summary": "Published posts, newest first", "parameters": [{"name":"limit","in":"query","schema":{"type":"integer"}}], "responses": { "200": { "description": "posts" } } } },
    "/api/blogs/{slug}": { "get": { "summary": "One published post", "parameters": [{"name":"slug","in":"path","required":true,"schema":{"type":"string"}}], "responses": { "200": { "description": "post" }, "404": { "description": "not found" } } } },
    "/api/contact": {
      "post": {
        "summary": "Submit the contact form",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","required":["name","mobile","email","message"],"properties":{"name":{"type":"string"},"mobile":{"type":"string"},"email":{"type":"string"},"address":{"type":"string"},"message":{"type":"string"}}}}}},
        "responses": { "200": { "description": "received" }, "400": { "description": "validation failed" } }
      }
    },
    "/api/youtube": { "get": { "summary": "Latest channel uploads", "responses": { "200": { "description": "{videos}" }, "404": { "description": "no uploads playlist" }, "502": { "description": "YouTube API failure" } } } },
    "/api/sitemap.xml": { "get": { "summary": "XML sitemap", "responses": { "200": { "description": "sitemap" } } } },
    "/auth/login": {
      "post": {
        "summary": "Exchange the admin password for tokens",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"password":{"type":"string"}}}}}},
        "responses": { "200": { "description": "tokens returned" }, "401": { "description": "incorrect password" } }
      }
    },
    "/auth/refresh": {
      "post": { "summary": "Refresh access token", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"session_token":{"type":"string"}}}}}}, "responses": { "200": { "description": "new access token" }, "401": { "description": "session expired" } } }
    },
    "/auth/logout": {
      "post": { "summary": "End the session and revoke the access token", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"session_token":{"type":"string"}}}}}}, "responses": { "200": { "description": "logged out" } } }
    },
    "/api/admin/blogs": {
      "get": { "summary": "All posts including drafts", "security": [{"bearer":[]}], "responses": { "200": { "description": "posts" } } },
      "post": { "summary": "Create a post", "security": [{"bearer":[]}], "responses": { "201": { "description": "created" }, "400": { "description": "validation failed" } } }
    },
    "/api/admin/blogs/{id}": {
      "patch": { "summary": "Partially update a post", "security": [{"bearer":[]}], "responses": { "200": { "description": "updated" }, "404": { "description": "not found" } } },
      "delete": { "summary": "Soft delete a post", "security": [{"bearer":[]}], "responses": { "204": { "description": "hidden" }, "404": { "description": "not found" } } }
    },
    "/api/admin/blogs/{id}/purge": { "delete": { "summary": "Permanently delete a post", "security": [{"bearer":[]}], "responses": { "204": { "description": "deleted" } } } },
    "/api/admin/blogs/images": { "post": { "summary": "Upload a blog image", "security": [{"bearer":[]}], "responses": { "201": { "description": "{image_url}" }, "503": { "description": "object storage not configured" } } } },
    "/api/admin/contacts": { "get": { "summary": "Contact submissions, newest first", "security": [{"bearer":[]}], "responses": { "200": { "description": "submissions" } } } },
    "/api/admin/contacts/unread-count": { "get": { "summary": "Unread submission count", "security": [{"bearer":[]}], "responses": { "200": { "description": "{count}" } } } },
    "/api/admin/contacts/{id}/read": { "post": { "summary": "Mark read", "security": [{"bearer":[]}], "responses": { "200": { "description": "marked" } } } },
    "/api/admin/contacts/{id}/unread": { "post": { "summary": "Mark unread", "security": [{"bearer":[]}], "responses": { "200": { "description": "marked" } } } },
    "/api/admin/contacts/{id}": { "delete": { "summary": "Delete a submission", "security": [{"bearer":[]}], "responses": { "204": { "description": "deleted" } } } },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "{status:ok}" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } }
  }
}`
