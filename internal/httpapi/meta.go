package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleRobots(c *gin.Context) {
	origin := s.origin(c)
	body := fmt.Sprintf("User-agent: *\nAllow: /\nDisallow: /api/\nSitemap: %s/sitemap.xml\n", origin)
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(body))
}

func (s *Server) handleSitemap(c *gin.Context) {
	origin := s.origin(c)
	body := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url>
    <loc>%s/</loc>
    <changefreq>daily</changefreq>
    <priority>1.0</priority>
  </url>
</urlset>
`, origin)
	c.Data(http.StatusOK, "application/xml; charset=utf-8", []byte(body))
}

// origin prefers the configured public base URL, then forwarded headers,
// then the request itself
func (s *Server) origin(c *gin.Context) string {
	if base := strings.TrimSuffix(s.cfg.Server.PublicBaseURL, "/"); base != "" {
		return base
	}
	scheme := c.GetHeader("X-Forwarded-Proto")
	host := c.GetHeader("X-Forwarded-Host")
	if scheme == "" {
		scheme = "http"
		if c.Request.TLS != nil {
			scheme = "https"
		}
	}
	if host == "" {
		host = c.Request.Host
	}
	return scheme + "://" + host
}
