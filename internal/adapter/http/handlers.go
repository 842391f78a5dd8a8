package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/couchcryptid/disaster-ingest/internal/domain"
	"github.com/couchcryptid/disaster-ingest/internal/pipeline"
)

const (
	// postLimit caps how many stored posts one read request loads.
	postLimit = 1000
	// polygonVertices is the ring resolution of each area polygon.
	polygonVertices = 32
)

// areaResponse is a cluster area with its polygon ring.
type areaResponse struct {
	domain.ClusterArea
	Polygon []domain.Coordinates `json:"polygon"`
}

type analyzeRequest struct {
	Text         string `json:"text"`
	LocationText string `json:"location_text"`
}

type addSourceRequest struct {
	URL      string `json:"url"`
	Username string `json:"username"`
}

func (s *Server) handleRun(c *gin.Context) {
	summary, err := s.deps.Runner.Run(s.runCtx)
	switch {
	case errors.Is(err, pipeline.ErrRunInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, pipeline.ErrNoCrawler):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case err != nil:
		s.logger.Error("ingest run failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, summary)
	}
}

func (s *Server) handlePosts(c *gin.Context) {
	posts, ok := s.filteredPosts(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

func (s *Server) handleAreas(c *gin.Context) {
	posts, ok := s.filteredPosts(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"areas": withPolygons(domain.BuildClusterAreas(domain.ClusterPoints(posts)))})
}

// filteredPosts loads and filters posts from the query string. On failure it
// writes the error response and returns false.
func (s *Server) filteredPosts(c *gin.Context) ([]domain.PostWithAnalysis, bool) {
	all, err := s.deps.Store.ListPostsWithAnalysis(c.Request.Context(), postLimit)
	if err != nil {
		s.logger.Error("list posts failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch posts"})
		return nil, false
	}
	filter := domain.ParsePostFilter(c.Query("severity"), c.Query("disaster_type"), c.Query("area"))
	return domain.FilterPosts(all, filter), true
}

func withPolygons(areas []domain.ClusterArea) []areaResponse {
	out := make([]areaResponse, 0, len(areas))
	for _, a := range areas {
		out = append(out, areaResponse{ClusterArea: a, Polygon: a.Polygon(polygonVertices)})
	}
	return out
}

func (s *Server) handleAnalyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}
	c.JSON(http.StatusOK, s.deps.Analyzer.Analyze(c.Request.Context(), req.Text, req.LocationText))
}

func (s *Server) handleRoute(c *gin.Context) {
	if s.deps.Routes == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "routing is not configured"})
		return
	}
	origin, okOrigin := queryCoordinates(c, "origin")
	dest, okDest := queryCoordinates(c, "dest")
	if !okOrigin || !okDest {
		c.JSON(http.StatusBadRequest, gin.H{"error": "origin and destination coordinates are required"})
		return
	}

	route, err := s.deps.Routes.PlanRoute(c.Request.Context(), origin, dest)
	if err != nil {
		s.logger.Error("route planning failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch route"})
		return
	}
	if route == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
		return
	}

	posts, ok := s.filteredPosts(c)
	if !ok {
		return
	}
	areas := domain.BuildClusterAreas(domain.ClusterPoints(posts))
	c.JSON(http.StatusOK, gin.H{
		"route":      route,
		"assessment": domain.AssessRoute(route.Path, areas),
	})
}

func queryCoordinates(c *gin.Context, prefix string) (domain.Coordinates, bool) {
	lat, errLat := strconv.ParseFloat(c.Query(prefix+"_lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query(prefix+"_lng"), 64)
	if errLat != nil || errLng != nil {
		return domain.Coordinates{}, false
	}
	return domain.Coordinates{Lat: lat, Lng: lng}, true
}

func (s *Server) handleListSources(c *gin.Context) {
	sources, err := s.deps.Store.ListActiveSources(c.Request.Context())
	if err != nil {
		s.logger.Error("list sources failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch sources"})
		return
	}
	if sources == nil {
		sources = []domain.Source{}
	}
	c.JSON(http.StatusOK, gin.H{"sources": sources})
}

func (s *Server) handleAddSource(c *gin.Context) {
	var req addSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	url := strings.TrimSpace(req.URL)
	if url == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}

	id, err := s.deps.Store.AddSource(c.Request.Context(), url, strings.TrimSpace(req.Username))
	if err != nil {
		s.logger.Error("add source failed", "url", url, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add source"})
		return
	}
	s.logger.Info("source added", "id", id, "url", url)
	c.JSON(http.StatusCreated, gin.H{
		"id":               id,
		"account_url":      url,
		"account_username": strings.TrimSpace(req.Username),
	})
}

func (s *Server) handleDeactivateSource(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required"})
		return
	}
	if err := s.deps.Store.DeactivateSource(c.Request.Context(), id); err != nil {
		s.logger.Error("deactivate source failed", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to deactivate source"})
		return
	}
	s.logger.Info("source deactivated", "id", id)
	c.JSON(http.StatusOK, gin.H{"success": true})
}
