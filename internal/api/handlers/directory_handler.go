package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func NewDirectoryHandler(checker EndpointChecker) *DirectoryHandler {
	return &DirectoryHandler{checker: checker}
}

// ADMIN: EndpointsHandler probes every configured directory server
func (h *DirectoryHandler) EndpointsHandler(c *gin.Context) {
	statuses := h.checker.Check(c.Request.Context())

	endpoints := make([]EndpointStatusResponse, 0, len(statuses))
	healthy := 0
	for _, status := range statuses {
		resp := EndpointStatusResponse{
			Address:   status.Address,
			Healthy:   status.Err == nil,
			LatencyMS: status.Latency.Milliseconds(),
		}
		if status.Err != nil {
			resp.Error = status.Err.Error()
		} else {
			healthy++
		}
		endpoints = append(endpoints, resp)
	}

	c.JSON(http.StatusOK, gin.H{
		"endpoints":     endpoints,
		"count":         len(endpoints),
		"healthy_count": healthy,
	})
}
