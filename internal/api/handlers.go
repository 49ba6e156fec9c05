package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"revforecast/internal/crm"
	"revforecast/internal/forecast"
	"revforecast/internal/history"

	"github.com/gin-gonic/gin"
)

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": serviceName,
		"version": s.cfg.Version,
	})
}

// getForecast forecasts a workspace's pipeline fetched from the backend.
func (s *Server) getForecast(c *gin.Context) {
	trials := 0
	if raw := c.Query("num_simulations"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "num_simulations must be an integer"})
			return
		}
		trials = n
	}

	resp, err := s.service.Forecast(c.Request.Context(), forecast.Request{
		WorkspaceID: c.Query("workspace_id"),
		Timeframe:   c.DefaultQuery("timeframe", "30d"),
		Scenario:    c.DefaultQuery("scenario", "likely"),
		Trials:      trials,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

type forecastBody struct {
	WorkspaceID    string          `json:"workspace_id"`
	Timeframe      string          `json:"timeframe"`
	Scenario       string          `json:"scenario"`
	NumSimulations int             `json:"num_simulations"`
	Deals          json.RawMessage `json:"deals"`
}

// postForecast forecasts caller-supplied deals.
func (s *Server) postForecast(c *gin.Context) {
	var body forecastBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if len(body.Deals) == 0 || string(body.Deals) == "null" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "deals are required"})
		return
	}
	deals, err := crm.DecodeDeals(body.Deals)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := s.service.Forecast(c.Request.Context(), forecast.Request{
		WorkspaceID: body.WorkspaceID,
		Timeframe:   body.Timeframe,
		Scenario:    body.Scenario,
		Trials:      body.NumSimulations,
		Deals:       deals,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) listForecasts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"forecasts": s.service.History(c.Query("workspace_id")),
	})
}

type actualBody struct {
	ActualRevenue *float64 `json:"actual_revenue"`
}

func (s *Server) recordActual(c *gin.Context) {
	var body actualBody
	if err := c.ShouldBindJSON(&body); err != nil || body.ActualRevenue == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "actual_revenue is required"})
		return
	}

	acc, err := s.service.TrackAccuracy(c.Param("id"), *body.ActualRevenue)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, acc)
}

// fail maps service errors to HTTP status codes.
func (s *Server) fail(c *gin.Context, err error) {
	_ = c.Error(err)

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, forecast.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, history.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, forecast.ErrBackend):
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
