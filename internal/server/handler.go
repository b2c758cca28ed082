package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"crypto_dash/internal/action"
	"crypto_dash/internal/domain"
	"crypto_dash/internal/infra"
	"crypto_dash/internal/infra/openweather"
)

// RegisterRoutes binds every handler to r.
func (s *Server) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api")
	{
		api.GET("/crypto", s.ListCoins)
		api.GET("/crypto/details", s.CoinDetails)
		api.GET("/crypto/history", s.CoinHistory)
		api.GET("/crypto/prediction", s.CoinPrediction)
		api.GET("/crypto/trending", s.Trending)

		api.GET("/weather", s.Weather)
		api.GET("/weather/cities", s.FavoriteCityWeather)
		api.GET("/history", s.WeatherHistory)
		api.GET("/news", s.News)

		api.GET("/state", s.State)
		api.POST("/thresholds", s.SetThreshold)
		api.DELETE("/thresholds/:coinId/:type", s.RemoveThreshold)
		api.DELETE("/alerts", s.ClearAlerts)

		api.PUT("/favorites/cryptos/:id", s.AddFavoriteCrypto)
		api.DELETE("/favorites/cryptos/:id", s.RemoveFavoriteCrypto)
		api.PUT("/favorites/cities/:city", s.AddFavoriteCity)
		api.DELETE("/favorites/cities/:city", s.RemoveFavoriteCity)

		api.PUT("/view/:mode", s.SwitchView)
		api.POST("/refresh", s.Refresh)

		api.GET("/notifications", s.Notifications)
		api.DELETE("/notifications/:id", s.DismissNotification)
	}
	r.GET("/ws", s.ServeWS)
}

// writeError maps err onto a status code and {error: "..."} body.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, infra.ErrMissingParameter):
		status = http.StatusBadRequest
	case errors.Is(err, infra.ErrUpstreamUnavailable):
		status = http.StatusBadGateway
	}
	if status >= 500 {
		slog.Warn("Request failed", slog.String("path", c.FullPath()), slog.Any("error", err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// ListCoins returns the coin list for ?ids=a,b (default set when absent).
func (s *Server) ListCoins(c *gin.Context) {
	var ids []string
	if raw := c.Query("ids"); raw != "" {
		ids = strings.Split(raw, ",")
	}
	coins, err := s.scheduler.RequestCoins(c.Request.Context(), ids)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"coins": coins})
}

func (s *Server) CoinDetails(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		badRequest(c, "Coin ID is required")
		return
	}
	data, err := s.scheduler.Details(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": data})
}

func (s *Server) CoinHistory(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		badRequest(c, "Coin ID is required")
		return
	}
	days, err := strconv.Atoi(c.DefaultQuery("days", "7"))
	if err != nil || days <= 0 {
		badRequest(c, "invalid days")
		return
	}
	chart, err := s.scheduler.History(c.Request.Context(), id, days)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": chart})
}

func (s *Server) CoinPrediction(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		badRequest(c, "Coin ID is required")
		return
	}
	res, err := s.scheduler.Prediction(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": res})
}

func (s *Server) Trending(c *gin.Context) {
	coins, err := s.scheduler.Trending(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"coins": coins})
}

// Weather looks up ?address= or ?lat=&lon=.
func (s *Server) Weather(c *gin.Context) {
	q := openweather.Query{Address: c.Query("address"), Lat: c.Query("lat"), Lon: c.Query("lon")}
	if !q.Valid() {
		badRequest(c, "Address or coordinates are required")
		return
	}
	data, err := s.scheduler.Weather(c.Request.Context(), q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": data})
}

// FavoriteCityWeather refreshes every favorite city at once.
func (s *Server) FavoriteCityWeather(c *gin.Context) {
	cities, err := s.scheduler.FavoriteCities(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cities": cities})
}

func (s *Server) WeatherHistory(c *gin.Context) {
	city := c.Query("city")
	if city == "" {
		badRequest(c, "City is required")
		return
	}
	data, err := s.scheduler.WeatherHistory(c.Request.Context(), city)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": data})
}

func (s *Server) News(c *gin.Context) {
	items, err := s.scheduler.News(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"news": items})
}

// State returns the current snapshot.
func (s *Server) State(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.GetState())
}

type thresholdRequest struct {
	CoinID string          `json:"coinId" binding:"required"`
	Type   string          `json:"type" binding:"required"`
	Price  decimal.Decimal `json:"price"`
}

// SetThreshold arms one direction for a coin.
func (s *Server) SetThreshold(c *gin.Context) {
	var req thresholdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	dir, err := domain.ParseDirection(req.Type)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	if !req.Price.IsPositive() {
		badRequest(c, "price must be positive")
		return
	}
	st, err := s.store.Dispatch(c.Request.Context(), action.SetPriceAlert{CoinID: req.CoinID, Direction: dir, Price: req.Price})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"thresholds": st.Crypto.Thresholds})
}

func (s *Server) RemoveThreshold(c *gin.Context) {
	dir, err := domain.ParseDirection(c.Param("type"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	st, err := s.store.Dispatch(c.Request.Context(), action.RemovePriceAlert{CoinID: c.Param("coinId"), Direction: dir})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"thresholds": st.Crypto.Thresholds})
}

func (s *Server) ClearAlerts(c *gin.Context) {
	s.dispatchStatus(c, action.ClearAllAlerts{})
}

func (s *Server) AddFavoriteCrypto(c *gin.Context) {
	s.dispatchFavorites(c, action.AddFavoriteCrypto{ID: c.Param("id")})
}

func (s *Server) RemoveFavoriteCrypto(c *gin.Context) {
	s.dispatchFavorites(c, action.RemoveFavoriteCrypto{ID: c.Param("id")})
}

func (s *Server) AddFavoriteCity(c *gin.Context) {
	s.dispatchFavorites(c, action.AddFavoriteCity{City: c.Param("city")})
}

func (s *Server) RemoveFavoriteCity(c *gin.Context) {
	s.dispatchFavorites(c, action.RemoveFavoriteCity{City: c.Param("city")})
}

func (s *Server) dispatchFavorites(c *gin.Context, a action.Action) {
	st, err := s.store.Dispatch(c.Request.Context(), a)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st.Preferences)
}

func (s *Server) dispatchStatus(c *gin.Context, a action.Action) {
	if _, err := s.store.Dispatch(c.Request.Context(), a); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SwitchView records the view and schedules its debounced refresh.
func (s *Server) SwitchView(c *gin.Context) {
	mode, err := domain.ParseViewMode(c.Param("mode"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := s.scheduler.SwitchView(c.Request.Context(), mode); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"viewMode": mode})
}

// Refresh reloads the current view without waiting for the poll.
func (s *Server) Refresh(c *gin.Context) {
	if err := s.scheduler.Refresh(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) Notifications(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"visible":       s.queue.Visible(),
		"notifications": s.queue.Items(),
	})
}

func (s *Server) DismissNotification(c *gin.Context) {
	if !s.queue.Dismiss(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

// ServeWS greets the client with the current state and notifications, then streams changes.
func (s *Server) ServeWS(c *gin.Context) {
	s.hub.ServeWS(c.Writer, c.Request, func() []Frame {
		return []Frame{
			{Type: "state", Data: s.store.GetState()},
			{Type: "notifications", Data: s.queue.Items()},
		}
	})
}
