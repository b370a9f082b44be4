package api

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"trend-level-bot/internal/cache"
	"trend-level-bot/internal/engine"
	"trend-level-bot/internal/indicators"
	"trend-level-bot/internal/levels"
	"trend-level-bot/internal/market"
	"trend-level-bot/internal/store"

	"github.com/gin-gonic/gin"
)

// detectRequest is the payload for a detection run. Candles and session
// context are supplied by the caller; this service performs no provider
// fetches of its own.
type detectRequest struct {
	Engine        string                           `json:"engine"`
	Symbol        string                           `json:"symbol" binding:"required"`
	Side          string                           `json:"side" binding:"required"`
	BaseTimeframe string                           `json:"base_timeframe"`
	Candles       map[string][]market.Candle       `json:"candles" binding:"required"`
	TickSize      float64                          `json:"tick_size"`
	Session       *detectSession                   `json:"session"`
	Indicators    map[string]interface{}           `json:"indicators"`
	SmashedLevels []float64                        `json:"smashed_levels"`
}

// detectSession carries the session context either precomputed (pivots,
// vwap as scalars) or raw (previous and current session candles), in which
// case the missing pieces are derived server-side.
type detectSession struct {
	Pivots         *indicators.SessionPivots `json:"pivots"`
	VWAP           interface{}               `json:"vwap"`
	PrevDayHigh    interface{}               `json:"prev_day_high"`
	PrevDayLow     interface{}               `json:"prev_day_low"`
	PrevCandles    []market.Candle           `json:"prev_candles"`
	SessionCandles []market.Candle           `json:"session_candles"`
}

// sessionInfo materializes the session context. Precomputed values win;
// pivots, previous-day extremes and VWAP are derived from the raw candles
// when absent.
func sessionInfo(req *detectSession) engine.SessionInfo {
	if req == nil {
		return engine.SessionInfo{}
	}
	info := engine.SessionInfo{
		Pivots:      req.Pivots,
		VWAP:        market.ParseScalar(req.VWAP),
		PrevDayHigh: market.ParseScalar(req.PrevDayHigh),
		PrevDayLow:  market.ParseScalar(req.PrevDayLow),
	}
	if len(req.PrevCandles) > 0 {
		high := maxOf(market.Highs(req.PrevCandles))
		low := minOf(market.Lows(req.PrevCandles))
		prevClose := req.PrevCandles[len(req.PrevCandles)-1].Close
		if info.Pivots == nil {
			pivots := indicators.ClassicPivots(high, low, prevClose)
			info.Pivots = &pivots
		}
		if !info.PrevDayHigh.Valid {
			info.PrevDayHigh = market.ScalarOf(high)
		}
		if !info.PrevDayLow.Valid {
			info.PrevDayLow = market.ScalarOf(low)
		}
	}
	if !info.VWAP.Valid && len(req.SessionCandles) > 0 {
		if v := indicators.VWAP(req.SessionCandles); v > 0 {
			info.VWAP = market.ScalarOf(v)
		}
	}
	return info
}

func maxOf(vals []float64) float64 {
	best := vals[0]
	for _, v := range vals[1:] {
		if v > best {
			best = v
		}
	}
	return best
}

func minOf(vals []float64) float64 {
	best := vals[0]
	for _, v := range vals[1:] {
		if v < best {
			best = v
		}
	}
	return best
}

// handleDetect runs one engine over the supplied context and returns the
// best level, or a null result when nothing qualifies.
func (s *Server) handleDetect(c *gin.Context) {
	var req detectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	side := levels.Side(req.Side)
	if side != levels.SideLong && side != levels.SideShort {
		c.JSON(http.StatusBadRequest, gin.H{"error": "side must be long or short"})
		return
	}

	engineName := req.Engine
	if engineName == "" {
		engineName = s.defaultEngine
	}
	detector, ok := s.engines[engineName]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown engine %q", engineName)})
		return
	}

	baseTimeframe := req.BaseTimeframe
	if baseTimeframe == "" {
		baseTimeframe = s.baseTimeframe
	}

	cacheKey := detectCacheKey(&req, engineName, side)
	if cached, ok := s.cachedResult(c, cacheKey); ok {
		c.Data(http.StatusOK, "application/json", cached)
		return
	}

	in := engine.Input{
		Symbol:        req.Symbol,
		Candles:       req.Candles,
		BaseTimeframe: baseTimeframe,
		TickSize:      req.TickSize,
		Side:          side,
		SmashedLevels: req.SmashedLevels,
		Session:       sessionInfo(req.Session),
	}
	in.Indicators = engine.Indicators{
		ATR:    market.ParseScalar(req.Indicators["atr"]),
		EMA200: market.ParseScalar(req.Indicators["ema200"]),
	}

	candidate := detector.Detect(in)
	body, _ := json.Marshal(gin.H{"engine": engineName, "level": candidate})
	s.storeResult(c, cacheKey, body)
	c.Data(http.StatusOK, "application/json", body)
}

// recordRequest is the payload for appending a level observation.
type recordRequest struct {
	Symbol     string       `json:"symbol" binding:"required"`
	Timeframe  string       `json:"timeframe" binding:"required"`
	Support    []store.Band `json:"support"`
	Resistance []store.Band `json:"resistance"`
	SourceTS   *time.Time   `json:"source_ts"`
}

// handleRecordLevels appends one snapshot row.
func (s *Server) handleRecordLevels(c *gin.Context) {
	var req recordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	snap := &store.Snapshot{
		Symbol:     req.Symbol,
		Timeframe:  req.Timeframe,
		Support:    req.Support,
		Resistance: req.Resistance,
	}
	if req.SourceTS != nil {
		snap.SourceTS = *req.SourceTS
	}

	if err := s.levels.Record(c.Request.Context(), snap); err != nil {
		s.log.Error().Err(err).Str("symbol", req.Symbol).Msg("record levels failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record levels"})
		return
	}
	c.JSON(http.StatusCreated, snap)
}

// handleQueryLevels answers a freshness lookup for a symbol.
func (s *Server) handleQueryLevels(c *gin.Context) {
	symbol := c.Param("symbol")

	maxAgeFloor := 0
	if v := c.Query("max_age_floor_minutes"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "max_age_floor_minutes must be an integer"})
			return
		}
		maxAgeFloor = n
	}

	var preferred []string
	if v := c.Query("timeframes"); v != "" {
		preferred = strings.Split(v, ",")
	}

	fresh, err := s.levels.Query(c.Request.Context(), store.Query{
		Symbol:              symbol,
		MaxAgeFloorMinutes:  maxAgeFloor,
		PreferredTimeframes: preferred,
	})
	if err != nil {
		s.log.Error().Err(err).Str("symbol", symbol).Msg("level query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query levels"})
		return
	}
	if fresh == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no usable levels"})
		return
	}
	c.JSON(http.StatusOK, fresh)
}

// detectCacheKey keys a result by symbol, engine, side and a digest of the
// full payload, so requests with different candles never share an entry.
func detectCacheKey(req *detectRequest, engineName string, side levels.Side) string {
	payload, _ := json.Marshal(req)
	sum := sha256.Sum256(payload)
	return fmt.Sprintf("detect:%s:%s:%s:%x", req.Symbol, engineName, side, sum[:8])
}

func (s *Server) cachedResult(c *gin.Context, key string) ([]byte, bool) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return nil, false
	}
	body, err := s.cache.Get(c.Request.Context(), key)
	if err != nil {
		if err != cache.ErrMiss {
			s.log.Warn().Err(err).Msg("result cache read failed")
		}
		return nil, false
	}
	return body, true
}

func (s *Server) storeResult(c *gin.Context, key string, body []byte) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}
	if err := s.cache.Set(c.Request.Context(), key, body, s.cacheTTL); err != nil {
		s.log.Warn().Err(err).Msg("result cache write failed")
	}
}
