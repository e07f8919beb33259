// Package pricing is the client for the remote flight pricing function:
// flight search and the price prediction window for a route.
package pricing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tripcart/internal/config"
	"tripcart/internal/models"

	"github.com/karlseguin/ccache/v3"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrCollaborator wraps every transport, status or decoding failure of the
// pricing function. Callers treat it as recoverable.
var ErrCollaborator = errors.New("pricing service unavailable")

const (
	searchPath      = "/flight-prices"
	predictionsPath = "/price-predictions"

	predictionKeyPrefix = "predictions:"
	maxErrorBody        = 512
)

// Client calls the pricing function. Predictions are cached in process
// (ccache) and, when configured, in Redis shared between replicas.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zerolog.Logger

	local    *ccache.Cache[[]models.PricePrediction]
	redis    *redis.Client
	cacheTTL time.Duration
}

// NewClient constructs a client from the pricing config.
func NewClient(cfg config.PricingConfig, logger *zerolog.Logger) *Client {
	size := cfg.LocalCacheSize
	if size <= 0 {
		size = 1000
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
		local:      ccache.New(ccache.Configure[[]models.PricePrediction]().MaxSize(size)),
		cacheTTL:   cfg.PredictionCacheTTL,
	}
}

// UseRedisCache configures the shared prediction cache.
func (c *Client) UseRedisCache(redisClient *redis.Client) {
	c.redis = redisClient
}

// Stop releases the local cache worker.
func (c *Client) Stop() {
	c.local.Stop()
}

// SearchFlights posts the search to the pricing function.
func (c *Client) SearchFlights(ctx context.Context, req models.FlightSearchRequest) (*models.FlightSearchResponse, error) {
	var resp models.FlightSearchResponse
	if err := c.doPost(ctx, c.baseURL+searchPath, req, &resp); err != nil {
		return nil, err
	}
	if resp.Flights == nil {
		resp.Flights = []models.FlightOffer{}
	}
	if resp.Source != models.SourceCache {
		resp.Source = models.SourceAPI
	}
	return &resp, nil
}

type predictionsResponse struct {
	Predictions []models.PricePrediction `json:"predictions"`
}

// GetPredictions returns the prediction window around date for a route.
func (c *Client) GetPredictions(ctx context.Context, origin, destination, date string) ([]models.PricePrediction, error) {
	key := fmt.Sprintf("%s%s:%s:%s", predictionKeyPrefix, origin, destination, date)

	if item := c.local.Get(key); item != nil && !item.Expired() {
		c.logger.Debug().Str("key", key).Msg("Prediction cache hit (local)")
		return item.Value(), nil
	}

	var wrap predictionsResponse
	if c.readCache(ctx, key, &wrap) {
		c.logger.Debug().Str("key", key).Msg("Prediction cache hit (redis)")
		c.local.Set(key, wrap.Predictions, c.cacheTTL)
		return wrap.Predictions, nil
	}

	q := url.Values{}
	q.Set("origin", origin)
	q.Set("destination", destination)
	q.Set("date", date)
	if err := c.doGet(ctx, c.baseURL+predictionsPath+"?"+q.Encode(), &wrap); err != nil {
		return nil, err
	}

	wrap.Predictions = normalizePredictions(wrap.Predictions)
	if c.cacheTTL > 0 {
		c.local.Set(key, wrap.Predictions, c.cacheTTL)
		c.writeCache(ctx, key, wrap)
	}
	return wrap.Predictions, nil
}

func normalizePredictions(in []models.PricePrediction) []models.PricePrediction {
	out := make([]models.PricePrediction, 0, len(in))
	for _, p := range in {
		switch p.Recommendation {
		case models.RecommendBuy, models.RecommendWait, models.RecommendNeutral:
		default:
			p.Recommendation = models.RecommendNeutral
		}
		if p.Confidence < 0 {
			p.Confidence = 0
		}
		if p.Confidence > 100 {
			p.Confidence = 100
		}
		out = append(out, p)
	}
	return out
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Str("key", key).Msg("Prediction cache read failed")
		}
		return false
	}
	return json.Unmarshal(val, out) == nil
}

func (c *Client) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, key, data, c.cacheTTL).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Prediction cache write failed")
	}
}

func (c *Client) doGet(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCollaborator, err)
	}
	c.addHeaders(req)
	return c.do(req, out)
}

func (c *Client) doPost(ctx context.Context, endpoint string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCollaborator, err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.addHeaders(req)
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCollaborator, err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Pricing call")

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: http %d: %s", ErrCollaborator, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrCollaborator, err)
	}
	return nil
}

func (c *Client) addHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}
