package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"khobor.news/khobor/internal/clock"
	"khobor.news/khobor/internal/db"
	"khobor.news/khobor/internal/schema"
	"khobor.news/khobor/internal/scrape"
)

const maxRequestBodyBytes = 1 << 20

type scrapeRequest struct {
	Sources        []string `json:"sources"`
	LimitPerSource int      `json:"limit_per_source"`
}

func (s *Server) handleScrape(c echo.Context) error {
	if s.scraper == nil {
		return serviceUnavailable(c, "Scraping is not available")
	}

	var req scrapeRequest
	if err := decodeJSONBody(c, &req); err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}
	if req.LimitPerSource < 0 {
		return failValidation(c, map[string]string{"limit_per_source": "must be >= 0"})
	}

	keys := make([]string, 0, len(req.Sources))
	var unknown []string
	for _, raw := range req.Sources {
		key := strings.TrimSpace(raw)
		if key == "" {
			continue
		}
		if _, err := s.registry.Get(key); err != nil {
			unknown = append(unknown, key)
			continue
		}
		keys = append(keys, key)
	}
	if len(unknown) > 0 {
		return fail(c, http.StatusBadRequest,
			fmt.Sprintf("Invalid sources: %s", strings.Join(unknown, ", ")),
			map[string]any{"available": s.registry.Keys()})
	}

	message := "Started scraping all sources"
	started := s.registry.Keys()
	if len(keys) > 0 {
		message = fmt.Sprintf("Started scraping %d sources", len(keys))
		started = keys
	}

	runOpts := scrape.RunOptions{
		Sources:        keys,
		LimitPerSource: req.LimitPerSource,
	}
	s.background("scrape", func(ctx context.Context) {
		if _, err := s.scraper.Run(ctx, runOpts); err != nil {
			s.logger.Error().Err(err).Msg("background scrape run failed")
		}
	})

	return successWithStatus(c, http.StatusAccepted, map[string]any{
		"message": message,
		"sources": started,
	})
}

func (s *Server) handleDedup(c echo.Context) error {
	if s.deduper == nil {
		return serviceUnavailable(c, "Deduplication is not available")
	}

	s.background("dedup", func(ctx context.Context) {
		if _, err := s.deduper.Run(ctx); err != nil {
			s.logger.Error().Err(err).Msg("background dedup run failed")
			return
		}
		if _, err := s.deduper.Compact(ctx); err != nil {
			s.logger.Error().Err(err).Msg("background compaction failed")
		}
	})

	return successWithStatus(c, http.StatusAccepted, map[string]any{
		"message": "Started deduplication process",
	})
}

func (s *Server) handleSubmitArticle(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxRequestBodyBytes))
	if err != nil {
		return failValidation(c, map[string]string{"body": "could not read request body"})
	}

	payload, err := schema.ValidateRawArticlePayload(body)
	if err != nil {
		return failValidation(c, map[string]string{"payload": err.Error()})
	}

	record := db.RawArticle{
		Source:    strings.TrimSpace(payload.Source),
		SourceURL: strings.TrimSpace(payload.SourceURL),
		Title:     strings.TrimSpace(payload.Title),
		ScrapedAt: clock.UTC(),
		Category:  payload.Category,
		ImageURL:  payload.ImageURL,
		Tags:      db.TagsJSON(payload.Tags),
		Lat:       payload.Lat,
		Lng:       payload.Lng,
		Language:  payload.Language,
	}
	if payload.Description != nil {
		record.Description = strings.TrimSpace(*payload.Description)
	}
	if ts := payload.Published(); !ts.IsZero() {
		record.PublishedAt = &ts
	}

	if _, err := s.store.InsertRawBatch(c.Request().Context(), []db.RawArticle{record}); err != nil {
		s.logger.Error().Err(err).Str("source_url", record.SourceURL).Msg("store submitted article failed")
		return internalError(c, "Failed to store article")
	}

	return successWithStatus(c, http.StatusCreated, map[string]any{
		"message":    "Article accepted",
		"source_url": record.SourceURL,
	})
}

func decodeJSONBody(c echo.Context, dest any) error {
	if c == nil || c.Request() == nil || c.Request().Body == nil {
		return fmt.Errorf("request body is required")
	}

	decoder := json.NewDecoder(io.LimitReader(c.Request().Body, maxRequestBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("request body is required")
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}
