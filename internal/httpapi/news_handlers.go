package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"khobor.news/khobor/internal/db"
)

var errInvalidBounds = errors.New("invalid bounds")

type articleItem struct {
	ID          int64      `json:"id"`
	Source      string     `json:"source"`
	SourceURL   string     `json:"source_url"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	ScrapedAt   time.Time  `json:"scraped_at"`
	Category    *string    `json:"category,omitempty"`
	ImageURL    *string    `json:"image_url,omitempty"`
	Tags        []string   `json:"tags"`
	Lat         *float64   `json:"lat,omitempty"`
	Lng         *float64   `json:"lng,omitempty"`
	Language    *string    `json:"language,omitempty"`
}

type mapPoint struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Source      string     `json:"source"`
	Category    *string    `json:"category,omitempty"`
	Lat         float64    `json:"lat"`
	Lng         float64    `json:"lng"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	SourceURL   string     `json:"source_url"`
	ImageURL    *string    `json:"image_url,omitempty"`
}

type sourceItem struct {
	Key           string `json:"key"`
	Name          string `json:"name"`
	BaseURL       string `json:"base_url"`
	RSSFeedsCount int    `json:"rss_feeds_count"`
}

func buildArticleItem(row db.Article) articleItem {
	tags := db.TagList(row.Tags)
	if tags == nil {
		tags = []string{}
	}
	return articleItem{
		ID:          row.ArticleID,
		Source:      row.Source,
		SourceURL:   row.SourceURL,
		Title:       row.Title,
		Description: row.Description,
		PublishedAt: row.PublishedAt,
		ScrapedAt:   row.ScrapedAt,
		Category:    row.Category,
		ImageURL:    row.ImageURL,
		Tags:        tags,
		Lat:         row.Lat,
		Lng:         row.Lng,
		Language:    row.Language,
	}
}

func buildArticleItems(rows []db.Article) []articleItem {
	items := make([]articleItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, buildArticleItem(row))
	}
	return items
}

func (s *Server) handleNews(c echo.Context) error {
	limit, err := parsePositiveInt(c.QueryParam("limit"), defaultListLimit, 1, maxListLimit)
	if err != nil {
		return failValidation(c, map[string]string{"limit": err.Error()})
	}
	offset, err := parsePositiveInt(c.QueryParam("offset"), 0, 0, 1_000_000)
	if err != nil {
		return failValidation(c, map[string]string{"offset": err.Error()})
	}

	from, err := parseTimeFilter(c.QueryParam("from"), false)
	if err != nil {
		return failValidation(c, map[string]string{"from": "must be RFC3339 or YYYY-MM-DD"})
	}
	to, err := parseTimeFilter(c.QueryParam("to"), true)
	if err != nil {
		return failValidation(c, map[string]string{"to": "must be RFC3339 or YYYY-MM-DD"})
	}
	if from != nil && to != nil && from.After(*to) {
		return failValidation(c, map[string]string{"time_range": "from must be <= to"})
	}

	latMin, err := parseOptionalFloat(c.QueryParam("lat_min"))
	if err != nil {
		return failValidation(c, map[string]string{"lat_min": err.Error()})
	}
	latMax, err := parseOptionalFloat(c.QueryParam("lat_max"))
	if err != nil {
		return failValidation(c, map[string]string{"lat_max": err.Error()})
	}
	lngMin, err := parseOptionalFloat(c.QueryParam("lng_min"))
	if err != nil {
		return failValidation(c, map[string]string{"lng_min": err.Error()})
	}
	lngMax, err := parseOptionalFloat(c.QueryParam("lng_max"))
	if err != nil {
		return failValidation(c, map[string]string{"lng_max": err.Error()})
	}

	opts := db.ArticleSearchOptions{
		Source:   strings.TrimSpace(c.QueryParam("source")),
		Category: strings.ToLower(strings.TrimSpace(c.QueryParam("category"))),
		Search:   strings.TrimSpace(c.QueryParam("q")),
		From:     from,
		To:       to,
		LatMin:   latMin,
		LatMax:   latMax,
		LngMin:   lngMin,
		LngMax:   lngMax,
		Limit:    limit,
		Offset:   offset,
	}

	rows, err := s.store.SearchArticles(c.Request().Context(), opts)
	if err != nil {
		s.logger.Error().Err(err).Msg("query articles failed")
		return internalError(c, "Failed to load articles")
	}

	return success(c, map[string]any{
		"count": len(rows),
		"items": buildArticleItems(rows),
		"filters": map[string]any{
			"source":   opts.Source,
			"category": opts.Category,
			"q":        opts.Search,
			"from":     opts.From,
			"to":       opts.To,
			"lat_min":  opts.LatMin,
			"lat_max":  opts.LatMax,
			"lng_min":  opts.LngMin,
			"lng_max":  opts.LngMax,
			"limit":    opts.Limit,
			"offset":   opts.Offset,
		},
	})
}

func (s *Server) handleNewsRecent(c echo.Context) error {
	limit, err := parsePositiveInt(c.QueryParam("limit"), defaultRecent, 1, maxRecent)
	if err != nil {
		return failValidation(c, map[string]string{"limit": err.Error()})
	}

	rows, err := s.store.RecentArticles(c.Request().Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("query recent articles failed")
		return internalError(c, "Failed to load recent articles")
	}

	return success(c, map[string]any{
		"count": len(rows),
		"items": buildArticleItems(rows),
	})
}

func (s *Server) handleNewsCategories(c echo.Context) error {
	names, err := s.store.ListCategories(c.Request().Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("query categories failed")
		return internalError(c, "Failed to load categories")
	}

	stats, err := s.store.QueryIngestStats(c.Request().Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("query category stats failed")
		return internalError(c, "Failed to load category stats")
	}

	return success(c, map[string]any{
		"count": len(names),
		"items": names,
		"stats": stats.Categories,
	})
}

func (s *Server) handleNewsGeoBounds(c echo.Context) error {
	fieldErrors := map[string]string{}
	north, err := parseRequiredFloat(c.QueryParam("north"))
	if err != nil {
		fieldErrors["north"] = err.Error()
	}
	south, err := parseRequiredFloat(c.QueryParam("south"))
	if err != nil {
		fieldErrors["south"] = err.Error()
	}
	east, err := parseRequiredFloat(c.QueryParam("east"))
	if err != nil {
		fieldErrors["east"] = err.Error()
	}
	west, err := parseRequiredFloat(c.QueryParam("west"))
	if err != nil {
		fieldErrors["west"] = err.Error()
	}
	if len(fieldErrors) > 0 {
		return failValidation(c, fieldErrors)
	}
	if north <= south {
		return failValidation(c, map[string]string{"bounds": "north must be greater than south"})
	}
	if east <= west {
		return failValidation(c, map[string]string{"bounds": "east must be greater than west"})
	}

	limit, err := parsePositiveInt(c.QueryParam("limit"), defaultListLimit, 1, maxListLimit)
	if err != nil {
		return failValidation(c, map[string]string{"limit": err.Error()})
	}

	rows, err := s.store.GeolocatedArticles(c.Request().Context(), db.ArticleSearchOptions{
		LatMin: &south,
		LatMax: &north,
		LngMin: &west,
		LngMax: &east,
		Limit:  limit,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("query articles in bounds failed")
		return internalError(c, "Failed to load articles in bounds")
	}

	return success(c, map[string]any{
		"count": len(rows),
		"items": buildArticleItems(rows),
		"bounds": map[string]float64{
			"north": north,
			"south": south,
			"east":  east,
			"west":  west,
		},
	})
}

func (s *Server) handleNewsGeoRadius(c echo.Context) error {
	fieldErrors := map[string]string{}
	lat, err := parseRequiredFloat(c.QueryParam("lat"))
	if err != nil {
		fieldErrors["lat"] = err.Error()
	}
	lng, err := parseRequiredFloat(c.QueryParam("lng"))
	if err != nil {
		fieldErrors["lng"] = err.Error()
	}
	radiusKM, err := parseRequiredFloat(c.QueryParam("radius_km"))
	if err != nil {
		fieldErrors["radius_km"] = err.Error()
	}
	if len(fieldErrors) > 0 {
		return failValidation(c, fieldErrors)
	}
	if lat < -90 || lat > 90 {
		return failValidation(c, map[string]string{"lat": "must be between -90 and 90"})
	}
	if lng < -180 || lng > 180 {
		return failValidation(c, map[string]string{"lng": "must be between -180 and 180"})
	}
	if radiusKM <= 0 {
		return failValidation(c, map[string]string{"radius_km": "must be greater than 0"})
	}

	limit, err := parsePositiveInt(c.QueryParam("limit"), defaultListLimit, 1, maxListLimit)
	if err != nil {
		return failValidation(c, map[string]string{"limit": err.Error()})
	}

	rows, err := s.store.ArticlesWithinRadius(c.Request().Context(), lat, lng, radiusKM, limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("query articles within radius failed")
		return internalError(c, "Failed to load articles within radius")
	}

	return success(c, map[string]any{
		"count": len(rows),
		"items": buildArticleItems(rows),
		"center": map[string]float64{
			"lat": lat,
			"lng": lng,
		},
		"radius_km": radiusKM,
	})
}

func (s *Server) handleNewsMapData(c echo.Context) error {
	opts := db.ArticleSearchOptions{}

	if boundsRaw := strings.TrimSpace(c.QueryParam("bounds")); boundsRaw != "" {
		north, south, east, west, err := parseBoundsCSV(boundsRaw)
		if err != nil {
			return fail(c, http.StatusBadRequest, "Invalid bounds format. Use: north,south,east,west", nil)
		}
		opts.LatMin = &south
		opts.LatMax = &north
		opts.LngMin = &west
		opts.LngMax = &east
	}

	limit, err := parsePositiveInt(c.QueryParam("limit"), defaultMapLimit, 1, maxMapLimit)
	if err != nil {
		return failValidation(c, map[string]string{"limit": err.Error()})
	}
	opts.Limit = limit

	rows, err := s.store.GeolocatedArticles(c.Request().Context(), opts)
	if err != nil {
		s.logger.Error().Err(err).Msg("query map data failed")
		return internalError(c, "Failed to load map data")
	}

	items := make([]mapPoint, 0, len(rows))
	for _, row := range rows {
		if row.Lat == nil || row.Lng == nil {
			continue
		}
		items = append(items, mapPoint{
			ID:          row.ArticleID,
			Title:       row.Title,
			Description: truncateDescription(row.Description, 200),
			Source:      row.Source,
			Category:    row.Category,
			Lat:         *row.Lat,
			Lng:         *row.Lng,
			PublishedAt: row.PublishedAt,
			SourceURL:   row.SourceURL,
			ImageURL:    row.ImageURL,
		})
	}

	return success(c, map[string]any{
		"count": len(items),
		"items": items,
	})
}

func (s *Server) handleStats(c echo.Context) error {
	stats, err := s.store.QueryIngestStats(c.Request().Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("query ingest stats failed")
		return internalError(c, "Failed to load stats")
	}
	return success(c, stats)
}

func (s *Server) handleSources(c echo.Context) error {
	configured := s.registry.All()
	items := make([]sourceItem, 0, len(configured))
	for _, source := range configured {
		items = append(items, sourceItem{
			Key:           source.Key,
			Name:          source.Name,
			BaseURL:       source.BaseURL,
			RSSFeedsCount: len(source.Feeds),
		})
	}
	return success(c, map[string]any{
		"count": len(items),
		"items": items,
	})
}

func parseBoundsCSV(raw string) (north, south, east, west float64, err error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return 0, 0, 0, 0, errInvalidBounds
	}
	values := make([]float64, 4)
	for i, part := range parts {
		value, parseErr := parseRequiredFloat(part)
		if parseErr != nil {
			return 0, 0, 0, 0, errInvalidBounds
		}
		values[i] = value
	}
	return values[0], values[1], values[2], values[3], nil
}

// truncateDescription trims long map popover text; the cut is by runes so
// Bengali text never splits mid-character.
func truncateDescription(text string, maxRunes int) string {
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	return string(runes[:maxRunes]) + "..."
}
