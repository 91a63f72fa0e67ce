package dedup

import (
	"unicode/utf8"

	"khobor.news/khobor/internal/db"
)

// Merge folds an incoming observation into an existing canonical
// article field by field. Ties keep the existing value; a complete
// coordinate pair and a non-empty image are never overwritten.
func Merge(existing, incoming db.Article) db.Article {
	merged := existing

	if incoming.ScrapedAt.After(existing.ScrapedAt) {
		merged.ScrapedAt = incoming.ScrapedAt
	}

	switch {
	case incoming.PublishedAt != nil && existing.PublishedAt != nil:
		if incoming.PublishedAt.Before(*existing.PublishedAt) {
			merged.PublishedAt = incoming.PublishedAt
		}
	case incoming.PublishedAt != nil:
		merged.PublishedAt = incoming.PublishedAt
	}

	if utf8.RuneCountInString(incoming.Description) > utf8.RuneCountInString(existing.Description) {
		merged.Description = incoming.Description
	}

	if emptyValue(existing.ImageURL) && !emptyValue(incoming.ImageURL) {
		merged.ImageURL = incoming.ImageURL
	}

	if incoming.Lat != nil && incoming.Lng != nil && (existing.Lat == nil || existing.Lng == nil) {
		merged.Lat = incoming.Lat
		merged.Lng = incoming.Lng
	}

	merged.Tags = db.TagsJSON(unionTags(db.TagList(existing.Tags), db.TagList(incoming.Tags)))

	if emptyValue(existing.Category) && !emptyValue(incoming.Category) {
		merged.Category = incoming.Category
	}

	if emptyValue(existing.Language) && !emptyValue(incoming.Language) {
		merged.Language = incoming.Language
	}

	return merged
}

// unionTags unions two tag lists keeping existing order first, then the
// incoming tags not already present, in their own order.
func unionTags(existing, incoming []string) []string {
	if len(existing) == 0 && len(incoming) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(existing)+len(incoming))
	union := make([]string, 0, len(existing)+len(incoming))
	for _, tag := range existing {
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		union = append(union, tag)
	}
	for _, tag := range incoming {
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		union = append(union, tag)
	}
	return union
}

func emptyValue(value *string) bool {
	return value == nil || *value == ""
}

// articleFromRaw lifts a raw observation into canonical shape. The
// article_id stays zero until the store assigns one.
func articleFromRaw(raw db.RawArticle) db.Article {
	return db.Article{
		Source:      raw.Source,
		SourceURL:   raw.SourceURL,
		Title:       raw.Title,
		Description: raw.Description,
		PublishedAt: raw.PublishedAt,
		ScrapedAt:   raw.ScrapedAt,
		Category:    raw.Category,
		ImageURL:    raw.ImageURL,
		Tags:        raw.Tags,
		Lat:         raw.Lat,
		Lng:         raw.Lng,
		Language:    raw.Language,
	}
}
