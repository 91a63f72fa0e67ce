package db

import (
	"encoding/json"
	"time"
)

// RawArticle maps news.raw_articles: one scrape observation, append-only,
// no uniqueness. Rows are immutable once written; the dedup engine reads
// them in raw_id order.
type RawArticle struct {
	RawID       int64           `gorm:"column:raw_id;primaryKey;autoIncrement"`
	Source      string          `gorm:"column:source;type:text;not null"`
	SourceURL   string          `gorm:"column:source_url;type:text;not null"`
	Title       string          `gorm:"column:title;type:text;not null"`
	Description string          `gorm:"column:description;type:text;not null;default:''"`
	PublishedAt *time.Time      `gorm:"column:published_at;type:timestamptz"`
	ScrapedAt   time.Time       `gorm:"column:scraped_at;type:timestamptz;not null"`
	Category    *string         `gorm:"column:category;type:text"`
	ImageURL    *string         `gorm:"column:image_url;type:text"`
	Tags        json.RawMessage `gorm:"column:tags;type:jsonb;not null;default:'[]'"`
	Lat         *float64        `gorm:"column:lat;type:double precision"`
	Lng         *float64        `gorm:"column:lng;type:double precision"`
	Language    *string         `gorm:"column:language;type:text"`
	CreatedAt   time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (RawArticle) TableName() string { return "news.raw_articles" }

// Article maps news.articles: the deduplicated, geolocated record of
// record. source_url carries the uniqueness constraint; only the dedup
// engine writes this table.
type Article struct {
	ArticleID   int64           `gorm:"column:article_id;primaryKey;autoIncrement"`
	Source      string          `gorm:"column:source;type:text;not null"`
	SourceURL   string          `gorm:"column:source_url;type:text;not null;uniqueIndex:ux_articles_source_url"`
	Title       string          `gorm:"column:title;type:text;not null"`
	Description string          `gorm:"column:description;type:text;not null;default:''"`
	PublishedAt *time.Time      `gorm:"column:published_at;type:timestamptz"`
	ScrapedAt   time.Time       `gorm:"column:scraped_at;type:timestamptz;not null"`
	Category    *string         `gorm:"column:category;type:text"`
	ImageURL    *string         `gorm:"column:image_url;type:text"`
	Tags        json.RawMessage `gorm:"column:tags;type:jsonb;not null;default:'[]'"`
	Lat         *float64        `gorm:"column:lat;type:double precision"`
	Lng         *float64        `gorm:"column:lng;type:double precision"`
	Language    *string         `gorm:"column:language;type:text"`
	CreatedAt   time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (Article) TableName() string { return "news.articles" }

func autoMigrateModels() []any {
	return []any{
		&RawArticle{},
		&Article{},
	}
}

// InsertOutcome tags the result of a canonical insert.
type InsertOutcome int

const (
	// Inserted means a new canonical row was created.
	Inserted InsertOutcome = iota
	// AlreadyExists means the source_url uniqueness constraint absorbed
	// the insert; the caller treats this as a duplicate, not an error.
	AlreadyExists
)

func (o InsertOutcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case AlreadyExists:
		return "already_exists"
	default:
		return "unknown"
	}
}

// TagList decodes a jsonb tags column into a string slice.
func TagList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var tags []string
	if err := json.Unmarshal(raw, &tags); err != nil {
		return nil
	}
	return tags
}

// TagsJSON encodes tags for a jsonb column; nil and empty both encode as [].
func TagsJSON(tags []string) json.RawMessage {
	if len(tags) == 0 {
		return json.RawMessage(`[]`)
	}
	encoded, err := json.Marshal(tags)
	if err != nil {
		return json.RawMessage(`[]`)
	}
	return encoded
}
