package entity

import (
	"strings"
	"time"
)

// EditionCapability classifies what licensed telemetry facilities an Oracle
// edition can carry. ASH and AWR ship with the Diagnostics Pack, which only
// exists on Enterprise Edition; lower editions lack AWR regardless of whether
// the dictionary objects happen to exist.
type EditionCapability string

const (
	EditionFullFeatured EditionCapability = "full"
	EditionLimited      EditionCapability = "limited"
	EditionUnknown      EditionCapability = "unknown"
)

// ParseEditionCapability maps a v$version banner to a capability class.
func ParseEditionCapability(banner string) EditionCapability {
	if banner == "" {
		return EditionUnknown
	}
	b := strings.ToLower(banner)
	switch {
	case strings.Contains(b, "enterprise"):
		return EditionFullFeatured
	case strings.Contains(b, "standard"),
		strings.Contains(b, "express"),
		strings.Contains(b, "free"):
		return EditionLimited
	default:
		return EditionUnknown
	}
}

type OracleConnection struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name          string    `gorm:"not null" json:"name"`
	Host          string    `gorm:"not null" json:"host"`
	Port          int       `gorm:"not null" json:"port"`
	ServiceName   string    `gorm:"not null" json:"service_name"`
	Username      string    `gorm:"not null" json:"username"`
	Password      string    `gorm:"type:text" json:"-"` // encrypted at rest
	EditionBanner string    `gorm:"type:text" json:"edition_banner"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (OracleConnection) TableName() string {
	return "oracle_connections"
}

// Capability derives the edition capability from the banner captured when the
// connection was registered. Parsed here, once, so callers never compare
// banner substrings themselves.
func (c *OracleConnection) Capability() EditionCapability {
	return ParseEditionCapability(c.EditionBanner)
}
