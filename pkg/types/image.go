package types

import "strings"

// Image references a stored binary asset. Filename is the storage key used
// to destroy the object; URL is what templates render.
type Image struct {
	URL      string `gorm:"column:url" json:"url"`
	Filename string `gorm:"column:filename" json:"filename"`
}

// IsZero reports whether no asset is referenced.
func (i Image) IsZero() bool {
	return strings.TrimSpace(i.URL) == "" && strings.TrimSpace(i.Filename) == ""
}

// IsPlaceholder reports whether the image is the shared default avatar,
// which must never be destroyed.
func (i Image) IsPlaceholder(defaultURL string) bool {
	return strings.TrimSpace(i.Filename) == "" || (defaultURL != "" && i.URL == defaultURL)
}
