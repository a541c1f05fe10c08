// Package registry defines the static universe of glossary content columns.
// Columns are configured at startup and immutable afterwards; every other
// pipeline component resolves column metadata through a validated Registry.
package registry

import (
	"fmt"
)

// Category ranks how central a column is to a term's entry.
type Category string

const (
	CategoryEssential     Category = "essential"
	CategoryImportant     Category = "important"
	CategorySupplementary Category = "supplementary"
	CategoryAdvanced      Category = "advanced"
)

// ContentType describes the payload a column's generated artifact carries.
type ContentType string

const (
	ContentTypeText             ContentType = "text"
	ContentTypeMarkdown         ContentType = "markdown"
	ContentTypeCode             ContentType = "code"
	ContentTypeList             ContentType = "list"
	ContentTypeStructuredObject ContentType = "structured-object"
	ContentTypeInteractive      ContentType = "interactive"
)

var validCategories = map[Category]bool{
	CategoryEssential:     true,
	CategoryImportant:     true,
	CategorySupplementary: true,
	CategoryAdvanced:      true,
}

var validContentTypes = map[ContentType]bool{
	ContentTypeText:             true,
	ContentTypeMarkdown:         true,
	ContentTypeCode:             true,
	ContentTypeList:             true,
	ContentTypeStructuredObject: true,
	ContentTypeInteractive:      true,
}

// Column is one content-field definition. EstimatedTokens is a planning
// hint only and is never enforced as a generation limit.
type Column struct {
	ID              string      `yaml:"id"`
	SectionID       string      `yaml:"section"`
	Title           string      `yaml:"title"`
	DisplayOrder    int         `yaml:"display_order"`
	Category        Category    `yaml:"category"`
	ContentType     ContentType `yaml:"content_type"`
	EstimatedTokens int         `yaml:"estimated_tokens"`
}

// Validate checks a single column definition.
func (c Column) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("column with empty id")
	}
	if c.SectionID == "" {
		return fmt.Errorf("column %q: empty section", c.ID)
	}
	if !validCategories[c.Category] {
		return fmt.Errorf("column %q: unknown category %q", c.ID, c.Category)
	}
	if !validContentTypes[c.ContentType] {
		return fmt.Errorf("column %q: unknown content type %q", c.ID, c.ContentType)
	}
	if c.DisplayOrder < 1 {
		return fmt.Errorf("column %q: display order %d out of range", c.ID, c.DisplayOrder)
	}
	return nil
}
