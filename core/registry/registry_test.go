package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testColumns() []Column {
	return []Column{
		{ID: "intro_definition", SectionID: "introduction", Title: "Definition", DisplayOrder: 1, Category: CategoryEssential, ContentType: ContentTypeText, EstimatedTokens: 300},
		{ID: "intro_concepts", SectionID: "introduction", Title: "Key Concepts", DisplayOrder: 2, Category: CategoryEssential, ContentType: ContentTypeMarkdown, EstimatedTokens: 400},
		{ID: "impl_code", SectionID: "implementation", Title: "Code Example", DisplayOrder: 3, Category: CategoryImportant, ContentType: ContentTypeCode, EstimatedTokens: 600},
	}
}

func TestNewValidatesAndSorts(t *testing.T) {
	t.Parallel()

	// Deliberately out of order; the registry must sort by display order.
	cols := testColumns()
	cols[0], cols[2] = cols[2], cols[0]

	reg, err := New(cols)
	require.NoError(t, err)

	ids := reg.IDs()
	assert.Equal(t, []string{"intro_definition", "intro_concepts", "impl_code"}, ids)
	assert.Equal(t, 3, reg.Len())
}

func TestNewRejectsDuplicateIDs(t *testing.T) {
	t.Parallel()

	cols := testColumns()
	cols[1].ID = cols[0].ID
	cols[1].DisplayOrder = 2

	_, err := New(cols)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate column id")
}

func TestNewRejectsDuplicateDisplayOrder(t *testing.T) {
	t.Parallel()

	cols := testColumns()
	cols[1].DisplayOrder = 1

	_, err := New(cols)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "display order")
}

func TestNewRejectsGappedDisplayOrder(t *testing.T) {
	t.Parallel()

	cols := testColumns()
	cols[2].DisplayOrder = 5

	_, err := New(cols)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not contiguous")
}

func TestColumnValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Column)
		wantErr string
	}{
		{"empty id", func(c *Column) { c.ID = "" }, "empty id"},
		{"empty section", func(c *Column) { c.SectionID = "" }, "empty section"},
		{"bad category", func(c *Column) { c.Category = "critical" }, "unknown category"},
		{"bad content type", func(c *Column) { c.ContentType = "video" }, "unknown content type"},
		{"zero display order", func(c *Column) { c.DisplayOrder = 0 }, "display order"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			col := testColumns()[0]
			tc.mutate(&col)
			err := col.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestSectionAndCategoryLookups(t *testing.T) {
	t.Parallel()

	reg, err := New(testColumns())
	require.NoError(t, err)

	intro := reg.Section("introduction")
	require.Len(t, intro, 2)
	assert.Equal(t, "intro_definition", intro[0].ID)

	essential := reg.ByCategory(CategoryEssential)
	assert.Len(t, essential, 2)

	assert.Equal(t, []string{"introduction", "implementation"}, reg.Sections())

	col, ok := reg.Get("impl_code")
	require.True(t, ok)
	assert.Equal(t, ContentTypeCode, col.ContentType)

	_, ok = reg.Get("missing")
	assert.False(t, ok)
}

func TestDefaultSchemaIsValid(t *testing.T) {
	t.Parallel()

	reg, err := Default()
	require.NoError(t, err)
	assert.Greater(t, reg.Len(), 30)

	// The scenario column from admin tooling must exist in the default set.
	_, ok := reg.Get("introduction_definition_overview")
	assert.True(t, ok)
}

func TestParseYAML(t *testing.T) {
	t.Parallel()

	data := []byte(`
columns:
  - id: intro_definition
    section: introduction
    title: Definition
    display_order: 1
    category: essential
    content_type: text
    estimated_tokens: 300
  - id: intro_tags
    section: introduction
    title: Tags
    display_order: 2
    category: important
    content_type: list
    estimated_tokens: 60
`)

	reg, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len())

	col, ok := reg.Get("intro_tags")
	require.True(t, ok)
	assert.Equal(t, ContentTypeList, col.ContentType)
}
