package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewProductRecordHasNoEmptyFields(t *testing.T) {
	rec := NewProductRecord("ABC123")

	for i, cell := range rec.Row() {
		assert.NotEmpty(t, cell, "column %q", ColumnOrder[i])
	}
	assert.Equal(t, "ABC123", rec.InputSource)
	assert.Equal(t, Unknown, rec.SKU)
	assert.Equal(t, NotChecked, rec.GradingTag)
	assert.Equal(t, No, rec.IsRefurbished)
}

func TestRowMatchesColumnOrder(t *testing.T) {
	rec := NewProductRecord("x")
	assert.Len(t, rec.Row(), len(ColumnOrder))
}

func TestIndicatorSummary(t *testing.T) {
	rec := NewProductRecord("x")
	assert.Equal(t, "None", rec.IndicatorSummary())

	rec.RefurbIndicators = []string{"Title keyword 'renewed'", "Breadcrumb 'Renewed'"}
	assert.Equal(t, "Title keyword 'renewed'; Breadcrumb 'Renewed'", rec.IndicatorSummary())
}
