package search

import (
	"github.com/hyperjump/tradeidea/internal/models"
	"github.com/hyperjump/tradeidea/pkg/utils"
)

// ProcessQuery collapses whitespace in the query text, then validates it and
// applies the TopK default.
func ProcessQuery(query *models.RetrievalQuery) error {
	query.Text = utils.CollapseWhitespace(query.Text)
	return query.Validate()
}
