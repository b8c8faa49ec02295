package parsers

import (
	"io"

	"github.com/username/fundfolio/backend/src/models"
)

// StatementParser defines the interface for turning raw CAS statement text
// into a normalized statement with per-scheme transaction lists.
type StatementParser interface {
	Parse(file io.Reader) (*models.ParsedStatement, error)
}
