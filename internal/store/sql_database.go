package store

import (
	"database/sql"

	"github.com/Presidentty1/nestling-care-log-sub003/internal/logger"
)

// DB wraps the standard library connection pool with the application's
// logger and an error classifier for the underlying driver.
type DB struct {
	*sql.DB
	errorClassificator ErrorClassificator
	logger             *logger.Logger
}

// ErrorClassificator decides whether a failed database operation is worth
// retrying. Implementations are driver-specific.
type ErrorClassificator interface {
	Classify(err error) ErrorClassification
}
