package datasource

import (
	"fmt"

	"github.com/spinhouse/prompt-engine/pkg/apperrors"
)

// Supported datasource types.
const (
	TypePostgres = "postgres"
	TypeMSSQL    = "mssql"
)

// ValidateType checks whether the given datasource type is supported.
func ValidateType(dsType string) error {
	switch dsType {
	case TypePostgres, TypeMSSQL:
		return nil
	default:
		return fmt.Errorf("%w: %q", apperrors.ErrUnsupportedDB, dsType)
	}
}
