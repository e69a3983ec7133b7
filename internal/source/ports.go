package source

import (
	"context"

	"salesdash/internal/core"
)

// Ports for inbound data adapters.
type (
	// RowReader loads the full sales dataset.
	RowReader interface {
		ReadRows(ctx context.Context) ([]core.SalesRow, error)
	}

	// RowWriter replaces the stored dataset. imp describes where the rows
	// came from; its Rows and ImportedAt are filled in by the writer.
	RowWriter interface {
		ReplaceRows(ctx context.Context, imp core.Import, rows []core.SalesRow) error
	}

	// ImportLog reports the most recent dataset replacement.
	ImportLog interface {
		LastImport(ctx context.Context) (imp core.Import, ok bool, err error)
	}
)
