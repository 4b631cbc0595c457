// Package sqlscript is the relational-script source adapter. A dump is split
// into statements, session-management statements are skipped, each remaining
// statement is dialect-translated and replayed into an in-memory embedded
// store. Per-statement failure is logged and counted, not fatal; overall
// success requires at least one table to exist after replay.
package sqlscript

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/datalens-ai/datalens-engine/pkg/adapters/datasource"
	"github.com/datalens-ai/datalens-engine/pkg/adapters/datasource/embedded"
	"github.com/datalens-ai/datalens-engine/pkg/apperrors"
	"github.com/datalens-ai/datalens-engine/pkg/logging"
	enginesql "github.com/datalens-ai/datalens-engine/pkg/sql"
)

// Adapter wraps the replayed store together with the import report.
type Adapter struct {
	*embedded.Source
	report *apperrors.PartialImport
}

// ImportReport returns the qualified-success diagnostic when one or more
// statements failed during replay, nil on a clean import.
func (a *Adapter) ImportReport() *apperrors.PartialImport {
	return a.report
}

// Open replays a script file into a fresh in-memory store.
func Open(ctx context.Context, path string, sampleValues int, logger *zap.Logger) (*Adapter, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.ConnectionError(datasource.KindSQLScript, err)
	}
	return Replay(ctx, string(raw), sampleValues, logger)
}

// Replay translates and executes script text statement by statement.
func Replay(ctx context.Context, script string, sampleValues int, logger *zap.Logger) (*Adapter, error) {
	db, err := embedded.NewMemory()
	if err != nil {
		return nil, apperrors.ConnectionError(datasource.KindSQLScript, err)
	}

	statements := enginesql.SplitStatements(script)
	failed := 0
	executed := 0

	for _, stmt := range statements {
		if enginesql.IsSessionStatement(stmt) {
			logger.Debug("skipped session statement",
				zap.String("statement", logging.SanitizeQuery(stmt)))
			continue
		}

		translated := enginesql.TranslateStatement(stmt)
		if translated == "" {
			continue
		}

		if err := db.Exec(ctx, translated); err != nil {
			failed++
			logger.Warn("statement failed during replay",
				zap.String("statement", logging.SanitizeQuery(translated)),
				zap.String("error", logging.SanitizeError(err)))
			continue
		}
		executed++
	}

	tables, err := db.TableNames(ctx)
	if err != nil {
		db.Close() //nolint:errcheck
		return nil, apperrors.ConnectionError(datasource.KindSQLScript, err)
	}
	if len(tables) == 0 {
		db.Close() //nolint:errcheck
		return nil, apperrors.ConnectionError(datasource.KindSQLScript,
			fmt.Errorf("replay produced no tables (%d statements failed)", failed))
	}

	logger.Info("script replay complete",
		zap.Int("tables", len(tables)),
		zap.Int("executed", executed),
		zap.Int("failed", failed))

	adapter := &Adapter{
		Source: embedded.NewNativeSource(datasource.KindSQLScript, db, sampleValues, nil, logger),
	}
	if failed > 0 {
		adapter.report = &apperrors.PartialImport{
			TablesCreated:    len(tables),
			StatementsFailed: failed,
		}
	}
	return adapter, nil
}
