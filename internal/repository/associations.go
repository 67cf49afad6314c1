package repository

import (
	"context"
	"fmt"
	"log/slog"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/pallet-tracker/constants"
	"github.com/joseph-ayodele/pallet-tracker/internal/entity"
)

// AssociationRepository is the store capability: an append-only set of
// (pallet_id, document_name, page_number) rows.
type AssociationRepository interface {
	// ListByIdentifier returns every association for identifier in insertion order.
	ListByIdentifier(ctx context.Context, identifier string) ([]entity.Association, error)
	// Create appends one association. No uniqueness is enforced.
	Create(ctx context.Context, a entity.Association) error
}

type sqlAssociationRepo struct {
	drv    *entsql.Driver
	logger *slog.Logger
}

// NewSQLAssociationRepository serves associations from a Postgres or SQLite driver.
func NewSQLAssociationRepository(drv *entsql.Driver, logger *slog.Logger) AssociationRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &sqlAssociationRepo{drv: drv, logger: logger}
}

func (r *sqlAssociationRepo) ListByIdentifier(ctx context.Context, identifier string) ([]entity.Association, error) {
	b := entsql.Dialect(r.drv.Dialect())
	t := b.Table(constants.AssociationsTable)
	query, args := b.Select(t.C("pallet_id"), t.C("document_name"), t.C("page_number")).
		From(t).
		Where(entsql.EQ(t.C("pallet_id"), identifier)).
		OrderBy(t.C("id")).
		Query()

	var rows entsql.Rows
	if err := r.drv.Query(ctx, query, args, &rows); err != nil {
		r.logger.Error("failed to query associations", "pallet_id", identifier, "error", err)
		return nil, err
	}
	defer rows.Close()

	out := make([]entity.Association, 0)
	for rows.Next() {
		var a entity.Association
		if err := rows.Scan(&a.Identifier, &a.DocumentName, &a.PageNumber); err != nil {
			r.logger.Error("failed to scan association", "pallet_id", identifier, "error", err)
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("failed to iterate associations", "pallet_id", identifier, "error", err)
		return nil, err
	}
	return out, nil
}

func (r *sqlAssociationRepo) Create(ctx context.Context, a entity.Association) error {
	query, args := entsql.Dialect(r.drv.Dialect()).
		Insert(constants.AssociationsTable).
		Columns("pallet_id", "document_name", "page_number").
		Values(a.Identifier, a.DocumentName, a.PageNumber).
		Query()

	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		r.logger.Error("failed to insert association",
			"pallet_id", a.Identifier, "document_name", a.DocumentName, "page_number", a.PageNumber, "error", err)
		return err
	}
	return nil
}

// associationsDDL holds the CREATE statements per dialect, table first.
var associationsDDL = map[string][]string{
	dialect.Postgres: {
		`CREATE TABLE IF NOT EXISTS "` + constants.AssociationsTable + `" (
	"id" bigserial PRIMARY KEY,
	"pallet_id" varchar(18) NOT NULL,
	"document_name" text NOT NULL,
	"page_number" integer NOT NULL CHECK ("page_number" > 0),
	"created_at" timestamptz NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
		`CREATE INDEX IF NOT EXISTS "` + constants.AssociationsTable + `_pallet_id_idx" ON "` + constants.AssociationsTable + `" ("pallet_id")`,
	},
	dialect.SQLite: {
		"CREATE TABLE IF NOT EXISTS `" + constants.AssociationsTable + "` (\n" +
			"\t`id` integer PRIMARY KEY AUTOINCREMENT,\n" +
			"\t`pallet_id` varchar(18) NOT NULL,\n" +
			"\t`document_name` text NOT NULL,\n" +
			"\t`page_number` integer NOT NULL CHECK (`page_number` > 0),\n" +
			"\t`created_at` datetime NOT NULL DEFAULT CURRENT_TIMESTAMP\n" +
			")",
		"CREATE INDEX IF NOT EXISTS `" + constants.AssociationsTable + "_pallet_id_idx` ON `" + constants.AssociationsTable + "` (`pallet_id`)",
	},
}

// Migrate creates the associations table and its pallet_id index if missing.
func Migrate(ctx context.Context, drv *entsql.Driver, logger *slog.Logger) error {
	stmts, ok := associationsDDL[drv.Dialect()]
	if !ok {
		return fmt.Errorf("migrate: unsupported dialect %q", drv.Dialect())
	}

	for _, stmt := range stmts {
		if err := drv.Exec(ctx, stmt, []any{}, nil); err != nil {
			logger.Error("failed to apply associations schema", "dialect", drv.Dialect(), "error", err)
			return fmt.Errorf("migrate: %w", err)
		}
	}

	logger.Info("associations schema ready", "dialect", drv.Dialect())
	return nil
}
