package migration

import (
	"database/sql"
	"embed"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
)

// Schema holds every table of the service.
const Schema = "taller"

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// RunMigrations brings the taller schema up to date.
func RunMigrations(db *sql.DB, logger zerolog.Logger) error {
	if _, err := db.Exec("CREATE SCHEMA IF NOT EXISTS " + Schema); err != nil {
		return errors.Wrapf(err, "create schema %s", Schema)
	}

	goose.SetBaseFS(embeddedMigrations)
	goose.SetTableName(Schema + ".goose_db_version")
	goose.SetLogger(NewGooseAdapter(logger))
	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Wrap(err, "set goose dialect")
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	logger.Info().Msg("Migrations completed successfully")
	return nil
}

// GooseAdapter routes goose output into zerolog.
type GooseAdapter struct {
	logger zerolog.Logger
}

var _ goose.Logger = (*GooseAdapter)(nil)

func NewGooseAdapter(logger zerolog.Logger) *GooseAdapter {
	return &GooseAdapter{logger: logger.With().Str("component", "goose").Logger()}
}

func (g *GooseAdapter) Printf(format string, v ...interface{}) {
	g.logger.Info().Msg(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// Fatalf logs at error level instead of exiting; RunMigrations surfaces the
// failure through its returned error.
func (g *GooseAdapter) Fatalf(format string, v ...interface{}) {
	g.logger.Error().Msg(strings.TrimSpace(fmt.Sprintf(format, v...)))
}
