package migrations

import (
	"context"

	"github.com/cozy-creator/influencer-studio/internal/db/models"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

var Migrations = migrate.NewMigrations()

type index struct {
	model   any
	name    string
	columns []string
}

var coreTables = []any{
	(*models.Character)(nil),
	(*models.Job)(nil),
	(*models.Media)(nil),
	(*models.JobEvent)(nil),
}

var coreIndexes = []index{
	{(*models.Job)(nil), "jobs_owner_status_idx", []string{"owner_id", "status"}},
	{(*models.Job)(nil), "jobs_correlation_idx", []string{"provider_correlation_id"}},
	{(*models.Media)(nil), "media_owner_character_idx", []string{"owner_id", "character_id"}},
	{(*models.JobEvent)(nil), "job_events_job_idx", []string{"job_id"}},
}

var contentPlanTables = []any{
	(*models.ContentPlan)(nil),
}

var contentPlanIndexes = []index{
	{(*models.ContentPlan)(nil), "content_plans_owner_character_idx", []string{"owner_id", "character_id"}},
}

// CreateTables creates the whole schema directly, outside the migrator.
// Used for throwaway databases.
func CreateTables(ctx context.Context, db *bun.DB) error {
	if err := createTables(ctx, db, coreTables, coreIndexes); err != nil {
		return err
	}
	return createTables(ctx, db, contentPlanTables, contentPlanIndexes)
}

func createTables(ctx context.Context, db bun.IDB, tables []any, indexes []index) error {
	for _, table := range tables {
		if _, err := db.NewCreateTable().Model(table).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}

	for _, idx := range indexes {
		if _, err := db.NewCreateIndex().
			Model(idx.model).
			Index(idx.name).
			Column(idx.columns...).
			IfNotExists().
			Exec(ctx); err != nil {
			return err
		}
	}

	return nil
}

func dropTables(ctx context.Context, db bun.IDB, tables []any) error {
	for i := len(tables) - 1; i >= 0; i-- {
		if _, err := db.NewDropTable().Model(tables[i]).IfExists().Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}
