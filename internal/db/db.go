package db

import (
	"fmt"

	"bujo/internal/auth"
	"bujo/internal/bullet"
	"bujo/internal/jobs"
	"bujo/internal/page"
	"bujo/internal/space"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(dsn string) (*gorm.DB, error) {
	// TranslateError turns driver unique-violation errors into
	// gorm.ErrDuplicatedKey, which the services interpret as Conflict.
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}
	return gdb, nil
}

func AutoMigrateAndIndexes(gdb *gorm.DB) error {
	// Tables
	if err := gdb.AutoMigrate(
		&auth.User{},
		&space.Space{},
		&space.Membership{},
		&space.Invitation{},
		&page.DailyPage{},
		&bullet.Bullet{},
		&jobs.Job{},
	); err != nil {
		return err
	}

	// A second invite to the same email is a conflict only while the first
	// one is pending; accepted invites stay behind as history.
	if err := gdb.Exec(`
create unique index if not exists uq_invites_space_email_pending
on space_invites(space_id, email)
where accepted_at is null;
`).Error; err != nil {
		return err
	}

	// Helpful indexes
	stmts := []string{
		`create index if not exists idx_invites_email_pending on space_invites(email) where accepted_at is null;`,
		`create index if not exists idx_bullets_page_sort on bullets(page_id, sort_key);`,
		`create index if not exists idx_bullets_space_status on bullets(space_id, status);`,
		`create index if not exists idx_jobs_due on jobs(status, run_at);`,
		`create index if not exists idx_jobs_lock on jobs(status, locked_at);`,
	}
	for _, s := range stmts {
		if err := gdb.Exec(s).Error; err != nil {
			return fmt.Errorf("index exec failed: %w (sql=%s)", err, s)
		}
	}

	return nil
}
