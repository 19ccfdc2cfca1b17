package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "pgcrypto";`,
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		username VARCHAR(150) NOT NULL,
		email VARCHAR(254) NOT NULL,
		phone VARCHAR(16),
		first_name VARCHAR(150) NOT NULL DEFAULT '',
		last_name VARCHAR(150) NOT NULL DEFAULT '',
		role VARCHAR(16) NOT NULL DEFAULT 'executor',
		password_hash VARCHAR(255) NOT NULL,
		avatar_path VARCHAR(255) NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		is_staff BOOLEAN NOT NULL DEFAULT FALSE,
		rating DOUBLE PRECISION,
		profile JSONB NOT NULL DEFAULT '{}'::jsonb,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT chk_users_role CHECK (role IN ('executor', 'customer'))
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_users_username ON users (username);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_users_email ON users (email);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_users_phone ON users (phone);`,
	`CREATE TABLE IF NOT EXISTS jobs (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		owner_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title VARCHAR(200) NOT NULL,
		category VARCHAR(64) NOT NULL,
		description TEXT NOT NULL,
		skills JSONB NOT NULL DEFAULT '[]'::jsonb,
		budget_type VARCHAR(16) NOT NULL DEFAULT 'fixed',
		budget_fixed BIGINT,
		budget_min BIGINT,
		budget_max BIGINT,
		deadline VARCHAR(120) NOT NULL DEFAULT '',
		deadline_type VARCHAR(16) NOT NULL DEFAULT 'flexible',
		location VARCHAR(120) NOT NULL DEFAULT '',
		remote BOOLEAN NOT NULL DEFAULT TRUE,
		urgent BOOLEAN NOT NULL DEFAULT FALSE,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		canceled_at TIMESTAMPTZ,
		canceled_reason TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT chk_jobs_budget_type CHECK (budget_type IN ('fixed', 'range')),
		CONSTRAINT chk_jobs_budget_range CHECK (budget_min IS NULL OR budget_max IS NULL OR budget_min <= budget_max)
	);`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_owner_id ON jobs (owner_id);`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_category ON jobs (category);`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs (created_at DESC);`,
	`CREATE TABLE IF NOT EXISTS job_attachments (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		job_id UUID NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
		file_path VARCHAR(255) NOT NULL,
		original_name VARCHAR(255) NOT NULL DEFAULT '',
		content_type VARCHAR(128) NOT NULL DEFAULT '',
		size BIGINT NOT NULL DEFAULT 0,
		uploaded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_job_attachments_job_id ON job_attachments (job_id);`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'proposal_status') THEN
			CREATE TYPE proposal_status AS ENUM ('sent', 'withdrawn', 'shortlisted', 'accepted', 'rejected');
		END IF;
	END
	$$;`,
	`CREATE TABLE IF NOT EXISTS proposals (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		job_id UUID NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
		executor_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		cover_letter TEXT NOT NULL,
		bid_amount NUMERIC(12,2) NOT NULL,
		days INTEGER,
		status proposal_status NOT NULL DEFAULT 'sent',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT chk_proposals_days CHECK (days IS NULL OR days > 0)
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_proposals_job_executor ON proposals (job_id, executor_id);`,
	`CREATE INDEX IF NOT EXISTS idx_proposals_executor_id ON proposals (executor_id);`,
	`CREATE INDEX IF NOT EXISTS idx_proposals_status ON proposals (status);`,
	`CREATE TABLE IF NOT EXISTS assignments (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		job_id UUID NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
		executor_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		proposal_id UUID NOT NULL REFERENCES proposals(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_assignments_job_id ON assignments (job_id);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_assignments_proposal_id ON assignments (proposal_id);`,
	`CREATE INDEX IF NOT EXISTS idx_assignments_executor_id ON assignments (executor_id);`,
	`CREATE TABLE IF NOT EXISTS catalog_tasks (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		title VARCHAR(200) NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		price NUMERIC(10,2),
		location VARCHAR(120) NOT NULL DEFAULT '',
		category VARCHAR(120) NOT NULL DEFAULT '',
		status VARCHAR(20) NOT NULL DEFAULT 'open',
		owner_id UUID REFERENCES users(id) ON DELETE SET NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS catalog_services (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		title VARCHAR(200) NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		rate_type VARCHAR(20) NOT NULL DEFAULT 'hour',
		hourly_rate NUMERIC(10,2),
		project_rate NUMERIC(10,2),
		category VARCHAR(120) NOT NULL DEFAULT '',
		author_id UUID REFERENCES users(id) ON DELETE SET NULL,
		rating DOUBLE PRECISION,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
