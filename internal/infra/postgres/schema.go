package postgres

import "context"

// Bootstrap creates the schema when it does not exist yet. Statements are
// idempotent so repeated startups are safe.
func Bootstrap(ctx context.Context, db DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS group_types (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		name TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT true,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS groups (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		group_type_id UUID NOT NULL REFERENCES group_types(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT true,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (name, group_type_id)
	)`,

	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		phone_number TEXT NOT NULL UNIQUE,
		full_name TEXT NOT NULL,
		telegram_chat_id BIGINT UNIQUE,
		role TEXT NOT NULL DEFAULT 'student',
		group_id UUID REFERENCES groups(id) ON DELETE SET NULL,
		is_active BOOLEAN NOT NULL DEFAULT true,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	// OTP records are never deleted, only flagged, so they double as an
	// audit trail of login attempts.
	`CREATE TABLE IF NOT EXISTS otps (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		code CHAR(6) NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL,
		is_used BOOLEAN NOT NULL DEFAULT false,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_otps_user_unused ON otps (user_id, created_at DESC) WHERE is_used = false`,

	`CREATE TABLE IF NOT EXISTS lessons (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		lesson_order INT NOT NULL DEFAULT 0,
		kinescope_video_id TEXT NOT NULL DEFAULT '',
		video_duration INT NOT NULL DEFAULT 0,
		notion_page_id TEXT NOT NULL DEFAULT '',
		material_url TEXT NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT true,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS lesson_schedules (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		lesson_id UUID NOT NULL REFERENCES lessons(id) ON DELETE CASCADE,
		group_type_id UUID NOT NULL REFERENCES group_types(id) ON DELETE CASCADE,
		available_from TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (lesson_id, group_type_id)
	)`,

	`CREATE TABLE IF NOT EXISTS user_progress (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		lesson_id UUID NOT NULL REFERENCES lessons(id) ON DELETE CASCADE,
		video_progress INT NOT NULL DEFAULT 0,
		is_completed BOOLEAN NOT NULL DEFAULT false,
		completed_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (user_id, lesson_id)
	)`,

	`CREATE TABLE IF NOT EXISTS quizzes (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		lesson_id UUID NOT NULL UNIQUE REFERENCES lessons(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		passing_score INT NOT NULL DEFAULT 70,
		max_attempts INT NOT NULL DEFAULT 3,
		is_active BOOLEAN NOT NULL DEFAULT true,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS questions (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		quiz_id UUID NOT NULL REFERENCES quizzes(id) ON DELETE CASCADE,
		text TEXT NOT NULL,
		question_order INT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS answers (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		question_id UUID NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
		text TEXT NOT NULL,
		is_correct BOOLEAN NOT NULL DEFAULT false,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS quiz_attempts (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		quiz_id UUID NOT NULL REFERENCES quizzes(id) ON DELETE CASCADE,
		score INT NOT NULL DEFAULT 0,
		is_passed BOOLEAN NOT NULL DEFAULT false,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}
