package repository

// schema is portable between sqlite and postgres. Timestamps are unix
// milliseconds. credit_key is NULL for debits, so only credits are unique.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS contests (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	brand TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT '',
	deadline_ms BIGINT NOT NULL,
	engagement_pool DOUBLE PRECISION NOT NULL DEFAULT 0,
	creativity_pool DOUBLE PRECISION NOT NULL DEFAULT 0
)`,
	`CREATE TABLE IF NOT EXISTS prize_tiers (
	id TEXT PRIMARY KEY,
	contest_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	label TEXT NOT NULL,
	rank_min INTEGER NOT NULL,
	rank_max INTEGER NOT NULL,
	amount DOUBLE PRECISION NOT NULL,
	position INTEGER NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_prize_tiers_contest ON prize_tiers (contest_id, position)`,
	`CREATE TABLE IF NOT EXISTS entries (
	submission_id TEXT PRIMARY KEY,
	participant_id TEXT NOT NULL,
	contest_id TEXT NOT NULL,
	status TEXT NOT NULL,
	engagement_score DOUBLE PRECISION,
	creativity_score DOUBLE PRECISION,
	likes BIGINT NOT NULL DEFAULT 0,
	comments BIGINT NOT NULL DEFAULT 0,
	shares BIGINT NOT NULL DEFAULT 0,
	views BIGINT NOT NULL DEFAULT 0,
	position BIGINT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_entries_contest ON entries (contest_id, position)`,
	`CREATE TABLE IF NOT EXISTS wallet_transactions (
	id TEXT PRIMARY KEY,
	participant_id TEXT NOT NULL,
	type TEXT NOT NULL,
	amount DOUBLE PRECISION NOT NULL,
	reason TEXT NOT NULL DEFAULT '',
	contest_id TEXT NOT NULL DEFAULT '',
	kind TEXT NOT NULL DEFAULT '',
	prize_rank INTEGER NOT NULL DEFAULT 0,
	prize_tier_id TEXT NOT NULL DEFAULT '',
	credit_key TEXT UNIQUE,
	created_at_ms BIGINT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_wallet_transactions_participant ON wallet_transactions (participant_id, created_at_ms)`,
	`CREATE TABLE IF NOT EXISTS payouts (
	id TEXT PRIMARY KEY,
	participant_id TEXT NOT NULL,
	amount DOUBLE PRECISION NOT NULL,
	status TEXT NOT NULL,
	requested_at_ms BIGINT NOT NULL,
	processed_at_ms BIGINT,
	transaction_id TEXT NOT NULL DEFAULT ''
)`,
	`CREATE INDEX IF NOT EXISTS idx_payouts_participant ON payouts (participant_id, requested_at_ms)`,
}
