package migrations

func init() {
	Register(Migration{
		Timestamp:   "20250601-000000",
		Description: "Initial schema",
		Up: []string{
			// Identity - the single user's declared identity and IH score.
			// Singleton row keyed by id = 1.
			`CREATE TABLE IF NOT EXISTS identity (
				id INTEGER PRIMARY KEY CHECK (id = 1),
				anti_vision TEXT NOT NULL DEFAULT '',
				identity_statement TEXT NOT NULL DEFAULT '',
				one_year_mission TEXT NOT NULL DEFAULT '',
				identity_health INTEGER NOT NULL DEFAULT 100,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,

			// Quests - daily quests. completed_at is never cleared once set.
			`CREATE TABLE IF NOT EXISTS quests (
				id TEXT PRIMARY KEY,
				quest_text TEXT NOT NULL,
				is_completed INTEGER NOT NULL DEFAULT 0,
				created_at TEXT NOT NULL,
				completed_at TEXT
			)`,

			// Notifications - scheduled reminder entries, wiped with user content.
			`CREATE TABLE IF NOT EXISTS notifications (
				id TEXT PRIMARY KEY,
				kind TEXT NOT NULL,
				scheduled_at TEXT NOT NULL,
				created_at TEXT NOT NULL
			)`,

			// App lifecycle state - survives wipes, counts lives.
			`CREATE TABLE IF NOT EXISTS app_state (
				id INTEGER PRIMARY KEY CHECK (id = 1),
				state TEXT NOT NULL DEFAULT 'onboarding',
				has_used_insurance INTEGER NOT NULL DEFAULT 0,
				life_number INTEGER NOT NULL DEFAULT 1,
				updated_at TEXT NOT NULL
			)`,

			// Daily rollover marker. current_date is quoted because it
			// collides with the SQL keyword.
			`CREATE TABLE IF NOT EXISTS daily_state (
				id INTEGER PRIMARY KEY CHECK (id = 1),
				"current_date" TEXT NOT NULL,
				last_reset_at TEXT NOT NULL
			)`,

			// Wipe audit log - append-only, survives wipes.
			`CREATE TABLE IF NOT EXISTS wipe_log (
				id TEXT PRIMARY KEY,
				wiped_at TEXT NOT NULL,
				reason TEXT NOT NULL,
				final_ih_value INTEGER NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_wipe_log_wiped_at ON wipe_log(wiped_at)`,

			// Identity backup - transient singleton snapshot taken before a
			// death sequence, consumed by restore or wipe.
			`CREATE TABLE IF NOT EXISTS identity_backup (
				id INTEGER PRIMARY KEY CHECK (id = 1),
				anti_vision TEXT NOT NULL,
				identity_statement TEXT NOT NULL,
				one_year_mission TEXT NOT NULL,
				original_ih INTEGER NOT NULL,
				backed_up_at TEXT NOT NULL
			)`,

			// Insurance purchase history - append-only, survives wipes.
			`CREATE TABLE IF NOT EXISTS insurance_purchases (
				id TEXT PRIMARY KEY,
				transaction_id TEXT NOT NULL,
				product_id TEXT NOT NULL,
				price_amount REAL NOT NULL,
				price_currency TEXT NOT NULL,
				life_number INTEGER NOT NULL,
				purchased_at TEXT NOT NULL,
				ih_before INTEGER NOT NULL,
				ih_after INTEGER NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_insurance_purchases_life ON insurance_purchases(life_number)`,

			// Onboarding step pointer.
			`CREATE TABLE IF NOT EXISTS onboarding_state (
				id INTEGER PRIMARY KEY CHECK (id = 1),
				current_step TEXT NOT NULL DEFAULT 'covenant',
				updated_at TEXT NOT NULL
			)`,

			// Partial onboarding payload accumulated across steps.
			`CREATE TABLE IF NOT EXISTS onboarding_data (
				id INTEGER PRIMARY KEY CHECK (id = 1),
				anti_vision TEXT NOT NULL DEFAULT '',
				identity_statement TEXT NOT NULL DEFAULT '',
				one_year_mission TEXT NOT NULL DEFAULT '',
				quest1 TEXT NOT NULL DEFAULT '',
				quest2 TEXT NOT NULL DEFAULT '',
				updated_at TEXT NOT NULL
			)`,
		},
	})
}
