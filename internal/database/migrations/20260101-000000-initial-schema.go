package migrations

func init() {
	Register(Migration{
		Timestamp:   "20260101-000000",
		Description: "initial jobops schema",
		Up: []string{
			`CREATE TABLE IF NOT EXISTS jobs (
				job_key TEXT PRIMARY KEY,
				job_url TEXT NOT NULL,
				job_url_raw TEXT NOT NULL,
				source_domain TEXT NOT NULL,
				external_id TEXT,

				role_title TEXT NOT NULL DEFAULT '',
				company TEXT NOT NULL DEFAULT '',
				location TEXT NOT NULL DEFAULT '',
				work_mode TEXT NOT NULL DEFAULT '',
				seniority TEXT NOT NULL DEFAULT '',
				experience_min_years INTEGER,
				experience_max_years INTEGER,
				must_have TEXT NOT NULL DEFAULT '[]',
				nice_to_have TEXT NOT NULL DEFAULT '[]',
				reject TEXT NOT NULL DEFAULT '[]',

				jd_text_clean TEXT NOT NULL DEFAULT '',
				jd_source TEXT NOT NULL DEFAULT 'none',
				fetch_status TEXT NOT NULL DEFAULT 'ok',
				jd_confidence TEXT NOT NULL DEFAULT 'low',

				primary_target_id TEXT,
				score_must REAL,
				score_nice REAL,
				final_score REAL,
				reject_triggered INTEGER NOT NULL DEFAULT 0,
				reject_reasons TEXT NOT NULL DEFAULT '[]',
				reason_top_matches TEXT NOT NULL DEFAULT '',

				status TEXT NOT NULL DEFAULT 'NEW',
				system_status TEXT,

				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				last_scored_at TEXT,
				applied_at TEXT,
				rejected_at TEXT,
				archived_at TEXT
			)`,
			`CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status)`,
			`CREATE INDEX IF NOT EXISTS idx_jobs_source_domain ON jobs(source_domain)`,
			`CREATE INDEX IF NOT EXISTS idx_jobs_updated_at ON jobs(updated_at)`,

			`CREATE TABLE IF NOT EXISTS targets (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				primary_role TEXT NOT NULL DEFAULT '',
				seniority TEXT NOT NULL DEFAULT '',
				location TEXT NOT NULL DEFAULT '',
				must_keywords TEXT NOT NULL DEFAULT '[]',
				nice_keywords TEXT NOT NULL DEFAULT '[]',
				reject_keywords TEXT NOT NULL DEFAULT '[]',
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,

			`CREATE TABLE IF NOT EXISTS scoring_runs (
				id TEXT PRIMARY KEY,
				job_key TEXT NOT NULL REFERENCES jobs(job_key) ON DELETE CASCADE,
				source TEXT NOT NULL,
				final_status TEXT NOT NULL,
				heuristic_reasons TEXT NOT NULL DEFAULT '[]',
				stages_json TEXT NOT NULL DEFAULT '{}',
				ai_model TEXT NOT NULL DEFAULT '',
				total_latency_ms INTEGER NOT NULL DEFAULT 0,
				final_score REAL,
				reject_triggered INTEGER NOT NULL DEFAULT 0,
				created_at TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_scoring_runs_job_key ON scoring_runs(job_key)`,

			`CREATE TABLE IF NOT EXISTS job_evidence (
				id TEXT PRIMARY KEY,
				job_key TEXT NOT NULL REFERENCES jobs(job_key) ON DELETE CASCADE,
				requirement_text TEXT NOT NULL,
				requirement_type TEXT NOT NULL,
				evidence_text TEXT NOT NULL DEFAULT '',
				evidence_source TEXT NOT NULL DEFAULT '',
				confidence_score INTEGER NOT NULL DEFAULT 0,
				matched INTEGER NOT NULL DEFAULT 0,
				notes TEXT NOT NULL DEFAULT '',
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				UNIQUE(job_key, requirement_text, requirement_type)
			)`,

			`CREATE TABLE IF NOT EXISTS contacts (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL DEFAULT '',
				company TEXT NOT NULL DEFAULT '',
				email TEXT UNIQUE,
				linkedin_url TEXT UNIQUE,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,

			`CREATE TABLE IF NOT EXISTS contact_touchpoints (
				id TEXT PRIMARY KEY,
				contact_id TEXT NOT NULL REFERENCES contacts(id) ON DELETE CASCADE,
				job_key TEXT NOT NULL REFERENCES jobs(job_key) ON DELETE CASCADE,
				channel TEXT NOT NULL,
				status TEXT NOT NULL DEFAULT 'DRAFT',
				content TEXT NOT NULL DEFAULT '',
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				UNIQUE(contact_id, job_key, channel)
			)`,

			`CREATE TABLE IF NOT EXISTS events (
				id TEXT PRIMARY KEY,
				event_type TEXT NOT NULL,
				job_key TEXT,
				payload_json TEXT NOT NULL DEFAULT '{}',
				ts TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_events_ts ON events(ts)`,
			`CREATE INDEX IF NOT EXISTS idx_events_job_key ON events(job_key)`,
		},
	})
}
