package storage

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS teams (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		flag_url TEXT,
		logo_url TEXT,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS tournaments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		logo_url TEXT,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS matches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		vlr_match_id TEXT NOT NULL UNIQUE,
		team1_id INTEGER REFERENCES teams(id),
		team2_id INTEGER REFERENCES teams(id),
		tournament_id INTEGER REFERENCES tournaments(id),
		status TEXT NOT NULL CHECK (status IN ('upcoming', 'live', 'completed')),
		match_time TIMESTAMP,
		match_format TEXT,
		stage TEXT,
		team1_score INTEGER NOT NULL DEFAULT 0,
		team2_score INTEGER NOT NULL DEFAULT 0,
		match_url TEXT,
		vod_url TEXT,
		stats_url TEXT,
		maps_data TEXT,
		player_stats TEXT,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_matches_status ON matches(status)`,
	`CREATE INDEX IF NOT EXISTS idx_matches_time ON matches(match_time)`,
	`CREATE TABLE IF NOT EXISTS scraping_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		scrape_type TEXT NOT NULL,
		url TEXT,
		status TEXT NOT NULL CHECK (status IN ('success', 'error', 'in_progress')),
		error_message TEXT,
		matches_found INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS teams (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		flag_url TEXT,
		logo_url TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS tournaments (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		logo_url TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS matches (
		id BIGSERIAL PRIMARY KEY,
		vlr_match_id TEXT NOT NULL UNIQUE,
		team1_id BIGINT REFERENCES teams(id),
		team2_id BIGINT REFERENCES teams(id),
		tournament_id BIGINT REFERENCES tournaments(id),
		status TEXT NOT NULL CHECK (status IN ('upcoming', 'live', 'completed')),
		match_time TIMESTAMPTZ,
		match_format TEXT,
		stage TEXT,
		team1_score INTEGER NOT NULL DEFAULT 0,
		team2_score INTEGER NOT NULL DEFAULT 0,
		match_url TEXT,
		vod_url TEXT,
		stats_url TEXT,
		maps_data TEXT,
		player_stats TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_matches_status ON matches(status)`,
	`CREATE INDEX IF NOT EXISTS idx_matches_time ON matches(match_time)`,
	`CREATE TABLE IF NOT EXISTS scraping_logs (
		id BIGSERIAL PRIMARY KEY,
		scrape_type TEXT NOT NULL,
		url TEXT,
		status TEXT NOT NULL CHECK (status IN ('success', 'error', 'in_progress')),
		error_message TEXT,
		matches_found INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}
