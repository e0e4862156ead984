// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

const schema = `
-- Elections (orchestrator state: global phase machine, scale, caps, counters)
CREATE TABLE IF NOT EXISTS election (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    phase TEXT NOT NULL DEFAULT 'setup' CHECK (phase IN ('setup', 'registration', 'voting', 'ended', 'results_collected')),
    scale_min INTEGER NOT NULL DEFAULT 0,
    scale_max INTEGER NOT NULL DEFAULT 10,
    max_candidates INTEGER NOT NULL DEFAULT 10,
    max_districts INTEGER NOT NULL DEFAULT 50,
    emergency_stop BOOLEAN NOT NULL DEFAULT FALSE,
    voters_registered INTEGER NOT NULL DEFAULT 0,
    votes_cast INTEGER NOT NULL DEFAULT 0,
    results_submitted INTEGER NOT NULL DEFAULT 0,
    winner_id INTEGER,
    ended_at TIMESTAMP,
    finalized_at TIMESTAMP,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_election_phase ON election(phase);

-- Candidates (sequential ids per election; totals folded in on submission)
CREATE TABLE IF NOT EXISTS candidate (
    election_id TEXT NOT NULL REFERENCES election(id) ON DELETE CASCADE,
    id INTEGER NOT NULL,
    name TEXT NOT NULL,
    party TEXT NOT NULL,
    total_score INTEGER NOT NULL DEFAULT 0,
    total_votes INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (election_id, id)
);

-- Districts (tally units: local phase machine, baked scale, accumulator counts)
CREATE TABLE IF NOT EXISTS district (
    election_id TEXT NOT NULL REFERENCES election(id) ON DELETE CASCADE,
    id INTEGER NOT NULL,
    name TEXT NOT NULL,
    address TEXT NOT NULL,
    phase TEXT NOT NULL DEFAULT 'setup' CHECK (phase IN ('setup', 'active', 'ended', 'results_submitted')),
    scale_min INTEGER NOT NULL,
    scale_max INTEGER NOT NULL,
    candidate_count INTEGER NOT NULL,
    registered_count INTEGER NOT NULL DEFAULT 0,
    vote_count INTEGER NOT NULL DEFAULT 0,
    active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMP NOT NULL,
    PRIMARY KEY (election_id, id),
    UNIQUE (election_id, address),
    UNIQUE (election_id, name)
);

CREATE INDEX IF NOT EXISTS idx_district_address ON district(election_id, address);

-- Voter rolls (one row per registration event)
CREATE TABLE IF NOT EXISTS voter (
    election_id TEXT NOT NULL REFERENCES election(id) ON DELETE CASCADE,
    district_id INTEGER NOT NULL,
    address TEXT NOT NULL,
    has_voted BOOLEAN NOT NULL DEFAULT FALSE,
    registered_at TIMESTAMP NOT NULL,
    PRIMARY KEY (election_id, district_id, address)
);

-- Ballots (one per voter per district, immutable once cast)
CREATE TABLE IF NOT EXISTS ballot (
    id TEXT PRIMARY KEY,
    election_id TEXT NOT NULL REFERENCES election(id) ON DELETE CASCADE,
    district_id INTEGER NOT NULL,
    voter_address TEXT NOT NULL,
    cast_at TIMESTAMP NOT NULL,
    ip_hash TEXT,
    user_agent TEXT,
    UNIQUE (election_id, district_id, voter_address)
);

CREATE INDEX IF NOT EXISTS idx_ballot_district ON ballot(election_id, district_id);

-- Per-ballot scores, one row per candidate
CREATE TABLE IF NOT EXISTS ballot_score (
    ballot_id TEXT NOT NULL REFERENCES ballot(id) ON DELETE CASCADE,
    candidate_id INTEGER NOT NULL,
    score INTEGER NOT NULL,
    PRIMARY KEY (ballot_id, candidate_id)
);

-- District-local accumulators, folded forward in the same transaction as each ballot
CREATE TABLE IF NOT EXISTS district_tally (
    election_id TEXT NOT NULL REFERENCES election(id) ON DELETE CASCADE,
    district_id INTEGER NOT NULL,
    candidate_id INTEGER NOT NULL,
    score_sum INTEGER NOT NULL DEFAULT 0,
    vote_count INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (election_id, district_id, candidate_id)
);

-- Write-once district result records; row existence is the submitted flag
CREATE TABLE IF NOT EXISTS district_result (
    election_id TEXT NOT NULL REFERENCES election(id) ON DELETE CASCADE,
    district_id INTEGER NOT NULL,
    total_votes INTEGER NOT NULL,
    submitted_at TIMESTAMP NOT NULL,
    PRIMARY KEY (election_id, district_id)
);

CREATE TABLE IF NOT EXISTS district_result_score (
    election_id TEXT NOT NULL REFERENCES election(id) ON DELETE CASCADE,
    district_id INTEGER NOT NULL,
    candidate_id INTEGER NOT NULL,
    score_sum INTEGER NOT NULL,
    vote_count INTEGER NOT NULL,
    PRIMARY KEY (election_id, district_id, candidate_id)
);
`
