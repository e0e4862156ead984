// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db handles database schema creation.

# Schema Creation

CreateSchema initializes all required tables:

	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and
indexes. The DDL is restricted to the SQL subset both SQLite and
PostgreSQL accept.

# Tables

The schema includes:

  - election: Election metadata, phase, caps, and running counters
  - candidate: Candidates with global score/vote totals
  - district: District tally units with baked scale and phase
  - voter: Per-district voter roll with has_voted flag
  - ballot: One ballot per voter per district
  - ballot_score: Individual candidate scores per ballot
  - district_tally: Running per-candidate accumulators per district
  - district_result: Write-once submitted result record per district
  - district_result_score: Per-candidate arrays of a submitted result

# Relationships

	election 1──* candidate
	election 1──* district
	district 1──* voter
	district 1──* ballot
	ballot   1──* ballot_score
	district 1──* district_tally
	district 1──1 district_result
	district_result 1──* district_result_score

All foreign keys use ON DELETE CASCADE.

# Indexes

Performance indexes on:

  - election.phase
  - district.(election_id, address)
  - ballot.(election_id, district_id)

The voter roll and the tally tables are covered by their composite
primary keys.
*/
package db
