// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the District Tally API.

# Handler Types

Each handler is a struct with database and config dependencies:

  - ElectionHandler: Election lifecycle and phase broadcasts
  - DistrictHandler: District creation, status, and voter registration
  - VotingHandler: Ballot casting and retrieval
  - ResultsHandler: Result submission and global result reads
  - TallyHandler: Live district tally reads

Handlers are created via constructor functions that accept *sql.DB and Config:

	electionHandler := handlers.NewElectionHandler(db, cfg)

# Election Lifecycle

Elections progress through five phases:

	setup → registration → voting → ended → results_collected

	POST /elections                    → CreateElection (returns admin_key)
	POST /elections/{id}/candidates    → AddCandidate (setup only)
	POST /elections/{id}/registration  → BeginRegistration
	POST /elections/{id}/voting        → BeginVoting (broadcast to districts)
	POST /elections/{id}/end           → EndVoting (broadcast to districts)
	POST /elections/{id}/collect       → CollectResults (broadcast to districts)

Admin operations require the X-Admin-Key header. Each broadcast walks
districts in ascending id order inside one transaction; a single
rejection rolls back the whole broadcast.

# District Submission

Each district reports its results upward exactly once. The stored
district_result row is the submitted flag; a second submission is
rejected. When the last district reports, the election finalizes and the
winner is chosen by a first-strictly-greater scan over global totals, so
ties resolve to the lowest candidate id.

# Voting Flow

Voters are registered per district during the registration phase and
cast one ballot each while their district is active:

	POST /elections/{id}/districts/{d}/voters → RegisterVoters (admin)
	POST /elections/{id}/districts/{d}/ballots → CastVote (X-Voter-Address)

A score strictly above the district's scale minimum counts as a vote for
that candidate; the minimum means "no support".

# Tally Computation

The district-local tally math is implemented in tally.go:

	normalizedScore(sum, ballots, min, max)  // 0-100, scale independent
	averageScore(sum, voteCount, min)        // mean among supporters
	winnerIndex(totals)                      // first strictly greater total

district_tally rows are folded forward on every ballot, so reading a
tally never walks individual ballots.
*/
package handlers
