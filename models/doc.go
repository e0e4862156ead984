// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Request Types

Types for parsing incoming JSON:

  - CreateElectionRequest: title, optional caps
  - AddCandidateRequest: name, party
  - SetScaleRequest: min_score, max_score
  - CreateDistrictRequest: name
  - RegisterVotersRequest: addresses (batch)
  - CastVoteRequest: scores (one per candidate, in candidate id order)
  - SubmitResultsRequest: scores, vote_counts, total_votes

# Response Types

Types for JSON responses:

  - CreateElectionResponse: election_id, admin_key
  - CreateDistrictResponse: district_id, address, callback_token
  - CastVoteResponse: ballot_id, message
  - SubmitResultsResponse: results_submitted, finalized
  - ElectionResultsResponse: parallel per-candidate arrays
  - WinnerResponse: candidate_id, name, party, total_score
  - ElectionStatsResponse: counters plus turnout percentage
  - DistrictStatusResponse / DistrictBatchResponse: district state
  - DistrictTallyResponse: live district tally with derived scores
  - ErrorResponse: error, message

# Domain Types

Internal data structures:

  - Election: election metadata, phase, and running counters
  - Candidate: candidate with global totals
  - Ballot: cast ballot with its score array
  - CandidateTally: district-local accumulators with normalized score
  - DistrictResult: write-once submitted result record

# Constants

Election phases:

	PhaseSetup            = "setup"
	PhaseRegistration     = "registration"
	PhaseVoting           = "voting"
	PhaseEnded            = "ended"
	PhaseResultsCollected = "results_collected"

District phases:

	DistrictSetup            = "setup"
	DistrictActive           = "active"
	DistrictEnded            = "ended"
	DistrictResultsSubmitted = "results_submitted"

Scale defaults and caps:

	DefaultScaleMin = 0
	DefaultScaleMax = 10
	MaxScaleRange   = 100
*/
package models
