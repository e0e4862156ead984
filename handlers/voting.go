// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/district-tally/auth"
	"github.com/danielhkuo/district-tally/cliparse"
	"github.com/danielhkuo/district-tally/middleware"
	"github.com/danielhkuo/district-tally/models"
)

type VotingHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewVotingHandler(db *sql.DB, cfg cliparse.Config) *VotingHandler {
	return &VotingHandler{db: db, cfg: cfg}
}

// CastVote handles POST /elections/:id/districts/:districtID/ballots
//
// The voter presents their registered address in X-Voter-Address and one
// score per candidate in candidate id order. The ballot, its per-candidate
// scores, the district tally accumulators, the has_voted flag and the
// district ballot counter all change in one transaction. A score strictly
// above the district's scale minimum counts as a vote for that candidate.
func (h *VotingHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	districtID, ok := parseDistrictID(w, r)
	if electionID == "" || !ok {
		return
	}

	voterAddress := r.Header.Get("X-Voter-Address")
	if voterAddress == "" {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "X-Voter-Address header required")
		return
	}

	var req models.CastVoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	tx, err := h.db.Begin()
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	var emergencyStop bool
	err = tx.QueryRow(`
		SELECT emergency_stop FROM election WHERE id = $1
	`, electionID).Scan(&emergencyStop)

	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Election not found")
		return
	}
	if err != nil {
		slog.Error("failed to query election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if emergencyStop {
		middleware.ErrorResponse(w, http.StatusForbidden, "Emergency stop is active")
		return
	}

	var phase string
	var scaleMin, scaleMax, candidateCount int
	err = tx.QueryRow(`
		SELECT phase, scale_min, scale_max, candidate_count
		FROM district
		WHERE election_id = $1 AND id = $2
	`, electionID, districtID).Scan(&phase, &scaleMin, &scaleMax, &candidateCount)

	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "District not found")
		return
	}
	if err != nil {
		slog.Error("failed to query district", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if phase != models.DistrictActive {
		middleware.ErrorResponse(w, http.StatusConflict, "District is not accepting votes")
		return
	}

	if len(req.Scores) != candidateCount {
		middleware.ErrorResponse(w, http.StatusBadRequest, "scores must have one entry per candidate")
		return
	}
	for _, score := range req.Scores {
		if score < scaleMin || score > scaleMax {
			middleware.ErrorResponse(w, http.StatusBadRequest, "scores must be within the district scale")
			return
		}
	}

	var hasVoted bool
	err = tx.QueryRow(`
		SELECT has_voted FROM voter
		WHERE election_id = $1 AND district_id = $2 AND address = $3
	`, electionID, districtID, voterAddress).Scan(&hasVoted)

	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Voter is not registered in this district")
		return
	}
	if err != nil {
		slog.Error("failed to query voter", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if hasVoted {
		middleware.ErrorResponse(w, http.StatusConflict, "Voter has already cast a ballot")
		return
	}

	ballotID := uuid.NewString()
	ipHash := auth.HashIP(middleware.GetClientIP(r), h.cfg.AdminKeySalt)
	userAgent := r.UserAgent()

	_, err = tx.Exec(`
		INSERT INTO ballot (id, election_id, district_id, voter_address, cast_at, ip_hash, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, ballotID, electionID, districtID, voterAddress, time.Now(), ipHash, userAgent)
	if err != nil {
		slog.Error("failed to insert ballot", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to cast vote")
		return
	}

	for candidateID, score := range req.Scores {
		_, err = tx.Exec(`
			INSERT INTO ballot_score (ballot_id, candidate_id, score)
			VALUES ($1, $2, $3)
		`, ballotID, candidateID, score)
		if err != nil {
			slog.Error("failed to insert ballot score", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to cast vote")
			return
		}

		voteInc := 0
		if score > scaleMin {
			voteInc = 1
		}
		_, err = tx.Exec(`
			UPDATE district_tally
			SET score_sum = score_sum + $1, vote_count = vote_count + $2
			WHERE election_id = $3 AND district_id = $4 AND candidate_id = $5
		`, score, voteInc, electionID, districtID, candidateID)
		if err != nil {
			slog.Error("failed to update district tally", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to cast vote")
			return
		}
	}

	_, err = tx.Exec(`
		UPDATE voter SET has_voted = TRUE
		WHERE election_id = $1 AND district_id = $2 AND address = $3
	`, electionID, districtID, voterAddress)
	if err != nil {
		slog.Error("failed to update voter", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to cast vote")
		return
	}

	_, err = tx.Exec(`
		UPDATE district SET vote_count = vote_count + 1
		WHERE election_id = $1 AND id = $2
	`, electionID, districtID)
	if err != nil {
		slog.Error("failed to update district", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to cast vote")
		return
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to cast vote")
		return
	}

	slog.Info("ballot cast", "election_id", electionID, "district_id", districtID,
		"ballot_id", ballotID)

	middleware.JSONResponse(w, http.StatusCreated, models.CastVoteResponse{
		BallotID: ballotID,
		Message:  "Ballot recorded",
	})
}

// GetBallot handles GET /elections/:id/districts/:districtID/ballots/:address
//
// Until the district has submitted its results, only the voter who cast
// the ballot may read it back, proven by the X-Voter-Address header.
// After submission ballots are public record.
func (h *VotingHandler) GetBallot(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	address := r.PathValue("address")
	districtID, ok := parseDistrictID(w, r)
	if !ok {
		return
	}
	if electionID == "" || address == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "election_id and voter address are required")
		return
	}

	var districtPhase string
	err := h.db.QueryRow(`
		SELECT phase FROM district WHERE election_id = $1 AND id = $2
	`, electionID, districtID).Scan(&districtPhase)

	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "District not found")
		return
	}
	if err != nil {
		slog.Error("failed to query district", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if districtPhase != models.DistrictResultsSubmitted {
		if r.Header.Get("X-Voter-Address") != address {
			middleware.ErrorResponse(w, http.StatusForbidden, "Ballots are private until results are submitted")
			return
		}
	}

	var ballot models.Ballot
	err = h.db.QueryRow(`
		SELECT id, election_id, district_id, voter_address, cast_at
		FROM ballot
		WHERE election_id = $1 AND district_id = $2 AND voter_address = $3
	`, electionID, districtID, address).Scan(&ballot.ID, &ballot.ElectionID,
		&ballot.DistrictID, &ballot.VoterAddress, &ballot.CastAt)

	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Ballot not found")
		return
	}
	if err != nil {
		slog.Error("failed to query ballot", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	rows, err := h.db.Query(`
		SELECT score FROM ballot_score WHERE ballot_id = $1 ORDER BY candidate_id
	`, ballot.ID)
	if err != nil {
		slog.Error("failed to query ballot scores", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	ballot.Scores = []int{}
	for rows.Next() {
		var score int
		if err := rows.Scan(&score); err != nil {
			slog.Error("failed to scan ballot score", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		ballot.Scores = append(ballot.Scores, score)
	}

	middleware.JSONResponse(w, http.StatusOK, ballot)
}
