// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/danielhkuo/district-tally/auth"
	"github.com/danielhkuo/district-tally/cliparse"
	"github.com/danielhkuo/district-tally/middleware"
	"github.com/danielhkuo/district-tally/models"
)

// Submission failures, mapped to HTTP statuses by submissionError
var (
	errDistrictNotEnded   = errors.New("district has not ended voting")
	errAlreadySubmitted   = errors.New("district has already submitted results")
	errScoreArrayMismatch = errors.New("score arrays must match candidate count")
)

type ResultsHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewResultsHandler(db *sql.DB, cfg cliparse.Config) *ResultsHandler {
	return &ResultsHandler{db: db, cfg: cfg}
}

// SubmitResults handles POST /elections/:id/districts/:districtID/results
//
// The one-shot upward callback: a district pushes its local tally into the
// global aggregates exactly once. The caller must present the capability
// token issued for exactly this district at creation time. The internal
// collectResults broadcast drives the same submission path; this endpoint
// exists so an independently deployed district can replay its own
// submission.
func (h *ResultsHandler) SubmitResults(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	districtID, ok := parseDistrictID(w, r)
	if electionID == "" || !ok {
		return
	}

	token := r.Header.Get("X-District-Token")
	if token == "" {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "X-District-Token header required")
		return
	}
	if err := auth.ValidateDistrictToken(electionID, districtID, token, h.cfg.DistrictTokenSalt); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid district token")
		return
	}

	var req models.SubmitResultsRequest
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

	var exists bool
	err = tx.QueryRow(`
		SELECT EXISTS(SELECT 1 FROM district WHERE election_id = $1 AND id = $2)
	`, electionID, districtID).Scan(&exists)
	if err != nil {
		slog.Error("failed to query district", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if !exists {
		middleware.ErrorResponse(w, http.StatusNotFound, "District not found")
		return
	}

	submitted, finalized, err := applyDistrictSubmission(tx, electionID, districtID,
		req.Scores, req.VoteCounts, req.TotalVotes, time.Now())
	if err != nil {
		status, msg := submissionError(err, districtID)
		middleware.ErrorResponse(w, status, msg)
		return
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to submit results")
		return
	}

	slog.Info("district results submitted", "election_id", electionID,
		"district_id", districtID, "total_votes", req.TotalVotes, "finalized", finalized)

	middleware.JSONResponse(w, http.StatusOK, models.SubmitResultsResponse{
		ResultsSubmitted: submitted,
		Finalized:        finalized,
	})
}

// applyDistrictSubmission runs the one-shot result submission for one
// district inside tx: stores the write-once result record, folds the
// arrays into the global candidate totals and election counters, and flips
// the district to results_submitted. When the submission is the last one
// outstanding it advances the election to results_collected and runs
// winner finalization. Returns the new submitted count and whether the
// election finalized.
func applyDistrictSubmission(tx *sql.Tx, electionID string, districtID int, scores, voteCounts []int, totalVotes int, now time.Time) (int, bool, error) {
	var phase string
	var candidateCount int
	err := tx.QueryRow(`
		SELECT phase, candidate_count FROM district WHERE election_id = $1 AND id = $2
	`, electionID, districtID).Scan(&phase, &candidateCount)
	if err != nil {
		return 0, false, err
	}

	if phase == models.DistrictResultsSubmitted {
		return 0, false, errAlreadySubmitted
	}
	if phase != models.DistrictEnded {
		return 0, false, errDistrictNotEnded
	}

	// Redundant with the phase flip below, but the stored record is the
	// authoritative submitted flag and must never be overwritten.
	var alreadyStored bool
	err = tx.QueryRow(`
		SELECT EXISTS(SELECT 1 FROM district_result WHERE election_id = $1 AND district_id = $2)
	`, electionID, districtID).Scan(&alreadyStored)
	if err != nil {
		return 0, false, err
	}
	if alreadyStored {
		return 0, false, errAlreadySubmitted
	}

	if len(scores) != candidateCount || len(voteCounts) != candidateCount {
		return 0, false, errScoreArrayMismatch
	}

	_, err = tx.Exec(`
		INSERT INTO district_result (election_id, district_id, total_votes, submitted_at)
		VALUES ($1, $2, $3, $4)
	`, electionID, districtID, totalVotes, now)
	if err != nil {
		return 0, false, err
	}

	for i := range scores {
		_, err = tx.Exec(`
			INSERT INTO district_result_score (election_id, district_id, candidate_id, score_sum, vote_count)
			VALUES ($1, $2, $3, $4, $5)
		`, electionID, districtID, i, scores[i], voteCounts[i])
		if err != nil {
			return 0, false, err
		}

		_, err = tx.Exec(`
			UPDATE candidate
			SET total_score = total_score + $1, total_votes = total_votes + $2
			WHERE election_id = $3 AND id = $4
		`, scores[i], voteCounts[i], electionID, i)
		if err != nil {
			return 0, false, err
		}
	}

	_, err = tx.Exec(`
		UPDATE district SET phase = $1 WHERE election_id = $2 AND id = $3
	`, models.DistrictResultsSubmitted, electionID, districtID)
	if err != nil {
		return 0, false, err
	}

	_, err = tx.Exec(`
		UPDATE election
		SET votes_cast = votes_cast + $1, results_submitted = results_submitted + 1
		WHERE id = $2
	`, totalVotes, electionID)
	if err != nil {
		return 0, false, err
	}

	var submitted, districtCount int
	err = tx.QueryRow(`
		SELECT results_submitted FROM election WHERE id = $1
	`, electionID).Scan(&submitted)
	if err != nil {
		return 0, false, err
	}
	err = tx.QueryRow(`
		SELECT COUNT(*) FROM district WHERE election_id = $1
	`, electionID).Scan(&districtCount)
	if err != nil {
		return 0, false, err
	}

	// Finalization barrier: only the last qualifying submission advances
	// the global phase and picks the winner.
	if submitted < districtCount {
		return submitted, false, nil
	}

	if err := finalizeElection(tx, electionID, now); err != nil {
		return 0, false, err
	}
	return submitted, true, nil
}

// finalizeElection advances the election to results_collected and records
// the winner: a single scan over candidates in id order keeping the first
// strictly greater total score, so ties go to the lowest candidate id.
func finalizeElection(tx *sql.Tx, electionID string, now time.Time) error {
	rows, err := tx.Query(`
		SELECT total_score FROM candidate WHERE election_id = $1 ORDER BY id
	`, electionID)
	if err != nil {
		return err
	}
	defer rows.Close()

	var totals []int
	for rows.Next() {
		var score int
		if err := rows.Scan(&score); err != nil {
			return err
		}
		totals = append(totals, score)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	winner := winnerIndex(totals)

	_, err = tx.Exec(`
		UPDATE election SET phase = $1, winner_id = $2, finalized_at = $3 WHERE id = $4
	`, models.PhaseResultsCollected, winner, now, electionID)
	return err
}

// submissionError maps a submission failure to an HTTP status and message
func submissionError(err error, districtID int) (int, string) {
	id := strconv.Itoa(districtID)
	switch {
	case errors.Is(err, errAlreadySubmitted):
		return http.StatusConflict, "District " + id + " has already submitted results"
	case errors.Is(err, errDistrictNotEnded):
		return http.StatusConflict, "District " + id + " has not ended voting"
	case errors.Is(err, errScoreArrayMismatch):
		return http.StatusBadRequest, "Score arrays must match candidate count"
	default:
		slog.Error("district submission failed", "error", err, "district_id", districtID)
		return http.StatusInternalServerError, "Failed to submit results"
	}
}

// GetResults handles GET /elections/:id/results
// Returns parallel per-candidate arrays in candidate id order.
func (h *ResultsHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	if electionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "election_id is required")
		return
	}

	var exists bool
	err := h.db.QueryRow(`
		SELECT EXISTS(SELECT 1 FROM election WHERE id = $1)
	`, electionID).Scan(&exists)
	if err != nil {
		slog.Error("failed to query election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if !exists {
		middleware.ErrorResponse(w, http.StatusNotFound, "Election not found")
		return
	}

	rows, err := h.db.Query(`
		SELECT name, party, total_score, total_votes
		FROM candidate
		WHERE election_id = $1
		ORDER BY id
	`, electionID)
	if err != nil {
		slog.Error("failed to query candidates", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	resp := models.ElectionResultsResponse{
		Names:       []string{},
		Parties:     []string{},
		TotalScores: []int{},
		TotalVotes:  []int{},
	}
	for rows.Next() {
		var name, party string
		var score, votes int
		if err := rows.Scan(&name, &party, &score, &votes); err != nil {
			slog.Error("failed to scan candidate", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		resp.Names = append(resp.Names, name)
		resp.Parties = append(resp.Parties, party)
		resp.TotalScores = append(resp.TotalScores, score)
		resp.TotalVotes = append(resp.TotalVotes, votes)
	}

	middleware.JSONResponse(w, http.StatusOK, resp)
}

// GetWinner handles GET /elections/:id/winner
// Fails until every district has submitted and the election finalized.
func (h *ResultsHandler) GetWinner(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	if electionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "election_id is required")
		return
	}

	var phase string
	var winnerID sql.NullInt64
	err := h.db.QueryRow(`
		SELECT phase, winner_id FROM election WHERE id = $1
	`, electionID).Scan(&phase, &winnerID)

	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Election not found")
		return
	}
	if err != nil {
		slog.Error("failed to query election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if phase != models.PhaseResultsCollected || !winnerID.Valid {
		middleware.ErrorResponse(w, http.StatusConflict, "Results have not been collected")
		return
	}

	var resp models.WinnerResponse
	resp.CandidateID = int(winnerID.Int64)
	err = h.db.QueryRow(`
		SELECT name, party, total_score
		FROM candidate
		WHERE election_id = $1 AND id = $2
	`, electionID, resp.CandidateID).Scan(&resp.Name, &resp.Party, &resp.TotalScore)
	if err != nil {
		slog.Error("failed to query winner", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, resp)
}

// GetStats handles GET /elections/:id/stats
func (h *ResultsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	if electionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "election_id is required")
		return
	}

	var resp models.ElectionStatsResponse
	err := h.db.QueryRow(`
		SELECT voters_registered, votes_cast, results_submitted, phase
		FROM election
		WHERE id = $1
	`, electionID).Scan(&resp.VotersRegistered, &resp.VotesCast, &resp.ResultsSubmitted, &resp.Phase)

	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Election not found")
		return
	}
	if err != nil {
		slog.Error("failed to query election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	err = h.db.QueryRow(`
		SELECT COUNT(*) FROM district WHERE election_id = $1
	`, electionID).Scan(&resp.Districts)
	if err != nil {
		slog.Error("failed to count districts", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	resp.TurnoutPct = turnoutPct(resp.VotesCast, resp.VotersRegistered)

	middleware.JSONResponse(w, http.StatusOK, resp)
}

// GetDistrictResult handles GET /elections/:id/districts/:districtID/results
// Returns the stored write-once record; submitted is false with empty
// arrays when the district has not reported yet.
func (h *ResultsHandler) GetDistrictResult(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	districtID, ok := parseDistrictID(w, r)
	if electionID == "" || !ok {
		return
	}

	var exists bool
	err := h.db.QueryRow(`
		SELECT EXISTS(SELECT 1 FROM district WHERE election_id = $1 AND id = $2)
	`, electionID, districtID).Scan(&exists)
	if err != nil {
		slog.Error("failed to query district", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if !exists {
		middleware.ErrorResponse(w, http.StatusNotFound, "District not found")
		return
	}

	result := models.DistrictResult{
		ElectionID: electionID,
		DistrictID: districtID,
		Scores:     []int{},
		VoteCounts: []int{},
	}

	var submittedAt time.Time
	err = h.db.QueryRow(`
		SELECT total_votes, submitted_at
		FROM district_result
		WHERE election_id = $1 AND district_id = $2
	`, electionID, districtID).Scan(&result.TotalVotes, &submittedAt)

	if err == sql.ErrNoRows {
		middleware.JSONResponse(w, http.StatusOK, result)
		return
	}
	if err != nil {
		slog.Error("failed to query district result", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	result.Submitted = true
	result.SubmittedAt = &submittedAt

	rows, err := h.db.Query(`
		SELECT score_sum, vote_count
		FROM district_result_score
		WHERE election_id = $1 AND district_id = $2
		ORDER BY candidate_id
	`, electionID, districtID)
	if err != nil {
		slog.Error("failed to query district result scores", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	for rows.Next() {
		var score, votes int
		if err := rows.Scan(&score, &votes); err != nil {
			slog.Error("failed to scan district result score", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		result.Scores = append(result.Scores, score)
		result.VoteCounts = append(result.VoteCounts, votes)
	}

	middleware.JSONResponse(w, http.StatusOK, result)
}

// parseDistrictID reads the districtID path value, writing a 400 on bad input
func parseDistrictID(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.PathValue("districtID")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "district_id must be a non-negative integer")
		return 0, false
	}
	return id, true
}
