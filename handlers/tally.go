// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Score tallying for districts and elections.
//
// A ballot assigns each candidate an integer score on the district's baked
// scale. Any score strictly above the scale minimum counts as a vote for
// that candidate; the minimum expresses "no support". The running sums are
// kept in district_tally so reading a tally never walks individual ballots.
//
// Winner selection is a single pass over global totals in candidate id
// order keeping the first strictly greater score, which makes ties resolve
// to the lowest candidate id deterministically.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/district-tally/middleware"
	"github.com/danielhkuo/district-tally/models"
)

// winnerIndex returns the index of the highest total, lowest index winning
// ties. Returns -1 for an empty slice.
func winnerIndex(totals []int) int {
	if len(totals) == 0 {
		return -1
	}
	winner := 0
	for i := 1; i < len(totals); i++ {
		if totals[i] > totals[winner] {
			winner = i
		}
	}
	return winner
}

// normalizedScore rescales a raw score sum to 0-100 independent of the
// district's scale, so districts with different scales compare directly.
// Zero ballots normalizes to 0.
func normalizedScore(scoreSum, ballots, scaleMin, scaleMax int) int {
	if ballots == 0 || scaleMax <= scaleMin {
		return 0
	}
	return (scoreSum - ballots*scaleMin) * 100 / (ballots * (scaleMax - scaleMin))
}

// averageScore is the mean score among supporting voters. With no
// supporters the candidate sits at the scale floor.
func averageScore(scoreSum, voteCount, scaleMin int) float64 {
	if voteCount == 0 {
		return float64(scaleMin)
	}
	return float64(scoreSum) / float64(voteCount)
}

// turnoutPct returns cast votes as a whole percentage of registered voters
func turnoutPct(votesCast, votersRegistered int) int {
	if votersRegistered == 0 {
		return 0
	}
	return votesCast * 100 / votersRegistered
}

// readDistrictTally returns the running per-candidate score sums and vote
// counts for a district, in candidate id order, inside tx.
func readDistrictTally(tx *sql.Tx, electionID string, districtID int) ([]int, []int, error) {
	rows, err := tx.Query(`
		SELECT score_sum, vote_count
		FROM district_tally
		WHERE election_id = $1 AND district_id = $2
		ORDER BY candidate_id
	`, electionID, districtID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var scores, voteCounts []int
	for rows.Next() {
		var score, votes int
		if err := rows.Scan(&score, &votes); err != nil {
			return nil, nil, err
		}
		scores = append(scores, score)
		voteCounts = append(voteCounts, votes)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return scores, voteCounts, nil
}

type TallyHandler struct {
	db *sql.DB
}

func NewTallyHandler(db *sql.DB) *TallyHandler {
	return &TallyHandler{db: db}
}

// GetDistrictTally handles GET /elections/:id/districts/:districtID/tally
// The live local tally with derived normalized and average scores. Unlike
// the submitted result record this reflects ballots as they land.
func (h *TallyHandler) GetDistrictTally(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	districtID, ok := parseDistrictID(w, r)
	if electionID == "" || !ok {
		return
	}

	var scaleMin, scaleMax, ballots int
	err := h.db.QueryRow(`
		SELECT scale_min, scale_max, vote_count
		FROM district
		WHERE election_id = $1 AND id = $2
	`, electionID, districtID).Scan(&scaleMin, &scaleMax, &ballots)

	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "District not found")
		return
	}
	if err != nil {
		slog.Error("failed to query district", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	rows, err := h.db.Query(`
		SELECT t.candidate_id, c.name, t.score_sum, t.vote_count
		FROM district_tally t
		JOIN candidate c ON c.election_id = t.election_id AND c.id = t.candidate_id
		WHERE t.election_id = $1 AND t.district_id = $2
		ORDER BY t.candidate_id
	`, electionID, districtID)
	if err != nil {
		slog.Error("failed to query district tally", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	resp := models.DistrictTallyResponse{
		DistrictID: districtID,
		ScaleMin:   scaleMin,
		ScaleMax:   scaleMax,
		Ballots:    ballots,
		Candidates: []models.CandidateTally{},
	}

	for rows.Next() {
		var t models.CandidateTally
		if err := rows.Scan(&t.CandidateID, &t.Name, &t.ScoreSum, &t.VoteCount); err != nil {
			slog.Error("failed to scan district tally", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		t.NormalizedScore = normalizedScore(t.ScoreSum, ballots, scaleMin, scaleMax)
		t.AverageScore = averageScore(t.ScoreSum, t.VoteCount, scaleMin)
		resp.Candidates = append(resp.Candidates, t)
	}

	middleware.JSONResponse(w, http.StatusOK, resp)
}
