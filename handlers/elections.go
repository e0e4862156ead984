// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/danielhkuo/district-tally/auth"
	"github.com/danielhkuo/district-tally/cliparse"
	"github.com/danielhkuo/district-tally/middleware"
	"github.com/danielhkuo/district-tally/models"
)

type ElectionHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewElectionHandler(db *sql.DB, cfg cliparse.Config) *ElectionHandler {
	return &ElectionHandler{db: db, cfg: cfg}
}

// validateAdmin checks the X-Admin-Key header against the election's derived key
func validateAdmin(w http.ResponseWriter, r *http.Request, electionID, salt string) bool {
	adminKey := r.Header.Get("X-Admin-Key")
	if err := auth.ValidateAdminKey(electionID, adminKey, salt); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid admin key")
		return false
	}
	return true
}

// CreateElection handles POST /elections
func (h *ElectionHandler) CreateElection(w http.ResponseWriter, r *http.Request) {
	var req models.CreateElectionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Title == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.MaxCandidates == 0 {
		req.MaxCandidates = models.DefaultMaxCandidates
	}
	if req.MaxDistricts == 0 {
		req.MaxDistricts = models.DefaultMaxDistricts
	}
	if req.MaxCandidates < 0 || req.MaxDistricts < 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "caps must be positive")
		return
	}

	electionID, err := auth.GenerateID(16)
	if err != nil {
		slog.Error("failed to generate election ID", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create election")
		return
	}

	adminKey := auth.GenerateAdminKey(electionID, h.cfg.AdminKeySalt)

	_, err = h.db.Exec(`
		INSERT INTO election (id, title, phase, scale_min, scale_max, max_candidates, max_districts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, electionID, req.Title, models.PhaseSetup, models.DefaultScaleMin, models.DefaultScaleMax,
		req.MaxCandidates, req.MaxDistricts, time.Now())

	if err != nil {
		slog.Error("failed to insert election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create election")
		return
	}

	slog.Info("election created", "election_id", electionID, "title", req.Title)

	middleware.JSONResponse(w, http.StatusCreated, models.CreateElectionResponse{
		ElectionID: electionID,
		AdminKey:   adminKey,
	})
}

// AddCandidate handles POST /elections/:id/candidates
// Valid only during setup; candidate ids are sequential from zero.
func (h *ElectionHandler) AddCandidate(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	if electionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "election_id is required")
		return
	}

	if !validateAdmin(w, r, electionID, h.cfg.AdminKeySalt) {
		return
	}

	var req models.AddCandidateRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Name == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "name is required")
		return
	}

	tx, err := h.db.Begin()
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	var phase string
	var emergencyStop bool
	var maxCandidates int
	err = tx.QueryRow(`
		SELECT phase, emergency_stop, max_candidates FROM election WHERE id = $1
	`, electionID).Scan(&phase, &emergencyStop, &maxCandidates)

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
	if phase != models.PhaseSetup {
		middleware.ErrorResponse(w, http.StatusConflict, "Candidates can only be added during setup")
		return
	}

	var count int
	err = tx.QueryRow(`
		SELECT COUNT(*) FROM candidate WHERE election_id = $1
	`, electionID).Scan(&count)
	if err != nil {
		slog.Error("failed to count candidates", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if count >= maxCandidates {
		middleware.ErrorResponse(w, http.StatusConflict, "Candidate limit reached")
		return
	}

	_, err = tx.Exec(`
		INSERT INTO candidate (election_id, id, name, party)
		VALUES ($1, $2, $3, $4)
	`, electionID, count, req.Name, req.Party)
	if err != nil {
		slog.Error("failed to insert candidate", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to add candidate")
		return
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to add candidate")
		return
	}

	slog.Info("candidate added", "election_id", electionID, "candidate_id", count, "name", req.Name)

	middleware.JSONResponse(w, http.StatusCreated, models.AddCandidateResponse{
		CandidateID: count,
	})
}

// SetScale handles PUT /elections/:id/scale
// The scale is baked into districts at creation time, so changing it here
// only affects districts created afterward.
func (h *ElectionHandler) SetScale(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	if electionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "election_id is required")
		return
	}

	if !validateAdmin(w, r, electionID, h.cfg.AdminKeySalt) {
		return
	}

	var req models.SetScaleRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.MaxScore <= req.MinScore {
		middleware.ErrorResponse(w, http.StatusBadRequest, "max_score must exceed min_score")
		return
	}
	if req.MaxScore-req.MinScore > models.MaxScaleRange {
		middleware.ErrorResponse(w, http.StatusBadRequest, "scale range cannot exceed 100")
		return
	}

	if !h.checkSetupMutable(w, electionID) {
		return
	}

	_, err := h.db.Exec(`
		UPDATE election SET scale_min = $1, scale_max = $2 WHERE id = $3
	`, req.MinScore, req.MaxScore, electionID)
	if err != nil {
		slog.Error("failed to update scale", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to set scale")
		return
	}

	slog.Info("scoring scale set", "election_id", electionID, "min", req.MinScore, "max", req.MaxScore)

	middleware.JSONResponse(w, http.StatusOK, models.ScaleResponse{
		MinScore: req.MinScore,
		MaxScore: req.MaxScore,
	})
}

// ResetScale handles DELETE /elections/:id/scale
func (h *ElectionHandler) ResetScale(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	if electionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "election_id is required")
		return
	}

	if !validateAdmin(w, r, electionID, h.cfg.AdminKeySalt) {
		return
	}

	if !h.checkSetupMutable(w, electionID) {
		return
	}

	_, err := h.db.Exec(`
		UPDATE election SET scale_min = $1, scale_max = $2 WHERE id = $3
	`, models.DefaultScaleMin, models.DefaultScaleMax, electionID)
	if err != nil {
		slog.Error("failed to reset scale", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to reset scale")
		return
	}

	slog.Info("scoring scale reset", "election_id", electionID)

	middleware.JSONResponse(w, http.StatusOK, models.ScaleResponse{
		MinScore: models.DefaultScaleMin,
		MaxScore: models.DefaultScaleMax,
	})
}

// checkSetupMutable verifies the election exists, is in setup, and is not
// emergency-stopped. Writes the error response itself on failure.
func (h *ElectionHandler) checkSetupMutable(w http.ResponseWriter, electionID string) bool {
	var phase string
	var emergencyStop bool
	err := h.db.QueryRow(`
		SELECT phase, emergency_stop FROM election WHERE id = $1
	`, electionID).Scan(&phase, &emergencyStop)

	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Election not found")
		return false
	}
	if err != nil {
		slog.Error("failed to query election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return false
	}

	if emergencyStop {
		middleware.ErrorResponse(w, http.StatusForbidden, "Emergency stop is active")
		return false
	}
	if phase != models.PhaseSetup {
		middleware.ErrorResponse(w, http.StatusConflict, "Scale can only be changed during setup")
		return false
	}
	return true
}

// BeginRegistration handles POST /elections/:id/registration
func (h *ElectionHandler) BeginRegistration(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	if electionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "election_id is required")
		return
	}

	if !validateAdmin(w, r, electionID, h.cfg.AdminKeySalt) {
		return
	}

	tx, err := h.db.Begin()
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	var phase string
	var emergencyStop bool
	err = tx.QueryRow(`
		SELECT phase, emergency_stop FROM election WHERE id = $1
	`, electionID).Scan(&phase, &emergencyStop)

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
	if phase != models.PhaseSetup {
		middleware.ErrorResponse(w, http.StatusConflict, "Election is not in setup")
		return
	}

	var candidateCount, districtCount int
	err = tx.QueryRow(`
		SELECT COUNT(*) FROM candidate WHERE election_id = $1
	`, electionID).Scan(&candidateCount)
	if err == nil {
		err = tx.QueryRow(`
			SELECT COUNT(*) FROM district WHERE election_id = $1
		`, electionID).Scan(&districtCount)
	}
	if err != nil {
		slog.Error("failed to count candidates and districts", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if candidateCount == 0 {
		middleware.ErrorResponse(w, http.StatusConflict, "At least one candidate is required")
		return
	}
	if districtCount == 0 {
		middleware.ErrorResponse(w, http.StatusConflict, "At least one district is required")
		return
	}

	_, err = tx.Exec(`
		UPDATE election SET phase = $1 WHERE id = $2
	`, models.PhaseRegistration, electionID)
	if err != nil {
		slog.Error("failed to update phase", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to begin registration")
		return
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to begin registration")
		return
	}

	slog.Info("registration started", "election_id", electionID,
		"candidates", candidateCount, "districts", districtCount)

	middleware.JSONResponse(w, http.StatusOK, models.PhaseResponse{
		Phase: models.PhaseRegistration,
	})
}

// BeginVoting handles POST /elections/:id/voting
//
// Broadcasts the start-voting transition to every district in ascending id
// order inside one transaction. A district with no registered voters
// rejects the transition, which fails the whole broadcast and leaves the
// election in registration.
func (h *ElectionHandler) BeginVoting(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	if electionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "election_id is required")
		return
	}

	if !validateAdmin(w, r, electionID, h.cfg.AdminKeySalt) {
		return
	}

	tx, err := h.db.Begin()
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	var phase string
	var emergencyStop bool
	var votersRegistered int
	err = tx.QueryRow(`
		SELECT phase, emergency_stop, voters_registered FROM election WHERE id = $1
	`, electionID).Scan(&phase, &emergencyStop, &votersRegistered)

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
	if phase != models.PhaseRegistration {
		middleware.ErrorResponse(w, http.StatusConflict, "Election is not in registration")
		return
	}
	if votersRegistered == 0 {
		middleware.ErrorResponse(w, http.StatusConflict, "No voters registered")
		return
	}

	districts, err := listDistrictStates(tx, electionID)
	if err != nil {
		slog.Error("failed to query districts", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	for _, d := range districts {
		if d.phase != models.DistrictSetup {
			middleware.ErrorResponse(w, http.StatusConflict,
				"District "+strconv.Itoa(d.id)+" is not in setup")
			return
		}
		if d.registered == 0 {
			middleware.ErrorResponse(w, http.StatusConflict,
				"District "+strconv.Itoa(d.id)+" has no registered voters")
			return
		}
	}

	for _, d := range districts {
		_, err = tx.Exec(`
			UPDATE district SET phase = $1 WHERE election_id = $2 AND id = $3
		`, models.DistrictActive, electionID, d.id)
		if err != nil {
			slog.Error("failed to activate district", "error", err, "district_id", d.id)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to begin voting")
			return
		}
	}

	_, err = tx.Exec(`
		UPDATE election SET phase = $1 WHERE id = $2
	`, models.PhaseVoting, electionID)
	if err != nil {
		slog.Error("failed to update phase", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to begin voting")
		return
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to begin voting")
		return
	}

	slog.Info("voting started", "election_id", electionID, "districts", len(districts))

	middleware.JSONResponse(w, http.StatusOK, models.PhaseResponse{
		Phase: models.PhaseVoting,
	})
}

// EndVoting handles POST /elections/:id/end
// Broadcasts the end-voting transition to every district, then records the
// global end timestamp.
func (h *ElectionHandler) EndVoting(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	if electionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "election_id is required")
		return
	}

	if !validateAdmin(w, r, electionID, h.cfg.AdminKeySalt) {
		return
	}

	tx, err := h.db.Begin()
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	var phase string
	var emergencyStop bool
	err = tx.QueryRow(`
		SELECT phase, emergency_stop FROM election WHERE id = $1
	`, electionID).Scan(&phase, &emergencyStop)

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
	if phase != models.PhaseVoting {
		middleware.ErrorResponse(w, http.StatusConflict, "Election is not in voting")
		return
	}

	districts, err := listDistrictStates(tx, electionID)
	if err != nil {
		slog.Error("failed to query districts", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	for _, d := range districts {
		if d.phase != models.DistrictActive {
			middleware.ErrorResponse(w, http.StatusConflict,
				"District "+strconv.Itoa(d.id)+" is not active")
			return
		}
	}

	for _, d := range districts {
		_, err = tx.Exec(`
			UPDATE district SET phase = $1 WHERE election_id = $2 AND id = $3
		`, models.DistrictEnded, electionID, d.id)
		if err != nil {
			slog.Error("failed to end district voting", "error", err, "district_id", d.id)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to end voting")
			return
		}
	}

	_, err = tx.Exec(`
		UPDATE election SET phase = $1, ended_at = $2 WHERE id = $3
	`, models.PhaseEnded, time.Now(), electionID)
	if err != nil {
		slog.Error("failed to update phase", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to end voting")
		return
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to end voting")
		return
	}

	slog.Info("voting ended", "election_id", electionID)

	middleware.JSONResponse(w, http.StatusOK, models.PhaseResponse{
		Phase: models.PhaseEnded,
	})
}

// CollectResults handles POST /elections/:id/collect
//
// Broadcasts submitResults to every district in ascending id order inside
// one transaction. Each district folds its local tally into the global
// aggregates exactly once; the last submission trips the finalization
// barrier and picks the winner. One rejection fails the whole broadcast.
func (h *ElectionHandler) CollectResults(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	if electionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "election_id is required")
		return
	}

	if !validateAdmin(w, r, electionID, h.cfg.AdminKeySalt) {
		return
	}

	tx, err := h.db.Begin()
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	var phase string
	var emergencyStop bool
	err = tx.QueryRow(`
		SELECT phase, emergency_stop FROM election WHERE id = $1
	`, electionID).Scan(&phase, &emergencyStop)

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
	if phase != models.PhaseEnded {
		middleware.ErrorResponse(w, http.StatusConflict, "Election has not ended voting")
		return
	}

	districts, err := listDistrictStates(tx, electionID)
	if err != nil {
		slog.Error("failed to query districts", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	now := time.Now()
	var submitted int
	var finalized bool
	for _, d := range districts {
		scores, voteCounts, err := readDistrictTally(tx, electionID, d.id)
		if err != nil {
			slog.Error("failed to read district tally", "error", err, "district_id", d.id)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}

		submitted, finalized, err = applyDistrictSubmission(tx, electionID, d.id, scores, voteCounts, d.votes, now)
		if err != nil {
			status, msg := submissionError(err, d.id)
			middleware.ErrorResponse(w, status, msg)
			return
		}
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to collect results")
		return
	}

	slog.Info("results collected", "election_id", electionID,
		"districts", len(districts), "finalized", finalized)

	middleware.JSONResponse(w, http.StatusOK, models.SubmitResultsResponse{
		ResultsSubmitted: submitted,
		Finalized:        finalized,
	})
}

// ToggleEmergencyStop handles POST /elections/:id/emergency-stop
// The toggle itself is the only admin mutation allowed while the flag is set.
func (h *ElectionHandler) ToggleEmergencyStop(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	if electionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "election_id is required")
		return
	}

	if !validateAdmin(w, r, electionID, h.cfg.AdminKeySalt) {
		return
	}

	var emergencyStop bool
	err := h.db.QueryRow(`
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

	_, err = h.db.Exec(`
		UPDATE election SET emergency_stop = $1 WHERE id = $2
	`, !emergencyStop, electionID)
	if err != nil {
		slog.Error("failed to toggle emergency stop", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to toggle emergency stop")
		return
	}

	slog.Warn("emergency stop toggled", "election_id", electionID, "emergency_stop", !emergencyStop)

	middleware.JSONResponse(w, http.StatusOK, models.EmergencyStopResponse{
		EmergencyStop: !emergencyStop,
	})
}

// GetElection handles GET /elections/:id
// Returns the election and its candidate list; totals reflect whatever
// district submissions have been folded in so far.
func (h *ElectionHandler) GetElection(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	if electionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "election_id is required")
		return
	}

	var e models.Election
	err := h.db.QueryRow(`
		SELECT id, title, phase, scale_min, scale_max, max_candidates, max_districts,
		       emergency_stop, voters_registered, votes_cast, results_submitted,
		       winner_id, ended_at, finalized_at, created_at
		FROM election
		WHERE id = $1
	`, electionID).Scan(
		&e.ID, &e.Title, &e.Phase, &e.ScaleMin, &e.ScaleMax, &e.MaxCandidates, &e.MaxDistricts,
		&e.EmergencyStop, &e.VotersRegistered, &e.VotesCast, &e.ResultsSubmitted,
		&e.WinnerID, &e.EndedAt, &e.FinalizedAt, &e.CreatedAt,
	)

	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Election not found")
		return
	}
	if err != nil {
		slog.Error("failed to query election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	rows, err := h.db.Query(`
		SELECT id, name, party, total_score, total_votes
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

	candidates := []models.Candidate{}
	for rows.Next() {
		var c models.Candidate
		if err := rows.Scan(&c.ID, &c.Name, &c.Party, &c.TotalScore, &c.TotalVotes); err != nil {
			slog.Error("failed to scan candidate", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		candidates = append(candidates, c)
	}

	middleware.JSONResponse(w, http.StatusOK, models.ElectionWithCandidates{
		Election:   e,
		Candidates: candidates,
	})
}

// districtState is the slice of district columns the broadcast loops need
type districtState struct {
	id         int
	phase      string
	registered int
	votes      int
}

// listDistrictStates returns district states in ascending id order, the
// fixed order every broadcast uses.
func listDistrictStates(tx *sql.Tx, electionID string) ([]districtState, error) {
	rows, err := tx.Query(`
		SELECT id, phase, registered_count, vote_count
		FROM district
		WHERE election_id = $1
		ORDER BY id
	`, electionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var districts []districtState
	for rows.Next() {
		var d districtState
		if err := rows.Scan(&d.id, &d.phase, &d.registered, &d.votes); err != nil {
			return nil, err
		}
		districts = append(districts, d)
	}

	return districts, rows.Err()
}
