// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/danielhkuo/district-tally/auth"
	"github.com/danielhkuo/district-tally/cliparse"
	"github.com/danielhkuo/district-tally/middleware"
	"github.com/danielhkuo/district-tally/models"
)

type DistrictHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewDistrictHandler(db *sql.DB, cfg cliparse.Config) *DistrictHandler {
	return &DistrictHandler{db: db, cfg: cfg}
}

// CreateDistrict handles POST /elections/:id/districts
//
// District ids are sequential from zero. The election's current scale and
// candidate count are baked into the district row at creation; a later
// scale change never reaches existing districts. A pseudo-address and a
// callback token are minted for the new district, and the token is
// returned exactly once, here.
func (h *DistrictHandler) CreateDistrict(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	if electionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "election_id is required")
		return
	}

	if !validateAdmin(w, r, electionID, h.cfg.AdminKeySalt) {
		return
	}

	var req models.CreateDistrictRequest
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
	var scaleMin, scaleMax, maxDistricts int
	err = tx.QueryRow(`
		SELECT phase, emergency_stop, scale_min, scale_max, max_districts
		FROM election WHERE id = $1
	`, electionID).Scan(&phase, &emergencyStop, &scaleMin, &scaleMax, &maxDistricts)

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
		middleware.ErrorResponse(w, http.StatusConflict, "Districts can only be created during setup")
		return
	}

	var candidateCount int
	err = tx.QueryRow(`
		SELECT COUNT(*) FROM candidate WHERE election_id = $1
	`, electionID).Scan(&candidateCount)
	if err != nil {
		slog.Error("failed to count candidates", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if candidateCount == 0 {
		middleware.ErrorResponse(w, http.StatusConflict, "Add candidates before creating districts")
		return
	}

	var districtCount int
	err = tx.QueryRow(`
		SELECT COUNT(*) FROM district WHERE election_id = $1
	`, electionID).Scan(&districtCount)
	if err != nil {
		slog.Error("failed to count districts", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if districtCount >= maxDistricts {
		middleware.ErrorResponse(w, http.StatusConflict, "District limit reached")
		return
	}

	var nameTaken bool
	err = tx.QueryRow(`
		SELECT EXISTS(SELECT 1 FROM district WHERE election_id = $1 AND name = $2)
	`, electionID, req.Name).Scan(&nameTaken)
	if err != nil {
		slog.Error("failed to check district name", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if nameTaken {
		middleware.ErrorResponse(w, http.StatusConflict, "District name already in use")
		return
	}

	address, err := auth.GenerateDistrictAddress()
	if err != nil {
		slog.Error("failed to generate district address", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create district")
		return
	}

	_, err = tx.Exec(`
		INSERT INTO district (election_id, id, name, address, phase, scale_min, scale_max, candidate_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, electionID, districtCount, req.Name, address, models.DistrictSetup,
		scaleMin, scaleMax, candidateCount, time.Now())
	if err != nil {
		slog.Error("failed to insert district", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create district")
		return
	}

	// Zeroed accumulators so tally reads never special-case a fresh district
	for candidateID := 0; candidateID < candidateCount; candidateID++ {
		_, err = tx.Exec(`
			INSERT INTO district_tally (election_id, district_id, candidate_id, score_sum, vote_count)
			VALUES ($1, $2, $3, 0, 0)
		`, electionID, districtCount, candidateID)
		if err != nil {
			slog.Error("failed to insert district tally row", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create district")
			return
		}
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create district")
		return
	}

	token := auth.GenerateDistrictToken(electionID, districtCount, h.cfg.DistrictTokenSalt)

	slog.Info("district created", "election_id", electionID, "district_id", districtCount,
		"name", req.Name, "address", address)

	middleware.JSONResponse(w, http.StatusCreated, models.CreateDistrictResponse{
		DistrictID:    districtCount,
		Address:       address,
		CallbackToken: token,
	})
}

// GetDistrict handles GET /elections/:id/districts/:districtID
func (h *DistrictHandler) GetDistrict(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	districtID, ok := parseDistrictID(w, r)
	if electionID == "" || !ok {
		return
	}

	resp, err := h.districtStatus(electionID, `d.id = $2`, districtID)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "District not found")
		return
	}
	if err != nil {
		slog.Error("failed to query district", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, resp)
}

// GetDistrictByAddress handles GET /elections/:id/district-by-address/:address
func (h *DistrictHandler) GetDistrictByAddress(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	address := r.PathValue("address")
	if electionID == "" || address == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "election_id and address are required")
		return
	}

	resp, err := h.districtStatus(electionID, `d.address = $2`, address)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "District not found")
		return
	}
	if err != nil {
		slog.Error("failed to query district", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, resp)
}

func (h *DistrictHandler) districtStatus(electionID, where string, arg any) (models.DistrictStatusResponse, error) {
	var resp models.DistrictStatusResponse
	err := h.db.QueryRow(`
		SELECT d.id, d.name, d.address, d.phase, d.scale_min, d.scale_max,
		       d.candidate_count, d.registered_count, d.vote_count, d.active
		FROM district d
		WHERE d.election_id = $1 AND `+where,
		electionID, arg,
	).Scan(&resp.DistrictID, &resp.Name, &resp.Address, &resp.Phase,
		&resp.ScaleMin, &resp.ScaleMax, &resp.CandidateCount,
		&resp.RegisteredCount, &resp.VoteCount, &resp.Active)
	if err != nil {
		return resp, err
	}
	resp.TurnoutPct = turnoutPct(resp.VoteCount, resp.RegisteredCount)
	return resp, nil
}

// GetDistrictAddress handles GET /elections/:id/districts/:districtID/address
func (h *DistrictHandler) GetDistrictAddress(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	districtID, ok := parseDistrictID(w, r)
	if electionID == "" || !ok {
		return
	}

	var address string
	err := h.db.QueryRow(`
		SELECT address FROM district WHERE election_id = $1 AND id = $2
	`, electionID, districtID).Scan(&address)

	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "District not found")
		return
	}
	if err != nil {
		slog.Error("failed to query district", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.DistrictAddressResponse{
		DistrictID: districtID,
		Address:    address,
	})
}

// BatchStatus handles GET /elections/:id/district-status?ids=0,1,2
//
// All-or-nothing: one unknown id fails the whole lookup with 404 and no
// partial data. Without the ids parameter every district is returned.
func (h *DistrictHandler) BatchStatus(w http.ResponseWriter, r *http.Request) {
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

	var wantIDs []int
	if raw := r.URL.Query().Get("ids"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			id, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil || id < 0 {
				middleware.ErrorResponse(w, http.StatusBadRequest, "ids must be non-negative integers")
				return
			}
			wantIDs = append(wantIDs, id)
		}
	}

	rows, err := h.db.Query(`
		SELECT id, address, name, phase, scale_min, scale_max
		FROM district
		WHERE election_id = $1
		ORDER BY id
	`, electionID)
	if err != nil {
		slog.Error("failed to query districts", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	type row struct {
		id                 int
		address, name      string
		phase              string
		scaleMin, scaleMax int
	}
	byID := make(map[int]row)
	var all []row
	for rows.Next() {
		var d row
		if err := rows.Scan(&d.id, &d.address, &d.name, &d.phase, &d.scaleMin, &d.scaleMax); err != nil {
			slog.Error("failed to scan district", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		byID[d.id] = d
		all = append(all, d)
	}

	selected := all
	if wantIDs != nil {
		selected = selected[:0:0]
		for _, id := range wantIDs {
			d, ok := byID[id]
			if !ok {
				middleware.ErrorResponse(w, http.StatusNotFound, "District "+strconv.Itoa(id)+" not found")
				return
			}
			selected = append(selected, d)
		}
	}

	resp := models.DistrictBatchResponse{
		IDs:       []int{},
		Addresses: []string{},
		Names:     []string{},
		Phases:    []string{},
		ScaleMins: []int{},
		ScaleMaxs: []int{},
	}
	for _, d := range selected {
		resp.IDs = append(resp.IDs, d.id)
		resp.Addresses = append(resp.Addresses, d.address)
		resp.Names = append(resp.Names, d.name)
		resp.Phases = append(resp.Phases, d.phase)
		resp.ScaleMins = append(resp.ScaleMins, d.scaleMin)
		resp.ScaleMaxs = append(resp.ScaleMaxs, d.scaleMax)
	}

	middleware.JSONResponse(w, http.StatusOK, resp)
}

// RegisterVoters handles POST /elections/:id/districts/:districtID/voters
//
// Batch registration during the global registration phase, while the
// district itself is still in setup. The batch is atomic: one duplicate
// address rolls back every registration in the request.
func (h *DistrictHandler) RegisterVoters(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	districtID, ok := parseDistrictID(w, r)
	if electionID == "" || !ok {
		return
	}

	if !validateAdmin(w, r, electionID, h.cfg.AdminKeySalt) {
		return
	}

	var req models.RegisterVotersRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if len(req.Addresses) == 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "addresses must not be empty")
		return
	}
	seen := make(map[string]bool, len(req.Addresses))
	for _, addr := range req.Addresses {
		if addr == "" {
			middleware.ErrorResponse(w, http.StatusBadRequest, "addresses must not contain empty strings")
			return
		}
		if seen[addr] {
			middleware.ErrorResponse(w, http.StatusConflict, "Duplicate address in batch: "+addr)
			return
		}
		seen[addr] = true
	}

	tx, err := h.db.Begin()
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	var electionPhase string
	var emergencyStop bool
	err = tx.QueryRow(`
		SELECT phase, emergency_stop FROM election WHERE id = $1
	`, electionID).Scan(&electionPhase, &emergencyStop)

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
	if electionPhase != models.PhaseRegistration {
		middleware.ErrorResponse(w, http.StatusConflict, "Voters can only be registered during the registration phase")
		return
	}

	var districtPhase string
	err = tx.QueryRow(`
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

	if districtPhase != models.DistrictSetup {
		middleware.ErrorResponse(w, http.StatusConflict, "District is not accepting registrations")
		return
	}

	now := time.Now()
	for _, addr := range req.Addresses {
		var registered bool
		err = tx.QueryRow(`
			SELECT EXISTS(SELECT 1 FROM voter WHERE election_id = $1 AND district_id = $2 AND address = $3)
		`, electionID, districtID, addr).Scan(&registered)
		if err != nil {
			slog.Error("failed to query voter", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		if registered {
			middleware.ErrorResponse(w, http.StatusConflict, "Voter already registered: "+addr)
			return
		}

		_, err = tx.Exec(`
			INSERT INTO voter (election_id, district_id, address, registered_at)
			VALUES ($1, $2, $3, $4)
		`, electionID, districtID, addr, now)
		if err != nil {
			slog.Error("failed to insert voter", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to register voters")
			return
		}
	}

	_, err = tx.Exec(`
		UPDATE district SET registered_count = registered_count + $1
		WHERE election_id = $2 AND id = $3
	`, len(req.Addresses), electionID, districtID)
	if err != nil {
		slog.Error("failed to update district", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to register voters")
		return
	}

	_, err = tx.Exec(`
		UPDATE election SET voters_registered = voters_registered + $1 WHERE id = $2
	`, len(req.Addresses), electionID)
	if err != nil {
		slog.Error("failed to update election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to register voters")
		return
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to register voters")
		return
	}

	slog.Info("voters registered", "election_id", electionID, "district_id", districtID,
		"count", len(req.Addresses))

	middleware.JSONResponse(w, http.StatusOK, models.RegisterVotersResponse{
		Registered: len(req.Addresses),
	})
}

// Deactivate handles POST /elections/:id/districts/:districtID/deactivate
// The flag is informational: it marks a district for operators without
// blocking ballots, broadcasts, or result collection.
func (h *DistrictHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

// Reactivate handles POST /elections/:id/districts/:districtID/reactivate
func (h *DistrictHandler) Reactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *DistrictHandler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	electionID := r.PathValue("id")
	districtID, ok := parseDistrictID(w, r)
	if electionID == "" || !ok {
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
	if emergencyStop {
		middleware.ErrorResponse(w, http.StatusForbidden, "Emergency stop is active")
		return
	}

	result, err := h.db.Exec(`
		UPDATE district SET active = $1 WHERE election_id = $2 AND id = $3
	`, active, electionID, districtID)
	if err != nil {
		slog.Error("failed to update district", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Error("failed to read rows affected", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if affected == 0 {
		middleware.ErrorResponse(w, http.StatusNotFound, "District not found")
		return
	}

	slog.Info("district active flag changed", "election_id", electionID,
		"district_id", districtID, "active", active)

	middleware.JSONResponse(w, http.StatusOK, map[string]any{
		"district_id": districtID,
		"active":      active,
	})
}
