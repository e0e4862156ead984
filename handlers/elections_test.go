// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/danielhkuo/district-tally/auth"
	"github.com/danielhkuo/district-tally/cliparse"
	"github.com/danielhkuo/district-tally/db"
	"github.com/danielhkuo/district-tally/models"
)

// setupTestDB creates an in-memory database for testing. The pool is
// pinned to one connection because each in-memory connection would
// otherwise get its own database.
func setupTestDB(t *testing.T) *sql.DB {
	conn, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	conn.SetMaxOpenConns(1)

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

func getTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:              3419,
		DatabaseURL:       ":memory:",
		DatabaseType:      "sqlite",
		AdminKeySalt:      "test-admin-salt",
		DistrictTokenSalt: "test-district-salt",
	}
}

// createElection inserts an election row directly and returns its id and admin key
func createElection(t *testing.T, conn *sql.DB, cfg cliparse.Config, phase string) (string, string) {
	t.Helper()

	electionID, _ := auth.GenerateID(16)
	adminKey := auth.GenerateAdminKey(electionID, cfg.AdminKeySalt)

	_, err := conn.Exec(`
		INSERT INTO election (id, title, phase, scale_min, scale_max, max_candidates, max_districts, created_at)
		VALUES ($1, 'Test Election', $2, 0, 10, 10, 50, $3)
	`, electionID, phase, time.Now())
	if err != nil {
		t.Fatalf("Failed to create test election: %v", err)
	}

	return electionID, adminKey
}

// addCandidate inserts a candidate with the next sequential id
func addCandidate(t *testing.T, conn *sql.DB, electionID, name, party string) int {
	t.Helper()

	var count int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM candidate WHERE election_id = $1`, electionID).Scan(&count); err != nil {
		t.Fatalf("Failed to count candidates: %v", err)
	}
	_, err := conn.Exec(`
		INSERT INTO candidate (election_id, id, name, party) VALUES ($1, $2, $3, $4)
	`, electionID, count, name, party)
	if err != nil {
		t.Fatalf("Failed to create test candidate: %v", err)
	}
	return count
}

// addDistrict inserts a district with zeroed tally rows, baking in the
// election's current scale and candidate count
func addDistrict(t *testing.T, conn *sql.DB, electionID, name, phase string) int {
	t.Helper()

	var scaleMin, scaleMax int
	if err := conn.QueryRow(`SELECT scale_min, scale_max FROM election WHERE id = $1`, electionID).Scan(&scaleMin, &scaleMax); err != nil {
		t.Fatalf("Failed to query election scale: %v", err)
	}
	var candidateCount int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM candidate WHERE election_id = $1`, electionID).Scan(&candidateCount); err != nil {
		t.Fatalf("Failed to count candidates: %v", err)
	}
	var districtID int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM district WHERE election_id = $1`, electionID).Scan(&districtID); err != nil {
		t.Fatalf("Failed to count districts: %v", err)
	}

	address, _ := auth.GenerateDistrictAddress()
	_, err := conn.Exec(`
		INSERT INTO district (election_id, id, name, address, phase, scale_min, scale_max, candidate_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, electionID, districtID, name, address, phase, scaleMin, scaleMax, candidateCount, time.Now())
	if err != nil {
		t.Fatalf("Failed to create test district: %v", err)
	}

	for candidateID := 0; candidateID < candidateCount; candidateID++ {
		_, err := conn.Exec(`
			INSERT INTO district_tally (election_id, district_id, candidate_id, score_sum, vote_count)
			VALUES ($1, $2, $3, 0, 0)
		`, electionID, districtID, candidateID)
		if err != nil {
			t.Fatalf("Failed to create test tally row: %v", err)
		}
	}

	return districtID
}

// registerVoters inserts voters directly and bumps both counters
func registerVoters(t *testing.T, conn *sql.DB, electionID string, districtID int, addresses []string) {
	t.Helper()

	for _, addr := range addresses {
		_, err := conn.Exec(`
			INSERT INTO voter (election_id, district_id, address, registered_at)
			VALUES ($1, $2, $3, $4)
		`, electionID, districtID, addr, time.Now())
		if err != nil {
			t.Fatalf("Failed to register test voter: %v", err)
		}
	}
	if _, err := conn.Exec(`
		UPDATE district SET registered_count = registered_count + $1 WHERE election_id = $2 AND id = $3
	`, len(addresses), electionID, districtID); err != nil {
		t.Fatalf("Failed to update district counter: %v", err)
	}
	if _, err := conn.Exec(`
		UPDATE election SET voters_registered = voters_registered + $1 WHERE id = $2
	`, len(addresses), electionID); err != nil {
		t.Fatalf("Failed to update election counter: %v", err)
	}
}

func TestCreateElection(t *testing.T) {
	conn := setupTestDB(t)
	defer conn.Close()

	cfg := getTestConfig()
	handler := NewElectionHandler(conn, cfg)

	tests := []struct {
		name           string
		requestBody    interface{}
		expectedStatus int
		checkResponse  func(t *testing.T, resp *models.CreateElectionResponse)
	}{
		{
			name: "valid election creation",
			requestBody: models.CreateElectionRequest{
				Title: "School Board 2026",
			},
			expectedStatus: http.StatusCreated,
			checkResponse: func(t *testing.T, resp *models.CreateElectionResponse) {
				if resp.ElectionID == "" {
					t.Error("Expected non-empty election_id")
				}
				if resp.AdminKey == "" {
					t.Error("Expected non-empty admin_key")
				}

				// Verify admin key is valid
				expectedKey := auth.GenerateAdminKey(resp.ElectionID, cfg.AdminKeySalt)
				if resp.AdminKey != expectedKey {
					t.Error("Admin key does not match expected value")
				}

				// Verify election starts in setup with default scale
				var phase string
				var scaleMin, scaleMax int
				err := conn.QueryRow(`
					SELECT phase, scale_min, scale_max FROM election WHERE id = $1
				`, resp.ElectionID).Scan(&phase, &scaleMin, &scaleMax)
				if err != nil {
					t.Fatalf("Failed to query election: %v", err)
				}
				if phase != models.PhaseSetup {
					t.Errorf("Expected phase 'setup', got '%s'", phase)
				}
				if scaleMin != 0 || scaleMax != 10 {
					t.Errorf("Expected default scale 0-10, got %d-%d", scaleMin, scaleMax)
				}
			},
		},
		{
			name:           "missing title",
			requestBody:    models.CreateElectionRequest{},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid JSON",
			requestBody:    "invalid json",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body []byte
			var err error

			if str, ok := tt.requestBody.(string); ok {
				body = []byte(str)
			} else {
				body, err = json.Marshal(tt.requestBody)
				if err != nil {
					t.Fatalf("Failed to marshal request body: %v", err)
				}
			}

			req := httptest.NewRequest("POST", "/elections", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			handler.CreateElection(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d. Body: %s", tt.expectedStatus, w.Code, w.Body.String())
			}

			if tt.expectedStatus == http.StatusCreated && tt.checkResponse != nil {
				var resp models.CreateElectionResponse
				if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
					t.Fatalf("Failed to decode response: %v", err)
				}
				tt.checkResponse(t, &resp)
			}
		})
	}
}

func TestAddCandidate(t *testing.T) {
	conn := setupTestDB(t)
	defer conn.Close()

	cfg := getTestConfig()
	handler := NewElectionHandler(conn, cfg)

	electionID, adminKey := createElection(t, conn, cfg, models.PhaseSetup)
	votingElectionID, votingAdminKey := createElection(t, conn, cfg, models.PhaseVoting)

	tests := []struct {
		name           string
		electionID     string
		adminKey       string
		requestBody    interface{}
		expectedStatus int
	}{
		{
			name:           "valid candidate",
			electionID:     electionID,
			adminKey:       adminKey,
			requestBody:    models.AddCandidateRequest{Name: "Ada Lovelace", Party: "Analytical"},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "second candidate gets next id",
			electionID:     electionID,
			adminKey:       adminKey,
			requestBody:    models.AddCandidateRequest{Name: "Charles Babbage", Party: "Difference"},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "missing name",
			electionID:     electionID,
			adminKey:       adminKey,
			requestBody:    models.AddCandidateRequest{Party: "Nameless"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "wrong admin key",
			electionID:     electionID,
			adminKey:       "wrong-key",
			requestBody:    models.AddCandidateRequest{Name: "Eve", Party: "Intruder"},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "election not in setup",
			electionID:     votingElectionID,
			adminKey:       votingAdminKey,
			requestBody:    models.AddCandidateRequest{Name: "Late", Party: "Tardy"},
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "unknown election",
			electionID:     "nonexistent",
			adminKey:       auth.GenerateAdminKey("nonexistent", cfg.AdminKeySalt),
			requestBody:    models.AddCandidateRequest{Name: "Ghost", Party: "None"},
			expectedStatus: http.StatusNotFound,
		},
	}

	nextID := 0
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, _ := json.Marshal(tt.requestBody)
			req := httptest.NewRequest("POST", "/elections/"+tt.electionID+"/candidates", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-Admin-Key", tt.adminKey)
			req.SetPathValue("id", tt.electionID)
			w := httptest.NewRecorder()

			handler.AddCandidate(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d. Body: %s", tt.expectedStatus, w.Code, w.Body.String())
			}

			if w.Code == http.StatusCreated {
				var resp models.AddCandidateResponse
				if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
					t.Fatalf("Failed to decode response: %v", err)
				}
				if resp.CandidateID != nextID {
					t.Errorf("Expected candidate_id %d, got %d", nextID, resp.CandidateID)
				}
				nextID++
			}
		})
	}
}

func TestCandidateLimit(t *testing.T) {
	conn := setupTestDB(t)
	defer conn.Close()

	cfg := getTestConfig()
	handler := NewElectionHandler(conn, cfg)

	electionID, adminKey := createElection(t, conn, cfg, models.PhaseSetup)
	if _, err := conn.Exec(`UPDATE election SET max_candidates = 2 WHERE id = $1`, electionID); err != nil {
		t.Fatalf("Failed to lower cap: %v", err)
	}
	addCandidate(t, conn, electionID, "A", "P1")
	addCandidate(t, conn, electionID, "B", "P2")

	body, _ := json.Marshal(models.AddCandidateRequest{Name: "C", Party: "P3"})
	req := httptest.NewRequest("POST", "/elections/"+electionID+"/candidates", bytes.NewReader(body))
	req.Header.Set("X-Admin-Key", adminKey)
	req.SetPathValue("id", electionID)
	w := httptest.NewRecorder()

	handler.AddCandidate(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("Expected status 409 at the candidate cap, got %d", w.Code)
	}
}

func TestSetScale(t *testing.T) {
	conn := setupTestDB(t)
	defer conn.Close()

	cfg := getTestConfig()
	handler := NewElectionHandler(conn, cfg)

	electionID, adminKey := createElection(t, conn, cfg, models.PhaseSetup)

	tests := []struct {
		name           string
		requestBody    models.SetScaleRequest
		expectedStatus int
	}{
		{
			name:           "valid scale",
			requestBody:    models.SetScaleRequest{MinScore: 1, MaxScore: 5},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "max not above min",
			requestBody:    models.SetScaleRequest{MinScore: 5, MaxScore: 5},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "inverted scale",
			requestBody:    models.SetScaleRequest{MinScore: 10, MaxScore: 0},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "range too wide",
			requestBody:    models.SetScaleRequest{MinScore: 0, MaxScore: 101},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "negative min is allowed",
			requestBody:    models.SetScaleRequest{MinScore: -5, MaxScore: 5},
			expectedStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, _ := json.Marshal(tt.requestBody)
			req := httptest.NewRequest("PUT", "/elections/"+electionID+"/scale", bytes.NewReader(body))
			req.Header.Set("X-Admin-Key", adminKey)
			req.SetPathValue("id", electionID)
			w := httptest.NewRecorder()

			handler.SetScale(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d. Body: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}

	// Reset restores the defaults
	req := httptest.NewRequest("DELETE", "/elections/"+electionID+"/scale", nil)
	req.Header.Set("X-Admin-Key", adminKey)
	req.SetPathValue("id", electionID)
	w := httptest.NewRecorder()

	handler.ResetScale(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 on reset, got %d", w.Code)
	}

	var scale models.ScaleResponse
	if err := json.NewDecoder(w.Body).Decode(&scale); err != nil {
		t.Fatalf("Failed to decode scale response: %v", err)
	}
	if scale.MinScore != models.DefaultScaleMin || scale.MaxScore != models.DefaultScaleMax {
		t.Errorf("Expected default scale in response, got %d-%d", scale.MinScore, scale.MaxScore)
	}

	var scaleMin, scaleMax int
	if err := conn.QueryRow(`SELECT scale_min, scale_max FROM election WHERE id = $1`, electionID).Scan(&scaleMin, &scaleMax); err != nil {
		t.Fatalf("Failed to query scale: %v", err)
	}
	if scaleMin != models.DefaultScaleMin || scaleMax != models.DefaultScaleMax {
		t.Errorf("Expected default scale after reset, got %d-%d", scaleMin, scaleMax)
	}
}

func TestScaleFrozenAfterSetup(t *testing.T) {
	conn := setupTestDB(t)
	defer conn.Close()

	cfg := getTestConfig()
	handler := NewElectionHandler(conn, cfg)

	electionID, adminKey := createElection(t, conn, cfg, models.PhaseRegistration)

	body, _ := json.Marshal(models.SetScaleRequest{MinScore: 1, MaxScore: 5})
	req := httptest.NewRequest("PUT", "/elections/"+electionID+"/scale", bytes.NewReader(body))
	req.Header.Set("X-Admin-Key", adminKey)
	req.SetPathValue("id", electionID)
	w := httptest.NewRecorder()

	handler.SetScale(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("Expected status 409 outside setup, got %d", w.Code)
	}
}

func TestBeginRegistration(t *testing.T) {
	conn := setupTestDB(t)
	defer conn.Close()

	cfg := getTestConfig()
	handler := NewElectionHandler(conn, cfg)

	t.Run("requires a candidate and a district", func(t *testing.T) {
		electionID, adminKey := createElection(t, conn, cfg, models.PhaseSetup)

		req := httptest.NewRequest("POST", "/elections/"+electionID+"/registration", nil)
		req.Header.Set("X-Admin-Key", adminKey)
		req.SetPathValue("id", electionID)
		w := httptest.NewRecorder()

		handler.BeginRegistration(w, req)

		if w.Code != http.StatusConflict {
			t.Errorf("Expected status 409 with no candidates, got %d", w.Code)
		}
	})

	t.Run("advances to registration", func(t *testing.T) {
		electionID, adminKey := createElection(t, conn, cfg, models.PhaseSetup)
		addCandidate(t, conn, electionID, "Ada", "Analytical")
		addDistrict(t, conn, electionID, "North", models.DistrictSetup)

		req := httptest.NewRequest("POST", "/elections/"+electionID+"/registration", nil)
		req.Header.Set("X-Admin-Key", adminKey)
		req.SetPathValue("id", electionID)
		w := httptest.NewRecorder()

		handler.BeginRegistration(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d. Body: %s", w.Code, w.Body.String())
		}

		var phase string
		if err := conn.QueryRow(`SELECT phase FROM election WHERE id = $1`, electionID).Scan(&phase); err != nil {
			t.Fatalf("Failed to query phase: %v", err)
		}
		if phase != models.PhaseRegistration {
			t.Errorf("Expected phase 'registration', got '%s'", phase)
		}
	})
}

// TestBeginVotingFailsWholeBroadcast verifies the all-or-nothing start
// broadcast: one district without registered voters keeps every district
// in setup and the election in registration.
func TestBeginVotingFailsWholeBroadcast(t *testing.T) {
	conn := setupTestDB(t)
	defer conn.Close()

	cfg := getTestConfig()
	handler := NewElectionHandler(conn, cfg)

	electionID, adminKey := createElection(t, conn, cfg, models.PhaseRegistration)
	addCandidate(t, conn, electionID, "Ada", "Analytical")
	d0 := addDistrict(t, conn, electionID, "North", models.DistrictSetup)
	addDistrict(t, conn, electionID, "South", models.DistrictSetup) // stays empty

	registerVoters(t, conn, electionID, d0, []string{"voter-a", "voter-b"})

	req := httptest.NewRequest("POST", "/elections/"+electionID+"/voting", nil)
	req.Header.Set("X-Admin-Key", adminKey)
	req.SetPathValue("id", electionID)
	w := httptest.NewRecorder()

	handler.BeginVoting(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("Expected status 409, got %d. Body: %s", w.Code, w.Body.String())
	}

	// No partial activation
	var phase string
	if err := conn.QueryRow(`SELECT phase FROM election WHERE id = $1`, electionID).Scan(&phase); err != nil {
		t.Fatalf("Failed to query election phase: %v", err)
	}
	if phase != models.PhaseRegistration {
		t.Errorf("Expected election still in registration, got '%s'", phase)
	}

	var activated int
	if err := conn.QueryRow(`
		SELECT COUNT(*) FROM district WHERE election_id = $1 AND phase = $2
	`, electionID, models.DistrictActive).Scan(&activated); err != nil {
		t.Fatalf("Failed to count active districts: %v", err)
	}
	if activated != 0 {
		t.Errorf("Expected 0 active districts after failed broadcast, got %d", activated)
	}
}

func TestBeginVotingActivatesAllDistricts(t *testing.T) {
	conn := setupTestDB(t)
	defer conn.Close()

	cfg := getTestConfig()
	handler := NewElectionHandler(conn, cfg)

	electionID, adminKey := createElection(t, conn, cfg, models.PhaseRegistration)
	addCandidate(t, conn, electionID, "Ada", "Analytical")
	d0 := addDistrict(t, conn, electionID, "North", models.DistrictSetup)
	d1 := addDistrict(t, conn, electionID, "South", models.DistrictSetup)

	registerVoters(t, conn, electionID, d0, []string{"voter-a"})
	registerVoters(t, conn, electionID, d1, []string{"voter-b"})

	req := httptest.NewRequest("POST", "/elections/"+electionID+"/voting", nil)
	req.Header.Set("X-Admin-Key", adminKey)
	req.SetPathValue("id", electionID)
	w := httptest.NewRecorder()

	handler.BeginVoting(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d. Body: %s", w.Code, w.Body.String())
	}

	var activated int
	if err := conn.QueryRow(`
		SELECT COUNT(*) FROM district WHERE election_id = $1 AND phase = $2
	`, electionID, models.DistrictActive).Scan(&activated); err != nil {
		t.Fatalf("Failed to count active districts: %v", err)
	}
	if activated != 2 {
		t.Errorf("Expected 2 active districts, got %d", activated)
	}
}

func TestEndVoting(t *testing.T) {
	conn := setupTestDB(t)
	defer conn.Close()

	cfg := getTestConfig()
	handler := NewElectionHandler(conn, cfg)

	electionID, adminKey := createElection(t, conn, cfg, models.PhaseVoting)
	addCandidate(t, conn, electionID, "Ada", "Analytical")
	addDistrict(t, conn, electionID, "North", models.DistrictActive)
	addDistrict(t, conn, electionID, "South", models.DistrictActive)

	req := httptest.NewRequest("POST", "/elections/"+electionID+"/end", nil)
	req.Header.Set("X-Admin-Key", adminKey)
	req.SetPathValue("id", electionID)
	w := httptest.NewRecorder()

	handler.EndVoting(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d. Body: %s", w.Code, w.Body.String())
	}

	var phase string
	var endedAt sql.NullTime
	if err := conn.QueryRow(`SELECT phase, ended_at FROM election WHERE id = $1`, electionID).Scan(&phase, &endedAt); err != nil {
		t.Fatalf("Failed to query election: %v", err)
	}
	if phase != models.PhaseEnded {
		t.Errorf("Expected phase 'ended', got '%s'", phase)
	}
	if !endedAt.Valid {
		t.Error("Expected ended_at to be set")
	}

	var ended int
	if err := conn.QueryRow(`
		SELECT COUNT(*) FROM district WHERE election_id = $1 AND phase = $2
	`, electionID, models.DistrictEnded).Scan(&ended); err != nil {
		t.Fatalf("Failed to count ended districts: %v", err)
	}
	if ended != 2 {
		t.Errorf("Expected 2 ended districts, got %d", ended)
	}
}

func TestEndVotingRequiresVotingPhase(t *testing.T) {
	conn := setupTestDB(t)
	defer conn.Close()

	cfg := getTestConfig()
	handler := NewElectionHandler(conn, cfg)

	electionID, adminKey := createElection(t, conn, cfg, models.PhaseRegistration)

	req := httptest.NewRequest("POST", "/elections/"+electionID+"/end", nil)
	req.Header.Set("X-Admin-Key", adminKey)
	req.SetPathValue("id", electionID)
	w := httptest.NewRecorder()

	handler.EndVoting(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d", w.Code)
	}
}

func TestEmergencyStop(t *testing.T) {
	conn := setupTestDB(t)
	defer conn.Close()

	cfg := getTestConfig()
	handler := NewElectionHandler(conn, cfg)

	electionID, adminKey := createElection(t, conn, cfg, models.PhaseSetup)

	// Toggle on
	req := httptest.NewRequest("POST", "/elections/"+electionID+"/emergency-stop", nil)
	req.Header.Set("X-Admin-Key", adminKey)
	req.SetPathValue("id", electionID)
	w := httptest.NewRecorder()

	handler.ToggleEmergencyStop(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp models.EmergencyStopResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !resp.EmergencyStop {
		t.Error("Expected emergency_stop true after first toggle")
	}

	// Admin mutations are blocked while stopped
	body, _ := json.Marshal(models.AddCandidateRequest{Name: "Blocked", Party: "None"})
	req = httptest.NewRequest("POST", "/elections/"+electionID+"/candidates", bytes.NewReader(body))
	req.Header.Set("X-Admin-Key", adminKey)
	req.SetPathValue("id", electionID)
	w = httptest.NewRecorder()

	handler.AddCandidate(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 while stopped, got %d", w.Code)
	}

	// Toggle off restores normal operation
	req = httptest.NewRequest("POST", "/elections/"+electionID+"/emergency-stop", nil)
	req.Header.Set("X-Admin-Key", adminKey)
	req.SetPathValue("id", electionID)
	w = httptest.NewRecorder()

	handler.ToggleEmergencyStop(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	req = httptest.NewRequest("POST", "/elections/"+electionID+"/candidates", bytes.NewReader(bytes.Clone(body)))
	req.Header.Set("X-Admin-Key", adminKey)
	req.SetPathValue("id", electionID)
	w = httptest.NewRecorder()

	handler.AddCandidate(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("Expected status 201 after clearing stop, got %d. Body: %s", w.Code, w.Body.String())
	}
}

func TestGetElection(t *testing.T) {
	conn := setupTestDB(t)
	defer conn.Close()

	cfg := getTestConfig()
	handler := NewElectionHandler(conn, cfg)

	electionID, _ := createElection(t, conn, cfg, models.PhaseSetup)
	addCandidate(t, conn, electionID, "Ada", "Analytical")
	addCandidate(t, conn, electionID, "Charles", "Difference")

	req := httptest.NewRequest("GET", "/elections/"+electionID, nil)
	req.SetPathValue("id", electionID)
	w := httptest.NewRecorder()

	handler.GetElection(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp models.ElectionWithCandidates
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Election.ID != electionID {
		t.Errorf("Expected election id %s, got %s", electionID, resp.Election.ID)
	}
	if len(resp.Candidates) != 2 {
		t.Fatalf("Expected 2 candidates, got %d", len(resp.Candidates))
	}
	if resp.Candidates[0].Name != "Ada" || resp.Candidates[1].Name != "Charles" {
		t.Error("Expected candidates in id order")
	}

	// Unknown election
	req = httptest.NewRequest("GET", "/elections/nonexistent", nil)
	req.SetPathValue("id", "nonexistent")
	w = httptest.NewRecorder()

	handler.GetElection(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}
