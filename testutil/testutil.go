// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

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

// SetupTestDB creates a fresh in-memory SQLite database with the full
// schema. The pool is pinned to a single connection because every
// in-memory connection gets its own database.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:              3419,
		DatabaseURL:       ":memory:",
		DatabaseType:      "sqlite",
		AdminKeySalt:      "test-admin-salt",
		DistrictTokenSalt: "test-district-salt",
	}
}

// CreateTestElection inserts an election in the given phase and returns
// its ID and admin key.
func CreateTestElection(t *testing.T, conn *sql.DB, cfg cliparse.Config, phase string) (electionID, adminKey string) {
	t.Helper()

	electionID, _ = auth.GenerateID(16)
	adminKey = auth.GenerateAdminKey(electionID, cfg.AdminKeySalt)

	_, err := conn.Exec(`
		INSERT INTO election (id, title, phase, scale_min, scale_max, max_candidates, max_districts, created_at)
		VALUES ($1, 'Test Election', $2, $3, $4, $5, $6, $7)
	`, electionID, phase, models.DefaultScaleMin, models.DefaultScaleMax,
		models.DefaultMaxCandidates, models.DefaultMaxDistricts, time.Now())
	if err != nil {
		t.Fatalf("Failed to create test election: %v", err)
	}

	return electionID, adminKey
}

// AddTestCandidate inserts a candidate with the next sequential id
func AddTestCandidate(t *testing.T, conn *sql.DB, electionID, name, party string) int {
	t.Helper()

	var count int
	if err := conn.QueryRow(`
		SELECT COUNT(*) FROM candidate WHERE election_id = $1
	`, electionID).Scan(&count); err != nil {
		t.Fatalf("Failed to count candidates: %v", err)
	}

	_, err := conn.Exec(`
		INSERT INTO candidate (election_id, id, name, party)
		VALUES ($1, $2, $3, $4)
	`, electionID, count, name, party)
	if err != nil {
		t.Fatalf("Failed to create test candidate: %v", err)
	}

	return count
}

// CreateTestDistrict inserts a district in the given phase with zeroed
// tally rows, baking in the election's current scale and candidate count.
// Returns the district id and its callback token.
func CreateTestDistrict(t *testing.T, conn *sql.DB, cfg cliparse.Config, electionID, name, phase string) (int, string) {
	t.Helper()

	var scaleMin, scaleMax int
	if err := conn.QueryRow(`
		SELECT scale_min, scale_max FROM election WHERE id = $1
	`, electionID).Scan(&scaleMin, &scaleMax); err != nil {
		t.Fatalf("Failed to query election scale: %v", err)
	}

	var candidateCount int
	if err := conn.QueryRow(`
		SELECT COUNT(*) FROM candidate WHERE election_id = $1
	`, electionID).Scan(&candidateCount); err != nil {
		t.Fatalf("Failed to count candidates: %v", err)
	}

	var districtID int
	if err := conn.QueryRow(`
		SELECT COUNT(*) FROM district WHERE election_id = $1
	`, electionID).Scan(&districtID); err != nil {
		t.Fatalf("Failed to count districts: %v", err)
	}

	address, err := auth.GenerateDistrictAddress()
	if err != nil {
		t.Fatalf("Failed to generate district address: %v", err)
	}

	_, err = conn.Exec(`
		INSERT INTO district (election_id, id, name, address, phase, scale_min, scale_max, candidate_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, electionID, districtID, name, address, phase, scaleMin, scaleMax, candidateCount, time.Now())
	if err != nil {
		t.Fatalf("Failed to create test district: %v", err)
	}

	for candidateID := 0; candidateID < candidateCount; candidateID++ {
		_, err = conn.Exec(`
			INSERT INTO district_tally (election_id, district_id, candidate_id, score_sum, vote_count)
			VALUES ($1, $2, $3, 0, 0)
		`, electionID, districtID, candidateID)
		if err != nil {
			t.Fatalf("Failed to create test tally row: %v", err)
		}
	}

	token := auth.GenerateDistrictToken(electionID, districtID, cfg.DistrictTokenSalt)
	return districtID, token
}

// RegisterTestVoters registers addresses directly and bumps both counters
func RegisterTestVoters(t *testing.T, conn *sql.DB, electionID string, districtID int, addresses []string) {
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
		UPDATE district SET registered_count = registered_count + $1
		WHERE election_id = $2 AND id = $3
	`, len(addresses), electionID, districtID); err != nil {
		t.Fatalf("Failed to update district counter: %v", err)
	}

	if _, err := conn.Exec(`
		UPDATE election SET voters_registered = voters_registered + $1 WHERE id = $2
	`, len(addresses), electionID); err != nil {
		t.Fatalf("Failed to update election counter: %v", err)
	}
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
