// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrInvalidAdminKey      = errors.New("invalid admin key")
	ErrInvalidDistrictToken = errors.New("invalid district token")
)

// GenerateID creates a random hex ID of the specified byte length
func GenerateID(byteLen int) (string, error) {
	b := make([]byte, byteLen)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate random ID: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// GenerateAdminKey creates an HMAC-based admin key for an election
// This is deterministic and verifiable
func GenerateAdminKey(electionID, salt string) string {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(electionID))
	sum := h.Sum(nil)
	// Use URL-safe base64 and trim padding for cleaner keys
	return strings.TrimRight(base64.URLEncoding.EncodeToString(sum), "=")
}

// ValidateAdminKey checks if the provided admin key is valid for the election
func ValidateAdminKey(electionID, adminKey, salt string) error {
	expected := GenerateAdminKey(electionID, salt)
	if !hmac.Equal([]byte(adminKey), []byte(expected)) {
		return ErrInvalidAdminKey
	}
	return nil
}

// GenerateDistrictToken creates the capability token a district presents
// when submitting its results upward. The token is bound to exactly one
// (election, district) pair, so no other caller can report on its behalf.
func GenerateDistrictToken(electionID string, districtID int, salt string) string {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(electionID + ":" + strconv.Itoa(districtID)))
	sum := h.Sum(nil)
	return strings.TrimRight(base64.URLEncoding.EncodeToString(sum), "=")
}

// ValidateDistrictToken checks a submission token against the district it
// claims to speak for
func ValidateDistrictToken(electionID string, districtID int, token, salt string) error {
	expected := GenerateDistrictToken(electionID, districtID, salt)
	if !hmac.Equal([]byte(token), []byte(expected)) {
		return ErrInvalidDistrictToken
	}
	return nil
}

// GenerateDistrictAddress creates a random 20-byte hex address under which
// a district tally unit is registered and looked up
func GenerateDistrictAddress() (string, error) {
	b := make([]byte, 20)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate district address: %w", err)
	}
	return "0x" + hex.EncodeToString(b), nil
}

// HashIP creates a one-way hash of an IP address for privacy
// Includes salt to prevent rainbow table attacks
func HashIP(ip, salt string) string {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(ip))
	sum := h.Sum(nil)
	// Return first 16 hex chars (64 bits) - enough for deduplication
	return hex.EncodeToString(sum[:8])
}
