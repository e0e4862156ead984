// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides authentication and token generation utilities.

# Admin Keys

Admin keys use HMAC-SHA256 to create deterministic, verifiable keys:

	adminKey := auth.GenerateAdminKey(electionID, salt)
	err := auth.ValidateAdminKey(electionID, adminKey, salt)

The key is URL-safe base64 encoded without padding. Since it's deterministic,
the same election ID and salt always produce the same key. This allows
validation without storing the key in the database.

# District Tokens

District callback tokens are HMAC-SHA256 over the election ID and the
district ID:

	token := auth.GenerateDistrictToken(electionID, districtID, salt)
	err := auth.ValidateDistrictToken(electionID, districtID, token, salt)

A token proves the caller is exactly the district it was minted for; a
token for district 2 never validates against district 3. Tokens are
returned once, at district creation.

# District Addresses

Districts get a random 20-byte address in hex with an 0x prefix:

	address, err := auth.GenerateDistrictAddress()

Addresses identify districts in reverse lookups and are unique per
election.

# ID Generation

Random hex IDs for database records:

	id, err := auth.GenerateID(16)  // 32 hex characters

# IP Hashing

For privacy-preserving fraud detection:

	hash := auth.HashIP(ipAddress, salt)

Returns first 8 bytes (16 hex chars) of HMAC-SHA256.
*/
package auth
