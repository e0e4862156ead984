// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the District Tally API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(db, cfg)

# Endpoints

Health:

	GET /health

Election lifecycle (admin, requires X-Admin-Key):

	POST   /elections                      - Create election
	POST   /elections/{id}/candidates      - Add candidate (setup only)
	PUT    /elections/{id}/scale           - Set score scale
	DELETE /elections/{id}/scale           - Reset scale to defaults
	POST   /elections/{id}/registration    - Open voter registration
	POST   /elections/{id}/voting          - Broadcast start-voting to districts
	POST   /elections/{id}/end             - Broadcast end-voting to districts
	POST   /elections/{id}/collect         - Collect results from all districts
	POST   /elections/{id}/emergency-stop  - Toggle the emergency stop flag

District management:

	POST /elections/{id}/districts                          - Create district (admin)
	GET  /elections/{id}/districts/{districtID}             - District status
	GET  /elections/{id}/districts/{districtID}/address     - District address
	GET  /elections/{id}/district-by-address/{address}      - Reverse lookup
	GET  /elections/{id}/district-status?ids=0,1            - Batch status
	POST /elections/{id}/districts/{districtID}/voters      - Register voters (admin)
	POST /elections/{id}/districts/{districtID}/deactivate  - Mark district inactive (admin)
	POST /elections/{id}/districts/{districtID}/reactivate  - Clear the inactive mark (admin)

Voting (requires X-Voter-Address):

	POST /elections/{id}/districts/{districtID}/ballots           - Cast a ballot
	GET  /elections/{id}/districts/{districtID}/ballots/{address} - Read a ballot back

Results:

	POST /elections/{id}/districts/{districtID}/results - District callback (X-District-Token)
	GET  /elections/{id}/districts/{districtID}/results - Submitted result record
	GET  /elections/{id}/districts/{districtID}/tally   - Live district tally
	GET  /elections/{id}/results                        - Global per-candidate totals
	GET  /elections/{id}/winner                         - Winner (after collection)
	GET  /elections/{id}/stats                          - Counters and turnout
	GET  /elections/{id}                                - Election with candidates

# Handler Initialization

The router creates handler instances with dependency injection:

	electionHandler := handlers.NewElectionHandler(db, cfg)
	districtHandler := handlers.NewDistrictHandler(db, cfg)
	votingHandler := handlers.NewVotingHandler(db, cfg)
	resultsHandler := handlers.NewResultsHandler(db, cfg)
	tallyHandler := handlers.NewTallyHandler(db)

All handlers receive the database connection; most also take the
configuration for salt access.
*/
package router
