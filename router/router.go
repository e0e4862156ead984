// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"

	"github.com/danielhkuo/district-tally/cliparse"
	"github.com/danielhkuo/district-tally/handlers"
	"github.com/danielhkuo/district-tally/middleware"
)

func NewRouter(db *sql.DB, cfg cliparse.Config) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	electionHandler := handlers.NewElectionHandler(db, cfg)
	districtHandler := handlers.NewDistrictHandler(db, cfg)
	votingHandler := handlers.NewVotingHandler(db, cfg)
	resultsHandler := handlers.NewResultsHandler(db, cfg)
	tallyHandler := handlers.NewTallyHandler(db)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Election lifecycle (admin operations)
	mux.HandleFunc("POST /elections", middleware.WithLogging(electionHandler.CreateElection))
	mux.HandleFunc("POST /elections/{id}/candidates", middleware.WithLogging(electionHandler.AddCandidate))
	mux.HandleFunc("PUT /elections/{id}/scale", middleware.WithLogging(electionHandler.SetScale))
	mux.HandleFunc("DELETE /elections/{id}/scale", middleware.WithLogging(electionHandler.ResetScale))
	mux.HandleFunc("POST /elections/{id}/registration", middleware.WithLogging(electionHandler.BeginRegistration))
	mux.HandleFunc("POST /elections/{id}/voting", middleware.WithLogging(electionHandler.BeginVoting))
	mux.HandleFunc("POST /elections/{id}/end", middleware.WithLogging(electionHandler.EndVoting))
	mux.HandleFunc("POST /elections/{id}/collect", middleware.WithLogging(electionHandler.CollectResults))
	mux.HandleFunc("POST /elections/{id}/emergency-stop", middleware.WithLogging(electionHandler.ToggleEmergencyStop))
	mux.HandleFunc("GET /elections/{id}", middleware.WithLogging(electionHandler.GetElection))

	// District management
	mux.HandleFunc("POST /elections/{id}/districts", middleware.WithLogging(districtHandler.CreateDistrict))
	mux.HandleFunc("GET /elections/{id}/districts/{districtID}", middleware.WithLogging(districtHandler.GetDistrict))
	mux.HandleFunc("GET /elections/{id}/districts/{districtID}/address", middleware.WithLogging(districtHandler.GetDistrictAddress))
	mux.HandleFunc("GET /elections/{id}/district-by-address/{address}", middleware.WithLogging(districtHandler.GetDistrictByAddress))
	mux.HandleFunc("GET /elections/{id}/district-status", middleware.WithLogging(districtHandler.BatchStatus))
	mux.HandleFunc("POST /elections/{id}/districts/{districtID}/voters", middleware.WithLogging(districtHandler.RegisterVoters))
	mux.HandleFunc("POST /elections/{id}/districts/{districtID}/deactivate", middleware.WithLogging(districtHandler.Deactivate))
	mux.HandleFunc("POST /elections/{id}/districts/{districtID}/reactivate", middleware.WithLogging(districtHandler.Reactivate))

	// Voting operations (voter-facing)
	mux.HandleFunc("POST /elections/{id}/districts/{districtID}/ballots", middleware.WithLogging(votingHandler.CastVote))
	mux.HandleFunc("GET /elections/{id}/districts/{districtID}/ballots/{address}", middleware.WithLogging(votingHandler.GetBallot))

	// Results (district callback plus public reads)
	mux.HandleFunc("POST /elections/{id}/districts/{districtID}/results", middleware.WithLogging(resultsHandler.SubmitResults))
	mux.HandleFunc("GET /elections/{id}/districts/{districtID}/results", middleware.WithLogging(resultsHandler.GetDistrictResult))
	mux.HandleFunc("GET /elections/{id}/districts/{districtID}/tally", middleware.WithLogging(tallyHandler.GetDistrictTally))
	mux.HandleFunc("GET /elections/{id}/results", middleware.WithLogging(resultsHandler.GetResults))
	mux.HandleFunc("GET /elections/{id}/winner", middleware.WithLogging(resultsHandler.GetWinner))
	mux.HandleFunc("GET /elections/{id}/stats", middleware.WithLogging(resultsHandler.GetStats))

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("district-tally API v1"))
	})

	return mux
}
