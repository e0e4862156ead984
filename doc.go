// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the District Tally API server.

District Tally runs score-voting elections split across district tally
units. A central orchestrator drives phase transitions; each district
keeps its own voter roll and running tally and reports its results upward
exactly once. The global winner is decided only after every district has
reported.

# Starting the Server

With an embedded SQLite database:

	DATABASE_URL=tally.db ADMIN_KEY_SALT=... DISTRICT_TOKEN_SALT=... go run .

Or against PostgreSQL:

	DATABASE_TYPE=postgres DATABASE_URL=postgres://... go run .

Or with flags:

	go run . -p 3419 -t postgres -d "postgres://..."

# Configuration

Required settings:

  - DATABASE_URL (-d): Connection string, or file path for SQLite
  - ADMIN_KEY_SALT (--admin-salt): Secret for admin key HMAC
  - DISTRICT_TOKEN_SALT (--district-salt): Secret for district callback tokens

Optional settings:

  - PORT (-p): Server port (default: 3419)
  - DATABASE_TYPE (-t): "sqlite" or "postgres" (default: sqlite)

A .env file in the working directory is loaded if present.

# Architecture

The server uses a handler-based architecture with dependency injection:

  - handlers: HTTP request handlers (elections, districts, voting, results, tally)
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, JSON helpers
  - models: Request/response types
  - auth: Key and token generation and validation
  - db: Schema creation
  - cliparse: Configuration parsing

See package documentation for each component.
*/
package main
