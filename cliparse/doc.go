// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

# Config Fields

  - Port: Server listen port (default: 3419)
  - DatabaseType: "sqlite" or "postgres" (default: sqlite)
  - DatabaseURL: Connection string, or file path for SQLite
  - AdminKeySalt: Secret for admin key HMAC
  - DistrictTokenSalt: Secret for district callback token HMAC

# CLI Flags

	-p, --port          Server port
	-t, --database-type Database driver
	-d, --database-url  Database URL
	--admin-salt        Admin key salt
	--district-salt     District token salt

# Environment Variables

Flags fall back to environment variables:

	PORT                → -p
	DATABASE_TYPE       → -t
	DATABASE_URL        → -d
	ADMIN_KEY_SALT      → --admin-salt
	DISTRICT_TOKEN_SALT → --district-salt

CLI flags take precedence over environment variables.

# Validation

ParseFlags returns an error if required values are missing:

  - DATABASE_URL must be provided (a file path when using SQLite)
  - ADMIN_KEY_SALT must be provided
  - DISTRICT_TOKEN_SALT must be provided
  - DATABASE_TYPE must be "sqlite" or "postgres"

# Example

	// In main.go
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	db, err := sql.Open(cfg.DatabaseType, cfg.DatabaseURL)
	// ...
	mux := router.NewRouter(db, cfg)
*/
package cliparse
