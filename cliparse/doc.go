// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse builds the server configuration.

# Precedence

Each setting is taken from, in order:

 1. a command line flag
 2. the process environment
 3. an optional env file (-env, default .env)
 4. a built-in default

# Settings

	flag            env                default
	-p              PORT               3318
	-store          STORE              supabase if SUPABASE_URL is set, else sqlite
	-d              DATABASE_URL       file:do4btc.db for sqlite
	-supabase-url   SUPABASE_URL
	-supabase-key   SUPABASE_KEY
	-opennode-key   OPENNODE_API_KEY   required unless -dev
	-opennode-url   OPENNODE_URL       https://api.opennode.com
	-base-url       PUBLIC_BASE_URL
	-vote-sats      VOTE_SATS          1000
	-credit-key     CREDIT_KEY         empty disables the credit hooks
	-tuning         TUNING_FILE
	-resync         RESYNC_SCHEDULE    @every 5m
	-log-level      LOG_LEVEL          info
	-origins        ALLOWED_ORIGINS    *
	-dev                               false
*/
package cliparse
