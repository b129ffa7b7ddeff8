// Package config loads vpctl's TOML configuration.
//
// The Load function reads ~/.config/vpctl/config.toml unless a path is given.
// A missing file is not an error: defaults are used and credentials may come
// from the environment alone.
//
// # TOML Format
//
//	email = "me@example.com"
//	password = "secret"
//	timeout_ms = 30000
//	max_retries = 2
//	session_file = "~/.local/share/vpctl/session.db"
//	redis_addr = ""
//	redis_prefix = "visualping:session:"
//	token_url = "https://account.api.visualping.io/v2/token"
//	account_base_url = "https://account.api.visualping.io"
//	jobs_base_url = "https://job.api.visualping.io"
//
// Every field is optional. VISUALPING_EMAIL and VISUALPING_PASSWORD override
// the file. When redis_addr is set the session is cached in Redis instead of
// session_file.
package config
