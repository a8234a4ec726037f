// Package config provides configuration loading and validation for photoshelf.
//
// Values are loaded in this order (later sources override earlier ones):
//
//  1. Default values
//  2. Configuration file(s), merged left-to-right
//  3. Environment variables (PHOTOSHELF_ prefix)
//  4. CLI flags that were explicitly set
//
// # Usage
//
//	cfg, err := config.Load([]string{"config.yaml"}, cmd.Flags())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ctx = config.WithContext(ctx, cfg)
//
// Keys map to environment variables by upper-casing and replacing dots:
// storage.signing_secret becomes PHOTOSHELF_STORAGE_SIGNING_SECRET.
//
// # Sections
//
//   - server: port, upload limits and concurrency
//   - service: cleanup_timeout and presign_ttl, in seconds
//   - database: type (sqlite, postgres), dsn and table names
//   - storage: backend (s3, minio, filesystem, memory) and its settings
//   - auth: jwt_secret, token_ttl and issuer
//   - cors, log
//
// The JWT secret is optional here; commands that issue tokens require it.
package config
