package config

import "time"

// Timeout constants
const (
	// HTTP timeouts
	DefaultHTTPTimeout = 60 * time.Second
	ExportTimeout      = 2 * time.Minute
	ServerShutdownWait = 30 * time.Second
	TestTimeout        = 100 * time.Millisecond

	// Database timeouts
	DatabaseConnMaxLifetime = 5 * time.Minute

	// Session timeouts
	SessionMaxAge = 7 * 24 * time.Hour // 7 days
)

// Export defaults
const (
	DefaultExportMaxConcurrent = 4
	DefaultExportRetention     = 90 * 24 * time.Hour
	DefaultBrandTitle          = "Relief Reporting"
)

// Collaboration defaults
const (
	DefaultCollabPingInterval   = 30 * time.Second
	DefaultCollabPongWait       = 60 * time.Second
	DefaultCollabWriteWait      = 10 * time.Second
	DefaultCollabMaxMessageSize int64 = 64 * 1024
)

// Session configuration constants
const (
	// Session settings
	SessionPath     = "/"
	SessionHTTPOnly = true
	SessionSecure   = false // Set to true in production with HTTPS

	// Session name
	SessionName = "relief-session"
)

// Security configuration constants
const (
	// Content Security Policy
	DefaultCSP = "default-src 'self'; style-src 'self' 'unsafe-inline'; script-src 'self' 'unsafe-inline'; img-src 'self' data:; media-src 'self' blob: data:;"
)
