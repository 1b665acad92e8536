// Package database provides connection management, migrations, configuration
// loading, error classification, logging, health checks, and related
// utilities built on top of Bun.
package database
