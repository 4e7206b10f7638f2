// Package database provides connection management, migrations, configuration
// types, logging, query hooks, health checks and SQL error classification
// built on top of Bun.
package database
