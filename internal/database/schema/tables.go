// Package schema defines the database schema for development.
//
// DEVELOPMENT USE ONLY
// This file contains the current database schema and is used for development and testing.
// Before deploying to production, these table definitions should be converted to proper migrations.
package schema

// TableDefinitions contains all the SQL statements to create the database tables
// Don't put REFERENCES and don't put CHECK constraints in the CREATE TABLE statements
var TableDefinitions = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id VARCHAR(64) PRIMARY KEY,
		email VARCHAR(255) UNIQUE NOT NULL,
		name VARCHAR(255),
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS domains (
		id VARCHAR(64) PRIMARY KEY,
		user_id VARCHAR(64) NOT NULL,
		name VARCHAR(255) NOT NULL,
		txt_verified BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS domain_api_keys (
		id VARCHAR(64) PRIMARY KEY,
		user_id VARCHAR(64) NOT NULL,
		domain_id VARCHAR(64) NOT NULL,
		name VARCHAR(255) NOT NULL,
		key_hash VARCHAR(64) UNIQUE NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		last_used_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS user_billing (
		id VARCHAR(64) PRIMARY KEY,
		user_id VARCHAR(64) NOT NULL,
		email_limit INTEGER NOT NULL DEFAULT 0,
		email_used INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS email_templates (
		id VARCHAR(64) PRIMARY KEY,
		user_id VARCHAR(64) NOT NULL,
		slug VARCHAR(255) NOT NULL,
		subject TEXT NOT NULL,
		html_content TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
		UNIQUE (user_id, slug)
	)`,
	`CREATE TABLE IF NOT EXISTS email_template_variables (
		template_id VARCHAR(64) NOT NULL,
		name VARCHAR(255) NOT NULL,
		default_value TEXT,
		PRIMARY KEY (template_id, name)
	)`,
	`CREATE TABLE IF NOT EXISTS email_events (
		id VARCHAR(64) PRIMARY KEY,
		user_id VARCHAR(64) NOT NULL,
		message_id VARCHAR(512) NOT NULL,
		event_type VARCHAR(32) NOT NULL,
		recipient_email VARCHAR(255) NOT NULL,
		sending_domain VARCHAR(255) NOT NULL,
		subject TEXT,
		metadata JSONB,
		ip_address VARCHAR(45),
		user_agent VARCHAR(500),
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS email_tracking_opens (
		id VARCHAR(64) PRIMARY KEY,
		user_id VARCHAR(64) NOT NULL,
		message_id VARCHAR(512) NOT NULL,
		recipient_email VARCHAR(255) NOT NULL,
		sending_domain VARCHAR(255) NOT NULL,
		opened_at TIMESTAMP,
		open_count INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS email_tracking_links (
		id VARCHAR(64) PRIMARY KEY,
		user_id VARCHAR(64) NOT NULL,
		message_id VARCHAR(512) NOT NULL,
		recipient_email VARCHAR(255) NOT NULL,
		sending_domain VARCHAR(255) NOT NULL,
		original_url TEXT NOT NULL,
		clicked_at TIMESTAMP,
		click_count INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS email_suppressions (
		id VARCHAR(64) PRIMARY KEY,
		user_id VARCHAR(64) NOT NULL,
		domain_id VARCHAR(64),
		email VARCHAR(255) NOT NULL,
		reason VARCHAR(32) NOT NULL,
		source_event_id VARCHAR(64),
		metadata JSONB,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		UNIQUE (user_id, email)
	)`,
}

// IndexDefinitions contains the supporting indexes for hot query paths.
var IndexDefinitions = []string{
	`CREATE INDEX IF NOT EXISTS idx_email_events_user_created ON email_events (user_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_email_events_message ON email_events (message_id)`,
	`CREATE INDEX IF NOT EXISTS idx_email_events_type ON email_events (user_id, event_type)`,
	`CREATE INDEX IF NOT EXISTS idx_suppressions_user_email ON email_suppressions (user_id, email)`,
	`CREATE INDEX IF NOT EXISTS idx_tracking_links_message ON email_tracking_links (message_id)`,
	`CREATE INDEX IF NOT EXISTS idx_tracking_opens_message ON email_tracking_opens (message_id)`,
}
