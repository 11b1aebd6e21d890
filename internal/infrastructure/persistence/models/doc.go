// Package models contains GORM persistence models for the receivables ledger.
// Domain entities stay free of ORM tags; each model maps one table and
// converts to and from its domain entity with ToDomain / FromDomain.
//
// The tags use portable column types so the same models migrate on
// PostgreSQL (production, via migrations/*.sql) and SQLite (tests, via
// AutoMigrate).
package models
