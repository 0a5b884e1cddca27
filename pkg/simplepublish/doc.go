// Package simplepublish provides the content and media lifecycle engine of a
// multi-tenant publishing backend.
//
// It exposes three cooperating services assembled by New into a Core:
// OrganizationService (organization identity and slugs), MediaService (uploaded
// media and its processing state machine) and ContentService (publishable
// content gated on media readiness). Every public operation runs as one short
// transaction obtained from a TxRunner; repository implementations (memory,
// Postgres) live under repo/.
//
// Scoping
//
// Content slugs are unique per scope: an organization's live content shares one
// scope, and a creator's personal content (no organization) shares another.
// Organization slugs are unique among live organizations, case-insensitively.
// Soft-deleted rows are invisible to every read path.
package simplepublish
