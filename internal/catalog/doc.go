// Package catalog persists scripts, their sentences, and sentence images in
// SQLite and maintains the relationships between them.
//
// The Store manages the database connection, schema initialization, cascading
// deletes (script→sentence→image, enforced by SQLite with foreign keys on),
// and the main-image soft reference: every write path that adds or removes
// images keeps each sentence's main_image_id pointing at one of its own
// images, or at NULL when it has none.
//
// Delete operations return the filenames of affected images so callers can
// remove the underlying files after the row deletes commit; the database never
// references the asset store directly.
//
// Treat this package as the single source of truth for catalog semantics.
// Schema changes go in schema.sql and bump schemaVersion.
package catalog
