// Package migration applies the versioned SQL files embedded under sql/ to a
// SQLite database and records each applied version in schema_migrations.
//
// File names follow {version}_{description}.sql. An optional leading
// "-- Description: ..." comment overrides the description taken from the name.
package migration
