// Package media defines the core data model: assets, tiered file versions,
// faces, persons, the append-only asset history, and the structured metadata
// blob stored on versions.
//
// Entities reference each other by id only. A Face points at a Person by id
// and a Person may point back at a representative Face by id; the store
// resolves both, so there are no in-memory cyclic object graphs to manage.
package media
