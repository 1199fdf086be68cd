// Package quarry unifies relational engines (MySQL, PostgreSQL, SQLite) and
// a document store (MongoDB) behind one fluent data-access API.
//
// The package layout follows the data flow, leaf to root:
//
//   - adapter: the pluggable backend contract plus one implementation per
//     engine (adapter/mysql, adapter/postgres, adapter/sqlite, adapter/mongo).
//   - query: the backend-agnostic fluent query builder.
//   - model: the entity facade with attribute casting, mass-assignment
//     policy and relationship resolution.
//   - schema, migrate: the table blueprint DSL and the versioned
//     migration runner.
//
// The root package holds the error taxonomy and the query-result Cache
// contract shared by every layer.
package quarry
