// Package postgres provides a PostgreSQL implementation of the course and
// document stores using jackc/pgx.
//
// The schema mirrors the SQLite adapter and is applied with
// CREATE TABLE IF NOT EXISTS on connect.
package postgres
