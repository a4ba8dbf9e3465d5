// Package logging wires slog handlers for darkroom.
//
// Console output renders compact single-line records with color when attached
// to a terminal; JSON output is available for log shippers. WithContext pulls
// the asset id, stage, and correlation id stamped by the services package so
// every pipeline log line carries consistent fields.
package logging
