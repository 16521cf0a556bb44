// Package model defines shared value types: transport kinds, data rows,
// and connection lifecycle events.
package model
