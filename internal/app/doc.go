// Package app provides the application service layer.
//
// Orchestrates use cases: session activation and deactivation, history fetches, display binding,
// refreshes and notice resolution. Sits between HTTP handlers and the sensor platform.
// Depends on domain interfaces, not concrete implementations.
package app
