// Package sensorcore provides the SensorCore platforms the explorer runs on:
// a Simulator replaying recorded sessions from YAML files and a Bridge client
// for a device-side SensorCore HTTP bridge.
package sensorcore
