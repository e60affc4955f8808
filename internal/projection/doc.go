// Package projection turns sensor readings into display-ready records.
//
// Every function is pure: the same input always yields the same output, and no
// function retains its input. Bounded projections stop after a maximum number of
// emitted records; the remaining input is ignored.
package projection
