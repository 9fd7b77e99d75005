// Package version provides build and version information.
package version

// Version is the current application version.
const Version = "0.4.0"

// Milestones:
// 0.4.0 - HTTP API, EOP auto-update, sky view and targets table
// 0.3.0 - JPL DE backend, refraction search, viewport field of view
// 0.2.0 - Nighttime cache with reference-date notifications, moon phase
// 0.1.0 - Initial release: angle type, UT1-UTC cache, Meeus ephemeris, rise/set solver
