// Package preflight provides readiness checks for the external commands,
// services, and filesystem paths a vidsub run depends on.
//
// The run command calls RunAll before extracting audio so a missing tool or an
// unwritable work directory fails in seconds rather than after transcription.
// The deps command uses CheckSystemDeps to render an availability table.
package preflight
