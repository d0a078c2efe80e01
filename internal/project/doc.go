// Package project runs exports and imports against a project directory.
//
// It owns everything the pure transcode pipelines leave out: locating the
// archive and scripts directory, consulting the staleness gate, writing
// files atomically, logging progress, and recording each run in the state
// store.
package project
