package transcode

import "time"

// Reason explains a gate decision.
type Reason string

const (
	ReasonForced          Reason = "forced"
	ReasonManifestMissing Reason = "manifest-missing"
	ReasonNeverExported   Reason = "never-exported"
	ReasonArchiveModified Reason = "archive-modified"
	ReasonUpToDate        Reason = "up-to-date"
)

// GateInput is everything the staleness gate looks at.
type GateInput struct {
	ArchiveModTime time.Time
	// LastRun is when the most recent successful export started.
	LastRun        time.Time
	HasLastRun     bool
	ManifestExists bool
	Force          bool
}

// Decision is the gate's verdict.
type Decision struct {
	Run    bool   `json:"run"`
	Reason Reason `json:"reason"`
}

// Gate decides whether an export needs to run. It keys on modification
// time only: touching the archive without editing it still forces a run.
type Gate struct{}

// Decide runs the export when forced, when no manifest exists, when no
// successful export was ever recorded, or when the archive was modified
// after the last successful export started.
func (Gate) Decide(in GateInput) Decision {
	switch {
	case in.Force:
		return Decision{Run: true, Reason: ReasonForced}
	case !in.ManifestExists:
		return Decision{Run: true, Reason: ReasonManifestMissing}
	case !in.HasLastRun:
		return Decision{Run: true, Reason: ReasonNeverExported}
	case in.ArchiveModTime.After(in.LastRun):
		return Decision{Run: true, Reason: ReasonArchiveModified}
	default:
		return Decision{Run: false, Reason: ReasonUpToDate}
	}
}
