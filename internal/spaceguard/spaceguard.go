// Package spaceguard is the single entry point for space safety: it
// proves sufficient destination space before a backup, invoking retention
// cleanup when allowed, and refuses to proceed otherwise.
package spaceguard

import (
	"fmt"

	"github.com/maxivhuber/rpi-backup/internal/logging"
	"github.com/maxivhuber/rpi-backup/internal/ports"
	"github.com/maxivhuber/rpi-backup/internal/retention"
)

// SpaceErrorKind classifies guard failures.
type SpaceErrorKind int

const (
	// NoRetentionPolicy means space is short and no retention floor is
	// configured; the guard refuses to guess a safe deletion count.
	NoRetentionPolicy SpaceErrorKind = iota
	// StillInsufficient means cleanup ran but the re-probe still found
	// too little space.
	StillInsufficient
)

// SpaceError reports that the guard could not establish sufficient space.
type SpaceError struct {
	Kind      SpaceErrorKind
	Mount     string
	Needed    uint64
	Available uint64
}

func (e *SpaceError) Error() string {
	switch e.Kind {
	case NoRetentionPolicy:
		return fmt.Sprintf("space: %s has %d of %d required bytes and no retention floor is configured; set min_retain to enable cleanup",
			e.Mount, e.Available, e.Needed)
	default:
		return fmt.Sprintf("space: %s still has only %d of %d required bytes after cleanup",
			e.Mount, e.Available, e.Needed)
	}
}

// Guard orchestrates probe, cleanup, and re-probe.
type Guard struct {
	probe   ports.SpaceProber
	cleaner *retention.Cleaner
	log     logging.Logger
}

// New creates a guard delegating cleanup to cleaner.
func New(probe ports.SpaceProber, cleaner *retention.Cleaner, log logging.Logger) *Guard {
	return &Guard{probe: probe, cleaner: cleaner, log: log}
}

// Ensure proves that needed bytes are available on mount, deleting old
// backups through the retention cleaner when minRetain is set (nonzero).
// The re-probe after cleanup is mandatory: cleanup targets a deficit
// computed before deletions changed the filesystem's block accounting,
// so its success does not by itself prove the space exists.
func (g *Guard) Ensure(mount string, needed uint64, minRetain int) error {
	avail, err := g.probe.Available(mount)
	if err != nil {
		return err
	}
	if avail >= needed {
		return nil
	}

	if minRetain == 0 {
		return &SpaceError{Kind: NoRetentionPolicy, Mount: mount, Needed: needed, Available: avail}
	}

	g.log.Info("space: %d of %d required bytes on %s, freeing old backups", avail, needed, mount)
	if err := g.cleaner.Clean(mount, minRetain, needed); err != nil {
		return err
	}

	avail, err = g.probe.Available(mount)
	if err != nil {
		return err
	}
	if avail < needed {
		return &SpaceError{Kind: StillInsufficient, Mount: mount, Needed: needed, Available: avail}
	}
	return nil
}
