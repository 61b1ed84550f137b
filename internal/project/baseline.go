package project

import (
	"os"
	"time"
)

// fileBaseline remembers the last modification time accounted for on a file.
// It is only ever compared against the current on-disk mtime, never used for locking.
type fileBaseline struct {
	path  string
	mtime time.Time
	set   bool
}

// changed reports whether the file is newer than the baseline, or whether no
// baseline exists yet. It also returns the observed mtime so a successful
// reader can advance to exactly what it saw. A file that cannot be stat'ed
// never counts as changed.
func (b *fileBaseline) changed() (time.Time, bool) {
	info, err := os.Stat(b.path)
	if err != nil {
		return time.Time{}, false
	}
	mt := info.ModTime()
	if !b.set || mt.After(b.mtime) {
		return mt, true
	}
	return mt, false
}

func (b *fileBaseline) advance(mt time.Time) {
	b.mtime = mt
	b.set = true
}

// refresh re-reads the file's mtime and stores it as the baseline.
func (b *fileBaseline) refresh() error {
	info, err := os.Stat(b.path)
	if err != nil {
		return err
	}
	b.advance(info.ModTime())
	return nil
}

func (b *fileBaseline) reset() {
	b.mtime = time.Time{}
	b.set = false
}
