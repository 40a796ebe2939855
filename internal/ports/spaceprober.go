package ports

// SpaceProber reports raw byte counts for a mounted filesystem path.
// Production code uses the StatfsProber adapter; tests use MockSpaceProber.
//
// Values must not be rounded up to block boundaries: the space guard
// compares them strictly, and a hidden deficit of even one byte matters.
type SpaceProber interface {
	// Available returns the number of bytes available to unprivileged
	// writers on the filesystem containing path.
	Available(path string) (uint64, error)

	// Used returns the number of bytes in use on the filesystem
	// containing path.
	Used(path string) (uint64, error)
}
