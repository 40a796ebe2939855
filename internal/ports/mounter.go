package ports

// Mounter abstracts mounting of the destination volume.
// Production code uses the SysMounter adapter; tests use MockMounter.
type Mounter interface {
	// Mount mounts the filesystem configured for target (via fstab).
	Mount(target string) error

	// Unmount unmounts the filesystem at target.
	Unmount(target string) error

	// IsMounted reports whether a filesystem is mounted at target.
	IsMounted(target string) (bool, error)
}
