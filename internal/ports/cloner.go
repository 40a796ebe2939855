package ports

// Cloner produces copy-on-write duplicates of image files.
// Production code uses the ReflinkCloner adapter; tests use MockCloner.
type Cloner interface {
	// Clone creates dst as a reflink copy of src. The clone shares
	// storage blocks with src until either file is modified.
	Clone(src, dst string) error
}
