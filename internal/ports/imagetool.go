package ports

// Descriptor identifies the target of an initial (full) backup. The size
// hints are forwarded to the external image tool; zero means "not set".
// ExtraMB is only meaningful when SizeMB is set, because the tool's
// positional descriptor cannot express an extra hint without a size.
type Descriptor struct {
	// Path is the destination image file.
	Path string
	// SizeMB is an optional image size hint in megabytes.
	SizeMB int
	// ExtraMB is an optional additional-space hint in megabytes.
	ExtraMB int
}

// ImageTool abstracts the external image capture/update program.
// Production code uses the ExecImageTool adapter; tests use MockImageTool.
type ImageTool interface {
	// Initial performs a full image capture creating a new backup unit.
	// opts is an ordered pass-through option list handed to the tool
	// verbatim; the tool is free to ignore it.
	Initial(desc Descriptor, opts []string) error

	// Incremental updates an existing image in place.
	Incremental(path string, opts []string) error
}
