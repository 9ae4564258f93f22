package types

// FileEntry is one path reported by a filesystem listing
type FileEntry struct {
	Path  string `json:"path"`
	IsDir bool   `json:"isDir"`
	Size  int64  `json:"size"`
}

// DirectiveEntry is a cache directive together with its cache statistics
type DirectiveEntry struct {
	ID          int64  `json:"id"`
	Path        string `json:"path"`
	Pool        string `json:"pool"`
	Replication int    `json:"replication"`
	FilesNeeded int64  `json:"filesNeeded"`
	FilesCached int64  `json:"filesCached"`
	BytesNeeded int64  `json:"bytesNeeded"`
	BytesCached int64  `json:"bytesCached"`
}

// FullyCached reports whether every file the directive covers is cached
func (d DirectiveEntry) FullyCached() bool {
	return d.FilesCached == d.FilesNeeded
}

// DirectiveRequest asks the cache service to pin one path
type DirectiveRequest struct {
	Path        string `json:"path"`
	Pool        string `json:"pool"`
	Replication int    `json:"replication"`
}
