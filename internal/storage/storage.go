package storage

// BlobStorage is a key-to-blob store addressed by path. Put derives the path
// from the product-image namespace plus a generated name and returns it; that
// path is what gets persisted on the product row and served publicly.
type BlobStorage interface {
	Put(data []byte, originalName string) (string, error)
	Get(path string) ([]byte, error)
	Delete(path string) error
}
