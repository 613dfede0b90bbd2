package port

import "phrasedex/internal/domain"

// ChunkReader yields the chunks of one file in order. After the final chunk
// has been returned, Next keeps returning it.
type ChunkReader interface {
	Next() (domain.TextChunk, error)
	Close() error
}
