package badger

import (
	"encoding/binary"
)

// Key prefixes for different data types
const (
	taskPrefix       = "task:"
	documentPrefix   = "doc:"
	chunkPrefix      = "chunk:"
	documentTagIndex = "doctag:"
	checkpointPrefix = "chkpt:"
)

// keySeparator ends variable-length key components. It sorts before every
// printable byte so a shorter ID never interleaves with a longer one.
const keySeparator = 0x00

// makeTaskKey generates a key for a task by ID.
func makeTaskKey(id string) []byte {
	return []byte(taskPrefix + id)
}

// makeDocumentKey generates a key for a document by ID.
func makeDocumentKey(id string) []byte {
	return []byte(documentPrefix + id)
}

// makeChunkKey generates a composite key for a chunk.
// Format: prefix documentID 0x00 index
func makeChunkKey(documentID string, index int) []byte {
	buf := makeChunkPrefix(documentID)
	// Write in BigEndian order so lexicographic sort follows chunk order
	return binary.BigEndian.AppendUint64(buf, uint64(index))
}

// makeChunkPrefix generates the key prefix shared by a document's chunks.
func makeChunkPrefix(documentID string) []byte {
	buf := make([]byte, 0, len(chunkPrefix)+len(documentID)+1+8)
	buf = append(buf, chunkPrefix...)
	buf = append(buf, documentID...)
	return append(buf, keySeparator)
}

// parseChunkKey extracts the document ID and index from a chunk key.
func parseChunkKey(key []byte) (documentID string, index int, ok bool) {
	rest := key[len(chunkPrefix):]
	if len(rest) < 9 || rest[len(rest)-9] != keySeparator {
		return "", 0, false
	}
	documentID = string(rest[:len(rest)-9])
	index = int(binary.BigEndian.Uint64(rest[len(rest)-8:]))
	return documentID, index, true
}

// makeTagKey generates a composite key for the tag index.
// Format: prefix tag 0x00 documentID
func makeTagKey(tag, documentID string) []byte {
	buf := makeTagPrefix(tag)
	return append(buf, documentID...)
}

// makeTagPrefix generates the key prefix shared by a tag's index entries.
func makeTagPrefix(tag string) []byte {
	buf := make([]byte, 0, len(documentTagIndex)+len(tag)+1)
	buf = append(buf, documentTagIndex...)
	buf = append(buf, tag...)
	return append(buf, keySeparator)
}

// makeCheckpointKey generates a key for a maintenance job checkpoint.
func makeCheckpointKey(name string) []byte {
	return []byte(checkpointPrefix + name)
}
