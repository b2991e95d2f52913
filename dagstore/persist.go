package dagstore

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/fxamacker/cbor/v2"
	"github.com/qrmesh/dagmix/ids"
)

// logMagic and logVersion identify the append-only log format (spec §6:
// "Format versioned by a 4-byte magic + u16 version in the first 6 bytes
// of each file").
var logMagic = [4]byte{'D', 'M', 'I', 'X'}

const logVersion uint16 = 1

// Log is a single append-only file of admitted vertices, paired with a
// pebble-backed index mapping vertex id → file offset. pebble and cbor are
// the storage/serialization choices carried from the ecosystem (see
// DESIGN.md); this package never depends on the in-memory Store's
// internals, only on *Vertex.
type Log struct {
	mu    sync.Mutex
	file  *os.File
	index *pebble.DB
}

type persistedVertex struct {
	ID          ids.VertexID
	Parents     []ids.VertexID
	Payload     []byte
	TimestampNS int64
	Author      ids.PeerID
	AuthorSig   []byte
	ConflictKey *[32]byte
}

// OpenLog opens (creating if absent) the append-only log at logPath and
// its companion pebble index at indexPath.
func OpenLog(logPath, indexPath string) (*Log, error) {
	f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("dagstore: open log: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("dagstore: stat log: %w", err)
	}
	if info.Size() == 0 {
		if err := writeHeader(f); err != nil {
			return nil, err
		}
	} else if err := verifyHeader(f); err != nil {
		return nil, err
	}

	db, err := pebble.Open(indexPath, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("dagstore: open index: %w", err)
	}

	return &Log{file: f, index: db}, nil
}

func writeHeader(f *os.File) error {
	var header [6]byte
	copy(header[:4], logMagic[:])
	binary.BigEndian.PutUint16(header[4:], logVersion)
	_, err := f.WriteAt(header[:], 0)
	return err
}

func verifyHeader(f *os.File) error {
	var header [6]byte
	if _, err := f.ReadAt(header[:], 0); err != nil {
		return fmt.Errorf("dagstore: read log header: %w", err)
	}
	if [4]byte(header[:4]) != logMagic {
		return fmt.Errorf("dagstore: bad log magic")
	}
	version := binary.BigEndian.Uint16(header[4:])
	if version != logVersion {
		return fmt.Errorf("dagstore: unsupported log version %d", version)
	}
	return nil
}

// Append writes v to the end of the log and records its offset in the
// index, keyed by vertex id.
func (l *Log) Append(v *Vertex) error {
	rec := persistedVertex{
		ID:          v.ID,
		Parents:     v.Parents,
		Payload:     v.Payload,
		TimestampNS: v.Timestamp.UnixNano(),
		Author:      v.Author,
		AuthorSig:   v.AuthorSig,
		ConflictKey: v.ConflictKey,
	}
	encoded, err := cbor.Marshal(rec)
	if err != nil {
		return fmt.Errorf("dagstore: encode vertex: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	offset, err := l.file.Seek(0, io.SeekEnd)
	if err != nil {
		return fmt.Errorf("dagstore: seek log: %w", err)
	}

	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(encoded)))
	if _, err := l.file.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("dagstore: write length: %w", err)
	}
	if _, err := l.file.Write(encoded); err != nil {
		return fmt.Errorf("dagstore: write record: %w", err)
	}

	var offsetBuf [8]byte
	binary.BigEndian.PutUint64(offsetBuf[:], uint64(offset))
	if err := l.index.Set(v.ID.Bytes(), offsetBuf[:], pebble.Sync); err != nil {
		return fmt.Errorf("dagstore: index vertex: %w", err)
	}
	return nil
}

// Load reads the vertex stored at id's indexed offset.
func (l *Log) Load(id ids.VertexID) (*Vertex, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	offsetBuf, closer, err := l.index.Get(id.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownVertex, err)
	}
	offset := int64(binary.BigEndian.Uint64(offsetBuf))
	closer.Close()

	var lenBuf [4]byte
	if _, err := l.file.ReadAt(lenBuf[:], offset); err != nil {
		return nil, fmt.Errorf("dagstore: read length: %w", err)
	}
	n := binary.BigEndian.Uint32(lenBuf[:])

	encoded := make([]byte, n)
	if _, err := l.file.ReadAt(encoded, offset+4); err != nil {
		return nil, fmt.Errorf("dagstore: read record: %w", err)
	}

	var rec persistedVertex
	if err := cbor.Unmarshal(encoded, &rec); err != nil {
		return nil, fmt.Errorf("dagstore: decode record: %w", err)
	}

	return &Vertex{
		ID:          rec.ID,
		Parents:     rec.Parents,
		Payload:     rec.Payload,
		Timestamp:   timeFromUnixNano(rec.TimestampNS),
		Author:      rec.Author,
		AuthorSig:   rec.AuthorSig,
		ConflictKey: rec.ConflictKey,
	}, nil
}

// Close releases the log file and index handles.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	idxErr := l.index.Close()
	fileErr := l.file.Close()
	if idxErr != nil {
		return idxErr
	}
	return fileErr
}
