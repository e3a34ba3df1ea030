// Package wal is a minimal append-only write-ahead log segment. The B+ tree
// core never calls into this package directly; it is an opaque collaborator
// of the buffer pool, not of the tree. Its only wiring point is
// storage/bufferpool's flush gate: a dirty page may not be written back (or
// evicted) until the WAL reports its records durable past that page's LSN.
// Replay/recovery is out of scope.
package wal

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync"
)

// Segment is a single append-only log file.
type Segment struct {
	mu         sync.Mutex
	file       *os.File
	path       string
	size       int64
	flushedLSN uint64
	nextLSN    uint64
}

// Open opens or creates the WAL segment at path.
func Open(path string) (*Segment, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("wal: failed to open segment %s: %w", path, err)
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("wal: failed to stat segment %s: %w", path, err)
	}
	return &Segment{file: f, path: path, size: stat.Size(), nextLSN: 1}, nil
}

// Append writes a length-prefixed record and returns the LSN assigned to it.
// The record is not yet durable — call Sync to advance the flushed LSN.
func (s *Segment) Append(record []byte) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lsn := s.nextLSN
	s.nextLSN++

	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(record)))
	n, err := s.file.Write(lenBuf[:])
	if err != nil {
		return 0, fmt.Errorf("wal: failed to append record length: %w", err)
	}
	s.size += int64(n)

	n, err = s.file.Write(record)
	if err != nil {
		return 0, fmt.Errorf("wal: failed to append record: %w", err)
	}
	s.size += int64(n)

	return lsn, nil
}

// Sync forces the segment to stable storage and advances the flushed LSN to
// the highest LSN appended so far.
func (s *Segment) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("wal: failed to sync segment: %w", err)
	}
	s.flushedLSN = s.nextLSN - 1
	return nil
}

// GetFlushedLSN implements storage/bufferpool.WALFlushedLSNGetter.
func (s *Segment) GetFlushedLSN() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushedLSN
}

// Close closes the underlying file.
func (s *Segment) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}
