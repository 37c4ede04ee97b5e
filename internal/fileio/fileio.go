// Package fileio provides the byte-addressable file collaborators the
// transport core reads from and writes to: a random-access RangeReader for
// the sender and an append-only Appender for the receiver. Both are thin
// *os.File wrappers, the same shape as the teacher's sdoRawReadWriter
// io.Reader/io.Writer adapter in pkg/sdo/io.go.
package fileio

import (
	"io"
	"os"
)

// RangeReader reads an arbitrary byte range from a file, backing
// pkg/transport.FileSource.
type RangeReader struct {
	file   *os.File
	length int64
}

// OpenRangeReader opens path for random-access reading.
func OpenRangeReader(path string) (*RangeReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &RangeReader{file: f, length: info.Size()}, nil
}

// Length returns the file size in bytes.
func (r *RangeReader) Length() int64 {
	return r.length
}

// ReadRange reads exactly length bytes starting at offset. A short read at
// EOF returns fewer bytes with no error, matching the sender's own bounds
// checking (offset+length never exceeds Length() in practice).
func (r *RangeReader) ReadRange(offset int64, length int) ([]byte, error) {
	buf := make([]byte, length)
	n, err := r.file.ReadAt(buf, offset)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return buf[:n], nil
}

// Close releases the underlying file handle.
func (r *RangeReader) Close() error {
	return r.file.Close()
}

// Appender writes drained segment payloads to an output file in order,
// backing pkg/transport.Appender.
type Appender struct {
	file *os.File
}

// CreateAppender truncates (or creates) path for sequential writing.
func CreateAppender(path string) (*Appender, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &Appender{file: f}, nil
}

// Append writes data at the current file offset.
func (a *Appender) Append(data []byte) error {
	_, err := a.file.Write(data)
	return err
}

// Close releases the underlying file handle.
func (a *Appender) Close() error {
	return a.file.Close()
}
