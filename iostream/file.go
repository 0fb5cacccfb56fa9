package iostream

import (
	"io"
	"os"
)

// FileInputStream reads a local file, unbuffered and binary. The file is
// owned unless the stream was constructed with BorrowFileInput, in which
// case Close leaves it open for the lender.
type FileInputStream struct {
	f        *os.File
	borrowed bool
	pos      uint64
}

// OpenFileInput opens path for reading.
func OpenFileInput(path string) (*FileInputStream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}
	return &FileInputStream{f: f}, nil
}

// BorrowFileInput wraps an already-open file without taking ownership.
func BorrowFileInput(f *os.File) *FileInputStream {
	return &FileInputStream{f: f, borrowed: true}
}

func (s *FileInputStream) Read(p []byte) (int, error) {
	n, err := s.f.Read(p)
	s.pos += uint64(n)
	if err != nil && err != io.EOF {
		return n, &IOError{Op: "read", Path: s.f.Name(), Err: err}
	}
	return n, err
}

func (s *FileInputStream) Tell() (uint64, bool) { return s.pos, true }

func (s *FileInputStream) Skip(n uint64) error {
	if _, err := s.f.Seek(int64(n), io.SeekCurrent); err != nil {
		return &IOError{Op: "skip", Path: s.f.Name(), Err: err}
	}
	s.pos += n
	return nil
}

func (s *FileInputStream) Close() error {
	if s.borrowed {
		return nil
	}
	if err := s.f.Close(); err != nil {
		return &IOError{Op: "close", Path: s.f.Name(), Err: err}
	}
	return nil
}

// FileOutputStream writes a local file, unbuffered and binary.
type FileOutputStream struct {
	f        *os.File
	borrowed bool
	pos      uint64
}

// CreateFileOutput creates (or truncates, when truncate is set) path for
// writing. Without truncate, an existing file is an error.
func CreateFileOutput(path string, truncate bool) (*FileOutputStream, error) {
	flags := os.O_WRONLY | os.O_CREATE
	if truncate {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, &IOError{Op: "create", Path: path, Err: err}
	}
	return &FileOutputStream{f: f}, nil
}

// BorrowFileOutput wraps an already-open file without taking ownership.
func BorrowFileOutput(f *os.File) *FileOutputStream {
	return &FileOutputStream{f: f, borrowed: true}
}

func (s *FileOutputStream) Write(p []byte) (int, error) {
	n, err := s.f.Write(p)
	s.pos += uint64(n)
	if err != nil {
		return n, &IOError{Op: "write", Path: s.f.Name(), Err: err}
	}
	return n, nil
}

func (s *FileOutputStream) Tell() (uint64, bool) { return s.pos, true }

func (s *FileOutputStream) Close() error {
	if s.borrowed {
		return nil
	}
	if err := s.f.Close(); err != nil {
		return &IOError{Op: "close", Path: s.f.Name(), Err: err}
	}
	return nil
}
