package fileregion

import (
	"errors"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"testing"

	g "github.com/anacrolix/generics"
	"github.com/anacrolix/log"
	"github.com/go-quicktest/qt"

	"github.com/anacrolix/fileregion/storage"
)

type backend struct {
	name string
	open func(t *testing.T, content []byte, opts Opts) *Editor
}

func writeTempFile(t *testing.T, content []byte) string {
	name := filepath.Join(t.TempDir(), "region")
	qt.Assert(t, qt.IsNil(os.WriteFile(name, content, 0o644)))
	return name
}

var backends = []backend{
	{"os", func(t *testing.T, content []byte, opts Opts) *Editor {
		e, err := Open(writeTempFile(t, content), opts)
		qt.Assert(t, qt.IsNil(err))
		return e
	}},
	{"mmap", func(t *testing.T, content []byte, opts Opts) *Editor {
		e, err := OpenMmap(writeTempFile(t, content), opts)
		qt.Assert(t, qt.IsNil(err))
		return e
	}},
	{"memory", func(t *testing.T, content []byte, opts Opts) *Editor {
		return New(storage.NewMemory(append([]byte(nil), content...)), opts)
	}},
}

func testOpts() Opts {
	return Opts{Logger: g.Some(log.Default.WithFilterLevel(log.Disabled))}
}

func eachBackend(t *testing.T, f func(t *testing.T, b backend)) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			f(t, b)
		})
	}
}

func assertContents(t *testing.T, e *Editor, expected string) {
	t.Helper()
	size, err := e.Size()
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(size, int64(len(expected))))
	b, err := e.Read(0, size)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(string(b), expected))
}

func TestScenario(t *testing.T) {
	eachBackend(t, func(t *testing.T, b backend) {
		e := b.open(t, []byte("ABCDEFGHIJ"), testOpts())
		defer e.Close()
		got, err := e.Read(2, 3)
		qt.Assert(t, qt.IsNil(err))
		qt.Check(t, qt.Equals(string(got), "CDE"))
		off, err := e.Overwrite(2, []byte("xyz"))
		qt.Assert(t, qt.IsNil(err))
		qt.Check(t, qt.Equals(off, 2))
		assertContents(t, e, "ABxyzFGHIJ")
		qt.Assert(t, qt.IsNil(e.Remove(2, 3)))
		assertContents(t, e, "ABFGHIJ")
		off, err = e.Append([]byte("Z"))
		qt.Assert(t, qt.IsNil(err))
		qt.Check(t, qt.Equals(off, 7))
		assertContents(t, e, "ABFGHIJZ")
	})
}

func TestOverwriteReadRoundTrip(t *testing.T) {
	eachBackend(t, func(t *testing.T, b backend) {
		e := b.open(t, []byte("0123456789"), testOpts())
		defer e.Close()
		for _, tc := range []struct {
			off  int64
			data string
		}{
			{0, "a"},
			{9, "b"},
			{3, "cdef"},
			{0, "0123456789"},
		} {
			_, err := e.Overwrite(tc.off, []byte(tc.data))
			qt.Assert(t, qt.IsNil(err))
			got, err := e.Read(tc.off, int64(len(tc.data)))
			qt.Assert(t, qt.IsNil(err))
			qt.Check(t, qt.Equals(string(got), tc.data))
			size, err := e.Size()
			qt.Assert(t, qt.IsNil(err))
			qt.Check(t, qt.Equals(size, 10))
		}
	})
}

func TestOverwritePastEndZeroFills(t *testing.T) {
	eachBackend(t, func(t *testing.T, b backend) {
		e := b.open(t, []byte("ab"), testOpts())
		defer e.Close()
		_, err := e.Overwrite(4, []byte("cd"))
		qt.Assert(t, qt.IsNil(err))
		assertContents(t, e, "ab\x00\x00cd")
	})
}

func TestAppend(t *testing.T) {
	eachBackend(t, func(t *testing.T, b backend) {
		e := b.open(t, nil, testOpts())
		defer e.Close()
		var expected string
		for _, s := range []string{"hello", "", " ", "world"} {
			before, err := e.Size()
			qt.Assert(t, qt.IsNil(err))
			off, err := e.Append([]byte(s))
			qt.Assert(t, qt.IsNil(err))
			qt.Check(t, qt.Equals(off, before))
			expected += s
			assertContents(t, e, expected)
		}
	})
}

func TestReadPastEnd(t *testing.T) {
	eachBackend(t, func(t *testing.T, b backend) {
		e := b.open(t, []byte("abc"), testOpts())
		defer e.Close()
		got, err := e.Read(1, 5)
		qt.Check(t, qt.Equals(err, io.EOF))
		qt.Check(t, qt.Equals(string(got), "bc"))
		got, err = e.Read(10, 1)
		qt.Check(t, qt.Equals(err, io.EOF))
		qt.Check(t, qt.HasLen(got, 0))
		got, err = e.Read(3, 0)
		qt.Check(t, qt.IsNil(err))
		qt.Check(t, qt.HasLen(got, 0))
	})
}

// The returned buffer is bounded by the file, not by the requested length.
func TestReadHugeLength(t *testing.T) {
	eachBackend(t, func(t *testing.T, b backend) {
		e := b.open(t, []byte("abc"), testOpts())
		defer e.Close()
		got, err := e.Read(0, math.MaxInt64)
		qt.Check(t, qt.Equals(err, io.EOF))
		qt.Check(t, qt.Equals(string(got), "abc"))
		got, err = e.Read(math.MaxInt64, 0)
		qt.Check(t, qt.IsNil(err))
		qt.Check(t, qt.HasLen(got, 0))
		got, err = e.Read(2, math.MaxInt64-2)
		qt.Check(t, qt.Equals(err, io.EOF))
		qt.Check(t, qt.Equals(string(got), "c"))
	})
}

func TestSizeIdempotent(t *testing.T) {
	eachBackend(t, func(t *testing.T, b backend) {
		e := b.open(t, []byte("abcdef"), testOpts())
		defer e.Close()
		first, err := e.Size()
		qt.Assert(t, qt.IsNil(err))
		for range 3 {
			again, err := e.Size()
			qt.Assert(t, qt.IsNil(err))
			qt.Check(t, qt.Equals(again, first))
		}
	})
}

func TestInvalidRanges(t *testing.T) {
	const content = "ABCDEFGHIJ"
	eachBackend(t, func(t *testing.T, b backend) {
		e := b.open(t, []byte(content), testOpts())
		defer e.Close()
		for _, tc := range []struct {
			name string
			f    func() error
		}{
			{"read negative offset", func() error { _, err := e.Read(-1, 1); return err }},
			{"read negative length", func() error { _, err := e.Read(0, -1); return err }},
			{"readat negative offset", func() error { _, err := e.ReadAt(make([]byte, 1), -1); return err }},
			{"overwrite negative offset", func() error { _, err := e.Overwrite(-1, []byte("x")); return err }},
			{"remove negative start", func() error { return e.Remove(-1, 1) }},
			{"remove negative length", func() error { return e.Remove(1, -1) }},
			{"remove past end", func() error { return e.Remove(8, 3) }},
			{"remove start past end", func() error { return e.Remove(11, 0) }},
			{"insert past end", func() error { return e.Insert(11, []byte("x")) }},
			{"insert negative offset", func() error { return e.Insert(-1, []byte("x")) }},
		} {
			t.Run(tc.name, func(t *testing.T) {
				err := tc.f()
				qt.Check(t, qt.ErrorIs(err, ErrInvalidRange))
				var re *RangeError
				qt.Check(t, qt.ErrorAs(err, &re))
				assertContents(t, e, content)
			})
		}
	})
}

func TestRangeErrorMessage(t *testing.T) {
	e := New(storage.NewMemory([]byte("abc")), testOpts())
	err := e.Remove(2, 2)
	qt.Check(t, qt.ErrorMatches(err, `remove: range at offset 2 of length 2 is outside file of size 3`))
	_, err = e.Read(-1, 2)
	qt.Check(t, qt.ErrorMatches(err, `read: invalid range: offset -1, length 2`))
}

func TestUseAfterClose(t *testing.T) {
	eachBackend(t, func(t *testing.T, b backend) {
		e := b.open(t, []byte("abc"), testOpts())
		qt.Assert(t, qt.IsNil(e.Close()))
		// Closing again is a no-op.
		qt.Check(t, qt.IsNil(e.Close()))
		_, err := e.Size()
		qt.Check(t, qt.ErrorIs(err, ErrClosed))
		_, err = e.Read(0, 1)
		qt.Check(t, qt.ErrorIs(err, ErrClosed))
		_, err = e.ReadAt(make([]byte, 1), 0)
		qt.Check(t, qt.ErrorIs(err, ErrClosed))
		_, err = e.Overwrite(0, []byte("x"))
		qt.Check(t, qt.ErrorIs(err, ErrClosed))
		_, err = e.WriteAt([]byte("x"), 0)
		qt.Check(t, qt.ErrorIs(err, ErrClosed))
		_, err = e.Append([]byte("x"))
		qt.Check(t, qt.ErrorIs(err, ErrClosed))
		qt.Check(t, qt.ErrorIs(e.Remove(0, 1), ErrClosed))
		qt.Check(t, qt.ErrorIs(e.Insert(0, []byte("x")), ErrClosed))
		qt.Check(t, qt.ErrorIs(e.Sync(), ErrClosed))
	})
}

func TestSyncOnClose(t *testing.T) {
	name := writeTempFile(t, []byte("abc"))
	opts := testOpts()
	opts.SyncOnClose = true
	e, err := Open(name, opts)
	qt.Assert(t, qt.IsNil(err))
	_, err = e.Append([]byte("def"))
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsNil(e.Sync()))
	qt.Assert(t, qt.IsNil(e.Close()))
	b, err := os.ReadFile(name)
	qt.Assert(t, qt.IsNil(err))
	qt.Check(t, qt.Equals(string(b), "abcdef"))
}

func TestOpenCreates(t *testing.T) {
	name := filepath.Join(t.TempDir(), "new")
	e, err := Open(name, testOpts())
	qt.Assert(t, qt.IsNil(err))
	assertContents(t, e, "")
	qt.Assert(t, qt.IsNil(e.Close()))
	_, err = os.Stat(name)
	qt.Check(t, qt.IsNil(err))
}

func TestOpenMissingWithoutCreate(t *testing.T) {
	opts := testOpts()
	opts.Create = g.Some(false)
	_, err := Open(filepath.Join(t.TempDir(), "missing"), opts)
	qt.Check(t, qt.ErrorIs(err, fs.ErrNotExist))
	_, err = OpenMmap(filepath.Join(t.TempDir(), "missing"), opts)
	qt.Check(t, qt.ErrorIs(err, fs.ErrNotExist))
}

func TestOpenFile(t *testing.T) {
	name := writeTempFile(t, []byte("hello"))
	f, err := os.OpenFile(name, os.O_RDWR, 0)
	qt.Assert(t, qt.IsNil(err))
	e, err := OpenFile(f, testOpts())
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsNil(e.Remove(0, 1)))
	qt.Assert(t, qt.IsNil(e.Close()))
	// The Editor owned the handle.
	_, err = f.Stat()
	qt.Check(t, qt.ErrorIs(err, os.ErrClosed))
	b, err := os.ReadFile(name)
	qt.Assert(t, qt.IsNil(err))
	qt.Check(t, qt.Equals(string(b), "ello"))
}

func TestOpenFileNil(t *testing.T) {
	_, err := OpenFile(nil, testOpts())
	qt.Check(t, qt.IsNotNil(err))
}

func TestOpenFileReadOnly(t *testing.T) {
	name := writeTempFile(t, []byte("hello"))
	f, err := os.Open(name)
	qt.Assert(t, qt.IsNil(err))
	e, err := OpenFile(f, testOpts())
	qt.Assert(t, qt.IsNil(err))
	defer e.Close()
	_, err = e.Overwrite(0, []byte("j"))
	qt.Check(t, qt.IsNotNil(err))
	qt.Check(t, qt.IsFalse(errors.Is(err, ErrInvalidRange)))
}

func TestWriteAtReadAt(t *testing.T) {
	eachBackend(t, func(t *testing.T, b backend) {
		e := b.open(t, []byte("abcdef"), testOpts())
		defer e.Close()
		n, err := e.WriteAt([]byte("XY"), 4)
		qt.Assert(t, qt.IsNil(err))
		qt.Check(t, qt.Equals(n, 2))
		p := make([]byte, 4)
		n, err = io.NewSectionReader(e, 2, 4).Read(p)
		qt.Assert(t, qt.IsNil(err))
		qt.Check(t, qt.Equals(string(p[:n]), "cdXY"))
	})
}
