// Edits a file in place from the command line.
//
// Example run:
// $ fileregion --file data.bin write 2 xyz
// $ fileregion --file data.bin remove 2 3
// $ fileregion --file data.bin read --dump 0 16
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/alexflint/go-arg"
	"github.com/anacrolix/envpprof"
	g "github.com/anacrolix/generics"
	"github.com/anacrolix/log"
	"github.com/anacrolix/tagflag"
	"github.com/davecgh/go-spew/spew"
	"github.com/dustin/go-humanize"

	"github.com/anacrolix/fileregion"
)

var logger = log.Default.WithNames("main")

type flags struct {
	File        string        `arg:"required" help:"file to edit"`
	Mmap        bool          `help:"memory-map the file"`
	NoCreate    bool          `help:"fail if the file doesn't exist"`
	ShiftBuffer tagflag.Bytes `help:"largest buffer used to move bytes on remove and insert"`
	Sync        bool          `help:"sync the file before exiting"`
	Debug       bool

	*SizeCmd   `arg:"subcommand:size"`
	*ReadCmd   `arg:"subcommand:read"`
	*WriteCmd  `arg:"subcommand:write"`
	*AppendCmd `arg:"subcommand:append"`
	*RemoveCmd `arg:"subcommand:remove"`
	*InsertCmd `arg:"subcommand:insert"`
}

type SizeCmd struct {
	Human bool `help:"print the size in human units"`
}

type ReadCmd struct {
	Dump   bool  `help:"hex dump instead of raw bytes"`
	Offset int64 `arg:"positional,required"`
	Length int64 `arg:"positional,required"`
}

type WriteCmd struct {
	Offset int64  `arg:"positional,required"`
	Data   string `arg:"positional" help:"bytes to write, read from stdin if omitted"`
}

type AppendCmd struct {
	Data string `arg:"positional" help:"bytes to append, read from stdin if omitted"`
}

type RemoveCmd struct {
	Offset int64 `arg:"positional,required"`
	Length int64 `arg:"positional,required"`
}

type InsertCmd struct {
	Offset int64  `arg:"positional,required"`
	Data   string `arg:"positional" help:"bytes to insert, read from stdin if omitted"`
}

func main() {
	defer envpprof.Stop()
	if err := mainErr(); err != nil {
		logger.Levelf(log.Error, "error in main: %v", err)
		os.Exit(1)
	}
}

func mainErr() (err error) {
	var args flags
	p := arg.MustParse(&args)
	if p.Subcommand() == nil {
		p.Fail("missing subcommand")
	}
	opts := fileregion.Opts{
		Create:      g.Some(!args.NoCreate),
		SyncOnClose: args.Sync,
	}
	if args.ShiftBuffer != 0 {
		opts.ShiftBufferSize = g.Some(args.ShiftBuffer.Int64())
	}
	if args.Debug {
		opts.Logger = g.Some(log.Default.WithNames("fileregion").WithFilterLevel(log.Debug))
	}
	open := fileregion.Open
	if args.Mmap {
		open = fileregion.OpenMmap
	}
	e, err := open(args.File, opts)
	if err != nil {
		return fmt.Errorf("opening %q: %w", args.File, err)
	}
	defer func() {
		closeErr := e.Close()
		if err == nil {
			err = closeErr
		}
	}()
	return run(e, args, os.Stdin, os.Stdout)
}

func run(e *fileregion.Editor, args flags, stdin io.Reader, stdout io.Writer) error {
	switch {
	case args.SizeCmd != nil:
		size, err := e.Size()
		if err != nil {
			return err
		}
		if args.SizeCmd.Human {
			fmt.Fprintln(stdout, humanize.IBytes(uint64(size)))
		} else {
			fmt.Fprintln(stdout, size)
		}
	case args.ReadCmd != nil:
		b, err := e.Read(args.ReadCmd.Offset, args.ReadCmd.Length)
		if err != nil && err != io.EOF {
			return err
		}
		if args.ReadCmd.Dump {
			spew.Fdump(stdout, b)
		} else {
			_, err = stdout.Write(b)
			return err
		}
	case args.WriteCmd != nil:
		data, err := dataArg(args.WriteCmd.Data, stdin)
		if err != nil {
			return err
		}
		_, err = e.Overwrite(args.WriteCmd.Offset, data)
		return err
	case args.AppendCmd != nil:
		data, err := dataArg(args.AppendCmd.Data, stdin)
		if err != nil {
			return err
		}
		off, err := e.Append(data)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, off)
	case args.RemoveCmd != nil:
		return e.Remove(args.RemoveCmd.Offset, args.RemoveCmd.Length)
	case args.InsertCmd != nil:
		data, err := dataArg(args.InsertCmd.Data, stdin)
		if err != nil {
			return err
		}
		return e.Insert(args.InsertCmd.Offset, data)
	default:
		panic("unreachable")
	}
	return nil
}

func dataArg(s string, stdin io.Reader) ([]byte, error) {
	if s != "" {
		return []byte(s), nil
	}
	b, err := io.ReadAll(stdin)
	if err != nil {
		return nil, fmt.Errorf("reading stdin: %w", err)
	}
	return b, nil
}
