// Command tsdump prints the element tree of a token stream.
//
//	tsdump [--frame] [--format json|yaml|cbor] [file]
//
// With no file, tsdump reads standard input. A frame is detected by its magic
// even without --frame; the flag only makes a missing frame an error.
package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fxamacker/cbor/v2"
	json "github.com/goccy/go-json"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/logicossoftware/go-tokenstream"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	format   string
	frame    bool
	maxDepth int
	verbose  bool
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	var opts options
	flagSet := pflag.NewFlagSet("tsdump", pflag.ContinueOnError)
	flagSet.StringVarP(&opts.format, "format", "f", "json", "output format: json, yaml or cbor")
	flagSet.BoolVar(&opts.frame, "frame", false, "require the input to be a frame")
	flagSet.IntVar(&opts.maxDepth, "max-depth", 0, "deepest nesting to expand (0 = default limit)")
	flagSet.BoolVarP(&opts.verbose, "verbose", "v", false, "log decoder failures to stderr")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	var in io.Reader = stdin
	switch rest := flagSet.Args(); len(rest) {
	case 0:
	case 1:
		f, err := os.Open(rest[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	default:
		return fmt.Errorf("unexpected argument: %s", rest[1])
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	limits := tokenstream.Limits{MaxDepth: opts.maxDepth}
	isFrame := bytes.HasPrefix(data, tokenstream.FrameMagic[:])
	if opts.frame && !isFrame {
		return tokenstream.ErrInvalidMagic
	}
	if isFrame {
		data, err = tokenstream.ReadFrame(bytes.NewReader(data), tokenstream.WithFrameLimits(limits))
		if err != nil {
			return fmt.Errorf("read frame: %w", err)
		}
		logger.Debug("frame unwrapped", "payload", len(data))
	}

	elements, err := tokenstream.Inspect(data, tokenstream.WithLimits(limits), tokenstream.WithDecoderLogger(logger))
	if err != nil {
		// Print what was readable before the failure.
		logger.Warn("stream ends in error", "elements", len(elements), "err", err)
	}
	if werr := writeElements(stdout, opts.format, elements); werr != nil {
		return werr
	}
	return err
}

func writeElements(w io.Writer, format string, elements []tokenstream.Element) error {
	if elements == nil {
		elements = []tokenstream.Element{}
	}
	switch format {
	case "json":
		b, err := json.MarshalIndent(elements, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(elements); err != nil {
			return err
		}
		return enc.Close()
	case "cbor":
		mode, err := cbor.CoreDetEncOptions().EncMode()
		if err != nil {
			return err
		}
		return mode.NewEncoder(w).Encode(elements)
	}
	return fmt.Errorf("unknown format %q", format)
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `tsdump prints the element tree of a token stream or frame.

Usage: tsdump [flags] [file]

Flags:
`)
	flagSet.PrintDefaults()
}
