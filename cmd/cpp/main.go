package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/dustin/go-humanize"
	jsoniter "github.com/json-iterator/go"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/fwessels/cpp/internal/config"
	"github.com/fwessels/cpp/internal/preprocessor"
	"github.com/fwessels/cpp/internal/token"
)

const stdinName = "-"

func newApp() *cli.App {
	return &cli.App{
		Name:      "cpp",
		Usage:     "Preprocess C and C++ source files",
		ArgsUsage: "[file...]",
		Description: "Each file is preprocessed on its own, starting from the macros given by\n" +
			"--config, -D and -U. Standard input is read when no file or \"-\" is given.",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "define",
				Aliases: []string{"D"},
				Usage:   "Predefine `NAME[=VALUE]`, or NAME(params)=VALUE for a function-like macro",
			},
			&cli.StringSliceFlag{
				Name:    "undef",
				Aliases: []string{"U"},
				Usage:   "Remove the predefined macro `NAME`",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load predefined macros and settings from an ini `FILE`",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write output to `FILE` instead of stdout",
			},
			&cli.BoolFlag{
				Name:  "tokens",
				Usage: "Write one JSON object per output token instead of text",
			},
			&cli.BoolFlag{
				Name:  "keep-unknown",
				Usage: "Pass unrecognized directives through to the output",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Log every executed directive",
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "Only log errors",
			},
		},
		Action:                    runPreprocess,
		DisableSliceFlagSeparator: true,
	}
}

func newLogger(c *cli.Context) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(c.App.ErrWriter)
	switch {
	case c.Bool("verbose"):
		log.SetLevel(logrus.DebugLevel)
	case c.Bool("quiet"):
		log.SetLevel(logrus.ErrorLevel)
	default:
		log.SetLevel(logrus.WarnLevel)
	}
	return log
}

// setup builds the preprocessor every input starts from.
func setup(c *cli.Context, log *logrus.Logger) (*preprocessor.Preprocessor, error) {
	p := preprocessor.New()
	p.Logger = log
	p.KeepUnknown = c.Bool("keep-unknown")
	if path := c.String("config"); path != "" {
		conf, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		if err := conf.Apply(p); err != nil {
			return nil, errors.Wrapf(err, "config %s", path)
		}
	}
	for _, def := range c.StringSlice("define") {
		if err := p.Define(def); err != nil {
			return nil, err
		}
	}
	for _, name := range c.StringSlice("undef") {
		if err := p.Undef(name); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func readStdin(r io.Reader) ([]byte, error) {
	if f, ok := r.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return nil, errors.New("refusing to read source from a terminal; pass a file name or pipe the input")
	}
	src, err := io.ReadAll(r)
	return src, errors.Wrap(err, "read stdin")
}

func runPreprocess(c *cli.Context) error {
	log := newLogger(c)
	base, err := setup(c, log)
	if err != nil {
		return err
	}

	inputs := c.Args().Slice()
	if len(inputs) == 0 {
		inputs = []string{stdinName}
	}
	var stdin []byte
	for _, name := range inputs {
		if name == stdinName {
			if stdin, err = readStdin(c.App.Reader); err != nil {
				return err
			}
			break
		}
	}

	results := make([][]byte, len(inputs))
	g, ctx := errgroup.WithContext(c.Context)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, name := range inputs {
		i, name := i, name
		p := base.Clone()
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			src := stdin
			if name != stdinName {
				var err error
				if src, err = os.ReadFile(name); err != nil {
					return errors.Wrapf(err, "read %s", name)
				}
			}
			var buf bytes.Buffer
			if err := preprocess(p, name, src, &buf, c.Bool("tokens")); err != nil {
				return err
			}
			results[i] = buf.Bytes()
			log.WithField("file", name).Infof("read %s, wrote %s",
				humanize.Bytes(uint64(len(src))), humanize.Bytes(uint64(buf.Len())))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	path := c.String("output")
	if path == "" {
		return writeResults(c.App.Writer, results)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create output")
	}
	return writeAndClose(f, results)
}

func writeResults(w io.Writer, results [][]byte) error {
	for _, res := range results {
		if _, err := w.Write(res); err != nil {
			return errors.Wrap(err, "write output")
		}
	}
	return nil
}

// writeAndClose writes results to w and closes it, returning the first
// error.
func writeAndClose(w io.WriteCloser, results [][]byte) error {
	if err := writeResults(w, results); err != nil {
		w.Close()
		return err
	}
	return errors.Wrap(w.Close(), "close output")
}

func preprocess(p *preprocessor.Preprocessor, name string, src []byte, w io.Writer, tokens bool) error {
	if !tokens {
		return p.Process(name, bytes.NewReader(src), w)
	}
	json := jsoniter.ConfigCompatibleWithStandardLibrary
	enc := json.NewEncoder(w)
	s := p.Stream(name, string(src))
	for {
		tok, err := s.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := enc.Encode(tokenRecord{File: name, Token: tok}); err != nil {
			return err
		}
	}
}

// tokenRecord is one line of the --tokens output.
type tokenRecord struct {
	File string `json:"file"`
	token.Token
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "cpp:", err)
		os.Exit(1)
	}
}
