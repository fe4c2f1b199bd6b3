package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"image/png"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/bodgit/tamaed"
	"github.com/urfave/cli/v2"
)

const defaultDB = "tamaed.db"

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:  "version, V",
		Usage: "print the version",
	}
}

func newLogger(c *cli.Context) *log.Logger {
	logger := log.New(io.Discard, "", 0)
	if c.Bool("verbose") {
		logger.SetOutput(os.Stderr)
	}
	return logger
}

func load(c *cli.Context, t *tamaed.Tamaed) (*tamaed.Firmware, error) {
	if c.NArg() < 1 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}
	return t.Load(c.Args().First())
}

func writePNG(file string, fn func(io.Writer) error) error {
	f, err := os.Create(file)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

var pageFlags = []cli.Flag{
	&cli.IntFlag{
		Name:  "offset",
		Value: 0,
		Usage: "start of the page",
	},
	&cli.IntFlag{
		Name:  "page-size",
		Value: 256,
		Usage: "bytes per page, rounded up to whole rows",
	},
}

func main() {
	app := cli.NewApp()

	app.Name = "tamaed"
	app.Usage = "Tamagotchi On firmware image explorer"
	app.Version = "1.0.0"

	cwd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "db",
			EnvVars: []string{"TAMAED_DB"},
			Value:   filepath.Join(cwd, defaultDB),
			Usage:   "path to database",
		},
		&cli.BoolFlag{
			Name:  "verbose, v",
			Usage: "increase verbosity",
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:      "scan",
			Usage:     "List the resources found in a firmware image",
			ArgsUsage: "FILE",
			Action: func(c *cli.Context) error {
				t := tamaed.New(nil, newLogger(c))
				fw, err := load(c, t)
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				defer fw.Close()

				for _, e := range fw.Map.Entries() {
					switch e := e.(type) {
					case *tamaed.Image:
						fmt.Printf("%-6s %8d %6d %3dx%-3d %3d\n", e.Kind(), e.Offset(), e.Size(), e.Width(), e.Height(), e.Colors())
					default:
						fmt.Printf("%-6s %8d %6d\n", e.Kind(), e.Offset(), e.Size())
					}
				}

				return nil
			},
		},
		{
			Name:      "extract",
			Usage:     "Write every decodable image to a directory",
			ArgsUsage: "FILE DIRECTORY",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "scale",
					Value: 1,
					Usage: "enlarge images by this factor",
				},
				&cli.StringFlag{
					Name:  "format",
					Value: tamaed.FormatPNG,
					Usage: "output format, png or bmp",
				},
			},
			Action: func(c *cli.Context) error {
				if c.NArg() < 2 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				t := tamaed.New(nil, newLogger(c))
				fw, err := load(c, t)
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				defer fw.Close()

				opts := tamaed.ExtractOptions{
					Format: c.String("format"),
					Scale:  c.Int("scale"),
				}
				if err := t.Extract(context.Background(), fw, c.Args().Get(1), opts); err != nil {
					return cli.NewExitError(err, 1)
				}

				return nil
			},
		},
		{
			Name:      "show",
			Usage:     "Write the image at an offset as a PNG",
			ArgsUsage: "FILE OFFSET OUTPUT",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "scale",
					Value: 1,
					Usage: "enlarge the image by this factor",
				},
			},
			Action: func(c *cli.Context) error {
				if c.NArg() < 3 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				var offset int
				if _, err := fmt.Sscan(c.Args().Get(1), &offset); err != nil {
					return cli.NewExitError(fmt.Errorf("invalid offset: %w", err), 1)
				}

				t := tamaed.New(nil, newLogger(c))
				fw, err := load(c, t)
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				defer fw.Close()

				i, ok := fw.Map.At(offset).(*tamaed.Image)
				if !ok || i.Offset() != offset {
					return cli.NewExitError(fmt.Errorf("no image at offset %d", offset), 1)
				}

				m, err := i.Scaled(c.Int("scale"))
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				if err := writePNG(c.Args().Get(2), func(w io.Writer) error { return png.Encode(w, m) }); err != nil {
					return cli.NewExitError(err, 1)
				}

				return nil
			},
		},
		{
			Name:      "map",
			Usage:     "Draw an overview of the firmware with a page highlighted",
			ArgsUsage: "FILE OUTPUT",
			Flags: append([]cli.Flag{
				&cli.IntFlag{
					Name:  "chunk-size",
					Value: tamaed.DefaultChunkSize,
					Usage: "bytes per column",
				},
				&cli.IntFlag{
					Name:  "bytes-per-pixel",
					Value: tamaed.DefaultBytesPerPixel,
					Usage: "bytes per cell",
				},
			}, pageFlags...),
			Action: func(c *cli.Context) error {
				if c.NArg() < 2 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				t := tamaed.New(nil, newLogger(c))
				fw, err := load(c, t)
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				defer fw.Close()

				page := fw.Page(c.Int("offset"), c.Int("page-size"))
				m, err := fw.Project(page, c.Int("chunk-size"), c.Int("bytes-per-pixel"))
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				if err := writePNG(c.Args().Get(1), func(w io.Writer) error { return png.Encode(w, m) }); err != nil {
					return cli.NewExitError(err, 1)
				}

				return nil
			},
		},
		{
			Name:      "dump",
			Usage:     "Print a page of the firmware as hex",
			ArgsUsage: "FILE",
			Flags:     pageFlags,
			Action: func(c *cli.Context) error {
				t := tamaed.New(nil, newLogger(c))
				fw, err := load(c, t)
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				defer fw.Close()

				page := fw.Page(c.Int("offset"), c.Int("page-size"))
				for _, e := range fw.Map.Intersect(page.Start, page.End) {
					fmt.Printf("# %s at %d, %d bytes\n", e.Kind(), e.Offset(), e.Size())
				}

				d := hex.Dumper(os.Stdout)
				if _, err := d.Write(fw.Data[page.Start:page.End]); err != nil {
					return cli.NewExitError(err, 1)
				}
				if err := d.Close(); err != nil {
					return cli.NewExitError(err, 1)
				}

				return nil
			},
		},
		{
			Name:      "import",
			Usage:     "Store a firmware image and its resources in the database",
			ArgsUsage: "FILE...",
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				db, err := tamaed.NewCatalog(c.String("db"))
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				defer db.Close()

				t := tamaed.New(db, newLogger(c))
				for _, file := range c.Args().Slice() {
					fw, err := t.Load(file)
					if err != nil {
						return cli.NewExitError(err, 1)
					}
					err = t.Import(fw)
					fw.Close()
					if err != nil {
						return cli.NewExitError(err, 1)
					}
				}

				return nil
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
