package tamaed

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/image/bmp"
)

const defaultWorkers = 4

// Formats supported when extracting images
const (
	FormatPNG = "png"
	FormatBMP = "bmp"
)

// ExtractOptions controls how images are written by Extract.
type ExtractOptions struct {
	// Format is FormatPNG or FormatBMP, FormatPNG if empty
	Format string
	// Scale enlarges each image by an integer factor
	Scale int
	// Workers is the number of images written concurrently
	Workers int
}

func encoderFor(format string) (func(io.Writer, image.Image) error, error) {
	switch format {
	case "", FormatPNG:
		return png.Encode, nil
	case FormatBMP:
		return bmp.Encode, nil
	default:
		return nil, fmt.Errorf("unsupported format \"%s\"", format)
	}
}

// Filename returns the name used when extracting the image at offset.
func Filename(offset int, format string) string {
	if format == "" {
		format = FormatPNG
	}
	return fmt.Sprintf("%08x.%s", offset, format)
}

func (t *Tamaed) findImages(ctx context.Context, m *Map) (<-chan *Image, <-chan error, error) {
	out := make(chan *Image)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		for _, i := range m.Images() {
			select {
			case out <- i:
			case <-ctx.Done():
				errc <- errors.New("extract cancelled")
				return
			}
		}
	}()
	return out, errc, nil
}

func writeImage(file string, m image.Image, encode func(io.Writer, image.Image) error) error {
	f, err := os.Create(file)
	if err != nil {
		return err
	}
	if err := encode(f, m); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (t *Tamaed) imageWorker(ctx context.Context, in <-chan *Image, dir string, opts ExtractOptions) (<-chan error, error) {
	encode, err := encoderFor(opts.Format)
	if err != nil {
		return nil, err
	}
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		for i := range in {
			m, err := i.Scaled(opts.Scale)
			if err != nil {
				// Most likely a false positive from the scan
				t.logger.Printf("Skipping image at offset %d: %v\n", i.Offset(), err)
				continue
			}

			file := filepath.Join(dir, Filename(i.Offset(), opts.Format))
			if err := writeImage(file, m, encode); err != nil {
				errc <- err
				return
			}
		}
	}()
	return errc, nil
}

func waitForPipeline(errs ...<-chan error) error {
	errc := mergeErrors(errs...)
	for err := range errc {
		if err != nil {
			return err
		}
	}
	return nil
}

func mergeErrors(cs ...<-chan error) <-chan error {
	var wg sync.WaitGroup
	out := make(chan error, len(cs))
	wg.Add(len(cs))
	for _, c := range cs {
		go func(c <-chan error) {
			for n := range c {
				out <- n
			}
			wg.Done()
		}(c)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// Extract writes every image entry of fw that decodes cleanly to dir, which
// is created if necessary. Entries that fail to decode are logged and
// skipped.
func (t *Tamaed) Extract(ctx context.Context, fw *Firmware, dir string, opts ExtractOptions) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	var errcList []<-chan error

	images, errc, err := t.findImages(ctx, fw.Map)
	if err != nil {
		return err
	}
	errcList = append(errcList, errc)

	workers := opts.Workers
	if workers < 1 {
		workers = defaultWorkers
	}
	for i := 0; i < workers; i++ {
		errc, err := t.imageWorker(ctx, images, dir, opts)
		if err != nil {
			return err
		}
		errcList = append(errcList, errc)
	}

	return waitForPipeline(errcList...)
}
