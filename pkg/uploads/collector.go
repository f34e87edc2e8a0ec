// Package uploads collects user-selected files for the verification wizard.
//
// A Collector mirrors a drag-and-drop file control: each batch of selected
// files is checked one by one against a size ceiling and an accept
// expression, rejected files produce one human-readable message each, and the
// rest are appended to (or replace) the current selection.
package uploads

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
)

// DefaultMaxSize is the per-file ceiling used when Options.MaxSize is zero.
const DefaultMaxSize int64 = 10 * 1024 * 1024

var (
	ErrFileTooLarge    = errors.New("file exceeds maximum size")
	ErrEmptyFile       = errors.New("file is empty")
	ErrInvalidFileType = errors.New("invalid file type")
	ErrTooManyFiles    = errors.New("maximum number of files reached")
	ErrNoSuchFile      = errors.New("no file at index")
	ErrServerBusy      = errors.New("upload memory budget exhausted")
)

// Options configures a Collector.
type Options struct {
	// Accept is a file input accept expression, e.g. ".pdf,.jpg" or "image/*".
	// Empty accepts anything.
	Accept   string
	Multiple bool
	MaxSize  int64
	// MaxFiles caps the selection size; zero means no cap.
	MaxFiles int
	// Budget, when set, is charged for every accepted file.
	Budget *Budget
}

func (o Options) maxSize() int64 {
	if o.MaxSize <= 0 {
		return DefaultMaxSize
	}
	return o.MaxSize
}

// Hint describes what the control accepts, e.g. "Images and PDFs up to 10 MiB".
func (o Options) Hint() string {
	var kinds []string
	if strings.Contains(o.Accept, "image") || strings.Contains(o.Accept, ".jpg") || strings.Contains(o.Accept, ".png") {
		kinds = append(kinds, "Images")
	}
	if strings.Contains(o.Accept, ".pdf") {
		kinds = append(kinds, "PDFs")
	}
	if len(kinds) == 0 {
		kinds = append(kinds, "Files")
	}
	return fmt.Sprintf("%s up to %s", strings.Join(kinds, " and "), humanize.IBytes(uint64(o.maxSize())))
}

// File is an accepted upload held in memory for the lifetime of a session.
type File struct {
	Name        string
	Size        int64
	ContentType string
	Data        []byte
}

// SizeKB is the size rounded to the nearest kilobyte.
func (f File) SizeKB() int64 {
	return (f.Size + 512) / 1024
}

// IsImage reports whether the sniffed content is an image.
func (f File) IsImage() bool {
	return strings.HasPrefix(f.ContentType, "image/")
}

// Selection is a file picked by the user but not yet checked.
type Selection struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

// FromHeaders adapts multipart file headers to selections.
func FromHeaders(headers []*multipart.FileHeader) []Selection {
	out := make([]Selection, 0, len(headers))
	for _, h := range headers {
		if h == nil {
			continue
		}
		fh := h
		out = append(out, Selection{
			Name: fh.Filename,
			Size: fh.Size,
			Open: func() (io.ReadCloser, error) { return fh.Open() },
		})
	}
	return out
}

// Collector accumulates accepted files.
type Collector struct {
	opts  Options
	rules []acceptRule
	files []File
}

// NewCollector creates an empty collector.
func NewCollector(opts Options) *Collector {
	return &Collector{
		opts:  opts,
		rules: parseAccept(opts.Accept),
	}
}

// Options returns the collector configuration.
func (c *Collector) Options() Options {
	return c.opts
}

// Add checks each selection and keeps the ones that pass. It returns one
// message per rejected file; a rejection never affects the rest of the batch.
func (c *Collector) Add(selections ...Selection) []string {
	var accepted []File
	var rejections []string

	for _, sel := range selections {
		file, err := c.check(sel)
		if err != nil {
			rejections = append(rejections, c.rejectionMessage(sel.Name, err))
			continue
		}
		accepted = append(accepted, file)
	}

	if len(accepted) == 0 {
		return rejections
	}
	if !c.opts.Multiple {
		c.Reset()
		accepted = accepted[len(accepted)-1:]
	}
	for _, f := range accepted {
		if c.opts.MaxFiles > 0 && len(c.files) >= c.opts.MaxFiles {
			rejections = append(rejections, c.rejectionMessage(f.Name, ErrTooManyFiles))
			continue
		}
		if !c.opts.Budget.Reserve(f.Size) {
			rejections = append(rejections, c.rejectionMessage(f.Name, ErrServerBusy))
			continue
		}
		c.files = append(c.files, f)
	}
	return rejections
}

func (c *Collector) check(sel Selection) (File, error) {
	limit := c.opts.maxSize()
	if sel.Size > limit {
		return File{}, ErrFileTooLarge
	}
	if sel.Open == nil {
		return File{}, ErrEmptyFile
	}

	rc, err := sel.Open()
	if err != nil {
		return File{}, fmt.Errorf("open %s: %w", sel.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return File{}, fmt.Errorf("read %s: %w", sel.Name, err)
	}
	if int64(len(data)) > limit {
		return File{}, ErrFileTooLarge
	}
	if len(data) == 0 {
		return File{}, ErrEmptyFile
	}

	detected := mimetype.Detect(data)
	if !c.accepts(detected) {
		return File{}, ErrInvalidFileType
	}

	return File{
		Name:        sel.Name,
		Size:        int64(len(data)),
		ContentType: baseType(detected.String()),
		Data:        data,
	}, nil
}

func (c *Collector) rejectionMessage(name string, err error) string {
	switch {
	case errors.Is(err, ErrFileTooLarge):
		return fmt.Sprintf("File %s is too large. Maximum size is %s.", name, humanize.IBytes(uint64(c.opts.maxSize())))
	case errors.Is(err, ErrEmptyFile):
		return fmt.Sprintf("File %s is empty.", name)
	case errors.Is(err, ErrInvalidFileType):
		return fmt.Sprintf("File %s is not a supported file type.", name)
	case errors.Is(err, ErrTooManyFiles):
		return fmt.Sprintf("File %s was not added. At most %d files are allowed.", name, c.opts.MaxFiles)
	case errors.Is(err, ErrServerBusy):
		return fmt.Sprintf("File %s was not added. We're handling a lot of uploads right now, please try again in a few minutes.", name)
	}
	return fmt.Sprintf("File %s could not be read.", name)
}

// Remove drops the file at index.
func (c *Collector) Remove(index int) error {
	if index < 0 || index >= len(c.files) {
		return fmt.Errorf("%w %d", ErrNoSuchFile, index)
	}
	c.opts.Budget.Release(c.files[index].Size)
	c.files = append(c.files[:index:index], c.files[index+1:]...)
	return nil
}

// Reset drops every file and returns their bytes to the budget.
func (c *Collector) Reset() {
	for _, f := range c.files {
		c.opts.Budget.Release(f.Size)
	}
	c.files = nil
}

// Files returns a copy of the current selection.
func (c *Collector) Files() []File {
	out := make([]File, len(c.files))
	copy(out, c.files)
	return out
}

// Len is the number of accepted files.
func (c *Collector) Len() int {
	return len(c.files)
}

func baseType(contentType string) string {
	t, _, _ := strings.Cut(contentType, ";")
	return strings.TrimSpace(t)
}
