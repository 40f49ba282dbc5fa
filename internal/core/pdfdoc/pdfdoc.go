// Package pdfdoc reads PDF documents: page count, per-page text layer and
// page rasters rendered through pdftoppm. Encrypted documents the pdf package
// cannot decrypt (AES-256, non-standard handlers) are read with pdfinfo and
// pdftotext instead.
package pdfdoc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/ledongthuc/pdf"

	"github.com/joseph-ayodele/doctext/internal/core/runner"
)

// ErrEncrypted is returned by Open when the document needs a password that was
// not supplied or was rejected.
var ErrEncrypted = errors.New("pdf: document is encrypted")

// Config names the poppler binaries. Passwords reach them as -upw/-opw
// arguments, so they are visible in the process list of the host while a
// command runs; runner.Exec keeps them out of the logs.
type Config struct {
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Pdftotext string // if empty -> "pdftotext"
	Pdfinfo   string // if empty -> "pdfinfo"
	Runner    runner.Runner
	Logger    *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.Pdftoppm == "" {
		c.Pdftoppm = "pdftoppm"
	}
	if c.Pdftotext == "" {
		c.Pdftotext = "pdftotext"
	}
	if c.Pdfinfo == "" {
		c.Pdfinfo = "pdfinfo"
	}
	if c.Runner == nil {
		c.Runner = runner.Exec{}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Document is an open PDF. Text is safe to call from several goroutines;
// Close must be called once the document is no longer needed.
type Document struct {
	cfg      Config
	reader   *pdf.Reader // nil when poppler reads the document
	pages    int
	data     []byte
	password string
	pwFlag   string

	mu     sync.Mutex // guards reader
	fileMu sync.Mutex // guards tmpDir
	tmpDir string
}

// Open parses data, decrypting it with password when the document is encrypted.
func Open(ctx context.Context, data []byte, password string, cfg Config) (*Document, error) {
	cfg = cfg.withDefaults()

	r, err := newReader(data, password)
	if err == nil {
		return &Document{cfg: cfg, reader: r, data: data, password: password, pwFlag: "-upw"}, nil
	}
	if errors.Is(err, pdf.ErrInvalidPassword) {
		return nil, fmt.Errorf("%w: %v", ErrEncrypted, err)
	}
	handler, encErr := findEncrypt(data)
	if handler == nil && encErr == nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	cfg.Logger.Debug("pdf encryption not readable in process, using poppler", "reason", err)
	return openWithPoppler(ctx, data, password, cfg, handler)
}

func newReader(data []byte, password string) (r *pdf.Reader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r, err = nil, fmt.Errorf("malformed pdf: %v", rec)
		}
	}()
	return pdf.NewReaderEncrypted(bytes.NewReader(data), int64(len(data)), passwordOnce(password))
}

// openWithPoppler checks AES-256 passwords locally and leaves every other
// scheme to pdfinfo. handler is nil when the /Encrypt entry could not be parsed.
func openWithPoppler(ctx context.Context, data []byte, password string, cfg Config, handler *securityHandler) (*Document, error) {
	d := &Document{cfg: cfg, data: data, password: password, pwFlag: "-upw"}
	if handler != nil && handler.aes256() {
		flag, ok := handler.authenticate(password)
		if !ok {
			return nil, encryptedError(password)
		}
		d.pwFlag = flag
	}

	n, errb, err := d.pageCount(ctx)
	if err != nil {
		_ = d.Close()
		if password == "" || bytes.Contains(errb, []byte("Incorrect password")) {
			return nil, fmt.Errorf("%w: %v", encryptedError(password), err)
		}
		return nil, fmt.Errorf("open encrypted pdf: %w", err)
	}
	d.pages = n
	return d, nil
}

func encryptedError(password string) error {
	if password == "" {
		return fmt.Errorf("%w: password required", ErrEncrypted)
	}
	return fmt.Errorf("%w: incorrect password", ErrEncrypted)
}

func (d *Document) passwordArgs() []string {
	if d.password == "" {
		return nil
	}
	return []string{d.pwFlag, d.password}
}

// pageCount runs pdfinfo [-upw pw] <in.pdf> and reads its "Pages:" line.
func (d *Document) pageCount(ctx context.Context) (int, []byte, error) {
	in, err := d.sourceFile()
	if err != nil {
		return 0, nil, err
	}
	args := append(d.passwordArgs(), in)
	out, errb, err := d.cfg.Runner.Run(ctx, d.cfg.Pdfinfo, d.cfg.Logger, args...)
	if err != nil {
		return 0, errb, fmt.Errorf("pdfinfo: %w: %s", err, runner.Truncate(string(errb), 512))
	}
	for _, line := range strings.Split(string(out), "\n") {
		if v, ok := strings.CutPrefix(line, "Pages:"); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return 0, errb, fmt.Errorf("pdfinfo: bad page count %q", v)
			}
			return n, errb, nil
		}
	}
	return 0, errb, errors.New("pdfinfo: no page count in output")
}

// passwordOnce hands the reader the caller's password a single time; the
// reader keeps asking until it gets an empty string.
func passwordOnce(password string) func() string {
	used := false
	return func() string {
		if used {
			return ""
		}
		used = true
		return password
	}
}

func (d *Document) Count() int {
	if d.reader == nil {
		return d.pages
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reader.NumPage()
}

// Text returns the embedded text layer of a 1-indexed page.
func (d *Document) Text(ctx context.Context, page int) (text string, err error) {
	if d.reader == nil {
		return d.popplerText(ctx, page)
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("page %d: malformed content: %v", page, r)
		}
	}()

	if page < 1 || page > d.reader.NumPage() {
		return "", fmt.Errorf("page %d out of range", page)
	}
	p := d.reader.Page(page)
	if p.V.IsNull() {
		return "", fmt.Errorf("page %d: missing page object", page)
	}
	return p.GetPlainText(nil)
}

// popplerText runs pdftotext -f N -l N -layout -enc UTF-8 -eol unix [-upw pw] <in.pdf> -
func (d *Document) popplerText(ctx context.Context, page int) (string, error) {
	if page < 1 || page > d.pages {
		return "", fmt.Errorf("page %d out of range", page)
	}
	in, err := d.sourceFile()
	if err != nil {
		return "", err
	}
	p := strconv.Itoa(page)
	args := []string{"-f", p, "-l", p, "-layout", "-enc", "UTF-8", "-eol", "unix"}
	args = append(args, d.passwordArgs()...)
	args = append(args, in, "-")
	out, errb, err := d.cfg.Runner.Run(ctx, d.cfg.Pdftotext, d.cfg.Logger, args...)
	if err != nil {
		return "", fmt.Errorf("page %d: pdftotext: %w: %s", page, err, runner.Truncate(string(errb), 512))
	}
	return string(out), nil
}

// Render rasterizes a 1-indexed page to PNG at the given DPI.
func (d *Document) Render(ctx context.Context, page, dpi int) ([]byte, error) {
	if dpi <= 0 {
		dpi = 150
	}
	in, err := d.sourceFile()
	if err != nil {
		return nil, err
	}
	prefix := filepath.Join(filepath.Dir(in), "page-"+strconv.Itoa(page)+"-"+strconv.Itoa(dpi))

	// pdftoppm -png -r <dpi> -f N -l N -singlefile [-upw|-opw pw] <in.pdf> <prefix>
	args := []string{"-png", "-r", strconv.Itoa(dpi), "-f", strconv.Itoa(page), "-l", strconv.Itoa(page), "-singlefile"}
	args = append(args, d.passwordArgs()...)
	args = append(args, in, prefix)

	_, errb, err := d.cfg.Runner.Run(ctx, d.cfg.Pdftoppm, d.cfg.Logger, args...)
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w: %s", page, err, runner.Truncate(string(errb), 512))
	}
	out := prefix + ".png"
	img, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", page, err)
	}
	_ = os.Remove(out)
	return img, nil
}

// sourceFile writes the document to a private temp dir on first use.
func (d *Document) sourceFile() (string, error) {
	d.fileMu.Lock()
	defer d.fileMu.Unlock()
	if d.tmpDir != "" {
		return filepath.Join(d.tmpDir, "in.pdf"), nil
	}
	dir, err := os.MkdirTemp("", "doctext-pdf-*")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, "in.pdf")
	if err := os.WriteFile(path, d.data, 0o600); err != nil {
		_ = os.RemoveAll(dir)
		return "", err
	}
	d.tmpDir = dir
	return path, nil
}

func (d *Document) Close() error {
	d.fileMu.Lock()
	defer d.fileMu.Unlock()
	if d.tmpDir == "" {
		return nil
	}
	err := os.RemoveAll(d.tmpDir)
	if err != nil {
		d.cfg.Logger.Warn("failed to remove pdf temp dir", "dir", d.tmpDir, "error", err)
	}
	d.tmpDir = ""
	return err
}
