package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/doctext/constants"
)

type stubStrategy struct {
	name   string
	handle bool
	res    Result
	err    error
	ran    int
	steps  []int
}

func (s *stubStrategy) Name() string         { return s.name }
func (s *stubStrategy) CanHandle(*File) bool { return s.handle }
func (s *stubStrategy) Execute(_ context.Context, _ *File, progress ProgressFunc, _ string) (Result, error) {
	s.ran++
	for _, p := range s.steps {
		progress(p)
	}
	return s.res, s.err
}

func TestDispatcher_SizeGateRunsBeforeStrategies(t *testing.T) {
	s := &stubStrategy{name: "any", handle: true, res: Result{Text: "ok"}}
	d := NewDispatcher([]Strategy{s})

	for _, name := range []string{"big.pdf", "big.png", "big.exe"} {
		f := &File{Name: name, Size: constants.MaxFileSize + 1}
		_, err := d.Extract(context.Background(), f, nil, "")
		require.Error(t, err)
		assert.Equal(t, KindFileTooLarge, KindOf(err), name)
		assert.Contains(t, err.Error(), "50.0 MB")
	}
	assert.Zero(t, s.ran)
}

func TestDispatcher_UnsupportedType(t *testing.T) {
	d := NewDefault(Config{}, nil, pdfdocConfigForTests(), nil)
	f := NewFile("setup.exe", "", []byte("MZ\x90\x00binary"))

	_, err := d.Extract(context.Background(), f, nil, "")
	require.Error(t, err)
	assert.Equal(t, KindUnsupportedFileType, KindOf(err))
	assert.Contains(t, err.Error(), "application/octet-stream")
	assert.Equal(t, codes.Unimplemented, status.Code(err))
}

func TestDispatcher_UnknownExtensionIsNotSniffed(t *testing.T) {
	d := NewDefault(Config{}, nil, pdfdocConfigForTests(), nil)
	plain := []byte("Dear customer, this file is plain readable ASCII text.\n")

	for _, name := range []string{"installer.exe", "deploy.sh", "payload.json", "page.html"} {
		f := NewFile(name, "", plain)
		assert.Equal(t, "application/octet-stream", f.MIMEType, name)
		assert.Empty(t, d.Candidates(f), name)

		_, err := d.Extract(context.Background(), f, nil, "")
		require.Error(t, err)
		assert.Equal(t, KindUnsupportedFileType, KindOf(err), name)
	}

	// a declared MIME type does not rescue an unknown extension
	assert.Empty(t, d.Candidates(NewFile("installer.exe", "text/plain", plain)))

	// extensionless names are still sniffed
	f := NewFile("README", "", plain)
	assert.Equal(t, "text/plain", f.MIMEType)
	candidates := d.Candidates(f)
	require.Len(t, candidates, 1)
	assert.Equal(t, "text", candidates[0].Name())
}

func TestDispatcher_FallbackCarriesLastError(t *testing.T) {
	first := &stubStrategy{name: "first", handle: true, err: errors.New("first broke")}
	second := &stubStrategy{name: "second", handle: true, err: errors.New("second broke")}
	skipped := &stubStrategy{name: "skipped", handle: false}
	d := NewDispatcher([]Strategy{first, skipped, second})

	_, err := d.Extract(context.Background(), &File{Name: "x"}, nil, "")
	require.Error(t, err)
	assert.Equal(t, KindAllStrategiesFailed, KindOf(err))
	assert.Contains(t, err.Error(), "second broke")
	assert.NotContains(t, err.Error(), "first broke")
	assert.Equal(t, 1, first.ran)
	assert.Equal(t, 1, second.ran)
	assert.Zero(t, skipped.ran)
}

func TestDispatcher_FallbackSucceedsOnSecond(t *testing.T) {
	first := &stubStrategy{name: "first", handle: true, err: noExtractableText("x"), steps: []int{50}}
	second := &stubStrategy{name: "second", handle: true, res: Result{Text: "hello world", Confidence: 100}, steps: []int{10, 60}}
	d := NewDispatcher([]Strategy{first, second})

	var log progressLog
	res, err := d.Extract(context.Background(), &File{Name: "x"}, log.fn, "")
	require.NoError(t, err)
	assert.Equal(t, "hello world", res.Text)
	// each strategy owns its own range; the successful one ends at 100
	assert.Equal(t, []int{50, 10, 60, 100}, log.values)
}

func TestDispatcher_PasswordErrorsAbort(t *testing.T) {
	enc := &stubStrategy{name: "pdf", handle: true, err: errors.Join(ErrEncrypted, errors.New("need pw"))}
	next := &stubStrategy{name: "image", handle: true, res: Result{Text: "should not run"}}
	d := NewDispatcher([]Strategy{enc, next})

	_, err := d.Extract(context.Background(), &File{Name: "a.pdf"}, nil, "")
	assert.Equal(t, KindPasswordRequired, KindOf(err))
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
	assert.ErrorIs(t, err, ErrEncrypted)

	_, err = d.Extract(context.Background(), &File{Name: "a.pdf"}, nil, "wrong")
	assert.Equal(t, KindIncorrectPassword, KindOf(err))
	assert.True(t, IsPasswordError(err))
	assert.Zero(t, next.ran)
}

func TestDispatcher_ProgressMonotonicAndComplete(t *testing.T) {
	s := &stubStrategy{name: "s", handle: true, res: Result{Text: "text"}, steps: []int{-5, 20, 10, 70, 140}}
	d := NewDispatcher([]Strategy{s})

	var log progressLog
	_, err := d.Extract(context.Background(), &File{Name: "x"}, log.fn, "")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 20, 70, 100}, log.values)
}

func TestDispatcher_Cancelled(t *testing.T) {
	s := &stubStrategy{name: "s", handle: true, res: Result{Text: "text"}}
	d := NewDispatcher([]Strategy{s})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Extract(ctx, &File{Name: "x"}, nil, "")
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, s.ran)
}

func TestDispatcher_DefaultOrder(t *testing.T) {
	d := NewDefault(Config{}, nil, pdfdocConfigForTests(), nil)

	names := func(f *File) []string {
		var out []string
		for _, s := range d.Candidates(f) {
			out = append(out, s.Name())
		}
		return out
	}
	assert.Equal(t, []string{"pdf"}, names(NewFile("a.pdf", "", nil)))
	assert.Equal(t, []string{"office"}, names(NewFile("a.docx", "", nil)))
	assert.Equal(t, []string{"spreadsheet"}, names(NewFile("a.xls", "", nil)))
	assert.Equal(t, []string{"text"}, names(NewFile("notes.markdown", "", nil)))
	assert.Equal(t, []string{"image"}, names(NewFile("a.webp", "", nil)))
	// a mislabelled upload is claimed by both families, pdf first
	assert.Equal(t, []string{"pdf", "image"}, names(NewFile("scan.pdf", "image/png", nil)))
}

func TestErrorKindCodes(t *testing.T) {
	cases := map[Kind]codes.Code{
		KindFileTooLarge:        codes.InvalidArgument,
		KindUnsupportedFileType: codes.Unimplemented,
		KindPasswordRequired:    codes.FailedPrecondition,
		KindIncorrectPassword:   codes.PermissionDenied,
		KindNoExtractableText:   codes.NotFound,
		KindAllStrategiesFailed: codes.Internal,
	}
	for k, c := range cases {
		assert.Equal(t, c, status.Code(&Error{Kind: k, Message: "m"}), k)
	}
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}
