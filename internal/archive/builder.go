package archive

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"

	"poolpack/internal/artifacts"
	"poolpack/internal/catalog"
	"poolpack/internal/fileutil"
	"poolpack/internal/ledger"
	"poolpack/internal/logging"
	"poolpack/internal/metrics"
	"poolpack/internal/progress"
	"poolpack/internal/services"
	"poolpack/internal/tokens"
)

// ErrAborted is returned when a build stops because its client went away or
// its context was cancelled. Nothing is registered for an aborted build.
var ErrAborted = errors.New("archive build aborted")

const (
	// CompressionDeflate compresses entries with DEFLATE.
	CompressionDeflate = "deflate"
	// CompressionStore writes entries uncompressed.
	CompressionStore = "store"

	// DefaultRetrievePath is the route clients use to download artifacts.
	DefaultRetrievePath = "/retrieve"

	peekSize = 64 << 10
)

// Options tunes archive output.
type Options struct {
	DefaultFilename  string
	DefaultExtension string
	Compression      string
	Level            int
	MinFreeBytes     uint64
	MaxItems         int
	RetrievePath     string
}

// Deps are the collaborators a Builder drives.
type Deps struct {
	Registry *artifacts.Registry
	Signer   *tokens.Signer
	Resolver catalog.Resolver
	Fetcher  Fetcher
	Ledger   ledger.Sink
	Metrics  metrics.Recorder
	Logger   *slog.Logger
}

// Result describes a finished build.
type Result struct {
	BatchID      string
	Artifact     artifacts.Artifact
	Token        string
	URL          string
	Archived     int
	Placeholders int
}

// Builder streams batches into archives.
type Builder struct {
	registry *artifacts.Registry
	signer   *tokens.Signer
	resolver catalog.Resolver
	fetcher  Fetcher
	ledger   ledger.Sink
	metrics  metrics.Recorder
	logger   *slog.Logger
	opts     Options
	now      func() time.Time
	commit   func(f *os.File, dst string) error
}

// New validates deps and returns a Builder.
func New(deps Deps, opts Options) (*Builder, error) {
	if deps.Registry == nil {
		return nil, errors.New("archive builder requires a registry")
	}
	if deps.Signer == nil {
		return nil, errors.New("archive builder requires a token signer")
	}
	if deps.Resolver == nil {
		return nil, errors.New("archive builder requires a catalog resolver")
	}
	if deps.Fetcher == nil {
		return nil, errors.New("archive builder requires a fetcher")
	}
	if deps.Ledger == nil {
		deps.Ledger = ledger.Nop{}
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.Noop{}
	}
	opts.Compression = strings.ToLower(strings.TrimSpace(opts.Compression))
	switch opts.Compression {
	case "":
		opts.Compression = CompressionDeflate
	case CompressionDeflate, CompressionStore:
	default:
		return nil, fmt.Errorf("unsupported compression %q", opts.Compression)
	}
	if opts.Level < flate.HuffmanOnly || opts.Level > flate.BestCompression {
		return nil, fmt.Errorf("compression level %d out of range", opts.Level)
	}
	if strings.TrimSpace(opts.DefaultFilename) == "" {
		opts.DefaultFilename = "poolpack"
	}
	if strings.TrimSpace(opts.DefaultExtension) == "" {
		opts.DefaultExtension = "bin"
	}
	if strings.TrimSpace(opts.RetrievePath) == "" {
		opts.RetrievePath = DefaultRetrievePath
	}
	return &Builder{
		registry: deps.Registry,
		signer:   deps.Signer,
		resolver: deps.Resolver,
		fetcher:  deps.Fetcher,
		ledger:   deps.Ledger,
		metrics:  deps.Metrics,
		logger:   logging.NewComponentLogger(deps.Logger, "archive"),
		opts:     opts,
		now:      time.Now,
		commit:   fileutil.CommitFile,
	}, nil
}

// job is the in-memory state of one build.
type job struct {
	batchID   string
	req       Request
	ch        *progress.Channel
	logger    *slog.Logger
	started   time.Time
	total     int
	locator   string
	filename  string
	partPath  string
	finalPath string
	committed bool

	file   *os.File
	digest *fileutil.DigestWriter
	sink   *errWriter
	zw     *zip.Writer
	method uint16
	names  *namer

	delivered    []string
	archived     int
	placeholders int
}

// Validate checks req against the builder's limits without starting a build.
// Transports call it before committing to a streamed response.
func (b *Builder) Validate(req Request) error {
	return req.Validate(b.opts.MaxItems)
}

// Build packages req into an archive, reporting progress to sink. Validation
// failures return before any event is emitted. Every other path ends the
// stream with exactly one complete or error event, unless the sink itself
// failed.
func (b *Builder) Build(ctx context.Context, req Request, sink progress.Sink) (Result, error) {
	if err := req.Validate(b.opts.MaxItems); err != nil {
		return Result{}, err
	}
	batchID := uuid.NewString()
	ctx = services.WithBatchID(ctx, batchID)
	ctx = services.WithConsumerID(ctx, req.ConsumerID)

	j := &job{
		batchID:  batchID,
		req:      req,
		ch:       progress.NewChannel(sink),
		logger:   logging.WithContext(ctx, b.logger),
		started:  b.now(),
		total:    len(req.ResourceIDs),
		locator:  uuid.NewString(),
		filename: downloadName(req.Filename, b.opts.DefaultFilename),
		names:    newNamer(),
	}
	j.partPath = filepath.Join(b.registry.Dir(), j.locator+artifacts.PartialSuffix)
	j.finalPath = filepath.Join(b.registry.Dir(), j.locator+artifacts.ArchiveSuffix)

	b.metrics.BuildStarted()
	j.logger.Info("archive build started",
		logging.Int("items", j.total),
		logging.String("filename", j.filename),
		logging.String(logging.FieldEventType, "build_started"),
	)

	result, err := b.run(ctx, j)
	outcome := metrics.OutcomeComplete
	switch {
	case errors.Is(err, ErrAborted):
		outcome = metrics.OutcomeCancelled
	case err != nil:
		outcome = metrics.OutcomeFailed
	}
	b.metrics.BuildFinished(outcome, b.now().Sub(j.started).Seconds())
	return result, err
}

func (b *Builder) run(ctx context.Context, j *job) (Result, error) {
	if err := b.open(j); err != nil {
		return Result{}, b.fail(j, err)
	}
	if err := j.ch.Emit(progress.Start(j.total)); err != nil {
		return Result{}, b.abort(j, err)
	}

	for i, id := range j.req.ResourceIDs {
		if err := ctx.Err(); err != nil {
			return Result{}, b.abort(j, err)
		}
		label, err := b.addItem(ctx, j, id)
		if err != nil {
			if ctx.Err() != nil {
				return Result{}, b.abort(j, err)
			}
			return Result{}, b.fail(j, err)
		}
		current := i + 1
		elapsed := b.now().Sub(j.started).Milliseconds()
		event := progress.Progress(current, j.total, label, elapsed, progress.EstimateRemaining(elapsed, current, j.total))
		if err := j.ch.Emit(event); err != nil {
			return Result{}, b.abort(j, err)
		}
	}

	if err := j.ch.Emit(progress.Generating()); err != nil {
		return Result{}, b.abort(j, err)
	}
	if err := b.finalize(j); err != nil {
		return Result{}, b.fail(j, err)
	}
	return b.publish(ctx, j)
}

// open allocates the partial file and the zip writer streaming into it.
func (b *Builder) open(j *job) error {
	if err := fileutil.EnsureFreeSpace(b.registry.Dir(), b.opts.MinFreeBytes); err != nil {
		return services.Wrap(services.ErrArchiveWrite, "archive", "preflight", "", err)
	}
	file, err := os.OpenFile(j.partPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return services.Wrap(services.ErrArchiveWrite, "archive", "open", "create archive file", err)
	}
	j.file = file
	j.digest = fileutil.NewDigestWriter(file)
	j.sink = &errWriter{w: j.digest}
	j.zw = zip.NewWriter(j.sink)
	j.method = zip.Store
	if b.opts.Compression == CompressionDeflate {
		level := b.opts.Level
		j.zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
			return flate.NewWriter(out, level)
		})
		j.method = zip.Deflate
	}
	return nil
}

// addItem writes one resource, or its placeholder, and returns the progress
// label. Only archive write failures and cancellation are returned as errors.
func (b *Builder) addItem(ctx context.Context, j *job, id string) (string, error) {
	res, err := b.resolver.Resolve(ctx, id)
	if err != nil {
		if ctx.Err() != nil {
			return "", err
		}
		reason := "resource not found in catalog"
		if !errors.Is(err, catalog.ErrNotFound) {
			reason = "catalog lookup failed: " + err.Error()
		}
		return id, b.writePlaceholder(j, id, catalog.Resource{ID: id}, unresolvedStem(id), reason)
	}

	stem := entryStem(res)
	payload, err := b.fetcher.Fetch(ctx, res.URL)
	if err != nil {
		if ctx.Err() != nil {
			return "", err
		}
		return res.Label(), b.writePlaceholder(j, id, res, stem, err.Error())
	}
	defer payload.Close()

	ext := extensionFor(res.URL, b.opts.DefaultExtension)
	if !payload.Streaming() {
		name := j.names.name(stem, ext)
		w, err := b.createEntry(j, name)
		if err != nil {
			return "", err
		}
		if _, err := w.Write(payload.Data); err != nil {
			return "", writeError("write entry "+name, err)
		}
		b.recordArchived(j, id, int64(len(payload.Data)))
		return res.Label(), nil
	}

	body := bufio.NewReaderSize(payload.Body, peekSize)
	if _, err := body.Peek(1); err != nil && !errors.Is(err, io.EOF) {
		if ctx.Err() != nil {
			return "", err
		}
		return res.Label(), b.writePlaceholder(j, id, res, stem, "read failed: "+err.Error())
	}

	name := j.names.name(stem, ext)
	w, err := b.createEntry(j, name)
	if err != nil {
		return "", err
	}
	n, err := io.Copy(w, body)
	if err == nil && payload.Size >= 0 && n != payload.Size {
		err = fmt.Errorf("received %d of %d bytes", n, payload.Size)
	}
	if err != nil {
		if j.sink.err != nil {
			return "", writeError("write entry "+name, j.sink.err)
		}
		if ctx.Err() != nil {
			return "", err
		}
		return res.Label(), b.markTruncated(j, id, res, name, ext, n, err)
	}
	b.recordArchived(j, id, n)
	return res.Label(), nil
}

// markTruncated follows a partially written entry with a placeholder named
// after it, so the client can tell the binary is incomplete. The item counts
// as a placeholder and is not recorded as delivered.
func (b *Builder) markTruncated(j *job, id string, res catalog.Resource, name, ext string, written int64, cause error) error {
	logging.WarnWithContext(j.logger, "resource stream interrupted", "entry_truncated",
		logging.String(logging.FieldResourceID, id),
		logging.String("entry", name),
		logging.Int64("bytes_written", written),
		logging.Error(cause),
		logging.String(logging.FieldErrorHint, "check the resource origin"),
		logging.String(logging.FieldImpact, "archive entry is incomplete"),
	)
	b.metrics.ItemArchived(metrics.ItemTruncated, written)
	stem := strings.TrimSuffix(name, "."+ext) + truncatedSuffix
	reason := fmt.Sprintf("transfer interrupted after %d bytes, %s is incomplete: %v", written, path.Base(name), cause)
	return b.writePlaceholder(j, id, res, stem, reason)
}

func (b *Builder) recordArchived(j *job, id string, n int64) {
	j.archived++
	j.delivered = append(j.delivered, id)
	b.metrics.ItemArchived(metrics.ItemArchived, n)
}

func (b *Builder) writePlaceholder(j *job, id string, res catalog.Resource, stem, reason string) error {
	logging.WarnWithContext(j.logger, "resource replaced by placeholder", "placeholder_written",
		logging.String(logging.FieldResourceID, id),
		logging.String("reason", reason),
		logging.String(logging.FieldErrorHint, "verify the catalog entry and that its url is reachable"),
		logging.String(logging.FieldImpact, "archive contains a text placeholder instead of the resource"),
	)
	name := j.names.name(stem, placeholderExt)
	w, err := b.createEntry(j, name)
	if err != nil {
		return err
	}
	body := placeholderBody(id, res, reason)
	if _, err := w.Write(body); err != nil {
		return writeError("write placeholder "+name, err)
	}
	j.placeholders++
	b.metrics.ItemArchived(metrics.ItemPlaceholder, int64(len(body)))
	return nil
}

func (b *Builder) createEntry(j *job, name string) (io.Writer, error) {
	w, err := j.zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   j.method,
		Modified: b.now(),
	})
	if err != nil {
		return nil, writeError("create entry "+name, err)
	}
	return w, nil
}

// finalize closes the zip writer and commits the partial file.
func (b *Builder) finalize(j *job) error {
	if err := j.zw.Close(); err != nil {
		return writeError("close archive", err)
	}
	if j.sink.err != nil {
		return writeError("close archive", j.sink.err)
	}
	file := j.file
	j.file = nil
	if err := b.commit(file, j.finalPath); err != nil {
		return writeError("commit archive", err)
	}
	j.committed = true
	return nil
}

// publish registers the artifact, mints its token and completes the stream.
func (b *Builder) publish(ctx context.Context, j *job) (Result, error) {
	artifact := artifacts.Artifact{
		Locator:   j.locator,
		Path:      j.finalPath,
		Filename:  j.filename,
		CreatedAt: b.registry.Now(),
		Size:      j.digest.Size(),
		Digest:    j.digest.Sum(),
		Entries:   j.total,
	}
	handle, err := b.registry.Register(artifact)
	if err != nil {
		return Result{}, b.fail(j, writeError("register artifact", err))
	}
	token, err := b.signer.Issue(handle, j.filename)
	if err != nil {
		b.registry.Remove(handle)
		return Result{}, b.fail(j, writeError("issue token", err))
	}
	retrieveURL := b.opts.RetrievePath + "?token=" + url.QueryEscape(token)
	if err := j.ch.Emit(progress.Complete(token, j.filename, retrieveURL)); err != nil {
		b.registry.Remove(handle)
		return Result{}, b.abort(j, err)
	}

	if len(j.delivered) > 0 {
		usage := ledger.FromResourceIDs(j.delivered, j.req.ConsumerID, j.batchID, b.now())
		if err := b.ledger.Record(ctx, usage); err != nil {
			logging.WarnWithContext(j.logger, "usage ledger write failed", "ledger_write_failed",
				logging.Error(services.Wrap(services.ErrLedgerWrite, "archive", "record usage", "", err)),
				logging.String(logging.FieldImpact, "delivery succeeded but was not recorded"),
			)
		}
	}

	j.logger.Info("archive build complete",
		logging.String(logging.FieldLocator, handle),
		logging.Int64("size_bytes", artifact.Size),
		logging.Int("entries", artifact.Entries),
		logging.Int("placeholders", j.placeholders),
		logging.Duration("duration", b.now().Sub(j.started)),
		logging.String(logging.FieldEventType, "build_complete"),
	)
	return Result{
		BatchID:      j.batchID,
		Artifact:     artifact,
		Token:        token,
		URL:          retrieveURL,
		Archived:     j.archived,
		Placeholders: j.placeholders,
	}, nil
}

// fail reports a fatal error to the client and discards the partial archive.
func (b *Builder) fail(j *job, err error) error {
	b.discard(j)
	_ = j.ch.Emit(progress.Failure(err.Error()))
	logging.ErrorWithContext(j.logger, "archive build failed", "build_failed",
		logging.Error(err),
		logging.Int("processed", j.ch.Processed()),
		logging.String(logging.FieldErrorHint, "check artifact_dir free space and permissions"),
	)
	return err
}

// abort discards the partial archive after the client left or the context
// was cancelled. An error event is attempted in case the sink still works.
func (b *Builder) abort(j *job, cause error) error {
	b.discard(j)
	_ = j.ch.Emit(progress.Failure("build cancelled"))
	j.logger.Info("archive build aborted",
		logging.Int("processed", j.ch.Processed()),
		logging.Error(cause),
		logging.String(logging.FieldEventType, "build_aborted"),
	)
	return fmt.Errorf("%w: %w", ErrAborted, cause)
}

func (b *Builder) discard(j *job) {
	if j.file != nil {
		_ = j.file.Close()
		j.file = nil
	}
	if err := fileutil.RemoveIfExists(j.partPath); err != nil {
		j.logger.Warn("partial archive delete failed", logging.String("path", j.partPath), logging.Error(err))
	}
	if j.committed {
		_ = fileutil.RemoveIfExists(j.finalPath)
	}
}

func writeError(message string, err error) error {
	if errors.Is(err, services.ErrArchiveWrite) {
		return err
	}
	return services.Wrap(services.ErrArchiveWrite, "archive", "write", message, err)
}

// errWriter remembers the first failure of the underlying file so a failed
// copy can be attributed to the archive rather than the resource stream.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	if err != nil {
		e.err = err
	}
	return n, err
}
