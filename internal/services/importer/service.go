package importer

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/url"
	"path"
	"strings"
	"time"

	"gold_debts/internal/ports"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

type Request struct {
	Type      string
	FilePath  string
	BatchSize int
}

// MaxSourceBytes bounds the size of an imported spreadsheet.
const MaxSourceBytes = 32 << 20

type Result struct {
	Source        string
	FilePath      string
	Format        string
	RowsProcessed int
	SHA256        string
	ContentType   string
	Bucket        string
	Key           string
	SizeBytes     int64
}

type Service struct {
	Opener     ports.FileOpener
	Processors map[string]ports.Processor
	DefaultBS  int
	Logger     *zap.Logger
}

func NewService(opener ports.FileOpener, registry map[string]ports.Processor, defaultBatch int, logger *zap.Logger) *Service {
	if defaultBatch <= 0 {
		defaultBatch = 500
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{Opener: opener, Processors: registry, DefaultBS: defaultBatch, Logger: logger}
}

func (s *Service) Import(ctx context.Context, req Request) (Result, error) {
	t0 := time.Now()
	ctx = context.WithValue(ctx, ports.CtxImportSource, req.FilePath)
	log := s.Logger.With(zap.String("type", req.Type), zap.String("path", req.FilePath))
	log.Info("import started", zap.Int("batch_size", req.BatchSize))

	proc, ok := s.Processors[req.Type]
	if !ok {
		return Result{}, errors.New("no processor for type: " + req.Type)
	}

	rc, meta, err := s.Opener.Open(ctx, req.FilePath)
	if err != nil {
		return Result{}, fmt.Errorf("open source: %w", err)
	}
	defer rc.Close()

	// the format sniffing below may need a second pass, so keep the bytes
	body, err := io.ReadAll(io.LimitReader(rc, MaxSourceBytes+1))
	if err != nil {
		return Result{}, fmt.Errorf("read source: %w", err)
	}
	if len(body) > MaxSourceBytes {
		return Result{}, fmt.Errorf("source exceeds %d bytes", MaxSourceBytes)
	}

	format := detectFormat(req.FilePath, meta.ContentType)
	log.Debug("source opened",
		zap.String("source", meta.Source),
		zap.String("content_type", meta.ContentType),
		zap.Int64("size", meta.Size),
		zap.String("format", format),
	)

	sum := sha256.Sum256(body)

	batchSize := req.BatchSize
	if batchSize <= 0 {
		batchSize = s.DefaultBS
	}

	var total int
	var readErr error

	readXLSX := func() (int, error) { return s.streamXLSXFirstSheet(ctx, bytes.NewReader(body), proc, batchSize) }
	readCSV := func() (int, error) { return s.streamCSV(ctx, bytes.NewReader(body), proc, batchSize) }

	// a parse failure before any row was handed off means the guess was wrong
	retry := func() bool {
		var be *batchError
		return readErr != nil && total == 0 && !errors.As(readErr, &be)
	}

	switch format {
	case "csv":
		total, readErr = readCSV()
		if retry() {
			log.Warn("csv read failed, trying xlsx", zap.Error(readErr))
			if total, readErr = readXLSX(); readErr == nil {
				format = "xlsx"
			}
		}
	default:
		total, readErr = readXLSX()
		if retry() {
			log.Warn("xlsx read failed, trying csv", zap.Error(readErr))
			if total, readErr = readCSV(); readErr == nil {
				format = "csv"
			}
		} else if readErr == nil {
			format = "xlsx"
		}
	}

	if readErr != nil {
		return Result{}, fmt.Errorf("read %s rows: %w", format, readErr)
	}

	digest := hex.EncodeToString(sum[:])
	log.Info("import finished",
		zap.String("format", format),
		zap.Int("rows", total),
		zap.String("sha256", digest),
		zap.Duration("took", time.Since(t0)),
	)

	return Result{
		Source:        meta.Source,
		FilePath:      req.FilePath,
		Format:        format,
		RowsProcessed: total,
		SHA256:        digest,
		ContentType:   meta.ContentType,
		Bucket:        meta.Bucket,
		Key:           meta.Key,
		SizeBytes:     meta.Size,
	}, nil
}

func (s *Service) streamCSV(ctx context.Context, r io.Reader, proc ports.Processor, batchSize int) (int, error) {
	start := time.Now()
	reader := csv.NewReader(bufio.NewReader(r))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return 0, err
	}
	s.Logger.Debug("csv header", zap.Strings("header", header))

	b := newBatcher(ctx, proc, header, batchSize)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			s.Logger.Warn("skipping unreadable csv row", zap.Error(err))
			continue
		}
		if err := b.add(record); err != nil {
			return b.total, err
		}
	}
	if err := b.flush(); err != nil {
		return b.total, err
	}
	s.Logger.Debug("csv done", zap.Int("rows", b.total), zap.Int("batches", b.batches), zap.Duration("took", time.Since(start)))
	return b.total, nil
}

func (s *Service) streamXLSXFirstSheet(ctx context.Context, r io.Reader, proc ports.Processor, batchSize int) (int, error) {
	start := time.Now()
	f, err := excelize.OpenReader(r)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return 0, errors.New("xlsx has no sheets")
	}
	sheet := sheets[0]

	rows, err := f.Rows(sheet)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	if !rows.Next() {
		return 0, rows.Error()
	}
	header, err := rows.Columns()
	if err != nil {
		return 0, err
	}
	s.Logger.Debug("xlsx header", zap.String("sheet", sheet), zap.Strings("header", header))

	b := newBatcher(ctx, proc, header, batchSize)
	for rows.Next() {
		cols, err := rows.Columns()
		if err != nil {
			s.Logger.Warn("skipping unreadable xlsx row", zap.Error(err))
			continue
		}
		if err := b.add(cols); err != nil {
			return b.total, err
		}
	}
	if err := rows.Error(); err != nil {
		return b.total, err
	}
	if err := b.flush(); err != nil {
		return b.total, err
	}
	s.Logger.Debug("xlsx done", zap.Int("rows", b.total), zap.Int("batches", b.batches), zap.Duration("took", time.Since(start)))
	return b.total, nil
}

type batchError struct {
	Batch int
	Err   error
}

func (e *batchError) Error() string { return fmt.Sprintf("batch %d: %v", e.Batch, e.Err) }
func (e *batchError) Unwrap() error { return e.Err }

// batcher groups rows and hands them to the processor once batchSize is reached.
type batcher struct {
	ctx     context.Context
	proc    ports.Processor
	header  []string
	size    int
	rows    []map[string]string
	total   int
	batches int
}

func newBatcher(ctx context.Context, proc ports.Processor, header []string, size int) *batcher {
	hmap := make([]string, len(header))
	copy(hmap, header)
	return &batcher{ctx: ctx, proc: proc, header: hmap, size: size, rows: make([]map[string]string, 0, size)}
}

func (b *batcher) add(record []string) error {
	if blankRow(record) {
		return nil
	}
	b.rows = append(b.rows, toMap(b.header, record))
	if len(b.rows) >= b.size {
		return b.flush()
	}
	return nil
}

func (b *batcher) flush() error {
	if len(b.rows) == 0 {
		return nil
	}
	if err := b.ctx.Err(); err != nil {
		return err
	}
	if err := b.proc.ProcessBatch(b.ctx, b.rows); err != nil {
		return &batchError{Batch: b.batches + 1, Err: err}
	}
	b.total += len(b.rows)
	b.batches++
	b.rows = make([]map[string]string, 0, b.size)
	return nil
}

// ---------- helpers ----------

func blankRow(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func toMap(header []string, row []string) map[string]string {
	m := make(map[string]string, len(header))
	for i, key := range header {
		val := ""
		if i < len(row) {
			val = row[i]
		}
		m[strings.TrimSpace(key)] = strings.TrimSpace(val)
	}
	return m
}

func detectFormat(filePath, contentType string) string {
	p := filePath
	if u, err := url.Parse(filePath); err == nil && u != nil && u.Path != "" {
		p = u.Path
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(p), "."))
	switch ext {
	case "xlsx":
		return "xlsx"
	case "csv":
		return "csv"
	}
	med, _, _ := mime.ParseMediaType(contentType)
	switch med {
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return "xlsx"
	case "text/csv", "application/csv", "text/plain":
		return "csv"
	}
	return ""
}
