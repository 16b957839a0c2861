// Package backup exports the collection as JSON or a spreadsheet report,
// archives exports to S3 and restores from uploaded or archived files.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"gold_debts/internal/models"
	"gold_debts/internal/ports"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// MaxRestoreBytes bounds how much of a restore source is read.
const MaxRestoreBytes = 64 << 20

var ErrArchiveDisabled = errors.New("s3 archive is not configured")

// Collection is the slice of the debt service the backup needs.
type Collection interface {
	List(ctx context.Context) []models.Debt
	Restore(ctx context.Context, payload any) (int, error)
}

type ObjectPutter interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

type Service struct {
	debts  Collection
	s3     ObjectPutter
	bucket string
	opener ports.FileOpener
	logger *zap.Logger
	now    func() time.Time
}

// NewService wires the backup. s3 and opener may be nil when archiving and
// remote restores are not configured.
func NewService(debts Collection, s3 ObjectPutter, bucket string, opener ports.FileOpener, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		debts:  debts,
		s3:     s3,
		bucket: bucket,
		opener: opener,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// FileName is the download name of a JSON export taken at t.
func FileName(t time.Time) string {
	return "debts-backup-" + t.UTC().Format("2006-01-02") + ".json"
}

func SpreadsheetName(t time.Time) string {
	return "debts-report-" + t.UTC().Format("2006-01-02") + ".xlsx"
}

func Encode(debts []models.Debt) ([]byte, error) {
	if debts == nil {
		debts = []models.Debt{}
	}
	return json.MarshalIndent(debts, "", "  ")
}

// ExportJSON returns the normalized collection as indented JSON together with
// its download name.
func (s *Service) ExportJSON(ctx context.Context) ([]byte, string, error) {
	b, err := Encode(s.debts.List(ctx))
	if err != nil {
		return nil, "", fmt.Errorf("encode backup: %w", err)
	}
	return b, FileName(s.now()), nil
}

func (s *Service) ExportXLSX(ctx context.Context) (*bytes.Buffer, string, error) {
	buf, err := Spreadsheet(s.debts.List(ctx))
	if err != nil {
		return nil, "", err
	}
	return buf, SpreadsheetName(s.now()), nil
}

// Archive uploads a JSON export to the backup bucket and returns its s3 path.
func (s *Service) Archive(ctx context.Context) (string, error) {
	if s.s3 == nil || s.bucket == "" {
		return "", ErrArchiveDisabled
	}
	b, name, err := s.ExportJSON(ctx)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("backups/%d-%s", s.now().UnixNano(), name)
	info, err := s.s3.PutObject(ctx, s.bucket, key, bytes.NewReader(b), int64(len(b)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return "", fmt.Errorf("s3 put backup: %w", err)
	}

	path := fmt.Sprintf("s3://%s/%s", s.bucket, key)
	s.logger.Info("backup archived", zap.String("path", path), zap.Int64("size", info.Size))
	return path, nil
}

// RestoreJSON decodes a backup document and replaces the collection with it.
func (s *Service) RestoreJSON(ctx context.Context, r io.Reader) (int, error) {
	var payload any
	dec := json.NewDecoder(io.LimitReader(r, MaxRestoreBytes))
	if err := dec.Decode(&payload); err != nil {
		return 0, models.NewValidationError("body", "invalid JSON: "+err.Error())
	}
	return s.debts.Restore(ctx, payload)
}

// RestoreFrom fetches a backup from an https:// or s3:// location and restores it.
func (s *Service) RestoreFrom(ctx context.Context, filePath string) (int, error) {
	if s.opener == nil {
		return 0, errors.New("no file opener configured")
	}
	rc, meta, err := s.opener.Open(ctx, filePath)
	if err != nil {
		return 0, fmt.Errorf("open backup: %w", err)
	}
	defer rc.Close()

	n, err := s.RestoreJSON(ctx, rc)
	if err != nil {
		return 0, err
	}
	s.logger.Info("backup restored",
		zap.String("source", meta.Source),
		zap.String("path", filePath),
		zap.Int("debts", n),
	)
	return n, nil
}
