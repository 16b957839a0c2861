package importer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"gold_debts/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func memOpener(body []byte, err error) ports.FileOpener {
	return ports.FileOpenerFunc(func(_ context.Context, filePath string) (io.ReadCloser, ports.Meta, error) {
		if err != nil {
			return nil, ports.Meta{}, err
		}
		return io.NopCloser(bytes.NewReader(body)), ports.Meta{Source: "mem", Size: int64(len(body))}, nil
	})
}

type recordingProcessor struct {
	batches [][]map[string]string
	sources []string
	err     error
}

func (p *recordingProcessor) Type() string { return "debts" }

func (p *recordingProcessor) ProcessBatch(ctx context.Context, batch []map[string]string) error {
	if p.err != nil {
		return p.err
	}
	src, _ := ctx.Value(ports.CtxImportSource).(string)
	p.sources = append(p.sources, src)
	p.batches = append(p.batches, batch)
	return nil
}

func TestImport_CSVInBatches(t *testing.T) {
	csv := "Name,Total Amount\nAli,100\n,\nSara,50\nOmar,10\n"
	proc := &recordingProcessor{}
	svc := NewService(memOpener([]byte(csv), nil), map[string]ports.Processor{"debts": proc}, 2, zap.NewNop())

	res, err := svc.Import(context.Background(), Request{Type: "debts", FilePath: "upload.csv"})
	require.NoError(t, err)

	assert.Equal(t, "csv", res.Format)
	assert.Equal(t, 3, res.RowsProcessed)
	assert.Len(t, res.SHA256, 64)
	require.Len(t, proc.batches, 2)
	assert.Len(t, proc.batches[0], 2)
	assert.Equal(t, "Omar", proc.batches[1][0]["Name"])
	assert.Equal(t, []string{"upload.csv", "upload.csv"}, proc.sources)
}

func TestImport_XLSXFirstSheet(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"Name", "Total Amount"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"Ali", 100}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	proc := &recordingProcessor{}
	svc := NewService(memOpener(buf.Bytes(), nil), map[string]ports.Processor{"debts": proc}, 0, nil)

	res, err := svc.Import(context.Background(), Request{Type: "debts", FilePath: "book.xlsx"})
	require.NoError(t, err)
	assert.Equal(t, "xlsx", res.Format)
	assert.Equal(t, 1, res.RowsProcessed)
	assert.Equal(t, "100", proc.batches[0][0]["Total Amount"])
}

func TestImport_UnknownExtensionFallsBackToCSV(t *testing.T) {
	proc := &recordingProcessor{}
	svc := NewService(memOpener([]byte("Name\nAli\n"), nil), map[string]ports.Processor{"debts": proc}, 10, nil)

	res, err := svc.Import(context.Background(), Request{Type: "debts", FilePath: "upload.bin"})
	require.NoError(t, err)
	assert.Equal(t, "csv", res.Format)
	assert.Equal(t, 1, res.RowsProcessed)
}

func TestImport_Errors(t *testing.T) {
	t.Run("unknown type", func(t *testing.T) {
		svc := NewService(memOpener(nil, nil), map[string]ports.Processor{}, 10, nil)
		_, err := svc.Import(context.Background(), Request{Type: "debts", FilePath: "a.csv"})
		require.Error(t, err)
	})

	t.Run("open fails", func(t *testing.T) {
		boom := errors.New("boom")
		svc := NewService(memOpener(nil, boom), map[string]ports.Processor{"debts": &recordingProcessor{}}, 10, nil)
		_, err := svc.Import(context.Background(), Request{Type: "debts", FilePath: "a.csv"})
		require.ErrorIs(t, err, boom)
	})

	t.Run("processor fails", func(t *testing.T) {
		boom := errors.New("boom")
		proc := &recordingProcessor{err: boom}
		svc := NewService(memOpener([]byte("Name\nAli\n"), nil), map[string]ports.Processor{"debts": proc}, 10, nil)
		_, err := svc.Import(context.Background(), Request{Type: "debts", FilePath: "a.csv"})
		require.ErrorIs(t, err, boom)
	})
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, "xlsx", detectFormat("s3://bucket/a.XLSX", ""))
	assert.Equal(t, "csv", detectFormat("https://host/file.csv?x=1", ""))
	assert.Equal(t, "csv", detectFormat("upload", "text/csv; charset=utf-8"))
	assert.Equal(t, "", detectFormat("upload", "application/octet-stream"))
}
