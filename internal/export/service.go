package export

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/text-extractor/constants"
	"github.com/joseph-ayodele/text-extractor/internal/cache"
)

const sheet = "Cache"

// Row is one cache record as it appears in the inventory.
type Row struct {
	Path      string
	Key       string
	Class     string
	Status    string // ok | failed
	Languages string
	Chars     int
	WrittenAt time.Time
	Failure   string
	Preview   string
}

// Service produces XLSX bytes describing what the text cache holds.
type Service struct {
	store  *cache.Store
	logger *slog.Logger
}

func NewService(store *cache.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// Rows lists every cache record, sorted by path.
func (s *Service) Rows(ctx context.Context) ([]Row, error) {
	var rows []Row
	err := s.store.List(ctx, func(key string, e cache.Entry) error {
		r := Row{
			Path:      e.SourcePath,
			Key:       key,
			Class:     constants.FormatOf(e.SourcePath),
			Status:    "ok",
			Languages: strings.Join(e.Languages, "+"),
			Chars:     len(e.Text),
			WrittenAt: e.WrittenAt,
			Failure:   e.Failure,
			Preview:   truncate(e.Text, 140),
		}
		if e.Poisoned() {
			r.Status = "failed"
		}
		rows = append(rows, r)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list cache: %w", err)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Path < rows[j].Path })
	return rows, nil
}

// ExportCacheXLSX returns a workbook with one row per cache record.
func (s *Service) ExportCacheXLSX(ctx context.Context) ([]byte, error) {
	start := time.Now()

	rows, err := s.Rows(ctx)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	headers := []string{
		"Source Path",
		"Class",
		"Status",
		"Languages",
		"Characters",
		"Written At",
		"Failure",
		"Preview",
		"Cache Key",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, r := range rows {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, r.Path)
		write(2, r.Class)
		write(3, r.Status)
		write(4, r.Languages)
		write(5, r.Chars)
		if r.WrittenAt.IsZero() {
			write(6, "")
		} else {
			write(6, r.WrittenAt.UTC().Format(time.RFC3339))
		}
		write(7, r.Failure)
		write(8, r.Preview)
		write(9, r.Key)
	}

	_ = f.SetColWidth(sheet, "A", "A", 60) // path
	_ = f.SetColWidth(sheet, "B", "D", 12)
	_ = f.SetColWidth(sheet, "E", "E", 12)
	_ = f.SetColWidth(sheet, "F", "F", 22)
	_ = f.SetColWidth(sheet, "G", "H", 48)
	_ = f.SetColWidth(sheet, "I", "I", 66) // sha-256 hex
	_ = f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(rows),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
