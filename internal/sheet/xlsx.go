package sheet

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// NewXLSXStore returns a Store backed by the workbook at path.
func NewXLSXStore(path, sheet string, locker Locker) *Store {
	return newStore(&xlsxBackend{path: path, sheet: sheet}, locker, path)
}

type xlsxBackend struct {
	path  string
	sheet string
}

// Session opens the workbook for one call. A write session saves to a
// temporary file and renames it over the original, so a failed call leaves
// the workbook as it was.
func (b *xlsxBackend) Session(ctx context.Context, write bool, fn func(t table) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f, fresh, err := b.open(write)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := fn(&xlsxTable{file: f, sheet: b.sheet, fresh: fresh}); err != nil {
		return err
	}
	if !write {
		return nil
	}
	return b.commit(f)
}

func (b *xlsxBackend) open(write bool) (*excelize.File, bool, error) {
	f, err := excelize.OpenFile(b.path)
	if err == nil {
		return f, false, nil
	}
	if errors.Is(err, os.ErrNotExist) && write {
		return excelize.NewFile(), true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, ErrNotInitialized
	}
	return nil, false, fmt.Errorf("open workbook %s: %w", b.path, err)
}

func (b *xlsxBackend) commit(f *excelize.File) error {
	if dir := filepath.Dir(b.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create workbook directory: %w", err)
		}
	}

	ext := filepath.Ext(b.path)
	tmp := strings.TrimSuffix(b.path, ext) + ".tmp" + ext
	if err := f.SaveAs(tmp); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("save workbook: %w", err)
	}
	if err := os.Rename(tmp, b.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace workbook: %w", err)
	}
	return nil
}

type xlsxTable struct {
	file  *excelize.File
	sheet string
	fresh bool
}

func (t *xlsxTable) EnsureLayout(_ context.Context) error {
	idx, err := t.file.GetSheetIndex(t.sheet)
	if err != nil {
		return err
	}
	if idx == -1 {
		if t.fresh {
			// a new workbook carries a default first sheet; take it over
			if err := t.file.SetSheetName(t.file.GetSheetName(0), t.sheet); err != nil {
				return err
			}
		} else if _, err := t.file.NewSheet(t.sheet); err != nil {
			return err
		}
	}

	rows, err := t.file.GetRows(t.sheet)
	if err != nil {
		return err
	}
	if !headerPresent(rows) {
		if len(rows) > 0 && len(rows[0]) > 0 {
			return fmt.Errorf("sheet %q row 1 is not the expected header", t.sheet)
		}
		header := Header
		if err := t.file.SetSheetRow(t.sheet, "A1", &header); err != nil {
			return err
		}
	}

	meta := metaSheetName(t.sheet)
	idx, err = t.file.GetSheetIndex(meta)
	if err != nil {
		return err
	}
	if idx != -1 {
		return nil
	}
	if _, err := t.file.NewSheet(meta); err != nil {
		return err
	}
	if err := t.file.SetCellValue(meta, metaLabelRef, metaLabel); err != nil {
		return err
	}
	if err := t.file.SetCellValue(meta, metaValueRef, maxID(decodeRows(rows))+1); err != nil {
		return err
	}
	return t.file.SetSheetVisible(meta, false)
}

func (t *xlsxTable) Rows(_ context.Context) ([][]string, error) {
	return t.file.GetRows(t.sheet)
}

func (t *xlsxTable) SetRow(_ context.Context, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return t.file.SetSheetRow(t.sheet, cell, &values)
}

func (t *xlsxTable) DeleteRow(_ context.Context, row int) error {
	return t.file.RemoveRow(t.sheet, row)
}

func (t *xlsxTable) NextID(_ context.Context) (int64, bool, error) {
	meta := metaSheetName(t.sheet)
	idx, err := t.file.GetSheetIndex(meta)
	if err != nil || idx == -1 {
		return 0, false, err
	}
	raw, err := t.file.GetCellValue(meta, metaValueRef)
	if err != nil {
		return 0, false, err
	}
	id, ok := parseNextID(raw)
	return id, ok, nil
}

func (t *xlsxTable) SetNextID(_ context.Context, id int64) error {
	meta := metaSheetName(t.sheet)
	idx, err := t.file.GetSheetIndex(meta)
	if err != nil {
		return err
	}
	if idx == -1 {
		if _, err := t.file.NewSheet(meta); err != nil {
			return err
		}
		if err := t.file.SetCellValue(meta, metaLabelRef, metaLabel); err != nil {
			return err
		}
		if err := t.file.SetSheetVisible(meta, false); err != nil {
			return err
		}
	}
	return t.file.SetCellValue(meta, metaValueRef, id)
}
