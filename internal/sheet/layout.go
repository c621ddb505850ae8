// Package sheet stores donation records in a spreadsheet: a local XLSX
// workbook or a Google Sheets document.
//
// Row 1 of the data sheet is a fixed header. Identity is an explicit id
// column rather than row position, and the next id lives in a hidden "<sheet>_meta" sheet so deleted ids are never handed
// out again.
package sheet

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"tinbox/internal/model"
)

// Header is the first row of the data sheet.
var Header = []interface{}{"id", "اسم المحل", "الموقع", "تم السحب", "المبلغ", "ملاحظات"}

const (
	columnCount = 6
	lastColumn  = "F"

	metaSuffix   = "_meta"
	metaLabel    = "next_id"
	metaLabelRef = "A1"
	metaValueRef = "B1"
)

func metaSheetName(sheet string) string {
	return sheet + metaSuffix
}

// EncodeRow renders a record in header order. Collected uses the localized label.
func EncodeRow(d model.Donation) []interface{} {
	return []interface{}{
		d.ID,
		d.StoreName,
		d.Location,
		d.Collected.Normalize().Label(),
		d.Amount,
		d.Notes,
	}
}

// DecodeRow parses one data row. ok is false for rows without a valid id,
// such as blank lines left by hand edits.
func DecodeRow(cells []string) (d model.Donation, ok bool) {
	raw := func(i int) string {
		if i < len(cells) {
			return cells[i]
		}
		return ""
	}
	cell := func(i int) string { return strings.TrimSpace(raw(i)) }

	id, err := strconv.ParseInt(cell(0), 10, 64)
	if err != nil || id <= 0 {
		return model.Donation{}, false
	}

	amount, err := strconv.ParseFloat(strings.ReplaceAll(cell(4), ",", ""), 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		amount = 0
	}

	return model.Donation{
		ID:        id,
		StoreName: cell(1),
		Location:  cell(2),
		Collected: model.Collected(cell(3)).Normalize(),
		Amount:    amount,
		Notes:     raw(5),
	}, true
}

// located is a decoded record plus its 1-based row number.
type located struct {
	row      int
	donation model.Donation
}

func decodeRows(rows [][]string) []located {
	var out []located
	for i := 1; i < len(rows); i++ {
		d, ok := DecodeRow(rows[i])
		if !ok {
			continue
		}
		out = append(out, located{row: i + 1, donation: d})
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].donation.ID < out[b].donation.ID
	})
	return out
}

func maxID(records []located) int64 {
	var max int64
	for _, r := range records {
		if r.donation.ID > max {
			max = r.donation.ID
		}
	}
	return max
}

func headerPresent(rows [][]string) bool {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return false
	}
	return strings.TrimSpace(rows[0][0]) == Header[0]
}
