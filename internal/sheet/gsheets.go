package sheet

import (
	"context"
	"fmt"
	"strconv"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// NewSheetsService builds a Sheets API client from service-account
// credentials, given inline (credentialsJSON) or as a file path.
func NewSheetsService(ctx context.Context, credentialsJSON, credentialsFile string, opts ...option.ClientOption) (*sheets.Service, error) {
	opts = append(opts, option.WithScopes(sheets.SpreadsheetsScope))
	switch {
	case credentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(credentialsJSON)))
	case credentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets client: %w", err)
	}
	return svc, nil
}

// NewGSheetsStore returns a Store backed by one sheet of a Google
// spreadsheet. Each call issues its own API requests; there is no
// multi-request transaction.
func NewGSheetsStore(svc *sheets.Service, spreadsheetID, sheet string, locker Locker) *Store {
	b := &gsheetsBackend{svc: svc, spreadsheetID: spreadsheetID, sheet: sheet}
	return newStore(b, locker, spreadsheetID+"/"+sheet)
}

type gsheetsBackend struct {
	svc           *sheets.Service
	spreadsheetID string
	sheet         string
}

func (b *gsheetsBackend) Session(ctx context.Context, _ bool, fn func(t table) error) error {
	return fn(&gsheetsTable{backend: b})
}

type gsheetsTable struct {
	backend *gsheetsBackend
}

func a1(sheet, ref string) string {
	return fmt.Sprintf("'%s'!%s", sheet, ref)
}

func (t *gsheetsTable) values() *sheets.SpreadsheetsValuesService {
	return t.backend.svc.Spreadsheets.Values
}

// sheetIDs maps sheet titles to their numeric ids.
func (t *gsheetsTable) sheetIDs(ctx context.Context) (map[string]int64, error) {
	doc, err := t.backend.svc.Spreadsheets.Get(t.backend.spreadsheetID).
		Fields("sheets.properties").
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	ids := make(map[string]int64, len(doc.Sheets))
	for _, s := range doc.Sheets {
		if s.Properties != nil {
			ids[s.Properties.Title] = s.Properties.SheetId
		}
	}
	return ids, nil
}

func (t *gsheetsTable) EnsureLayout(ctx context.Context) error {
	ids, err := t.sheetIDs(ctx)
	if err != nil {
		return err
	}

	sheet := t.backend.sheet
	meta := metaSheetName(sheet)

	var requests []*sheets.Request
	if _, ok := ids[sheet]; !ok {
		requests = append(requests, &sheets.Request{
			AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: sheet}},
		})
	}
	_, metaExists := ids[meta]
	if !metaExists {
		requests = append(requests, &sheets.Request{
			AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: meta, Hidden: true}},
		})
	}
	if len(requests) > 0 {
		_, err := t.backend.svc.Spreadsheets.BatchUpdate(t.backend.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
			Requests: requests,
		}).Context(ctx).Do()
		if err != nil {
			return err
		}
	}

	rows, err := t.Rows(ctx)
	if err != nil {
		return err
	}
	if !headerPresent(rows) {
		if len(rows) > 0 && len(rows[0]) > 0 {
			return fmt.Errorf("sheet %q row 1 is not the expected header", sheet)
		}
		if err := t.SetRow(ctx, 1, Header); err != nil {
			return err
		}
	}

	if metaExists {
		return nil
	}
	_, err = t.values().Update(t.backend.spreadsheetID, a1(meta, "A1:B1"), &sheets.ValueRange{
		Values: [][]interface{}{{metaLabel, maxID(decodeRows(rows)) + 1}},
	}).ValueInputOption("RAW").Context(ctx).Do()
	return err
}

func (t *gsheetsTable) Rows(ctx context.Context) ([][]string, error) {
	resp, err := t.values().Get(t.backend.spreadsheetID, a1(t.backend.sheet, "A:"+lastColumn)).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}

	rows := make([][]string, len(resp.Values))
	for i, raw := range resp.Values {
		row := make([]string, len(raw))
		for j, v := range raw {
			row[j] = cellString(v)
		}
		rows[i] = row
	}
	return rows, nil
}

func (t *gsheetsTable) SetRow(ctx context.Context, row int, values []interface{}) error {
	ref := fmt.Sprintf("A%d:%s%d", row, lastColumn, row)
	_, err := t.values().Update(t.backend.spreadsheetID, a1(t.backend.sheet, ref), &sheets.ValueRange{
		Values: [][]interface{}{values},
	}).ValueInputOption("RAW").Context(ctx).Do()
	return err
}

func (t *gsheetsTable) DeleteRow(ctx context.Context, row int) error {
	ids, err := t.sheetIDs(ctx)
	if err != nil {
		return err
	}
	sheetID, ok := ids[t.backend.sheet]
	if !ok {
		return ErrNotInitialized
	}

	_, err = t.backend.svc.Spreadsheets.BatchUpdate(t.backend.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			DeleteDimension: &sheets.DeleteDimensionRequest{
				Range: &sheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(row - 1),
					EndIndex:   int64(row),
				},
			},
		}},
	}).Context(ctx).Do()
	return err
}

func (t *gsheetsTable) NextID(ctx context.Context) (int64, bool, error) {
	resp, err := t.values().Get(t.backend.spreadsheetID, a1(metaSheetName(t.backend.sheet), metaValueRef)).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return 0, false, err
	}
	if len(resp.Values) == 0 || len(resp.Values[0]) == 0 {
		return 0, false, nil
	}
	id, ok := parseNextID(cellString(resp.Values[0][0]))
	return id, ok, nil
}

func (t *gsheetsTable) SetNextID(ctx context.Context, id int64) error {
	_, err := t.values().Update(t.backend.spreadsheetID, a1(metaSheetName(t.backend.sheet), metaValueRef), &sheets.ValueRange{
		Values: [][]interface{}{{id}},
	}).ValueInputOption("RAW").Context(ctx).Do()
	return err
}

// cellString renders an unformatted cell value. Numbers arrive as float64
// and are printed without exponent so ids and amounts parse back exactly.
func cellString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	}
	return fmt.Sprint(v)
}
