package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/iliyamo/party-booking/internal/model"
)

// SheetConfig locates the reservations tab of a spreadsheet.
type SheetConfig struct {
	SpreadsheetID   string
	SheetName       string
	SheetID         int64 // numeric tab id, required for row deletion
	CredentialsFile string
}

// valuesAPI is the slice of the Sheets API the store needs.
type valuesAPI interface {
	Get(ctx context.Context, rng string) ([][]interface{}, error)
	Append(ctx context.Context, rng string, rows [][]interface{}) error
	Update(ctx context.Context, rng string, rows [][]interface{}) error
	DeleteRow(ctx context.Context, sheetID int64, row int) error
}

// SheetStore keeps reservations as rows of a Google spreadsheet.  The sheet
// has no id column, so rows are keyed by natural key and surfaced with a
// synthesized id of the form sheet_<row>_<createdUnix>.
type SheetStore struct {
	api     valuesAPI
	name    string
	sheetID int64
	log     *zap.Logger
}

// NewSheetStore authenticates with a service-account file and returns a
// store bound to cfg.
func NewSheetStore(ctx context.Context, cfg SheetConfig, log *zap.Logger) (*SheetStore, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("sheets: spreadsheet id is required")
	}
	svc, err := sheets.NewService(ctx,
		option.WithCredentialsFile(cfg.CredentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("sheets: %w", err)
	}
	return newSheetStore(&sheetsValues{svc: svc, spreadsheetID: cfg.SpreadsheetID}, cfg, log), nil
}

func newSheetStore(api valuesAPI, cfg SheetConfig, log *zap.Logger) *SheetStore {
	if log == nil {
		log = zap.NewNop()
	}
	name := cfg.SheetName
	if name == "" {
		name = "Reservas"
	}
	return &SheetStore{api: api, name: name, sheetID: cfg.SheetID, log: log}
}

func (s *SheetStore) Name() string { return SourceSheet }

// Column layout, A..L.  Row 1 holds headers.
const (
	colDate = iota
	colTime
	colCustomer
	colPhone
	colChild
	colPackage
	colTotal
	colDeposit
	colRemaining
	colPaid
	colNotes
	colCreatedAt
	sheetWidth
)

const firstDataRow = 2

var sheetHeaders = [sheetWidth]string{
	"Fecha", "Hora", "Cliente", "Teléfono", "Niño/a", "Paquete",
	"Total", "Anticipo", "Restante", "Pagado", "Notas", "Creado",
}

func (s *SheetStore) dataRange() string { return fmt.Sprintf("%s!A%d:L", s.name, firstDataRow) }

func (s *SheetStore) rowRange(row int) string { return fmt.Sprintf("%s!A%d:L%d", s.name, row, row) }

type sheetRow struct {
	row int
	rec model.Reservation
}

// List reads every data row.  Rows that cannot be translated are skipped
// and logged rather than failing the whole sheet.
func (s *SheetStore) List(ctx context.Context) ([]model.Reservation, error) {
	rows, err := s.rows(ctx, "list")
	if err != nil {
		return nil, err
	}
	out := make([]model.Reservation, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.rec)
	}
	return out, nil
}

func (s *SheetStore) rows(ctx context.Context, op string) ([]sheetRow, error) {
	values, err := s.api.Get(ctx, s.dataRange())
	if err != nil {
		return nil, s.classify(op, err)
	}
	out := make([]sheetRow, 0, len(values))
	for i, cells := range values {
		row := firstDataRow + i
		if blankRow(cells) {
			continue
		}
		rec, err := decodeRow(row, cells)
		if err != nil {
			s.log.Warn("skipping sheet row", zap.Int("row", row), zap.Error(err))
			continue
		}
		out = append(out, sheetRow{row: row, rec: rec})
	}
	return out, nil
}

// Create appends a row.
func (s *SheetStore) Create(ctx context.Context, r model.Reservation) error {
	if err := s.api.Append(ctx, fmt.Sprintf("%s!A:L", s.name), [][]interface{}{encodeRow(r)}); err != nil {
		return s.classify("create", err)
	}
	return nil
}

// Update rewrites the row holding r.  An unset createdAt keeps the value
// already in the sheet.
func (s *SheetStore) Update(ctx context.Context, r model.Reservation) error {
	found, err := s.locate(ctx, "update", KeyOf(r))
	if err != nil {
		return err
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = found.rec.CreatedAt
	}
	if err := s.api.Update(ctx, s.rowRange(found.row), [][]interface{}{encodeRow(r)}); err != nil {
		return s.classify("update", err)
	}
	return nil
}

// Delete removes the row holding key.
func (s *SheetStore) Delete(ctx context.Context, key Key) error {
	found, err := s.locate(ctx, "delete", key)
	if err != nil {
		return err
	}
	if err := s.api.DeleteRow(ctx, s.sheetID, found.row); err != nil {
		return s.classify("delete", err)
	}
	return nil
}

// locate finds a row by natural key, falling back to the row number carried
// by a synthesized sheet id.
func (s *SheetStore) locate(ctx context.Context, op string, key Key) (sheetRow, error) {
	rows, err := s.rows(ctx, op)
	if err != nil {
		return sheetRow{}, err
	}
	if !key.Natural.IsZero() {
		for _, r := range rows {
			if r.rec.NaturalKey() == key.Natural {
				return r, nil
			}
		}
	}
	for _, r := range rows {
		if key.ID != "" && r.rec.ID == key.ID {
			return r, nil
		}
	}
	return sheetRow{}, newError(s.Name(), op, ErrNotFound, nil)
}

// SheetID returns the synthesized id for a sheet row.
func SheetID(row int, createdAt time.Time) string {
	var ts int64
	if !createdAt.IsZero() {
		ts = createdAt.Unix()
	}
	return fmt.Sprintf("sheet_%d_%d", row, ts)
}

func encodeRow(r model.Reservation) []interface{} {
	cells := make([]interface{}, sheetWidth)
	cells[colDate] = r.Date
	cells[colTime] = r.Time
	cells[colCustomer] = r.CustomerName
	cells[colPhone] = r.CustomerPhone
	cells[colChild] = r.ChildName
	cells[colPackage] = string(r.Package)
	cells[colTotal] = r.TotalAmount
	cells[colDeposit] = r.DepositAmount
	cells[colRemaining] = r.RemainingAmount
	cells[colPaid] = r.IsPaid
	cells[colNotes] = r.Notes
	cells[colCreatedAt] = ""
	if !r.CreatedAt.IsZero() {
		cells[colCreatedAt] = r.CreatedAt.UTC().Format(time.RFC3339)
	}
	return cells
}

func decodeRow(row int, cells []interface{}) (model.Reservation, error) {
	raw := func(i int) interface{} {
		if i >= len(cells) {
			return nil
		}
		return cells[i]
	}
	cell := func(i int) string { return cellString(raw(i)) }

	var r model.Reservation
	date, err := parseSheetDate(cell(colDate))
	if err != nil {
		return r, err
	}
	tier, err := model.ParsePackageTier(cell(colPackage))
	if err != nil {
		return r, fmt.Errorf("package %q: %w", cell(colPackage), err)
	}
	total, err := parseAmount(raw(colTotal))
	if err != nil {
		return r, fmt.Errorf("total: %w", err)
	}
	deposit, err := parseAmount(raw(colDeposit))
	if err != nil {
		return r, fmt.Errorf("deposit: %w", err)
	}
	if v := cell(colCreatedAt); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			r.CreatedAt = t.UTC()
		}
	}

	r.Date = date
	r.Time = cell(colTime)
	r.CustomerName = cell(colCustomer)
	r.CustomerPhone = cell(colPhone)
	r.ChildName = cell(colChild)
	r.Package = tier
	r.TotalAmount = total
	r.DepositAmount = deposit
	r.Notes = cell(colNotes)
	r.ID = SheetID(row, r.CreatedAt)
	// remaining and paid columns are display-only; derive them again
	r.Recompute()
	return r, nil
}

// parseSheetDate accepts ISO dates and the dd/mm/yyyy form people type by hand.
func parseSheetDate(v string) (string, error) {
	for _, layout := range []string{model.DateLayout, "02/01/2006", "2/1/2006"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Format(model.DateLayout), nil
		}
	}
	return "", fmt.Errorf("date %q: %w", v, model.ErrInvalidDate)
}

// cellString renders a cell read with UNFORMATTED_VALUE.  Numbers typed into
// text columns (phones) come back as float64 and must not turn into
// exponent notation.
func cellString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

// parseAmount accepts whole currency units.  Numeric cells arrive as
// float64; text cells may carry "$" and "," thousands separators.  Anything
// with a fractional part, including locale forms such as "4.500,00", is an
// error so the row is skipped instead of misread.
func parseAmount(v interface{}) (int64, error) {
	switch x := v.(type) {
	case nil:
		return 0, nil
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) {
			return 0, fmt.Errorf("amount %v is not a whole number", x)
		}
		return int64(x), nil
	}
	s := strings.NewReplacer("$", "", ",", "", " ", "").Replace(cellString(v))
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("amount %q: %w", cellString(v), err)
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("amount %q is not a whole number", cellString(v))
	}
	return int64(f), nil
}

func blankRow(cells []interface{}) bool {
	for _, c := range cells {
		if cellString(c) != "" {
			return false
		}
	}
	return true
}

func (s *SheetStore) classify(op string, err error) error {
	if cerr := wrapContext(s.Name(), op, err); cerr != nil {
		return cerr
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case 401, 403:
			return newError(s.Name(), op, ErrPermissionDenied, err)
		case 404:
			return newError(s.Name(), op, ErrNotFound, err)
		case 400:
			return newError(s.Name(), op, ErrSchemaMismatch, err)
		}
	}
	return newError(s.Name(), op, ErrUnavailable, err)
}

// sheetsValues adapts *sheets.Service to valuesAPI.
type sheetsValues struct {
	svc           *sheets.Service
	spreadsheetID string
}

// Get reads raw numbers so amounts do not depend on the sheet's locale;
// date cells still come back as the strings shown in the sheet.
func (v *sheetsValues) Get(ctx context.Context, rng string) ([][]interface{}, error) {
	resp, err := v.svc.Spreadsheets.Values.Get(v.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (v *sheetsValues) Append(ctx context.Context, rng string, rows [][]interface{}) error {
	_, err := v.svc.Spreadsheets.Values.Append(v.spreadsheetID, rng, &sheets.ValueRange{Values: rows}).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	return err
}

func (v *sheetsValues) Update(ctx context.Context, rng string, rows [][]interface{}) error {
	_, err := v.svc.Spreadsheets.Values.Update(v.spreadsheetID, rng, &sheets.ValueRange{Values: rows}).
		ValueInputOption("RAW").Context(ctx).Do()
	return err
}

func (v *sheetsValues) DeleteRow(ctx context.Context, sheetID int64, row int) error {
	req := &sheets.BatchUpdateSpreadsheetRequest{
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
	}
	_, err := v.svc.Spreadsheets.BatchUpdate(v.spreadsheetID, req).Context(ctx).Do()
	return err
}

// EnsureHeader writes the header row when the sheet is empty.
func (s *SheetStore) EnsureHeader(ctx context.Context) error {
	values, err := s.api.Get(ctx, fmt.Sprintf("%s!A1:L1", s.name))
	if err != nil {
		return s.classify("header", err)
	}
	if len(values) > 0 && !blankRow(values[0]) {
		return nil
	}
	header := make([]interface{}, sheetWidth)
	for i, h := range sheetHeaders {
		header[i] = h
	}
	if err := s.api.Update(ctx, fmt.Sprintf("%s!A1:L1", s.name), [][]interface{}{header}); err != nil {
		return s.classify("header", err)
	}
	return nil
}
