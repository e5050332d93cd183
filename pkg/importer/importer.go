package importer

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5"
)

// ErrShopNotFound is returned when the target shop is not in the account.
var ErrShopNotFound = errors.New("shop not found")

// ImportOptions defines the configuration for inventory import operations
type ImportOptions struct {
	AccountID   string
	ShopID      string
	MappingPath string // empty uses DefaultMapping
	Mapping     *MappingConfig
	DryRun      bool
	MaxErrors   int // default 50
}

// RowError represents an error that occurred during row processing
type RowError struct {
	Sheet   string `json:"sheet"`
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// SheetSummary contains the import statistics for a single sheet
type SheetSummary struct {
	Name     string     `json:"name"`
	Inserted int        `json:"inserted"`
	Updated  int        `json:"updated"`
	Skipped  int        `json:"skipped"`
	Errors   int        `json:"errors"`
	Samples  []RowError `json:"errorSamples,omitempty"`
}

// ImportSummary contains the overall import statistics
type ImportSummary struct {
	Inserted int            `json:"inserted"`
	Updated  int            `json:"updated"`
	Skipped  int            `json:"skipped"`
	Errors   int            `json:"errors"`
	Sheets   []SheetSummary `json:"sheets"`
	DryRun   bool           `json:"dryRun"`
}

const maxSamples = 20

func (s *SheetSummary) fail(e RowError) {
	s.Errors++
	if len(s.Samples) < maxSamples {
		s.Samples = append(s.Samples, e)
	}
}

func (s *ImportSummary) add(sheet SheetSummary) {
	s.Sheets = append(s.Sheets, sheet)
	s.Inserted += sheet.Inserted
	s.Updated += sheet.Updated
	s.Skipped += sheet.Skipped
	s.Errors += sheet.Errors
}

// TxBeginner is satisfied by *pgxpool.Pool and *pgx.Conn.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// ImportInventory upserts the rows of an xlsx workbook into a shop's
// inventory. Rows match existing items by SKU, or by name when the row has
// no SKU. The whole import runs in one transaction; each row gets a
// savepoint so a bad row does not abort the rest. A dry run rolls back.
func ImportInventory(ctx context.Context, db TxBeginner, r io.Reader, opts ImportOptions) (ImportSummary, error) {
	summary := ImportSummary{DryRun: opts.DryRun, Sheets: []SheetSummary{}}
	if opts.MaxErrors <= 0 {
		opts.MaxErrors = 50
	}

	mapping := opts.Mapping
	if mapping == nil {
		var err error
		if mapping, err = LoadMapping(opts.MappingPath); err != nil {
			return summary, err
		}
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return summary, fmt.Errorf("read workbook: %w", err)
	}
	sheets, err := ParseWorkbook(data, mapping)
	if err != nil {
		return summary, err
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		return summary, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, "SELECT set_config('app.current_account_id', $1, true)", opts.AccountID); err != nil {
		return summary, fmt.Errorf("set account context: %w", err)
	}
	var owned bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM shops WHERE id = $1 AND account_id = $2)`,
		opts.ShopID, opts.AccountID).Scan(&owned); err != nil {
		return summary, fmt.Errorf("check shop: %w", err)
	}
	if !owned {
		return summary, ErrShopNotFound
	}

	uoms := newUOMResolver(tx, opts.ShopID)
	for _, ps := range sheets {
		sheet := SheetSummary{Name: ps.Name, Skipped: ps.Skipped}
		for _, e := range ps.Errors {
			sheet.fail(e)
		}
		for _, row := range ps.Rows {
			inserted, err := upsertRow(ctx, tx, uoms, opts.ShopID, row)
			if err != nil {
				sheet.fail(RowError{Sheet: row.Sheet, Row: row.Line, Message: err.Error()})
				continue
			}
			if inserted {
				sheet.Inserted++
			} else {
				sheet.Updated++
			}
		}
		summary.add(sheet)
		if summary.Errors > opts.MaxErrors {
			return summary, fmt.Errorf("too many errors (%d), stopping import", summary.Errors)
		}
	}

	if opts.DryRun {
		return summary, nil
	}
	if err := tx.Commit(ctx); err != nil {
		return summary, fmt.Errorf("commit: %w", err)
	}
	return summary, nil
}

// upsertRow writes one row inside its own savepoint and reports whether a
// new item was created.
func upsertRow(ctx context.Context, tx pgx.Tx, uoms *uomResolver, shopID string, row Row) (bool, error) {
	uomID, err := uoms.lookup(ctx, row.UOM)
	if err != nil {
		return false, err
	}

	sp, err := tx.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer sp.Rollback(ctx) //nolint:errcheck

	var existing string
	if row.SKU != nil {
		err = sp.QueryRow(ctx, `SELECT id::text FROM inventory WHERE shop_id = $1 AND sku = $2`, shopID, *row.SKU).Scan(&existing)
	} else {
		err = sp.QueryRow(ctx, `SELECT id::text FROM inventory WHERE shop_id = $1 AND lower(name) = lower($2) ORDER BY created_at LIMIT 1`,
			shopID, row.Name).Scan(&existing)
	}
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return false, err
	}

	if existing == "" {
		_, err = sp.Exec(ctx, `
			INSERT INTO inventory (shop_id, uom_id, name, sku, quantity, price, cost_price, low_stock_threshold, description)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			shopID, uomID, row.Name, row.SKU, row.Quantity, row.Price, row.CostPrice, row.LowStock, row.Description)
	} else {
		_, err = sp.Exec(ctx, `
			UPDATE inventory
			SET uom_id = COALESCE($2, uom_id), name = $3, quantity = $4, price = $5, cost_price = $6,
			    low_stock_threshold = COALESCE($7, low_stock_threshold),
			    description = COALESCE($8, description), updated_at = now()
			WHERE id = $1`,
			existing, uomID, row.Name, row.Quantity, row.Price, row.CostPrice, row.LowStock, row.Description)
	}
	if err != nil {
		return false, err
	}
	return existing == "", sp.Commit(ctx)
}

// uomResolver maps unit names in a sheet to the shop's UOM ids.
type uomResolver struct {
	tx     pgx.Tx
	shopID string
	cache  map[string]*string
}

func newUOMResolver(tx pgx.Tx, shopID string) *uomResolver {
	return &uomResolver{tx: tx, shopID: shopID, cache: make(map[string]*string)}
}

func (u *uomResolver) lookup(ctx context.Context, name string) (*string, error) {
	if name == "" {
		return nil, nil
	}
	if id, ok := u.cache[name]; ok {
		if id == nil {
			return nil, fmt.Errorf("unknown unit %q", name)
		}
		return id, nil
	}
	var id string
	err := u.tx.QueryRow(ctx, `
		SELECT id::text FROM uoms
		WHERE shop_id = $1 AND (lower(name) = lower($2) OR lower(short_name) = lower($2))
		LIMIT 1`, u.shopID, name).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		u.cache[name] = nil
		return nil, fmt.Errorf("unknown unit %q", name)
	}
	if err != nil {
		return nil, err
	}
	u.cache[name] = &id
	return &id, nil
}
