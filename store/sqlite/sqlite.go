/*
Package sqlite provides the SQLite-backed store for the quoting system.

PURPOSE:
  Persists the catalog (master parts, rules, products, options, markup
  profiles) and the project graph (projects, openings, panels, components),
  plus the append-only price run history. In production, the same patterns
  apply to PostgreSQL - only minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  catalog.Source:     Context-free reads for the quote calculator
  pricing.PartSource: Master part lookup for the line pricer

APPEND-ONLY ENFORCEMENT:
  Price runs are an audit trail:
  - No UPDATE statements on price_runs or price_run_lines
  - No DELETE methods; rows go away only when their project is deleted
  - Repricing appends a new run, never rewrites an old one

KEY TABLES:
  master_parts:       The part catalog
  stock_length_rules: Dimension-ranged extrusion pricing per part
  pricing_rules:      Ordered fallback pricing per part (position = precedence)
  products:           Configurable products
  product_bom:        BOM template lines per product (position = list order)
  hardware_options:   Selectable hardware upgrades
  markup_profiles:    Dealer pricing configurations
  projects/openings/panels/components: The quoting graph
  price_runs:         One row per completed calculation
  price_run_lines:    The priced lines of a run

MONEY AND DIMENSIONS:
  All decimal values are stored as TEXT and parsed back through
  shopspring/decimal. No floats touch a price on the way to disk.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/quotes.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  // The store IS the calculator's catalog source
  calc := quote.NewCalculator(store)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - catalog/catalog.go: Source interface definition
  - catalog/memory.go: In-memory implementation for testing
  - quote/calculator.go: The consumer of LoadProjectGraph
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/quote-engine/catalog"
	"github.com/warp/quote-engine/pricing"
	"github.com/warp/quote-engine/quote"
)

// Store implements catalog and project persistence using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Master parts (decimals stored as TEXT, never floats)
	CREATE TABLE IF NOT EXISTS master_parts (
		part_number TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		part_type TEXT NOT NULL,
		direct_cost TEXT NOT NULL DEFAULT '0',
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Stock-length rules: dimension-ranged extrusion pricing.
	-- NULL bounds are unconstrained; selection ranks by specificity,
	-- position only preserves authoring order for listings.
	CREATE TABLE IF NOT EXISTS stock_length_rules (
		id TEXT PRIMARY KEY,
		part_number TEXT NOT NULL REFERENCES master_parts(part_number) ON DELETE CASCADE,
		min_width TEXT,
		max_width TEXT,
		min_height TEXT,
		max_height TEXT,
		stock_length TEXT NOT NULL DEFAULT '0',
		pieces_per_unit TEXT NOT NULL DEFAULT '0',
		base_price TEXT,
		formula TEXT NOT NULL DEFAULT '',
		active BOOLEAN NOT NULL DEFAULT TRUE,
		position INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_stock_rules_part
		ON stock_length_rules(part_number, position);

	-- Pricing rules: CRITICAL - position IS the precedence, the first
	-- active rule in position order wins.
	CREATE TABLE IF NOT EXISTS pricing_rules (
		id TEXT PRIMARY KEY,
		part_number TEXT NOT NULL REFERENCES master_parts(part_number) ON DELETE CASCADE,
		base_price TEXT,
		formula TEXT NOT NULL DEFAULT '',
		active BOOLEAN NOT NULL DEFAULT TRUE,
		position INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_pricing_rules_part
		ON pricing_rules(part_number, position);

	-- Products and their BOM templates
	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		series TEXT NOT NULL DEFAULT '',
		applies_tolerance BOOLEAN NOT NULL DEFAULT FALSE,
		width_tolerance TEXT,
		height_tolerance TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS product_bom (
		product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		part_number TEXT NOT NULL DEFAULT '',
		part_name TEXT NOT NULL DEFAULT '',
		part_type TEXT NOT NULL,
		quantity TEXT NOT NULL DEFAULT '0',
		direct_cost TEXT NOT NULL DEFAULT '0',
		formula TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (product_id, position)
	);

	-- Hardware options
	CREATE TABLE IF NOT EXISTS hardware_options (
		id TEXT PRIMARY KEY,
		category TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		price TEXT NOT NULL DEFAULT '0',
		included BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_options_category
		ON hardware_options(category, name);

	-- Markup profiles (category maps stored as JSON, like any config blob)
	CREATE TABLE IF NOT EXISTS markup_profiles (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		mode TEXT NOT NULL DEFAULT 'standard',
		category_markups_json TEXT NOT NULL DEFAULT '{}',
		no_markup_json TEXT NOT NULL DEFAULT '{}',
		hybrid_extrusion_share TEXT NOT NULL DEFAULT '0',
		global_markup TEXT NOT NULL DEFAULT '0',
		discount TEXT NOT NULL DEFAULT '0',
		tax_rate TEXT NOT NULL DEFAULT '0',
		installation TEXT NOT NULL DEFAULT '0',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Projects. profile_id is a soft reference: deleting a profile leaves
	-- the project pricing at cost until a new profile is assigned.
	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		customer TEXT NOT NULL DEFAULT '',
		profile_id TEXT NOT NULL DEFAULT '',
		tax_rate TEXT NOT NULL DEFAULT '0',
		installation TEXT NOT NULL DEFAULT '0',
		needs_reprice BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL
	);

	-- Partial index for the scheduler sweep
	CREATE INDEX IF NOT EXISTS idx_projects_reprice
		ON projects(needs_reprice) WHERE needs_reprice = TRUE;

	-- Openings. NULL rough dimensions mean "not measured yet".
	CREATE TABLE IF NOT EXISTS openings (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		mark TEXT NOT NULL DEFAULT '',
		position INTEGER NOT NULL DEFAULT 0,
		rough_width TEXT,
		rough_height TEXT,
		is_finished BOOLEAN NOT NULL DEFAULT FALSE,
		tolerance_product_id TEXT NOT NULL DEFAULT '',
		width_tolerance_total TEXT NOT NULL DEFAULT '0',
		height_tolerance_total TEXT NOT NULL DEFAULT '0',
		finished_width TEXT,
		finished_height TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_openings_project
		ON openings(project_id, position);

	-- Panels
	CREATE TABLE IF NOT EXISTS panels (
		id TEXT PRIMARY KEY,
		opening_id TEXT NOT NULL REFERENCES openings(id) ON DELETE CASCADE,
		position INTEGER NOT NULL DEFAULT 0,
		width TEXT NOT NULL DEFAULT '0',
		height TEXT NOT NULL DEFAULT '0',
		panel_type TEXT NOT NULL,
		direction TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_panels_opening
		ON panels(opening_id, position);

	-- Components. product_id is a soft reference: a deleted product shows
	-- up as a pricing error on the placement, not a silent cascade.
	CREATE TABLE IF NOT EXISTS components (
		id TEXT PRIMARY KEY,
		panel_id TEXT NOT NULL REFERENCES panels(id) ON DELETE CASCADE,
		product_id TEXT NOT NULL,
		quantity INTEGER NOT NULL DEFAULT 1,
		option_selections_json TEXT,
		glass_cost TEXT NOT NULL DEFAULT '0'
	);

	CREATE INDEX IF NOT EXISTS idx_components_panel
		ON components(panel_id);
	CREATE INDEX IF NOT EXISTS idx_components_product
		ON components(product_id);

	-- Price runs (append-only audit)
	CREATE TABLE IF NOT EXISTS price_runs (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		run_at TEXT NOT NULL,
		subtotal_base TEXT NOT NULL,
		subtotal_marked_up TEXT NOT NULL,
		installation TEXT NOT NULL,
		tax_amount TEXT NOT NULL,
		grand_total TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_price_runs_project
		ON price_runs(project_id, run_at DESC);

	CREATE TABLE IF NOT EXISTS price_run_lines (
		run_id TEXT NOT NULL REFERENCES price_runs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		opening_id TEXT NOT NULL DEFAULT '',
		component_id TEXT NOT NULL DEFAULT '',
		part_number TEXT NOT NULL DEFAULT '',
		method TEXT NOT NULL,
		unit_cost TEXT NOT NULL,
		total_cost TEXT NOT NULL,
		details TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL,
		PRIMARY KEY (run_id, position)
	);

	CREATE INDEX IF NOT EXISTS idx_run_lines_opening
		ON price_run_lines(run_id, opening_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// MASTER PARTS
// =============================================================================

// SavePart upserts a master part and replaces its rules wholesale. The
// part's rule lists are the source of truth; position is list order.
func (s *Store) SavePart(ctx context.Context, part pricing.MasterPart) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	query := `
		INSERT INTO master_parts (part_number, name, part_type, direct_cost, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(part_number) DO UPDATE SET
			name = excluded.name,
			part_type = excluded.part_type,
			direct_cost = excluded.direct_cost,
			active = excluded.active,
			updated_at = excluded.updated_at
	`
	if _, err := sqlTx.ExecContext(ctx, query,
		part.PartNumber, part.PartName, string(part.PartType),
		part.DirectCost.String(), part.IsActive, now, now,
	); err != nil {
		return fmt.Errorf("failed to save master part: %w", err)
	}

	if _, err := sqlTx.ExecContext(ctx,
		"DELETE FROM stock_length_rules WHERE part_number = ?", part.PartNumber); err != nil {
		return err
	}
	if _, err := sqlTx.ExecContext(ctx,
		"DELETE FROM pricing_rules WHERE part_number = ?", part.PartNumber); err != nil {
		return err
	}

	for i, r := range part.StockLengthRules {
		if _, err := sqlTx.ExecContext(ctx, `
			INSERT INTO stock_length_rules
			(id, part_number, min_width, max_width, min_height, max_height,
			 stock_length, pieces_per_unit, base_price, formula, active, position)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, part.PartNumber,
			nullDecimal(r.MinWidth), nullDecimal(r.MaxWidth),
			nullDecimal(r.MinHeight), nullDecimal(r.MaxHeight),
			r.StockLength.String(), r.PiecesPerUnit.String(),
			nullDecimal(r.BasePrice), r.Formula, r.IsActive, i,
		); err != nil {
			return fmt.Errorf("failed to save stock rule %s: %w", r.ID, err)
		}
	}

	for i, r := range part.PricingRules {
		if _, err := sqlTx.ExecContext(ctx, `
			INSERT INTO pricing_rules (id, part_number, base_price, formula, active, position)
			VALUES (?, ?, ?, ?, ?, ?)`,
			r.ID, part.PartNumber, nullDecimal(r.BasePrice), r.Formula, r.IsActive, i,
		); err != nil {
			return fmt.Errorf("failed to save pricing rule %s: %w", r.ID, err)
		}
	}

	return sqlTx.Commit()
}

// GetPart retrieves a master part with its rules. Returns nil when the
// part does not exist.
func (s *Store) GetPart(ctx context.Context, partNumber string) (*pricing.MasterPart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.getPart(ctx, partNumber)
}

func (s *Store) getPart(ctx context.Context, partNumber string) (*pricing.MasterPart, error) {
	var part pricing.MasterPart
	var partType, directCost string

	err := s.db.QueryRowContext(ctx,
		"SELECT part_number, name, part_type, direct_cost, active FROM master_parts WHERE part_number = ?",
		partNumber,
	).Scan(&part.PartNumber, &part.PartName, &partType, &directCost, &part.IsActive)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	part.PartType = pricing.PartType(partType)
	part.DirectCost = mustDec(directCost)

	if part.StockLengthRules, err = s.stockRulesFor(ctx, partNumber); err != nil {
		return nil, err
	}
	if part.PricingRules, err = s.pricingRulesFor(ctx, partNumber); err != nil {
		return nil, err
	}
	return &part, nil
}

// ListParts returns all master parts with their rules, ordered by part
// number.
func (s *Store) ListParts(ctx context.Context) ([]pricing.MasterPart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT part_number, name, part_type, direct_cost, active FROM master_parts ORDER BY part_number",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var parts []pricing.MasterPart
	for rows.Next() {
		var part pricing.MasterPart
		var partType, directCost string
		if err := rows.Scan(&part.PartNumber, &part.PartName, &partType, &directCost, &part.IsActive); err != nil {
			return nil, err
		}
		part.PartType = pricing.PartType(partType)
		part.DirectCost = mustDec(directCost)
		parts = append(parts, part)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Stitch rules in with two queries instead of 2N
	stockByPart, err := s.allStockRules(ctx)
	if err != nil {
		return nil, err
	}
	pricingByPart, err := s.allPricingRules(ctx)
	if err != nil {
		return nil, err
	}
	for i := range parts {
		parts[i].StockLengthRules = stockByPart[parts[i].PartNumber]
		parts[i].PricingRules = pricingByPart[parts[i].PartNumber]
	}

	return parts, nil
}

// DeletePart removes a master part; its rules cascade.
func (s *Store) DeletePart(ctx context.Context, partNumber string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM master_parts WHERE part_number = ?", partNumber)
	return err
}

func (s *Store) stockRulesFor(ctx context.Context, partNumber string) ([]pricing.StockLengthRule, error) {
	byPart, err := s.queryStockRules(ctx,
		"WHERE part_number = ? ORDER BY position", partNumber)
	if err != nil {
		return nil, err
	}
	return byPart[partNumber], nil
}

func (s *Store) allStockRules(ctx context.Context) (map[string][]pricing.StockLengthRule, error) {
	return s.queryStockRules(ctx, "ORDER BY part_number, position")
}

func (s *Store) queryStockRules(ctx context.Context, clause string, args ...any) (map[string][]pricing.StockLengthRule, error) {
	query := `
		SELECT id, part_number, min_width, max_width, min_height, max_height,
		       stock_length, pieces_per_unit, base_price, formula, active
		FROM stock_length_rules ` + clause

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byPart := make(map[string][]pricing.StockLengthRule)
	for rows.Next() {
		var (
			r                                  pricing.StockLengthRule
			partNumber                         string
			minW, maxW, minH, maxH, basePrice  sql.NullString
			stockLength, piecesPerUnit         string
		)
		if err := rows.Scan(&r.ID, &partNumber, &minW, &maxW, &minH, &maxH,
			&stockLength, &piecesPerUnit, &basePrice, &r.Formula, &r.IsActive); err != nil {
			return nil, err
		}
		r.MinWidth = decimalPtr(minW)
		r.MaxWidth = decimalPtr(maxW)
		r.MinHeight = decimalPtr(minH)
		r.MaxHeight = decimalPtr(maxH)
		r.StockLength = mustDec(stockLength)
		r.PiecesPerUnit = mustDec(piecesPerUnit)
		r.BasePrice = decimalPtr(basePrice)
		byPart[partNumber] = append(byPart[partNumber], r)
	}
	return byPart, rows.Err()
}

func (s *Store) pricingRulesFor(ctx context.Context, partNumber string) ([]pricing.PricingRule, error) {
	byPart, err := s.queryPricingRules(ctx,
		"WHERE part_number = ? ORDER BY position", partNumber)
	if err != nil {
		return nil, err
	}
	return byPart[partNumber], nil
}

func (s *Store) allPricingRules(ctx context.Context) (map[string][]pricing.PricingRule, error) {
	return s.queryPricingRules(ctx, "ORDER BY part_number, position")
}

func (s *Store) queryPricingRules(ctx context.Context, clause string, args ...any) (map[string][]pricing.PricingRule, error) {
	query := `
		SELECT id, part_number, base_price, formula, active
		FROM pricing_rules ` + clause

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byPart := make(map[string][]pricing.PricingRule)
	for rows.Next() {
		var (
			r          pricing.PricingRule
			partNumber string
			basePrice  sql.NullString
		)
		if err := rows.Scan(&r.ID, &partNumber, &basePrice, &r.Formula, &r.IsActive); err != nil {
			return nil, err
		}
		r.BasePrice = decimalPtr(basePrice)
		byPart[partNumber] = append(byPart[partNumber], r)
	}
	return byPart, rows.Err()
}

// =============================================================================
// PRODUCTS
// =============================================================================

// SaveProduct upserts a product and replaces its BOM wholesale.
func (s *Store) SaveProduct(ctx context.Context, product catalog.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	query := `
		INSERT INTO products (id, name, series, applies_tolerance, width_tolerance, height_tolerance, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			series = excluded.series,
			applies_tolerance = excluded.applies_tolerance,
			width_tolerance = excluded.width_tolerance,
			height_tolerance = excluded.height_tolerance,
			updated_at = excluded.updated_at
	`
	if _, err := sqlTx.ExecContext(ctx, query,
		product.ID, product.Name, product.Series, product.AppliesTolerance,
		nullDecimal(product.WidthTolerance), nullDecimal(product.HeightTolerance),
		now, now,
	); err != nil {
		return fmt.Errorf("failed to save product: %w", err)
	}

	if _, err := sqlTx.ExecContext(ctx,
		"DELETE FROM product_bom WHERE product_id = ?", product.ID); err != nil {
		return err
	}
	for i, line := range product.BOM {
		if _, err := sqlTx.ExecContext(ctx, `
			INSERT INTO product_bom (product_id, position, part_number, part_name, part_type, quantity, direct_cost, formula)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			product.ID, i, line.PartNumber, line.PartName, string(line.PartType),
			line.Quantity.String(), line.DirectCost.String(), line.Formula,
		); err != nil {
			return fmt.Errorf("failed to save BOM line %d: %w", i, err)
		}
	}

	return sqlTx.Commit()
}

// GetProduct retrieves a product with its BOM. Returns nil when missing.
func (s *Store) GetProduct(ctx context.Context, id string) (*catalog.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.getProduct(ctx, id)
}

func (s *Store) getProduct(ctx context.Context, id string) (*catalog.Product, error) {
	var p catalog.Product
	var widthTol, heightTol sql.NullString

	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, series, applies_tolerance, width_tolerance, height_tolerance FROM products WHERE id = ?",
		id,
	).Scan(&p.ID, &p.Name, &p.Series, &p.AppliesTolerance, &widthTol, &heightTol)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	p.WidthTolerance = decimalPtr(widthTol)
	p.HeightTolerance = decimalPtr(heightTol)

	if p.BOM, err = s.bomFor(ctx, id); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProducts returns all products with BOMs, ordered by name then ID.
func (s *Store) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, series, applies_tolerance, width_tolerance, height_tolerance FROM products ORDER BY name, id",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []catalog.Product
	for rows.Next() {
		var p catalog.Product
		var widthTol, heightTol sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &p.Series, &p.AppliesTolerance, &widthTol, &heightTol); err != nil {
			return nil, err
		}
		p.WidthTolerance = decimalPtr(widthTol)
		p.HeightTolerance = decimalPtr(heightTol)
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range products {
		if products[i].BOM, err = s.bomFor(ctx, products[i].ID); err != nil {
			return nil, err
		}
	}
	return products, nil
}

// DeleteProduct removes a product; its BOM cascades. Components that
// reference it keep their rows and price to an error.
func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM products WHERE id = ?", id)
	return err
}

func (s *Store) bomFor(ctx context.Context, productID string) ([]pricing.BOMLine, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT part_number, part_name, part_type, quantity, direct_cost, formula
		FROM product_bom
		WHERE product_id = ?
		ORDER BY position`,
		productID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bom []pricing.BOMLine
	for rows.Next() {
		var line pricing.BOMLine
		var partType, quantity, directCost string
		if err := rows.Scan(&line.PartNumber, &line.PartName, &partType, &quantity, &directCost, &line.Formula); err != nil {
			return nil, err
		}
		line.PartType = pricing.PartType(partType)
		line.Quantity = mustDec(quantity)
		line.DirectCost = mustDec(directCost)
		bom = append(bom, line)
	}
	return bom, rows.Err()
}

// =============================================================================
// HARDWARE OPTIONS
// =============================================================================

// SaveOption upserts a hardware option.
func (s *Store) SaveOption(ctx context.Context, option catalog.HardwareOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO hardware_options (id, category, name, price, included, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			category = excluded.category,
			name = excluded.name,
			price = excluded.price,
			included = excluded.included
	`
	_, err := s.db.ExecContext(ctx, query,
		option.ID, option.Category, option.Name, option.Price.String(), option.Included,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// GetOption retrieves an option by ID. Returns nil when missing.
func (s *Store) GetOption(ctx context.Context, id string) (*catalog.HardwareOption, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var o catalog.HardwareOption
	var price string

	err := s.db.QueryRowContext(ctx,
		"SELECT id, category, name, price, included FROM hardware_options WHERE id = ?",
		id,
	).Scan(&o.ID, &o.Category, &o.Name, &price, &o.Included)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	o.Price = mustDec(price)
	return &o, nil
}

// ListOptions returns all options ordered by category then name.
func (s *Store) ListOptions(ctx context.Context) ([]catalog.HardwareOption, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, category, name, price, included FROM hardware_options ORDER BY category, name",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var options []catalog.HardwareOption
	for rows.Next() {
		var o catalog.HardwareOption
		var price string
		if err := rows.Scan(&o.ID, &o.Category, &o.Name, &price, &o.Included); err != nil {
			return nil, err
		}
		o.Price = mustDec(price)
		options = append(options, o)
	}
	return options, rows.Err()
}

// DeleteOption removes a hardware option.
func (s *Store) DeleteOption(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM hardware_options WHERE id = ?", id)
	return err
}

// =============================================================================
// MARKUP PROFILES
// =============================================================================

// SaveProfile upserts a markup profile.
func (s *Store) SaveProfile(ctx context.Context, profile pricing.MarkupProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	markupsJSON, _ := json.Marshal(profile.CategoryMarkups)
	noMarkupJSON, _ := json.Marshal(profile.NoMarkup)

	query := `
		INSERT INTO markup_profiles
		(id, name, mode, category_markups_json, no_markup_json, hybrid_extrusion_share,
		 global_markup, discount, tax_rate, installation, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			mode = excluded.mode,
			category_markups_json = excluded.category_markups_json,
			no_markup_json = excluded.no_markup_json,
			hybrid_extrusion_share = excluded.hybrid_extrusion_share,
			global_markup = excluded.global_markup,
			discount = excluded.discount,
			tax_rate = excluded.tax_rate,
			installation = excluded.installation,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, query,
		profile.ID, profile.Name, string(profile.Mode),
		string(markupsJSON), string(noMarkupJSON),
		profile.HybridExtrusionShare.String(),
		profile.GlobalMarkup.String(), profile.Discount.String(),
		profile.TaxRate.String(), profile.Installation.String(),
		now, now,
	)
	return err
}

// GetProfile retrieves a markup profile. Returns nil when missing.
func (s *Store) GetProfile(ctx context.Context, id string) (*pricing.MarkupProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, mode, category_markups_json, no_markup_json, hybrid_extrusion_share,
		       global_markup, discount, tax_rate, installation
		FROM markup_profiles WHERE id = ?`,
		id,
	)

	profile, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// ListProfiles returns all markup profiles ordered by name then ID.
func (s *Store) ListProfiles(ctx context.Context) ([]pricing.MarkupProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, mode, category_markups_json, no_markup_json, hybrid_extrusion_share,
		       global_markup, discount, tax_rate, installation
		FROM markup_profiles ORDER BY name, id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []pricing.MarkupProfile
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}
	return profiles, rows.Err()
}

// DeleteProfile removes a markup profile. Projects that referenced it
// price at cost until a new profile is assigned.
func (s *Store) DeleteProfile(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM markup_profiles WHERE id = ?", id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (pricing.MarkupProfile, error) {
	var (
		p                                            pricing.MarkupProfile
		mode, markupsJSON, noMarkupJSON              string
		hybridShare, globalMarkup, discount          string
		taxRate, installation                        string
	)
	err := row.Scan(&p.ID, &p.Name, &mode, &markupsJSON, &noMarkupJSON,
		&hybridShare, &globalMarkup, &discount, &taxRate, &installation)
	if err != nil {
		return p, err
	}

	p.Mode = pricing.PricingMode(mode)
	if markupsJSON != "" && markupsJSON != "null" {
		json.Unmarshal([]byte(markupsJSON), &p.CategoryMarkups)
	}
	if noMarkupJSON != "" && noMarkupJSON != "null" {
		json.Unmarshal([]byte(noMarkupJSON), &p.NoMarkup)
	}
	p.HybridExtrusionShare = mustDec(hybridShare)
	p.GlobalMarkup = mustDec(globalMarkup)
	p.Discount = mustDec(discount)
	p.TaxRate = mustDec(taxRate)
	p.Installation = mustDec(installation)
	return p, nil
}

// =============================================================================
// PROJECTS
// =============================================================================

// SaveProject upserts a project. CreatedAt is set on first insert.
func (s *Store) SaveProject(ctx context.Context, p quote.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `
		INSERT INTO projects (id, name, customer, profile_id, tax_rate, installation, needs_reprice, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			customer = excluded.customer,
			profile_id = excluded.profile_id,
			tax_rate = excluded.tax_rate,
			installation = excluded.installation,
			needs_reprice = excluded.needs_reprice
	`
	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.Name, p.Customer, p.ProfileID,
		p.TaxRate.String(), p.Installation.String(), p.NeedsReprice,
		createdAt.Format(time.RFC3339),
	)
	return err
}

// GetProject retrieves a project. Returns nil when missing.
func (s *Store) GetProject(ctx context.Context, id string) (*quote.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.getProject(ctx, id)
}

func (s *Store) getProject(ctx context.Context, id string) (*quote.Project, error) {
	var p quote.Project
	var taxRate, installation, createdAt string

	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, customer, profile_id, tax_rate, installation, needs_reprice, created_at FROM projects WHERE id = ?",
		id,
	).Scan(&p.ID, &p.Name, &p.Customer, &p.ProfileID, &taxRate, &installation, &p.NeedsReprice, &createdAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	p.TaxRate = mustDec(taxRate)
	p.Installation = mustDec(installation)
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &p, nil
}

// ListProjects returns all projects, newest first.
func (s *Store) ListProjects(ctx context.Context) ([]quote.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryProjects(ctx, "ORDER BY created_at DESC, id")
}

// ListProjectsNeedingReprice returns the scheduler's sweep set, oldest
// first so stale quotes go first.
func (s *Store) ListProjectsNeedingReprice(ctx context.Context) ([]quote.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryProjects(ctx, "WHERE needs_reprice = TRUE ORDER BY created_at, id")
}

func (s *Store) queryProjects(ctx context.Context, clause string, args ...any) ([]quote.Project, error) {
	query := "SELECT id, name, customer, profile_id, tax_rate, installation, needs_reprice, created_at FROM projects " + clause

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []quote.Project
	for rows.Next() {
		var p quote.Project
		var taxRate, installation, createdAt string
		if err := rows.Scan(&p.ID, &p.Name, &p.Customer, &p.ProfileID, &taxRate, &installation, &p.NeedsReprice, &createdAt); err != nil {
			return nil, err
		}
		p.TaxRate = mustDec(taxRate)
		p.Installation = mustDec(installation)
		p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// DeleteProject removes a project and cascades through openings, panels,
// components, and price runs.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	return err
}

// =============================================================================
// REPRICE FLAGS (catalog mutation hooks)
// =============================================================================

// FlagReferencingPart marks projects that place a product whose BOM uses
// the part. Returns the number of projects flagged.
func (s *Store) FlagReferencingPart(ctx context.Context, partNumber string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		UPDATE projects SET needs_reprice = TRUE WHERE id IN (
			SELECT DISTINCT o.project_id
			FROM components c
			JOIN panels p ON p.id = c.panel_id
			JOIN openings o ON o.id = p.opening_id
			WHERE c.product_id IN (SELECT product_id FROM product_bom WHERE part_number = ?)
		)
	`
	res, err := s.db.ExecContext(ctx, query, partNumber)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// FlagReferencingProduct marks projects that place the product.
func (s *Store) FlagReferencingProduct(ctx context.Context, productID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		UPDATE projects SET needs_reprice = TRUE WHERE id IN (
			SELECT DISTINCT o.project_id
			FROM components c
			JOIN panels p ON p.id = c.panel_id
			JOIN openings o ON o.id = p.opening_id
			WHERE c.product_id = ?
		)
	`
	res, err := s.db.ExecContext(ctx, query, productID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// FlagReferencingOption marks projects with a component selecting the
// option. The LIKE match on the selections JSON can over-flag; a spare
// reprice is harmless.
func (s *Store) FlagReferencingOption(ctx context.Context, optionID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		UPDATE projects SET needs_reprice = TRUE WHERE id IN (
			SELECT DISTINCT o.project_id
			FROM components c
			JOIN panels p ON p.id = c.panel_id
			JOIN openings o ON o.id = p.opening_id
			WHERE c.option_selections_json LIKE '%"' || ? || '"%'
		)
	`
	res, err := s.db.ExecContext(ctx, query, optionID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// FlagReferencingProfile marks projects assigned to the profile.
func (s *Store) FlagReferencingProfile(ctx context.Context, profileID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE projects SET needs_reprice = TRUE WHERE profile_id = ?", profileID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// =============================================================================
// OPENINGS
// =============================================================================

// SaveOpening upserts an opening, tolerance state included.
func (s *Store) SaveOpening(ctx context.Context, o quote.Opening) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return saveOpeningTx(ctx, s.db, o)
}

func saveOpeningTx(ctx context.Context, db execer, o quote.Opening) error {
	query := `
		INSERT INTO openings
		(id, project_id, mark, position, rough_width, rough_height, is_finished,
		 tolerance_product_id, width_tolerance_total, height_tolerance_total,
		 finished_width, finished_height)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			mark = excluded.mark,
			position = excluded.position,
			rough_width = excluded.rough_width,
			rough_height = excluded.rough_height,
			is_finished = excluded.is_finished,
			tolerance_product_id = excluded.tolerance_product_id,
			width_tolerance_total = excluded.width_tolerance_total,
			height_tolerance_total = excluded.height_tolerance_total,
			finished_width = excluded.finished_width,
			finished_height = excluded.finished_height
	`
	_, err := db.ExecContext(ctx, query,
		o.ID, o.ProjectID, o.Mark, o.Position,
		nullDecimal(o.RoughWidth), nullDecimal(o.RoughHeight), o.IsFinished,
		o.ToleranceProductID,
		o.WidthToleranceTotal.String(), o.HeightToleranceTotal.String(),
		nullDecimal(o.FinishedWidth), nullDecimal(o.FinishedHeight),
	)
	return err
}

// GetOpening retrieves an opening. Returns nil when missing.
func (s *Store) GetOpening(ctx context.Context, id string) (*quote.Opening, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	openings, err := s.queryOpenings(ctx, "WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(openings) == 0 {
		return nil, nil
	}
	return &openings[0], nil
}

// ListOpenings returns a project's openings in position order.
func (s *Store) ListOpenings(ctx context.Context, projectID string) ([]quote.Opening, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.listOpenings(ctx, projectID)
}

func (s *Store) listOpenings(ctx context.Context, projectID string) ([]quote.Opening, error) {
	return s.queryOpenings(ctx, "WHERE project_id = ? ORDER BY position, id", projectID)
}

func (s *Store) queryOpenings(ctx context.Context, clause string, args ...any) ([]quote.Opening, error) {
	query := `
		SELECT id, project_id, mark, position, rough_width, rough_height, is_finished,
		       tolerance_product_id, width_tolerance_total, height_tolerance_total,
		       finished_width, finished_height
		FROM openings ` + clause

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var openings []quote.Opening
	for rows.Next() {
		var (
			o                          quote.Opening
			roughW, roughH, finW, finH sql.NullString
			widthTol, heightTol        string
		)
		if err := rows.Scan(&o.ID, &o.ProjectID, &o.Mark, &o.Position,
			&roughW, &roughH, &o.IsFinished, &o.ToleranceProductID,
			&widthTol, &heightTol, &finW, &finH); err != nil {
			return nil, err
		}
		o.RoughWidth = decimalPtr(roughW)
		o.RoughHeight = decimalPtr(roughH)
		o.WidthToleranceTotal = mustDec(widthTol)
		o.HeightToleranceTotal = mustDec(heightTol)
		o.FinishedWidth = decimalPtr(finW)
		o.FinishedHeight = decimalPtr(finH)
		openings = append(openings, o)
	}
	return openings, rows.Err()
}

// DeleteOpening removes an opening; panels and components cascade.
func (s *Store) DeleteOpening(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM openings WHERE id = ?", id)
	return err
}

// =============================================================================
// PANELS
// =============================================================================

// SavePanel upserts a panel.
func (s *Store) SavePanel(ctx context.Context, p quote.Panel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return savePanelTx(ctx, s.db, p)
}

func savePanelTx(ctx context.Context, db execer, p quote.Panel) error {
	query := `
		INSERT INTO panels (id, opening_id, position, width, height, panel_type, direction)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			position = excluded.position,
			width = excluded.width,
			height = excluded.height,
			panel_type = excluded.panel_type,
			direction = excluded.direction
	`
	_, err := db.ExecContext(ctx, query,
		p.ID, p.OpeningID, p.Position,
		p.Width.String(), p.Height.String(),
		string(p.PanelType), string(p.Direction),
	)
	return err
}

// GetPanel retrieves a panel. Returns nil when missing.
func (s *Store) GetPanel(ctx context.Context, id string) (*quote.Panel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	panels, err := s.queryPanels(ctx, "WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(panels) == 0 {
		return nil, nil
	}
	return &panels[0], nil
}

// ListPanels returns an opening's panels in position order.
func (s *Store) ListPanels(ctx context.Context, openingID string) ([]quote.Panel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.listPanels(ctx, openingID)
}

func (s *Store) listPanels(ctx context.Context, openingID string) ([]quote.Panel, error) {
	return s.queryPanels(ctx, "WHERE opening_id = ? ORDER BY position, id", openingID)
}

func (s *Store) queryPanels(ctx context.Context, clause string, args ...any) ([]quote.Panel, error) {
	query := "SELECT id, opening_id, position, width, height, panel_type, direction FROM panels " + clause

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var panels []quote.Panel
	for rows.Next() {
		var p quote.Panel
		var width, height, panelType, direction string
		if err := rows.Scan(&p.ID, &p.OpeningID, &p.Position, &width, &height, &panelType, &direction); err != nil {
			return nil, err
		}
		p.Width = mustDec(width)
		p.Height = mustDec(height)
		p.PanelType = quote.PanelType(panelType)
		p.Direction = quote.Direction(direction)
		panels = append(panels, p)
	}
	return panels, rows.Err()
}

// DeletePanel removes a panel; its components cascade.
func (s *Store) DeletePanel(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return deletePanelTx(ctx, s.db, id)
}

func deletePanelTx(ctx context.Context, db execer, id string) error {
	_, err := db.ExecContext(ctx, "DELETE FROM panels WHERE id = ?", id)
	return err
}

// =============================================================================
// COMPONENTS
// =============================================================================

// SaveComponent upserts a component placement.
func (s *Store) SaveComponent(ctx context.Context, c quote.ComponentInstance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return saveComponentTx(ctx, s.db, c)
}

func saveComponentTx(ctx context.Context, db execer, c quote.ComponentInstance) error {
	selectionsJSON, _ := json.Marshal(c.OptionSelections)

	query := `
		INSERT INTO components (id, panel_id, product_id, quantity, option_selections_json, glass_cost)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			product_id = excluded.product_id,
			quantity = excluded.quantity,
			option_selections_json = excluded.option_selections_json,
			glass_cost = excluded.glass_cost
	`
	_, err := db.ExecContext(ctx, query,
		c.ID, c.PanelID, c.ProductID, c.Quantity,
		string(selectionsJSON), c.GlassCost.String(),
	)
	return err
}

// GetComponent retrieves a component. Returns nil when missing.
func (s *Store) GetComponent(ctx context.Context, id string) (*quote.ComponentInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	components, err := s.queryComponents(ctx, "WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(components) == 0 {
		return nil, nil
	}
	return &components[0], nil
}

// ListComponents returns a panel's components.
func (s *Store) ListComponents(ctx context.Context, panelID string) ([]quote.ComponentInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.listComponents(ctx, panelID)
}

func (s *Store) listComponents(ctx context.Context, panelID string) ([]quote.ComponentInstance, error) {
	return s.queryComponents(ctx, "WHERE panel_id = ? ORDER BY id", panelID)
}

func (s *Store) queryComponents(ctx context.Context, clause string, args ...any) ([]quote.ComponentInstance, error) {
	query := "SELECT id, panel_id, product_id, quantity, option_selections_json, glass_cost FROM components " + clause

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var components []quote.ComponentInstance
	for rows.Next() {
		var c quote.ComponentInstance
		var selectionsJSON sql.NullString
		var glassCost string
		if err := rows.Scan(&c.ID, &c.PanelID, &c.ProductID, &c.Quantity, &selectionsJSON, &glassCost); err != nil {
			return nil, err
		}
		if selectionsJSON.Valid && selectionsJSON.String != "" {
			json.Unmarshal([]byte(selectionsJSON.String), &c.OptionSelections)
		}
		c.GlassCost = mustDec(glassCost)
		components = append(components, c)
	}
	return components, rows.Err()
}

// DeleteComponent removes a component placement.
func (s *Store) DeleteComponent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return deleteComponentTx(ctx, s.db, id)
}

func deleteComponentTx(ctx context.Context, db execer, id string) error {
	_, err := db.ExecContext(ctx, "DELETE FROM components WHERE id = ?", id)
	return err
}

// ListOpeningProductIDs returns the product IDs placed on an opening in
// panel order. The tolerance resolver rescans these on detach.
func (s *Store) ListOpeningProductIDs(ctx context.Context, openingID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT c.product_id
		FROM components c
		JOIN panels p ON p.id = c.panel_id
		WHERE p.opening_id = ?
		ORDER BY p.position, p.id, c.id
	`
	rows, err := s.db.QueryContext(ctx, query, openingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// =============================================================================
// GRAPH LOADING
// =============================================================================

// LoadProjectGraph loads a project with every opening, panel, and
// component. Returns nil when the project does not exist.
func (s *Store) LoadProjectGraph(ctx context.Context, projectID string) (*quote.ProjectGraph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	project, err := s.getProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, nil
	}

	graph := &quote.ProjectGraph{Project: *project}

	openings, err := s.listOpenings(ctx, projectID)
	if err != nil {
		return nil, err
	}
	for _, opening := range openings {
		og := quote.OpeningGraph{Opening: opening}

		panels, err := s.listPanels(ctx, opening.ID)
		if err != nil {
			return nil, err
		}
		for _, panel := range panels {
			components, err := s.listComponents(ctx, panel.ID)
			if err != nil {
				return nil, err
			}
			og.Panels = append(og.Panels, quote.PanelGraph{Panel: panel, Components: components})
		}

		graph.Openings = append(graph.Openings, og)
	}

	return graph, nil
}

// =============================================================================
// PRICE RUNS (append-only)
// =============================================================================

// SavePriceRun appends a completed run with its lines and clears the
// project's reprice flag, all in one transaction. Runs are never updated.
func (s *Store) SavePriceRun(ctx context.Context, run quote.PriceRun, lines []quote.PriceRunLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if _, err := sqlTx.ExecContext(ctx, `
		INSERT INTO price_runs (id, project_id, run_at, subtotal_base, subtotal_marked_up, installation, tax_amount, grand_total)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.ProjectID, run.RunAt.UTC().Format(time.RFC3339),
		run.SubtotalBase.String(), run.SubtotalMarkedUp.String(),
		run.Installation.String(), run.TaxAmount.String(), run.GrandTotal.String(),
	); err != nil {
		return fmt.Errorf("failed to save price run: %w", err)
	}

	for i, line := range lines {
		if _, err := sqlTx.ExecContext(ctx, `
			INSERT INTO price_run_lines
			(run_id, position, opening_id, component_id, part_number, method, unit_cost, total_cost, details, category)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, i, line.OpeningID, line.ComponentID, line.PartNumber, line.Method,
			line.UnitCost.String(), line.TotalCost.String(), line.Details, string(line.Category),
		); err != nil {
			return fmt.Errorf("failed to save run line %d: %w", i, err)
		}
	}

	// A fresh run makes the project current again.
	if _, err := sqlTx.ExecContext(ctx,
		"UPDATE projects SET needs_reprice = FALSE WHERE id = ?", run.ProjectID); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// GetPriceRun retrieves a run by ID. Returns nil when missing.
func (s *Store) GetPriceRun(ctx context.Context, runID string) (*quote.PriceRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs, err := s.queryRuns(ctx, "WHERE id = ?", runID)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}

// LatestPriceRun returns a project's most recent run, or nil when the
// project has never been priced.
func (s *Store) LatestPriceRun(ctx context.Context, projectID string) (*quote.PriceRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs, err := s.queryRuns(ctx, "WHERE project_id = ? ORDER BY run_at DESC, id DESC LIMIT 1", projectID)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}

// ListPriceRuns returns a project's run history, newest first.
func (s *Store) ListPriceRuns(ctx context.Context, projectID string) ([]quote.PriceRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryRuns(ctx, "WHERE project_id = ? ORDER BY run_at DESC, id DESC", projectID)
}

func (s *Store) queryRuns(ctx context.Context, clause string, args ...any) ([]quote.PriceRun, error) {
	query := `
		SELECT id, project_id, run_at, subtotal_base, subtotal_marked_up, installation, tax_amount, grand_total
		FROM price_runs ` + clause

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []quote.PriceRun
	for rows.Next() {
		var (
			r                                   quote.PriceRun
			runAt, base, marked                 string
			installation, taxAmount, grandTotal string
		)
		if err := rows.Scan(&r.ID, &r.ProjectID, &runAt, &base, &marked, &installation, &taxAmount, &grandTotal); err != nil {
			return nil, err
		}
		r.RunAt, _ = time.Parse(time.RFC3339, runAt)
		r.SubtotalBase = mustDec(base)
		r.SubtotalMarkedUp = mustDec(marked)
		r.Installation = mustDec(installation)
		r.TaxAmount = mustDec(taxAmount)
		r.GrandTotal = mustDec(grandTotal)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ListRunLines returns a run's lines in priced order.
func (s *Store) ListRunLines(ctx context.Context, runID string) ([]quote.PriceRunLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryRunLines(ctx, "WHERE run_id = ? ORDER BY position", runID)
}

// ListRunLinesForOpening returns a run's lines for one opening, the
// breakdown view.
func (s *Store) ListRunLinesForOpening(ctx context.Context, runID, openingID string) ([]quote.PriceRunLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryRunLines(ctx, "WHERE run_id = ? AND opening_id = ? ORDER BY position", runID, openingID)
}

func (s *Store) queryRunLines(ctx context.Context, clause string, args ...any) ([]quote.PriceRunLine, error) {
	query := `
		SELECT run_id, opening_id, component_id, part_number, method, unit_cost, total_cost, details, category
		FROM price_run_lines ` + clause

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []quote.PriceRunLine
	for rows.Next() {
		var line quote.PriceRunLine
		var unitCost, totalCost, category string
		if err := rows.Scan(&line.RunID, &line.OpeningID, &line.ComponentID, &line.PartNumber,
			&line.Method, &unitCost, &totalCost, &line.Details, &category); err != nil {
			return nil, err
		}
		line.UnitCost = mustDec(unitCost)
		line.TotalCost = mustDec(totalCost)
		line.Category = pricing.CostCategory(category)
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// execer is the common write surface of *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Tx exposes the writes that must commit together: component attach and
// detach both change a component row AND the opening's tolerance state.
type Tx struct {
	tx *sql.Tx
}

func (t *Tx) SaveOpening(ctx context.Context, o quote.Opening) error {
	return saveOpeningTx(ctx, t.tx, o)
}

func (t *Tx) SavePanel(ctx context.Context, p quote.Panel) error {
	return savePanelTx(ctx, t.tx, p)
}

func (t *Tx) DeletePanel(ctx context.Context, id string) error {
	return deletePanelTx(ctx, t.tx, id)
}

func (t *Tx) SaveComponent(ctx context.Context, c quote.ComponentInstance) error {
	return saveComponentTx(ctx, t.tx, c)
}

func (t *Tx) DeleteComponent(ctx context.Context, id string) error {
	return deleteComponentTx(ctx, t.tx, id)
}

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&Tx{tx: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// =============================================================================
// CATALOG SOURCE VIEW (catalog.Source)
// =============================================================================

// The calculator reads the catalog through context-free lookups. Errors
// surface as misses here; the CRUD methods above are the error-reporting
// path.

var _ catalog.Source = (*Store)(nil)

// MasterPart implements pricing.PartSource. A failed lookup is a miss;
// the engine prices misses to no_cost_found.
func (s *Store) MasterPart(partNumber string) (pricing.MasterPart, bool) {
	part, err := s.GetPart(context.Background(), partNumber)
	if err != nil || part == nil {
		return pricing.MasterPart{}, false
	}
	return *part, true
}

func (s *Store) Product(id string) (catalog.Product, bool) {
	product, err := s.GetProduct(context.Background(), id)
	if err != nil || product == nil {
		return catalog.Product{}, false
	}
	return *product, true
}

func (s *Store) Products() []catalog.Product {
	products, err := s.ListProducts(context.Background())
	if err != nil {
		return nil
	}
	return products
}

func (s *Store) Option(id string) (catalog.HardwareOption, bool) {
	option, err := s.GetOption(context.Background(), id)
	if err != nil || option == nil {
		return catalog.HardwareOption{}, false
	}
	return *option, true
}

func (s *Store) Options() []catalog.HardwareOption {
	options, err := s.ListOptions(context.Background())
	if err != nil {
		return nil
	}
	return options
}

func (s *Store) Profile(id string) (pricing.MarkupProfile, bool) {
	profile, err := s.GetProfile(context.Background(), id)
	if err != nil || profile == nil {
		return pricing.MarkupProfile{}, false
	}
	return *profile, true
}

func (s *Store) Profiles() []pricing.MarkupProfile {
	profiles, err := s.ListProfiles(context.Background())
	if err != nil {
		return nil
	}
	return profiles
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo scenarios).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Children first so foreign keys stay satisfied
	tables := []string{
		"price_run_lines", "price_runs",
		"components", "panels", "openings", "projects",
		"product_bom", "products",
		"pricing_rules", "stock_length_rules", "master_parts",
		"hardware_options", "markup_profiles",
	}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

func mustDec(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	return pricing.MustParseDecimal(s)
}

// nullDecimal maps a nil decimal to SQL NULL; set values store as TEXT.
func nullDecimal(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func decimalPtr(ns sql.NullString) *decimal.Decimal {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	d := mustDec(ns.String)
	return &d
}
