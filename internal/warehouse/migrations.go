package warehouse

import (
	"context"
	"fmt"
)

// migration is one step of the local warehouse schema.
type migration struct {
	Version int
	Name    string
	SQL     string
	Fixture bool // applied only when fixtures are requested
}

// migrations mirror the relations the dashboard reads in the cloud
// warehouse so the sqlite driver can serve the same queries.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create canonical product tables",
		SQL: `
			CREATE TABLE ABT_PRODUCTS_CANONICAL (
				PRODUCT_ID  TEXT PRIMARY KEY,
				NAME        TEXT NOT NULL,
				BRAND       TEXT NOT NULL DEFAULT '',
				PRICE       REAL
			);

			CREATE TABLE BUY_PRODUCTS_CANONICAL (
				PRODUCT_ID  TEXT PRIMARY KEY,
				NAME        TEXT NOT NULL,
				BRAND       TEXT NOT NULL DEFAULT '',
				PRICE       REAL
			);
		`,
	},
	{
		Version: 2,
		Name:    "create matching relations",
		SQL: `
			CREATE TABLE SIMILARITY_SCORES (
				ABT_PRODUCT_ID    TEXT NOT NULL REFERENCES ABT_PRODUCTS_CANONICAL(PRODUCT_ID),
				BUY_PRODUCT_ID    TEXT NOT NULL REFERENCES BUY_PRODUCTS_CANONICAL(PRODUCT_ID),
				SIMILARITY_SCORE  REAL NOT NULL,
				PRIMARY KEY (ABT_PRODUCT_ID, BUY_PRODUCT_ID)
			);

			CREATE INDEX idx_similarity_score ON SIMILARITY_SCORES (SIMILARITY_SCORE);

			CREATE TABLE FINAL_PRODUCT_MATCHES (
				ABT_PRODUCT_ID    TEXT NOT NULL,
				BUY_PRODUCT_ID    TEXT NOT NULL,
				PRODUCT_NAME      TEXT NOT NULL,
				SIMILARITY_SCORE  REAL NOT NULL,
				MATCHED_AT        TEXT NOT NULL DEFAULT (datetime('now')),
				PRIMARY KEY (ABT_PRODUCT_ID, BUY_PRODUCT_ID)
			);

			CREATE TABLE MATCHING_METRICS (
				RUN_AT             TEXT NOT NULL DEFAULT (datetime('now')),
				TOTAL_CANDIDATES   INTEGER NOT NULL,
				CONFIRMED_MATCHES  INTEGER NOT NULL,
				AVG_SIMILARITY     REAL
			);
		`,
	},
	{
		Version: 3,
		Name:    "create pricing and market relations",
		SQL: `
			CREATE TABLE PRICE_COMPARISON (
				PRODUCT_NAME      TEXT NOT NULL,
				ABT_PRICE         REAL,
				BUY_PRICE         REAL,
				PRICE_DIFFERENCE  REAL,
				CHEAPER_RETAILER  TEXT NOT NULL
			);

			CREATE TABLE MARKET_WEEKLY_SALES (
				WEEK      TEXT NOT NULL,
				RETAILER  TEXT NOT NULL,
				UNITS     INTEGER NOT NULL,
				PRIMARY KEY (WEEK, RETAILER)
			);

			CREATE VIEW MARKET_INTELLIGENCE_SV AS
			SELECT
				m.WEEK AS WEEK,
				m.RETAILER AS RETAILER,
				CAST(m.UNITS AS REAL) / (SELECT SUM(t.UNITS) FROM MARKET_WEEKLY_SALES t WHERE t.WEEK = m.WEEK) AS MARKET_SHARE
			FROM MARKET_WEEKLY_SALES m;
		`,
	},
	{
		Version: 4,
		Name:    "seed sample products",
		Fixture: true,
		SQL: `
			INSERT INTO ABT_PRODUCTS_CANONICAL (PRODUCT_ID, NAME, BRAND, PRICE) VALUES
				('A-100', 'Sony Bravia 55" 4K TV', 'Sony', 899.99),
				('A-101', 'Bose QuietComfort Headphones', 'Bose', 329.00),
				('A-102', 'Canon EOS R50 Camera', 'Canon', 679.00),
				('A-103', 'KitchenAid Stand Mixer', 'KitchenAid', 429.95),
				('A-104', 'Garmin Forerunner 265', 'Garmin', 449.99);

			INSERT INTO BUY_PRODUCTS_CANONICAL (PRODUCT_ID, NAME, BRAND, PRICE) VALUES
				('B-200', 'Sony 55 in Bravia 4K Ultra HD TV', 'Sony', 879.00),
				('B-201', 'Bose QC Wireless Headphones', 'Bose', 349.00),
				('B-202', 'Canon EOS R50 Mirrorless', 'Canon', 679.00),
				('B-203', 'KitchenAid Artisan Mixer 5qt', 'KitchenAid', 399.99),
				('B-204', 'Garmin Forerunner 965', 'Garmin', 599.99);

			INSERT INTO SIMILARITY_SCORES (ABT_PRODUCT_ID, BUY_PRODUCT_ID, SIMILARITY_SCORE) VALUES
				('A-100', 'B-200', 0.94),
				('A-101', 'B-201', 0.88),
				('A-102', 'B-202', 0.97),
				('A-103', 'B-203', 0.83),
				('A-104', 'B-204', 0.71),
				('A-100', 'B-204', 0.12);

			INSERT INTO FINAL_PRODUCT_MATCHES (ABT_PRODUCT_ID, BUY_PRODUCT_ID, PRODUCT_NAME, SIMILARITY_SCORE, MATCHED_AT) VALUES
				('A-100', 'B-200', 'Sony Bravia 55" 4K TV', 0.94, '2025-06-02 08:00:00'),
				('A-101', 'B-201', 'Bose QuietComfort Headphones', 0.88, '2025-06-02 08:00:00'),
				('A-102', 'B-202', 'Canon EOS R50 Camera', 0.97, '2025-06-02 08:00:00'),
				('A-103', 'B-203', 'KitchenAid Stand Mixer', 0.83, '2025-06-02 08:00:00');

			INSERT INTO MATCHING_METRICS (RUN_AT, TOTAL_CANDIDATES, CONFIRMED_MATCHES, AVG_SIMILARITY) VALUES
				('2025-06-02 08:00:00', 6, 4, 0.905);

			INSERT INTO PRICE_COMPARISON (PRODUCT_NAME, ABT_PRICE, BUY_PRICE, PRICE_DIFFERENCE, CHEAPER_RETAILER) VALUES
				('Sony Bravia 55" 4K TV', 899.99, 879.00, 20.99, 'Buy'),
				('Bose QuietComfort Headphones', 329.00, 349.00, -20.00, 'Abt'),
				('Canon EOS R50 Camera', 679.00, 679.00, 0.00, 'Tie'),
				('KitchenAid Stand Mixer', 429.95, 399.99, 29.96, 'Buy');

			INSERT INTO MARKET_WEEKLY_SALES (WEEK, RETAILER, UNITS) VALUES
				('2025-05-12', 'Abt', 410), ('2025-05-12', 'Buy', 590),
				('2025-05-19', 'Abt', 455), ('2025-05-19', 'Buy', 545),
				('2025-05-26', 'Abt', 470), ('2025-05-26', 'Buy', 530),
				('2025-06-02', 'Abt', 520), ('2025-06-02', 'Buy', 480);
		`,
	},
}

// localProcedures are the sqlite equivalents of the warehouse procedures.
var localProcedures = map[string]string{
	ProcProductMatching: `
		DELETE FROM FINAL_PRODUCT_MATCHES;
		INSERT INTO FINAL_PRODUCT_MATCHES (ABT_PRODUCT_ID, BUY_PRODUCT_ID, PRODUCT_NAME, SIMILARITY_SCORE)
			SELECT s.ABT_PRODUCT_ID, s.BUY_PRODUCT_ID, a.NAME, s.SIMILARITY_SCORE
			FROM SIMILARITY_SCORES s
			JOIN ABT_PRODUCTS_CANONICAL a ON a.PRODUCT_ID = s.ABT_PRODUCT_ID
			WHERE s.SIMILARITY_SCORE >= 0.8;
		INSERT INTO MATCHING_METRICS (TOTAL_CANDIDATES, CONFIRMED_MATCHES, AVG_SIMILARITY)
			SELECT
				(SELECT COUNT(*) FROM SIMILARITY_SCORES),
				(SELECT COUNT(*) FROM FINAL_PRODUCT_MATCHES),
				(SELECT AVG(SIMILARITY_SCORE) FROM FINAL_PRODUCT_MATCHES);
	`,
	ProcPriceOptimization: `
		DELETE FROM PRICE_COMPARISON;
		INSERT INTO PRICE_COMPARISON (PRODUCT_NAME, ABT_PRICE, BUY_PRICE, PRICE_DIFFERENCE, CHEAPER_RETAILER)
			SELECT f.PRODUCT_NAME, a.PRICE, b.PRICE, a.PRICE - b.PRICE,
				CASE WHEN a.PRICE < b.PRICE THEN 'Abt' WHEN b.PRICE < a.PRICE THEN 'Buy' ELSE 'Tie' END
			FROM FINAL_PRODUCT_MATCHES f
			JOIN ABT_PRODUCTS_CANONICAL a ON a.PRODUCT_ID = f.ABT_PRODUCT_ID
			JOIN BUY_PRODUCTS_CANONICAL b ON b.PRODUCT_ID = f.BUY_PRODUCT_ID;
	`,
	ProcMarketRefresh: `
		INSERT OR REPLACE INTO MARKET_WEEKLY_SALES (WEEK, RETAILER, UNITS)
			SELECT date('now', 'weekday 0', '-6 days'), CHEAPER_RETAILER, COUNT(*)
			FROM PRICE_COMPARISON
			WHERE CHEAPER_RETAILER IN ('Abt', 'Buy')
			GROUP BY CHEAPER_RETAILER;
	`,
}

// migrate applies pending migrations. Fixture migrations run only when
// seed is set.
func (db *DB) migrate(ctx context.Context, seed bool) error {
	if _, err := db.sql.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`); err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}

	for _, m := range migrations {
		if m.Fixture && !seed {
			continue
		}
		applied, err := db.isMigrationApplied(ctx, m.Version)
		if err != nil {
			return err
		}
		if applied {
			continue
		}

		db.log.Info().Int("version", m.Version).Str("name", m.Name).Msg("applying migration")

		tx, err := db.sql.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}
		if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Name, err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", m.Version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}
	return nil
}

func (db *DB) isMigrationApplied(ctx context.Context, version int) (bool, error) {
	var count int
	err := db.sql.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE version = ?", version).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking migration %d: %w", version, err)
	}
	return count > 0, nil
}
