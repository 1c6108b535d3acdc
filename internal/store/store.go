// Package store caches lowered units and their liveness tables in SQLite.
//
// Entries are content addressed: the key is a BLAKE3 hash over the source
// text and the lowering options, so a cached entry is valid for as long as
// neither changes.
package store

import (
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"dbd/internal/ir"
	"dbd/internal/lower"
	"dbd/internal/lva"

	_ "github.com/mattn/go-sqlite3"
	"github.com/tliron/commonlog"
	"github.com/zeebo/blake3"
)

var log = commonlog.GetLogger("dbd.store")

// Store is the SQLite cache.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the tables. Idempotent.
func (s *Store) Migrate() error {
	if _, err := s.db.Exec(schemaDDL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS units (
  hash            TEXT NOT NULL,
  function_id     TEXT NOT NULL,
  ordinal         INTEGER NOT NULL,
  file            TEXT NOT NULL,
  name            TEXT NOT NULL,
  document        BLOB NOT NULL,
  PRIMARY KEY (hash, function_id)
);

CREATE TABLE IF NOT EXISTS liveness (
  hash            TEXT NOT NULL,
  function_id     TEXT NOT NULL,
  block_id        INTEGER NOT NULL,
  live_in         TEXT NOT NULL,
  live_out        TEXT NOT NULL,
  PRIMARY KEY (hash, function_id, block_id),
  FOREIGN KEY (hash, function_id) REFERENCES units(hash, function_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_units_file ON units(file);
`

// Key hashes a source text together with the options it is lowered with.
// Host globals are hashed in the order given, since that order fixes the
// value numbering of the global scope.
func Key(source []byte, opts lower.Options) string {
	h := blake3.New()
	fmt.Fprintf(h, "file:%s\n", opts.FileName)
	fmt.Fprintf(h, "globals:%s\n", strings.Join(opts.HostGlobals, ","))
	fmt.Fprintf(h, "implicit-return:%t\n", !opts.OmitImplicitReturn)
	h.Write(source)
	return hex.EncodeToString(h.Sum(nil))
}

// PutUnit stores the binary encoding of info under hash. ordinal fixes the
// position of the unit when all units of a hash are read back.
func (s *Store) PutUnit(hash string, ordinal int, info *ir.FunctionInfo) error {
	return putUnit(s.db, hash, ordinal, info)
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func putUnit(db execer, hash string, ordinal int, info *ir.FunctionInfo) error {
	data, err := ir.MarshalBinary(info)
	if err != nil {
		return fmt.Errorf("put unit %s: %w", info.ID, err)
	}
	_, err = db.Exec(
		`INSERT OR REPLACE INTO units (hash, function_id, ordinal, file, name, document)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		hash, info.ID, ordinal, info.FileName, info.Definition.Name, data,
	)
	if err != nil {
		return fmt.Errorf("put unit %s: %w", info.ID, err)
	}
	return nil
}

// Unit loads one unit. It returns nil, nil when the unit is not cached.
func (s *Store) Unit(hash, functionID string) (*ir.FunctionInfo, error) {
	var data []byte
	err := s.db.QueryRow(
		"SELECT document FROM units WHERE hash = ? AND function_id = ?", hash, functionID,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("unit %s: %w", functionID, err)
	}
	info, err := ir.UnmarshalBinary(data)
	if err != nil {
		return nil, fmt.Errorf("unit %s: %w", functionID, err)
	}
	return info, nil
}

// Units loads every unit stored under hash in their original order.
func (s *Store) Units(hash string) ([]*ir.FunctionInfo, error) {
	rows, err := s.db.Query("SELECT function_id, document FROM units WHERE hash = ? ORDER BY ordinal", hash)
	if err != nil {
		return nil, fmt.Errorf("units: %w", err)
	}
	defer rows.Close()

	var out []*ir.FunctionInfo
	for rows.Next() {
		var id string
		var data []byte
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("units: scan: %w", err)
		}
		info, err := ir.UnmarshalBinary(data)
		if err != nil {
			return nil, fmt.Errorf("units: %s: %w", id, err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// BlockLiveness is the stored live-in and live-out of one block.
type BlockLiveness struct {
	Block   ir.BlockID
	LiveIn  []string
	LiveOut []string
}

// PutLiveness stores a solved table for the unit t.Function.
func (s *Store) PutLiveness(hash string, t *lva.Table) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("put liveness: begin: %w", err)
	}
	defer tx.Rollback()
	if err := putLiveness(tx, hash, t); err != nil {
		return err
	}
	return tx.Commit()
}

func putLiveness(db execer, hash string, t *lva.Table) error {
	for _, lv := range t.Blocks {
		in, err := json.Marshal(lv.In.Names())
		if err != nil {
			return fmt.Errorf("put liveness: %w", err)
		}
		out, err := json.Marshal(lv.Out.Names())
		if err != nil {
			return fmt.Errorf("put liveness: %w", err)
		}
		_, err = db.Exec(
			`INSERT OR REPLACE INTO liveness (hash, function_id, block_id, live_in, live_out)
			 VALUES (?, ?, ?, ?, ?)`,
			hash, t.Function, int(lv.Block), string(in), string(out),
		)
		if err != nil {
			return fmt.Errorf("put liveness %s %s: %w", t.Function, lv.Block, err)
		}
	}
	return nil
}

// Liveness loads the stored table of a unit ordered by block. A unit without
// stored liveness yields an empty slice.
func (s *Store) Liveness(hash, functionID string) ([]BlockLiveness, error) {
	rows, err := s.db.Query(
		"SELECT block_id, live_in, live_out FROM liveness WHERE hash = ? AND function_id = ? ORDER BY block_id",
		hash, functionID,
	)
	if err != nil {
		return nil, fmt.Errorf("liveness: %w", err)
	}
	defer rows.Close()

	var out []BlockLiveness
	for rows.Next() {
		var block int
		var in, live string
		if err := rows.Scan(&block, &in, &live); err != nil {
			return nil, fmt.Errorf("liveness: scan: %w", err)
		}
		b := BlockLiveness{Block: ir.BlockID(block)}
		if err := json.Unmarshal([]byte(in), &b.LiveIn); err != nil {
			return nil, fmt.Errorf("liveness: live_in of %s: %w", b.Block, err)
		}
		if err := json.Unmarshal([]byte(live), &b.LiveOut); err != nil {
			return nil, fmt.Errorf("liveness: live_out of %s: %w", b.Block, err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// PutResult stores every unit of result with its liveness in one
// transaction.
func (s *Store) PutResult(hash string, result *lower.Result) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("put result: begin: %w", err)
	}
	defer tx.Rollback()

	for i, unit := range result.Units {
		if err := putUnit(tx, hash, i, unit.Info); err != nil {
			return err
		}
		if err := putLiveness(tx, hash, lva.Analyze(unit.Info, unit.References)); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("put result: commit: %w", err)
	}
	log.Debugf("cached %d units under %s", len(result.Units), hash)
	return nil
}
