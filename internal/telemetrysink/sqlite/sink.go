// Package sqlite adapts the core's telemetry.Sink interface onto a SQLite
// database, grounded on the teacher's sqlx/modernc.org-sqlite connection and
// migration style.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/mini-world/internal/econ"
	"github.com/talgya/mini-world/internal/telemetry"
)

// Sink persists telemetry events to four tables: runs, trades, decisions,
// and snapshots.
type Sink struct {
	conn       *sqlx.DB
	runID      string
	tradeCount int64
	closed     bool
}

var _ telemetry.Sink = (*Sink)(nil)

// Open opens or creates a SQLite database at path and migrates its schema.
func Open(path string) (*Sink, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open telemetry db: %w", err)
	}
	s := &Sink{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate telemetry db: %w", err)
	}
	return s, nil
}

func (s *Sink) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		scenario_fingerprint TEXT NOT NULL,
		seed INTEGER NOT NULL,
		started_at TEXT NOT NULL,
		ended_at TEXT,
		final_tick INTEGER
	);

	CREATE TABLE IF NOT EXISTS trades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		buyer_id INTEGER NOT NULL,
		seller_id INTEGER NOT NULL,
		pos_x INTEGER NOT NULL,
		pos_y INTEGER NOT NULL,
		da INTEGER NOT NULL,
		db INTEGER NOT NULL,
		dm INTEGER NOT NULL,
		price REAL NOT NULL,
		exchange_pair TEXT NOT NULL,
		buyer_lambda REAL NOT NULL,
		seller_lambda REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS decisions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		agent_id INTEGER NOT NULL,
		chosen_partner_id INTEGER,
		surplus REAL NOT NULL,
		target_type TEXT NOT NULL,
		target_x INTEGER NOT NULL,
		target_y INTEGER NOT NULL,
		num_neighbors INTEGER NOT NULL,
		alternatives INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		kind TEXT NOT NULL,
		agent_id INTEGER,
		pos_x INTEGER NOT NULL,
		pos_y INTEGER NOT NULL,
		payload_json TEXT NOT NULL
	);
	`
	_, err := s.conn.Exec(schema)
	return err
}

func (s *Sink) OnRunStart(scenarioFingerprint string, seed int64, startTime time.Time) {
	s.runID = uuid.New().String()
	_, _ = s.conn.Exec(
		`INSERT INTO runs (run_id, scenario_fingerprint, seed, started_at) VALUES (?, ?, ?, ?)`,
		s.runID, scenarioFingerprint, seed, startTime.UTC().Format(time.RFC3339Nano),
	)
}

func (s *Sink) OnTickState(tick uint64, mode string, regime econ.Regime) {}

func (s *Sink) OnModeChange(tick uint64, oldMode, newMode string) {}

func (s *Sink) OnAgentSnapshot(snap telemetry.AgentSnapshot) {
	payload, _ := json.Marshal(snap)
	_, _ = s.conn.Exec(
		`INSERT INTO snapshots (run_id, tick, kind, agent_id, pos_x, pos_y, payload_json) VALUES (?, ?, 'agent', ?, ?, ?, ?)`,
		s.runID, snap.Tick, snap.AgentID, snap.Pos.X, snap.Pos.Y, string(payload),
	)
}

func (s *Sink) OnResourceSnapshot(snap telemetry.ResourceSnapshot) {
	payload, _ := json.Marshal(snap)
	_, _ = s.conn.Exec(
		`INSERT INTO snapshots (run_id, tick, kind, agent_id, pos_x, pos_y, payload_json) VALUES (?, ?, 'resource', NULL, ?, ?, ?)`,
		s.runID, snap.Tick, snap.Pos.X, snap.Pos.Y, string(payload),
	)
}

func (s *Sink) OnDecision(d telemetry.Decision) {
	var partner sql.NullInt64
	if d.ChosenPartnerID != nil {
		partner = sql.NullInt64{Int64: int64(*d.ChosenPartnerID), Valid: true}
	}
	_, _ = s.conn.Exec(
		`INSERT INTO decisions (run_id, tick, agent_id, chosen_partner_id, surplus, target_type, target_x, target_y, num_neighbors, alternatives)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.runID, d.Tick, d.AgentID, partner, d.Surplus, string(d.TargetType), d.TargetPos.X, d.TargetPos.Y, d.NumNeighbors, d.Alternatives,
	)
}

func (s *Sink) OnTradeAttempt(telemetry.TradeAttempt) {
	// Per-attempt diagnostics are DEBUG-level and intentionally not
	// persisted by the reference adapter; a DEBUG-aware sink can wrap this
	// one and add its own table if needed.
}

func (s *Sink) OnTradeExecuted(t telemetry.TradeExecuted) {
	s.tradeCount++
	_, _ = s.conn.Exec(
		`INSERT INTO trades (run_id, tick, buyer_id, seller_id, pos_x, pos_y, da, db, dm, price, exchange_pair, buyer_lambda, seller_lambda)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.runID, t.Tick, t.BuyerID, t.SellerID, t.Pos.X, t.Pos.Y, t.DA, t.DB, t.DM, t.Price, string(t.Pair), t.BuyerLambda, t.SellerLambda,
	)
}

func (s *Sink) OnRunEnd(tick uint64, endTime time.Time) {
	_, _ = s.conn.Exec(
		`UPDATE runs SET ended_at = ?, final_tick = ? WHERE run_id = ?`,
		endTime.UTC().Format(time.RFC3339Nano), tick, s.runID,
	)
	slog.Info("telemetry run finished",
		"run_id", s.runID, "ticks", humanize.Comma(int64(tick)), "trades", humanize.Comma(s.tradeCount),
	)
}

// Close closes the underlying database connection. Idempotent.
func (s *Sink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close()
}
