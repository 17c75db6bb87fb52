// Package storage keeps decoded frames in a local SQLite database.
package storage

import (
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"adsbframe/internal/adsb"
)

// Record is one stored frame.
type Record struct {
	ID          int64
	Received    time.Time
	RawHex      string
	FrameBytes  int
	DF          uint8
	CA          uint8
	Address     string
	CRCMatch    bool
	PayloadKind string
	MessageKind string // empty unless DF 17
	TypeCode    int    // -1 unless DF 17
	DecodedJSON string

	// Receiver metadata, only known for Beast input.
	ReceiverTicks sql.NullInt64 // 12 MHz counter
	SignalLevel   sql.NullFloat64
}

// SetReceiver records the receiver timestamp and normalised signal level.
func (r *Record) SetReceiver(ticks uint64, signal float64) {
	r.ReceiverTicks = sql.NullInt64{Int64: int64(ticks), Valid: true}
	r.SignalLevel = sql.NullFloat64{Float64: signal, Valid: true}
}

// NewRecord flattens a decoded frame into a storable record.
func NewRecord(frame *adsb.Frame, raw []byte, received time.Time) (*Record, error) {
	decoded, err := json.Marshal(frame)
	if err != nil {
		return nil, fmt.Errorf("marshal frame: %w", err)
	}

	rec := &Record{
		Received:    received,
		RawHex:      hex.EncodeToString(raw),
		FrameBytes:  frame.Bytes,
		DF:          frame.DF,
		CA:          frame.CA,
		Address:     frame.Address.String(),
		CRCMatch:    frame.CRCMatch,
		TypeCode:    -1,
		DecodedJSON: string(decoded),
	}
	if frame.Payload != nil {
		rec.PayloadKind = string(frame.Payload.PayloadKind())
	}
	if msg := frame.Message(); msg != nil {
		rec.MessageKind = string(msg.Kind())
		rec.TypeCode = int(msg.TypeCode())
	}
	return rec, nil
}

// DB wraps a SQLite database connection for frame storage.
type DB struct {
	db *sql.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent access.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	if err := createSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS frames (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		received TEXT NOT NULL,
		raw_hex TEXT NOT NULL,
		frame_bytes INTEGER NOT NULL,
		df INTEGER NOT NULL,
		ca INTEGER NOT NULL,
		address TEXT NOT NULL,
		crc_match INTEGER NOT NULL,
		payload_kind TEXT NOT NULL,
		message_kind TEXT,
		type_code INTEGER,
		decoded_json TEXT NOT NULL,
		receiver_ticks INTEGER,
		signal_level REAL,
		created_at TEXT DEFAULT (datetime('now'))
	);

	CREATE INDEX IF NOT EXISTS idx_frames_address ON frames(address);
	CREATE INDEX IF NOT EXISTS idx_frames_df ON frames(df);
	CREATE INDEX IF NOT EXISTS idx_frames_received ON frames(received);
	`

	_, err := db.Exec(schema)
	return err
}

// InsertBatch inserts records in a single transaction.
func (d *DB) InsertBatch(records []*Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`INSERT INTO frames (
		received, raw_hex, frame_bytes, df, ca, address, crc_match,
		payload_kind, message_kind, type_code, decoded_json,
		receiver_ticks, signal_level
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range records {
		var messageKind sql.NullString
		var typeCode sql.NullInt64
		if r.MessageKind != "" {
			messageKind = sql.NullString{String: r.MessageKind, Valid: true}
		}
		if r.TypeCode >= 0 {
			typeCode = sql.NullInt64{Int64: int64(r.TypeCode), Valid: true}
		}

		if _, err := stmt.Exec(
			r.Received.UTC().Format(time.RFC3339Nano),
			r.RawHex,
			r.FrameBytes,
			r.DF,
			r.CA,
			r.Address,
			r.CRCMatch,
			r.PayloadKind,
			messageKind,
			typeCode,
			r.DecodedJSON,
			r.ReceiverTicks,
			r.SignalLevel,
		); err != nil {
			return fmt.Errorf("insert frame: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// QueryParams contains filtering options for querying frames.
type QueryParams struct {
	Address     string // exact match, lowercase hex
	DF          *uint8
	MessageKind string
	Limit       int // default 100
	OrderDesc   bool
}

// Query retrieves frames matching the given parameters, ordered by id.
func (d *DB) Query(p QueryParams) ([]Record, error) {
	var conditions []string
	var args []interface{}

	if p.Address != "" {
		conditions = append(conditions, "address = ?")
		args = append(args, strings.ToLower(p.Address))
	}
	if p.DF != nil {
		conditions = append(conditions, "df = ?")
		args = append(args, *p.DF)
	}
	if p.MessageKind != "" {
		conditions = append(conditions, "message_kind = ?")
		args = append(args, p.MessageKind)
	}

	query := `SELECT id, received, raw_hex, frame_bytes, df, ca, address, crc_match,
		payload_kind, message_kind, type_code, decoded_json, receiver_ticks, signal_level FROM frames`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	direction := "ASC"
	if p.OrderDesc {
		direction = "DESC"
	}
	limit := 100
	if p.Limit > 0 {
		limit = p.Limit
	}
	query += fmt.Sprintf(" ORDER BY id %s LIMIT %d", direction, limit)

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query frames: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []Record
	for rows.Next() {
		var r Record
		var received string
		var messageKind sql.NullString
		var typeCode sql.NullInt64

		if err := rows.Scan(&r.ID, &received, &r.RawHex, &r.FrameBytes, &r.DF, &r.CA, &r.Address,
			&r.CRCMatch, &r.PayloadKind, &messageKind, &typeCode, &r.DecodedJSON,
			&r.ReceiverTicks, &r.SignalLevel); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		r.Received, _ = time.Parse(time.RFC3339Nano, received)
		r.MessageKind = messageKind.String
		r.TypeCode = -1
		if typeCode.Valid {
			r.TypeCode = int(typeCode.Int64)
		}
		records = append(records, r)
	}

	return records, rows.Err()
}

// Stats returns aggregate statistics about stored frames.
type Stats struct {
	TotalFrames   int            `json:"total_frames"`
	CRCMismatches int            `json:"crc_mismatches"`
	ByDF          map[uint8]int  `json:"by_df"`
	ByMessageKind map[string]int `json:"by_message_kind"`
}

// GetStats returns statistics about the stored frames.
func (d *DB) GetStats() (*Stats, error) {
	stats := &Stats{
		ByDF:          make(map[uint8]int),
		ByMessageKind: make(map[string]int),
	}

	row := d.db.QueryRow("SELECT COUNT(*), COALESCE(SUM(crc_match = 0), 0) FROM frames")
	if err := row.Scan(&stats.TotalFrames, &stats.CRCMismatches); err != nil {
		return nil, err
	}

	rows, err := d.db.Query("SELECT df, COUNT(*) FROM frames GROUP BY df")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var df uint8
		var count int
		if err := rows.Scan(&df, &count); err != nil {
			_ = rows.Close()
			return nil, err
		}
		stats.ByDF[df] = count
	}
	_ = rows.Close()

	rows, err = d.db.Query("SELECT message_kind, COUNT(*) FROM frames WHERE message_kind IS NOT NULL GROUP BY message_kind")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			_ = rows.Close()
			return nil, err
		}
		stats.ByMessageKind[kind] = count
	}
	_ = rows.Close()

	return stats, nil
}
