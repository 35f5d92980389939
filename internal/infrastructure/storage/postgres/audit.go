package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/klauspost/compress/zstd"

	"stockflow/internal/domain/audit"
)

const auditTable = "audit_log"

var _ audit.Recorder = (*AuditRecorder)(nil)

// CompressionAlgo specifies how changes are stored.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

type auditRow struct {
	ID                int64           `db:"id"`
	EntityType        string          `db:"entity_type"`
	EntityID          int64           `db:"entity_id"`
	Action            audit.Action    `db:"action"`
	ActorID           int64           `db:"actor_id"`
	Changes           json.RawMessage `db:"changes"`
	ChangesCompressed []byte          `db:"changes_compressed"`
	CompressionAlgo   CompressionAlgo `db:"compression_algo"`
	CreatedAt         time.Time       `db:"created_at"`
}

// AuditRecorder writes audit entries into audit_log inside the caller's transaction.
// Change sets larger than the threshold are stored zstd-compressed.
type AuditRecorder struct {
	txm               *TxManager
	builder           squirrel.StatementBuilderType
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

// NewAuditRecorder creates a recorder that compresses change sets above 10KB.
func NewAuditRecorder(txm *TxManager) (*AuditRecorder, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &AuditRecorder{
		txm:               txm,
		builder:           squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: 10 * 1024,
	}, nil
}

// Record implements audit.Recorder.
func (r *AuditRecorder) Record(ctx context.Context, e audit.Entry) error {
	row, err := r.encode(e)
	if err != nil {
		return err
	}

	sql, args, err := r.builder.Insert(auditTable).
		Columns("entity_type", "entity_id", "action", "actor_id",
			"changes", "changes_compressed", "compression_algo", "created_at").
		Values(row.EntityType, row.EntityID, row.Action, row.ActorID,
			row.Changes, row.ChangesCompressed, row.CompressionAlgo, row.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build audit insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// History returns the newest entries for one entity.
func (r *AuditRecorder) History(ctx context.Context, entityType string, entityID int64, limit uint64) ([]audit.Entry, error) {
	sql, args, err := r.builder.
		Select("id", "entity_type", "entity_id", "action", "actor_id",
			"changes", "changes_compressed", "compression_algo", "created_at").
		From(auditTable).
		Where(squirrel.Eq{"entity_type": entityType, "entity_id": entityID}).
		OrderBy("created_at DESC", "id DESC").
		Limit(limit).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build audit query: %w", err)
	}

	var rows []auditRow
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("query audit history: %w", err)
	}

	entries := make([]audit.Entry, 0, len(rows))
	for _, row := range rows {
		e, err := r.decode(row)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (r *AuditRecorder) encode(e audit.Entry) (auditRow, error) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	row := auditRow{
		EntityType:      e.EntityType,
		EntityID:        e.EntityID,
		Action:          e.Action,
		ActorID:         e.ActorID,
		CompressionAlgo: CompressionNone,
		CreatedAt:       e.CreatedAt,
	}
	if len(e.Changes) == 0 {
		return row, nil
	}

	changes, err := json.Marshal(e.Changes)
	if err != nil {
		return row, fmt.Errorf("marshal audit changes: %w", err)
	}
	if len(changes) > r.compressThreshold {
		row.ChangesCompressed = r.encoder.EncodeAll(changes, nil)
		row.CompressionAlgo = CompressionZstd
		return row, nil
	}
	row.Changes = changes
	return row, nil
}

func (r *AuditRecorder) decode(row auditRow) (audit.Entry, error) {
	e := audit.Entry{
		EntityType: row.EntityType,
		EntityID:   row.EntityID,
		Action:     row.Action,
		ActorID:    row.ActorID,
		CreatedAt:  row.CreatedAt,
	}

	raw := []byte(row.Changes)
	if row.CompressionAlgo == CompressionZstd && len(row.ChangesCompressed) > 0 {
		decompressed, err := r.decoder.DecodeAll(row.ChangesCompressed, nil)
		if err != nil {
			return e, fmt.Errorf("decompress audit changes: %w", err)
		}
		raw = decompressed
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &e.Changes); err != nil {
			return e, fmt.Errorf("unmarshal audit changes: %w", err)
		}
	}
	return e, nil
}
