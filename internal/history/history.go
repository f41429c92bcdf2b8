// Package history records resolved version info in Postgres and queues an
// outbox event whenever the served commit hash changes.
package history

import (
  "context"
  "encoding/json"
  "errors"
  "log/slog"
  "time"

  "github.com/jackc/pgx/v5"
  "github.com/jackc/pgx/v5/pgxpool"

  "github.com/ajay-dhawan/health-check-plus/internal/util"
  "github.com/ajay-dhawan/health-check-plus/internal/versioninfo"
)

const EventVersionChanged = "version_changed"

// advisory lock key guarding snapshot inserts
const snapshotLockKey = 7_305_112

const schema = `
CREATE TABLE IF NOT EXISTS version_snapshots (
  id            BIGSERIAL PRIMARY KEY,
  version       TEXT NULL,
  commit_hash   TEXT NULL,
  source        TEXT NOT NULL,
  fingerprint   TEXT NOT NULL,
  metadata_path TEXT NOT NULL DEFAULT '',
  observed_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS outbox_events (
  id           UUID PRIMARY KEY DEFAULT gen_random_uuid(),
  event_type   TEXT NOT NULL,
  payload      JSONB NOT NULL,
  created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
  published_at TIMESTAMPTZ NULL
);
CREATE INDEX IF NOT EXISTS outbox_events_unpublished ON outbox_events(created_at) WHERE published_at IS NULL;
`

func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
  _, err := db.Exec(ctx, schema)
  return err
}

type Snapshot struct {
  ID           int64     `json:"id"`
  Version      *string   `json:"version"`
  CommitHash   *string   `json:"commitHash"`
  Source       string    `json:"source"`
  Fingerprint  string    `json:"fingerprint"`
  MetadataPath string    `json:"metadata_path"`
  ObservedAt   time.Time `json:"observed_at"`
}

// ChangeEvent is the outbox payload for EventVersionChanged.
type ChangeEvent struct {
  EventID            string    `json:"event_id"`
  SnapshotID         int64     `json:"snapshot_id"`
  Version            *string   `json:"version"`
  CommitHash         *string   `json:"commit_hash"`
  PreviousCommitHash *string   `json:"previous_commit_hash"`
  ObservedAt         time.Time `json:"observed_at"`
}

type Store struct {
  db  *pgxpool.Pool
  log *slog.Logger
}

func New(db *pgxpool.Pool, log *slog.Logger) *Store {
  return &Store{db: db, log: log}
}

var _ versioninfo.Observer = (*Store)(nil)

// ObserveResolution stores res unless it matches the latest snapshot.
func (s *Store) ObserveResolution(ctx context.Context, res versioninfo.Resolution) error {
  fp, err := util.Fingerprint(res.Info)
  if err != nil { return err }

  tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
  if err != nil { return err }
  defer func() { _ = tx.Rollback(ctx) }()

  if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, snapshotLockKey); err != nil { return err }

  var lastFP string
  var lastHash *string
  err = tx.QueryRow(ctx, `SELECT fingerprint, commit_hash FROM version_snapshots ORDER BY id DESC LIMIT 1`).Scan(&lastFP, &lastHash)
  hadPrev := true
  if errors.Is(err, pgx.ErrNoRows) {
    hadPrev = false
  } else if err != nil {
    return err
  }
  if hadPrev && lastFP == fp {
    return tx.Commit(ctx)
  }

  var snap Snapshot
  err = tx.QueryRow(ctx, `
    INSERT INTO version_snapshots(version, commit_hash, source, fingerprint, metadata_path)
    VALUES($1,$2,$3,$4,$5)
    RETURNING id, observed_at
  `, res.Info.Version, res.Info.CommitHash, string(res.Source), fp, res.MetadataPath).Scan(&snap.ID, &snap.ObservedAt)
  if err != nil { return err }

  if shouldAnnounce(hadPrev, lastHash, res) {
    prev := lastHash
    if prev == nil { prev = res.StoredHash }
    payload, err := json.Marshal(ChangeEvent{
      EventID:            "generated_by_db",
      SnapshotID:         snap.ID,
      Version:            res.Info.Version,
      CommitHash:         res.Info.CommitHash,
      PreviousCommitHash: prev,
      ObservedAt:         snap.ObservedAt,
    })
    if err != nil { return err }
    if _, err := tx.Exec(ctx, `INSERT INTO outbox_events(event_type, payload) VALUES($1, $2)`, EventVersionChanged, payload); err != nil {
      return err
    }
    s.log.Info("commit hash changed", "snapshot_id", snap.ID, "commit_hash", res.Info.CommitHashOr(""))
  }
  return tx.Commit(ctx)
}

// shouldAnnounce reports whether res carries a confirmed commit hash that
// differs from the previously recorded one (or from the metadata document).
func shouldAnnounce(hadPrev bool, lastHash *string, res versioninfo.Resolution) bool {
  if res.LookupFailed || res.Source == versioninfo.SourceUnreadable || res.Info.CommitHash == nil {
    return false
  }
  if res.Changed { return true }
  return hadPrev && lastHash != nil && *lastHash != *res.Info.CommitHash
}

func (s *Store) Recent(ctx context.Context, limit int) ([]Snapshot, error) {
  rows, err := s.db.Query(ctx, `
    SELECT id, version, commit_hash, source, fingerprint, metadata_path, observed_at
    FROM version_snapshots
    ORDER BY id DESC
    LIMIT $1
  `, limit)
  if err != nil { return nil, err }
  defer rows.Close()
  out := []Snapshot{}
  for rows.Next() {
    var s Snapshot
    if err := rows.Scan(&s.ID, &s.Version, &s.CommitHash, &s.Source, &s.Fingerprint, &s.MetadataPath, &s.ObservedAt); err != nil { return nil, err }
    out = append(out, s)
  }
  return out, rows.Err()
}
