package messaging

import (
  "context"
  "encoding/json"
  "log/slog"
  "time"

  "github.com/jackc/pgx/v5/pgxpool"
  "github.com/nats-io/nats.go"
)

// OutboxPublisher relays rows of outbox_events to JetStream.
type OutboxPublisher struct {
  db  *pgxpool.Pool
  js  nats.JetStreamContext
  log *slog.Logger
}

func NewOutboxPublisher(db *pgxpool.Pool, js nats.JetStreamContext, log *slog.Logger) *OutboxPublisher {
  return &OutboxPublisher{db: db, js: js, log: log}
}

func (p *OutboxPublisher) Run(ctx context.Context) {
  ticker := time.NewTicker(250 * time.Millisecond)
  defer ticker.Stop()
  for {
    select {
    case <-ctx.Done():
      return
    case <-ticker.C:
      if err := p.publishBatch(ctx, 50); err != nil && ctx.Err() == nil {
        p.log.Warn("outbox batch failed", "err", err.Error())
      }
    }
  }
}

type outboxRow struct {
  ID        string
  EventType string
  Payload   []byte
}

func (p *OutboxPublisher) publishBatch(ctx context.Context, limit int) error {
  rows, err := p.db.Query(ctx, `
    SELECT id::text, event_type, payload
    FROM outbox_events
    WHERE published_at IS NULL
    ORDER BY created_at
    LIMIT $1
  `, limit)
  if err != nil { return err }

  batch := []outboxRow{}
  for rows.Next() {
    var r outboxRow
    if err := rows.Scan(&r.ID, &r.EventType, &r.Payload); err != nil { rows.Close(); return err }
    batch = append(batch, r)
  }
  rows.Close()
  if err := rows.Err(); err != nil { return err }

  for _, r := range batch {
    msg, err := buildMsg(r)
    if err != nil {
      p.log.Warn("outbox payload unreadable", "event_id", r.ID, "err", err.Error())
      continue
    }
    if _, err := p.js.PublishMsg(msg, nats.Context(ctx)); err != nil {
      p.log.Warn("publish failed", "event_id", r.ID, "err", err.Error())
      return err
    }
    if _, err := p.db.Exec(ctx, `UPDATE outbox_events SET published_at=now() WHERE id=$1::uuid`, r.ID); err != nil {
      p.log.Warn("mark published failed", "event_id", r.ID, "err", err.Error())
      return err
    }
    p.log.Info("event published", "event_id", r.ID, "subject", msg.Subject)
  }
  return nil
}

// buildMsg stamps the outbox id into the payload and the Nats-Msg-Id
// header so JetStream drops redeliveries inside the dedupe window.
func buildMsg(r outboxRow) (*nats.Msg, error) {
  var m map[string]any
  if err := json.Unmarshal(r.Payload, &m); err != nil { return nil, err }
  if m == nil { m = map[string]any{} }
  if id, ok := m["event_id"]; !ok || id == "" || id == "generated_by_db" {
    m["event_id"] = r.ID
  }
  body, err := json.Marshal(m)
  if err != nil { return nil, err }

  msg := &nats.Msg{Subject: Subject(r.EventType), Data: body, Header: nats.Header{}}
  msg.Header.Set("Nats-Msg-Id", r.ID)
  return msg, nil
}
