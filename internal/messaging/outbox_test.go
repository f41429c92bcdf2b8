package messaging

import (
  "encoding/json"
  "testing"

  "github.com/stretchr/testify/assert"
  "github.com/stretchr/testify/require"
)

func TestBuildMsg(t *testing.T) {
  msg, err := buildMsg(outboxRow{
    ID:        "6f1c2a52-0d4e-4a43-9c43-1f7a8e0b9d11",
    EventType: "version_changed",
    Payload:   []byte(`{"event_id":"generated_by_db","commit_hash":"abc123","previous_commit_hash":"old"}`),
  })
  require.NoError(t, err)
  assert.Equal(t, "versions.version_changed", msg.Subject)
  assert.Equal(t, "6f1c2a52-0d4e-4a43-9c43-1f7a8e0b9d11", msg.Header.Get("Nats-Msg-Id"))

  var body map[string]any
  require.NoError(t, json.Unmarshal(msg.Data, &body))
  assert.Equal(t, "6f1c2a52-0d4e-4a43-9c43-1f7a8e0b9d11", body["event_id"])
  assert.Equal(t, "abc123", body["commit_hash"])
}

func TestBuildMsg_KeepsExplicitEventID(t *testing.T) {
  msg, err := buildMsg(outboxRow{ID: "row-id", EventType: "version_changed", Payload: []byte(`{"event_id":"custom"}`)})
  require.NoError(t, err)
  var body map[string]any
  require.NoError(t, json.Unmarshal(msg.Data, &body))
  assert.Equal(t, "custom", body["event_id"])
  assert.Equal(t, "row-id", msg.Header.Get("Nats-Msg-Id"))
}

func TestBuildMsg_NullPayload(t *testing.T) {
  msg, err := buildMsg(outboxRow{ID: "row-id", EventType: "version_changed", Payload: []byte(`null`)})
  require.NoError(t, err)
  assert.JSONEq(t, `{"event_id":"row-id"}`, string(msg.Data))
}

func TestBuildMsg_BadPayload(t *testing.T) {
  _, err := buildMsg(outboxRow{ID: "row-id", Payload: []byte(`not json`)})
  assert.Error(t, err)
}

func TestSubject(t *testing.T) {
  assert.Equal(t, "versions.version_changed", Subject("version_changed"))
}
