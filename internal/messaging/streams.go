package messaging

import (
  "context"
  "errors"
  "slices"
  "time"

  "github.com/nats-io/nats.go"
)

const (
  StreamName    = "VERSIONS"
  subjectPrefix = "versions."
)

// streamConfig keeps a bounded history of version events per subject.
// Changes are rare, so a short tail and a long age are enough for replay.
func streamConfig() *nats.StreamConfig {
  return &nats.StreamConfig{
    Name:              StreamName,
    Description:       "commit hash and version changes observed by health-check-plus",
    Subjects:          []string{subjectPrefix + ">"},
    Storage:           nats.FileStorage,
    Retention:         nats.LimitsPolicy,
    MaxMsgsPerSubject: 100,
    MaxAge:            90 * 24 * time.Hour,
    MaxMsgSize:        64 << 10,
    Discard:           nats.DiscardOld,
    Duplicates:        10 * time.Minute,
  }
}

// EnsureStreams creates the stream, or updates it when its subjects or
// limits no longer match streamConfig.
func EnsureStreams(ctx context.Context, js nats.JetStreamContext) error {
  want := streamConfig()
  info, err := js.StreamInfo(StreamName, nats.Context(ctx))
  if errors.Is(err, nats.ErrStreamNotFound) {
    _, err = js.AddStream(want, nats.Context(ctx))
    return err
  }
  if err != nil { return err }
  if streamUpToDate(info.Config, *want) { return nil }
  _, err = js.UpdateStream(want, nats.Context(ctx))
  return err
}

func streamUpToDate(have, want nats.StreamConfig) bool {
  return slices.Equal(have.Subjects, want.Subjects) &&
    have.MaxMsgsPerSubject == want.MaxMsgsPerSubject &&
    have.MaxAge == want.MaxAge &&
    have.MaxMsgSize == want.MaxMsgSize &&
    have.Duplicates == want.Duplicates
}

// Subject maps an outbox event type to its JetStream subject.
func Subject(eventType string) string {
  return subjectPrefix + eventType
}
