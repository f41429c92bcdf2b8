package util

import (
  "testing"

  "github.com/stretchr/testify/assert"
  "github.com/stretchr/testify/require"
)

func TestFingerprint_StableMapOrder(t *testing.T) {
  a := map[string]any{"b": 2, "a": 1}
  b := map[string]any{"a": 1, "b": 2}
  ha, err := Fingerprint(a)
  require.NoError(t, err)
  hb, err := Fingerprint(b)
  require.NoError(t, err)
  assert.Equal(t, ha, hb)
  assert.Len(t, ha, 64)
}

func TestFingerprint_Differs(t *testing.T) {
  ha, err := Fingerprint(map[string]any{"commitHash": "abc"})
  require.NoError(t, err)
  hb, err := Fingerprint(map[string]any{"commitHash": "abd"})
  require.NoError(t, err)
  assert.NotEqual(t, ha, hb)
}

func TestPrettyJSON(t *testing.T) {
  out, err := PrettyJSON(map[string]any{"version": nil})
  require.NoError(t, err)
  assert.Equal(t, "{\n  \"version\": null\n}", string(out))
}

func TestPrettyJSON_Unsupported(t *testing.T) {
  _, err := PrettyJSON(make(chan int))
  assert.Error(t, err)
}
