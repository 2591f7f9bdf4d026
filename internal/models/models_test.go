package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClickStatus(t *testing.T) {
	for _, s := range []string{"pending", "confirmed", "rejected"} {
		got, err := ParseClickStatus(s)
		require.NoError(t, err)
		assert.Equal(t, ClickStatus(s), got)
	}
	_, err := ParseClickStatus("Confirmed")
	assert.Error(t, err)

	assert.False(t, ClickPending.IsTerminal())
	assert.True(t, ClickConfirmed.IsTerminal())
	assert.True(t, ClickRejected.IsTerminal())
}

func TestNullStringJSON(t *testing.T) {
	b, err := json.Marshal(NewNullString(""))
	require.NoError(t, err)
	assert.Equal(t, "null", string(b))

	b, err = json.Marshal(NewNullString("u1"))
	require.NoError(t, err)
	assert.Equal(t, `"u1"`, string(b))

	var ns NullString
	require.NoError(t, json.Unmarshal([]byte("null"), &ns))
	assert.False(t, ns.Valid)
}

func TestNullClickMetaScan(t *testing.T) {
	var n NullClickMeta
	require.NoError(t, n.Scan(nil))
	assert.Nil(t, n.Meta)

	require.NoError(t, n.Scan([]byte(`{"referrer_id":"R42","use_own_referral":true,"link_kind":"personal"}`)))
	require.NotNil(t, n.Meta)
	assert.Equal(t, "R42", n.Meta.ReferrerID)
	assert.True(t, n.Meta.UseOwnReferral)

	assert.Error(t, n.Scan([]byte(`[1,2]`)))
	assert.Error(t, n.Scan([]byte(`{"unexpected":1}`)))
	assert.Error(t, n.Scan(42))
}

func TestClickMetaValue(t *testing.T) {
	var m *ClickMeta
	v, err := m.Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	m = &ClickMeta{ReferrerID: "R1"}
	v, err = m.Value()
	require.NoError(t, err)
	assert.JSONEq(t, `{"referrer_id":"R1","use_own_referral":false}`, string(v.([]byte)))
}
