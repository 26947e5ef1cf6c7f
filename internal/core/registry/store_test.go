package registry

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func sampleSnapshot() *Snapshot {
	return NewSnapshot(
		[]Entity{
			{EntityID: "light.kitchen", UniqueID: "u1", Platform: "hue", DeviceID: "d1"},
			{EntityID: "binary_sensor.door", UniqueID: "u2", Platform: "zha"},
		},
		[]Device{{ID: "d1", Name: "Hue bulb", AreaID: "kitchen"}},
		[]Area{{AreaID: "kitchen", Name: "Kitchen"}},
		[]Label{{LabelID: "ops", Name: "Ops"}},
		[]ConfigEntry{{EntryID: "e1", Domain: "hue", Title: "Philips Hue"}},
		[]State{
			{EntityID: "light.kitchen", State: "on"},
			{EntityID: "sun.sun", State: "above_horizon"},
		},
	)
}

func TestSnapshot_Index(t *testing.T) {
	snap := sampleSnapshot()

	assert.Equal(t, []string{"binary_sensor.door", "light.kitchen"}, snap.EntityIDs())
	assert.Equal(t, []string{"sun.sun"}, snap.OrphanStateIDs())

	d, ok := snap.Device("d1")
	require.True(t, ok)
	assert.Equal(t, "Hue bulb", d.DisplayName())

	_, ok = snap.Area("")
	assert.False(t, ok)
	assert.Equal(t, "light", Domain("light.kitchen"))
}

func TestStore_ReadBeforeLoad(t *testing.T) {
	store := NewStore(quietLogger())

	err := store.Read(func(*Snapshot) error { return nil })
	assert.ErrorIs(t, err, ErrNotLoaded)
	assert.False(t, store.Loaded())
}

func TestStore_ReplaceNotifies(t *testing.T) {
	store := NewStore(quietLogger())

	var kinds []ChangeKind
	store.OnChange(func(kind ChangeKind) { kinds = append(kinds, kind) })

	store.Replace(sampleSnapshot())
	store.NotifyChange(ChangeLabel)

	assert.True(t, store.Loaded())
	assert.Equal(t, []ChangeKind{ChangeSnapshot, ChangeLabel}, kinds)
}

func TestStore_ApplyStateChange(t *testing.T) {
	store := NewStore(quietLogger())
	store.Replace(sampleSnapshot())

	store.ApplyStateChange("light.kitchen", &State{EntityID: "light.kitchen", State: "off"})
	store.ApplyStateChange("zone.home", &State{EntityID: "zone.home", State: "0"})
	store.ApplyStateChange("sun.sun", nil)

	err := store.Read(func(snap *Snapshot) error {
		st, ok := snap.State("light.kitchen")
		require.True(t, ok)
		assert.Equal(t, "off", st.State)

		_, ok = snap.State("sun.sun")
		assert.False(t, ok)
		assert.Equal(t, []string{"zone.home"}, snap.OrphanStateIDs())
		return nil
	})
	require.NoError(t, err)
}

func TestStore_SnapshotRoundTrip(t *testing.T) {
	store := NewStore(quietLogger())
	store.Replace(sampleSnapshot())

	data, err := store.MarshalSnapshot()
	require.NoError(t, err)

	snap, err := DecodeSnapshot(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"binary_sensor.door", "light.kitchen"}, snap.EntityIDs())
	assert.Equal(t, []string{"sun.sun"}, snap.OrphanStateIDs())

	entry, ok := snap.ConfigEntry("e1")
	require.True(t, ok)
	assert.Equal(t, "Philips Hue", entry.Title)
}
