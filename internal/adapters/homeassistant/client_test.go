package homeassistant

import (
	"context"
	"io"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/ekobres/spook/internal/adapters/homeassistant/hafake"
	"github.com/ekobres/spook/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestClient(t *testing.T, fake *hafake.Server, token string) *Client {
	t.Helper()
	client, err := NewClient(config.HomeAssistantConfig{
		URL:            fake.URL,
		Token:          token,
		RequestTimeout: "2s",
	}, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { client.Shutdown(context.Background()) })
	return client
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(config.HomeAssistantConfig{Token: "t"}, testLogger())
	assert.ErrorIs(t, err, ErrInvalidURL)

	_, err = NewClient(config.HomeAssistantConfig{URL: "http://ha:8123"}, testLogger())
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = NewClient(config.HomeAssistantConfig{URL: "ftp://ha", Token: "t"}, testLogger())
	assert.ErrorIs(t, err, ErrInvalidURL)
}

func TestWebsocketURL(t *testing.T) {
	tests := map[string]string{
		"http://ha.local:8123":   "ws://ha.local:8123/api/websocket",
		"https://ha.example/":    "wss://ha.example/api/websocket",
		"http://supervisor/core": "ws://supervisor/core/api/websocket",
	}
	for in, want := range tests {
		got, err := websocketURL(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
}

func TestClient_AuthRejected(t *testing.T) {
	fake := hafake.New(t, "good")
	client := newTestClient(t, fake, "bad")

	err := client.Initialize(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthFailed)
	assert.True(t, IsAuthError(err))
	assert.False(t, client.IsConnected())
}

func TestClient_FetchRegistries(t *testing.T) {
	fake := hafake.New(t, "token")
	fake.Seed()
	client := newTestClient(t, fake, "token")

	require.NoError(t, client.Initialize(context.Background()))
	assert.True(t, client.IsConnected())
	assert.Equal(t, "2024.6.0", client.GetConnectionInfo()["ha_version"])

	dump, err := client.FetchRegistries(context.Background(), true)
	require.NoError(t, err)

	assert.Len(t, dump.Entities, 4)
	assert.Len(t, dump.Devices, 1)
	assert.Len(t, dump.Areas, 2)
	assert.Len(t, dump.Labels, 1)
	assert.Len(t, dump.ConfigEntries, 2)
	assert.Len(t, dump.States, 4)

	light := dump.Entities[0]
	assert.Equal(t, "light.kitchen_ceiling", light.EntityID)
	require.NotNil(t, light.UniqueID)
	assert.Nil(t, light.AreaID)
	assert.Equal(t, int64(1700000000), light.CreatedAt.Unix())
	assert.Equal(t, 2024, light.ModifiedAt.Year())
}

func TestClient_LabelRegistryMissing(t *testing.T) {
	fake := hafake.New(t, "token")
	fake.Seed()
	fake.SetError("config/label_registry/list", "unknown_command", "Unknown command.")
	client := newTestClient(t, fake, "token")
	require.NoError(t, client.Initialize(context.Background()))

	labels, err := client.GetLabelRegistry(context.Background())
	require.NoError(t, err)
	assert.Empty(t, labels)
}

func TestClient_CommandError(t *testing.T) {
	fake := hafake.New(t, "token")
	fake.SetError("config/entity_registry/list", "unauthorized", "Unauthorized")
	client := newTestClient(t, fake, "token")
	require.NoError(t, client.Initialize(context.Background()))

	_, err := client.GetEntityRegistry(context.Background())
	require.Error(t, err)

	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, "unauthorized", cmdErr.Code)
	assert.False(t, IsUnknownCommand(err))
}

func TestClient_SubscribeToEvents(t *testing.T) {
	fake := hafake.New(t, "token")
	client := newTestClient(t, fake, "token")
	require.NoError(t, client.Initialize(context.Background()))

	var (
		mu     sync.Mutex
		events []Event
	)
	got := make(chan struct{}, 1)
	_, err := client.SubscribeToEvents(context.Background(), EventStateChanged, func(e Event) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
		got <- struct{}{}
	})
	require.NoError(t, err)

	fake.Fire(EventStateChanged, map[string]interface{}{
		"entity_id": "light.kitchen",
		"new_state": map[string]interface{}{"entity_id": "light.kitchen", "state": "off"},
		"old_state": nil,
	})

	select {
	case <-got:
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 1)
	data, err := DecodeStateChanged(events[0])
	require.NoError(t, err)
	assert.Equal(t, "light.kitchen", data.EntityID)
	require.NotNil(t, data.NewState)
	assert.Equal(t, "off", data.NewState.State)
	assert.Nil(t, data.OldState)
}

func TestClient_DisconnectClosesDone(t *testing.T) {
	fake := hafake.New(t, "token")
	client := newTestClient(t, fake, "token")

	var (
		mu     sync.Mutex
		states []bool
	)
	client.SetConnectionStateHandler(func(connected bool) {
		mu.Lock()
		states = append(states, connected)
		mu.Unlock()
	})
	require.NoError(t, client.Initialize(context.Background()))
	done := client.Done()

	fake.DropConnections()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("done not closed after drop")
	}
	assert.False(t, client.IsConnected())

	_, err := client.GetAreaRegistry(context.Background())
	assert.ErrorIs(t, err, ErrWebSocketNotConnected)

	mu.Lock()
	assert.Equal(t, []bool{true, false}, states)
	mu.Unlock()
}

func TestClient_HealthCheck(t *testing.T) {
	fake := hafake.New(t, "token")
	client := newTestClient(t, fake, "token")
	assert.NoError(t, client.HealthCheck(context.Background()))
}

func TestTimestamp_Unmarshal(t *testing.T) {
	var ts Timestamp

	require.NoError(t, ts.UnmarshalJSON([]byte(`1700000000.25`)))
	assert.Equal(t, int64(1700000000), ts.Unix())
	assert.Equal(t, 250*time.Millisecond, time.Duration(ts.Nanosecond()))

	require.NoError(t, ts.UnmarshalJSON([]byte(`"2023-11-14T22:13:20+00:00"`)))
	assert.Equal(t, int64(1700000000), ts.Unix())

	require.NoError(t, ts.UnmarshalJSON([]byte(`null`)))
	assert.True(t, ts.IsZero())
	assert.Nil(t, ts.Ptr())

	assert.Error(t, ts.UnmarshalJSON([]byte(`"yesterday"`)))
}

func TestTimestamp_UnmarshalRoundsToMicrosecond(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		raw  string
		want time.Time
	}{
		{`1709294400.000007`, base.Add(7 * time.Microsecond)},
		{`1709294400.000021`, base.Add(21 * time.Microsecond)},
		{`1709294400.123456`, base.Add(123456 * time.Microsecond)},
		{`1709294400.5`, base.Add(500 * time.Millisecond)},
		{`"1709294400.000007"`, base.Add(7 * time.Microsecond)},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			var ts Timestamp
			require.NoError(t, ts.UnmarshalJSON([]byte(tt.raw)))
			assert.True(t, tt.want.Equal(ts.Time), "got %s", ts.Time.Format(time.RFC3339Nano))
		})
	}

	for us := int64(0); us < 1000000; us += 997 {
		var ts Timestamp
		raw := strconv.FormatFloat(float64(base.Unix())+float64(us)/1e6, 'f', 6, 64)
		require.NoError(t, ts.UnmarshalJSON([]byte(raw)))
		require.Equal(t, us, int64(ts.Nanosecond())/1000, raw)
	}
}
