package homeassistant

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ekobres/spook/internal/config"
	"github.com/sirupsen/logrus"
)

// Client represents the main Home Assistant client
type Client struct {
	rest      RESTClient
	websocket WebSocketClient
	logger    *logrus.Logger
	config    config.HomeAssistantConfig

	baseURL string
	token   string
	mu      sync.RWMutex
}

// RegistryDump is one consistent read of every registry and the live states
type RegistryDump struct {
	Entities      []EntityRegistryEntry
	Devices       []DeviceRegistryEntry
	Areas         []AreaRegistryEntry
	Labels        []LabelRegistryEntry
	ConfigEntries []ConfigEntry
	States        []EntityState
}

// NewClient creates a new Home Assistant client
func NewClient(cfg config.HomeAssistantConfig, logger *logrus.Logger) (*Client, error) {
	if logger == nil {
		return nil, fmt.Errorf("invalid parameters")
	}
	if cfg.URL == "" {
		return nil, ErrInvalidURL
	}
	if cfg.Token == "" {
		return nil, ErrMissingToken
	}

	baseURL := strings.TrimSuffix(cfg.URL, "/")
	timeout := config.Duration(cfg.RequestTimeout, defaultRequestTimeout)

	ws, err := NewWebSocketClient(baseURL, cfg.Token, timeout, logger)
	if err != nil {
		return nil, err
	}

	return &Client{
		rest:      NewRESTClient(baseURL, cfg.Token, timeout, logger),
		websocket: ws,
		logger:    logger,
		config:    cfg,
		baseURL:   baseURL,
		token:     cfg.Token,
	}, nil
}

// NewClientWithTransports wires pre-built transports, mainly for tests
func NewClientWithTransports(rest RESTClient, ws WebSocketClient, logger *logrus.Logger) *Client {
	return &Client{rest: rest, websocket: ws, logger: logger}
}

// Initialize opens the websocket session
func (c *Client) Initialize(ctx context.Context) error {
	c.logger.Info("Initializing Home Assistant client")

	if err := c.websocket.Connect(ctx); err != nil {
		return fmt.Errorf("websocket connect failed: %w", err)
	}

	c.logger.WithField("ha_version", c.websocket.HAVersion()).Info("Home Assistant client initialized")
	return nil
}

// Shutdown shuts down the client
func (c *Client) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.websocket != nil {
		return c.websocket.Disconnect()
	}
	return nil
}

// HealthCheck verifies the REST API answers with the configured token
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.rest == nil {
		return fmt.Errorf("REST client not initialized")
	}

	config, err := c.rest.GetConfig(ctx)
	if err != nil {
		return err
	}

	c.logger.WithField("version", config.Version).Debug("Health check passed")
	return nil
}

func (c *Client) GetEntityRegistry(ctx context.Context) ([]EntityRegistryEntry, error) {
	return SendCommandTyped[[]EntityRegistryEntry](ctx, c.websocket, "config/entity_registry/list", nil)
}

func (c *Client) GetDeviceRegistry(ctx context.Context) ([]DeviceRegistryEntry, error) {
	return SendCommandTyped[[]DeviceRegistryEntry](ctx, c.websocket, "config/device_registry/list", nil)
}

func (c *Client) GetAreaRegistry(ctx context.Context) ([]AreaRegistryEntry, error) {
	return SendCommandTyped[[]AreaRegistryEntry](ctx, c.websocket, "config/area_registry/list", nil)
}

// GetLabelRegistry returns an empty list on cores that predate labels
func (c *Client) GetLabelRegistry(ctx context.Context) ([]LabelRegistryEntry, error) {
	labels, err := SendCommandTyped[[]LabelRegistryEntry](ctx, c.websocket, "config/label_registry/list", nil)
	if IsUnknownCommand(err) {
		c.logger.Debug("Label registry not available on this core")
		return nil, nil
	}
	return labels, err
}

func (c *Client) GetConfigEntries(ctx context.Context) ([]ConfigEntry, error) {
	return SendCommandTyped[[]ConfigEntry](ctx, c.websocket, "config_entries/get", nil)
}

func (c *Client) GetStates(ctx context.Context) ([]EntityState, error) {
	return SendCommandTyped[[]EntityState](ctx, c.websocket, "get_states", nil)
}

// FetchRegistries reads every registry in turn. States are only fetched when
// withStates is set.
func (c *Client) FetchRegistries(ctx context.Context, withStates bool) (*RegistryDump, error) {
	var (
		dump RegistryDump
		err  error
	)

	if dump.Entities, err = c.GetEntityRegistry(ctx); err != nil {
		return nil, fmt.Errorf("entity registry: %w", err)
	}
	if dump.Devices, err = c.GetDeviceRegistry(ctx); err != nil {
		return nil, fmt.Errorf("device registry: %w", err)
	}
	if dump.Areas, err = c.GetAreaRegistry(ctx); err != nil {
		return nil, fmt.Errorf("area registry: %w", err)
	}
	if dump.Labels, err = c.GetLabelRegistry(ctx); err != nil {
		return nil, fmt.Errorf("label registry: %w", err)
	}
	if dump.ConfigEntries, err = c.GetConfigEntries(ctx); err != nil {
		return nil, fmt.Errorf("config entries: %w", err)
	}
	if withStates {
		if dump.States, err = c.GetStates(ctx); err != nil {
			return nil, fmt.Errorf("states: %w", err)
		}
	}

	c.logger.WithFields(logrus.Fields{
		"entities": len(dump.Entities),
		"devices":  len(dump.Devices),
		"areas":    len(dump.Areas),
		"labels":   len(dump.Labels),
		"entries":  len(dump.ConfigEntries),
		"states":   len(dump.States),
	}).Debug("Fetched Home Assistant registries")

	return &dump, nil
}

// WebSocket delegation methods
func (c *Client) SubscribeToEvents(ctx context.Context, eventType string, handler EventHandler) (int, error) {
	return c.websocket.SubscribeToEvents(ctx, eventType, handler)
}

func (c *Client) Unsubscribe(ctx context.Context, subscriptionID int) error {
	return c.websocket.Unsubscribe(ctx, subscriptionID)
}

func (c *Client) SetConnectionStateHandler(handler ConnectionStateHandler) {
	c.websocket.SetConnectionStateHandler(handler)
}

// Done is closed when the current websocket session ends
func (c *Client) Done() <-chan struct{} {
	return c.websocket.Done()
}

func (c *Client) IsConnected() bool {
	return c.websocket != nil && c.websocket.IsConnected()
}

func (c *Client) GetConnectionInfo() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return map[string]interface{}{
		"base_url":            c.baseURL,
		"has_token":           c.token != "",
		"websocket_connected": c.IsConnected(),
		"ha_version":          c.websocket.HAVersion(),
	}
}
