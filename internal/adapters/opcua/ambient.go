// Package opcua reads ambient conditions from a harbour weather station that
// publishes its instruments over OPC UA.
package opcua

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gopcua/opcua"
	"github.com/gopcua/opcua/ua"

	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/domain"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/ports"
)

var ErrNoData = errors.New("opcua: no fresh station data")

// Config captures the runtime details required to open an OPC UA session.
type Config struct {
	Endpoint         string        `yaml:"endpoint"`
	Username         string        `yaml:"username"`
	Password         string        `yaml:"password"`
	SecurityMode     string        `yaml:"security_mode"`
	SecurityPolicy   string        `yaml:"security_policy"`
	ApplicationName  string        `yaml:"application_name"`
	PublishInterval  time.Duration `yaml:"publish_interval"`
	SamplingInterval time.Duration `yaml:"sampling_interval"`
	MaxAge           time.Duration `yaml:"max_age"`
	Nodes            []NodeConfig  `yaml:"nodes"`
}

// NodeConfig maps one station tag onto an environmental field.
type NodeConfig struct {
	NodeID string  `yaml:"node_id"`
	Field  string  `yaml:"field"`
	Scale  float64 `yaml:"scale"`
}

func (c *Config) ApplyDefaults() {
	if c.SecurityMode == "" {
		c.SecurityMode = "None"
	}
	if c.SecurityPolicy == "" {
		c.SecurityPolicy = "None"
	}
	if c.ApplicationName == "" {
		c.ApplicationName = "Baltic Shoreline Node"
	}
	if c.PublishInterval <= 0 {
		c.PublishInterval = time.Second
	}
	if c.SamplingInterval < 0 {
		c.SamplingInterval = 0
	}
	if c.MaxAge <= 0 {
		c.MaxAge = 5 * time.Minute
	}
	for i := range c.Nodes {
		if c.Nodes[i].Scale == 0 {
			c.Nodes[i].Scale = 1
		}
	}
}

func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return errors.New("endpoint is required")
	}
	if len(c.Nodes) == 0 {
		return errors.New("at least one node must be configured")
	}
	seen := make(map[string]bool, len(c.Nodes))
	for _, n := range c.Nodes {
		if n.NodeID == "" {
			return errors.New("node_id is required")
		}
		var probe domain.EnvironmentalSample
		if !probe.Set(n.Field, 0) {
			return fmt.Errorf("node %s: unknown field %q", n.NodeID, n.Field)
		}
		if seen[n.Field] {
			return fmt.Errorf("field %q mapped twice", n.Field)
		}
		seen[n.Field] = true
	}
	return nil
}

// Ambient keeps the latest station values and serves them as ambient samples.
type Ambient struct {
	cfg       Config
	obs       ports.Observability
	client    *opcua.Client
	sub       *opcua.Subscription
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	handleMap map[uint32]NodeConfig
	mu        sync.Mutex
	latest    domain.EnvironmentalSample
	updated   time.Time
	started   bool
	now       func() time.Time
}

func NewAmbient(cfg Config, obs ports.Observability) (*Ambient, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	handles := make(map[uint32]NodeConfig, len(cfg.Nodes))
	for i, n := range cfg.Nodes {
		handles[uint32(i+1)] = n
	}
	return &Ambient{cfg: cfg, obs: obs, handleMap: handles, now: time.Now}, nil
}

func (a *Ambient) Name() string { return "opcua" }

// Read returns the merged station values. It fails until a value has arrived
// within MaxAge.
func (a *Ambient) Read(_ context.Context, _ ports.Bus) (domain.EnvironmentalSample, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.updated.IsZero() || a.now().Sub(a.updated) > a.cfg.MaxAge {
		return domain.EnvironmentalSample{}, ErrNoData
	}
	return a.latest, nil
}

func (a *Ambient) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return fmt.Errorf("opcua station already started")
	}
	a.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	client, err := opcua.NewClient(a.cfg.Endpoint, a.clientOptions()...)
	if err != nil {
		cancel()
		return fmt.Errorf("opcua new client: %w", err)
	}
	if err := client.Connect(ctx); err != nil {
		cancel()
		return fmt.Errorf("opcua connect: %w", err)
	}

	notifyCh := make(chan *opcua.PublishNotificationData, len(a.cfg.Nodes)*4)
	sub, err := client.Subscribe(ctx, &opcua.SubscriptionParameters{
		Interval: a.cfg.PublishInterval,
	}, notifyCh)
	if err != nil {
		cancel()
		_ = client.Close(ctx)
		return fmt.Errorf("opcua subscribe: %w", err)
	}

	for handle, node := range a.handleMap {
		nodeID, err := ua.ParseNodeID(node.NodeID)
		if err != nil {
			cleanup(ctx, cancel, sub, client)
			return fmt.Errorf("parse node id %q: %w", node.NodeID, err)
		}
		req := opcua.NewMonitoredItemCreateRequestWithDefaults(nodeID, ua.AttributeIDValue, handle)
		if a.cfg.SamplingInterval > 0 {
			req.RequestedParameters.SamplingInterval = float64(a.cfg.SamplingInterval / time.Millisecond)
		}
		res, err := sub.Monitor(ctx, ua.TimestampsToReturnBoth, req)
		if err != nil {
			cleanup(ctx, cancel, sub, client)
			return fmt.Errorf("monitor node %q: %w", node.NodeID, err)
		}
		if len(res.Results) == 0 || res.Results[0].StatusCode != ua.StatusOK {
			cleanup(ctx, cancel, sub, client)
			return fmt.Errorf("monitor node %q rejected", node.NodeID)
		}
	}

	a.mu.Lock()
	a.client = client
	a.sub = sub
	a.cancel = cancel
	a.started = true
	a.mu.Unlock()

	a.wg.Add(1)
	go a.consume(ctx, notifyCh)
	a.obs.LogInfo("opcua station subscribed", ports.Field{Key: "endpoint", Value: a.cfg.Endpoint}, ports.Field{Key: "nodes", Value: len(a.cfg.Nodes)})
	return nil
}

func (a *Ambient) Stop() error {
	a.mu.Lock()
	if !a.started {
		a.mu.Unlock()
		return nil
	}
	cancel, sub, client := a.cancel, a.sub, a.client
	a.started = false
	a.cancel, a.sub, a.client = nil, nil, nil
	a.mu.Unlock()

	cancel()

	ctx, ctxCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer ctxCancel()

	var err error
	if e := sub.Cancel(ctx); e != nil && !errors.Is(e, context.Canceled) {
		err = errors.Join(err, e)
	}
	if e := client.Close(ctx); e != nil && !errors.Is(e, context.Canceled) {
		err = errors.Join(err, e)
	}
	a.wg.Wait()
	return err
}

func (a *Ambient) consume(ctx context.Context, ch <-chan *opcua.PublishNotificationData) {
	defer a.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case notif := <-ch:
			if notif == nil {
				continue
			}
			if notif.Error != nil {
				a.obs.LogError("opcua notification", notif.Error)
				continue
			}
			if data, ok := notif.Value.(*ua.DataChangeNotification); ok {
				a.apply(data)
			}
		}
	}
}

func (a *Ambient) apply(data *ua.DataChangeNotification) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, item := range data.MonitoredItems {
		node, ok := a.handleMap[item.ClientHandle]
		if !ok || item.Value == nil {
			continue
		}
		fv, ok := variantToFloat(item.Value.Value)
		if !ok {
			a.obs.LogError("opcua unsupported value", fmt.Errorf("%T", item.Value.Value), ports.Field{Key: "node", Value: node.NodeID})
			continue
		}
		a.latest.Set(node.Field, fv*node.Scale)

		ts := item.Value.SourceTimestamp
		if ts.IsZero() {
			ts = item.Value.ServerTimestamp
		}
		if ts.IsZero() {
			ts = a.now()
		}
		a.latest.Timestamp = ts
		a.updated = a.now()
	}
}

func (a *Ambient) clientOptions() []opcua.Option {
	opts := []opcua.Option{
		opcua.SecurityModeString(normalizeSecurityMode(a.cfg.SecurityMode)),
		opcua.SecurityPolicy(normalizeSecurityPolicy(a.cfg.SecurityPolicy)),
		opcua.ApplicationName(a.cfg.ApplicationName),
		opcua.AutoReconnect(true),
	}
	if a.cfg.Username != "" {
		opts = append(opts, opcua.AuthUsername(a.cfg.Username, a.cfg.Password))
	} else {
		opts = append(opts, opcua.AuthAnonymous())
	}
	return opts
}

func cleanup(ctx context.Context, cancel context.CancelFunc, sub *opcua.Subscription, client *opcua.Client) {
	cancel()
	if sub != nil {
		_ = sub.Cancel(ctx)
	}
	if client != nil {
		_ = client.Close(ctx)
	}
}

func variantToFloat(v *ua.Variant) (float64, bool) {
	if v == nil {
		return 0, false
	}
	switch val := v.Value().(type) {
	case float32:
		return float64(val), true
	case float64:
		return val, true
	case int8:
		return float64(val), true
	case uint8:
		return float64(val), true
	case int16:
		return float64(val), true
	case uint16:
		return float64(val), true
	case int32:
		return float64(val), true
	case uint32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint64:
		return float64(val), true
	case bool:
		if val {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func normalizeSecurityMode(mode string) string {
	switch strings.ToLower(mode) {
	case "sign":
		return "Sign"
	case "signandencrypt", "signencrypt", "sign_and_encrypt", "sign+encrypt":
		return "SignAndEncrypt"
	default:
		return "None"
	}
}

func normalizeSecurityPolicy(policy string) string {
	if policy == "" {
		return "None"
	}
	return policy
}

var _ ports.AmbientDriver = (*Ambient)(nil)
