package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"outpost/types"
)

// ErrNoHandler marks a permanent lookup failure: the action names a type the
// dispatch table does not know. It is not a transient network fault.
var ErrNoHandler = errors.New("no handler")

// ResolvedRequest is a fully materialised outbound call: everything the
// dispatcher needs without knowing any business semantics.
type ResolvedRequest struct {
	URL    string
	Method string
	Body   []byte
}

// Registry is the static, declarative table mapping action types to handler
// descriptors. The built-in table covers the closed action set; deployments
// may register additional descriptors at setup time.
type Registry struct {
	descriptors map[types.ActionType]types.HandlerDescriptor
	mutex       sync.Mutex
}

// New returns a registry preloaded with the built-in dispatch table.
func New() *Registry {
	r := &Registry{
		descriptors: make(map[types.ActionType]types.HandlerDescriptor),
	}
	for _, d := range builtinHandlers() {
		r.descriptors[d.Type] = d
	}
	return r
}

func builtinHandlers() []types.HandlerDescriptor {
	return []types.HandlerDescriptor{
		{Type: types.ActionBookingCreate, EndpointTemplate: "/api/bookings", Method: http.MethodPost},
		{Type: types.ActionBookingCancel, EndpointTemplate: "/api/bookings/:id/cancel", Method: http.MethodPost},
		{Type: types.ActionStockUpdate, EndpointTemplate: "/api/stock/adjustments", Method: http.MethodPost},
		{Type: types.ActionSaleRecord, EndpointTemplate: "/api/sales", Method: http.MethodPost},
		{Type: types.ActionPrescriptionDispense, EndpointTemplate: "/api/prescriptions/:id/dispense", Method: http.MethodPost},
		{Type: types.ActionMessageSend, EndpointTemplate: "/api/messages", Method: http.MethodPost},
	}
}

// Register adds a new handler descriptor by type.
func (r *Registry) Register(d types.HandlerDescriptor) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if d.Type == "" || d.Type == types.ActionGenericRequest {
		return fmt.Errorf("cannot register handler for type '%s'", d.Type)
	}
	if _, exists := r.descriptors[d.Type]; exists {
		return fmt.Errorf("handler '%s' already registered", d.Type)
	}
	if d.EndpointTemplate == "" || d.Method == "" {
		return fmt.Errorf("handler '%s': endpoint template and method are required", d.Type)
	}
	r.descriptors[d.Type] = d
	return nil
}

func (r *Registry) Exists(t types.ActionType) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	_, exists := r.descriptors[t]
	return exists
}

func (r *Registry) List() []types.ActionType {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	names := make([]types.ActionType, 0, len(r.descriptors))
	for t := range r.descriptors {
		names = append(names, t)
	}
	return names
}

// Resolve turns a queued action into an outbound request. Any error here is
// a configuration problem with the action itself, not a network fault.
func (r *Registry) Resolve(a *types.QueuedAction) (*ResolvedRequest, error) {
	if a.Type == types.ActionGenericRequest {
		return resolveGeneric(a)
	}

	r.mutex.Lock()
	d, exists := r.descriptors[a.Type]
	r.mutex.Unlock()
	if !exists {
		return nil, fmt.Errorf("%w for %s", ErrNoHandler, a.Type)
	}

	endpoint := d.EndpointTemplate
	if strings.Contains(endpoint, ":id") {
		id, _ := a.Payload["id"].(string)
		if id == "" {
			return nil, fmt.Errorf("endpoint for %s requires an 'id' payload field", a.Type)
		}
		endpoint = strings.ReplaceAll(endpoint, ":id", id)
	}

	body := any(a.Payload)
	if d.BuildBody != nil {
		built, err := d.BuildBody(a.Payload)
		if err != nil {
			return nil, fmt.Errorf("build body for %s: %w", a.Type, err)
		}
		body = built
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal body for %s: %w", a.Type, err)
	}

	return &ResolvedRequest{URL: endpoint, Method: d.Method, Body: raw}, nil
}

// resolveGeneric handles the passthrough type: url and method come straight
// from the payload so one-off integrations skip the table entirely.
func resolveGeneric(a *types.QueuedAction) (*ResolvedRequest, error) {
	url, _ := a.Payload["url"].(string)
	if url == "" {
		return nil, fmt.Errorf("generic request requires a 'url' payload field")
	}
	method, _ := a.Payload["method"].(string)
	if method == "" {
		method = http.MethodPost
	}

	body := make(types.Payload, len(a.Payload))
	for k, v := range a.Payload {
		if k == "url" || k == "method" {
			continue
		}
		body[k] = v
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal generic body: %w", err)
	}
	return &ResolvedRequest{URL: url, Method: strings.ToUpper(method), Body: raw}, nil
}
