package registry

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outpost/types"
)

func action(t types.ActionType, p types.Payload) *types.QueuedAction {
	return &types.QueuedAction{ID: "a1", OwnerID: "o1", Type: t, Payload: p}
}

func TestResolve_KnownType(t *testing.T) {
	r := New()

	req, err := r.Resolve(action(types.ActionStockUpdate, types.Payload{"product_id": "p1", "delta": -5}))
	require.NoError(t, err)

	assert.Equal(t, "/api/stock/adjustments", req.URL)
	assert.Equal(t, http.MethodPost, req.Method)

	var body map[string]any
	require.NoError(t, json.Unmarshal(req.Body, &body))
	assert.Equal(t, "p1", body["product_id"])
}

func TestResolve_UnknownType(t *testing.T) {
	r := New()

	_, err := r.Resolve(action("unknown_type", nil))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoHandler))
	assert.Contains(t, err.Error(), "no handler for unknown_type")
}

func TestResolve_TemplateSubstitution(t *testing.T) {
	r := New()

	req, err := r.Resolve(action(types.ActionBookingCancel, types.Payload{"id": "bk-77"}))
	require.NoError(t, err)
	assert.Equal(t, "/api/bookings/bk-77/cancel", req.URL)
}

func TestResolve_TemplateMissingID(t *testing.T) {
	r := New()

	_, err := r.Resolve(action(types.ActionBookingCancel, types.Payload{"reason": "sick"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'id' payload field")
}

func TestResolve_GenericPassthrough(t *testing.T) {
	r := New()

	req, err := r.Resolve(action(types.ActionGenericRequest, types.Payload{
		"url":    "https://partner.example.com/webhook",
		"method": "put",
		"note":   "one-off",
	}))
	require.NoError(t, err)

	assert.Equal(t, "https://partner.example.com/webhook", req.URL)
	assert.Equal(t, http.MethodPut, req.Method)

	var body map[string]any
	require.NoError(t, json.Unmarshal(req.Body, &body))
	assert.Equal(t, "one-off", body["note"])
	assert.NotContains(t, body, "url")
	assert.NotContains(t, body, "method")
}

func TestResolve_GenericMissingURL(t *testing.T) {
	r := New()

	_, err := r.Resolve(action(types.ActionGenericRequest, types.Payload{"method": "POST"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'url' payload field")
}

func TestResolve_BuildBody(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(types.HandlerDescriptor{
		Type:             "loyalty_award",
		EndpointTemplate: "/api/loyalty",
		Method:           http.MethodPost,
		BuildBody: func(p types.Payload) (any, error) {
			return map[string]any{"points": p["points"], "source": "offline"}, nil
		},
	}))

	req, err := r.Resolve(action("loyalty_award", types.Payload{"points": 10, "junk": true}))
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(req.Body, &body))
	assert.Equal(t, "offline", body["source"])
	assert.NotContains(t, body, "junk")
}

func TestRegister_Duplicate(t *testing.T) {
	r := New()

	err := r.Register(types.HandlerDescriptor{
		Type:             types.ActionStockUpdate,
		EndpointTemplate: "/v2/stock",
		Method:           http.MethodPost,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestRegister_GenericRejected(t *testing.T) {
	r := New()

	err := r.Register(types.HandlerDescriptor{
		Type:             types.ActionGenericRequest,
		EndpointTemplate: "/x",
		Method:           http.MethodPost,
	})
	assert.Error(t, err)
}

func TestExists(t *testing.T) {
	r := New()
	assert.True(t, r.Exists(types.ActionBookingCreate))
	assert.False(t, r.Exists("unknown_type"))
}

func TestDefaultLabel(t *testing.T) {
	label := DefaultLabel(types.ActionStockUpdate, types.Payload{"product_id": "p1", "delta": -5})
	assert.Contains(t, label, "p1")
	assert.Contains(t, label, "-5")

	label = DefaultLabel(types.ActionMessageSend, types.Payload{"to": "+6421555001"})
	assert.Contains(t, label, "+6421555001")

	label = DefaultLabel(types.ActionBookingCancel, types.Payload{"id": "bk-9"})
	assert.Contains(t, label, "bk-9")
}

func TestDefaultLabel_UnknownTypeFallsBack(t *testing.T) {
	assert.Equal(t, "mystery_type", DefaultLabel("mystery_type", types.Payload{"x": 1}))
}

func TestDefaultLabel_MissingFields(t *testing.T) {
	label := DefaultLabel(types.ActionStockUpdate, nil)
	assert.Contains(t, label, "?")
}
