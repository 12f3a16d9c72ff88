package types

// HandlerDescriptor declares how one action type is dispatched: endpoint
// template, HTTP verb and an optional payload transform. Descriptors are
// static configuration, never persisted.
//
// EndpointTemplate may contain an ":id" placeholder which is substituted
// from the payload's "id" field at dispatch time.
type HandlerDescriptor struct {
	Type             ActionType
	EndpointTemplate string
	Method           string

	// BuildBody turns the raw payload into the outbound request body.
	// When nil the payload itself is sent as JSON.
	BuildBody func(p Payload) (any, error)
}
