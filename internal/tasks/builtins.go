package tasks

import (
	"fmt"
	"net/http"
	"time"

	"github.com/zclconf/go-cty/cty"
	"github.com/zishang520/socket.io-client-go/socket"

	"github.com/specialistvlad/dagsched/internal/task"
	"github.com/specialistvlad/dagsched/internal/tasks/functask"
	"github.com/specialistvlad/dagsched/internal/tasks/httptask"
	"github.com/specialistvlad/dagsched/internal/tasks/sockettask"
)

// RegisterBuiltins populates r with every task kind this module ships:
// http_request, socketio_request, and func (an in-process Go function,
// used by tests and dry-run campaigns).
func RegisterBuiltins(r *Registry) {
	r.Register("http_request", httpRequestFactory)
	r.Register("socketio_request", socketIORequestFactory)
	r.Register("func", funcFactory)
}

func httpRequestFactory(args cty.Value, resources *Resources) (task.Adapter, error) {
	if !args.Type().IsObjectType() {
		return nil, fmt.Errorf("http_request: arguments must be an object")
	}

	url, err := requiredString(args, "url")
	if err != nil {
		return nil, fmt.Errorf("http_request: %w", err)
	}
	method := optionalString(args, "method", http.MethodGet)
	clientName := optionalString(args, "client", "default")

	raw, ok := resources.Get(clientName)
	if !ok {
		return nil, fmt.Errorf("http_request: resource %q not found", clientName)
	}
	client, ok := raw.(*http.Client)
	if !ok {
		return nil, fmt.Errorf("http_request: resource %q is not an http client", clientName)
	}

	return &httptask.Task{Client: client, Method: method, URL: url}, nil
}

func socketIORequestFactory(args cty.Value, resources *Resources) (task.Adapter, error) {
	if !args.Type().IsObjectType() {
		return nil, fmt.Errorf("socketio_request: arguments must be an object")
	}

	onEvent, err := requiredString(args, "on_event")
	if err != nil {
		return nil, fmt.Errorf("socketio_request: %w", err)
	}
	emitEvent, err := requiredString(args, "emit_event")
	if err != nil {
		return nil, fmt.Errorf("socketio_request: %w", err)
	}
	clientName := optionalString(args, "client", "default")
	timeoutStr := optionalString(args, "timeout", "30s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("socketio_request: parsing timeout: %w", err)
	}

	raw, ok := resources.Get(clientName)
	if !ok {
		return nil, fmt.Errorf("socketio_request: resource %q not found", clientName)
	}
	client, ok := raw.(*socket.Socket)
	if !ok {
		return nil, fmt.Errorf("socketio_request: resource %q is not a socket.io client", clientName)
	}

	var emitData cty.Value
	if args.Type().HasAttribute("emit_data") {
		emitData = args.GetAttr("emit_data")
	} else {
		emitData = cty.NullVal(cty.DynamicPseudoType)
	}

	return &sockettask.Task{
		Client:    client,
		EmitEvent: emitEvent,
		OnEvent:   onEvent,
		EmitData:  emitData,
		Timeout:   timeout,
	}, nil
}

func funcFactory(args cty.Value, _ *Resources) (task.Adapter, error) {
	// The "func" task kind exists for tests and dry runs; HCL campaigns
	// cannot supply a Go closure, so it always succeeds with its own
	// arguments echoed back as the result.
	return functask.Always(args), nil
}

func requiredString(obj cty.Value, attr string) (string, error) {
	if obj.IsNull() || !obj.Type().HasAttribute(attr) {
		return "", fmt.Errorf("missing required argument %q", attr)
	}
	v := obj.GetAttr(attr)
	if v.IsNull() || !v.IsKnown() {
		return "", fmt.Errorf("missing required argument %q", attr)
	}
	return v.AsString(), nil
}

func optionalString(obj cty.Value, attr, def string) string {
	if obj.IsNull() || !obj.Type().HasAttribute(attr) {
		return def
	}
	v := obj.GetAttr(attr)
	if v.IsNull() || !v.IsKnown() {
		return def
	}
	return v.AsString()
}
