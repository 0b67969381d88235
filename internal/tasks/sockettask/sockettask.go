// Package sockettask implements a task adapter that emits a socket.io
// event and waits for a correlated response event, grounded on the
// socketio_client/socketio_request module pair: a long-lived connected
// *socket.Socket shared across vertices, a one-shot listener registered
// for the expected response event, and a timeout bounding the wait.
package sockettask

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"time"

	"github.com/zclconf/go-cty/cty"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"

	"github.com/specialistvlad/dagsched/internal/task"
)

// Connect dials a socket.io server and blocks until the connection is
// established or errs out, for use building the shared client resource a
// campaign's sockettask vertices depend on.
func Connect(ctx context.Context, rawURL, namespace string, insecureSkipVerify bool) (*socket.Socket, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("sockettask: parsing url: %w", err)
	}

	opts := socket.DefaultOptions()
	opts.SetPath(parsed.Path)
	if insecureSkipVerify {
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	baseURL := fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(namespace, opts)

	connected := make(chan error, 1)
	io.Once(types.EventName("connect"), func(...any) { connected <- nil })
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		if len(errs) > 0 {
			if err, ok := errs[0].(error); ok {
				connected <- err
				return
			}
		}
		connected <- fmt.Errorf("sockettask: connect_error")
	})

	io.Connect()

	select {
	case err := <-connected:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("sockettask: connection failed: %w", err)
		}
		return io, nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, ctx.Err()
	case <-time.After(15 * time.Second):
		io.Disconnect()
		return nil, fmt.Errorf("sockettask: timed out waiting to connect")
	}
}

// Task emits EmitEvent with EmitData and waits up to Timeout for a
// OnEvent response, reporting the decoded payload as the vertex result.
type Task struct {
	Client    *socket.Socket
	EmitEvent string
	OnEvent   string
	EmitData  cty.Value
	Timeout   time.Duration
}

type opResult struct {
	value cty.Value
	err   error
}

// Start implements task.Adapter.
func (t *Task) Start(_ task.ResultReader, report task.Reporter) {
	if t.Client == nil || !t.Client.Connected() {
		report.OnTaskFailure(fmt.Errorf("sockettask: client not connected"))
		return
	}

	timeout := t.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	done := make(chan opResult, 1)
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	t.Client.Once(types.EventName(t.OnEvent), func(data ...any) {
		if len(data) == 0 {
			done <- opResult{value: cty.NullVal(cty.DynamicPseudoType)}
			return
		}
		v, err := interfaceToCty(data[0])
		if err != nil {
			done <- opResult{err: fmt.Errorf("sockettask: decoding response: %w", err)}
			return
		}
		done <- opResult{value: v}
	})

	payload, err := ctyToInterface(t.EmitData)
	if err != nil {
		report.OnTaskFailure(fmt.Errorf("sockettask: encoding emit_data: %w", err))
		return
	}
	t.Client.Emit(t.EmitEvent, payload)

	select {
	case <-ctx.Done():
		report.OnTaskFailure(fmt.Errorf("sockettask: timed out after %v waiting for %q", timeout, t.OnEvent))
	case res := <-done:
		if res.err != nil {
			report.OnTaskFailure(res.err)
			return
		}
		report.OnTaskSuccess(res.value)
	}
}

func ctyToInterface(val cty.Value) (any, error) {
	if val == cty.NilVal || !val.IsKnown() || val.IsNull() {
		return nil, nil
	}
	switch {
	case val.Type() == cty.String:
		return val.AsString(), nil
	case val.Type() == cty.Number:
		f, _ := val.AsBigFloat().Float64()
		return f, nil
	case val.Type() == cty.Bool:
		return val.True(), nil
	case val.Type().IsObjectType() || val.Type().IsMapType():
		out := make(map[string]any)
		for it := val.ElementIterator(); it.Next(); {
			k, v := it.Element()
			conv, err := ctyToInterface(v)
			if err != nil {
				return nil, err
			}
			out[k.AsString()] = conv
		}
		return out, nil
	case val.Type().IsTupleType() || val.Type().IsListType():
		var out []any
		for it := val.ElementIterator(); it.Next(); {
			_, v := it.Element()
			conv, err := ctyToInterface(v)
			if err != nil {
				return nil, err
			}
			out = append(out, conv)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported cty type: %s", val.Type().FriendlyName())
	}
}

func interfaceToCty(data any) (cty.Value, error) {
	switch v := data.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType), nil
	case string:
		return cty.StringVal(v), nil
	case float64:
		return cty.NumberFloatVal(v), nil
	case bool:
		return cty.BoolVal(v), nil
	case map[string]any:
		attrs := make(map[string]cty.Value, len(v))
		for k, val := range v {
			conv, err := interfaceToCty(val)
			if err != nil {
				return cty.NilVal, err
			}
			attrs[k] = conv
		}
		return cty.ObjectVal(attrs), nil
	case []any:
		elems := make([]cty.Value, 0, len(v))
		for _, val := range v {
			conv, err := interfaceToCty(val)
			if err != nil {
				return cty.NilVal, err
			}
			elems = append(elems, conv)
		}
		return cty.TupleVal(elems), nil
	default:
		return cty.NilVal, fmt.Errorf("unsupported type for cty conversion: %T", v)
	}
}
