package grpc

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/quentinrf/plant-monitor/services/analog-service/internal/ports"
)

// The AnalogDevice service carries structpb.Struct messages:
//
//	Connect    {device}  -> {session}
//	Poll       {session} -> {events: [{sec, usec, channels: [...]}]}
//	Disconnect {session} -> {}
const (
	serviceName      = "analog.v1.AnalogDevice"
	connectMethod    = "/" + serviceName + "/Connect"
	pollMethod       = "/" + serviceName + "/Poll"
	disconnectMethod = "/" + serviceName + "/Disconnect"
)

// AnalogDeviceServer is the server API for the AnalogDevice service
type AnalogDeviceServer interface {
	Connect(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Poll(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Disconnect(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// RegisterAnalogDeviceServer registers srv on s
func RegisterAnalogDeviceServer(s grpc.ServiceRegistrar, srv AnalogDeviceServer) {
	s.RegisterService(&analogDeviceServiceDesc, srv)
}

// analogDeviceServiceDesc has no backing .proto file descriptor, so reflection
// lists the service but cannot describe its messages.
var analogDeviceServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*AnalogDeviceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Connect",
			Handler:    unaryHandler(connectMethod, AnalogDeviceServer.Connect),
		},
		{
			MethodName: "Poll",
			Handler:    unaryHandler(pollMethod, AnalogDeviceServer.Poll),
		},
		{
			MethodName: "Disconnect",
			Handler:    unaryHandler(disconnectMethod, AnalogDeviceServer.Disconnect),
		},
	},
	Streams: []grpc.StreamDesc{},
}

type unaryMethod func(AnalogDeviceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AnalogDeviceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AnalogDeviceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func stringField(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

func stringMessage(key, value string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		key: structpb.NewStringValue(value),
	}}
}

// encodeEvents converts raw events to a Poll response
func encodeEvents(events []ports.RawEvent) *structpb.Struct {
	values := make([]*structpb.Value, len(events))
	for i, ev := range events {
		channels := make([]*structpb.Value, len(ev.Channels))
		for j, v := range ev.Channels {
			channels[j] = structpb.NewNumberValue(v)
		}
		values[i] = structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			"sec":      structpb.NewNumberValue(float64(ev.Sec)),
			"usec":     structpb.NewNumberValue(float64(ev.Usec)),
			"channels": structpb.NewListValue(&structpb.ListValue{Values: channels}),
		}})
	}

	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"events": structpb.NewListValue(&structpb.ListValue{Values: values}),
	}}
}

// decodeEvents converts a Poll response back to raw events.
// Any field of the wrong shape fails the whole response.
func decodeEvents(resp *structpb.Struct) ([]ports.RawEvent, error) {
	field, ok := resp.GetFields()["events"]
	if !ok {
		return nil, errors.New("poll response has no events")
	}
	list, ok := field.GetKind().(*structpb.Value_ListValue)
	if !ok {
		return nil, errors.New("poll response events is not a list")
	}

	values := list.ListValue.GetValues()
	events := make([]ports.RawEvent, 0, len(values))
	for i, v := range values {
		ev := v.GetStructValue()
		if ev == nil {
			return nil, fmt.Errorf("event %d is not a struct", i)
		}
		fields := ev.GetFields()

		sec, ok := numberValue(fields["sec"])
		if !ok {
			return nil, fmt.Errorf("event %d sec is not a number", i)
		}
		usec, ok := numberValue(fields["usec"])
		if !ok {
			return nil, fmt.Errorf("event %d usec is not a number", i)
		}

		raw, ok := fields["channels"].GetKind().(*structpb.Value_ListValue)
		if !ok {
			return nil, fmt.Errorf("event %d channels is not a list", i)
		}
		channels := make([]float64, len(raw.ListValue.GetValues()))
		for j, c := range raw.ListValue.GetValues() {
			if channels[j], ok = numberValue(c); !ok {
				return nil, fmt.Errorf("event %d channel %d is not a number", i, j)
			}
		}

		events = append(events, ports.RawEvent{
			Sec:      int64(sec),
			Usec:     int64(usec),
			Channels: channels,
		})
	}
	return events, nil
}

func numberValue(v *structpb.Value) (float64, bool) {
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, false
	}
	return n.NumberValue, true
}
