package plugin

import (
	"context"

	json "github.com/goccy/go-json"
	"github.com/hashicorp/go-plugin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

const serviceName = "buddylist.plugin.Plugin"

// codecName is the gRPC content subtype used by plugin calls. go-plugin's
// own services keep using protobuf on the same connection.
const codecName = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return codecName }

type notifyRequest struct {
	Event Event `json:"event"`
}

type notifyResponse struct {
	Notices []Notice `json:"notices"`
}

type commandRequest struct {
	Name string   `json:"name"`
	Args []string `json:"args"`
}

type empty struct{}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*Plugin)(nil),
	Methods: []grpc.MethodDesc{
		unary("Info", func(ctx context.Context, p Plugin, _ *empty) (any, error) {
			return p.Info(ctx)
		}),
		unary("Notify", func(ctx context.Context, p Plugin, req *notifyRequest) (any, error) {
			notices, err := p.Notify(ctx, req.Event)
			return notifyResponse{Notices: notices}, err
		}),
		unary("Command", func(ctx context.Context, p Plugin, req *commandRequest) (any, error) {
			return p.Command(ctx, req.Name, req.Args)
		}),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "buddylist/plugin",
}

// unary builds a method handler that decodes Req and dispatches to the
// plugin, honoring any server interceptor
func unary[Req any](method string, call func(context.Context, Plugin, *Req) (any, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			req := new(Req)
			if err := dec(req); err != nil {
				return nil, err
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(ctx, srv.(Plugin), req.(*Req))
			}
			if interceptor == nil {
				return handler(ctx, req)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/" + method}
			return interceptor(ctx, req, info, handler)
		},
	}
}

// grpcClient is the host side of a plugin connection
type grpcClient struct {
	conn *grpc.ClientConn
}

func (c *grpcClient) invoke(ctx context.Context, method string, req, resp any) error {
	return c.conn.Invoke(ctx, "/"+serviceName+"/"+method, req, resp, grpc.CallContentSubtype(codecName))
}

func (c *grpcClient) Info(ctx context.Context) (Info, error) {
	var info Info
	err := c.invoke(ctx, "Info", &empty{}, &info)
	return info, err
}

func (c *grpcClient) Notify(ctx context.Context, event Event) ([]Notice, error) {
	var resp notifyResponse
	if err := c.invoke(ctx, "Notify", &notifyRequest{Event: event}, &resp); err != nil {
		return nil, err
	}
	return resp.Notices, nil
}

func (c *grpcClient) Command(ctx context.Context, name string, args []string) (Reply, error) {
	var reply Reply
	err := c.invoke(ctx, "Command", &commandRequest{Name: name, Args: args}, &reply)
	return reply, err
}

// GRPCPlugin is the go-plugin binding of Plugin
type GRPCPlugin struct {
	plugin.NetRPCUnsupportedPlugin
	Impl Plugin
}

// GRPCServer registers the plugin service
func (p *GRPCPlugin) GRPCServer(_ *plugin.GRPCBroker, s *grpc.Server) error {
	s.RegisterService(&serviceDesc, p.Impl)
	return nil
}

// GRPCClient returns a Plugin that calls over c
func (p *GRPCPlugin) GRPCClient(_ context.Context, _ *plugin.GRPCBroker, c *grpc.ClientConn) (interface{}, error) {
	return &grpcClient{conn: c}, nil
}

// Serve runs impl as a plugin process. It is called from a plugin's main
// and returns when the host goes away.
func Serve(impl Plugin) {
	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: Handshake,
		Plugins: map[string]plugin.Plugin{
			pluginKey: &GRPCPlugin{Impl: impl},
		},
		GRPCServer: plugin.DefaultGRPCServer,
	})
}
