package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "recipeextractor.v1.Extractor"

// Method paths.
const (
	MethodExtract       = "/" + ServiceName + "/Extract"
	MethodExtractText   = "/" + ServiceName + "/ExtractText"
	MethodGetRecipe     = "/" + ServiceName + "/GetRecipe"
	MethodExportRecipes = "/" + ServiceName + "/ExportRecipes"
)

// ExtractorServer is the server API. Requests and responses are google.protobuf.Struct
// messages whose fields are documented on each ExtractorService method.
type ExtractorServer interface {
	Extract(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ExtractText(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetRecipe(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ExportRecipes(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterExtractorServer registers srv on s.
func RegisterExtractorServer(s grpc.ServiceRegistrar, srv ExtractorServer) {
	s.RegisterService(&ExtractorServiceDesc, srv)
}

// ExtractorServiceDesc describes the service without generated code.
var ExtractorServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ExtractorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Extract", Handler: unaryHandler(MethodExtract, ExtractorServer.Extract)},
		{MethodName: "ExtractText", Handler: unaryHandler(MethodExtractText, ExtractorServer.ExtractText)},
		{MethodName: "GetRecipe", Handler: unaryHandler(MethodGetRecipe, ExtractorServer.GetRecipe)},
		{MethodName: "ExportRecipes", Handler: unaryHandler(MethodExportRecipes, ExtractorServer.ExportRecipes)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "recipeextractor/v1/extractor.proto",
}

type unaryMethod func(ExtractorServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, m unaryMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return m(srv.(ExtractorServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return m(srv.(ExtractorServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ExtractorClient calls the service over a client connection.
type ExtractorClient struct {
	cc grpc.ClientConnInterface
}

func NewExtractorClient(cc grpc.ClientConnInterface) *ExtractorClient {
	return &ExtractorClient{cc: cc}
}

func (c *ExtractorClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ExtractorClient) Extract(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodExtract, in, opts...)
}

func (c *ExtractorClient) ExtractText(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodExtractText, in, opts...)
}

func (c *ExtractorClient) GetRecipe(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodGetRecipe, in, opts...)
}

func (c *ExtractorClient) ExportRecipes(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodExportRecipes, in, opts...)
}
