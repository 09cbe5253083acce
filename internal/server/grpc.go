package server

import (
	"context"
	"log/slog"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/text-extractor/internal/common"
	"github.com/joseph-ayodele/text-extractor/internal/pipeline"
)

const ServiceName = "textextract.v1.TextExtractor"

// TextExtractorServer takes and returns google.protobuf.Struct messages so
// the service needs no generated code.
//
//	Extract            {path, languages?}  -> {path, kind, text, cached, error}
//	CanExtract         {path}              -> {path, can_extract}
//	SupportedLanguages {}                  -> {languages, default}
type TextExtractorServer interface {
	Extract(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CanExtract(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SupportedLanguages(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type ExtractionService struct {
	extractor Extractor
	logger    *slog.Logger
}

func NewExtractionService(ext Extractor, logger *slog.Logger) *ExtractionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractionService{extractor: ext, logger: logger}
}

func (s *ExtractionService) Extract(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	path := strings.TrimSpace(stringField(req, "path"))
	if path == "" {
		s.logger.Error("extract request missing path", "request_id", common.RequestIDFromContext(ctx))
		return nil, common.InvalidArgumentError("path is required")
	}
	langs, err := stringList(req, "languages")
	if err != nil {
		return nil, err
	}

	out, err := s.extractor.Extract(ctx, path, pipeline.Options{Languages: langs})
	if err != nil {
		s.logger.Warn("extract rejected", "path", path, "error", err)
		return nil, common.ToStatus(err)
	}
	r := resultOf(path, out)
	return structpb.NewStruct(map[string]any{
		"path":   r.Path,
		"kind":   r.Kind,
		"text":   r.Text,
		"cached": r.Cached,
		"error":  r.Error,
	})
}

func (s *ExtractionService) CanExtract(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	path := strings.TrimSpace(stringField(req, "path"))
	if path == "" {
		return nil, common.InvalidArgumentError("path is required")
	}
	return structpb.NewStruct(map[string]any{
		"path":        path,
		"can_extract": s.extractor.CanExtract(path),
	})
}

func (s *ExtractionService) SupportedLanguages(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"languages": toAny(s.extractor.SupportedLanguages()),
		"default":   toAny(s.extractor.DefaultLanguages()),
	})
}

func stringField(s *structpb.Struct, name string) string {
	if s == nil {
		return ""
	}
	return s.GetFields()[name].GetStringValue()
}

func stringList(s *structpb.Struct, name string) ([]string, error) {
	v, ok := s.GetFields()[name]
	if !ok {
		return nil, nil
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return nil, nil
	}
	list := v.GetListValue()
	if list == nil {
		return nil, common.InvalidArgumentErrorf("%s must be a list of strings", name)
	}
	out := make([]string, 0, len(list.GetValues()))
	for _, item := range list.GetValues() {
		str, ok := item.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, common.InvalidArgumentErrorf("%s must be a list of strings", name)
		}
		out = append(out, str.StringValue)
	}
	return out, nil
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func unaryHandler(method string, call func(TextExtractorServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(TextExtractorServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(TextExtractorServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var TextExtractorServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TextExtractorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Extract", Handler: unaryHandler("Extract", TextExtractorServer.Extract)},
		{MethodName: "CanExtract", Handler: unaryHandler("CanExtract", TextExtractorServer.CanExtract)},
		{MethodName: "SupportedLanguages", Handler: unaryHandler("SupportedLanguages", TextExtractorServer.SupportedLanguages)},
	},
	Streams: []grpc.StreamDesc{},
}

// NewGRPCServer registers the extraction, health and reflection services.
func NewGRPCServer(svc TextExtractorServer, logger *slog.Logger) (*grpc.Server, *health.Server) {
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(
		RequestIDInterceptor(),
		LoggingInterceptor(logger),
	))

	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	reflection.Register(grpcServer)
	grpcServer.RegisterService(&TextExtractorServiceDesc, svc)
	return grpcServer, hs
}

// Client is a thin caller for the Struct-based service.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, in map[string]any) (*structpb.Struct, error) {
	req, err := structpb.NewStruct(in)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Extract(ctx context.Context, path string, languages []string) (ExtractResult, error) {
	in := map[string]any{"path": path}
	if len(languages) > 0 {
		in["languages"] = toAny(languages)
	}
	out, err := c.invoke(ctx, "Extract", in)
	if err != nil {
		return ExtractResult{}, err
	}
	f := out.GetFields()
	return ExtractResult{
		Path:   f["path"].GetStringValue(),
		Kind:   f["kind"].GetStringValue(),
		Text:   f["text"].GetStringValue(),
		Cached: f["cached"].GetBoolValue(),
		Error:  f["error"].GetStringValue(),
	}, nil
}

func (c *Client) CanExtract(ctx context.Context, path string) (bool, error) {
	out, err := c.invoke(ctx, "CanExtract", map[string]any{"path": path})
	if err != nil {
		return false, err
	}
	return out.GetFields()["can_extract"].GetBoolValue(), nil
}

func (c *Client) SupportedLanguages(ctx context.Context) ([]string, error) {
	out, err := c.invoke(ctx, "SupportedLanguages", map[string]any{})
	if err != nil {
		return nil, err
	}
	vals := out.GetFields()["languages"].GetListValue().GetValues()
	langs := make([]string, 0, len(vals))
	for _, v := range vals {
		langs = append(langs, v.GetStringValue())
	}
	return langs, nil
}
