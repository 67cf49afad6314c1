package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/pallet-tracker/internal/async"
	"github.com/joseph-ayodele/pallet-tracker/internal/common"
	"github.com/joseph-ayodele/pallet-tracker/internal/entity"
	"github.com/joseph-ayodele/pallet-tracker/internal/pipeline"
	"github.com/joseph-ayodele/pallet-tracker/internal/report"
)

// PalletService is the server API for pallets.v1.PalletService.
type PalletService interface {
	Lookup(ctx context.Context, req *LookupRequest) (*LookupResponse, error)
	Ingest(ctx context.Context, req *IngestRequest) (*IngestResponse, error)
}

// Looker resolves identifiers to their associations.
type Looker interface {
	Lookup(ctx context.Context, identifiers []string) (map[string]entity.LookupOutcome, error)
}

// PathIngestor ingests one PDF by path.
type PathIngestor interface {
	IngestPath(ctx context.Context, path, name string) (*pipeline.Run, error)
}

// PalletServer implements PalletService over the lookup service, the file
// ingestor and, for async requests, the ingestion queue.
type PalletServer struct {
	lookup   Looker
	ingestor PathIngestor
	queue    async.Queue
	logger   *slog.Logger
}

// NewPalletServer returns a server; queue may be nil, in which case async
// ingestion is refused.
func NewPalletServer(lookup Looker, ingestor PathIngestor, queue async.Queue, logger *slog.Logger) *PalletServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &PalletServer{lookup: lookup, ingestor: ingestor, queue: queue, logger: logger}
}

func (s *PalletServer) Lookup(ctx context.Context, req *LookupRequest) (*LookupResponse, error) {
	outcomes, err := s.lookup.Lookup(ctx, req.PalletIDs)
	if err != nil {
		s.logger.Warn("lookup rejected", "request_id", common.RequestIDFromContext(ctx), "error", err)
		return nil, common.ToStatus(err)
	}
	rep := report.BuildLookupReport(req.PalletIDs, outcomes)
	s.logger.Info("lookup served", "request_id", common.RequestIDFromContext(ctx),
		"found", rep.Found, "not_found", rep.NotFound, "failed", rep.Failed)
	return &LookupResponse{Report: rep}, nil
}

func (s *PalletServer) Ingest(ctx context.Context, req *IngestRequest) (*IngestResponse, error) {
	path := strings.TrimSpace(req.Path)
	requestID := common.RequestIDFromContext(ctx)

	if req.Async {
		if s.queue == nil {
			return nil, status.Error(codes.FailedPrecondition, "async ingestion is not enabled")
		}
		job := async.NewJob(path, req.DocumentName)
		job.RequestID = requestID
		if err := s.queue.Enqueue(ctx, job); err != nil {
			s.logger.Error("failed to enqueue document", "path", path, "request_id", requestID, "error", err)
			return nil, status.Error(codes.Unavailable, err.Error())
		}
		return &IngestResponse{JobID: job.ID.String()}, nil
	}

	s.logger.Info("starting document ingest", "path", path, "request_id", requestID)
	run, err := s.ingestor.IngestPath(ctx, path, req.DocumentName)
	if err != nil {
		s.logger.Error("document ingest failed", "path", path, "request_id", requestID, "error", err)
		return nil, common.ToStatus(err)
	}
	rep := report.BuildIngestionReport(run)
	return &IngestResponse{Report: &rep}, nil
}

// decodeRequest validates the raw request body against schema before decoding it into in.
func decodeRequest(dec func(any) error, schema *jsonschema.Schema, in any) error {
	var raw json.RawMessage
	if err := dec(&raw); err != nil {
		return err
	}
	if err := validateJSON(schema, raw); err != nil {
		return common.InvalidArgumentError(err.Error())
	}
	if err := json.Unmarshal(raw, in); err != nil {
		return common.InvalidArgumentErrorf("decode request: %v", err)
	}
	return nil
}

func lookupHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(LookupRequest)
	if err := decodeRequest(dec, lookupRequestSchema, in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PalletService).Lookup(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: lookupMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(PalletService).Lookup(ctx, req.(*LookupRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func ingestHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(IngestRequest)
	if err := decodeRequest(dec, ingestRequestSchema, in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PalletService).Ingest(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ingestMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(PalletService).Ingest(ctx, req.(*IngestRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PalletService)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Lookup", Handler: lookupHandler},
		{MethodName: "Ingest", Handler: ingestHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pallets/v1/pallets.proto",
}

func RegisterPalletServiceServer(s grpc.ServiceRegistrar, srv PalletService) {
	s.RegisterService(&serviceDesc, srv)
}
