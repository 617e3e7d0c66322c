package solver

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/protoparse"
	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/verith-lang/verith/internal/hir"
)

// solverProtoFile is the wire contract of the remote prover. The descriptor
// is parsed at construction time, so no generated code is required.
const solverProtoFile = "verith/solver.proto"

const solverProto = `syntax = "proto3";

package verith.solver;

message DischargeRequest {
  string batch_id = 1;
  string scope = 2;
  repeated string predicates = 3;
}

message PredicateFailure {
  string predicate = 1;
  string reason = 2;
}

message DischargeReport {
  repeated PredicateFailure failures = 1;
}

service Solver {
  rpc Discharge (DischargeRequest) returns (DischargeReport);
}
`

const dischargeMethod = "/verith.solver.Solver/Discharge"

// Remote forwards predicate batches to an external prover over gRPC. The
// call is synchronous and uncancellable: the prover runs to completion or
// the transport fails and the whole translation aborts.
type Remote struct {
	conn   *grpc.ClientConn
	input  *desc.MessageDescriptor
	output *desc.MessageDescriptor
}

// NewRemote connects to the prover at target and prepares the dynamic
// message descriptors.
func NewRemote(target string) (*Remote, error) {
	parser := protoparse.Parser{
		Accessor: protoparse.FileContentsFromMap(map[string]string{
			solverProtoFile: solverProto,
		}),
	}
	fds, err := parser.ParseFiles(solverProtoFile)
	if err != nil {
		return nil, fmt.Errorf("parsing solver proto: %w", err)
	}
	svc := fds[0].FindService("verith.solver.Solver")
	if svc == nil {
		return nil, fmt.Errorf("solver proto: service not found")
	}
	mtd := svc.FindMethodByName("Discharge")
	if mtd == nil {
		return nil, fmt.Errorf("solver proto: Discharge method not found")
	}

	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("connecting to solver at %s: %w", target, err)
	}
	return &Remote{
		conn:   conn,
		input:  mtd.GetInputType(),
		output: mtd.GetOutputType(),
	}, nil
}

// Close releases the connection.
func (s *Remote) Close() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

// Discharge submits one batch and decodes the report.
func (s *Remote) Discharge(scope hir.DefID, preds []hir.Predicate) ([]Failure, error) {
	req := dynamic.NewMessage(s.input)
	if err := req.TrySetFieldByName("batch_id", uuid.NewString()); err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if err := req.TrySetFieldByName("scope", string(scope)); err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	for _, pred := range preds {
		if err := req.TryAddRepeatedFieldByName("predicates", RenderPredicate(pred)); err != nil {
			return nil, fmt.Errorf("building request: %w", err)
		}
	}

	resp := dynamic.NewMessage(s.output)
	if err := s.conn.Invoke(context.Background(), dischargeMethod, req, resp); err != nil {
		return nil, fmt.Errorf("solver rpc failed: %w", err)
	}

	raw, err := resp.TryGetFieldByName("failures")
	if err != nil {
		return nil, fmt.Errorf("decoding report: %w", err)
	}
	entries, _ := raw.([]interface{})
	var failures []Failure
	for _, e := range entries {
		msg, ok := e.(*dynamic.Message)
		if !ok {
			return nil, fmt.Errorf("decoding report: unexpected failure entry %T", e)
		}
		pred, _ := msg.GetFieldByName("predicate").(string)
		reason, _ := msg.GetFieldByName("reason").(string)
		failures = append(failures, Failure{Predicate: pred, Reason: reason})
	}
	return failures, nil
}
