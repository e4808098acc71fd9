package query

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	core "cic2nf/internal/core/model"
	"cic2nf/internal/netflow"
	"cic2nf/internal/protocol"

	"github.com/gorilla/mux"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// DefaultFlowLimit caps /flows responses when no limit is given.
const DefaultFlowLimit = 1000

// APIHandler holds the dependencies for API handlers.
type APIHandler struct {
	querier Querier
}

// NewRouter registers the read-back routes on a new router.
func NewRouter(q Querier) *mux.Router {
	h := &APIHandler{querier: q}
	r := mux.NewRouter()
	r.HandleFunc("/api/v1/labels", h.labelsHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/labels/{label}/flows", h.flowsHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/labels/{label}/summary", h.summaryHandler).Methods(http.MethodGet)
	return r
}

func (h *APIHandler) labelsHandler(w http.ResponseWriter, r *http.Request) {
	labels, err := h.querier.Labels(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	list := make([]*structpb.Value, 0, len(labels))
	for _, l := range labels {
		list = append(list, structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			"name":       structpb.NewStringValue(l.Name),
			"file":       structpb.NewStringValue(l.File),
			"size_bytes": structpb.NewNumberValue(float64(l.SizeBytes)),
		}}))
	}
	writeProto(w, &structpb.Struct{Fields: map[string]*structpb.Value{
		"labels": structpb.NewListValue(&structpb.ListValue{Values: list}),
	}})
}

func (h *APIHandler) flowsHandler(w http.ResponseWriter, r *http.Request) {
	label := mux.Vars(r)["label"]
	limit := DefaultFlowLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			http.Error(w, fmt.Sprintf("invalid limit %q", s), http.StatusBadRequest)
			return
		}
		limit = n
	}

	flows, err := h.querier.Flows(r.Context(), label, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	list := make([]*structpb.Value, 0, len(flows))
	for _, nf := range flows {
		list = append(list, structpb.NewStructValue(flowStruct(nf)))
	}
	writeProto(w, &structpb.Struct{Fields: map[string]*structpb.Value{
		"label": structpb.NewStringValue(label),
		"count": structpb.NewNumberValue(float64(len(flows))),
		"flows": structpb.NewListValue(&structpb.ListValue{Values: list}),
	}})
}

func (h *APIHandler) summaryHandler(w http.ResponseWriter, r *http.Request) {
	label := mux.Vars(r)["label"]
	sum, err := h.querier.Summary(r.Context(), label)
	if err != nil {
		writeError(w, err)
		return
	}

	protos := make([]*structpb.Value, 0, len(sum.Protocols))
	for _, pt := range sum.Protocols {
		fields := totalsFields(pt.Totals)
		fields["protocol"] = structpb.NewNumberValue(float64(pt.Protocol))
		fields["name"] = structpb.NewStringValue(pt.Name)
		protos = append(protos, structpb.NewStructValue(&structpb.Struct{Fields: fields}))
	}

	fields := totalsFields(sum.Total)
	fields["label"] = structpb.NewStringValue(sum.Label)
	fields["protocols"] = structpb.NewListValue(&structpb.ListValue{Values: protos})
	if sum.Total.Flows > 0 {
		fields["first"] = structpb.NewStringValue(sum.First.UTC().Format(time.RFC3339Nano))
		fields["last"] = structpb.NewStringValue(sum.Last.UTC().Format(time.RFC3339Nano))
	}
	writeProto(w, &structpb.Struct{Fields: fields})
}

func totalsFields(t Totals) map[string]*structpb.Value {
	return map[string]*structpb.Value{
		"flows":   structpb.NewNumberValue(float64(t.Flows)),
		"packets": structpb.NewNumberValue(float64(t.Packets)),
		"bytes":   structpb.NewNumberValue(float64(t.Bytes)),
	}
}

func flowStruct(nf *core.NetFlow) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"timestamp":     structpb.NewStringValue(nf.Timestamp.UTC().Format(netflow.TimestampLayout)),
		"duration":      structpb.NewStringValue(netflow.FormatDuration(nf.Duration)),
		"protocol":      structpb.NewNumberValue(float64(nf.Protocol)),
		"protocol_name": structpb.NewStringValue(protocol.Name(nf.Protocol)),
		"src_ip":        structpb.NewStringValue(nf.Src.IP),
		"src_port":      structpb.NewNumberValue(float64(nf.Src.Port)),
		"dst_ip":        structpb.NewStringValue(nf.Dst.IP),
		"dst_port":      structpb.NewNumberValue(float64(nf.Dst.Port)),
		"flags":         structpb.NewStringValue(nf.Flags.String()),
		"packets":       structpb.NewNumberValue(float64(nf.Packets)),
		"bytes":         structpb.NewNumberValue(float64(nf.Bytes)),
		"flows":         structpb.NewNumberValue(float64(nf.Flows)),
	}}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrLabelNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrInvalidLabel):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, fmt.Sprintf("failed to query flows: %v", err), http.StatusInternalServerError)
	}
}

func writeProto(w http.ResponseWriter, msg proto.Message) {
	jsonBytes, err := protojson.Marshal(msg)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to marshal response: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(jsonBytes)
}
