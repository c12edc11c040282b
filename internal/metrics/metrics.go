package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// TemplateMutations counts committed workflow-template operations by kind.
var TemplateMutations = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "teamflow_template_mutations_total",
	Help: "Committed workflow template mutations by operation.",
}, []string{"operation"})

// EdgeRejections counts definition writes rejected by the validation
// pipeline, labeled with the rejection reason.
var EdgeRejections = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "teamflow_edge_rejections_total",
	Help: "Definition mutations rejected by validation, by reason.",
}, []string{"reason"})
