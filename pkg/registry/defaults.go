package registry

import (
	"log/slog"

	"github.com/windlass-io/windlass/pkg/nodes/approval"
	"github.com/windlass-io/windlass/pkg/nodes/httprequest"
	lognode "github.com/windlass-io/windlass/pkg/nodes/log"
	"github.com/windlass-io/windlass/pkg/nodes/noop"
	"github.com/windlass-io/windlass/pkg/nodes/schedule"
	"github.com/windlass-io/windlass/pkg/nodes/transform"
)

// NewDefaultRegistry returns a registry with every built-in node type
// registered.
func NewDefaultRegistry(logger *slog.Logger) *Registry {
	r := NewRegistry(logger)

	r.RegisterCapability(lognode.NewFactory())
	r.RegisterCapability(transform.NewFactory())
	r.RegisterCapability(httprequest.NewFactory())
	r.RegisterCapability(approval.NewFactory())
	r.RegisterCapability(noop.NewFactory())

	r.RegisterTrigger(schedule.NewFactory())

	return r
}
