package registry

import (
	"log/slog"

	logexecutor "github.com/tbragan/graphion/pkg/executors/log"
	"github.com/tbragan/graphion/pkg/executors/template"
	"github.com/tbragan/graphion/pkg/executors/transform"
	"github.com/tbragan/graphion/pkg/executors/trigger"
	"github.com/tbragan/graphion/pkg/reference"
)

// NewDefaultRegistry wires the built-in executors. Node types whose concrete
// executors live outside this process (capability manifest calls, LLM-backed
// extraction) are reserved as not-implemented placeholders so runs fail
// attributably instead of with an unknown-type error.
func NewDefaultRegistry(logger *slog.Logger, resolver *reference.Resolver) *Registry {
	r := NewRegistry(logger)

	r.Register(trigger.Type, trigger.NewExecutor())
	r.Register(transform.Type, transform.NewExecutor(resolver))
	r.Register(template.Type, template.NewExecutor(resolver))
	r.Register(logexecutor.Type, logexecutor.NewExecutor(resolver, logger))

	r.RegisterNotImplemented("manifest")
	r.RegisterNotImplemented("extract")

	return r
}
