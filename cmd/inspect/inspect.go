// cmd/inspect/inspect.go

package inspect

import (
	"time"

	"github.com/CodeMonkeyCybersecurity/iaso/pkg/config"
	"github.com/CodeMonkeyCybersecurity/iaso/pkg/eventlog"
	"github.com/CodeMonkeyCybersecurity/iaso/pkg/iaso_cli"
	"github.com/CodeMonkeyCybersecurity/iaso/pkg/iaso_io"
	"github.com/CodeMonkeyCybersecurity/iaso/pkg/logger"
	"github.com/CodeMonkeyCybersecurity/iaso/pkg/plan"
	"github.com/CodeMonkeyCybersecurity/iaso/pkg/registry"
	"github.com/CodeMonkeyCybersecurity/iaso/pkg/step"
	"github.com/spf13/cobra"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// InspectCmd evaluates a plan's preconditions without acting on any of them.
var InspectCmd = &cobra.Command{
	Use:   "inspect <plan.yaml>",
	Short: "Evaluate a plan's preconditions without changing anything",
	Long: `Evaluate every step's precondition and report what a run would do.
Inspection never mutates state and never needs administrative rights.

Examples:
  iaso inspect plans/remove-legacy-agent.yaml`,

	Args: cobra.ExactArgs(1),
	RunE: iaso_cli.Wrap(func(rc *iaso_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		log := otelzap.Ctx(rc.Ctx)
		planPath := args[0]

		settings, err := config.Load(logger.L())
		if err != nil {
			return err
		}

		doc, err := plan.Load(planPath)
		if err != nil {
			return err
		}
		log.Info("Inspecting plan",
			zap.String("plan", doc.Name),
			zap.Int("steps", len(doc.Steps)))

		store := registry.NewFileStore(settings.RegistryRoot)
		steps, _, err := doc.Build(store, plan.DefaultRunConfig())
		if err != nil {
			return err
		}

		actionable := 0
		for _, s := range steps {
			finding, err := s.Check.Evaluate(rc)
			if err != nil {
				log.Warn("Precondition check failed",
					zap.String("step", s.Name),
					zap.String("check", s.Check.Describe()),
					zap.Error(err))
				continue
			}
			if finding.Status.ActionNeeded() {
				actionable++
			}
			log.Info("Precondition evaluated",
				zap.String("step", s.Name),
				zap.String("status", finding.Status.String()),
				zap.String("detail", finding.Detail),
				zap.Bool("would_act", finding.Status.ActionNeeded()))
		}

		reportUnitErrors(rc, doc)

		log.Info("Inspection complete",
			zap.Int("steps", len(steps)),
			zap.Int("would_act", actionable))
		return nil
	}),
}

// reportUnitErrors surfaces recent journal errors for every service unit the
// plan touches, so an operator sees a failing unit before running the plan.
func reportUnitErrors(rc *iaso_io.RuntimeContext, doc *plan.Document) {
	log := otelzap.Ctx(rc.Ctx)
	since := time.Now().Add(-time.Hour)

	for _, spec := range doc.Steps {
		if spec.Kind != step.KindEnsureService {
			continue
		}
		events, err := eventlog.Query(rc, spec.Unit, since, func(e eventlog.Event) bool {
			return e.Priority <= 3 // err and worse
		})
		if err != nil {
			log.Debug("Journal not queryable", zap.String("unit", spec.Unit), zap.Error(err))
			continue
		}
		if len(events) == 0 {
			continue
		}
		log.Warn("Unit logged errors in the last hour",
			zap.String("unit", spec.Unit),
			zap.Int("events", len(events)),
			zap.String("latest", events[len(events)-1].Message))
	}
}
