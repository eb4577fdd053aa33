package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/checkout/internal/metrics"
	"github.com/vladislavdragonenkov/checkout/internal/service/placement"
)

// createPlacer собирает полный пайплайн размещения: валидатор, reconciler,
// оркестратор (с Kafka или без) и retry-обёртку поверх него.
func createPlacer(
	deps *runtimeDependencies,
	m *metrics.PlacementMetrics,
	kafkaProducer *kafka.Producer,
	orderTopic string,
	logger *log.Entry,
) placement.Orchestrator {
	validator := placement.NewValidator(deps.customers, deps.catalog)
	reconciler := placement.NewStockReconciler(deps.stock, logger.WithField("component", "stock-reconciler"))

	var orch placement.Orchestrator
	if kafkaProducer != nil {
		if orderTopic == "" {
			orderTopic = kafka.TopicOrderEvents
		}
		orch = placement.NewOrchestratorWithKafka(
			validator,
			reconciler,
			deps.repo,
			deps.outboxRepo,
			deps.timelineRepo,
			m,
			kafkaProducer,
			orderTopic,
		)
	} else {
		orch = placement.NewOrchestrator(
			validator,
			reconciler,
			deps.repo,
			deps.outboxRepo,
			deps.timelineRepo,
			m,
		)
	}

	return placement.NewRetryablePlacer(orch, placement.DefaultRetryConfig())
}
