package telemetry

import (
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RegisterDBTracing installs the otelgorm plugin so every statement becomes a
// child span of the request that issued it. Query variables stay out of spans
// unless fullSQL is set.
func RegisterDBTracing(db *gorm.DB, fullSQL bool, logger *zap.Logger) error {
	opts := []otelgorm.Option{otelgorm.WithDBName(db.Dialector.Name())}
	if !fullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}
	logger.Info("Database tracing enabled", zap.Bool("full_sql", fullSQL))
	return nil
}
