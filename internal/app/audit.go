package app

import (
	"go.uber.org/zap"

	"github.com/talkincode/prodcatalog/internal/catalog"
)

var auditTopics = []string{
	catalog.TopicProductCreated,
	catalog.TopicProductUpdated,
	catalog.TopicProductDeleted,
}

// subscribeAudit logs every product mutation with the acting user
func (a *Application) subscribeAudit() error {
	for _, topic := range auditTopics {
		topic := topic
		err := a.bus.Subscribe(topic, func(ev catalog.Event) {
			fields := []zap.Field{
				zap.String("topic", topic),
				zap.String("actor", ev.Actor),
				zap.String("id", ev.ProductID),
				zap.Time("at", ev.At),
			}
			if ev.Product != nil {
				fields = append(fields, zap.String("productId", ev.Product.ProductID))
			}
			zap.L().Info("product audit", fields...)
		})
		if err != nil {
			return err
		}
	}
	return nil
}
