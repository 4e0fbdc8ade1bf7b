package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/restaurant-oms/internal/domain"
	"github.com/vladislavdragonenkov/restaurant-oms/internal/messaging/kafka"
)

// initKafkaProducer инициализирует Kafka producer, если указаны brokers.
// Возвращает nil, nil при пустом списке брокеров.
func initKafkaProducer(brokers []string, logger *log.Entry) (*kafka.Producer, error) {
	if len(brokers) == 0 {
		return nil, nil
	}

	producer, err := kafka.NewProducer(brokers)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		return nil, err
	}

	logger.WithField("brokers", brokers).Info("kafka producer initialized")
	return producer, nil
}

// newOutboxPublisher выбирает publisher для outbox-воркера: Kafka при
// наличии producer, иначе логирующая заглушка.
func newOutboxPublisher(producer *kafka.Producer, logger *log.Entry) domain.OutboxPublisher {
	if producer == nil {
		logger.Info("kafka is not configured, outbox events will be logged only")
		return kafka.NewLoggingPublisher(logger)
	}
	return kafka.NewOutboxPublisher(producer, "")
}

// closeKafka закрывает Kafka producer, если он создан.
func closeKafka(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}

	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	} else {
		logger.Info("kafka producer closed")
	}
}
