package eventbus

import (
	"fmt"
	"os"
	"strings"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const defaultConsumerGroup = "cg-windlass"

// NewEventBus builds an event bus for the given provider. "gochannel" is the
// in-process default; "kafka" reads brokers from KAFKA_BROKERS.
func NewEventBus(provider string) (EventBus, error) {
	watermillLogger := watermill.NewStdLogger(false, false)

	switch provider {
	case "", "gochannel":
		pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermillLogger)

		return NewWatermillEventBus(pubSub, pubSub), nil
	case "kafka":
		pub, sub, err := createKafkaPubSub(watermillLogger)
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka pub/sub: %w", err)
		}

		return NewWatermillEventBus(pub, sub), nil
	default:
		return nil, fmt.Errorf("unknown event bus provider: %q", provider)
	}
}

func createKafkaPubSub(logger watermill.LoggerAdapter) (*kafka.Publisher, *kafka.Subscriber, error) {
	brokers := []string{"kafka:9092"}
	if host := os.Getenv("KAFKA_BROKERS"); host != "" {
		brokers = strings.Split(host, ",")
	}

	group := os.Getenv("KAFKA_GROUP_ID")
	if group == "" {
		group = defaultConsumerGroup
	}

	saramaSubscriberConfig := kafka.DefaultSaramaSubscriberConfig()
	saramaSubscriberConfig.Consumer.Offsets.Initial = sarama.OffsetOldest

	subscriber, err := kafka.NewSubscriber(
		kafka.SubscriberConfig{
			Brokers:               brokers,
			Unmarshaler:           kafka.DefaultMarshaler{},
			OverwriteSaramaConfig: saramaSubscriberConfig,
			ConsumerGroup:         group,
		},
		logger,
	)
	if err != nil {
		return nil, nil, err
	}

	saramaPublisherConfig := sarama.NewConfig()
	saramaPublisherConfig.Producer.Return.Successes = true

	publisher, err := kafka.NewPublisher(
		kafka.PublisherConfig{
			Brokers:               brokers,
			Marshaler:             kafka.DefaultMarshaler{},
			OverwriteSaramaConfig: saramaPublisherConfig,
		},
		logger,
	)
	if err != nil {
		return nil, nil, err
	}

	return publisher, subscriber, nil
}
