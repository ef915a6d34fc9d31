package cqrs

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
)

// DefaultTopicPrefix namespaces event topics on the shared stream backend
const DefaultTopicPrefix = "stride-events"

// Marshaler names events by their bare struct name
var Marshaler = cqrs.JSONMarshaler{GenerateName: cqrs.StructName}

// TopicName returns the stream topic an event is published on
func TopicName(prefix, eventName string) string {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return fmt.Sprintf("%s.%s", prefix, eventName)
}

// NewEventBus creates an event bus publishing to prefixed topics
func NewEventBus(publisher message.Publisher, prefix string, logger watermill.LoggerAdapter) (*cqrs.EventBus, error) {
	bus, err := cqrs.NewEventBusWithConfig(
		publisher,
		cqrs.EventBusConfig{
			GeneratePublishTopic: func(params cqrs.GenerateEventPublishTopicParams) (string, error) {
				return TopicName(prefix, params.EventName), nil
			},
			Marshaler: Marshaler,
			Logger:    logger,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create event bus: %w", err)
	}
	return bus, nil
}

// NewEventProcessor creates an event processor reading prefixed topics
// through a single shared subscriber
func NewEventProcessor(router *message.Router, subscriber message.Subscriber, prefix string, logger watermill.LoggerAdapter) (*cqrs.EventProcessor, error) {
	processor, err := cqrs.NewEventProcessorWithConfig(
		router,
		cqrs.EventProcessorConfig{
			GenerateSubscribeTopic: func(params cqrs.EventProcessorGenerateSubscribeTopicParams) (string, error) {
				return TopicName(prefix, params.EventName), nil
			},
			SubscriberConstructor: func(params cqrs.EventProcessorSubscriberConstructorParams) (message.Subscriber, error) {
				return subscriber, nil
			},
			Marshaler: Marshaler,
			Logger:    logger,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create event processor: %w", err)
	}
	return processor, nil
}
