package push

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"farmlink/config"
	"farmlink/internal/domain/service"

	"cloud.google.com/go/pubsub/v2"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/pkg/errors"
	"google.golang.org/api/option"
)

// googleTransport receives pushes over a Google Pub/Sub subscription and
// delivers locally scheduled notifications through FCM when Firebase is
// configured.
type googleTransport struct {
	cfg         *config.PushConfig
	logger      *slog.Logger
	client      *pubsub.Client
	messaging   *messaging.Client
	dispatcher  *dispatcher
	permissions *permissionGate

	receiveCancel context.CancelFunc
}

// newGoogleTransport creates the production push transport.
func newGoogleTransport(ctx context.Context, cfg *config.PushConfig, fb *config.FirebaseConfig, logger *slog.Logger) (*googleTransport, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, errors.Wrap(err, "create pubsub client")
	}

	t := &googleTransport{
		cfg:         cfg,
		logger:      logger,
		client:      client,
		dispatcher:  newDispatcher(),
		permissions: &permissionGate{},
	}

	if fb != nil {
		app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(fb.CredentialsPath))
		if err != nil {
			client.Close()

			return nil, errors.Wrap(err, "initialize firebase app")
		}
		t.messaging, err = app.Messaging(ctx)
		if err != nil {
			client.Close()

			return nil, errors.Wrap(err, "get messaging client")
		}
	}

	return t, nil
}

// Start begins receiving pushes from the subscription.
func (t *googleTransport) Start(ctx context.Context) error {
	if t.cfg.SubscriptionID == "" {
		return errors.New("subscription id is required for google provider")
	}

	receiveCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	t.receiveCancel = cancel

	subscriber := t.client.Subscriber(t.cfg.SubscriptionID)
	go func() {
		err := subscriber.Receive(receiveCtx, func(_ context.Context, msg *pubsub.Message) {
			t.handleMessage(msg)
			msg.Ack()
		})
		if err != nil && receiveCtx.Err() == nil {
			t.logger.Error("pubsub receive stopped", slog.Any("error", err))
		}
	}()

	t.logger.Info("subscribed to push subscription",
		slog.String("projectId", t.cfg.ProjectID),
		slog.String("subscriptionId", t.cfg.SubscriptionID),
	)

	return nil
}

// Stop cancels the subscription receive loop.
func (t *googleTransport) Stop(context.Context) error {
	if t.receiveCancel != nil {
		t.receiveCancel()
	}

	return t.client.Close()
}

func (t *googleTransport) handleMessage(msg *pubsub.Message) {
	var payload notificationPayload
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		t.logger.Error("failed to parse push payload", slog.Any("error", err))

		return
	}

	// The platform marks user-response deliveries with an attribute.
	if msg.Attributes["event"] == "response" {
		t.dispatcher.deliverResponse(service.InboundNotification{
			Title: payload.Title, Body: payload.Body, Data: payload.Data,
		})

		return
	}

	t.dispatcher.deliver(service.InboundNotification{
		Title: payload.Title, Body: payload.Body, Data: payload.Data,
	})
}

func (t *googleTransport) QueryPermission(context.Context) (service.PermissionStatus, error) {
	return t.permissions.query(), nil
}

func (t *googleTransport) RequestPermission(context.Context) (bool, error) {
	return t.permissions.request(), nil
}

// ObtainDeviceToken returns the subscription resource path as this
// installation's device token; the backend treats it as opaque. A simulator
// build or missing subscription falls back to a synthetic placeholder.
func (t *googleTransport) ObtainDeviceToken(_ context.Context, projectID string) string {
	if t.cfg.Simulator {
		return service.SimulatorTokenPrefix + installationID()
	}
	if t.cfg.SubscriptionID == "" {
		return service.FallbackTokenPrefix + installationID()
	}

	return fmt.Sprintf("projects/%s/subscriptions/%s", projectID, t.cfg.SubscriptionID)
}

func (t *googleTransport) Subscribe(onReceive, onUserResponse service.ReceiveHandler) (service.CancelFunc, error) {
	return t.dispatcher.subscribe(onReceive, onUserResponse), nil
}

// ScheduleLocal delivers to local subscribers after the fixed delay and,
// when Firebase is configured, mirrors the notification through FCM on the
// channel's metadata so paired mobile devices see it too.
func (t *googleTransport) ScheduleLocal(ctx context.Context, push service.LocalPush) error {
	spec := specFor(push.Channel)

	time.AfterFunc(scheduleDelaySeconds*time.Second, func() {
		t.dispatcher.deliver(service.InboundNotification{
			Title: push.Title,
			Body:  push.Body,
			Data:  push.Data,
		})
	})

	if t.messaging == nil {
		return nil
	}

	msg := &messaging.Message{
		Topic: fmt.Sprintf("installation-%s", installationID()),
		Notification: &messaging.Notification{
			Title: push.Title,
			Body:  push.Body,
		},
		Data: push.Data,
		Android: &messaging.AndroidConfig{
			Priority: androidPriority(spec),
			Notification: &messaging.AndroidNotification{
				ChannelID:  string(spec.ID),
				Sound:      spec.Sound,
				LightSettings: &messaging.LightSettings{
					Color:                  spec.LightColor,
					LightOnDurationMillis:  250,
					LightOffDurationMillis: 250,
				},
				VibrateTimingMillis: spec.VibrationPattern,
			},
		},
	}

	if _, err := t.messaging.Send(ctx, msg); err != nil {
		// FCM mirroring is best effort; local delivery already happened.
		t.logger.Warn("fcm mirror failed", slog.Any("error", err))
	}

	return nil
}

// EnsureChannels validates the channel specs against FCM's priority buckets.
// Channel creation itself happens on the mobile OS; this side only ever
// references channels by id.
func (t *googleTransport) EnsureChannels(context.Context) error {
	for _, spec := range channelSpecs {
		if androidPriority(spec) == "" {
			return errors.Errorf("channel %s has no valid importance", spec.ID)
		}
	}

	return nil
}

func androidPriority(spec channelSpec) string {
	switch spec.Importance {
	case "max", "high":
		return "high"
	case "default", "low", "min":
		return "normal"
	}

	return ""
}
