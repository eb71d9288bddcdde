package push

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"farmlink/config"
	"farmlink/internal/domain/service"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"google.golang.org/api/idtoken"
)

// pushMessage is the Pub/Sub push envelope delivered to the local receiver.
// This mimics the format Google Pub/Sub uses when pushing to HTTP endpoints.
type pushMessage struct {
	Message struct {
		Data        string            `json:"data"`
		Attributes  map[string]string `json:"attributes,omitempty"`
		MessageID   string            `json:"messageId"`
		PublishTime string            `json:"publishTime"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// notificationPayload is the decoded push body.
type notificationPayload struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// localTransport receives pushes on a local HTTP endpoint, simulating the
// platform push service for development and simulator builds. Device tokens
// are always synthetic.
type localTransport struct {
	cfg            *config.PushConfig
	logger         *slog.Logger
	server         *echo.Echo
	dispatcher     *dispatcher
	permissions    *permissionGate
	verifyPushAuth bool
}

// newLocalTransport creates the development push transport. The caller wires
// Start/Stop into the fx lifecycle.
func newLocalTransport(cfg *config.PushConfig, logger *slog.Logger) *localTransport {
	t := &localTransport{
		cfg:            cfg,
		logger:         logger,
		dispatcher:     newDispatcher(),
		permissions:    &permissionGate{},
		verifyPushAuth: cfg.VerifyPushAuth,
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomiddleware.Recover())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.POST("/push", t.handlePush(t.dispatcher.deliver))
	e.POST("/response", t.handlePush(t.dispatcher.deliverResponse))

	t.server = e

	return t
}

// Start begins serving the push endpoint.
func (t *localTransport) Start() error {
	hostPort := net.JoinHostPort("127.0.0.1", strconv.Itoa(t.cfg.LocalPort))
	t.logger.Info("starting local push receiver", slog.String("hostPort", hostPort))

	go func() {
		if err := t.server.Start(hostPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.logger.Error("local push receiver stopped", slog.Any("error", err))
		}
	}()

	return nil
}

// Stop shuts the push endpoint down.
func (t *localTransport) Stop(ctx context.Context) error {
	return t.server.Shutdown(ctx)
}

func (t *localTransport) QueryPermission(context.Context) (service.PermissionStatus, error) {
	return t.permissions.query(), nil
}

func (t *localTransport) RequestPermission(context.Context) (bool, error) {
	return t.permissions.request(), nil
}

// ObtainDeviceToken always returns a synthetic placeholder: simulator builds
// have no push service, and the local receiver is not addressable by the
// platform. Both forms are accepted by the backend as opaque.
func (t *localTransport) ObtainDeviceToken(_ context.Context, projectID string) string {
	if t.cfg.Simulator {
		return service.SimulatorTokenPrefix + installationID()
	}

	t.logger.Debug("no push service available, using fallback token",
		slog.String("projectId", projectID))

	return service.FallbackTokenPrefix + installationID()
}

func (t *localTransport) Subscribe(onReceive, onUserResponse service.ReceiveHandler) (service.CancelFunc, error) {
	return t.dispatcher.subscribe(onReceive, onUserResponse), nil
}

// ScheduleLocal delivers the notification to subscribers after the fixed
// delay.
func (t *localTransport) ScheduleLocal(_ context.Context, push service.LocalPush) error {
	spec := specFor(push.Channel)
	t.logger.Debug("scheduling local notification",
		slog.String("channel", string(spec.ID)),
		slog.String("title", push.Title),
	)

	time.AfterFunc(scheduleDelaySeconds*time.Second, func() {
		t.dispatcher.deliver(service.InboundNotification{
			Title: push.Title,
			Body:  push.Body,
			Data:  push.Data,
		})
	})

	return nil
}

// EnsureChannels registers the channel metadata. The local runtime has no
// channel registry; the call logs the spec so misconfiguration is visible.
func (t *localTransport) EnsureChannels(context.Context) error {
	for _, spec := range channelSpecs {
		t.logger.Debug("notification channel ready",
			slog.String("channel", string(spec.ID)),
			slog.String("importance", spec.Importance),
		)
	}

	return nil
}

// handlePush decodes a Pub/Sub push envelope and forwards the notification.
func (t *localTransport) handlePush(deliver func(service.InboundNotification)) echo.HandlerFunc {
	return func(c echo.Context) error {
		if t.verifyPushAuth {
			if err := verifyPushToken(c.Request()); err != nil {
				t.logger.Warn("rejected push with invalid token", slog.Any("error", err))

				return c.NoContent(http.StatusUnauthorized)
			}
		}

		var msg pushMessage
		if err := c.Bind(&msg); err != nil {
			t.logger.Error("failed to parse push message", slog.Any("error", err))

			return c.NoContent(http.StatusBadRequest)
		}

		data, err := base64.StdEncoding.DecodeString(msg.Message.Data)
		if err != nil {
			t.logger.Error("failed to decode push data", slog.Any("error", err))

			return c.NoContent(http.StatusBadRequest)
		}

		var payload notificationPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			t.logger.Error("failed to parse notification payload", slog.Any("error", err))

			return c.NoContent(http.StatusBadRequest)
		}

		deliver(service.InboundNotification{
			Title: payload.Title,
			Body:  payload.Body,
			Data:  payload.Data,
		})

		return c.NoContent(http.StatusOK)
	}
}

// verifyPushToken verifies the OIDC token on Pub/Sub push requests.
// Reference: https://cloud.google.com/pubsub/docs/push#authenticating_standard_push_requests
func verifyPushToken(req *http.Request) error {
	authHeader := req.Header.Get("Authorization")
	if authHeader == "" {
		return errors.New("missing authorization header")
	}

	const bearerPrefix = "Bearer "
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return errors.New("invalid authorization header format")
	}
	token := strings.TrimPrefix(authHeader, bearerPrefix)

	scheme := "https"
	if req.TLS == nil {
		scheme = "http"
	}
	audience := fmt.Sprintf("%s://%s%s", scheme, req.Host, req.URL.Path)

	payload, err := idtoken.Validate(req.Context(), token, audience)
	if err != nil {
		return errors.Wrap(err, "failed to validate token")
	}

	if payload.Issuer != "accounts.google.com" && payload.Issuer != "https://accounts.google.com" {
		return errors.Errorf("invalid issuer: %s", payload.Issuer)
	}

	return nil
}
