// Package webhook answers LINE text messages with the query assistant.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"

	"github.com/garyellow/realestate-linebot-go/internal/ctxutil"
	"github.com/garyellow/realestate-linebot-go/internal/logger"
	"github.com/garyellow/realestate-linebot-go/internal/metrics"
	"github.com/garyellow/realestate-linebot-go/internal/orchestrator"
	"github.com/garyellow/realestate-linebot-go/internal/ratelimit"
	"github.com/garyellow/realestate-linebot-go/internal/sentry"
	"github.com/garyellow/realestate-linebot-go/internal/stringutil"
)

const (
	maxEventsPerWebhook = 100
	maxQueryRunes       = 500
)

const (
	rateLimitedText = "查詢太頻繁了，請稍等一下再試。"
	unsupportedText = "目前只支援文字查詢，例如「台北市大安區的平均房價」或「新北市板橋區近五年房價趨勢」。"
	welcomeText     = "歡迎使用房價查詢小幫手！\n\n您可以問我：\n・台北市大安區的平均房價\n・新北市板橋區近五年房價趨勢\n・幫我找信義區三房有車位的公寓"
)

// Querier answers one query turn for a session.
type Querier interface {
	Process(ctx context.Context, sessionID, text string) orchestrator.Result
	ProcessMulti(ctx context.Context, sessionID, text string) orchestrator.Result
}

// Replier sends reply messages. *messaging_api.MessagingApiAPI implements it.
type Replier interface {
	ReplyMessage(req *messaging_api.ReplyMessageRequest) (*messaging_api.ReplyMessageResponse, error)
}

// ChartPublisher stores a chart image and returns an HTTPS URL LINE can
// fetch. *objectstore.Client implements it.
type ChartPublisher interface {
	PublishChart(ctx context.Context, data []byte, contentType string) (string, error)
}

// Config wires a Handler.
type Config struct {
	ChannelSecret string
	Replier       Replier
	Querier       Querier
	Sessions      *ratelimit.SessionLimiter // nil disables per-user limiting
	Charts        ChartPublisher            // nil answers chart queries with text only
	Multi         bool                      // answer with the multi-tool pipeline
	Timeout       time.Duration             // per event, default 60s
	Metrics       *metrics.Metrics
	Logger        *logger.Logger
}

// Handler handles LINE webhook callbacks. Events are answered after the
// HTTP response is sent.
type Handler struct {
	channelSecret string
	replier       Replier
	querier       Querier
	sessions      *ratelimit.SessionLimiter
	charts        ChartPublisher
	multi         bool
	timeout       time.Duration
	metrics       *metrics.Metrics
	log           *logger.Logger
	wg            sync.WaitGroup
}

// NewHandler creates a Handler.
func NewHandler(cfg Config) (*Handler, error) {
	if cfg.ChannelSecret == "" {
		return nil, errors.New("channel secret is required")
	}
	if cfg.Replier == nil || cfg.Querier == nil {
		return nil, errors.New("replier and querier are required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Discard()
	}
	return &Handler{
		channelSecret: cfg.ChannelSecret,
		replier:       cfg.Replier,
		querier:       cfg.Querier,
		sessions:      cfg.Sessions,
		charts:        cfg.Charts,
		multi:         cfg.Multi,
		timeout:       cfg.Timeout,
		metrics:       cfg.Metrics,
		log:           cfg.Logger.WithModule("webhook"),
	}, nil
}

// NewMessagingClient creates the LINE reply client for token.
func NewMessagingClient(token string) (*messaging_api.MessagingApiAPI, error) {
	client, err := messaging_api.NewMessagingApiAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create messaging API client: %w", err)
	}
	return client, nil
}

// Handle is the gin handler for the callback endpoint.
func (h *Handler) Handle(c *gin.Context) {
	cb, err := webhook.ParseRequest(h.channelSecret, c.Request)
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidSignature) {
			h.log.Warn("Invalid webhook signature")
			h.metrics.RecordWebhook("batch", "invalid_signature")
			c.Status(http.StatusBadRequest)
		} else {
			h.log.WithError(err).Error("Failed to parse webhook request")
			c.Status(http.StatusInternalServerError)
		}
		return
	}

	// LINE expects a quick 200; replies go out asynchronously.
	c.Status(http.StatusOK)
	h.metrics.RecordWebhook("batch", "received")

	events := cb.Events
	if len(events) > maxEventsPerWebhook {
		h.log.WithField("event_count", len(events)).Warn("Too many events in webhook batch; truncating")
		events = events[:maxEventsPerWebhook]
	}
	events = append([]webhook.EventInterface(nil), events...)
	base := ctxutil.PreserveTracing(c.Request.Context())

	h.wg.Go(func() {
		for _, event := range events {
			h.processEvent(base, event)
		}
	})
}

func (h *Handler) processEvent(ctx context.Context, event webhook.EventInterface) {
	start := time.Now()
	var (
		eventType  string
		replyToken string
		messages   []messaging_api.MessageInterface
	)

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic handling %s event: %v", eventType, r)
			h.log.WithError(err).Error("Panic in webhook event processing")
			sentry.CaptureQueryFailure(ctx, err, "", eventType)
			h.metrics.RecordWebhook(eventType, "panic")
		}
	}()

	switch e := event.(type) {
	case webhook.MessageEvent:
		eventType, replyToken = "message", e.ReplyToken
		if e.WebhookEventId != "" {
			ctx = ctxutil.WithRequestID(ctx, e.WebhookEventId)
		}
		messages = h.answer(ctx, e)
	case webhook.FollowEvent:
		eventType, replyToken = "follow", e.ReplyToken
		messages = textReply(welcomeText, defaultSuggestions()...)
	default:
		h.log.WithField("event_type", fmt.Sprintf("%T", e)).Debug("Unsupported event type")
		return
	}

	if len(messages) == 0 || replyToken == "" {
		h.metrics.RecordWebhook(eventType, "ignored")
		return
	}

	log := h.log.WithField("event_type", eventType)
	if id, ok := ctxutil.GetRequestID(ctx); ok {
		log = log.WithRequestID(id)
	}

	_, err := h.replier.ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages:   messages,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Invalid reply token") {
			log.WithError(err).Debug("Reply token already used or expired")
		} else {
			log.WithError(err).Error("Failed to send reply")
		}
		h.metrics.RecordWebhook(eventType, "reply_error")
		return
	}

	h.metrics.RecordWebhook(eventType, "success")
	log.WithField("duration_ms", time.Since(start).Milliseconds()).Info("Event processed")
}

// answer builds the reply for a message event; nil means no reply.
func (h *Handler) answer(ctx context.Context, e webhook.MessageEvent) []messaging_api.MessageInterface {
	msg, ok := e.Message.(webhook.TextMessageContent)
	if !ok {
		if _, isUser := e.Source.(webhook.UserSource); isUser {
			return textReply(unsupportedText, defaultSuggestions()...)
		}
		return nil
	}

	sessionID := SessionID(e.Source)
	if h.sessions != nil && !h.sessions.Allow(sessionID) {
		h.log.WithSessionID(sessionID).Info("Session rate limited")
		return textReply(rateLimitedText)
	}

	text := stringutil.Truncate(strings.TrimSpace(msg.Text), maxQueryRunes)
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	var res orchestrator.Result
	if h.multi {
		res = h.querier.ProcessMulti(ctx, sessionID, text)
	} else {
		res = h.querier.Process(ctx, sessionID, text)
	}
	return resultMessages(res, h.chartURL(ctx, res))
}

// chartURL publishes the chart of res, returning "" when there is none or
// it cannot be shown.
func (h *Handler) chartURL(ctx context.Context, res orchestrator.Result) string {
	if h.charts == nil || !res.HasChart() {
		return ""
	}
	switch res.Chart.ContentType {
	case "image/png", "image/jpeg":
	default:
		return ""
	}

	url, err := h.charts.PublishChart(ctx, res.Chart.Data, res.Chart.ContentType)
	if err != nil {
		h.log.WithError(err).Warn("Failed to publish chart image")
		return ""
	}
	if !strings.HasPrefix(url, "https://") {
		h.log.WithField("url", url).Warn("Chart URL is not HTTPS; LINE cannot display it")
		return ""
	}
	return url
}

// SessionID identifies the conversation an event belongs to: the user for
// one-on-one chats, the user inside a group or room otherwise.
func SessionID(source webhook.SourceInterface) string {
	switch s := source.(type) {
	case webhook.UserSource:
		return s.UserId
	case webhook.GroupSource:
		if s.UserId != "" {
			return s.GroupId + ":" + s.UserId
		}
		return s.GroupId
	case webhook.RoomSource:
		if s.UserId != "" {
			return s.RoomId + ":" + s.UserId
		}
		return s.RoomId
	default:
		return ""
	}
}

// Shutdown waits for in-flight events or until ctx is done.
func (h *Handler) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.wg.Wait()
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
