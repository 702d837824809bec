// Package pipeline processes one inbound SMS end to end: whitelist gate,
// classification, dispatch, reply delivery, and audit logging. Every path
// produces a reply; no path leaks an internal error to the channel.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"homeline/internal/dispatch"
	"homeline/internal/util"
	"homeline/pkg/classify"
	"homeline/pkg/domain"
	"homeline/pkg/sms"
)

// RejectionReply is the fixed polite reply for phone numbers outside the
// whitelist. Such messages never reach the classifier or any handler.
const RejectionReply = "Sorry, I don't recognize this number, so I can't help you here."

// Classifier matches classify.SafeClassifier: it cannot fail.
type Classifier interface {
	Classify(ctx context.Context, req classify.Request) classify.Result
}

// Store is the slice of the store the pipeline needs.
type Store interface {
	GetUserByPhone(phone string) (domain.User, bool, error)
	AppendMessageLog(domain.MessageLog) error
	SetMessageLogIntent(id, intent string, confidence float64, entities map[string]string) error
	SetMessageLogDelivery(id, providerMessageID, status string) error
}

// Config wires the pipeline's collaborators.
type Config struct {
	Store      Store
	Classifier Classifier
	Dispatcher *dispatch.Dispatcher
	Sender     sms.Sender
}

// Pipeline is the synchronous unit of work behind each webhook call.
type Pipeline struct {
	store      Store
	classifier Classifier
	dispatcher *dispatch.Dispatcher
	sender     sms.Sender
	now        func() time.Time
}

// New constructs the pipeline.
func New(cfg Config) *Pipeline {
	return &Pipeline{
		store:      cfg.Store,
		classifier: cfg.Classifier,
		dispatcher: cfg.Dispatcher,
		sender:     cfg.Sender,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Handle processes one inbound message and sends the reply. The returned
// text is what was (or would have been) sent; it is never empty.
func (p *Pipeline) Handle(ctx context.Context, fromPhone, toPhone, body, providerMessageID string) string {
	inboundID := util.NewID()
	if err := p.store.AppendMessageLog(domain.MessageLog{
		ID:                inboundID,
		FromPhone:         fromPhone,
		ToPhone:           toPhone,
		Body:              body,
		Direction:         domain.DirectionInbound,
		ProviderMessageID: providerMessageID,
		Status:            "received",
		CreatedAt:         p.now(),
	}); err != nil {
		slog.Error("inbound audit log failed", "from", fromPhone, "err", err)
	}

	reply := p.replyFor(ctx, inboundID, fromPhone, body)
	p.sendReply(ctx, toPhone, fromPhone, reply)
	return reply
}

func (p *Pipeline) replyFor(ctx context.Context, inboundID, fromPhone, body string) string {
	user, ok, err := p.store.GetUserByPhone(fromPhone)
	if err != nil {
		slog.Error("user lookup failed", "from", fromPhone, "err", err)
		return dispatch.Apology
	}
	if !ok {
		slog.Warn("message from unknown number rejected", "from", fromPhone)
		return RejectionReply
	}

	res := p.classifier.Classify(ctx, classify.Request{
		Text:        body,
		SenderName:  user.Name,
		SenderPhone: fromPhone,
	})
	if err := p.store.SetMessageLogIntent(inboundID, string(res.Intent), res.Confidence, res.Entities); err != nil {
		slog.Error("intent back-fill failed", "id", inboundID, "err", err)
	}
	slog.Info("message classified", "from", fromPhone, "intent", res.Intent, "confidence", res.Confidence)

	return p.dispatcher.Dispatch(ctx, res, user)
}

// sendReply delivers the reply and records the outbound audit row, with the
// provider message id and delivery status back-filled after the send.
func (p *Pipeline) sendReply(ctx context.Context, fromPhone, toPhone, body string) {
	outboundID := util.NewID()
	if err := p.store.AppendMessageLog(domain.MessageLog{
		ID:        outboundID,
		FromPhone: fromPhone,
		ToPhone:   toPhone,
		Body:      body,
		Direction: domain.DirectionOutbound,
		Status:    "queued",
		CreatedAt: p.now(),
	}); err != nil {
		slog.Error("outbound audit log failed", "to", toPhone, "err", err)
	}
	res, err := p.sender.Send(ctx, toPhone, body)
	if err != nil {
		slog.Error("reply send failed", "to", toPhone, "err", err)
		if err := p.store.SetMessageLogDelivery(outboundID, "", "failed"); err != nil {
			slog.Error("delivery back-fill failed", "id", outboundID, "err", err)
		}
		return
	}
	if err := p.store.SetMessageLogDelivery(outboundID, res.MessageSID, res.Status); err != nil {
		slog.Error("delivery back-fill failed", "id", outboundID, "err", err)
	}
}
