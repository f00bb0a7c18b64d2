package order

import (
	"context"
	"time"

	"github.com/Zhima-Mochi/joyeria/internal/application"
	"github.com/Zhima-Mochi/joyeria/internal/domain/customer"
	"github.com/Zhima-Mochi/joyeria/internal/domain/notification"
	domain "github.com/Zhima-Mochi/joyeria/internal/domain/order"
	"github.com/Zhima-Mochi/joyeria/internal/observability"
	"github.com/Zhima-Mochi/joyeria/internal/observability/logctx"
)

const (
	notifierService  = "order-notifier"
	notificationPeer = "notification"
	sendTimeout      = 15 * time.Second

	TemplateConfirmation = "order_confirmation"
	TemplateAdminAlert   = "order_admin_alert"
	TemplateStatusUpdate = "order_status_update"
)

// Composer renders order notifications.
type Composer interface {
	Confirmation(o *domain.Order, buyer customer.Contact) (notification.Message, error)
	AdminAlert(o *domain.Order, buyer customer.Contact, to string) (notification.Message, error)
	StatusUpdate(o *domain.Order, buyer customer.Contact, message string) (notification.Message, error)
}

// Notifier sends order notifications after commit. Every failure is logged and
// counted; none is returned to the caller.
type Notifier struct {
	sender    notification.Sender
	composer  Composer
	directory customer.Directory
	in        application.Instruments
	sent      observability.Counter // notifications_total{template,outcome}
}

func NewNotifier(sender notification.Sender, composer Composer, directory customer.Directory, tel observability.Observability) *Notifier {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Notifier{
		sender:    sender,
		composer:  composer,
		directory: directory,
		in:        application.NewInstruments(tel, notifierService),
		sent:      tel.Metrics().Counter(observability.MNotifications),
	}
}

// OrderCreated sends the buyer confirmation and one alert per admin address.
// The order is already committed, so a caller that went away does not stop it.
func (n *Notifier) OrderCreated(ctx context.Context, o *domain.Order) {
	if n == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	log := logctx.FromOr(ctx, n.in.Logger()).With(observability.F("order_id", o.ID))
	buyer, ok := n.buyer(ctx, o, log)

	if ok {
		n.deliver(ctx, log, TemplateConfirmation, func() (notification.Message, error) {
			return n.composer.Confirmation(o, buyer)
		})
	}

	admins, err := n.directory.AdminEmails(ctx)
	if err != nil {
		n.sent.Add(1, observability.L("template", TemplateAdminAlert), observability.L("outcome", "lookup_failed"))
		log.Error("admin_contacts_lookup_failed", observability.Err(err))
		return
	}
	for _, to := range admins {
		n.deliver(ctx, log, TemplateAdminAlert, func() (notification.Message, error) {
			return n.composer.AdminAlert(o, buyer, to)
		})
	}
}

// StatusChanged tells the buyer about a transition, quoting the admin's message.
func (n *Notifier) StatusChanged(ctx context.Context, o *domain.Order, message string) {
	if n == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	log := logctx.FromOr(ctx, n.in.Logger()).With(observability.F("order_id", o.ID))
	buyer, ok := n.buyer(ctx, o, log)
	if !ok {
		return
	}
	n.deliver(ctx, log, TemplateStatusUpdate, func() (notification.Message, error) {
		return n.composer.StatusUpdate(o, buyer, message)
	})
}

func (n *Notifier) buyer(ctx context.Context, o *domain.Order, log observability.Logger) (customer.Contact, bool) {
	buyer, err := n.directory.Buyer(ctx, o.BuyerID)
	if err != nil {
		n.sent.Add(1, observability.L("template", TemplateConfirmation), observability.L("outcome", "lookup_failed"))
		log.Error("buyer_lookup_failed", observability.F("buyer_id", o.BuyerID), observability.Err(err))
		return customer.Contact{ID: o.BuyerID}, false
	}
	if buyer.Email == "" {
		log.Warn("buyer_without_email", observability.F("buyer_id", o.BuyerID))
		return buyer, false
	}
	return buyer, true
}

func (n *Notifier) deliver(ctx context.Context, log observability.Logger, template string, compose func() (notification.Message, error)) {
	msg, err := compose()
	if err != nil {
		n.sent.Add(1, observability.L("template", template), observability.L("outcome", "render_failed"))
		log.Error("notification_render_failed", observability.F("template", template), observability.Err(err))
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	start := time.Now()
	err = n.sender.Send(sendCtx, msg)
	n.in.External(notificationPeer, template, start, err)
	if err != nil {
		n.sent.Add(1, observability.L("template", template), observability.L("outcome", "error"))
		log.Error("notification_failed",
			observability.F("template", template),
			observability.F("to", msg.To),
			observability.Err(err),
		)
		return
	}
	n.sent.Add(1, observability.L("template", template), observability.L("outcome", "success"))
	log.Info("notification_sent", observability.F("template", template), observability.F("to", msg.To))
}
