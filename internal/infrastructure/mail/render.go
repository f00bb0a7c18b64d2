package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	apporder "github.com/Zhima-Mochi/joyeria/internal/application/order"
	"github.com/Zhima-Mochi/joyeria/internal/domain/customer"
	"github.com/Zhima-Mochi/joyeria/internal/domain/notification"
	domain "github.com/Zhima-Mochi/joyeria/internal/domain/order"
	"github.com/Zhima-Mochi/joyeria/internal/domain/payment"
	"github.com/shopspring/decimal"
)

//go:embed templates/*.html
var templateFS embed.FS

var _ apporder.Composer = (*Composer)(nil)

// Composer renders order emails from the embedded templates.
type Composer struct {
	store string
	tmpl  *template.Template
}

func NewComposer(storeName string) (*Composer, error) {
	tmpl, err := template.New("mail").Funcs(template.FuncMap{
		"money":  Money,
		"status": statusLabel,
		"method": methodLabel,
		"lower":  strings.ToLower,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("mail: parse templates: %w", err)
	}
	if storeName == "" {
		storeName = "Joyería"
	}
	return &Composer{store: storeName, tmpl: tmpl}, nil
}

type view struct {
	Store   string
	Order   *domain.Order
	Buyer   customer.Contact
	Address string
	Message string
}

func (c *Composer) Confirmation(o *domain.Order, buyer customer.Contact) (notification.Message, error) {
	return c.render("confirmation.html", buyer.Email,
		fmt.Sprintf("Confirmación de tu pedido %s", o.Code), view{Order: o, Buyer: buyer})
}

func (c *Composer) AdminAlert(o *domain.Order, buyer customer.Contact, to string) (notification.Message, error) {
	return c.render("admin_alert.html", to,
		fmt.Sprintf("Nuevo pedido %s", o.Code), view{Order: o, Buyer: buyer})
}

func (c *Composer) StatusUpdate(o *domain.Order, buyer customer.Contact, message string) (notification.Message, error) {
	return c.render("status_update.html", buyer.Email,
		fmt.Sprintf("Tu pedido %s está %s", o.Code, strings.ToLower(statusLabel(o.Status))), view{Order: o, Buyer: buyer, Message: message})
}

func (c *Composer) render(name, to, subject string, v view) (notification.Message, error) {
	v.Store = c.store
	v.Address = v.Buyer.Address.String()
	var buf bytes.Buffer
	if err := c.tmpl.ExecuteTemplate(&buf, name, v); err != nil {
		return notification.Message{}, fmt.Errorf("mail: render %s: %w", name, err)
	}
	return notification.Message{To: to, Subject: subject, HTMLBody: buf.String()}, nil
}

// Money formats minor units with two decimals, e.g. 25050 mxn -> "$250.50 MXN".
func Money(minor int64, currency string) string {
	amount := decimal.New(minor, -2).StringFixed(2)
	if currency == "" {
		return "$" + amount
	}
	return "$" + amount + " " + strings.ToUpper(currency)
}

func statusLabel(s domain.Status) string {
	switch s {
	case domain.StatusProcessing:
		return "En proceso"
	case domain.StatusShipped:
		return "Enviado"
	case domain.StatusDelivered:
		return "Entregado"
	case domain.StatusCancelled:
		return "Cancelado"
	}
	return string(s)
}

func methodLabel(m payment.Method) string {
	if m == payment.MethodCashVoucher {
		return "Pago en efectivo (OXXO)"
	}
	return "Tarjeta"
}
